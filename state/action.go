package state

import (
	"time"

	studio "github.com/elan-ev/opencast-studio-sub000"
)

// Action is a named transition of the application state. The set of actions
// is closed: only the types declared in this file implement it.
type Action interface {
	ActionName() string
	action()
}

// ShareStream reports that the stream of the slot was acquired.
type ShareStream struct {
	Slot   Slot
	Stream studio.Stream
}

// BlockStream reports that the permission to acquire the slot's stream was denied.
type BlockStream struct {
	Slot Slot
}

// UnshareStream reports that the slot's stream was stopped on purpose.
type UnshareStream struct {
	Slot Slot
}

// StreamUnexpectedEnd reports that the slot's stream died on its own.
type StreamUnexpectedEnd struct {
	Slot Slot
}

type ChooseVideo struct {
	Choice VideoChoice
}

type ChooseAudio struct {
	Choice AudioChoice
}

type StartRecording struct{}
type StopRecording struct{}

// StopRecordingPrematurely is dispatched when a stream died in the middle of
// a recording.
type StopRecordingPrematurely struct{}

type ClearRecordings struct{}

type AddRecording struct {
	Recording studio.Recording
}

// UpdateStart sets (or clears, if nil) the start trim boundary. The caller is
// responsible for keeping Start < End.
type UpdateStart struct {
	Value *time.Duration
}

// UpdateEnd sets (or clears, if nil) the end trim boundary. The caller is
// responsible for keeping Start < End.
type UpdateEnd struct {
	Value *time.Duration
}

type UploadRequest struct{}
type UploadSuccess struct{}

type UploadError struct {
	Message string
}

type UploadProgressUpdate struct {
	TimeLeft        *time.Duration
	CurrentProgress float64
}

type MarkDownloaded struct {
	Index int
}

type UpdateTitle struct {
	Title string
}

type UpdatePresenter struct {
	Presenter string
}

type Reset struct{}

func (a ShareStream) ActionName() string { return "SHARE_" + a.Slot.String() }
func (a BlockStream) ActionName() string { return "BLOCK_" + a.Slot.String() }
func (a UnshareStream) ActionName() string { return "UNSHARE_" + a.Slot.String() }
func (a StreamUnexpectedEnd) ActionName() string { return a.Slot.String() + "_UNEXPECTED_END" }
func (ChooseVideo) ActionName() string { return "CHOOSE_VIDEO" }
func (ChooseAudio) ActionName() string { return "CHOOSE_AUDIO" }
func (StartRecording) ActionName() string { return "START_RECORDING" }
func (StopRecording) ActionName() string { return "STOP_RECORDING" }
func (StopRecordingPrematurely) ActionName() string { return "STOP_RECORDING_PREMATURELY" }
func (ClearRecordings) ActionName() string { return "CLEAR_RECORDINGS" }
func (AddRecording) ActionName() string { return "ADD_RECORDING" }
func (UpdateStart) ActionName() string { return "UPDATE_START" }
func (UpdateEnd) ActionName() string { return "UPDATE_END" }
func (UploadRequest) ActionName() string { return "UPLOAD_REQUEST" }
func (UploadSuccess) ActionName() string { return "UPLOAD_SUCCESS" }
func (UploadError) ActionName() string { return "UPLOAD_ERROR" }
func (UploadProgressUpdate) ActionName() string { return "UPLOAD_PROGRESS_UPDATE" }
func (MarkDownloaded) ActionName() string { return "MARK_DOWNLOADED" }
func (UpdateTitle) ActionName() string { return "UPDATE_TITLE" }
func (UpdatePresenter) ActionName() string { return "UPDATE_PRESENTER" }
func (Reset) ActionName() string { return "RESET" }

func (ShareStream) action() {}
func (BlockStream) action() {}
func (UnshareStream) action() {}
func (StreamUnexpectedEnd) action() {}
func (ChooseVideo) action() {}
func (ChooseAudio) action() {}
func (StartRecording) action() {}
func (StopRecording) action() {}
func (StopRecordingPrematurely) action() {}
func (ClearRecordings) action() {}
func (AddRecording) action() {}
func (UpdateStart) action() {}
func (UpdateEnd) action() {}
func (UploadRequest) action() {}
func (UploadSuccess) action() {}
func (UploadError) action() {}
func (UploadProgressUpdate) action() {}
func (MarkDownloaded) action() {}
func (UpdateTitle) action() {}
func (UpdatePresenter) action() {}
func (Reset) action() {}
