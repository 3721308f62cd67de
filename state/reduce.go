package state

import (
	"context"

	studio "github.com/elan-ev/opencast-studio-sub000"
	"github.com/elan-ev/opencast-studio-sub000/internal"
)

// Reduce returns the state that results from applying the action to cur.
// The initial state is what Reset restores. Neither input is modified.
//
// An action not handled here is a programming defect and panics.
func Reduce(
	ctx context.Context,
	initial State,
	cur State,
	action Action,
) State {
	next := cur.Clone()
	switch a := action.(type) {
	case ShareStream:
		dev := slotDevice(ctx, &next, a.Slot)
		dev.Stream = a.Stream
		dev.Allowed = PermissionGranted
		dev.UnexpectedEnd = false
	case BlockStream:
		dev := slotDevice(ctx, &next, a.Slot)
		dev.Stream = nil
		dev.Allowed = PermissionDenied
	case UnshareStream:
		dev := slotDevice(ctx, &next, a.Slot)
		dev.Stream = nil
	case StreamUnexpectedEnd:
		dev := slotDevice(ctx, &next, a.Slot)
		dev.Stream = nil
		dev.UnexpectedEnd = true
	case ChooseVideo:
		next.VideoChoice = a.Choice
	case ChooseAudio:
		next.AudioChoice = a.Choice
	case StartRecording:
		next.IsRecording = true
	case StopRecording:
		next.IsRecording = false
	case StopRecordingPrematurely:
		next.IsRecording = false
		next.PrematureRecordingEnd = true
	case ClearRecordings:
		next.Recordings = nil
		next.PrematureRecordingEnd = false
	case AddRecording:
		next.Recordings = addRecording(next.Recordings, a.Recording)
	case UpdateStart:
		next.Start = clonePtr(a.Value)
	case UpdateEnd:
		next.End = clonePtr(a.Value)
	case UploadRequest:
		next.Upload = Upload{
			State: UploadStateUploading,
		}
	case UploadSuccess:
		next.Upload.State = UploadStateUploaded
		next.Upload.Error = ""
	case UploadError:
		next.Upload.State = UploadStateError
		next.Upload.Error = a.Message
	case UploadProgressUpdate:
		next.Upload.TimeLeft = clonePtr(a.TimeLeft)
		next.Upload.CurrentProgress = a.CurrentProgress
	case MarkDownloaded:
		if a.Index >= 0 && a.Index < len(next.Recordings) {
			next.Recordings[a.Index].Downloaded = true
		}
	case UpdateTitle:
		next.Title = a.Title
	case UpdatePresenter:
		next.Presenter = a.Presenter
	case Reset:
		next = initial.Clone()
	default:
		internal.Unreachable(ctx, "unknown action %T", action)
	}
	return next
}

func slotDevice(ctx context.Context, s *State, slot Slot) *Device {
	dev := s.device(slot)
	internal.Assert(ctx, dev != nil, "unknown slot ", int(slot))
	return dev
}

// addRecording appends rec, dropping every recording of the same device type
// left over from earlier takes.
func addRecording(recordings []studio.Recording, rec studio.Recording) []studio.Recording {
	result := make([]studio.Recording, 0, len(recordings)+1)
	for _, old := range recordings {
		if old.DeviceType == rec.DeviceType {
			continue
		}
		result = append(result, old)
	}
	return append(result, rec)
}
