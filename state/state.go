package state

import (
	"fmt"
	"slices"
	"time"

	studio "github.com/elan-ev/opencast-studio-sub000"
)

type Permission int

const (
	PermissionUnknown = Permission(iota)
	PermissionGranted
	PermissionDenied
)

func (p Permission) String() string {
	switch p {
	case PermissionUnknown:
		return "unknown"
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	}
	return fmt.Sprintf("unexpected_permission_%d", int(p))
}

// Device is the state of one capture input.
type Device struct {
	Stream        studio.Stream
	Allowed       Permission
	UnexpectedEnd bool
	Supported     bool
}

type Slot int

const (
	SlotDisplay = Slot(iota)
	SlotUser
	SlotAudio
	EndOfSlot
)

func (s Slot) String() string {
	switch s {
	case SlotDisplay:
		return "DISPLAY"
	case SlotUser:
		return "USER"
	case SlotAudio:
		return "AUDIO"
	}
	return fmt.Sprintf("UNEXPECTED_SLOT_%d", int(s))
}

// DeviceType is the type of the recording made from the slot's stream.
func (s Slot) DeviceType() studio.DeviceType {
	switch s {
	case SlotDisplay:
		return studio.DeviceTypeDesktop
	case SlotUser:
		return studio.DeviceTypeVideo
	}
	return studio.DeviceTypeUndefined
}

type VideoChoice string

const (
	VideoChoiceNone    = VideoChoice("none")
	VideoChoiceDisplay = VideoChoice("display")
	VideoChoiceUser    = VideoChoice("user")
	VideoChoiceBoth    = VideoChoice("both")
)

func (c VideoChoice) UsesDisplay() bool {
	return c == VideoChoiceDisplay || c == VideoChoiceBoth
}

func (c VideoChoice) UsesUser() bool {
	return c == VideoChoiceUser || c == VideoChoiceBoth
}

type AudioChoice string

const (
	AudioChoiceNone       = AudioChoice("none")
	AudioChoiceMicrophone = AudioChoice("microphone")
)

type UploadState string

const (
	UploadStateNotUploaded = UploadState("not_uploaded")
	UploadStateUploading   = UploadState("uploading")
	UploadStateUploaded    = UploadState("uploaded")
	UploadStateError       = UploadState("error")
)

type Upload struct {
	State UploadState

	// Error is the coarse failure category; empty unless State is UploadStateError.
	Error string

	// TimeLeft is nil while no estimate is available.
	TimeLeft        *time.Duration
	CurrentProgress float64
}

// State is the application state. It is replaced as a whole by every
// transition; a State obtained from a Store must not be modified.
type State struct {
	Display Device
	User    Device
	Audio   Device

	VideoChoice VideoChoice
	AudioChoice AudioChoice

	IsRecording           bool
	PrematureRecordingEnd bool

	// Recordings holds at most one recording per device type.
	Recordings []studio.Recording

	Title     string
	Presenter string

	// Start and End are the trim boundaries, nil when unset.
	Start *time.Duration
	End   *time.Duration

	Upload Upload
}

type Capabilities struct {
	Display bool
	User    bool
	Audio   bool
}

// Initial returns the state an application session starts with.
func Initial(caps Capabilities) State {
	return State{
		Display:     Device{Supported: caps.Display},
		User:        Device{Supported: caps.User},
		Audio:       Device{Supported: caps.Audio},
		VideoChoice: VideoChoiceNone,
		AudioChoice: AudioChoiceNone,
		Upload: Upload{
			State: UploadStateNotUploaded,
		},
	}
}

func (s State) Device(slot Slot) Device {
	switch slot {
	case SlotDisplay:
		return s.Display
	case SlotUser:
		return s.User
	case SlotAudio:
		return s.Audio
	}
	return Device{}
}

func (s *State) device(slot Slot) *Device {
	switch slot {
	case SlotDisplay:
		return &s.Display
	case SlotUser:
		return &s.User
	case SlotAudio:
		return &s.Audio
	}
	return nil
}

func (s State) Recording(deviceType studio.DeviceType) (studio.Recording, bool) {
	for _, rec := range s.Recordings {
		if rec.DeviceType == deviceType {
			return rec, true
		}
	}
	return studio.Recording{}, false
}

// HasTrim reports if at least one trim boundary is set.
func (s State) HasTrim() bool {
	return s.Start != nil || s.End != nil
}

// Clone returns a copy that shares no mutable memory with s (except the
// immutable recorded media).
func (s State) Clone() State {
	s.Recordings = slices.Clone(s.Recordings)
	for idx := range s.Recordings {
		if d := s.Recordings[idx].Dimensions; d != nil {
			s.Recordings[idx].Dimensions = ptr(*d)
		}
	}
	s.Start = clonePtr(s.Start)
	s.End = clonePtr(s.End)
	s.Upload.TimeLeft = clonePtr(s.Upload.TimeLeft)
	return s
}

func ptr[T any](in T) *T {
	return &in
}

func clonePtr[T any](in *T) *T {
	if in == nil {
		return nil
	}
	return ptr(*in)
}
