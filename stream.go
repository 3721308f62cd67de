package studio

import (
	"fmt"
	"strings"
)

// Stream is an opaque handle to a live capture stream (display, camera or
// microphone) acquired by the platform.
type Stream interface {
	ID() string

	// Dimensions returns the video geometry of the stream; ok is false for
	// streams without a video track.
	Dimensions() (_ Dimensions, ok bool)
}

type Dimensions struct {
	Width  int `json:"width"  yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

type DeviceType string

const (
	DeviceTypeUndefined = DeviceType("")
	DeviceTypeDesktop   = DeviceType("desktop")
	DeviceTypeVideo     = DeviceType("video")
)

func (t DeviceType) String() string {
	if t == DeviceTypeUndefined {
		return "<undefined>"
	}
	return string(t)
}

// FlavorType is the role part of the Opencast flavor of a track recorded
// from this device.
func (t DeviceType) FlavorType() string {
	switch t {
	case DeviceTypeDesktop:
		return "presentation"
	case DeviceTypeVideo:
		return "presenter"
	}
	return "unknown"
}

func (t DeviceType) Flavor() string {
	return t.FlavorType() + "/source"
}

func ParseDeviceType(s string) (DeviceType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "desktop", "display", "presentation":
		return DeviceTypeDesktop, nil
	case "video", "camera", "user", "presenter":
		return DeviceTypeVideo, nil
	}
	return DeviceTypeUndefined, fmt.Errorf("unknown device type '%s'", s)
}
