// Package prefs keeps the few values remembered between sessions. Losing
// them is harmless.
package prefs

import (
	"context"
)

type Key string

const (
	KeyLastCameraDeviceID     = Key("lastCameraDeviceId")
	KeyLastMicrophoneDeviceID = Key("lastMicrophoneDeviceId")
	KeyLastPresenter          = Key("lastPresenter")
)

type Store interface {
	Get(ctx context.Context, key Key) (string, bool)
	Set(ctx context.Context, key Key, value string) error
}
