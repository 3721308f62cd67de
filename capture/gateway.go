// Package capture connects the platform's capture devices to the
// application state: every acquisition attempt ends up as exactly one
// SHARE_*/BLOCK_* action, and a stream ending on its own as *_UNEXPECTED_END.
package capture

import (
	"context"
	"errors"

	studio "github.com/elan-ev/opencast-studio-sub000"
	"github.com/elan-ev/opencast-studio-sub000/state"
)

// ErrPermissionDenied is returned by a Gateway when the user or the platform
// refused access to the device.
var ErrPermissionDenied = errors.New("permission denied")

type Constraints struct {
	// DeviceID is the preferred device; empty means any.
	DeviceID string
}

type Acquisition struct {
	Stream studio.Stream

	// DeviceID is the device actually used, if the platform tells.
	DeviceID string

	// Ended is closed when the stream ends without being released.
	Ended <-chan struct{}
}

// Gateway is the platform capture API.
type Gateway interface {
	Acquire(ctx context.Context, slot state.Slot, constraints Constraints) (*Acquisition, error)
	Release(ctx context.Context, stream studio.Stream) error
}
