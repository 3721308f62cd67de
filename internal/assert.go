package internal

import (
	"context"
	"fmt"

	"github.com/facebookincubator/go-belt/tool/logger"
)

// Assert panics if mustBeTrue is false. It guards conditions that can only
// be violated by a programming defect, never by user input or I/O.
func Assert(
	ctx context.Context,
	mustBeTrue bool,
	extraArgs ...any,
) {
	if mustBeTrue {
		return
	}

	if len(extraArgs) == 0 {
		logger.Panicf(ctx, "assertion failed")
		return
	}
	logger.Panicf(ctx, "assertion failed: %s", fmt.Sprint(extraArgs...))
}

// Unreachable panics unconditionally; it marks code paths that are
// impossible unless there is a defect.
func Unreachable(
	ctx context.Context,
	format string,
	args ...any,
) {
	logger.Panicf(ctx, "reached unreachable code: %s", fmt.Sprintf(format, args...))
}
