package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"

	"github.com/elan-ev/opencast-studio-sub000/prefs"
	"github.com/elan-ev/opencast-studio-sub000/state"
)

var ErrInvalidTrim = errors.New("the trim start must be before the end")

func (s *Session) UpdateTitle(ctx context.Context, title string) {
	s.store.Dispatch(ctx, state.UpdateTitle{Title: title})
}

// UpdatePresenter sets the presenter and remembers it for the next session.
func (s *Session) UpdatePresenter(ctx context.Context, presenter string) {
	s.store.Dispatch(ctx, state.UpdatePresenter{Presenter: presenter})
	if err := s.prefs.Set(ctx, prefs.KeyLastPresenter, presenter); err != nil {
		logger.Errorf(ctx, "unable to remember the presenter: %v", err)
	}
}

// SetTrimStart sets (or clears, if nil) the start of the part to keep.
// A negative value is treated as zero.
func (s *Session) SetTrimStart(ctx context.Context, start *time.Duration) error {
	if start != nil && *start < 0 {
		zero := time.Duration(0)
		start = &zero
	}
	if end := s.store.State(ctx).End; start != nil && end != nil && *start >= *end {
		return fmt.Errorf("%w: %v >= %v", ErrInvalidTrim, *start, *end)
	}
	s.store.Dispatch(ctx, state.UpdateStart{Value: start})
	return nil
}

// SetTrimEnd sets (or clears, if nil) the end of the part to keep.
func (s *Session) SetTrimEnd(ctx context.Context, end *time.Duration) error {
	if start := s.store.State(ctx).Start; start != nil && end != nil && *start >= *end {
		return fmt.Errorf("%w: %v >= %v", ErrInvalidTrim, *start, *end)
	}
	if end != nil && *end <= 0 {
		return fmt.Errorf("%w: the end must be positive, got %v", ErrInvalidTrim, *end)
	}
	s.store.Dispatch(ctx, state.UpdateEnd{Value: end})
	return nil
}

// Download writes the recording to w and marks it as saved locally. It
// returns the file name the recording should be saved under.
func (s *Session) Download(
	ctx context.Context,
	index int,
	w io.Writer,
) (_fileName string, _err error) {
	logger.Debugf(ctx, "Download(ctx, %d)", index)
	defer func() { logger.Debugf(ctx, "/Download(ctx, %d): '%s' %v", index, _fileName, _err) }()

	cur := s.store.State(ctx)
	if index < 0 || index >= len(cur.Recordings) {
		return "", fmt.Errorf("there is no recording #%d (have %d)", index, len(cur.Recordings))
	}
	rec := cur.Recordings[index]

	title := cur.Title
	if title == "" {
		title = "recording"
	}
	fileName := rec.FileName(title)
	if _, err := w.Write(rec.Media); err != nil {
		return fileName, fmt.Errorf("unable to write recording '%s': %w", fileName, err)
	}
	s.store.Dispatch(ctx, state.MarkDownloaded{Index: index})
	return fileName, nil
}
