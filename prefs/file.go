package prefs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/goccy/go-yaml"
	"github.com/xaionaro-go/xsync"
)

// File is a Store backed by a YAML file. The file is rewritten on every
// change.
type File struct {
	locker   xsync.Mutex
	FilePath string
	values   map[Key]string
	isLoaded bool
}

var _ Store = (*File)(nil)

func NewFile(filePath string) *File {
	return &File{
		FilePath: filePath,
	}
}

func (f *File) Load(ctx context.Context) error {
	return xsync.DoA1R1(ctx, &f.locker, f.loadLocked, ctx)
}

func (f *File) loadLocked(ctx context.Context) (_err error) {
	logger.Tracef(ctx, "loadLocked(ctx)")
	defer func() { logger.Tracef(ctx, "/loadLocked(ctx): %v", _err) }()

	f.values = map[Key]string{}
	f.isLoaded = true

	b, err := os.ReadFile(f.FilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("unable to read file '%s': %w", f.FilePath, err)
	}

	values := map[Key]string{}
	if err := yaml.Unmarshal(b, &values); err != nil {
		return fmt.Errorf("unable to parse file '%s': %w", f.FilePath, err)
	}
	f.values = values
	logger.Debugf(ctx, "loaded %d preferences from '%s'", len(values), f.FilePath)
	return nil
}

func (f *File) Get(ctx context.Context, key Key) (string, bool) {
	return xsync.DoA2R2(ctx, &f.locker, f.getLocked, ctx, key)
}

func (f *File) getLocked(ctx context.Context, key Key) (string, bool) {
	if !f.isLoaded {
		if err := f.loadLocked(ctx); err != nil {
			logger.Errorf(ctx, "unable to load the preferences: %v", err)
		}
	}
	v, ok := f.values[key]
	return v, ok
}

func (f *File) Set(ctx context.Context, key Key, value string) error {
	return xsync.DoA3R1(ctx, &f.locker, f.setLocked, ctx, key, value)
}

func (f *File) setLocked(ctx context.Context, key Key, value string) error {
	if !f.isLoaded {
		if err := f.loadLocked(ctx); err != nil {
			logger.Errorf(ctx, "unable to load the preferences, overwriting them: %v", err)
		}
	}
	if old, ok := f.values[key]; ok && old == value {
		return nil
	}
	f.values[key] = value
	return f.storeLocked(ctx)
}

func (f *File) storeLocked(ctx context.Context) (_err error) {
	logger.Tracef(ctx, "storeLocked(ctx)")
	defer func() { logger.Tracef(ctx, "/storeLocked(ctx): %v", _err) }()

	b, err := yaml.Marshal(f.values)
	if err != nil {
		return fmt.Errorf("unable to serialize the preferences: %w", err)
	}

	if dir := filepath.Dir(f.FilePath); dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("unable to create directory '%s': %w", dir, err)
		}
	}

	newFilePath := f.FilePath + ".new"
	if err := os.WriteFile(newFilePath, b, 0640); err != nil {
		return fmt.Errorf("unable to write file '%s': %w", newFilePath, err)
	}
	if err := os.Rename(newFilePath, f.FilePath); err != nil {
		return fmt.Errorf("unable to move '%s' to '%s': %w", newFilePath, f.FilePath, err)
	}
	return nil
}
