package prefs

import (
	"context"

	"github.com/xaionaro-go/xsync"
)

type Memory struct {
	locker xsync.Mutex
	values map[Key]string
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		values: map[Key]string{},
	}
}

func (m *Memory) Get(ctx context.Context, key Key) (string, bool) {
	return xsync.DoR2(ctx, &m.locker, func() (string, bool) {
		v, ok := m.values[key]
		return v, ok
	})
}

func (m *Memory) Set(ctx context.Context, key Key, value string) error {
	m.locker.Do(ctx, func() {
		m.values[key] = value
	})
	return nil
}
