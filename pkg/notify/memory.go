package notify

import (
	"context"
	"errors"
	"log/slog"
)

// Memory delivers changes to subscribers in the same process only.
type Memory struct {
	*hub
}

// NewMemory returns an in-process notifier dispatching on workers goroutines.
func NewMemory(workers int, log *slog.Logger) *Memory {
	return &Memory{hub: newHub(workers, log)}
}

func (m *Memory) Publish(ctx context.Context, c Change) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.Collection == "" {
		return errors.New("notify: change without collection")
	}
	if m.isClosed() {
		return ErrClosed
	}
	m.dispatch(stamp(c))
	return nil
}

func (m *Memory) Close() error {
	m.close()
	return nil
}
