package journal

import "context"

// Noop discards every entry.
type Noop struct{}

func (Noop) Record(context.Context, Entry) (int64, error) { return 0, nil }

func (Noop) Recent(context.Context, int) ([]Entry, error) { return nil, nil }

func (Noop) Close() error { return nil }
