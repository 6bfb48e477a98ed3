package memory

import (
	"context"
	"sync"
	"time"

	"smartmoney-bot/internal/domain"
	"smartmoney-bot/internal/storage"
)

// SignalArchive is an in-memory implementation of storage.SignalArchive.
type SignalArchive struct {
	mu      sync.RWMutex
	signals []domain.WhaleSignal
}

func NewSignalArchive() *SignalArchive {
	return &SignalArchive{}
}

var _ storage.SignalArchive = (*SignalArchive)(nil)

func (a *SignalArchive) Append(_ context.Context, signal domain.WhaleSignal) error {
	a.mu.Lock()
	a.signals = append(a.signals, signal)
	a.mu.Unlock()
	return nil
}

func (a *SignalArchive) CountSince(_ context.Context, since time.Time) (int, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	n := 0
	for _, s := range a.signals {
		if !s.DetectedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

// All returns a copy of every archived signal.
func (a *SignalArchive) All() []domain.WhaleSignal {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]domain.WhaleSignal(nil), a.signals...)
}
