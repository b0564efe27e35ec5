package ocr

import (
	"context"
	"sync"
)

// Shared initializes an engine once and hands the same engine to every
// worker. Calls into an engine that is not safe for concurrent use are
// serialized.
type Shared struct {
	newEngine func() (Engine, error)

	once   sync.Once
	engine Engine
	err    error

	mu sync.Mutex
}

// NewShared returns a Shared that builds its engine with newEngine on first
// use.
func NewShared(newEngine func() (Engine, error)) *Shared {
	return &Shared{newEngine: newEngine}
}

// SharedEngine wraps an engine that is already constructed.
func SharedEngine(e Engine) *Shared {
	return NewShared(func() (Engine, error) { return e, nil })
}

// Init builds the engine. Only the first call does any work; later calls
// return the first call's error.
func (s *Shared) Init() error {
	s.once.Do(func() {
		s.engine, s.err = s.newEngine()
	})
	return s.err
}

// Name returns the wrapped engine's name, or "uninitialized".
func (s *Shared) Name() string {
	if s.Init() != nil || s.engine == nil {
		return "uninitialized"
	}
	return s.engine.Name()
}

// Neural reports whether the wrapped engine skips preprocessing.
func (s *Shared) Neural() bool {
	return s.Init() == nil && s.engine != nil && IsNeural(s.engine)
}

// ConcurrencySafe is always true: Shared does the locking.
func (s *Shared) ConcurrencySafe() bool { return true }

// Recognize initializes the engine if needed and runs it.
func (s *Shared) Recognize(ctx context.Context, in Input) (Result, error) {
	if err := s.Init(); err != nil {
		return Result{}, err
	}
	if IsConcurrencySafe(s.engine) {
		return s.engine.Recognize(ctx, in)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	return s.engine.Recognize(ctx, in)
}

// Close closes the wrapped engine if it was initialized.
func (s *Shared) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine == nil {
		return nil
	}
	return Close(s.engine)
}
