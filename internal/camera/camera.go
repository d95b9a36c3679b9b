// Package camera acquires a live video source and keeps its most recent frame.
//
// Open is the only entry point: it starts a backend, waits for the first frame
// (the moment the host actually granted access), and returns a Source that can
// be sampled at any time afterwards.
package camera

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/andresmejia3/facegate/internal/types"
)

// Backend names.
const (
	BackendFFmpeg = "ffmpeg"
	BackendGoCV   = "gocv"
)

// ErrUnavailable is returned when access was denied or no device answered.
var ErrUnavailable = errors.New("camera unavailable")

// Source is a live camera bound to the process.
type Source interface {
	// Latest returns the most recent frame. It reports false before the first
	// frame and again once the stream has stopped.
	Latest() (types.Frame, bool)
	Close() error
}

type opener func(ctx context.Context, cfg Config) (Source, error)

var (
	backendsMu sync.RWMutex
	backends   = map[string]opener{
		BackendFFmpeg: openFFmpeg,
	}
)

// register makes an optional backend available (see gocv.go).
func register(name string, fn opener) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[name] = fn
}

// HasBackend reports whether the named backend is compiled in.
func HasBackend(name string) bool {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	_, ok := backends[name]
	return ok
}

func backendList() string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for n := range backends {
		names = append(names, n)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// Open requests video-only access to the configured device.
// It returns once the first frame has arrived, or an error wrapping ErrUnavailable.
func Open(ctx context.Context, cfg Config) (Source, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid camera config: %s", strings.Join(errs, "; "))
	}

	backendsMu.RLock()
	fn := backends[cfg.Backend]
	backendsMu.RUnlock()

	return fn(ctx, cfg)
}

// frameStore holds the latest frame and signals when the first one lands.
type frameStore struct {
	mu     sync.RWMutex
	latest types.Frame
	have   bool
	ended  bool

	ready     chan struct{}
	readyOnce sync.Once
}

func newFrameStore() *frameStore {
	return &frameStore{ready: make(chan struct{})}
}

func (s *frameStore) set(data []byte) {
	s.mu.Lock()
	s.latest = types.Frame{Data: data, Timestamp: time.Now()}
	s.have = true
	s.mu.Unlock()
	s.readyOnce.Do(func() { close(s.ready) })
}

func (s *frameStore) Latest() (types.Frame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ended {
		return types.Frame{}, false
	}
	return s.latest, s.have
}

// end marks the stream as stopped; the last frame is no longer served.
func (s *frameStore) end() {
	s.mu.Lock()
	s.ended = true
	s.mu.Unlock()
}

// waitFirst blocks until the first frame, the producer stopping, the timeout, or ctx.
// done must be closed by the producer when it exits; errFn reports why.
func (s *frameStore) waitFirst(ctx context.Context, timeout time.Duration, done <-chan struct{}, errFn func() error) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-s.ready:
		return nil
	case <-done:
		// A producer can deliver a frame and exit in the same instant.
		select {
		case <-s.ready:
			return nil
		default:
		}
		if err := errFn(); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return fmt.Errorf("%w: stream ended before the first frame", ErrUnavailable)
	case <-timer.C:
		return fmt.Errorf("%w: no frame within %s", ErrUnavailable, timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}
