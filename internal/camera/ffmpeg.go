package camera

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/andresmejia3/facegate/internal/log"
	"github.com/andresmejia3/facegate/internal/utils"
)

const megabyte = 1024 * 1024

// StartError is returned by the ffmpeg backend when the camera never produced a frame.
// Cmd carries the captured ffmpeg stderr for the error report.
type StartError struct {
	Err error
	Cmd *utils.SafeCommand
}

func (e *StartError) Error() string { return e.Err.Error() }
func (e *StartError) Unwrap() error { return e.Err }

// streamSource splits an MJPEG byte stream and keeps only the newest frame.
type streamSource struct {
	*frameStore

	done chan struct{}

	errMu sync.Mutex
	err   error

	stop      func() error // interrupts the producer
	reap      func() error // releases it once reading stopped
	closeOnce sync.Once
}

func newStreamSource(r io.Reader, stop, reap func() error) *streamSource {
	s := &streamSource{
		frameStore: newFrameStore(),
		done:       make(chan struct{}),
		stop:       stop,
		reap:       reap,
	}
	go s.run(r)
	return s
}

func (s *streamSource) run(r io.Reader) {
	defer close(s.done)
	defer s.end()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, megabyte), 64*megabyte)
	scanner.Split(utils.SplitJpeg)

	for scanner.Scan() {
		// scanner.Bytes() is reused on the next Scan
		s.set(bytes.Clone(scanner.Bytes()))
	}

	s.errMu.Lock()
	s.err = scanner.Err()
	s.errMu.Unlock()
}

// Err reports why the stream stopped, if it did.
func (s *streamSource) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Close stops the producer and waits for the reader goroutine to drain.
func (s *streamSource) Close() error {
	s.closeOnce.Do(func() {
		if s.stop != nil {
			if err := s.stop(); err != nil && !errors.Is(err, os.ErrProcessDone) {
				log.Debug("camera stop failed", "err", err)
			}
		}
		<-s.done
		if s.reap != nil {
			// Wait reports "signal: killed" after a stop; that is the expected outcome.
			_ = s.reap()
		}
	})
	return nil
}

func openFFmpeg(ctx context.Context, cfg Config) (Source, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("%w: ffmpeg not found in PATH", ErrUnavailable)
	}

	cmd := utils.NewCameraCmd(cfg.Device, cfg.Width, cfg.Height, cfg.Framerate)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, &StartError{Err: fmt.Errorf("%w: failed to start ffmpeg: %v", ErrUnavailable, err), Cmd: cmd}
	}
	log.Debug("camera process started", "device", cfg.Device, "pid", cmd.Process.Pid)

	src := newStreamSource(stdout,
		func() error { return cmd.Process.Kill() },
		cmd.Wait,
	)

	if err := src.waitFirst(ctx, cfg.StartTimeout, src.done, src.Err); err != nil {
		src.Close()
		return nil, &StartError{Err: err, Cmd: cmd}
	}
	return src, nil
}
