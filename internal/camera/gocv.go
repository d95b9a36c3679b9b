//go:build gocv

package camera

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"sync"

	"gocv.io/x/gocv"

	"github.com/andresmejia3/facegate/internal/log"
)

func init() {
	register(BackendGoCV, openGoCV)
}

// gocvSource reads frames through OpenCV's VideoCapture.
type gocvSource struct {
	*frameStore

	vc   *gocv.VideoCapture
	quit chan struct{}
	done chan struct{}

	errMu sync.Mutex
	err   error

	closeOnce sync.Once
}

func openGoCV(ctx context.Context, cfg Config) (Source, error) {
	// OpenCV takes a numeric index for local cameras and a path or URL otherwise
	var device interface{} = cfg.Device
	if idx, err := strconv.Atoi(cfg.Device); err == nil {
		device = idx
	}

	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if cfg.Width > 0 && cfg.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}
	if cfg.Framerate > 0 {
		vc.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))
	}

	s := &gocvSource{
		frameStore: newFrameStore(),
		vc:         vc,
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	go s.run()

	if err := s.waitFirst(ctx, cfg.StartTimeout, s.done, s.Err); err != nil {
		s.Close()
		return nil, err
	}
	log.Debug("camera opened", "backend", BackendGoCV, "device", cfg.Device)
	return s, nil
}

func (s *gocvSource) run() {
	defer close(s.done)
	defer s.end()

	mat := gocv.NewMat()
	defer mat.Close()

	for {
		select {
		case <-s.quit:
			return
		default:
		}

		if ok := s.vc.Read(&mat); !ok {
			s.setErr(fmt.Errorf("device closed"))
			return
		}
		if mat.Empty() {
			continue
		}

		buf, err := gocv.IMEncode(gocv.JPEGFileExt, mat)
		if err != nil {
			s.setErr(err)
			return
		}
		s.set(bytes.Clone(buf.GetBytes()))
		buf.Close()
	}
}

func (s *gocvSource) setErr(err error) {
	s.errMu.Lock()
	s.err = err
	s.errMu.Unlock()
}

// Err reports why the capture loop stopped, if it did.
func (s *gocvSource) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *gocvSource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.quit)
		<-s.done
		err = s.vc.Close()
	})
	return err
}
