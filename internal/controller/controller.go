// Package controller runs the capture-and-submit flow of a face login.
//
// The controller owns no I/O of its own: the camera, the trigger control, the
// username input, the feedback surface, the navigator and the HTTP submitter
// are all injected, so the same flow drives the terminal client and the tests.
package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/andresmejia3/facegate/internal/authclient"
	"github.com/andresmejia3/facegate/internal/capture"
	"github.com/andresmejia3/facegate/internal/log"
	"github.com/andresmejia3/facegate/internal/types"
)

// State is the submission state. Only Idle accepts a trigger.
type State int

const (
	Idle State = iota
	Submitting
	Redirected
)

func (s State) String() string {
	switch s {
	case Submitting:
		return "submitting"
	case Redirected:
		return "redirected"
	default:
		return "idle"
	}
}

var (
	// ErrInert is returned when the camera never became available.
	ErrInert = errors.New("camera not bound, capture is disabled")
	// ErrBusy is returned while a submission is in flight or after a redirect.
	ErrBusy = errors.New("a submission is already in progress")
	// ErrEmptyUsername is returned when the trimmed username is empty.
	ErrEmptyUsername = errors.New("username is empty")
)

// VideoSource is a bound camera stream.
type VideoSource interface {
	capture.FrameSource
	Close() error
}

// CameraOpener requests camera access; it runs once, from Start.
type CameraOpener func(ctx context.Context) (VideoSource, error)

// Trigger is the user control that starts a capture.
type Trigger interface {
	SetEnabled(enabled bool)
}

// UsernameInput supplies the raw username text.
type UsernameInput interface {
	Username() string
}

// Feedback is the single text surface for status and errors.
type Feedback interface {
	SetText(text string)
}

// Navigator moves the user to the post-login destination.
type Navigator interface {
	Navigate(path string) error
}

// Submitter performs the one HTTP round-trip.
type Submitter interface {
	Submit(ctx context.Context, req types.CaptureRequest) (types.ServerResponse, error)
}

// Recorder persists attempts. Optional.
type Recorder interface {
	RecordAttempt(ctx context.Context, a types.Attempt) error
}

// Messages are the fixed feedback texts. Server messages are shown verbatim instead.
type Messages struct {
	EnterUsername     string
	InProgress        string
	CameraUnavailable string
	CaptureFailed     string
	Failure           string
}

// DefaultMessages returns the English feedback texts.
func DefaultMessages() Messages {
	return Messages{
		EnterUsername:     "Enter your username.",
		InProgress:        "Verifying your face...",
		CameraUnavailable: "Camera unavailable. Allow camera access and restart.",
		CaptureFailed:     "Could not read a frame from the camera. Check the camera and try again.",
		Failure:           "Face login failed: no valid answer from the server. Try again.",
	}
}

// Config holds the destination and texts.
type Config struct {
	Destination string // path navigated to after success
	Endpoint    string // recorded with each attempt
	Messages    Messages
}

// Deps are the collaborators. Recorder may be nil.
type Deps struct {
	OpenCamera CameraOpener
	Trigger    Trigger
	Input      UsernameInput
	Feedback   Feedback
	Navigator  Navigator
	Submitter  Submitter
	Recorder   Recorder
}

// Controller runs one face-login interaction.
type Controller struct {
	deps Deps
	cfg  Config

	mu     sync.Mutex
	state  State
	source VideoSource
}

// New validates the collaborators and returns an idle controller.
func New(deps Deps, cfg Config) (*Controller, error) {
	switch {
	case deps.OpenCamera == nil:
		return nil, fmt.Errorf("controller: camera opener is required")
	case deps.Trigger == nil, deps.Input == nil, deps.Feedback == nil:
		return nil, fmt.Errorf("controller: trigger, input and feedback are required")
	case deps.Navigator == nil || deps.Submitter == nil:
		return nil, fmt.Errorf("controller: navigator and submitter are required")
	case cfg.Destination == "":
		return nil, fmt.Errorf("controller: destination is required")
	}
	return &Controller{deps: deps, cfg: cfg}, nil
}

// State returns the current submission state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start acquires the camera. On failure the feedback shows the camera message
// and the trigger stays disabled for the life of the controller.
func (c *Controller) Start(ctx context.Context) error {
	c.deps.Trigger.SetEnabled(false)

	src, err := c.deps.OpenCamera(ctx)
	if err != nil {
		c.deps.Feedback.SetText(c.cfg.Messages.CameraUnavailable)
		return fmt.Errorf("failed to open camera: %w", err)
	}

	c.mu.Lock()
	c.source = src
	c.mu.Unlock()

	c.deps.Trigger.SetEnabled(true)
	return nil
}

// Trigger runs one capture-and-submit pass.
func (c *Controller) Trigger(ctx context.Context) error {
	c.mu.Lock()
	if c.source == nil {
		c.mu.Unlock()
		return ErrInert
	}
	if c.state != Idle {
		c.mu.Unlock()
		return ErrBusy
	}

	username := strings.TrimSpace(c.deps.Input.Username())
	if username == "" {
		c.mu.Unlock()
		c.deps.Feedback.SetText(c.cfg.Messages.EnterUsername)
		return ErrEmptyUsername
	}

	image, err := capture.Capture(c.source)
	if err != nil {
		c.mu.Unlock()
		c.deps.Feedback.SetText(c.cfg.Messages.CaptureFailed)
		return fmt.Errorf("capture failed: %w", err)
	}

	c.state = Submitting
	c.mu.Unlock()

	c.deps.Trigger.SetEnabled(false)
	c.deps.Feedback.SetText(c.cfg.Messages.InProgress)

	resp, err := c.deps.Submitter.Submit(ctx, types.CaptureRequest{Image: image, Username: username})

	attempt := types.Attempt{
		ID:        uuid.NewString(),
		Username:  username,
		Endpoint:  c.cfg.Endpoint,
		CreatedAt: time.Now(),
	}

	if err != nil {
		attempt.Kind = types.AttemptNetwork
		if errors.Is(err, authclient.ErrParse) {
			attempt.Kind = types.AttemptParse
		}
		attempt.Message = err.Error()

		c.deps.Feedback.SetText(c.cfg.Messages.Failure)
		c.record(ctx, attempt)
		c.release()
		return fmt.Errorf("face login failed: %w", err)
	}

	attempt.Success = resp.Success
	attempt.Message = resp.Message
	log.Info("face login answered", "username", username, "success", resp.Success)
	c.deps.Feedback.SetText(resp.Message)

	if !resp.Success {
		attempt.Kind = types.AttemptRejected
		c.record(ctx, attempt)
		c.release()
		return nil
	}

	attempt.Kind = types.AttemptOK
	c.mu.Lock()
	c.state = Redirected
	c.mu.Unlock()
	c.record(ctx, attempt)

	if err := c.deps.Navigator.Navigate(c.cfg.Destination); err != nil {
		// Authentication already succeeded; the destination was still announced.
		log.Warn("navigation failed", "destination", c.cfg.Destination, "err", err)
	}
	return nil
}

// release returns to Idle and re-enables the trigger.
func (c *Controller) release() {
	c.mu.Lock()
	c.state = Idle
	c.mu.Unlock()
	c.deps.Trigger.SetEnabled(true)
}

// record runs before release so a recorder never sees two attempts at once.
func (c *Controller) record(ctx context.Context, a types.Attempt) {
	if c.deps.Recorder == nil {
		return
	}
	if err := c.deps.Recorder.RecordAttempt(ctx, a); err != nil {
		log.Warn("failed to record login attempt", "username", a.Username, "err", err)
	}
}

// Close releases the camera.
func (c *Controller) Close() error {
	c.mu.Lock()
	src := c.source
	c.source = nil
	c.mu.Unlock()

	if src == nil {
		return nil
	}
	return src.Close()
}
