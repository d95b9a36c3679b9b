package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/andresmejia3/facegate/internal/authclient"
	"github.com/andresmejia3/facegate/internal/camera"
	"github.com/andresmejia3/facegate/internal/controller"
	"github.com/andresmejia3/facegate/internal/log"
	"github.com/andresmejia3/facegate/internal/ui"
	"github.com/andresmejia3/facegate/internal/utils"
	"github.com/spf13/cobra"
)

const triggerHint = "Press Enter to capture (type a username first to change it, q to quit)"

var loginOpts Options

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to a face-login server with a webcam capture",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runLogin(cmd.Context(), loginOpts, os.Stdin)
	},
}

func init() {
	addCameraFlags(loginCmd, &loginOpts)
	loginCmd.Flags().StringVarP(&loginOpts.Server, "server", "s", envOr("FACEGATE_SERVER", "http://localhost:8000"), "Face-login server base URL (env FACEGATE_SERVER)")
	loginCmd.Flags().StringVar(&loginOpts.Endpoint, "endpoint", authclient.DefaultEndpoint, "Face-login endpoint path (older servers use "+authclient.AlternateEndpoint+")")
	loginCmd.Flags().StringVarP(&loginOpts.Redirect, "redirect", "r", "/auth/dashboard/", "Path to continue at after a successful login")
	loginCmd.Flags().StringVarP(&loginOpts.Username, "username", "u", "", "Username (can also be typed at the prompt)")
	loginCmd.Flags().StringVar(&loginOpts.RequestTimeout, "timeout", "30s", "Maximum time to wait for the server")
	loginCmd.Flags().BoolVar(&loginOpts.OpenBrowser, "open", false, "Open the destination in the system browser after login (the browser does not get this client's session cookie)")
	rootCmd.AddCommand(loginCmd)
}

// addCameraFlags registers the flags shared by every command that opens the camera.
func addCameraFlags(c *cobra.Command, opts *Options) {
	def := camera.DefaultConfig()
	c.Flags().StringVarP(&opts.Device, "device", "d", def.Device, "Camera device")
	c.Flags().StringVarP(&opts.Backend, "backend", "b", def.Backend, "Camera backend: ffmpeg, or gocv when built with -tags gocv")
	c.Flags().IntVar(&opts.Width, "width", 0, "Capture width (0 = device default)")
	c.Flags().IntVar(&opts.Height, "height", 0, "Capture height (0 = device default)")
	c.Flags().IntVar(&opts.Framerate, "framerate", 0, "Capture framerate (0 = device default)")
	c.Flags().StringVar(&opts.CameraTimeout, "camera-timeout", def.StartTimeout.String(), "Maximum time to wait for the first camera frame")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// cameraConfig builds the camera settings from validated options.
func cameraConfig(opts Options) camera.Config {
	cfg := camera.DefaultConfig()
	cfg.Device = opts.Device
	cfg.Backend = opts.Backend
	cfg.Width = opts.Width
	cfg.Height = opts.Height
	cfg.Framerate = opts.Framerate
	if d, err := time.ParseDuration(opts.CameraTimeout); err == nil {
		cfg.StartTimeout = d
	}
	return cfg
}

// validateCameraFlags checks the camera part of the options.
func validateCameraFlags(opts *Options) error {
	if _, err := time.ParseDuration(opts.CameraTimeout); err != nil {
		return fmt.Errorf("invalid camera-timeout format (use '10s', '500ms'): %w", err)
	}
	cfg := cameraConfig(*opts)
	if errs := cfg.Validate(); len(errs) > 0 {
		return fmt.Errorf("invalid camera settings: %s", strings.Join(errs, "; "))
	}
	return nil
}

// validateLoginFlags ensures all CLI arguments are valid before opening the camera.
func validateLoginFlags(opts *Options) error {
	if _, err := authclient.ResolveURL(opts.Server, "/"); err != nil {
		return err
	}
	if !strings.HasPrefix(opts.Endpoint, "/") {
		return fmt.Errorf("endpoint must be an absolute path, got %q", opts.Endpoint)
	}
	if !strings.HasPrefix(opts.Redirect, "/") {
		return fmt.Errorf("redirect must be an absolute path, got %q", opts.Redirect)
	}
	d, err := time.ParseDuration(opts.RequestTimeout)
	if err != nil {
		return fmt.Errorf("invalid timeout format (use '30s', '1m'): %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", d)
	}
	return validateCameraFlags(opts)
}

func runLogin(ctx context.Context, opts Options, in io.Reader) error {
	if err := validateLoginFlags(&opts); err != nil {
		utils.ShowError("Invalid arguments", err, nil)
		return err
	}
	timeout, _ := time.ParseDuration(opts.RequestTimeout)

	// Attempt history is optional for login
	if err := openStore(ctx, false); err != nil {
		utils.ShowError("Attempt history unavailable", err, nil)
		return err
	}

	messages := controller.DefaultMessages()
	feedback := ui.NewFeedback(os.Stderr, messages.InProgress)
	defer feedback.Close()

	field := ui.NewField(opts.Username)
	camCfg := cameraConfig(opts)

	deps := controller.Deps{
		OpenCamera: func(ctx context.Context) (controller.VideoSource, error) {
			src, err := camera.Open(ctx, camCfg)
			if err != nil {
				return nil, err
			}
			return src, nil
		},
		Trigger:   ui.NewTrigger(os.Stderr, triggerHint),
		Input:     field,
		Feedback:  feedback,
		Navigator: ui.NewNavigator(opts.Server, os.Stdout, opts.OpenBrowser),
		Submitter: authclient.New(opts.Server, opts.Endpoint, timeout),
	}
	if DB != nil {
		deps.Recorder = DB
		fmt.Fprintln(os.Stderr, "🗄️  Recording attempts to the history database")
	}

	ctrl, err := controller.New(deps, controller.Config{
		Destination: opts.Redirect,
		Endpoint:    opts.Endpoint,
		Messages:    messages,
	})
	if err != nil {
		return err
	}
	defer ctrl.Close()

	fmt.Fprintf(os.Stderr, "🎥 Opening camera %s (%s)...\n", camCfg.Device, camCfg.Backend)
	if err := ctrl.Start(ctx); err != nil {
		var startErr *camera.StartError
		var proc *utils.SafeCommand
		if errors.As(err, &startErr) {
			proc = startErr.Cmd
		}
		utils.ShowError("Camera unavailable", err, proc)
		return err
	}

	if strings.TrimSpace(opts.Username) == "" {
		fmt.Fprintln(os.Stderr, "👤 Type your username and press Enter.")
	}
	return triggerLoop(ctx, ctrl, field, in)
}

// triggerable is the part of the controller the input loop drives.
type triggerable interface {
	Trigger(ctx context.Context) error
	State() controller.State
}

// triggerLoop turns each input line into a trigger activation, like a click on the capture button.
// A non-empty line first replaces the username. It returns after a redirect, on "q", on EOF or on cancel.
func triggerLoop(ctx context.Context, ctrl triggerable, field *ui.Field, in io.Reader) error {
	stop := make(chan struct{})
	defer close(stop)
	lines := readLines(ctx, in, stop)

	redirected := make(chan struct{})
	var redirectOnce sync.Once
	var wg sync.WaitGroup
	// In-flight submissions finish before we return
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr, "\n👋 Interrupted.")
			return nil
		case <-redirected:
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if strings.TrimSpace(line) == "q" {
				return nil
			}
			if line != "" {
				field.Set(line)
			}

			wg.Add(1)
			go func() {
				defer wg.Done()
				err := ctrl.Trigger(ctx)
				switch {
				case err == nil:
					if ctrl.State() == controller.Redirected {
						redirectOnce.Do(func() { close(redirected) })
					}
				case errors.Is(err, controller.ErrBusy):
					fmt.Fprintln(os.Stderr, "⏳ Still verifying, please wait.")
				case errors.Is(err, controller.ErrEmptyUsername), errors.Is(err, controller.ErrInert):
					// already shown through the feedback line
				default:
					log.Debug("capture attempt failed", "err", err)
				}
			}()
		}
	}
}

// readLines forwards input lines until EOF, ctx is cancelled or stop is closed.
func readLines(ctx context.Context, in io.Reader, stop <-chan struct{}) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			default:
			}
			if !scanner.Scan() {
				return
			}
			select {
			case lines <- scanner.Text():
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}
