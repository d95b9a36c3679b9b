package utils

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
)

// --- 1. Process Safety & Command Wrapping ---

// SafeCommand wraps a standard exec.Cmd with a buffer to catch Stderr (ffmpeg logs)
// This ensures we don't lose the reason a camera process refused to start.
type SafeCommand struct {
	*exec.Cmd
	Stderr *lockedBuffer
}

// lockedBuffer is a bytes.Buffer safe for the exec copier goroutine and a reader.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// NewSafeCommand initializes a command and attaches a buffer to its Stderr pipe
// It prepares the command for execution but does not start it.
func NewSafeCommand(name string, args ...string) *SafeCommand {
	cmd := exec.Command(name, args...)
	stderr := &lockedBuffer{}
	cmd.Stderr = stderr
	return &SafeCommand{Cmd: cmd, Stderr: stderr}
}

// ShowError prints a formatted error box and dumps process logs if a SafeCommand is provided.
func ShowError(context string, err error, s *SafeCommand) {
	fmt.Fprintf(os.Stderr, "\n---------------------------------------------------------\n")
	fmt.Fprintf(os.Stderr, "🚨 FACEGATE ERROR: %s\n", context)
	if err != nil {
		fmt.Fprintf(os.Stderr, "DETAILS: %v\n", err)
	}

	// If we have a SafeCommand and it captured logs, print them.
	if s != nil && s.Stderr.Len() > 0 {
		fmt.Fprintf(os.Stderr, "\nPROCESS LOGS:\n%s\n", s.Stderr.String())
	}
	fmt.Fprintf(os.Stderr, "---------------------------------------------------------\n")
}

// Die is the unified exit strategy for facegate.
func Die(context string, err error, s *SafeCommand) {
	ShowError(context, err, s)
	os.Exit(1)
}

// --- 2. Camera Engine ---

var (
	JpegSOI = []byte{0xFF, 0xD8} // Start of Image
	JpegEOI = []byte{0xFF, 0xD9} // End of Image
)

// SplitJpeg is the custom splitter for bufio.Scanner
// It locates the Start Of Image (FFD8) and End Of Image (FFD9) markers to extract full JPEG frames.
func SplitJpeg(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	start := bytes.Index(data, JpegSOI)
	if start == -1 {
		return 0, nil, nil
	}
	end := bytes.Index(data[start:], JpegEOI)
	if end == -1 {
		return 0, nil, nil
	}
	return start + end + 2, data[start : start+end+2], nil
}

// InputFormat returns the ffmpeg demuxer used to read a local camera on this OS.
func InputFormat(goos string) string {
	switch goos {
	case "darwin":
		return "avfoundation"
	case "windows":
		return "dshow"
	default:
		return "v4l2"
	}
}

// DefaultDevice returns the usual first camera for the given OS.
func DefaultDevice(goos string) string {
	switch goos {
	case "darwin":
		return "0"
	case "windows":
		return "video=Integrated Camera"
	default:
		return "/dev/video0"
	}
}

// CameraArgs builds the ffmpeg arguments that turn a live camera into an MJPEG pipe on stdout.
// Zero width/height/framerate leave the device defaults in place.
func CameraArgs(goos, device string, width, height, framerate int) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-f", InputFormat(goos)}
	if framerate > 0 {
		args = append(args, "-framerate", strconv.Itoa(framerate))
	}
	if width > 0 && height > 0 {
		args = append(args, "-video_size", fmt.Sprintf("%dx%d", width, height))
	}
	// Video only: -an drops any audio track the device exposes
	args = append(args, "-i", device, "-an", "-f", "image2pipe", "-vcodec", "mjpeg", "-q:v", "3", "-")
	return args
}

// NewCameraCmd creates the ffmpeg capture process for the current OS.
func NewCameraCmd(device string, width, height, framerate int) *SafeCommand {
	return NewSafeCommand("ffmpeg", CameraArgs(runtime.GOOS, device, width, height, framerate)...)
}

// OpenURLArgs returns the command that hands a URL to the system browser.
func OpenURLArgs(goos, url string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{url}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}
	default:
		return "xdg-open", []string{url}
	}
}
