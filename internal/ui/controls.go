package ui

import (
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"

	"github.com/andresmejia3/facegate/internal/authclient"
	"github.com/andresmejia3/facegate/internal/utils"
)

// Trigger is the capture control. It prints its hint each time it becomes enabled.
type Trigger struct {
	w    io.Writer
	hint string

	mu      sync.Mutex
	enabled bool
}

func NewTrigger(w io.Writer, hint string) *Trigger {
	return &Trigger{w: w, hint: hint}
}

func (t *Trigger) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if enabled && !t.enabled && t.hint != "" {
		fmt.Fprintf(t.w, "📸 %s\n", t.hint)
	}
	t.enabled = enabled
}

func (t *Trigger) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

// Field is the username text field. The raw value is kept; trimming is the controller's job.
type Field struct {
	mu    sync.Mutex
	value string
}

func NewField(initial string) *Field {
	return &Field{value: initial}
}

func (f *Field) Set(v string) {
	f.mu.Lock()
	f.value = v
	f.mu.Unlock()
}

func (f *Field) Username() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

// SessionNote is printed before the browser opens. The session cookie set by the
// face login belongs to this client, not to the browser.
const SessionNote = "ℹ️  The browser does not share this login session and may ask you to sign in again."

// Navigator announces the destination URL and optionally opens it in the system browser.
type Navigator struct {
	BaseURL string
	Out     io.Writer
	Open    bool

	opener func(url string) error
}

func NewNavigator(baseURL string, out io.Writer, open bool) *Navigator {
	return &Navigator{BaseURL: baseURL, Out: out, Open: open, opener: openInBrowser}
}

func (n *Navigator) Navigate(path string) error {
	target, err := authclient.ResolveURL(n.BaseURL, path)
	if err != nil {
		return err
	}
	fmt.Fprintf(n.Out, "➡️  Continue at %s\n", target)
	if !n.Open || n.opener == nil {
		return nil
	}
	fmt.Fprintln(n.Out, SessionNote)
	return n.opener(target)
}

func openInBrowser(url string) error {
	name, args := utils.OpenURLArgs(runtime.GOOS, url)
	cmd := utils.NewSafeCommand(name, args...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s failed: %w: %s", name, err, strings.TrimSpace(cmd.Stderr.String()))
	}
	return nil
}
