package authclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andresmejia3/facegate/internal/types"
)

func TestSubmitPostsJSON(t *testing.T) {
	var got types.CaptureRequest
	var gotPath, gotType, gotID, gotMethod string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		gotID = r.Header.Get("X-Request-ID")
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": true, "message": "OK"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "", time.Second)
	resp, err := c.Submit(context.Background(), types.CaptureRequest{Image: "data:image/png;base64,AAAA", Username: "alice"})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if !resp.Success || resp.Message != "OK" {
		t.Errorf("Unexpected response %+v", resp)
	}
	if gotMethod != http.MethodPost || gotPath != DefaultEndpoint {
		t.Errorf("Expected POST %s, got %s %s", DefaultEndpoint, gotMethod, gotPath)
	}
	if gotType != "application/json" {
		t.Errorf("Expected json content type, got %q", gotType)
	}
	if gotID == "" {
		t.Error("Expected X-Request-ID header")
	}
	if got.Username != "alice" || got.Image != "data:image/png;base64,AAAA" {
		t.Errorf("Unexpected body %+v", got)
	}
}

func TestSubmitAlternateEndpoint(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"success": false, "message": "No face match"}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/ignored/base", AlternateEndpoint, time.Second)
	resp, err := c.Submit(context.Background(), types.CaptureRequest{Username: "bob"})
	if err != nil {
		t.Fatal(err)
	}
	if gotPath != AlternateEndpoint {
		t.Errorf("Expected %s, got %s", AlternateEndpoint, gotPath)
	}
	if resp.Success || resp.Message != "No face match" {
		t.Errorf("Unexpected response %+v", resp)
	}
}

func TestSubmitErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{
			name: "Not JSON",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("<html>502</html>"))
			},
			want: ErrParse,
		},
		{
			name: "Error status without message",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusMethodNotAllowed)
				w.Write([]byte(`{"error": "POST only"}`))
			},
			want: ErrParse,
		},
		{
			name: "Empty object",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{}`))
			},
			want: ErrParse,
		},
		{
			name: "Success status with foreign body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"error": "x"}`))
			},
			want: ErrParse,
		},
		{
			name: "Slow server",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(time.Second):
				}
			},
			want: ErrNetwork,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := New(srv.URL, "", 50*time.Millisecond)
			_, err := c.Submit(context.Background(), types.CaptureRequest{Username: "x"})
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
			var authErr *Error
			if !errors.As(err, &authErr) {
				t.Errorf("Expected *Error, got %T", err)
			}
		})
	}
}

func TestSubmitErrorStatusWithMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success": false, "message": "Server error"}`))
	}))
	defer srv.Close()

	resp, err := New(srv.URL, "", time.Second).Submit(context.Background(), types.CaptureRequest{Username: "x"})
	if err != nil {
		t.Fatalf("Expected message to be surfaced, got error %v", err)
	}
	if resp.Message != "Server error" {
		t.Errorf("Unexpected message %q", resp.Message)
	}
}

func TestSubmitConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, "", time.Second).Submit(context.Background(), types.CaptureRequest{Username: "x"})
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("Expected ErrNetwork, got %v", err)
	}
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		base, path, want string
		wantErr          bool
	}{
		{"http://localhost:8000", "/auth/dashboard/", "http://localhost:8000/auth/dashboard/", false},
		{"https://example.com/app/", "/", "https://example.com/", false},
		{"localhost:8000", "/", "", true},
		{"", "/", "", true},
	}
	for _, tt := range tests {
		got, err := ResolveURL(tt.base, tt.path)
		if (err != nil) != tt.wantErr {
			t.Errorf("ResolveURL(%q, %q) error = %v", tt.base, tt.path, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ResolveURL(%q, %q) = %q, want %q", tt.base, tt.path, got, tt.want)
		}
	}
}
