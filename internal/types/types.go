package types

import "time"

// CaptureRequest is the JSON body posted to the face-login endpoint.
// It is only built once the username is known to be non-empty.
type CaptureRequest struct {
	Image    string `json:"image"`    // data:image/png;base64,...
	Username string `json:"username"` // trimmed
}

// ServerResponse is what the face-login endpoint answers with.
type ServerResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Frame is a single raw JPEG sample held by a camera source.
type Frame struct {
	Data      []byte
	Timestamp time.Time
}

// AttemptKind classifies how a submission ended.
type AttemptKind string

const (
	AttemptOK       AttemptKind = "ok"       // server said success
	AttemptRejected AttemptKind = "rejected" // server said no
	AttemptNetwork  AttemptKind = "network"
	AttemptParse    AttemptKind = "parse"
)

// Attempt is one recorded face-login submission.
type Attempt struct {
	ID        string
	Username  string
	Success   bool
	Kind      AttemptKind
	Message   string
	Endpoint  string
	CreatedAt time.Time
}
