// Package capture turns the current camera frame into a PNG data URI.
package capture

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg" // camera frames arrive as MJPEG
	"image/png"
	"strings"

	"github.com/andresmejia3/facegate/internal/types"
)

// DataURIPrefix starts every encoded capture.
const DataURIPrefix = "data:image/png;base64,"

// ErrNoFrame means the source has not delivered a frame yet.
var ErrNoFrame = errors.New("no frame available")

// FrameSource is anything holding a latest frame (camera.Source satisfies it).
type FrameSource interface {
	Latest() (types.Frame, bool)
}

// Capture samples the current frame onto a surface of the frame's native size
// and serializes it as a PNG data URI.
func Capture(src FrameSource) (string, error) {
	frame, ok := src.Latest()
	if !ok {
		return "", ErrNoFrame
	}

	img, _, err := image.Decode(bytes.NewReader(frame.Data))
	if err != nil {
		return "", fmt.Errorf("failed to decode frame: %w", err)
	}

	b := img.Bounds()
	surface := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(surface, surface.Bounds(), img, b.Min, draw.Src)

	return EncodeDataURI(surface)
}

// EncodeDataURI encodes img as PNG and wraps it in a data URI.
func EncodeDataURI(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode png: %w", err)
	}

	var b strings.Builder
	b.Grow(len(DataURIPrefix) + base64.StdEncoding.EncodedLen(buf.Len()))
	b.WriteString(DataURIPrefix)
	b.WriteString(base64.StdEncoding.EncodeToString(buf.Bytes()))
	return b.String(), nil
}

// DecodeDataURI reverses EncodeDataURI.
func DecodeDataURI(uri string) (image.Image, error) {
	payload, ok := strings.CutPrefix(uri, DataURIPrefix)
	if !ok {
		return nil, fmt.Errorf("not a png data uri")
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 payload: %w", err)
	}
	return png.Decode(bytes.NewReader(raw))
}
