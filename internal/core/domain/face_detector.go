package domain

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrDetectorNotConfigured is returned by a FaceDetector that lacks the
// credentials it needs to call the vendor.
var ErrDetectorNotConfigured = errors.New("face detector not configured")

// FaceDetector runs face detection on a publicly reachable image URL and
// returns the vendor's JSON response untouched.
type FaceDetector interface {
	DetectFaces(ctx context.Context, imageURL string) (json.RawMessage, error)
}
