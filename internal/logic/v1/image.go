package v1

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/duynhne/smartbrain-service/internal/core/domain"
	"github.com/duynhne/smartbrain-service/middleware"
)

// ImageService proxies face-detection requests to the vendor.
type ImageService struct {
	detector domain.FaceDetector
}

// NewImageService creates an ImageService backed by detector.
func NewImageService(detector domain.FaceDetector) *ImageService {
	return &ImageService{detector: detector}
}

// Detect runs face detection on the image URL in req and returns the vendor JSON.
func (s *ImageService) Detect(ctx context.Context, req domain.ImageURLRequest) (json.RawMessage, error) {
	ctx, span := middleware.StartSpan(ctx, "image.detect", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	imageURL := strings.TrimSpace(req.Input)
	if imageURL == "" {
		return nil, fmt.Errorf("detect faces: %w", ErrEmptyImageURL)
	}

	// Call the vendor (Core layer)
	out, err := s.detector.DetectFaces(ctx, imageURL)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, domain.ErrDetectorNotConfigured) {
			return nil, fmt.Errorf("detect faces: %w: %w", ErrConfiguration, err)
		}
		return nil, infraError("detect faces", ErrVendor, err)
	}
	return out, nil
}
