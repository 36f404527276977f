package v1

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/duynhne/smartbrain-service/internal/core/domain"
	"github.com/duynhne/smartbrain-service/middleware"
)

// ProfileService reads and updates user profiles and the image entry counter.
type ProfileService struct {
	users        domain.UserRepository
	storeTimeout time.Duration
}

// NewProfileService creates a ProfileService. A non-positive timeout selects DefaultStoreTimeout.
func NewProfileService(users domain.UserRepository, storeTimeout time.Duration) *ProfileService {
	if storeTimeout <= 0 {
		storeTimeout = DefaultStoreTimeout
	}
	return &ProfileService{users: users, storeTimeout: storeTimeout}
}

func parseUserID(raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid user id %q: %w", raw, ErrBadRequest)
	}
	return id, nil
}

// Get returns the profile for the user id in its path form.
func (s *ProfileService) Get(ctx context.Context, rawID string) (*domain.User, error) {
	ctx, span := middleware.StartSpan(ctx, "profile.get", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("user.id", rawID),
	))
	defer span.End()

	id, err := parseUserID(rawID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, infraError("query profile", ErrInternal, err)
	}
	if user == nil {
		return nil, fmt.Errorf("profile %d: %w", id, ErrProfileNotFound)
	}
	return user, nil
}

// providedText returns nil for an absent or blank field so the stored value is kept.
func providedText(v *string) *string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil
	}
	return v
}

// providedAge parses the optional age. Blank means not provided.
func providedAge(raw domain.FlexibleID) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	age, err := strconv.Atoi(string(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid age %q: %w", string(raw), ErrBadRequest)
	}
	if age < 0 {
		return nil, fmt.Errorf("negative age: %w", ErrBadRequest)
	}
	return &age, nil
}

// Update applies the fields present in req. Fields absent from the request or
// sent blank keep their stored values; a request with nothing to apply is
// rejected without touching the store.
func (s *ProfileService) Update(ctx context.Context, rawID string, req domain.ProfileUpdateRequest) (*domain.User, error) {
	ctx, span := middleware.StartSpan(ctx, "profile.update", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("user.id", rawID),
	))
	defer span.End()

	id, err := parseUserID(rawID)
	if err != nil {
		return nil, err
	}

	age, err := providedAge(req.Age)
	if err != nil {
		return nil, fmt.Errorf("update profile %d: %w", id, err)
	}

	upd := domain.ProfileUpdate{
		Name:   providedText(req.Name),
		Age:    age,
		Pet:    providedText(req.Pet),
		Avatar: providedText(req.Avatar),
	}
	if upd.Empty() {
		span.SetAttributes(attribute.Bool("profile.changed", false))
		return nil, fmt.Errorf("update profile %d: %w", id, ErrNoProfileFields)
	}

	// Call repository layer
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	user, err := s.users.UpdateProfile(ctx, id, upd)
	if err != nil {
		span.RecordError(err)
		return nil, infraError("update profile", ErrInternal, err)
	}
	if user == nil {
		return nil, fmt.Errorf("update profile %d: %w", id, ErrProfileNotFound)
	}

	span.AddEvent("profile.updated")
	return user, nil
}

// IncrementEntries bumps the image entry counter for the user in req.
func (s *ProfileService) IncrementEntries(ctx context.Context, req domain.ImageRequest) (*domain.EntriesResponse, error) {
	ctx, span := middleware.StartSpan(ctx, "profile.increment_entries", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	id, ok := req.ID.Int()
	if !ok {
		return nil, fmt.Errorf("increment entries: user id is required: %w", ErrBadRequest)
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	entries, found, err := s.users.IncrementEntries(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, infraError("increment entries", ErrInternal, err)
	}
	if !found {
		return nil, fmt.Errorf("increment entries %d: %w", id, ErrProfileNotFound)
	}

	return &domain.EntriesResponse{Entries: entries}, nil
}
