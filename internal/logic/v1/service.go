package v1

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"github.com/duynhne/smartbrain-service/internal/core/domain"
	"github.com/duynhne/smartbrain-service/middleware"
)

// DefaultStoreTimeout bounds each Postgres or Redis call when no timeout is configured.
const DefaultStoreTimeout = 3 * time.Second

// Options tunes AuthService. Zero values select defaults.
type Options struct {
	BcryptCost   int
	StoreTimeout time.Duration
}

// AuthService implements registration, sign-in, session resolution and sign-out.
// It depends on repository interfaces (injected via constructor) and
// MUST NOT access the database or SQL directly.
type AuthService struct {
	users        domain.UserRepository
	sessions     domain.SessionRepository
	tokens       *TokenIssuer
	bcryptCost   int
	storeTimeout time.Duration
	dummyHash    []byte
	now          func() time.Time
}

// NewAuthService creates a new AuthService with the given dependencies.
// It fails when the bcrypt cost is outside bcrypt's accepted range.
func NewAuthService(users domain.UserRepository, sessions domain.SessionRepository, tokens *TokenIssuer, opts Options) (*AuthService, error) {
	cost := opts.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	timeout := opts.StoreTimeout
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}

	// Compared against on unknown emails so both rejection paths cost one bcrypt verification.
	dummy, err := bcrypt.GenerateFromPassword([]byte("smartbrain-dummy-password"), cost)
	if err != nil {
		return nil, fmt.Errorf("new auth service: bcrypt cost %d: %w: %w", cost, ErrConfiguration, err)
	}

	return &AuthService{
		users:        users,
		sessions:     sessions,
		tokens:       tokens,
		bcryptCost:   cost,
		storeTimeout: timeout,
		dummyHash:    dummy,
		now:          time.Now,
	}, nil
}

func (s *AuthService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.storeTimeout)
}

// Register creates the credential and user rows atomically and opens a session
// for the new user.
func (s *AuthService) Register(ctx context.Context, req domain.RegisterRequest) (*domain.AuthResponse, error) {
	ctx, span := middleware.StartSpan(ctx, "auth.register", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	email := strings.TrimSpace(req.Email)
	name := strings.TrimSpace(req.Name)
	if email == "" || name == "" || req.Password == "" {
		return nil, fmt.Errorf("register: email, name and password are required: %w", ErrBadRequest)
	}

	// Fast path only; the unique constraint on login.email is the real guard.
	exists, err := s.emailExists(ctx, email)
	if err != nil {
		span.RecordError(err)
		return nil, infraError("check existing email", ErrInternal, err)
	}
	if exists {
		span.SetAttributes(attribute.Bool("registration.success", false))
		middleware.RecordAuthEvent("register", "duplicate_email")
		return nil, fmt.Errorf("register %q: %w", email, ErrDuplicateEmail)
	}

	// Hash password
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, fmt.Errorf("register: password too long: %w", ErrBadRequest)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("hash password: %w: %w", ErrInternal, err)
	}

	// Insert login + users rows atomically (Core layer)
	user, err := s.createUser(ctx, domain.NewUser{
		Email:  email,
		Name:   name,
		Hash:   string(hash),
		Joined: s.now().UTC(),
	})
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, domain.ErrUniqueViolation) {
			middleware.RecordAuthEvent("register", "duplicate_email")
			return nil, fmt.Errorf("register %q: %w", email, ErrDuplicateEmail)
		}
		middleware.RecordAuthEvent("register", "error")
		return nil, infraError("create user", ErrInternal, err)
	}

	resp, err := s.createSession(ctx, user)
	if err != nil {
		span.RecordError(err)
		middleware.RecordAuthEvent("register", "session_error")
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("user.id", user.ID),
		attribute.Bool("registration.success", true),
	)
	span.AddEvent("user.registered")
	middleware.RecordAuthEvent("register", "ok")

	return resp, nil
}

// Signin verifies email and password and opens a new session.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *AuthService) Signin(ctx context.Context, req domain.SigninRequest) (*domain.AuthResponse, error) {
	ctx, span := middleware.StartSpan(ctx, "auth.signin", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		return nil, fmt.Errorf("signin: email and password are required: %w", ErrBadRequest)
	}

	// Load the credential row (Core layer)
	cred, err := s.getCredential(ctx, email)
	if err != nil {
		span.RecordError(err)
		return nil, infraError("query credential", ErrInternal, err)
	}
	if cred == nil {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(req.Password))
		span.SetAttributes(attribute.Bool("auth.success", false))
		span.AddEvent("authentication.failed")
		middleware.RecordAuthEvent("signin", "invalid_credentials")
		return nil, fmt.Errorf("authenticate %q: no credential: %w", email, ErrInvalidCredentials)
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(cred.Hash), []byte(req.Password)); err != nil {
		span.SetAttributes(attribute.Bool("auth.success", false))
		span.AddEvent("authentication.failed")
		middleware.RecordAuthEvent("signin", "invalid_credentials")
		return nil, fmt.Errorf("authenticate %q: %w", email, ErrInvalidCredentials)
	}

	user, err := s.getUserByEmail(ctx, email)
	if err != nil {
		span.RecordError(err)
		return nil, infraError("query user", ErrInternal, err)
	}
	if user == nil {
		middleware.RecordAuthEvent("signin", "user_not_found")
		return nil, fmt.Errorf("load user %q: %w", email, ErrUserNotFound)
	}

	resp, err := s.createSession(ctx, user)
	if err != nil {
		span.RecordError(err)
		middleware.RecordAuthEvent("signin", "session_error")
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("user.id", user.ID),
		attribute.Bool("auth.success", true),
	)
	span.AddEvent("user.authenticated")
	middleware.RecordAuthEvent("signin", "ok")

	return resp, nil
}

// ResolveSession returns the user id bound to token. It backs both the
// session gate and the "who am I" mode of POST /signin.
func (s *AuthService) ResolveSession(ctx context.Context, token string) (string, error) {
	ctx, span := middleware.StartSpan(ctx, "auth.resolve_session", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	if token == "" {
		span.SetAttributes(attribute.Bool("auth.present", false))
		return "", fmt.Errorf("resolve session: missing token: %w", ErrUnauthorized)
	}

	lookupCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	userID, err := s.sessions.GetUserID(lookupCtx, token)
	if err != nil {
		span.RecordError(err)
		middleware.RecordAuthEvent("gate", "store_error")
		return "", infraError("lookup session", ErrServiceUnavailable, err)
	}
	if userID == "" {
		span.SetAttributes(attribute.Bool("session.valid", false))
		middleware.RecordAuthEvent("gate", "unauthorized")
		return "", fmt.Errorf("lookup session: %w", ErrUnauthorized)
	}

	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.Bool("session.valid", true),
	)
	return userID, nil
}

// Signout deletes the session for token. Only the presented token is revoked;
// other sessions of the same user stay valid.
func (s *AuthService) Signout(ctx context.Context, token string) error {
	ctx, span := middleware.StartSpan(ctx, "auth.signout", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	if token == "" {
		return fmt.Errorf("signout: no token provided: %w", ErrBadRequest)
	}

	delCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	n, err := s.sessions.Delete(delCtx, token)
	if err != nil {
		span.RecordError(err)
		middleware.RecordAuthEvent("signout", "store_error")
		return infraError("delete session", ErrSessionStore, err)
	}
	if n == 0 {
		middleware.RecordAuthEvent("signout", "token_not_found")
		return fmt.Errorf("signout: %w", ErrTokenNotFound)
	}

	middleware.RecordAuthEvent("signout", "ok")
	return nil
}

// createSession issues a token for user and stores token -> user id. If the
// store write fails the whole sign-in or registration is reported as failed.
func (s *AuthService) createSession(ctx context.Context, user *domain.User) (*domain.AuthResponse, error) {
	token, err := s.tokens.Issue(user.Email)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	setCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.sessions.Create(setCtx, token, strconv.Itoa(user.ID)); err != nil {
		return nil, infraError("store session", ErrSessionStore, err)
	}

	return &domain.AuthResponse{
		Success: true,
		UserID:  user.ID,
		Token:   token,
	}, nil
}

func (s *AuthService) emailExists(ctx context.Context, email string) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.users.EmailExists(ctx, email)
}

func (s *AuthService) createUser(ctx context.Context, u domain.NewUser) (*domain.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.users.CreateWithCredential(ctx, u)
}

func (s *AuthService) getCredential(ctx context.Context, email string) (*domain.CredentialRow, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.users.GetCredential(ctx, email)
}

func (s *AuthService) getUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.users.GetByEmail(ctx, email)
}
