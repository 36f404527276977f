package v1

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/duynhne/smartbrain-service/internal/core/domain"
	logicv1 "github.com/duynhne/smartbrain-service/internal/logic/v1"
	"github.com/duynhne/smartbrain-service/middleware"
	pkgzerolog "github.com/duynhne/smartbrain-service/pkg/logger/zerolog"
)

// Handler groups HTTP handlers for the Smart Brain API.
// Dependencies are injected via the constructor; there is no global state.
type Handler struct {
	auth     *logicv1.AuthService
	profiles *logicv1.ProfileService
	images   *logicv1.ImageService
}

// NewHandler creates a new Handler with the given services.
func NewHandler(auth *logicv1.AuthService, profiles *logicv1.ProfileService, images *logicv1.ImageService) *Handler {
	return &Handler{auth: auth, profiles: profiles, images: images}
}

// RegisterRoutes registers all API routes on the given router.
// /register, /signin and /signout are public; the rest sit behind the session gate.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.POST("/register", h.Register)
	r.POST("/signin", h.Signin)
	r.POST("/signout", h.Signout)

	protected := r.Group("", h.RequireSession())
	protected.GET("/profile/:id", h.GetProfile)
	protected.PUT("/profile/:id", h.UpdateProfile)
	protected.POST("/imageurl", h.ImageURL)
	protected.PUT("/image", h.Image)
}

func startRequest(c *gin.Context) (context.Context, trace.Span, *zerolog.Logger) {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.request", trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.FullPath()),
	))
	return ctx, span, pkgzerolog.FromContext(ctx)
}

func bindJSON(c *gin.Context, span trace.Span, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		span.SetAttributes(attribute.Bool("request.valid", false))
		span.RecordError(err)
		return fmt.Errorf("decode request body: %w: %w", logicv1.ErrBadRequest, err)
	}
	span.SetAttributes(attribute.Bool("request.valid", true))
	return nil
}

// Register handles POST /register.
func (h *Handler) Register(c *gin.Context) {
	ctx, span, logger := startRequest(c)
	defer span.End()

	var req domain.RegisterRequest
	if err := bindJSON(c, span, &req); err != nil {
		writeError(c, err)
		return
	}

	// Call business logic layer
	response, err := h.auth.Register(ctx, req)
	if err != nil {
		span.RecordError(err)
		writeError(c, err)
		return
	}

	logger.Info().Str("user_id", strconv.Itoa(response.UserID)).Msg("Registration successful")
	c.JSON(http.StatusOK, response)
}

// Signin handles POST /signin. With an Authorization header it resolves the
// existing session and returns {id}; without one it verifies credentials and
// opens a new session.
func (h *Handler) Signin(c *gin.Context) {
	if sessionToken(c) != "" {
		h.currentSession(c)
		return
	}
	h.signinWithCredentials(c)
}

func (h *Handler) currentSession(c *gin.Context) {
	ctx, span, _ := startRequest(c)
	defer span.End()

	userID, err := h.auth.ResolveSession(ctx, sessionToken(c))
	if err != nil {
		span.RecordError(err)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, domain.SessionResponse{ID: userID})
}

func (h *Handler) signinWithCredentials(c *gin.Context) {
	ctx, span, logger := startRequest(c)
	defer span.End()

	var req domain.SigninRequest
	if err := bindJSON(c, span, &req); err != nil {
		writeError(c, err)
		return
	}

	// Call business logic layer
	response, err := h.auth.Signin(ctx, req)
	if err != nil {
		span.RecordError(err)
		writeError(c, err)
		return
	}

	logger.Info().Str("user_id", strconv.Itoa(response.UserID)).Msg("Signin successful")
	c.JSON(http.StatusOK, response)
}

// Signout handles POST /signout, revoking only the presented token.
func (h *Handler) Signout(c *gin.Context) {
	ctx, span, logger := startRequest(c)
	defer span.End()

	if err := h.auth.Signout(ctx, sessionToken(c)); err != nil {
		span.RecordError(err)
		writeError(c, err)
		return
	}

	logger.Info().Msg("Signout successful")
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetProfile handles GET /profile/:id.
func (h *Handler) GetProfile(c *gin.Context) {
	ctx, span, _ := startRequest(c)
	defer span.End()

	user, err := h.profiles.Get(ctx, c.Param("id"))
	if err != nil {
		span.RecordError(err)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateProfile handles PUT /profile/:id.
func (h *Handler) UpdateProfile(c *gin.Context) {
	ctx, span, logger := startRequest(c)
	defer span.End()

	var req domain.ProfileUpdateRequest
	if err := bindJSON(c, span, &req); err != nil {
		writeError(c, err)
		return
	}

	// Call business logic layer
	user, err := h.profiles.Update(ctx, c.Param("id"), req)
	if err != nil {
		span.RecordError(err)
		writeError(c, err)
		return
	}

	logger.Info().Str("profile_id", strconv.Itoa(user.ID)).Msg("Profile updated")
	c.JSON(http.StatusOK, user)
}

// ImageURL handles POST /imageurl, proxying the face-detection call.
func (h *Handler) ImageURL(c *gin.Context) {
	ctx, span, _ := startRequest(c)
	defer span.End()

	var req domain.ImageURLRequest
	if err := bindJSON(c, span, &req); err != nil {
		writeError(c, err)
		return
	}

	out, err := h.images.Detect(ctx, req)
	if err != nil {
		span.RecordError(err)
		writeError(c, err)
		return
	}

	// Vendor JSON is passed through untouched

	c.Data(http.StatusOK, "application/json; charset=utf-8", out)
}

// Image handles PUT /image, incrementing the caller-supplied user's entry count.
func (h *Handler) Image(c *gin.Context) {
	ctx, span, _ := startRequest(c)
	defer span.End()

	var req domain.ImageRequest
	if err := bindJSON(c, span, &req); err != nil {
		writeError(c, err)
		return
	}

	resp, err := h.profiles.IncrementEntries(ctx, req)
	if err != nil {
		span.RecordError(err)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
