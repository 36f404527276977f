package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	logicv1 "github.com/duynhne/smartbrain-service/internal/logic/v1"
	pkgzerolog "github.com/duynhne/smartbrain-service/pkg/logger/zerolog"
)

// ErrorBody is the single error envelope returned by every endpoint.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a stable machine-readable kind and a short message.
type ErrorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type errorMapping struct {
	target  error
	status  int
	kind    string
	message string
}

// Order matters: ErrTimeout is checked before the infrastructure kinds it may wrap alongside.
var errorMappings = []errorMapping{
	{logicv1.ErrTimeout, http.StatusGatewayTimeout, "timeout", "Upstream call timed out"},
	{logicv1.ErrBadRequest, http.StatusBadRequest, "bad_request", "Incorrect form submission"},
	{logicv1.ErrNoProfileFields, http.StatusBadRequest, "bad_request", "No data provided to update"},
	{logicv1.ErrEmptyImageURL, http.StatusBadRequest, "bad_request", "Image URL is empty"},
	{logicv1.ErrInvalidCredentials, http.StatusBadRequest, "invalid_credentials", "Wrong credentials"},
	// Same answer as a wrong password so the endpoint does not reveal which emails exist.
	{logicv1.ErrUserNotFound, http.StatusBadRequest, "invalid_credentials", "Wrong credentials"},
	{logicv1.ErrDuplicateEmail, http.StatusBadRequest, "duplicate_email", "Email already registered"},
	{logicv1.ErrTokenNotFound, http.StatusBadRequest, "token_not_found", "Token not found"},
	{logicv1.ErrUnauthorized, http.StatusUnauthorized, "unauthorized", "Unauthorized"},
	{logicv1.ErrProfileNotFound, http.StatusNotFound, "not_found", "User not found"},
	{logicv1.ErrVendor, http.StatusBadRequest, "vendor_error", "Unable to work with API"},
	{logicv1.ErrServiceUnavailable, http.StatusServiceUnavailable, "service_unavailable", "Service unavailable"},
	{logicv1.ErrSessionStore, http.StatusInternalServerError, "internal_error", "Unable to store session"},
	{logicv1.ErrConfiguration, http.StatusInternalServerError, "internal_error", "Internal server error"},
	{logicv1.ErrInternal, http.StatusInternalServerError, "internal_error", "Internal server error"},
}

func classify(err error) (int, ErrorDetail) {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return http.StatusRequestEntityTooLarge, ErrorDetail{Kind: "payload_too_large", Message: "Request body too large"}
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, ErrorDetail{Kind: m.kind, Message: m.message}
		}
	}
	return http.StatusInternalServerError, ErrorDetail{Kind: "internal_error", Message: "Internal server error"}
}

// writeError logs err with the request logger and aborts with the error envelope.
// Only the mapped message reaches the client.
func writeError(c *gin.Context, err error) {
	status, detail := classify(err)

	logger := pkgzerolog.FromContext(c.Request.Context())
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("kind", detail.Kind).Msg("Request failed")
	} else {
		logger.Warn().Err(err).Str("kind", detail.Kind).Msg("Request rejected")
	}

	c.AbortWithStatusJSON(status, ErrorBody{Error: detail})
}
