package v1

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/duynhne/smartbrain-service/internal/core/domain"
	logicv1 "github.com/duynhne/smartbrain-service/internal/logic/v1"
	"github.com/duynhne/smartbrain-service/internal/testutil"
	"github.com/duynhne/smartbrain-service/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type apiFixture struct {
	router   *gin.Engine
	handler  *Handler
	users    *testutil.UserStore
	redis    *miniredis.Miniredis
	detector *testutil.Detector
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	users := testutil.NewUserStore()
	sessions, mr := testutil.NewSessionStore(t)
	detector := &testutil.Detector{Response: json.RawMessage(`{"outputs":[{"data":{"regions":[]}}]}`)}

	auth, err := logicv1.NewAuthService(users, sessions, logicv1.NewTokenIssuer("secret", time.Hour), logicv1.Options{
		BcryptCost:   bcrypt.MinCost,
		StoreTimeout: time.Second,
	})
	require.NoError(t, err)
	h := NewHandler(auth, logicv1.NewProfileService(users, time.Second), logicv1.NewImageService(detector))

	r := gin.New()
	r.Use(middleware.LoggingMiddleware(), middleware.BodyLimitMiddleware(1<<20))
	h.RegisterRoutes(r)

	return &apiFixture{router: r, handler: h, users: users, redis: mr, detector: detector}
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(AuthorizationHeader, token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *apiFixture) register(t *testing.T, email, name, password string) domain.AuthResponse {
	t.Helper()
	w := f.do(t, http.MethodPost, "/register", "", map[string]string{"email": email, "name": name, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp domain.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorDetail {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body.Error
}

func TestScenario_RegisterSigninUpdateSignout(t *testing.T) {
	f := newAPIFixture(t)

	reg := f.register(t, "a@x.com", "Ann", "pw1")
	assert.True(t, reg.Success)
	require.NotEmpty(t, reg.Token)
	id := strconv.Itoa(reg.UserID)

	// Sign-in with a session header resolves the current session.
	w := f.do(t, http.MethodPost, "/signin", reg.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"`+id+`"}`, w.Body.String())

	w = f.do(t, http.MethodPut, "/profile/"+id, reg.Token, map[string]int{"age": 30})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var user domain.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	require.NotNil(t, user.Age)
	assert.Equal(t, 30, *user.Age)
	assert.Equal(t, "Ann", user.Name)

	w = f.do(t, http.MethodPost, "/signout", reg.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())

	w = f.do(t, http.MethodGet, "/profile/"+id, reg.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", decodeError(t, w).Kind)

	w = f.do(t, http.MethodPost, "/signout", reg.Token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "token_not_found", decodeError(t, w).Kind)
}

func TestSignin_Credentials(t *testing.T) {
	f := newAPIFixture(t)
	f.register(t, "a@x.com", "Ann", "pw1")
	keys := len(f.redis.Keys())

	w := f.do(t, http.MethodPost, "/signin", "", map[string]string{"email": "a@x.com", "password": "wrongpw"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_credentials", decodeError(t, w).Kind)
	assert.Len(t, f.redis.Keys(), keys)

	unknown := f.do(t, http.MethodPost, "/signin", "", map[string]string{"email": "nobody@x.com", "password": "pw1"})
	assert.Equal(t, w.Code, unknown.Code)
	assert.Equal(t, decodeError(t, w), decodeError(t, unknown))

	w = f.do(t, http.MethodPost, "/signin", "", map[string]string{"email": "a@x.com", "password": "pw1"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp domain.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	w = f.do(t, http.MethodGet, "/profile/"+strconv.Itoa(resp.UserID), resp.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/signin", "", map[string]string{"email": "a@x.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "bad_request", decodeError(t, w).Kind)
}

func TestSignin_UnknownSessionHeader(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/signin", "not-a-session", map[string]string{"email": "a@x.com", "password": "pw1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegister_Errors(t *testing.T) {
	f := newAPIFixture(t)
	f.register(t, "a@x.com", "Ann", "pw1")

	w := f.do(t, http.MethodPost, "/register", "", map[string]string{"email": "a@x.com", "name": "Ann", "password": "pw1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "duplicate_email", decodeError(t, w).Kind)

	w = f.do(t, http.MethodPost, "/register", "", map[string]string{"email": "b@x.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "bad_request", decodeError(t, w).Kind)

	w = f.do(t, http.MethodPost, "/register", "", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	f.users.FailUserInsert = errors.New("insert failed")
	w = f.do(t, http.MethodPost, "/register", "", map[string]string{"email": "c@x.com", "name": "C", "password": "pw"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	detail := decodeError(t, w)
	assert.Equal(t, "internal_error", detail.Kind)
	assert.NotContains(t, detail.Message, "insert failed")
}

func TestGate(t *testing.T) {
	f := newAPIFixture(t)
	reg := f.register(t, "a@x.com", "Ann", "pw1")

	w := f.do(t, http.MethodGet, "/profile/1", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodGet, "/profile/1", "forged-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	f.redis.Close()
	w = f.do(t, http.MethodGet, "/profile/1", reg.Token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "service_unavailable", decodeError(t, w).Kind)
}

func TestGate_SetsUserID(t *testing.T) {
	f := newAPIFixture(t)
	reg := f.register(t, "a@x.com", "Ann", "pw1")

	var seen string
	f.router.GET("/whoami", f.handler.RequireSession(), func(c *gin.Context) {
		seen, _ = UserIDFromContext(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	w := f.do(t, http.MethodGet, "/whoami", reg.Token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, strconv.Itoa(reg.UserID), seen)
}

func TestProfile(t *testing.T) {
	f := newAPIFixture(t)
	reg := f.register(t, "a@x.com", "Ann", "pw1")
	id := strconv.Itoa(reg.UserID)

	w := f.do(t, http.MethodGet, "/profile/"+id, reg.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var user domain.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	assert.Equal(t, "a@x.com", user.Email)
	assert.NotContains(t, w.Body.String(), "hash")

	w = f.do(t, http.MethodGet, "/profile/999", reg.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decodeError(t, w).Kind)

	w = f.do(t, http.MethodGet, "/profile/abc", reg.Token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPut, "/profile/"+id, reg.Token, map[string]string{"unknown": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "bad_request", decodeError(t, w).Kind)

	w = f.do(t, http.MethodPut, "/profile/999", reg.Token, map[string]string{"name": "Bob"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPut, "/profile/"+id, reg.Token, map[string]string{"pet": "cat", "avatar": "data:image/png;base64,AAA"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	assert.Equal(t, "Ann", user.Name)
	assert.Equal(t, "cat", *user.Pet)
	assert.Equal(t, "data:image/png;base64,AAA", *user.Avatar)
}

func TestImageEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	reg := f.register(t, "a@x.com", "Ann", "pw1")

	w := f.do(t, http.MethodPost, "/imageurl", reg.Token, map[string]string{"input": "https://img/face.jpg"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"outputs":[{"data":{"regions":[]}}]}`, w.Body.String())

	w = f.do(t, http.MethodPost, "/imageurl", reg.Token, map[string]string{"input": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	f.detector.Err = errors.New("vendor down")
	w = f.do(t, http.MethodPost, "/imageurl", reg.Token, map[string]string{"input": "https://img/face.jpg"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "vendor_error", decodeError(t, w).Kind)

	w = f.do(t, http.MethodPut, "/image", reg.Token, map[string]int{"id": reg.UserID})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"entries":1}`, w.Body.String())

	w = f.do(t, http.MethodPut, "/image", reg.Token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPut, "/image", "", map[string]int{"id": reg.UserID})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSignout_NoHeader(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/signout", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "bad_request", decodeError(t, w).Kind)
}

func TestBodyLimit(t *testing.T) {
	f := newAPIFixture(t)
	big := bytes.Repeat([]byte("a"), 2<<20)

	w := f.do(t, http.MethodPost, "/register", "", map[string]string{"email": "a@x.com", "name": "Ann", "password": string(big)})
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestProfile_FormSubmission(t *testing.T) {
	f := newAPIFixture(t)
	reg := f.register(t, "a@x.com", "Ann", "pw1")
	id := strconv.Itoa(reg.UserID)

	w := f.do(t, http.MethodPut, "/profile/"+id, reg.Token, map[string]string{"age": "30"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var user domain.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	require.NotNil(t, user.Age)
	assert.Equal(t, 30, *user.Age)

	w = f.do(t, http.MethodPut, "/profile/"+id, reg.Token, map[string]string{"pet": "cat"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// The profile form posts every field, blanks included.
	w = f.do(t, http.MethodPut, "/profile/"+id, reg.Token, map[string]string{"name": "Annie", "age": "", "pet": "", "avatar": ""})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	assert.Equal(t, "Annie", user.Name)
	require.NotNil(t, user.Pet)
	assert.Equal(t, "cat", *user.Pet)
	assert.Equal(t, 30, *user.Age)
	assert.Nil(t, user.Avatar)

	w = f.do(t, http.MethodPut, "/profile/"+id, reg.Token, map[string]string{"name": "", "pet": " "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "bad_request", decodeError(t, w).Kind)

	w = f.do(t, http.MethodGet, "/profile/"+id, reg.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	assert.Equal(t, "Annie", user.Name)
	assert.Equal(t, "cat", *user.Pet)

	w = f.do(t, http.MethodPut, "/profile/"+id, reg.Token, map[string]string{"age": "old"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
