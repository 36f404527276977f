// Package clarifai is a thin client for the Clarifai model outputs API used for
// face detection. Responses are returned verbatim for the front-end to render.
package clarifai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/duynhne/smartbrain-service/config"
	"github.com/duynhne/smartbrain-service/internal/core/domain"
)

// maxResponseBytes bounds how much of a vendor response is buffered.
const maxResponseBytes = 8 << 20

// ErrBadResponse is returned for non-2xx statuses and undecodable bodies.
var ErrBadResponse = errors.New("clarifai: unexpected response")

// Client calls the Clarifai outputs endpoint for one model version.
// It implements domain.FaceDetector.
type Client struct {
	cfg        config.ClarifaiConfig
	httpClient *http.Client
}

// NewClient builds a Client whose requests are traced and bounded by cfg.Timeout.
func NewClient(cfg config.ClarifaiConfig) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type outputsRequest struct {
	UserAppID userAppID `json:"user_app_id"`
	Inputs    []input   `json:"inputs"`
}

type userAppID struct {
	UserID string `json:"user_id"`
	AppID  string `json:"app_id"`
}

type input struct {
	Data inputData `json:"data"`
}

type inputData struct {
	Image image `json:"image"`
}

type image struct {
	URL string `json:"url"`
}

func (c *Client) endpoint() string {
	return fmt.Sprintf("%s/v2/models/%s/versions/%s/outputs",
		strings.TrimRight(c.cfg.BaseURL, "/"),
		url.PathEscape(c.cfg.ModelID),
		url.PathEscape(c.cfg.ModelVersionID),
	)
}

// DetectFaces posts imageURL to the configured face-detection model and returns
// the raw JSON response.
func (c *Client) DetectFaces(ctx context.Context, imageURL string) (json.RawMessage, error) {
	if c.cfg.PAT == "" {
		return nil, fmt.Errorf("clarifai: personal access token not set: %w", domain.ErrDetectorNotConfigured)
	}

	body, err := json.Marshal(outputsRequest{
		UserAppID: userAppID{UserID: c.cfg.UserID, AppID: c.cfg.AppID},
		Inputs:    []input{{Data: inputData{Image: image{URL: imageURL}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Key "+c.cfg.PAT)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call clarifai: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read clarifai response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrBadResponse, resp.StatusCode)
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("%w: body is not JSON", ErrBadResponse)
	}

	return json.RawMessage(raw), nil
}
