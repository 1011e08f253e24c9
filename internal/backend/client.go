// Package backend is a client for the remote processing API that stores
// classified field photographs and serves the field hierarchy.
package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
)

// DefaultTimeout bounds every API call.
const DefaultTimeout = 60 * time.Second

// Client talks to the processing API at a base URL.
type Client struct {
	http *resty.Client
}

// NewClient returns a client for baseURL.
func NewClient(baseURL string) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(DefaultTimeout).
		SetHeader("Accept", "application/json")
	return &Client{http: c}
}

// BaseURL returns the API root this client targets.
func (c *Client) BaseURL() string {
	return c.http.BaseURL
}

// Processing API routes.
const (
	processPath   = "/api/procesar-imagen-simple"
	historyPath   = "/api/historial"
	fieldDataPath = "/api/google-sheets/field-data"
	healthPath    = "/health"
)

// ProcessImage uploads one image with its field metadata for analysis and
// storage. Empresa and Fundo are required by the API.
func (c *Client) ProcessImage(ctx context.Context, req ProcessRequest) (*ProcessResponse, error) {
	if req.Image == nil {
		return nil, ErrMissingImage
	}
	if req.Empresa == "" || req.Fundo == "" {
		return nil, ErrMissingField
	}
	filename := req.Filename
	if filename == "" {
		filename = "imagen.jpg"
	}

	var res ProcessResponse
	var apiErr APIError
	resp, err := c.http.R().
		SetContext(ctx).
		SetFileReader("imagen", filename, req.Image).
		SetFormData(req.formData()).
		SetResult(&res).
		SetError(&apiErr).
		Post(processPath)
	if err := checkResponse(resp, err, &apiErr); err != nil {
		return nil, fmt.Errorf("failed to process image: %w", err)
	}

	log.Debugf("backend: processed %s as %s (light %.2f%%)", filename, res.ID, res.LightPercentage)
	return &res, nil
}

// History returns the stored processing results.
func (c *Client) History(ctx context.Context) (*HistoryResponse, error) {
	var res HistoryResponse
	var apiErr APIError
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&res).
		SetError(&apiErr).
		Get(historyPath)
	if err := checkResponse(resp, err, &apiErr); err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}
	return &res, nil
}

// FieldData returns the empresa/fundo/sector/lote hierarchy.
func (c *Client) FieldData(ctx context.Context) (*FieldData, error) {
	var res FieldData
	var apiErr APIError
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&res).
		SetError(&apiErr).
		Get(fieldDataPath)
	if err := checkResponse(resp, err, &apiErr); err != nil {
		return nil, fmt.Errorf("failed to fetch field data: %w", err)
	}
	return &res, nil
}

// Health checks that the API is reachable and healthy.
func (c *Client) Health(ctx context.Context) error {
	var res HealthResponse
	var apiErr APIError
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&res).
		SetError(&apiErr).
		Get(healthPath)
	if err := checkResponse(resp, err, &apiErr); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if res.Status != "healthy" {
		return fmt.Errorf("health check failed: status %q", res.Status)
	}
	return nil
}

func checkResponse(resp *resty.Response, err error, apiErr *APIError) error {
	if err != nil {
		return err
	}
	if resp.IsError() {
		apiErr.StatusCode = resp.StatusCode()
		return apiErr
	}
	return nil
}
