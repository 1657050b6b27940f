// Package remote consulta el servicio de locations por HTTP.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"social-coordination/internal/platform/httpclient"
)

var (
	ErrNotConfigured = errors.New("locations client not configured")
	ErrUnauthorized  = errors.New("locations unauthorized")
	ErrUpstream      = errors.New("locations upstream error")
)

type Config struct {
	BaseURL string
	APIKey  string

	APIKeyHeader string
	Timeout      time.Duration
	// Retries ante 502/503/504: 0 = 2 reintentos, negativo = ninguno.
	Retries int
	Backoff time.Duration
}

// Checker implementa locations.Checker con GET /v1/locations/{id}: 200 existe, 404 no.
type Checker struct {
	client *httpclient.Client
}

func NewChecker(cfg Config) (*Checker, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, ErrNotConfigured
	}
	retries := cfg.Retries
	if retries == 0 {
		retries = 2
	}
	c, err := httpclient.New(httpclient.Config{
		BaseURL:      cfg.BaseURL,
		APIKey:       cfg.APIKey,
		APIKeyHeader: cfg.APIKeyHeader,
		Timeout:      cfg.Timeout,
		Retries:      retries,
		Backoff:      cfg.Backoff,
	})
	if err != nil {
		return nil, err
	}
	return &Checker{client: c}, nil
}

func (c *Checker) Exists(ctx context.Context, locationID string) (bool, error) {
	if c == nil || c.client == nil {
		return false, ErrNotConfigured
	}
	locationID = strings.TrimSpace(locationID)
	if locationID == "" {
		return false, nil
	}

	err := c.client.Get(ctx, "/v1/locations/"+url.PathEscape(locationID), nil, nil)
	switch httpclient.StatusOf(err) {
	case 0:
		if err == nil {
			return true, nil
		}
	case http.StatusNotFound:
		return false, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return false, ErrUnauthorized
	}
	return false, fmt.Errorf("%w: %v", ErrUpstream, err)
}
