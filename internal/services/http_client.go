package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/codyseavey/pokemon-collector/backend/internal/metrics"
)

// catalogRequest is one GET against an external catalog API.
type catalogRequest struct {
	service string
	url     string
	timeout time.Duration
	header  http.Header
}

// fetchJSON performs req and decodes a 200 response into out. A 404 yields
// ErrNotFound, any other non-200 status an *APIError and a missed deadline
// ErrTimeout.
func fetchJSON(ctx context.Context, client *http.Client, limiter *rate.Limiter, req catalogRequest, out interface{}) error {
	start := time.Now()
	result := "error"
	defer func() {
		metrics.CatalogRequestsTotal.WithLabelValues(req.service, result).Inc()
		metrics.CatalogRequestDuration.WithLabelValues(req.service).Observe(time.Since(start).Seconds())
	}()

	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return requestErr(req.service, err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, req.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for k, values := range req.header {
		for _, v := range values {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			result = "timeout"
		}
		return requestErr(req.service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		result = "not_found"
		return fmt.Errorf("%s %s: %w", req.service, req.url, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return &APIError{Service: req.service, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			result = "timeout"
			return requestErr(req.service, ctx.Err())
		}
		return fmt.Errorf("failed to decode %s response: %w", req.service, err)
	}
	result = "success"
	return nil
}
