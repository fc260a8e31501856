package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/newthinker/meridian/internal/core"
)

// ClassifyStatus maps an HTTP status code onto the provider error taxonomy.
// It returns nil for 2xx.
func ClassifyStatus(code int) *core.Error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusTooManyRequests:
		return core.ErrRateLimited
	case code == http.StatusNotFound:
		return core.ErrNotFound
	case code == http.StatusRequestTimeout || code >= 500:
		return core.ErrTransient
	default:
		return core.ErrMalformed
	}
}

// ClassifyErr maps a transport error onto the taxonomy. Timeouts, dropped
// connections and other network failures are Transient; errors already in the
// taxonomy and caller cancellation pass through unchanged.
func ClassifyErr(err error) error {
	if err == nil {
		return nil
	}
	var ce *core.Error
	if errors.As(err, &ce) || errors.Is(err, context.Canceled) {
		return err
	}
	return core.WrapError(core.ErrTransient, err)
}

// Get issues a GET request and returns the response body. Non-2xx statuses
// and transport failures come back classified; for a non-2xx status the body
// is still returned so adapters can refine the error from the payload.
func Get(ctx context.Context, client *http.Client, url string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, core.WrapError(core.ErrMalformed, fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, ClassifyErr(fmt.Errorf("requesting %s: %w", req.URL.Host, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ClassifyErr(fmt.Errorf("reading body: %w", err))
	}
	if base := ClassifyStatus(resp.StatusCode); base != nil {
		return body, core.Errorf(base, "unexpected status: %d", resp.StatusCode)
	}
	return body, nil
}
