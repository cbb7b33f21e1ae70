package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ariefcatur/go-placement-payments/internal/apperr"
)

func postJSON(ctx context.Context, c *http.Client, name, url string, headers map[string]string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", name, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return apperr.Wrap(apperr.KindProviderUnavailable, name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return do(c, name, req, out)
}

func do(c *http.Client, name string, req *http.Request, out any) error {
	resp, err := c.Do(req)
	if err != nil {
		// timeouts and connection failures alike
		return apperr.Wrap(apperr.KindProviderUnavailable, name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return statusError(name, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Wrap(apperr.KindProviderUnavailable, name+": decode response", err)
	}
	return nil
}

func statusError(name string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	kind := apperr.KindProviderUnavailable
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		kind = apperr.KindProviderRejected
	}
	return apperr.Wrap(kind, name, fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(body))))
}

func missingLink(name string) error {
	return apperr.Newf(apperr.KindProviderUnavailable, "%s: response has no checkout link", name)
}
