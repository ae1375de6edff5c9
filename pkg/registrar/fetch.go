// SPDX-License-Identifier: MPL-2.0

package registrar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/Bakobiibizo/module-validator-rust/pkg/packager"
	"github.com/Bakobiibizo/module-validator-rust/pkg/types"
)

// maxFetchBytes bounds the size of a fetched registry entry.
const maxFetchBytes = 64 << 20

// StatusError reports a non-200 response from a registry server.
type StatusError struct {
	URL        string
	StatusCode int
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Fetch downloads the installer registered as name on the registry server at
// baseURL and returns the script text. A nil client uses
// http.DefaultClient.
//
// The response body is a JSON string whose value is the stored JSON string
// of the base64 installer, so two JSON layers are removed before decoding.
func Fetch(ctx context.Context, client *http.Client, baseURL string, name types.ModuleName) (string, error) {
	if err := name.Validate(); err != nil {
		return "", err
	}
	if client == nil {
		client = http.DefaultClient
	}

	u := strings.TrimSuffix(baseURL, "/") + "/modules/" + url.PathEscape(name.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{URL: u, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var stored string
	if err := json.Unmarshal(body, &stored); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	var payload string
	if err := json.Unmarshal([]byte(stored), &payload); err != nil {
		return "", fmt.Errorf("decode stored entry: %w", err)
	}
	script, err := packager.Decode(payload)
	if err != nil {
		return "", fmt.Errorf("decode installer: %w", err)
	}
	return string(script), nil
}
