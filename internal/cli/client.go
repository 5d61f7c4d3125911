package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// apiError mirrors the backend's error envelope. The payload is either a
// plain message or a field-to-message map for validation failures.
type apiError struct {
	Error any `json:"error"`
}

// doRequest sends an authenticated request and returns the response body.
// Non-2xx responses become errors carrying the server's message.
func (o *RootOptions) doRequest(ctx context.Context, method, path, contentType string, body io.Reader) ([]byte, error) {
	if o.Server == "" {
		return nil, errors.New("server address required, pass --server or set it in the config file")
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(o.Server, "/")+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if o.Token != "" {
		req.Header.Set("Authorization", "Bearer "+o.Token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var serverErr apiError
		if err := json.Unmarshal(data, &serverErr); err == nil && serverErr.Error != nil {
			return nil, fmt.Errorf("%s: %v", resp.Status, serverErr.Error)
		}
		return nil, errors.New(resp.Status)
	}

	return data, nil
}
