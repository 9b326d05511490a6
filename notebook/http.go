package notebook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const jupyterLabsPath = "/api/v1/jupyter-labs"

type HTTPOptions struct {
	BaseURL string
	Token   string
	Client  *http.Client
	Timeout time.Duration
}

// HTTPClient implements API over the cluster REST API.
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
}

var _ API = (*HTTPClient)(nil)

func NewHTTPClient(opt HTTPOptions) *HTTPClient {
	if opt.Client == nil {
		if opt.Timeout == 0 {
			opt.Timeout = 30 * time.Second
		}
		opt.Client = &http.Client{Timeout: opt.Timeout}
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(opt.BaseURL, "/"),
		token:   opt.Token,
		client:  opt.Client,
	}
}

type launchResponse struct {
	Notebook struct {
		ID             string `json:"id"`
		ServiceAddress string `json:"serviceAddress"`
	} `json:"notebook"`
	Config   map[string]any `json:"config"`
	Warnings []string       `json:"warnings"`
}

type previewResponse struct {
	Config map[string]any `json:"config"`
}

func (c *HTTPClient) LaunchJupyterLab(ctx context.Context, req Request) (CommandResponse, error) {
	req.Preview = false
	var resp launchResponse
	if err := c.post(ctx, jupyterLabsPath, req, &resp); err != nil {
		return CommandResponse{}, err
	}
	return CommandResponse{
		ID:             resp.Notebook.ID,
		ServiceAddress: resp.Notebook.ServiceAddress,
		Config:         resp.Config,
		Warnings:       resp.Warnings,
	}, nil
}

func (c *HTTPClient) PreviewJupyterLab(ctx context.Context, req Request) (map[string]any, error) {
	req.Preview = true
	var resp previewResponse
	if err := c.post(ctx, jupyterLabsPath, req, &resp); err != nil {
		return nil, err
	}
	return resp.Config, nil
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("jupyter-labs: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("jupyter-labs: HTTP %d: %s", e.StatusCode, e.Body)
}

func (c *HTTPClient) post(ctx context.Context, path string, body, result any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	hreq.Header.Set("Content-Type", "application/json")
	hreq.Header.Set("Accept", "application/json")
	if c.token != "" {
		hreq.Header.Set("Authorization", "Bearer "+c.token)
	}

	hresp, err := c.client.Do(hreq)
	if err != nil {
		return err
	}
	defer hresp.Body.Close()

	if hresp.StatusCode < 200 || hresp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(hresp.Body, 4096))
		return &StatusError{hresp.StatusCode, strings.TrimSpace(string(msg))}
	}
	if err := json.NewDecoder(hresp.Body).Decode(result); err != nil {
		return fmt.Errorf("jupyter-labs: decoding response: %w", err)
	}
	return nil
}
