package blob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/orionintegra/orion-backend/pkg/config"
	"github.com/orionintegra/orion-backend/pkg/logger"
)

const (
	pingTimeout    = 5 * time.Second
	defaultTimeout = 30 * time.Second
	maxErrorBody   = 2048
)

// Client talks to the blob storage HTTP API. Objects are addressed by
// pathname; uploads return the public URL the store assigned.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	token        string
	randomSuffix bool
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// UploadedObject describes a stored blob as reported by the store.
type UploadedObject struct {
	URL         string `json:"url"`
	Pathname    string `json:"pathname"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

func closeBody(ctx context.Context, logg *logger.Logger, body io.Closer, msg string) {
	if body == nil {
		return
	}
	if err := body.Close(); err != nil && logg != nil {
		logg.Warn(ctx, msg)
	}
}

// NewClient builds a blob store client and verifies the endpoint is reachable.
func NewClient(ctx context.Context, cfg config.BlobConfig, logg *logger.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("blob base url is required")
	}
	if cfg.Token == "" {
		return nil, errors.New("blob token is required")
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := &Client{
		httpClient:   &http.Client{Timeout: timeout},
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		token:        cfg.Token,
		randomSuffix: cfg.RandomSuffix,
	}

	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("blob health check failed: %w", err)
	}

	if logg != nil {
		logg.Info(ctx, "blob client initialized")
	}

	return client, nil
}

// Upload streams body to the store under pathname and returns the assigned
// object. The store appends a random suffix to the pathname when enabled so
// concurrent uploads of the same filename never collide.
func (c *Client) Upload(ctx context.Context, pathname, contentType string, body io.Reader) (*UploadedObject, error) {
	if c == nil || c.httpClient == nil {
		return nil, errors.New("blob client not initialized")
	}
	if pathname == "" {
		return nil, errors.New("blob pathname is required")
	}

	u := c.baseURL + "/" + encodePathname(pathname)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.randomSuffix {
		req.Header.Set("X-Add-Random-Suffix", "1")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { closeBody(ctx, nil, resp.Body, "blob: closing response body failed") }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, statusError("blob upload failed", resp)
	}

	var obj UploadedObject
	if err := json.NewDecoder(resp.Body).Decode(&obj); err != nil {
		return nil, fmt.Errorf("decoding blob upload response: %w", err)
	}
	if obj.URL == "" {
		return nil, errors.New("blob upload response missing url")
	}

	return &obj, nil
}

// Delete removes the object stored at the given public URL.
func (c *Client) Delete(ctx context.Context, objectURL string) error {
	if c == nil || c.httpClient == nil {
		return errors.New("blob client not initialized")
	}
	if objectURL == "" {
		return errors.New("blob object url is required")
	}

	payload, err := json.Marshal(struct {
		URLs []string `json:"urls"`
	}{URLs: []string{objectURL}})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/delete", strings.NewReader(string(payload)))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { closeBody(ctx, nil, resp.Body, "blob: closing response body failed") }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return statusError("blob delete failed", resp)
	}

	return nil
}

// Ping verifies the store endpoint answers with valid credentials.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.httpClient == nil {
		return errors.New("blob client not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/?limit=1", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { closeBody(ctx, nil, resp.Body, "blob: closing response body failed") }()

	if resp.StatusCode != http.StatusOK {
		return statusError("blob store check failed", resp)
	}

	return nil
}

func statusError(prefix string, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if len(b) > 0 {
		return fmt.Errorf("%s: %s: %s", prefix, resp.Status, strings.TrimSpace(string(b)))
	}
	return fmt.Errorf("%s: %s", prefix, resp.Status)
}

func encodePathname(pathname string) string {
	segments := strings.Split(pathname, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}
