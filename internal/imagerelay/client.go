// Package imagerelay uploads server-held images to an external hosting relay
// so thumbnails can be embedded without exposing the server address. The
// source may be a file on disk or an http(s) URL on the private network.
package imagerelay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const defaultEndpoint = "https://i.memester.xyz/upload?format=json"

// Client uploads images to the relay.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint sets a custom upload endpoint (for testing).
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a relay client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		endpoint: defaultEndpoint,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type uploadResponse struct {
	FilePath string `json:"filePath"`
}

// Upload posts a server-held image and returns the hosted URL.
func (c *Client) Upload(ctx context.Context, path string) (string, error) {
	src, name, err := c.openSource(ctx, path)
	if err != nil {
		return "", err
	}
	defer src.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, src); err != nil {
		return "", fmt.Errorf("copy image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("relay returned %s", resp.Status)
	}

	var ur uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&ur); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if ur.FilePath == "" {
		return "", fmt.Errorf("relay returned empty file path")
	}
	return ur.FilePath, nil
}

// openSource reads the image from disk, or over HTTP when the path is a
// catalog-served URL.
func (c *Client) openSource(ctx context.Context, path string) (io.ReadCloser, string, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, "", fmt.Errorf("create request: %w", err)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, "", fmt.Errorf("fetch image: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, "", fmt.Errorf("fetch image: %s", resp.Status)
		}
		u, _ := url.Parse(path)
		return resp.Body, filepath.Base(u.Path), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open image: %w", err)
	}
	return f, filepath.Base(path), nil
}
