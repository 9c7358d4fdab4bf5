// Package tariffs loads tariff repositories from local files or from a
// remote endpoint protected by OAuth2 client credentials.
package tariffs

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/kilianp07/loadshift/auth"
	"github.com/kilianp07/loadshift/core/tariff"
	"github.com/kilianp07/loadshift/infra/logger"
)

// DefaultTimeout bounds one remote fetch.
const DefaultTimeout = 10 * time.Second

// IsRemote reports whether location is an http(s) URL.
func IsRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// Load reads the repository at location, a file path or an http(s) URL.
// cred may be nil.
func Load(ctx context.Context, location string, cred *auth.ClientCred) (*tariff.Repository, error) {
	if !IsRemote(location) {
		return tariff.LoadRepository(location)
	}
	c := &Client{HTTP: &http.Client{Timeout: DefaultTimeout}, Cred: cred, log: logger.New("tariffs")}
	return c.Fetch(ctx, location)
}

// Client fetches tariff files over HTTP.
type Client struct {
	HTTP *http.Client
	Cred *auth.ClientCred
	log  logger.Logger
}

// Fetch downloads and decodes the repository at rawURL. The format comes
// from the response content type, falling back to the URL extension. A 401
// forces one token refresh and retry.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*tariff.Repository, error) {
	resp, err := c.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized && c.Cred != nil {
		_ = resp.Body.Close()
		if _, err := c.Cred.ForceRefresh(ctx); err != nil {
			return nil, err
		}
		if resp, err = c.get(ctx, rawURL); err != nil {
			return nil, err
		}
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch tariffs: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	format, err := formatOf(resp.Header.Get("Content-Type"), rawURL)
	if err != nil {
		return nil, err
	}
	repo, err := tariff.DecodeRepository(resp.Body, format)
	if err != nil {
		return nil, err
	}
	if c.log != nil {
		c.log.Infof("loaded %d tariff plans from %s", len(repo.Names()), rawURL)
	}
	return repo, nil
}

func (c *Client) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json, application/yaml")
	if c.Cred != nil {
		if err := c.Cred.SetAuthHeader(req); err != nil {
			return nil, err
		}
	}
	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	return hc.Do(req)
}

func formatOf(contentType, rawURL string) (string, error) {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		switch {
		case strings.HasSuffix(mt, "json"):
			return "json", nil
		case strings.HasSuffix(mt, "yaml"), strings.HasSuffix(mt, "yml"):
			return "yaml", nil
		}
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	switch ext := strings.ToLower(path.Ext(u.Path)); ext {
	case ".json":
		return "json", nil
	case ".yaml", ".yml":
		return "yaml", nil
	default:
		return "", fmt.Errorf("cannot tell tariff format of %s", rawURL)
	}
}
