// Package overpass fetches the existing OSM data the import is reconciled
// against: buildings, address keys and street names inside the survey
// area. Responses are cached on disk so repeated runs over the same input
// do not hit the API again.
package overpass

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/osmtools/survey2osm/internal/logger"
)

// DefaultURL is the public Overpass API endpoint.
const DefaultURL = "https://overpass-api.de/api/interpreter"

// Client submits Overpass QL queries with retries and a gzip-compressed
// on-disk response cache keyed by query hash.
type Client struct {
	url          string
	client       *http.Client
	cacheDir     string
	queryTimeout time.Duration
	maxRetries   int
	retryDelay   time.Duration
}

// NewClient creates a client against the given endpoint. queryTimeout is
// the server-side timeout written into each query.
func NewClient(url, cacheDir string, queryTimeout time.Duration) *Client {
	if url == "" {
		url = DefaultURL
	}
	return &Client{
		url: url,
		client: &http.Client{
			Timeout: queryTimeout + 60*time.Second,
		},
		cacheDir:     cacheDir,
		queryTimeout: queryTimeout,
		maxRetries:   3,
		retryDelay:   5 * time.Second,
	}
}

// Query runs a raw Overpass QL query and returns the parsed response. A
// cached response is used when present; any cache read or parse problem
// falls through to a fresh fetch.
func (c *Client) Query(ctx context.Context, query string) (*Response, error) {
	log := logger.Named("overpass")

	sum := sha256.Sum256([]byte(query))
	cacheFile := filepath.Join(c.cacheDir, hex.EncodeToString(sum[:])+".json.gz")

	if data, err := readCache(cacheFile); err == nil {
		var resp Response
		if err := json.Unmarshal(data, &resp); err == nil {
			log.Debug("Using cached response",
				zap.String("path", cacheFile),
				zap.Int("elements", len(resp.Elements)))
			return &resp, nil
		}
		log.Warn("Discarding unreadable cache entry", zap.String("path", cacheFile))
	}

	log.Debug("Querying Overpass", zap.String("url", c.url), zap.Int("query_bytes", len(query)))
	data, err := c.post(ctx, query)
	if err != nil {
		return nil, err
	}

	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parsing overpass response: %w", err)
	}

	if err := writeCache(cacheFile, data); err != nil {
		log.Warn("Failed to cache response", zap.String("path", cacheFile), zap.Error(err))
	}

	return &resp, nil
}

// post submits the query with retries on transient failures.
func (c *Client) post(ctx context.Context, query string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(query))
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", "survey2osm/1.0")
		req.Header.Set("Content-Type", "text/plain; charset=utf-8")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusOK {
			return body, nil
		}

		// Overpass signals load shedding with 429 and 504; both are worth
		// retrying along with ordinary server errors.
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			continue
		}

		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func readCache(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer gz.Close()

	return io.ReadAll(gz)
}

func writeCache(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating cache file: %w", err)
	}

	gz := gzip.NewWriter(f)
	_, werr := gz.Write(data)
	cerr := gz.Close()
	ferr := f.Close()
	if werr != nil || cerr != nil || ferr != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing cache file %s", tmp)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming cache file: %w", err)
	}
	return nil
}
