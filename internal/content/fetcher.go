// Package content fetches the target page and inspects its markup for
// phishing patterns.
package content

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

const defaultMaxBodyBytes = 2 * 1024 * 1024

// FetchConfig controls the page fetch.
type FetchConfig struct {
	UserAgent      string
	RequestTimeout time.Duration
	MaxRedirects   int
	MaxBodyBytes   int64
}

// FetchResult is a decoded page body plus transport facts.
type FetchResult struct {
	Body       []byte
	FinalURL   string
	StatusCode int
	// UsedHTTPS reports the scheme of the attempt that succeeded, which may
	// differ from the requested scheme after the one-shot HTTPS upgrade.
	UsedHTTPS bool
}

type Fetcher struct {
	cfg    FetchConfig
	client *http.Client
}

func NewFetcher(cfg FetchConfig) *Fetcher {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 12 * time.Second
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = 7
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0 (compatible; PhishScan/1.0)"
	}
	maxRedirects := cfg.MaxRedirects
	return &Fetcher{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
	}
}

// Fetch retrieves the page at urlStr. When the first attempt fails and the
// scheme was plain HTTP, exactly one retry is made after upgrading to HTTPS;
// no other retries exist.
func (f *Fetcher) Fetch(ctx context.Context, urlStr string) (*FetchResult, error) {
	urlsToTry := []string{urlStr}
	if strings.HasPrefix(urlStr, "http://") {
		urlsToTry = append(urlsToTry, "https://"+strings.TrimPrefix(urlStr, "http://"))
	}

	var lastErr error
	for _, attemptURL := range urlsToTry {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		result, err := f.fetchOnce(ctx, attemptURL)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, fmt.Errorf("fetch of %s cancelled: %w", attemptURL, ctx.Err())
			}
			continue
		}
		result.UsedHTTPS = strings.HasPrefix(attemptURL, "https://")
		return result, nil
	}
	return nil, lastErr
}

func (f *Fetcher) fetchOnce(ctx context.Context, attemptURL string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, attemptURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", attemptURL, err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "*/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", attemptURL, err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	rawBody, readErr := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBodyBytes))
	if readErr != nil && readErr != io.EOF {
		return nil, fmt.Errorf("reading body of %s failed: %w", attemptURL, readErr)
	}

	body := rawBody
	contentType := resp.Header.Get("Content-Type")
	if utf8Reader, convErr := charset.NewReader(bytes.NewReader(rawBody), contentType); convErr == nil {
		if converted, convReadErr := io.ReadAll(utf8Reader); convReadErr == nil {
			body = converted
		}
	} else {
		log.Printf("Content: charset conversion unavailable for %s (%s): %v", attemptURL, contentType, convErr)
	}

	return &FetchResult{
		Body:       body,
		FinalURL:   resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
	}, nil
}
