package fetch

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"

	errs "wallscraper/pkg/errors"
	"wallscraper/pkg/logger"
	"wallscraper/pkg/ratelimit"
	"wallscraper/pkg/retry"
)

// DefaultUserAgent is sent when no user agent is configured
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

// sniffLen is how much of a page is inspected to detect its charset
const sniffLen = 1024

// Client fetches pages and images over HTTP
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	limiter    ratelimit.Limiter
	retrier    *retry.Retrier
	logger     logger.Logger
}

// NewClient creates a client. A zero timeout means requests never time out.
func NewClient(timeout time.Duration, userAgent string, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		headers: map[string]string{
			"User-Agent":      userAgent,
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
		},
		limiter: ratelimit.NoLimit{},
		retrier: retry.NewRetrier(nil),
		logger:  log,
	}
}

// SetHeader sets a custom header for the client
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// SetLimiter paces every request through l
func (c *Client) SetLimiter(l ratelimit.Limiter) {
	if l == nil {
		l = ratelimit.NoLimit{}
	}
	c.limiter = l
}

// SetRetrier retries transient failures with r
func (c *Client) SetRetrier(r *retry.Retrier) {
	if r == nil {
		r = retry.NewRetrier(nil)
	}
	c.retrier = r
}

// SetHTTPClient replaces the underlying HTTP client
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

// GetPage downloads the page at url and returns its body decoded to UTF-8
func (c *Client) GetPage(ctx context.Context, url string) ([]byte, error) {
	c.logger.DebugWithFields("fetching page", map[string]interface{}{
		"url":         url,
		"max_retries": c.retrier.MaxRetries(),
	})

	return retry.DoWithResult(ctx, func(ctx context.Context) ([]byte, error) {
		resp, err := c.get(ctx, url)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := decodeBody(resp)
		if err != nil {
			return nil, errs.New(errs.ErrorTypeNetwork, resp.StatusCode, url, "failed to read response body", err)
		}
		return body, nil
	}, c.retrier.Config())
}

// Download fetches url and hands the body to sink, returning what sink reports.
// On retry sink is called again with a fresh body, so it must not keep
// partial state between calls.
func (c *Client) Download(ctx context.Context, url string, sink func(io.Reader) (int64, error)) (int64, error) {
	var n int64
	err := c.retrier.Do(ctx, func(ctx context.Context) error {
		n = 0
		resp, err := c.get(ctx, url)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		n, err = sink(resp.Body)
		if err != nil {
			var scrapeErr *errs.Error
			if errors.As(err, &scrapeErr) {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// A body that stops mid-stream is a network problem worth retrying.
			return errs.New(errs.ErrorTypeNetwork, resp.StatusCode, url, "failed to read image data", err)
		}
		return nil
	})
	return n, err
}

// get performs a rate-limited GET and checks the status code
func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeUnknown, 0, url, "failed to create request", err)
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return nil, err
	}

	if err := c.checkResponseStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

// doRequest performs an HTTP request with the configured headers
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.WarnWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errs.New(errs.ErrorTypeNetwork, 0, req.URL.String(), fmt.Sprintf("network error: %v", err), err)
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return resp, nil
}

// checkResponseStatus turns non-2xx responses into typed errors
func (c *Client) checkResponseStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	url := resp.Request.URL.String()
	err := errs.FromStatus(resp.StatusCode, url)
	c.logger.WarnWithFields("unexpected HTTP status", map[string]interface{}{
		"status":    resp.StatusCode,
		"url":       url,
		"type":      string(err.Type),
		"retryable": errs.IsRetryableStatusCode(resp.StatusCode),
	})
	return err
}

// decodeBody reads the response body and converts it to UTF-8 using the
// charset declared by the Content-Type header, a BOM or a <meta> tag.
func decodeBody(resp *http.Response) ([]byte, error) {
	br := bufio.NewReaderSize(resp.Body, sniffLen)
	prefix, err := br.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, err
	}

	contentType := resp.Header.Get("Content-Type")
	enc, name, _ := charset.DetermineEncoding(prefix, contentType)
	if name == "utf-8" {
		return io.ReadAll(br)
	}
	// Without a declaration the detector guesses windows-1252; keep the bytes as they are.
	if name == "windows-1252" && !headerCharset(contentType) && !metaCharset(prefix) {
		return io.ReadAll(br)
	}
	return io.ReadAll(transform.NewReader(br, enc.NewDecoder()))
}

func headerCharset(contentType string) bool {
	_, params, err := mime.ParseMediaType(contentType)
	return err == nil && params["charset"] != ""
}

// metaCharset reports whether prefix declares a charset in a <meta> tag,
// either as charset="..." or as an http-equiv content value.
func metaCharset(prefix []byte) bool {
	z := html.NewTokenizer(bytes.NewReader(prefix))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return false
		case html.StartTagToken, html.SelfClosingTagToken:
			tag, hasAttr := z.TagName()
			if string(tag) != "meta" {
				continue
			}
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				switch string(key) {
				case "charset":
					if len(bytes.TrimSpace(val)) > 0 {
						return true
					}
				case "content":
					if strings.Contains(strings.ToLower(string(val)), "charset=") {
						return true
					}
				}
			}
		}
	}
}
