package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	apperrors "github.com/catcha-app/geotag/pkg/errors"
	"github.com/catcha-app/geotag/pkg/logger"
)

// Result is the value-returned outcome of an API call. Failures are carried
// here, never as panics or errors across the public boundary.
type Result struct {
	OK     bool
	Status int
	Data   json.RawMessage
	Error  string
}

// DecodeInto unmarshals the success payload into out.
func (r Result) DecodeInto(out any) error {
	if len(r.Data) == 0 {
		return fmt.Errorf("empty response body")
	}
	return json.Unmarshal(r.Data, out)
}

// Doer is the minimal http client surface; *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// TokenSource resolves the bearer token at request time.
type TokenSource interface {
	Resolve(ctx context.Context) string
}

// RequestOptions tune a single call.
type RequestOptions struct {
	// TrackKey is sent as X-Track-Key when set.
	TrackKey string
	// Live enables the CSRF/unauthorized hints in error messages.
	Live bool
}

var csrfBodyPattern = regexp.MustCompile(`Page Expired|CSRF token mismatch`)

// Client issues JSON requests against the configured base URL. Logical paths
// resolve to {base}/api{path} first; on 404, 401 or 403 the call is retried
// once at {base}{path} unless forceAPI pins the /api prefix.
type Client struct {
	baseURL  string
	tokens   TokenSource
	http     Doer
	forceAPI bool
	log      logger.Logger
}

func NewClient(baseURL string, tokens TokenSource, httpClient Doer, forceAPI bool, log logger.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		tokens:   tokens,
		http:     httpClient,
		forceAPI: forceAPI,
		log:      log,
	}
}

// Do performs a JSON request for the logical path, applying the URL fallback
// policy. body may be nil.
func (c *Client) Do(ctx context.Context, method, path string, body any, opts RequestOptions) Result {
	if c.baseURL == "" {
		return Result{Status: 0, Error: apperrors.ErrNoAPIBaseURL.Error()}
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return Result{Status: 0, Error: fmt.Sprintf("failed to encode request body: %v", err)}
		}
	}

	primary := c.baseURL + "/api" + path
	status, responseBody, err := c.attempt(ctx, method, primary, payload, opts)
	if err != nil {
		return Result{Status: 0, Error: fmt.Sprintf("%s: %v", primary, err)}
	}

	url := primary
	if (status == http.StatusNotFound || status == http.StatusUnauthorized || status == http.StatusForbidden) && !c.forceAPI {
		fallback := c.baseURL + path
		c.log.Warn("retrying without /api prefix", "status", status, "url", fallback)

		fbStatus, fbBody, fbErr := c.attempt(ctx, method, fallback, payload, opts)
		if fbErr != nil {
			return Result{Status: 0, Error: fmt.Sprintf("%s: %v", fallback, fbErr)}
		}
		status, responseBody, url = fbStatus, fbBody, fallback
	}

	if status >= 200 && status < 300 {
		return Result{OK: true, Status: status, Data: responseBody}
	}

	return Result{Status: status, Error: c.errorMessage(url, status, responseBody, opts)}
}

func (c *Client) attempt(ctx context.Context, method, url string, payload []byte, opts RequestOptions) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	if token := c.tokens.Resolve(ctx); token != "" {
		// the server may accept either header
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("X-Api-Token", token)
	}
	if opts.TrackKey != "" {
		req.Header.Set("X-Track-Key", opts.TrackKey)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()

	responseBody, err := io.ReadAll(res.Body)
	if err != nil {
		return 0, nil, err
	}
	return res.StatusCode, responseBody, nil
}

func (c *Client) errorMessage(url string, status int, body []byte, opts RequestOptions) string {
	message := string(body)
	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		message = parsed.Message
	}
	if message == "" {
		message = http.StatusText(status)
	}

	msg := fmt.Sprintf("%s: %s", url, message)
	if opts.Live {
		switch {
		case status == 419 || csrfBodyPattern.Match(body):
			msg += " (hint: CSRF token mismatch, use an API token)"
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			msg += " (hint: unauthorized, token missing or invalid)"
		}
	}
	return msg
}
