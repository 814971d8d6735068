package api

import (
	"context"
	"errors"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/AbdulWasayUl/go-weather-chat/internal/logger"
)

const maxErrorBody = 512

// Client is a thin JSON-over-HTTP client shared by the provider services.
// It never retries: every failure is terminal for the calling operation.
type Client struct {
	http *resty.Client
}

func NewClient(timeout time.Duration) *Client {
	rc := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(0)

	rc.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		logger.Debug("%s %s -> %d in %s", resp.Request.Method, redact(resp.Request.URL), resp.StatusCode(), resp.Time())
		return nil
	})

	return &Client{http: rc}
}

// Get issues a GET with the given query parameters and returns the raw body of a 2xx response.
func (c *Client) Get(ctx context.Context, url string, query map[string]string) ([]byte, error) {
	req := c.http.R().
		SetContext(ctx).
		SetQueryParams(query)

	return c.do(req, http.MethodGet, url)
}

// PostJSON marshals body as JSON and returns the raw body of a 2xx response.
func (c *Client) PostJSON(ctx context.Context, url string, query map[string]string, body interface{}) ([]byte, error) {
	req := c.http.R().
		SetContext(ctx).
		SetQueryParams(query).
		SetHeader("Content-Type", "application/json").
		SetBody(body)

	return c.do(req, http.MethodPost, url)
}

func (c *Client) do(req *resty.Request, method, url string) ([]byte, error) {
	resp, err := req.Execute(method, url)
	if err != nil {
		var ue *neturl.Error
		if errors.As(err, &ue) {
			ue.URL = redact(ue.URL)
		}
		logger.Error("%s %s failed: %v", method, url, err)
		return nil, &TransportError{Method: method, URL: url, Err: err}
	}

	if !resp.IsSuccess() {
		body := resp.Body()
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		logger.Error("%s %s returned status %d. Body: %s", method, url, resp.StatusCode(), string(body))
		return nil, &StatusError{StatusCode: resp.StatusCode(), Status: resp.Status(), Body: string(body)}
	}

	return resp.Body(), nil
}

// redact drops the query string so provider keys never reach the logs.
func redact(raw string) string {
	base, _, _ := strings.Cut(raw, "?")
	return base
}
