// Package apiclient talks to the two REST backends: the server API (auth,
// users) and the flight API (flights, airlines, tickets, ratings).
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Domenick1991/airdash/internal/session"
)

// Session is the identity the client reads the bearer token from and
// writes the login result to.
type Session interface {
	Token() string
	Set(ctx context.Context, s session.Session) error
	Clear(ctx context.Context) error
}

type Config struct {
	ServerURL string
	FlightURL string
	Timeout   time.Duration
}

type Client struct {
	serverURL      string
	flightURL      string
	httpClient     *http.Client
	session        Session
	onUnauthorized func()
	logger         logrus.FieldLogger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithUnauthorizedHook registers fn to run after a 401 on an authenticated
// request has cleared the session.
func WithUnauthorizedHook(fn func()) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

func New(cfg Config, sess Session, logger logrus.FieldLogger, opts ...Option) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	c := &Client{
		serverURL:  strings.TrimRight(cfg.ServerURL, "/"),
		flightURL:  strings.TrimRight(cfg.FlightURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		session:    sess,
		logger:     logger.WithField("component", "apiclient"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetUnauthorizedHook replaces the 401 hook after construction.
func (c *Client) SetUnauthorizedHook(fn func()) {
	c.onUnauthorized = fn
}

type envelope struct {
	Success     *bool           `json:"success"`
	Message     string          `json:"message"`
	Data        json.RawMessage `json:"data"`
	AccessToken string          `json:"access_token"`
	User        json.RawMessage `json:"user"`
	Balance     *float64        `json:"stanje_racuna"`
}

func (c *Client) server(ctx context.Context, method, path string, query url.Values, body interface{}) (*envelope, error) {
	return c.do(ctx, method, c.serverURL+path, query, body)
}

func (c *Client) flight(ctx context.Context, method, path string, query url.Values, body interface{}) (*envelope, error) {
	return c.do(ctx, method, c.flightURL+path, query, body)
}

func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, body interface{}) (*envelope, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	token := c.session.Token()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	var decodeErr error
	if len(bytes.TrimSpace(raw)) > 0 {
		decodeErr = json.Unmarshal(raw, &env)
	}

	if resp.StatusCode == http.StatusUnauthorized && token != "" {
		c.logger.WithField("endpoint", endpoint).Warn("session rejected by server")
		if err := c.session.Clear(ctx); err != nil {
			c.logger.WithError(err).Warn("failed to clear session")
		}
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RequestError{Status: resp.StatusCode, Message: env.Message}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode response: %w", decodeErr)
	}
	if env.Success != nil && !*env.Success {
		return nil, &RequestError{Status: resp.StatusCode, Message: env.Message}
	}
	return &env, nil
}

// decode unmarshals raw into T. A missing or null payload yields the zero
// value.
func decode[T any](raw json.RawMessage) (T, error) {
	var out T
	if len(raw) == 0 || string(raw) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("failed to decode response data: %w", err)
	}
	return out, nil
}

func idPath(prefix string, id int64, suffix string) string {
	return fmt.Sprintf("%s/%d%s", prefix, id, suffix)
}
