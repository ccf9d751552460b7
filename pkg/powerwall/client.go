package powerwall

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	ErrConfig       = errors.New("powerwall: configuration error")
	ErrConnectivity = errors.New("powerwall: gateway not reachable")
	ErrAuth         = errors.New("powerwall: authorization failed")
	ErrGateway      = errors.New("powerwall: gateway request failed")
)

const (
	statusPath       = "/api/status"
	loginPath        = "/api/login/Basic"
	aggregatesPath   = "/api/meters/aggregates"
	batteryLevelPath = "/api/system_status/soe"

	customerUsername = "customer"

	DefaultConnectAttempts = 300
	DefaultConnectInterval = 200 * time.Millisecond
	DefaultRequestTimeout  = 5 * time.Second
)

// PasswordFunc is called every time the client needs to log in.
type PasswordFunc func() (string, error)

type Config struct {
	// Address is the gateway host or IP, optionally with a port.
	Address         string
	Password        PasswordFunc
	ConnectAttempts int
	ConnectInterval time.Duration
	RequestTimeout  time.Duration
}

// Client talks to the local gateway API. It is not safe for concurrent use:
// the cached token is owned by whoever drives the client.
type Client struct {
	cfg     Config
	baseURL string
	http    *http.Client
	token   string
	now     func() time.Time
	logger  *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	address := strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(cfg.Address), "https://"), "/")
	if address == "" {
		return nil, fmt.Errorf("%w: gateway address is not set", ErrConfig)
	}
	if cfg.ConnectAttempts <= 0 {
		cfg.ConnectAttempts = DefaultConnectAttempts
	}
	if cfg.ConnectInterval <= 0 {
		cfg.ConnectInterval = DefaultConnectInterval
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Password == nil {
		cfg.Password = func() (string, error) {
			return "", fmt.Errorf("%w: gateway password is not set", ErrConfig)
		}
	}

	// the gateway serves a self-signed certificate on a LAN address
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}

	return &Client{
		cfg:     cfg,
		baseURL: "https://" + address,
		http: &http.Client{
			Transport: transport,
			Timeout:   cfg.RequestTimeout,
		},
		now:    time.Now,
		logger: logger,
	}, nil
}

// WaitForConnection polls the status endpoint until it answers with a 2xx,
// giving up after ConnectAttempts attempts spaced by ConnectInterval.
func (c *Client) WaitForConnection(ctx context.Context) error {
	c.logger.Info("checking gateway connection", zap.String("url", c.baseURL))

	var lastErr error
	for attempt := 1; attempt <= c.cfg.ConnectAttempts; attempt++ {
		lastErr = c.checkStatus(ctx)
		if lastErr == nil {
			c.logger.Info("gateway connection is ready", zap.Int("attempts", attempt))
			return nil
		}
		c.logger.Debug("gateway not ready", zap.Int("attempt", attempt), zap.Error(lastErr))
		if attempt == c.cfg.ConnectAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.cfg.ConnectInterval):
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrConnectivity, c.cfg.ConnectAttempts, lastErr)
}

func (c *Client) checkStatus(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+statusPath, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer drain(resp)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("status endpoint responded %s", resp.Status)
	}
	return nil
}

// GetStats fetches the meter aggregates and the battery level.
func (c *Client) GetStats(ctx context.Context) (*Reading, error) {
	var aggregates metersAggregatesResponse
	if err := c.getAuthorized(ctx, aggregatesPath, &aggregates); err != nil {
		return nil, err
	}
	var level batteryLevelResponse
	if err := c.getAuthorized(ctx, batteryLevelPath, &level); err != nil {
		return nil, err
	}
	return newReading(&aggregates, &level, c.now()), nil
}

// getAuthorized GETs path with the cached token. On an authorization failure
// the token is dropped, a fresh one is fetched and the request is retried once.
func (c *Client) getAuthorized(ctx context.Context, path string, out any) error {
	resp, err := c.doAuthorized(ctx, path)
	if err != nil {
		return err
	}
	if isAuthFailure(resp.StatusCode) {
		drain(resp)
		c.logger.Info("token became invalid, fetching another one", zap.String("path", path))
		c.token = ""
		resp, err = c.doAuthorized(ctx, path)
		if err != nil {
			return err
		}
		if isAuthFailure(resp.StatusCode) {
			drain(resp)
			return fmt.Errorf("%w: %s responded %s after a fresh login", ErrAuth, path, resp.Status)
		}
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s responded %s", ErrGateway, path, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %w", ErrGateway, path, err)
	}
	return nil
}

func (c *Client) doAuthorized(ctx context.Context, path string) (*http.Response, error) {
	token, err := c.getToken(ctx)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %w", ErrGateway, path, err)
	}
	return resp, nil
}

func (c *Client) getToken(ctx context.Context) (string, error) {
	if c.token != "" {
		return c.token, nil
	}
	if err := c.login(ctx); err != nil {
		return "", err
	}
	return c.token, nil
}

func (c *Client) login(ctx context.Context) error {
	password, err := c.cfg.Password()
	if err != nil {
		return err
	}
	body, err := json.Marshal(loginRequest{
		Username: customerUsername,
		Email:    "",
		Password: password,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginPath, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: login: %w", ErrGateway, err)
	}
	defer drain(resp)

	c.logger.Debug("login responded", zap.Int("status", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: login responded %s", ErrAuth, resp.Status)
	}

	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("%w: decode login response: %w", ErrAuth, err)
	}
	if lr.Token == "" {
		return fmt.Errorf("%w: login response carries no token", ErrAuth)
	}
	c.token = lr.Token
	c.logger.Info("loaded gateway token")
	return nil
}

func isAuthFailure(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
