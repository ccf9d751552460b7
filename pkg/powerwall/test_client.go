package powerwall

import (
	"context"
	"sync"
	"time"
)

// TestClient is an in-memory gateway used by tests.
type TestClient struct {
	mu       sync.Mutex
	reading  Reading
	statsErr error
	waitErr  error
	wait     time.Duration
	delay    time.Duration
	fetches  int
}

func NewTestClient(reading Reading) *TestClient {
	return &TestClient{reading: reading}
}

func (c *TestClient) WaitForConnection(ctx context.Context) error {
	c.mu.Lock()
	wait, err := c.wait, c.waitErr
	c.mu.Unlock()
	if wait > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return err
}

func (c *TestClient) GetStats(ctx context.Context) (*Reading, error) {
	c.mu.Lock()
	delay := c.delay
	c.mu.Unlock()
	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetches++
	if c.statsErr != nil {
		return nil, c.statsErr
	}
	r := c.reading
	r.Timestamp = time.Now()
	return &r, nil
}

func (c *TestClient) SetReading(reading Reading) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reading = reading
}

func (c *TestClient) SetStatsError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statsErr = err
}

// SetConnectionDelay makes WaitForConnection take d before returning err.
func (c *TestClient) SetConnectionDelay(d time.Duration, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wait = d
	c.waitErr = err
}

// SetFetchDelay makes every GetStats take d.
func (c *TestClient) SetFetchDelay(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delay = d
}

func (c *TestClient) Fetches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetches
}
