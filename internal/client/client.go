// Package client talks to a running nightswitch daemon over its unix
// control socket. It is the transport behind every CLI command except
// "daemon" itself.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pygillier/nightswitch/internal/domain/entity"
	"github.com/pygillier/nightswitch/internal/server"
	"github.com/pygillier/nightswitch/internal/services"
)

const (
	// requestTimeout bounds one control call. Mode activations may
	// resolve a coordinate and query sun times synchronously, so this
	// sits above the daemon's own 10s provider budget.
	requestTimeout = 30 * time.Second

	maxResponseBytes = 1 << 20
)

// Client is an HTTP client bound to the daemon's unix socket.
type Client struct {
	socketPath string
	http       *http.Client
}

// New creates a client for the daemon listening on socketPath.
func New(socketPath string) *Client {
	dial := func(ctx context.Context, _, _ string) (net.Conn, error) {
		var d net.Dialer
		return d.DialContext(ctx, "unix", socketPath)
	}
	return &Client{
		socketPath: socketPath,
		http: &http.Client{
			Timeout:   requestTimeout,
			Transport: &http.Transport{DialContext: dial},
		},
	}
}

// Status fetches the daemon's current status snapshot.
func (c *Client) Status(ctx context.Context) (services.Status, error) {
	var status services.Status
	err := c.call(ctx, http.MethodGet, "/api/v1/status", nil, &status)
	return status, err
}

// SetManual puts the daemon in manual mode with the given theme and
// returns the resulting status.
func (c *Client) SetManual(ctx context.Context, variant entity.Variant) (server.ModeResponse, error) {
	body := map[string]string{"theme": variant.String()}
	return c.modeCall(ctx, "/api/v1/mode/manual", body)
}

// SetSchedule puts the daemon in schedule mode with the given
// boundaries.
func (c *Client) SetSchedule(ctx context.Context, darkAt, lightAt entity.TimeOfDay) (server.ModeResponse, error) {
	body := map[string]string{"dark_at": darkAt.String(), "light_at": lightAt.String()}
	return c.modeCall(ctx, "/api/v1/mode/schedule", body)
}

// SetLocation puts the daemon in location mode. A nil override lets
// the daemon resolve the coordinate itself.
func (c *Client) SetLocation(ctx context.Context, override *entity.Coordinate) (server.ModeResponse, error) {
	body := map[string]any{}
	if override != nil {
		body["latitude"] = override.Latitude
		body["longitude"] = override.Longitude
	}
	return c.modeCall(ctx, "/api/v1/mode/location", body)
}

// Disable reverts the daemon to manual mode, keeping the current
// theme.
func (c *Client) Disable(ctx context.Context) (server.ModeResponse, error) {
	return c.modeCall(ctx, "/api/v1/mode/disable", struct{}{})
}

// Toggle flips the current theme in manual mode.
func (c *Client) Toggle(ctx context.Context) (server.ModeResponse, error) {
	return c.modeCall(ctx, "/api/v1/theme/toggle", struct{}{})
}

// Watch subscribes to the daemon's event stream. Events arrive on the
// returned channel until ctx is canceled or the daemon goes away, then
// the channel closes. A non-nil error is only returned when the
// subscription itself could not be established.
func (c *Client) Watch(ctx context.Context) (<-chan entity.Event, error) {
	dialer := websocket.Dialer{
		NetDialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", c.socketPath)
		},
		HandshakeTimeout: requestTimeout,
	}
	// The host is ignored for a unix dial but required by the URL form.
	conn, resp, err := dialer.DialContext(ctx, "ws://nightswitch/api/v1/events", nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, c.wrapDialError(err)
	}

	events := make(chan entity.Event)
	go func() {
		defer close(events)
		defer func() { _ = conn.Close() }()
		for {
			var ev entity.Event
			if err := conn.ReadJSON(&ev); err != nil {
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		<-ctx.Done()
		// Unblocks the read loop.
		_ = conn.Close()
	}()
	return events, nil
}

// modeCall posts a mode operation and decodes the resulting status.
func (c *Client) modeCall(ctx context.Context, path string, body any) (server.ModeResponse, error) {
	var result server.ModeResponse
	err := c.call(ctx, http.MethodPost, path, body, &result)
	return result, err
}

func (c *Client) call(ctx context.Context, method, path string, body, into any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	// The host is ignored for a unix dial but required by the URL form.
	req, err := http.NewRequestWithContext(ctx, method, "http://nightswitch"+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return c.wrapDialError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr server.ErrorResponse
		if json.Unmarshal(payload, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon refused: %s", apiErr.Error)
		}
		return fmt.Errorf("daemon returned status %d", resp.StatusCode)
	}

	if into == nil {
		return nil
	}
	if err := json.Unmarshal(payload, into); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// wrapDialError turns a connection failure into the hint users
// actually need: the daemon is not running.
func (c *Client) wrapDialError(err error) error {
	return fmt.Errorf("cannot reach the nightswitch daemon on %s (is it running? start it with: nightswitch daemon): %w",
		c.socketPath, err)
}
