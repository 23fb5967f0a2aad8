package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// WatchRun subscribes to a run's live event stream over WebSocket and
// invokes onEvent for each message. Returns nil when the server closes the
// stream normally (the run finished) or the context is canceled. Return an
// error from onEvent to abort the watch.
func (c *Client) WatchRun(ctx context.Context, runID string, onEvent func(RunEvent) error) error {
	// Convert the HTTP endpoint to a WebSocket endpoint
	wsEndpoint := c.baseURL + "/api/v1/runs/" + runID + "/watch"
	wsEndpoint = strings.Replace(wsEndpoint, "http://", "ws://", 1)
	wsEndpoint = strings.Replace(wsEndpoint, "https://", "wss://", 1)

	u, err := url.Parse(wsEndpoint)
	if err != nil {
		return fmt.Errorf("parse endpoint: %w", err)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	header := http.Header{}
	if c.apiKey != "" {
		header.Set("Authorization", "Bearer "+c.apiKey)
	}

	conn, _, err := dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return fmt.Errorf("websocket connect: %w", err)
	}
	defer conn.Close()

	// Unblock ReadJSON when the caller gives up.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var event RunEvent
		if err := conn.ReadJSON(&event); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read event: %w", err)
		}

		if err := onEvent(event); err != nil {
			return err
		}

		if event.Type == "state" && event.State == RunStateFinished {
			return nil
		}
	}
}
