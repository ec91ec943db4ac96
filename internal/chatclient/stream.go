package chatclient

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"pingup_go/internal/domain"
)

const (
	reconnectBase = time.Second
	reconnectMax  = 30 * time.Second
)

// StreamHandler receives live-stream callbacks. OnConnect fires after every
// successful (re)subscribe; callers should re-fetch history there, since the
// stream is a notification side-channel and events during the gap are lost.
type StreamHandler struct {
	OnConnect func()
	OnMessage func(*domain.Message)
}

// Listen subscribes to the user's live event stream and dispatches incoming
// messages until ctx is cancelled. Dropped connections are retried with
// capped exponential backoff plus jitter.
func (c *Client) Listen(ctx context.Context, userID string, handler StreamHandler) error {
	backoff := reconnectBase
	for {
		connected := false
		inner := StreamHandler{
			OnConnect: func() {
				connected = true
				if handler.OnConnect != nil {
					handler.OnConnect()
				}
			},
			OnMessage: handler.OnMessage,
		}
		_ = c.listenOnce(ctx, userID, inner)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// back off and retry; a successful stint resets the backoff
		if connected {
			backoff = reconnectBase
		}
		jitter := time.Duration(rand.Int63n(int64(backoff) / 2))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff + jitter):
		}
		backoff *= 2
		if backoff > reconnectMax {
			backoff = reconnectMax
		}
	}
}

func (c *Client) listenOnce(ctx context.Context, userID string, handler StreamHandler) error {
	url := fmt.Sprintf("%s/api/messages/live/%s", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &apiError{Status: resp.StatusCode, Message: "live stream refused"}
	}

	if handler.OnConnect != nil {
		handler.OnConnect()
	}

	var eventName, data string
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if eventName == eventNewMessage && data != "" {
				var msg domain.Message
				if err := json.Unmarshal([]byte(data), &msg); err == nil && handler.OnMessage != nil {
					handler.OnMessage(&msg)
				}
			}
			eventName, data = "", ""
		case strings.HasPrefix(line, ":"):
			// keepalive comment
		case strings.HasPrefix(line, "event:"):
			eventName = strings.TrimSpace(line[len("event:"):])
		case strings.HasPrefix(line, "data:"):
			if data != "" {
				data += "\n"
			}
			data += strings.TrimSpace(line[len("data:"):])
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return errors.New("live stream closed")
}

const eventNewMessage = "new_message"
