// Package chatclient is the Go client for the messaging API: typed HTTP
// calls, a reconnecting live-event subscriber, and the in-memory timeline
// and conversation-list state a chat view needs.
package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"pingup_go/internal/domain"
)

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// SetToken sets the bearer token used on authenticated calls.
func (c *Client) SetToken(token string) {
	c.token = token
}

type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &apiError{Status: resp.StatusCode, Message: e.Error}
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// Login authenticates and stores the returned token on the client.
func (c *Client) Login(ctx context.Context, username, password string) (*domain.User, error) {
	var resp struct {
		AccessToken string       `json:"access_token"`
		User        *domain.User `json:"user"`
	}
	err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	c.token = resp.AccessToken
	return resp.User, nil
}

// Send posts a text message and returns the persisted message.
func (c *Client) Send(ctx context.Context, toUserID, text string) (*domain.Message, error) {
	var resp struct {
		Message *domain.Message `json:"message"`
	}
	err := c.do(ctx, http.MethodPost, "/api/messages/", map[string]string{
		"to_user_id": toUserID,
		"text":       text,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Message, nil
}

// History fetches the conversation with partner, oldest first. limit <= 0
// fetches everything; before restricts to messages older than that ID.
func (c *Client) History(ctx context.Context, partnerID string, before int64, limit int) ([]*domain.Message, error) {
	var resp struct {
		Messages []*domain.Message `json:"messages"`
	}
	err := c.do(ctx, http.MethodPost, "/api/messages/history", map[string]any{
		"to_user_id": partnerID,
		"before":     before,
		"limit":      limit,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// RecentConversations fetches the aggregated conversation list.
func (c *Client) RecentConversations(ctx context.Context) ([]*domain.Conversation, error) {
	var resp struct {
		Conversations []*domain.Conversation `json:"conversations"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/messages/recent", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Conversations, nil
}

// MarkSeen marks everything from partner as seen and returns the number of
// messages flipped.
func (c *Client) MarkSeen(ctx context.Context, partnerID string) (int64, error) {
	var resp struct {
		ModifiedCount int64 `json:"modified_count"`
	}
	err := c.do(ctx, http.MethodPost, "/api/messages/seen", map[string]string{
		"from_user_id": partnerID,
	}, &resp)
	if err != nil {
		return 0, err
	}
	return resp.ModifiedCount, nil
}

// Connections fetches the caller's connection list.
func (c *Client) Connections(ctx context.Context) ([]*domain.UserSummary, error) {
	var resp struct {
		Connections []*domain.UserSummary `json:"connections"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/users/connections", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Connections, nil
}
