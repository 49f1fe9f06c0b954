package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Bot API client used to push operator notifications.
type Client struct {
	httpClient *http.Client
	token      string
}

// Response is the generic Bot API envelope.
type Response struct {
	Ok          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

func NewClient(token string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		token: token,
	}
}

// SendMessage delivers a plain-text message to a chat.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", c.token)
	params := url.Values{
		"chat_id": {fmt.Sprintf("%d", chatID)},
		"text":    {text},
	}

	var response Response
	if err := c.makeRequest(ctx, http.MethodPost, endpoint, params, &response); err != nil {
		return err
	}
	if !response.Ok {
		return fmt.Errorf("telegram API error: %s", response.Description)
	}
	return nil
}

func (c *Client) makeRequest(ctx context.Context, method, endpoint string, data url.Values, result interface{}) error {
	var req *http.Request
	var err error

	if method == http.MethodPost {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, strings.NewReader(data.Encode()))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		if len(data) > 0 {
			endpoint = fmt.Sprintf("%s?%s", endpoint, data.Encode())
		}
		req, err = http.NewRequestWithContext(ctx, method, endpoint, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
