// Package messenger talks to the Facebook Graph Send API to acknowledge
// admin commands in the page inbox.
package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

const DefaultGraphAPIURL = "https://graph.facebook.com/v19.0"

type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[struct{}]
	apiURL     string
	pageToken  string
}

// NewClient builds a Send API client. The circuit breaker opens after
// consecutive Graph API failures so a flapping upstream cannot stall webhook
// handling; while open, sends fail fast.
func NewClient(apiURL, pageToken string) *Client {
	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:    "messenger-send-api",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		breaker:    breaker,
		apiURL:     apiURL,
		pageToken:  pageToken,
	}
}

type sendRequest struct {
	MessagingType string    `json:"messaging_type"`
	Recipient     recipient `json:"recipient"`
	Message       text      `json:"message"`
}

type recipient struct {
	ID string `json:"id"`
}

type text struct {
	Text string `json:"text"`
}

// SendText delivers a plain-text reply to the given PSID.
func (c *Client) SendText(ctx context.Context, recipientID, message string) error {
	body, err := json.Marshal(sendRequest{
		MessagingType: "RESPONSE",
		Recipient:     recipient{ID: recipientID},
		Message:       text{Text: message},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal send request: %w", err)
	}

	_, err = c.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, c.post(ctx, body)
	})
	return err
}

func (c *Client) post(ctx context.Context, body []byte) error {
	url := fmt.Sprintf("%s/me/messages?access_token=%s", c.apiURL, c.pageToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("send api returned %d: %s", resp.StatusCode, detail)
	}
	return nil
}
