package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"mailwarm/config"
)

// PostalSender dispatches warmup emails through the Postal HTTP API
type PostalSender struct {
	apiKey string
	apiURL string
	client *http.Client
}

func NewPostalSender(cfg config.PostalConfig) *PostalSender {
	return &PostalSender{
		apiKey: cfg.APIKey,
		apiURL: strings.TrimRight(cfg.BaseURL, "/") + "/api/v1/send/message",
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type postalSendRequest struct {
	To        []string `json:"to"`
	From      string   `json:"from"`
	Subject   string   `json:"subject"`
	PlainBody string   `json:"plain_body"`
}

type postalSendResponse struct {
	Status string `json:"status"`
	Data   struct {
		MessageID string `json:"message_id"`
		Message   string `json:"message"`
	} `json:"data"`
}

// Send submits one email and returns the Postal-assigned message ID
func (p *PostalSender) Send(ctx context.Context, sender, recipient, subject, body string) (string, error) {
	payload, err := json.Marshal(postalSendRequest{
		To:        []string{recipient},
		From:      sender,
		Subject:   subject,
		PlainBody: body,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build send request: %w", err)
	}
	req.Header.Set("X-Server-API-Key", p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("postal request failed: %w", err)
	}
	defer resp.Body.Close()

	var parsed postalSendResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode postal response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || parsed.Status != "success" {
		msg := parsed.Data.Message
		if msg == "" {
			msg = fmt.Sprintf("unexpected status %d", resp.StatusCode)
		}
		return "", fmt.Errorf("postal send failed: %s", msg)
	}

	return parsed.Data.MessageID, nil
}
