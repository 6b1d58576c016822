package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/tutorlane/server/internal/apperrors"
)

type EmailClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewEmailClient(baseURL, apiKey string) *EmailClient {
	return &EmailClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Send dispatches one HTML email through the provider.
func (c *EmailClient) Send(ctx context.Context, to, subject, html string) error {
	payload := map[string]string{"to": to, "subject": subject, "html": html}
	body, err := json.Marshal(payload)
	if err != nil {
		return apperrors.Persistence(err, "encode email request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/send", bytes.NewReader(body))
	if err != nil {
		return apperrors.Persistence(err, "build email request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Persistence(err, "call email provider")
	}
	defer resp.Body.Close()

	var result struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := decodeProviderResponse(resp, &result); err != nil {
		return err
	}
	if !result.Success {
		return apperrors.New(apperrors.KindPersistence, "email provider refused: %s", result.Error)
	}
	return nil
}
