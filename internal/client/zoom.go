// Package client holds thin typed HTTP clients for the third-party
// meeting and email providers consumed through the proxy routes.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/tutorlane/server/internal/apperrors"
)

// Meeting is the provider's response to a meeting creation request.
type Meeting struct {
	Link      string `json:"link"`
	MeetingID string `json:"meetingId"`
	Password  string `json:"password"`
}

// RecordingArtifact is the metadata of a finished meeting's recording.
type RecordingArtifact struct {
	MeetingID   string `json:"meetingId"`
	DownloadURL string `json:"downloadUrl"`
	Duration    int    `json:"duration"`
}

type MeetingClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewMeetingClient(baseURL, token string) *MeetingClient {
	return &MeetingClient{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// CreateMeeting asks the provider for a meeting starting at startTime.
func (c *MeetingClient) CreateMeeting(ctx context.Context, startTime time.Time) (*Meeting, error) {
	payload := map[string]string{"start_time": startTime.Format(time.RFC3339)}

	var meeting Meeting
	if err := c.postJSON(ctx, c.baseURL+"/meetings", payload, &meeting); err != nil {
		return nil, err
	}
	return &meeting, nil
}

// GetRecording fetches recording metadata for a past meeting.
func (c *MeetingClient) GetRecording(ctx context.Context, meetingID string) (*RecordingArtifact, error) {
	endpoint := fmt.Sprintf("%s/recordings?meetingId=%s", c.baseURL, url.QueryEscape(meetingID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apperrors.Persistence(err, "build recording request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Persistence(err, "fetch recording %s", meetingID)
	}
	defer resp.Body.Close()

	var artifact RecordingArtifact
	if err := decodeProviderResponse(resp, &artifact); err != nil {
		return nil, err
	}
	return &artifact, nil
}

func (c *MeetingClient) postJSON(ctx context.Context, endpoint string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return apperrors.Persistence(err, "encode meeting request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return apperrors.Persistence(err, "build meeting request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Persistence(err, "call meeting provider")
	}
	defer resp.Body.Close()

	return decodeProviderResponse(resp, out)
}

// decodeProviderResponse handles the providers' convention of returning
// either the payload or an {"error": "..."} body.
func decodeProviderResponse(resp *http.Response, out any) error {
	if resp.StatusCode >= 400 {
		var failure struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&failure); err == nil && failure.Error != "" {
			return apperrors.Persistence(fmt.Errorf("provider: %s", failure.Error), "provider returned %d", resp.StatusCode)
		}
		return apperrors.New(apperrors.KindPersistence, "provider returned %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.Persistence(err, "decode provider response")
	}
	return nil
}
