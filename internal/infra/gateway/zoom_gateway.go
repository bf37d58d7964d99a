package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/totegamma/roulette/internal/domain"
)

const (
	DefaultZoomBaseURL = "https://api.zoom.us/v2"
	defaultTimeout     = 10 * time.Second

	meetingTypeInstant = 1
	zoomCodeRateLimit  = 429
)

type meetingSettings struct {
	Audio            string `json:"audio"`
	HostVideo        bool   `json:"host_video"`
	ParticipantVideo bool   `json:"participant_video"`
}

type meetingRequest struct {
	Topic    string          `json:"topic"`
	Type     int             `json:"type"`
	Settings meetingSettings `json:"settings"`
}

type meetingResponse struct {
	ID      int64  `json:"id"`
	JoinURL string `json:"join_url"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ZoomGateway creates instant meetings on behalf of a host.
type ZoomGateway struct {
	client  *http.Client
	baseURL string
	tokens  *TokenSource
}

func NewZoomGateway(baseURL string, tokens *TokenSource, timeout time.Duration) *ZoomGateway {
	if baseURL == "" {
		baseURL = DefaultZoomBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &ZoomGateway{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimSuffix(baseURL, "/"),
		tokens:  tokens,
	}
}

func (g *ZoomGateway) CreateMeeting(ctx context.Context, hostAddress, topic string) (domain.MeetingResult, error) {
	ctx, span := tracer.Start(ctx, "Roulette.Gateway.CreateMeeting")
	defer span.End()
	span.SetAttributes(attribute.String("Host", hostAddress))

	if hostAddress == "" {
		return domain.MeetingResult{}, domain.ProviderError{Message: "host has no contact address"}
	}

	token, err := g.tokens.Token()
	if err != nil {
		span.RecordError(err)
		return domain.MeetingResult{}, err
	}

	body, err := json.Marshal(meetingRequest{
		Topic: topic,
		Type:  meetingTypeInstant,
		Settings: meetingSettings{
			Audio:            "voip",
			HostVideo:        true,
			ParticipantVideo: true,
		},
	})
	if err != nil {
		return domain.MeetingResult{}, errors.Wrap(err, "failed to encode meeting request")
	}

	endpoint := fmt.Sprintf("%s/users/%s/meetings", g.baseURL, url.PathEscape(hostAddress))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.MeetingResult{}, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.client.Do(req)
	if err != nil {
		span.RecordError(err)
		return domain.MeetingResult{}, errors.Wrap(err, "failed to perform request")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.MeetingResult{}, errors.Wrap(err, "failed to read response body")
	}

	var meeting meetingResponse
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &meeting); err != nil && resp.StatusCode < 300 {
			return domain.MeetingResult{}, errors.Wrap(err, "failed to decode meeting response")
		}
	}

	if err := classify(resp.StatusCode, meeting); err != nil {
		span.RecordError(err)
		return domain.MeetingResult{}, err
	}

	return domain.MeetingResult{JoinURL: meeting.JoinURL}, nil
}

// classify maps an error payload onto the domain errors. The provider
// signals an exhausted daily quota with status or code 429, or only through
// a message about the daily limit.
func classify(status int, meeting meetingResponse) error {
	if isQuotaExceeded(status, meeting) {
		if meeting.Message == "" {
			return domain.ErrQuotaExceeded
		}
		return errors.Wrap(domain.ErrQuotaExceeded, meeting.Message)
	}
	if status < 200 || status >= 300 || meeting.Code != 0 || meeting.JoinURL == "" {
		return domain.ProviderError{Status: status, Code: meeting.Code, Message: meeting.Message}
	}
	return nil
}

func isQuotaExceeded(status int, meeting meetingResponse) bool {
	if status == http.StatusTooManyRequests || meeting.Code == zoomCodeRateLimit {
		return true
	}
	failed := status < 200 || status >= 300 || meeting.Code != 0
	return failed && strings.Contains(strings.ToLower(meeting.Message), "daily")
}
