package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// CalComClient implements Calendar against the Cal.com v1 API. Cal.com
// authenticates with an apiKey query parameter, not a header.
type CalComClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewCalComClient(baseURL, apiKey string) *CalComClient {
	if baseURL == "" {
		baseURL = "https://api.cal.com/v1"
	}
	return &CalComClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *CalComClient) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("apiKey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("cal.com request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("cal.com returned %d: %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// EventTypes lists the meeting kinds configured on the connected account.
func (c *CalComClient) EventTypes(ctx context.Context) ([]EventType, error) {
	var result struct {
		EventTypes []EventType `json:"event_types"`
	}
	if err := c.get(ctx, "/event-types", nil, &result); err != nil {
		return nil, err
	}
	return result.EventTypes, nil
}

// Availability returns the bookable slots for an event type within a window.
func (c *CalComClient) Availability(ctx context.Context, eventTypeID int, from, to time.Time) ([]Slot, error) {
	params := url.Values{}
	params.Set("eventTypeId", fmt.Sprintf("%d", eventTypeID))
	params.Set("startTime", from.Format(time.RFC3339))
	params.Set("endTime", to.Format(time.RFC3339))

	var result struct {
		Slots []Slot `json:"slots"`
	}
	if err := c.get(ctx, "/slots", params, &result); err != nil {
		return nil, err
	}
	return result.Slots, nil
}

// Book creates a booking for an attendee.
func (c *CalComClient) Book(ctx context.Context, eventTypeID int, start, end time.Time, attendeeEmail, attendeeName string) (Booking, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"eventTypeId": eventTypeID,
		"start":       start.Format(time.RFC3339),
		"end":         end.Format(time.RFC3339),
		"responses": map[string]string{
			"email": attendeeEmail,
			"name":  attendeeName,
		},
		"timeZone": "UTC",
		"language": "en",
		"metadata": map[string]string{},
	})
	if err != nil {
		return Booking{}, fmt.Errorf("failed to encode booking: %w", err)
	}

	bookURL := c.baseURL + "/bookings?apiKey=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, bookURL, bytes.NewReader(payload))
	if err != nil {
		return Booking{}, fmt.Errorf("failed to create booking request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Booking{}, fmt.Errorf("cal.com booking failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return Booking{}, fmt.Errorf("cal.com returned %d: %s", resp.StatusCode, string(body))
	}

	var raw struct {
		ID        int       `json:"id"`
		UID       string    `json:"uid"`
		StartTime time.Time `json:"startTime"`
		EndTime   time.Time `json:"endTime"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return Booking{}, fmt.Errorf("failed to decode booking response: %w", err)
	}

	id := raw.UID
	if id == "" {
		id = fmt.Sprintf("%d", raw.ID)
	}
	return Booking{
		ID:        id,
		EventType: eventTypeID,
		Start:     raw.StartTime,
		End:       raw.EndTime,
		Attendee:  attendeeEmail,
	}, nil
}
