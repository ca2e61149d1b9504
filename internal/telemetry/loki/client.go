// Package loki pushes account events to Grafana Loki's HTTP push API.
package loki

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"user-account-service/internal/telemetry/domain"
)

const (
	pushPath       = "/loki/api/v1/push"
	jobLabel       = "user-account-service"
	defaultTimeout = 10 * time.Second
)

// invalidLabelChars matches characters kept out of label values.
var invalidLabelChars = regexp.MustCompile(`[^a-zA-Z0-9_\-:]`)

// Entry is one log line with its stream labels. The job label is always added.
type Entry struct {
	Time   time.Time
	Line   string
	Labels map[string]string
}

type pushBody struct {
	Streams []stream `json:"streams"`
}

type stream struct {
	Labels map[string]string `json:"stream"`
	Values [][2]string       `json:"values"` // [unix ns, line]
}

// Client writes entries to one Loki instance.
type Client struct {
	pushURL string
	http    *http.Client
}

// New returns a Client for baseURL (e.g. http://localhost:3100). A nil httpClient uses one with a 10s timeout.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("loki: base URL is empty")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{pushURL: baseURL + pushPath, http: httpClient}, nil
}

// PushEvent pushes a serialized account event. Event type and source become labels and the event
// time becomes the entry time; user ids stay in the line to keep stream cardinality low.
// Payloads that are not account events are pushed as they are, stamped with the current time.
func (c *Client) PushEvent(ctx context.Context, payload []byte) error {
	entry := Entry{Time: time.Now().UTC(), Line: string(payload), Labels: map[string]string{}}
	var event domain.Event
	if err := json.Unmarshal(payload, &event); err == nil {
		if event.Type != "" {
			entry.Labels["event_type"] = event.Type
		}
		if event.Source != "" {
			entry.Labels["source"] = event.Source
		}
		if !event.CreatedAt.IsZero() {
			entry.Time = event.CreatedAt
		}
	}
	return c.Push(ctx, entry)
}

// Push sends entry as a single-line stream. Non-2xx responses are errors.
func (c *Client) Push(ctx context.Context, entry Entry) error {
	labels := map[string]string{"job": jobLabel}
	for k, v := range entry.Labels {
		if v = invalidLabelChars.ReplaceAllString(strings.TrimSpace(v), "_"); v != "" {
			labels[k] = v
		}
	}
	body, err := json.Marshal(pushBody{Streams: []stream{{
		Labels: labels,
		Values: [][2]string{{strconv.FormatInt(entry.Time.UnixNano(), 10), entry.Line}},
	}}})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.pushURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("loki: push: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("loki: push returned %s", resp.Status)
	}
	return nil
}
