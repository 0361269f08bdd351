package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// DefaultEndpoint is the FCM v1 API base, overridable for tests.
const DefaultEndpoint = "https://fcm.googleapis.com"

// Message is one notification addressed to a single device token.
type Message struct {
	Token string            `json:"token"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

type Sender interface {
	Send(ctx context.Context, bearer string, msg Message) error
}

type HTTPSender struct {
	projectID string
	endpoint  string
	client    *http.Client
}

func NewHTTPSender(projectID, endpoint string, client *http.Client) *HTTPSender {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPSender{projectID: projectID, endpoint: endpoint, client: client}
}

func (s *HTTPSender) Send(ctx context.Context, bearer string, msg Message) error {
	payload := map[string]any{
		"message": map[string]any{
			"token": msg.Token,
			"notification": map[string]string{
				"title": msg.Title,
				"body":  msg.Body,
			},
		},
	}
	if len(msg.Data) > 0 {
		payload["message"].(map[string]any)["data"] = msg.Data
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/v1/projects/%s/messages:send", s.endpoint, s.projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("send push: status %d: %s", resp.StatusCode, detail)
	}
	return nil
}

// MockSender records sends for tests and can be told to fail specific
// device tokens.
type MockSender struct {
	mu         sync.Mutex
	Sent       []Message
	FailTokens map[string]error
}

func (m *MockSender) Send(_ context.Context, _ string, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.FailTokens[msg.Token]; ok {
		return err
	}
	m.Sent = append(m.Sent, msg)
	return nil
}

func (m *MockSender) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}
