package reminder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Trigger asks an external engine to start a reminder run for a subscription.
type Trigger interface {
	Trigger(ctx context.Context, subscriptionID string) (runID string, err error)
}

type triggerBody struct {
	SubscriptionID string `json:"subscriptionId"`
}

type triggerResponse struct {
	WorkflowRunID string `json:"workflowRunId"`
}

// WorkflowClient starts reminder workflows through an Upstash-style trigger endpoint.
// Runs are requested with zero retries.
type WorkflowClient struct {
	baseURL     string
	token       string
	callbackURL string
	client      *http.Client
}

func NewWorkflowClient(baseURL, token, callbackURL string) *WorkflowClient {
	return &WorkflowClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		token:       token,
		callbackURL: callbackURL,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *WorkflowClient) Trigger(ctx context.Context, subscriptionID string) (string, error) {
	payload, err := json.Marshal(triggerBody{SubscriptionID: subscriptionID})
	if err != nil {
		return "", fmt.Errorf("failed to encode trigger body: %w", err)
	}

	url := fmt.Sprintf("%s/v2/trigger/%s", c.baseURL, c.callbackURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Upstash-Retries", "0")
	req.Header.Set("Upstash-Forward-Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("workflow engine unavailable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", fmt.Errorf("failed to read workflow response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("workflow engine returned status %d", resp.StatusCode)
	}

	var out triggerResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to decode workflow response: %w", err)
	}

	return out.WorkflowRunID, nil
}
