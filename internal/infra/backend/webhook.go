package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"replyify-site/internal/domain/plans"
	"replyify-site/internal/infra/metrics"
)

const (
	UpdateSubscriptionRoute = "/update-subscription"
	updateSubscriptionOp    = "webhook:updateSubscription"
)

// WebhookClient posts server-to-server subscription updates authorised by
// a shared bearer secret.
type WebhookClient struct {
	baseURL    string
	secret     string
	httpClient *http.Client
	recorder   metrics.Recorder
}

// StatusError is a non-2xx webhook answer.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("billing webhook returned status %d: %s", e.StatusCode, e.Body)
}

func NewWebhookClient(baseURL, secret string, httpClient *http.Client, recorder metrics.Recorder) *WebhookClient {
	if httpClient == nil {
		httpClient = NewHTTPClient()
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &WebhookClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		secret:     secret,
		httpClient: httpClient,
		recorder:   recorder,
	}
}

// UpdateSubscription sets plan for the identity-provider user.
func (w *WebhookClient) UpdateSubscription(ctx context.Context, externalUserID string, plan plans.Plan) error {
	start := time.Now()
	err := w.post(ctx, externalUserID, plan)

	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeUpstreamFail
	}
	w.recorder.RecordBackendCall(updateSubscriptionOp, outcome, time.Since(start))

	return err
}

func (w *WebhookClient) post(ctx context.Context, externalUserID string, plan plans.Plan) error {
	payload, err := json.Marshal(map[string]string{
		"externalUserId": externalUserID,
		"plan":           string(plan),
	})
	if err != nil {
		return fmt.Errorf("encode webhook body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+UpdateSubscriptionRoute, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+w.secret)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call billing webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	// drain so the connection can be reused
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	return nil
}
