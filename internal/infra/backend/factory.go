package backend

import (
	"net/http"
	"sync"
	"time"

	"replyify-site/config"
	"replyify-site/internal/infra/metrics"
)

func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

// Factory hands out one shared Client. BACKEND_URL is re-read on every
// call; the client is rebuilt only when the value changes.
type Factory struct {
	httpClient *http.Client
	recorder   metrics.Recorder

	mu     sync.Mutex
	url    string
	client *Client
}

func NewFactory(httpClient *http.Client, recorder metrics.Recorder) *Factory {
	if httpClient == nil {
		httpClient = NewHTTPClient()
	}
	return &Factory{httpClient: httpClient, recorder: recorder}
}

// Client returns *config.MissingError when BACKEND_URL is unset.
func (f *Factory) Client() (*Client, error) {
	url, err := config.Lookup(config.BACKEND_URL)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.client == nil || f.url != url {
		f.client = NewClient(url, f.httpClient, f.recorder)
		f.url = url
	}
	return f.client, nil
}

// WebhookFactory is Factory for the billing webhook. Both the URL and the
// bearer secret are required.
type WebhookFactory struct {
	httpClient *http.Client
	recorder   metrics.Recorder

	mu     sync.Mutex
	url    string
	secret string
	client *WebhookClient
}

func NewWebhookFactory(httpClient *http.Client, recorder metrics.Recorder) *WebhookFactory {
	if httpClient == nil {
		httpClient = NewHTTPClient()
	}
	return &WebhookFactory{httpClient: httpClient, recorder: recorder}
}

func (f *WebhookFactory) Client() (*WebhookClient, error) {
	url, err := config.Lookup(config.BILLING_WEBHOOK_URL)
	if err != nil {
		return nil, err
	}
	secret, err := config.Lookup(config.BILLING_WEBHOOK_SECRET)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.client == nil || f.url != url || f.secret != secret {
		f.client = NewWebhookClient(url, secret, f.httpClient, f.recorder)
		f.url = url
		f.secret = secret
	}
	return f.client, nil
}
