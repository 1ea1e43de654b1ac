package assistant

import (
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const (
	defaultTimeout = 30 * time.Second
	betaHeader     = "assistants=v2"
)

// Client provides access to the OpenAI Assistants API
type Client struct {
	api        *openai.Client
	logger     *zap.Logger
	baseURL    string
	orgID      string
	httpClient *http.Client
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL points the client at a different API root (e.g. a proxy or a test server)
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithOrgID sets the OpenAI organization header
func WithOrgID(orgID string) ClientOption {
	return func(c *Client) {
		c.orgID = orgID
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the logger used for per-call logging
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new OpenAI Assistants API client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		logger: zap.NewNop(),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	config := openai.DefaultConfig(apiKey)
	if c.baseURL != "" {
		config.BaseURL = c.baseURL
	}
	config.OrgID = c.orgID

	transport := c.httpClient.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	hc := *c.httpClient
	hc.Transport = &betaTransport{next: transport}
	config.HTTPClient = &hc

	c.api = openai.NewClientWithConfig(config)
	return c
}

// betaTransport pins the Assistants API version on every request.
type betaTransport struct {
	next http.RoundTripper
}

func (t *betaTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("OpenAI-Beta", betaHeader)
	return t.next.RoundTrip(req)
}
