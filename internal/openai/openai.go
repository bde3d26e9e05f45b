// Package openai issues chat completion requests against OpenAI-compatible
// endpoints and owns the lifecycle of the single outstanding request.
package openai

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	goopenai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/longkey1/llmchat/internal/llmc"
	"github.com/longkey1/llmchat/internal/llmc/failure"
	"github.com/longkey1/llmchat/internal/logger"
)

const (
	DefaultTestTimeout = 10 * time.Second

	// Keys shorter than this are sent anyway but logged as suspicious.
	minPlausibleKeyLength = 10
)

// Status is the state of the outstanding request.
type Status int

const (
	Idle Status = iota
	InFlight
	Cancelled
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case InFlight:
		return "in-flight"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Client sends chat completion requests. At most one request started by Send
// is live at any time: starting a new one cancels the previous one.
type Client struct {
	httpClient  *http.Client
	testTimeout time.Duration
	log         logrus.FieldLogger

	mu     sync.Mutex
	seq    uint64
	status Status
	cancel context.CancelFunc
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for every request.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTestTimeout sets the wall-clock limit of TestConnection.
func WithTestTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.testTimeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// NewClient creates a Client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:  newHTTPClient(),
		testTimeout: DefaultTestTimeout,
		log:         logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// newHTTPClient has no overall timeout; requests are bounded by their context.
func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// Status returns the state of the outstanding request.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Send cancels any outstanding request, then sends text and attachments as
// one user turn and waits for the completion.
func (c *Client) Send(ctx context.Context, text string, attachments []llmc.Attachment, settings llmc.Settings) llmc.Outcome {
	c.Cancel()

	if err := settings.Validate(); err != nil {
		c.idle()
		return llmc.FailedOutcome(err)
	}

	log := c.log.WithFields(logrus.Fields{
		"request_id":  uuid.NewString(),
		"provider":    settings.Provider,
		"model":       settings.Model,
		"attachments": len(attachments),
	})
	if len(strings.TrimSpace(settings.APIKey)) < minPlausibleKeyLength {
		log.Warn("API key seems too short")
	}

	reqCtx, cancel := context.WithCancel(ctx)
	seq := c.begin(cancel)

	log.Debug("Sending chat completion request")
	resp, err := c.api(settings).CreateChatCompletion(reqCtx, BuildRequest(text, attachments, settings))

	owned := c.settle(seq)
	ctxErr := reqCtx.Err()
	cancel()

	if !owned || errors.Is(ctxErr, context.Canceled) {
		log.Info("Request cancelled")
		return llmc.CancelledOutcome()
	}
	if err != nil {
		fe := classify(err)
		log.WithError(err).WithField("kind", fe.Kind).Warn("Chat completion request failed")
		return llmc.FailedOutcome(fe)
	}

	content, fe := extractCompletion(resp)
	if fe != nil {
		log.WithField("kind", fe.Kind).Warn("Malformed chat completion response")
		return llmc.FailedOutcome(fe)
	}

	log.WithField("length", len(content)).Debug("Chat completion received")
	return llmc.CompletedOutcome(content)
}

// Cancel aborts the outstanding request, if any. Its Send resolves Cancelled;
// Status reports Cancelled until that request settles.
func (c *Client) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel == nil {
		return false
	}
	c.cancel()
	c.cancel = nil
	c.status = Cancelled
	return true
}

// begin records a new outstanding request and returns its sequence number.
func (c *Client) begin(cancel context.CancelFunc) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	c.cancel = cancel
	c.status = InFlight
	return c.seq
}

// settle returns the status to idle if seq is still the latest request. It
// reports whether the request ended without being cancelled or superseded.
func (c *Client) settle(seq uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.seq != seq {
		return false
	}
	owned := c.cancel != nil
	c.cancel = nil
	c.status = Idle
	return owned
}

// idle resets the status when no request is outstanding.
func (c *Client) idle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel == nil {
		c.status = Idle
	}
}

// TestConnection sends a fixed probe request bounded by the test timeout.
// It is independent of the request started by Send.
func (c *Client) TestConnection(ctx context.Context, settings llmc.Settings) llmc.Outcome {
	if err := settings.Validate(); err != nil {
		return llmc.FailedOutcome(err)
	}

	log := c.log.WithFields(logrus.Fields{
		"provider": settings.Provider,
		"model":    settings.Model,
		"timeout":  c.testTimeout,
	})

	ctx, cancel := context.WithTimeout(ctx, c.testTimeout)
	defer cancel()

	resp, err := c.api(settings).CreateChatCompletion(ctx, probeRequest(settings))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			log.Warn("Connection test timed out")
			return llmc.FailedOutcome(failure.New(failure.Timeout, err))
		}
		if errors.Is(err, context.Canceled) {
			return llmc.CancelledOutcome()
		}
		fe := classify(err)
		log.WithError(err).WithField("kind", fe.Kind).Warn("Connection test failed")
		return llmc.FailedOutcome(fe)
	}

	content, fe := extractCompletion(resp)
	if fe != nil {
		return llmc.FailedOutcome(fe)
	}

	log.Debug("Connection test succeeded")
	return llmc.CompletedOutcome(content)
}

// ListModels returns the models offered by the configured provider.
func (c *Client) ListModels(ctx context.Context, settings llmc.Settings) ([]llmc.ModelInfo, error) {
	if strings.TrimSpace(settings.APIKey) == "" {
		return nil, failure.New(failure.MissingCredential, nil)
	}

	list, err := c.api(settings).ListModels(ctx)
	if err != nil {
		return nil, classify(err)
	}

	models := make([]llmc.ModelInfo, 0, len(list.Models))
	for _, m := range list.Models {
		models = append(models, llmc.ModelInfo{ID: m.ID, OwnedBy: m.OwnedBy})
	}
	return models, nil
}

func (c *Client) api(settings llmc.Settings) *goopenai.Client {
	cfg := goopenai.DefaultConfig(strings.TrimSpace(settings.APIKey))
	if settings.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(settings.BaseURL, "/")
	}
	cfg.HTTPClient = c.httpClient
	return goopenai.NewClientWithConfig(cfg)
}
