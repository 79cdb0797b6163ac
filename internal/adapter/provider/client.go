// Package provider talks to the banking-as-a-service provider.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/vaultledger/internal/domain"
	"github.com/iho/vaultledger/internal/infrastructure/signing"
	"github.com/iho/vaultledger/internal/usecase"
)

// StatusOK is the provider's business status for an accepted call.
const StatusOK = usecase.ProviderStatusOK

const maxResponseBytes = 1 << 20

// API selects one of the provider's two base URLs.
type API int

const (
	// APICollection serves virtual accounts and inbound collections.
	APICollection API = iota
	// APIBusiness serves payouts and the settlement wallet.
	APIBusiness
)

func (a API) String() string {
	if a == APIBusiness {
		return "business"
	}
	return "collection"
}

// Config holds provider credentials and endpoints.
type Config struct {
	Username          string
	Secret            string
	HashSecret        string
	CollectionBaseURL string
	BusinessBaseURL   string
	SourceAccount     string
	Timeout           time.Duration
}

// Observer records provider round trips.
type Observer interface {
	ObserveProviderCall(endpoint, outcome string, d time.Duration)
}

// Request is one signed call to the provider.
type Request struct {
	// Operation names the call in errors, logs and metrics.
	Operation string
	API       API
	Path      string
	Reference string
	// FieldsToHash are signed in the provider's documented order.
	FieldsToHash []string
	Body         any
}

// Status is the business status every provider response carries.
type Status struct {
	StatusCode    string `json:"statusCode"`
	StatusMessage string `json:"statusMessage,omitempty"`
	ErrorMessage  string `json:"errorMessage,omitempty"`
	Message       string `json:"message,omitempty"`
}

func (s Status) bestMessage() string {
	for _, m := range []string{s.StatusMessage, s.ErrorMessage, s.Message} {
		if strings.TrimSpace(m) != "" {
			return m
		}
	}
	return ""
}

// Client signs and sends provider requests. It is safe for concurrent use.
type Client struct {
	cfg        Config
	httpClient *http.Client
	observer   Observer
	logger     zerolog.Logger
}

// NewClient creates a provider client. observer may be nil.
func NewClient(cfg Config, observer Observer, logger zerolog.Logger) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &signingTransport{
				base:     http.DefaultTransport,
				username: cfg.Username,
				secret:   cfg.Secret,
			},
		},
		observer: observer,
		logger:   logger.With().Str("component", "provider").Logger(),
	}
}

func (c *Client) baseURL(api API) string {
	if api == APIBusiness {
		return c.cfg.BusinessBaseURL
	}
	return c.cfg.CollectionBaseURL
}

// Post sends req and decodes the response into out, which may be nil.
// Transport failures and non-ok statuses come back as *domain.ProviderError.
func (c *Client) Post(ctx context.Context, req Request, out any) error {
	start := time.Now()
	operation := req.Operation
	status, err := c.post(ctx, req, out)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		var perr *domain.ProviderError
		if errors.As(err, &perr) && (perr.StatusCode != "" || perr.HTTPStatus != 0) {
			outcome = "rejected"
		}
	}
	if c.observer != nil {
		c.observer.ObserveProviderCall(operation, outcome, time.Since(start))
	}

	c.logger.Debug().
		Str("operation", operation).
		Str("api", req.API.String()).
		Str("reference", req.Reference).
		Str("status_code", status).
		Str("outcome", outcome).
		Dur("duration", time.Since(start)).
		Msg("provider call")

	return err
}

func (c *Client) post(ctx context.Context, req Request, out any) (string, error) {
	operation := req.Operation
	payload, err := json.Marshal(req.Body)
	if err != nil {
		return "", fmt.Errorf("encode %s request: %w", operation, err)
	}

	url := strings.TrimRight(c.baseURL(req.API), "/") + "/" + strings.TrimLeft(req.Path, "/")
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build %s request: %w", operation, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(signing.HeaderName, signing.RequestHash(req.Reference, req.FieldsToHash, c.cfg.HashSecret))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &domain.ProviderError{Operation: operation, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", &domain.ProviderError{Operation: operation, HTTPStatus: resp.StatusCode, Message: err.Error()}
	}

	var status Status
	decodeErr := json.Unmarshal(body, &status)

	if resp.StatusCode >= http.StatusBadRequest || decodeErr != nil || status.StatusCode != StatusOK {
		msg := status.bestMessage()
		switch {
		case msg != "":
		case decodeErr != nil:
			msg = fmt.Sprintf("unreadable response (HTTP %d)", resp.StatusCode)
		default:
			msg = fmt.Sprintf("unexpected response (HTTP %d)", resp.StatusCode)
		}
		return status.StatusCode, &domain.ProviderError{
			Operation:  operation,
			StatusCode: status.StatusCode,
			HTTPStatus: resp.StatusCode,
			Message:    msg,
		}
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return status.StatusCode, fmt.Errorf("decode %s response: %w", operation, err)
		}
	}
	return status.StatusCode, nil
}

// signingTransport attaches the provider's authentication headers to every request.
type signingTransport struct {
	base     http.RoundTripper
	username string
	secret   string
}

func (t *signingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.SetBasicAuth(t.username, t.secret)
	r.Header.Set("principal", t.username)
	r.Header.Set("credentials", t.secret)
	return t.base.RoundTrip(r)
}
