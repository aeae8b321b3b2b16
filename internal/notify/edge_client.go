package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/backend-tour/internal/obs"
	"github.com/noah-isme/backend-tour/internal/resilience"
)

// ErrNotConfigured is returned when the email function URL is missing.
var ErrNotConfigured = errors.New("notify: email function not configured")

// EdgeFunctionClient posts messages to the hosted email function.
type EdgeFunctionClient struct {
	URL      string
	APIKey   string
	FromName string
	HTTP     resilience.HTTPClient
}

type edgePayload struct {
	To             string `json:"to"`
	Subject        string `json:"subject"`
	HTMLBody       string `json:"htmlBody"`
	FromName       string `json:"fromName,omitempty"`
	PDFAttachment  string `json:"pdfAttachment,omitempty"`
	AttachmentName string `json:"attachmentName,omitempty"`
}

// Send delivers msg. A transport failure or a non-2xx response is returned
// as an error; a 2xx response is decoded into Result as-is.
func (c *EdgeFunctionClient) Send(ctx context.Context, msg Message) (Result, error) {
	if c == nil || strings.TrimSpace(c.URL) == "" {
		return Result{}, ErrNotConfigured
	}
	ctx, span := otel.Tracer("notify.EdgeFunctionClient").Start(ctx, "EdgeFunctionClient.Send")
	defer span.End()
	span.SetAttributes(attribute.Bool("email.has_attachment", len(msg.PDFAttachment) > 0))

	if err := validateURL(c.URL); err != nil {
		span.RecordError(err)
		return Result{}, err
	}
	payload := edgePayload{
		To:             msg.To,
		Subject:        msg.Subject,
		HTMLBody:       msg.HTMLBody,
		FromName:       c.FromName,
		AttachmentName: msg.AttachmentName,
	}
	if len(msg.PDFAttachment) > 0 {
		payload.PDFAttachment = base64.StdEncoding.EncodeToString(msg.PDFAttachment)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		span.RecordError(err)
		return Result{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		span.RecordError(err)
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "backend-tour-mailer/1.0")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	start := time.Now()
	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		observeDispatch("error", start)
		span.RecordError(err)
		return Result{}, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		observeDispatch("error", start)
		span.RecordError(err)
		return Result{}, err
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	var result Result
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &result); err != nil && resp.StatusCode < 300 {
			observeDispatch("error", start)
			return Result{}, fmt.Errorf("decode email function response: %w", err)
		}
	}
	if resp.StatusCode >= 300 {
		observeDispatch("failed", start)
		if result.Error != "" {
			return result, errors.New(result.Error)
		}
		return Result{}, fmt.Errorf("email function returned %s", resp.Status)
	}
	if result.Success {
		observeDispatch("sent", start)
	} else {
		observeDispatch("failed", start)
	}
	return result, nil
}

func observeDispatch(result string, start time.Time) {
	if obs.EmailDispatchTotal != nil {
		obs.EmailDispatchTotal.WithLabelValues(result).Inc()
	}
	if obs.EmailDispatchLatency != nil {
		obs.EmailDispatchLatency.WithLabelValues(result).Observe(obs.DurationMillis(time.Since(start)))
	}
}

func validateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid email function url: %w", err)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return errors.New("email function url must be http or https")
	}
	if parsed.Scheme == "http" {
		host := parsed.Hostname()
		if host != "localhost" && host != "127.0.0.1" {
			return errors.New("http email function only allowed for localhost")
		}
	}
	if parsed.Host == "" {
		return errors.New("email function url must include host")
	}
	return nil
}

// HTTPClient returns a traced HTTP client for the email function.
func HTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// NewEdgeFunctionClient wires the client behind a circuit breaker. Sends are
// attempted once; the email function owns retries.
func NewEdgeFunctionClient(endpoint, apiKey, fromName string, timeout time.Duration) *EdgeFunctionClient {
	return &EdgeFunctionClient{
		URL:      endpoint,
		APIKey:   apiKey,
		FromName: fromName,
		HTTP: resilience.HTTPClient{
			Client:      HTTPClient(timeout),
			Breaker:     resilience.NewBreaker(5, 0.5, 30*time.Second).WithTarget("email-function"),
			MaxAttempts: 1,
			Timeout:     timeout,
			Target:      "email-function",
		},
	}
}
