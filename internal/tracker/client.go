package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/adrinerDP/madrinerbot/internal/obs"
	"github.com/adrinerDP/madrinerbot/internal/resilience"
)

var (
	// ErrOracleUnavailable is returned when the carrier list cannot be fetched.
	ErrOracleUnavailable = errors.New("tracker: oracle unavailable")
	// ErrNotFound is returned for any failed per-carrier lookup: a miss,
	// a timeout, a transport failure or a malformed body.
	ErrNotFound = errors.New("tracker: not found")
)

const (
	defaultBaseURL   = "https://apis.tracker.delivery"
	defaultTimeout   = 1500 * time.Millisecond
	maxResponseBytes = 1 << 20
)

// Oracle answers tracking lookups for a single carrier.
type Oracle interface {
	Track(ctx context.Context, carrierID, trackingID string) (TrackingResult, error)
}

// ClientConfig configures the oracle HTTP client.
type ClientConfig struct {
	BaseURL          string
	Timeout          time.Duration
	BootstrapTimeout time.Duration
	Breakers         *resilience.BreakerGroup
	Transport        http.RoundTripper
	Logger           zerolog.Logger
}

// Client talks to the tracking oracle REST API.
type Client struct {
	baseURL   string
	lookup    resilience.HTTPClient
	breakers  *resilience.BreakerGroup
	bootstrap resilience.HTTPClient
	validate  *validator.Validate
	logger    zerolog.Logger
}

// NewClient constructs a Client. Outbound requests are traced through otelhttp.
func NewClient(cfg ClientConfig) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	bootstrapTimeout := cfg.BootstrapTimeout
	if bootstrapTimeout <= 0 {
		bootstrapTimeout = 10 * time.Second
	}
	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	httpClient := &http.Client{Transport: otelhttp.NewTransport(transport)}
	return &Client{
		baseURL:   base,
		lookup:    resilience.HTTPClient{Client: httpClient, Timeout: timeout},
		bootstrap: resilience.HTTPClient{Client: httpClient, Timeout: bootstrapTimeout},
		breakers:  cfg.Breakers,
		validate:  validator.New(),
		logger:    cfg.Logger,
	}
}

// Carriers fetches the carrier list. Any failure is reported as ErrOracleUnavailable.
func (c *Client) Carriers(ctx context.Context) ([]Carrier, error) {
	ctx, span := obs.Tracer().Start(ctx, "tracker.carriers")
	defer span.End()

	var carriers []Carrier
	status, err := c.getJSON(ctx, c.bootstrap, c.baseURL+"/carriers", &carriers)
	if err == nil && status != http.StatusOK {
		err = fmt.Errorf("unexpected status %d", status)
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
	}

	out := make([]Carrier, 0, len(carriers))
	for _, carrier := range carriers {
		if err := c.validate.Struct(carrier); err != nil {
			c.logger.Warn().Str("carrier_name", carrier.Name).Msg("skipping carrier without id")
			continue
		}
		out = append(out, carrier)
	}
	span.SetAttributes(attribute.Int("carrier.count", len(out)))
	return out, nil
}

// Track looks up trackingID at carrierID. It never returns an error other
// than one wrapping ErrNotFound, so a single carrier miss cannot abort a
// fan-out.
func (c *Client) Track(ctx context.Context, carrierID, trackingID string) (TrackingResult, error) {
	ctx, span := obs.Tracer().Start(ctx, "tracker.track")
	defer span.End()
	span.SetAttributes(attribute.String("carrier.id", carrierID))

	start := time.Now()
	endpoint := fmt.Sprintf("%s/carriers/%s/tracks/%s", c.baseURL, url.PathEscape(carrierID), url.PathEscape(trackingID))

	// Each carrier trips its own breaker; a slow scraper must not take the
	// healthy carriers down with it.
	hc := c.lookup
	hc.Breaker = c.breakers.For(carrierID)

	var result TrackingResult
	status, err := c.getJSON(ctx, hc, endpoint, &result)
	outcome := "found"
	switch {
	case errors.Is(err, resilience.ErrOpenCircuit):
		outcome = "circuit_open"
	case errors.Is(err, context.DeadlineExceeded):
		outcome = "timeout"
	case err != nil:
		outcome = "error"
	case status != http.StatusOK:
		outcome = "not_found"
		err = fmt.Errorf("status %d", status)
	default:
		if result.Carrier.ID == "" {
			result.Carrier.ID = carrierID
		}
		if verr := c.validateResult(result); verr != nil {
			outcome = "malformed"
			err = verr
		}
	}
	obs.ObserveLookup(outcome, obs.DurationMillis(time.Since(start)))
	span.SetAttributes(attribute.String("tracker.outcome", outcome))
	if err != nil {
		c.logger.Debug().Err(err).Str("carrier_id", carrierID).Str("outcome", outcome).Msg("tracker lookup missed")
		return TrackingResult{}, fmt.Errorf("%w: %s: %v", ErrNotFound, carrierID, err)
	}
	return result, nil
}

// validateResult checks the decoded body against the model's tags. Any
// decodable 200 body is a hit; a missing state renders as "-".
func (c *Client) validateResult(result TrackingResult) error {
	return c.validate.Struct(result)
}

func (c *Client) getJSON(ctx context.Context, hc resilience.HTTPClient, endpoint string, dst any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	resp, cancel, err := hc.Do(ctx, req)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
		}
		if cancel != nil {
			cancel()
		}
		return 0, err
	}
	defer cancel()
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(dst); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return resp.StatusCode, nil
}
