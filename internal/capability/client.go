// Package capability looks up provider capability profiles from an external
// service to prefill party-fit selections. The service is advisory: a missing
// or malformed profile degrades to empty selections rather than failing the
// assessment.
package capability

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/parley-group/negotiation-cli/internal/model"
)

// Options configures the capability client.
type Options struct {
	BaseURL        string
	Key            string
	Timeout        time.Duration
	MaxRetries     int
	RequestsPerSec float64
}

// Client fetches capability profiles over HTTP with retry and rate limiting.
type Client struct {
	client  *http.Client
	opts    Options
	limiter *rate.Limiter
}

// profile is the wire shape of a capability lookup response. Every field is
// optional; unknown values are dropped during validation.
type profile struct {
	IndustryMatch      string `json:"industry_match"`
	CapabilityCoverage string `json:"capability_coverage"`
	PriorRelationship  string `json:"prior_relationship"`
	RiskPosture        string `json:"risk_posture"`
}

// New creates a capability client.
func New(opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.RequestsPerSec <= 0 {
		opts.RequestsPerSec = 5
	}
	return &Client{
		client:  &http.Client{Timeout: opts.Timeout},
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSec), 1),
	}
}

// Lookup fetches the fit selections recorded for a provider. A missing
// profile or an unparseable response returns empty selections and no error.
func (c *Client) Lookup(ctx context.Context, providerID string) (model.FitSelections, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.opts.BaseURL+"/v1/providers/"+providerID+"/capability", nil)
	if err != nil {
		return model.FitSelections{}, eris.Wrap(err, "capability: create request")
	}
	req.Header.Set("Accept", "application/json")
	if c.opts.Key != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.Key)
	}

	resp, err := c.doWithRetry(ctx, req)
	if err != nil {
		return model.FitSelections{}, eris.Wrapf(err, "capability: lookup provider %s", providerID)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusNotFound {
		zap.L().Debug("no capability profile for provider", zap.String("provider_id", providerID))
		return model.FitSelections{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return model.FitSelections{}, eris.Errorf("capability: unexpected status %d for provider %s", resp.StatusCode, providerID)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return model.FitSelections{}, eris.Wrap(err, "capability: read response")
	}

	var p profile
	if err := json.Unmarshal(body, &p); err != nil {
		zap.L().Warn("malformed capability profile, ignoring",
			zap.String("provider_id", providerID),
			zap.Error(err),
		)
		return model.FitSelections{}, nil
	}

	return sanitize(p), nil
}

// sanitize drops unknown enum values so a sloppy upstream cannot push an
// out-of-vocabulary selection into an assessment.
func sanitize(p profile) model.FitSelections {
	var sel model.FitSelections
	if m := model.IndustryMatch(p.IndustryMatch); m.Valid() {
		sel.IndustryMatch = m
	}
	if c := model.CapabilityCoverage(p.CapabilityCoverage); c.Valid() {
		sel.CapabilityCoverage = c
	}
	if r := model.PriorRelationship(p.PriorRelationship); r.Valid() {
		sel.PriorRelationship = r
	}
	if r := model.RiskPosture(p.RiskPosture); r.Valid() {
		sel.RiskPosture = r
	}
	return sel
}

func (c *Client) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	var lastErr error
	for attempt := range c.opts.MaxRetries {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "rate limiter wait")
		}

		cloned := req.Clone(ctx)
		resp, err := c.client.Do(cloned)
		if err != nil {
			lastErr = err
			zap.L().Warn("capability request failed, retrying",
				zap.String("url", req.URL.String()),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			c.backoff(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			_ = resp.Body.Close()
			lastErr = eris.Errorf("http %d from %s", resp.StatusCode, req.URL.String())
			zap.L().Warn("capability service error, retrying",
				zap.String("url", req.URL.String()),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1),
			)
			c.backoff(ctx, attempt)
			continue
		}

		return resp, nil
	}
	return nil, eris.Wrap(lastErr, "all retries exhausted")
}

func (c *Client) backoff(ctx context.Context, attempt int) {
	base := 250 * time.Millisecond
	maxBackoff := 5 * time.Second
	d := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	if d > maxBackoff {
		d = maxBackoff
	}
	jitter := time.Duration(rand.Int64N(int64(d) / 2))
	d = d + jitter

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
