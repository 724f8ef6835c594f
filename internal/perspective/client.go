// Package perspective calls the Perspective Comment Analyzer API to
// score message text for toxicity attributes.
package perspective

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jaxron/axonet/middleware/circuitbreaker"
	axonetRedis "github.com/jaxron/axonet/middleware/redis"
	"github.com/jaxron/axonet/middleware/retry"
	"github.com/jaxron/axonet/middleware/singleflight"
	"github.com/jaxron/axonet/pkg/client"
	"github.com/jaxron/axonet/pkg/client/middleware"
	"github.com/redis/rueidis"
	"go.uber.org/zap"

	"github.com/modsentry/modsentry/internal/moderation"
	"github.com/modsentry/modsentry/internal/setup/config"
)

// DefaultEndpoint is the Comment Analyzer analyze endpoint.
const DefaultEndpoint = "https://commentanalyzer.googleapis.com/v1alpha1/comments:analyze"

// cacheTTL bounds how long identical scoring requests are served from cache.
const cacheTTL = 1 * time.Hour

var (
	// ErrUnexpectedStatusCode is returned on a non-200 scoring response.
	ErrUnexpectedStatusCode = errors.New("unexpected status code from scoring service")
	// ErrMalformedResponse is returned when the response carries no scores.
	ErrMalformedResponse = errors.New("malformed scoring response")
)

// Client scores text through the Comment Analyzer HTTP API.
type Client struct {
	http     *client.Client
	apiKey   string
	endpoint string
	logger   *zap.Logger
}

// NewClient constructs the scoring client with a middleware chain for
// reliability and performance. Middleware order is important - each
// layer wraps the next in specified priority.
func NewClient(
	cfg *config.Config, redisClient rueidis.Client, zapLogger *zap.Logger,
) *Client {
	middlewares := []middleware.Middleware{
		circuitbreaker.New(
			cfg.CircuitBreaker.MaxRequests,
			time.Duration(cfg.CircuitBreaker.Interval)*time.Millisecond,
			time.Duration(cfg.CircuitBreaker.Timeout)*time.Millisecond,
		),
		retry.New(
			cfg.Retry.MaxRetries,
			time.Duration(cfg.Retry.Delay)*time.Millisecond,
			time.Duration(cfg.Retry.MaxDelay)*time.Millisecond,
		),
		singleflight.New(),
		axonetRedis.New(redisClient, cacheTTL),
	}

	endpoint := cfg.Perspective.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	return &Client{
		http: client.NewClient(
			client.WithMarshalFunc(sonic.Marshal),
			client.WithUnmarshalFunc(sonic.Unmarshal),
			client.WithLogger(newLogger(zapLogger)),
			client.WithTimeout(time.Duration(cfg.Perspective.RequestTimeout)*time.Millisecond),
			client.WithMiddleware(middlewares...),
		),
		apiKey:   cfg.Perspective.APIKey,
		endpoint: endpoint,
		logger:   zapLogger.Named("perspective"),
	}
}

// analyzeRequest is the Comment Analyzer request payload.
type analyzeRequest struct {
	Comment             analyzeComment               `json:"comment"`
	Languages           []string                     `json:"languages"`
	RequestedAttributes map[string]map[string]string `json:"requestedAttributes"`
	DoNotStore          bool                         `json:"doNotStore"`
}

type analyzeComment struct {
	Text string `json:"text"`
}

// analyzeResponse is the subset of the Comment Analyzer response we consume.
type analyzeResponse struct {
	AttributeScores map[string]struct {
		SummaryScore struct {
			Value float64 `json:"value"`
		} `json:"summaryScore"`
	} `json:"attributeScores"`
}

// Score requests scores for every attribute in the policy table and
// returns the per-attribute summary values, clamped to [0,1].
func (c *Client) Score(ctx context.Context, text string) (moderation.ScoreMap, error) {
	requested := make(map[string]map[string]string, len(moderation.AllAttributes))
	for _, attribute := range moderation.AllAttributes {
		requested[string(attribute)] = map[string]string{}
	}

	resp, err := c.http.NewRequest().
		Method(http.MethodPost).
		URL(c.endpoint).
		Query("key", c.apiKey).
		MarshalBody(analyzeRequest{
			Comment:             analyzeComment{Text: text},
			Languages:           []string{"en"},
			RequestedAttributes: requested,
			DoNotStore:          true,
		}).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("scoring request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatusCode, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read scoring response: %w", err)
	}

	var result analyzeResponse
	if err := sonic.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if len(result.AttributeScores) == 0 {
		return nil, ErrMalformedResponse
	}

	scores := make(moderation.ScoreMap, len(result.AttributeScores))
	for name, attribute := range result.AttributeScores {
		scores[moderation.Attribute(name)] = clamp(attribute.SummaryScore.Value)
	}

	c.logger.Debug("Scored message", zap.Int("attributes", len(scores)))
	return scores, nil
}

// clamp restricts a score to [0,1].
func clamp(value float64) float64 {
	switch {
	case value < 0:
		return 0
	case value > 1:
		return 1
	default:
		return value
	}
}
