package perspective_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/bytedance/sonic"
	"github.com/redis/rueidis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/modsentry/modsentry/internal/moderation"
	"github.com/modsentry/modsentry/internal/perspective"
	"github.com/modsentry/modsentry/internal/setup/config"
)

// newTestClient wires a scoring client against the given test server.
func newTestClient(t *testing.T, serverURL string) *perspective.Client {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	redisClient, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)
	t.Cleanup(redisClient.Close)

	cfg := &config.Config{
		Perspective: config.Perspective{
			APIKey:         "test-key",
			Endpoint:       serverURL,
			RequestTimeout: 2000,
		},
		Retry: config.Retry{
			MaxRetries: 1,
			Delay:      10,
			MaxDelay:   20,
		},
		CircuitBreaker: config.CircuitBreaker{
			MaxRequests: 1,
			Interval:    1000,
			Timeout:     1000,
		},
	}

	return perspective.NewClient(cfg, redisClient, zaptest.NewLogger(t))
}

func TestScore(t *testing.T) {
	t.Parallel()

	var requestBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		var err error
		requestBody, err = io.ReadAll(r.Body)
		assert.NoError(t, err)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"attributeScores": {
				"TOXICITY":  {"summaryScore": {"value": 0.91}},
				"PROFANITY": {"summaryScore": {"value": 0.12}},
				"THREAT":    {"summaryScore": {"value": 1.5}}
			}
		}`))
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server.URL)

	scores, err := client.Score(t.Context(), "some message")
	require.NoError(t, err)

	assert.InDelta(t, 0.91, scores[moderation.AttributeToxicity], 1e-9)
	assert.InDelta(t, 0.12, scores[moderation.AttributeProfanity], 1e-9)
	assert.InDelta(t, 1.0, scores[moderation.AttributeThreat], 1e-9, "scores are clamped to [0,1]")

	// The request carries the text, every policy attribute and doNotStore.
	var request struct {
		Comment struct {
			Text string `json:"text"`
		} `json:"comment"`
		RequestedAttributes map[string]map[string]string `json:"requestedAttributes"`
		DoNotStore          bool                         `json:"doNotStore"`
	}
	require.NoError(t, sonic.Unmarshal(requestBody, &request))
	assert.Equal(t, "some message", request.Comment.Text)
	assert.True(t, request.DoNotStore)
	assert.Len(t, request.RequestedAttributes, len(moderation.AllAttributes))
	for _, attribute := range moderation.AllAttributes {
		assert.Contains(t, request.RequestedAttributes, string(attribute))
	}
}

func TestScoreUnexpectedStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server.URL)

	_, err := client.Score(t.Context(), "some message")
	require.Error(t, err)
}

func TestScoreMalformedResponse(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server.URL)

	_, err := client.Score(t.Context(), "some message")
	require.ErrorIs(t, err, perspective.ErrMalformedResponse)
}
