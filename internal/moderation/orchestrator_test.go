package moderation_test

import (
	"context"
	"errors"
	"testing"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/modsentry/modsentry/internal/gateway"
	"github.com/modsentry/modsentry/internal/moderation"
	"github.com/modsentry/modsentry/internal/moderation/report"
)

const (
	testGuildID   = snowflake.ID(100)
	testChannelID = snowflake.ID(200)
	testMessageID = snowflake.ID(300)
	testReporter  = snowflake.ID(400)
	testOffender  = snowflake.ID(500)
)

const testLink = "https://discord.com/channels/100/200/300"

var errScoringDown = errors.New("scoring service unavailable")

// fakeGateway resolves one known message and records side effects.
type fakeGateway struct {
	message   *gateway.Message
	deleted   []snowflake.ID
	deleteErr error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		message: &gateway.Message{
			ID:         testMessageID,
			ChannelID:  testChannelID,
			GuildID:    testGuildID,
			AuthorID:   testOffender,
			AuthorName: "offender",
			Content:    "some offensive content",
		},
	}
}

func (f *fakeGateway) ResolveGuild(_ context.Context, guildID snowflake.ID) error {
	if guildID != testGuildID {
		return gateway.ErrGuildNotFound
	}
	return nil
}

func (f *fakeGateway) ResolveChannel(_ context.Context, guildID, channelID snowflake.ID) error {
	if guildID != testGuildID || channelID != testChannelID {
		return gateway.ErrChannelNotFound
	}
	return nil
}

func (f *fakeGateway) FetchMessage(_ context.Context, channelID, messageID snowflake.ID) (*gateway.Message, error) {
	if channelID != testChannelID || messageID != testMessageID {
		return nil, gateway.ErrMessageNotFound
	}
	msg := *f.message
	return &msg, nil
}

func (f *fakeGateway) DeleteMessage(_ context.Context, _, messageID snowflake.ID) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeGateway) SendText(_ context.Context, _ snowflake.ID, _ string) error { return nil }

func (f *fakeGateway) SendDirect(_ context.Context, _ snowflake.ID, _ string) error { return nil }

// fakeScorer returns fixed scores and records the texts it was asked about.
type fakeScorer struct {
	scores moderation.ScoreMap
	err    error
	texts  []string
}

func (f *fakeScorer) Score(_ context.Context, text string) (moderation.ScoreMap, error) {
	f.texts = append(f.texts, text)
	if f.err != nil {
		return nil, f.err
	}
	return f.scores, nil
}

var (
	toxicScores = moderation.ScoreMap{
		moderation.AttributeToxicity: 0.95,
	}
	questionableScores = moderation.ScoreMap{
		moderation.AttributeProfanity: 0.70,
	}
	cleanScores = moderation.ScoreMap{
		moderation.AttributeToxicity: 0.10,
	}
)

func channelMessage(author snowflake.ID, content string) moderation.Inbound {
	return moderation.Inbound{
		Message: gateway.Message{
			ID:         snowflake.ID(9000),
			ChannelID:  testChannelID,
			GuildID:    testGuildID,
			AuthorID:   author,
			AuthorName: "author",
			Content:    content,
		},
	}
}

func directMessage(author snowflake.ID, content string) moderation.Inbound {
	return moderation.Inbound{
		Message: gateway.Message{
			ID:        snowflake.ID(9001),
			ChannelID: snowflake.ID(700),
			AuthorID:  author,
			Content:   content,
		},
		IsDM: true,
	}
}

func TestChannelMessageVerdicts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		scores      moderation.ScoreMap
		wantKind    moderation.VerdictKind
		wantDeleted bool
		wantWarning int
	}{
		{
			name:        "clean message",
			scores:      cleanScores,
			wantKind:    moderation.VerdictClean,
			wantWarning: 0,
		},
		{
			name:        "questionable message is not deleted",
			scores:      questionableScores,
			wantKind:    moderation.VerdictQuestionable,
			wantWarning: 0,
		},
		{
			name:        "toxic message is deleted and warned",
			scores:      toxicScores,
			wantKind:    moderation.VerdictToxic,
			wantDeleted: true,
			wantWarning: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gw := newFakeGateway()
			scorer := &fakeScorer{scores: tt.scores}
			orch := moderation.NewOrchestrator(gw, scorer, 3, zaptest.NewLogger(t))

			res, err := orch.HandleMessage(t.Context(), channelMessage(testOffender, "hello"))
			require.NoError(t, err)

			require.NotNil(t, res.Scored)
			assert.Equal(t, tt.wantKind, res.Verdict.Kind)
			assert.NotEmpty(t, res.VerdictText)
			assert.Equal(t, tt.wantWarning, orch.WarningCount(testOffender))

			if tt.wantDeleted {
				assert.NotEmpty(t, gw.deleted)
				assert.Equal(t, "This message has been removed", res.RemovalNotice)
			} else {
				assert.Empty(t, gw.deleted)
				assert.Empty(t, res.RemovalNotice)
			}
		})
	}
}

func TestBanNoticeOnThirdStrike(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	scorer := &fakeScorer{scores: toxicScores}
	orch := moderation.NewOrchestrator(gw, scorer, 3, zaptest.NewLogger(t))

	for strike := 1; strike <= 4; strike++ {
		res, err := orch.HandleMessage(t.Context(), channelMessage(testOffender, "bad message"))
		require.NoError(t, err)

		if strike == 3 {
			assert.Equal(t, "You've been banned from the group", res.BanNotice,
				"ban notice must fire on the third strike")
		} else {
			assert.Empty(t, res.BanNotice, "ban notice must fire only on the third strike (strike %d)", strike)
		}
	}

	assert.Equal(t, 4, orch.WarningCount(testOffender))
}

func TestDeletePermissionDenied(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	gw.deleteErr = gateway.ErrPermissionDenied
	scorer := &fakeScorer{scores: toxicScores}
	orch := moderation.NewOrchestrator(gw, scorer, 3, zaptest.NewLogger(t))

	res, err := orch.HandleMessage(t.Context(), channelMessage(testOffender, "bad message"))
	require.NoError(t, err)

	assert.Equal(t, "Message cannot be deleted because permission was denied", res.RemovalNotice)
	// The verdict and warning still apply.
	assert.Equal(t, moderation.VerdictToxic, res.Verdict.Kind)
	assert.Equal(t, 1, orch.WarningCount(testOffender))
}

func TestScoringFailurePropagates(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	scorer := &fakeScorer{err: errScoringDown}
	orch := moderation.NewOrchestrator(gw, scorer, 3, zaptest.NewLogger(t))

	res, err := orch.HandleMessage(t.Context(), channelMessage(testOffender, "hello"))
	require.ErrorIs(t, err, errScoringDown)

	// No verdict is invented on failure.
	require.NotNil(t, res)
	assert.Nil(t, res.Scored)
	assert.Empty(t, res.VerdictText)
	assert.Equal(t, 0, orch.WarningCount(testOffender))
}

func TestDMIgnoredWithoutReportFlow(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	scorer := &fakeScorer{scores: toxicScores}
	orch := moderation.NewOrchestrator(gw, scorer, 3, zaptest.NewLogger(t))

	res, err := orch.HandleMessage(t.Context(), directMessage(testReporter, "just chatting"))
	require.NoError(t, err)

	assert.Empty(t, res.Replies)
	assert.Nil(t, res.Scored)
	assert.Empty(t, scorer.texts, "conversational messages must not be scored")
	assert.False(t, orch.ActiveReport(testReporter))
}

func TestDMReportFlowEndToEnd(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	scorer := &fakeScorer{scores: toxicScores}
	orch := moderation.NewOrchestrator(gw, scorer, 3, zaptest.NewLogger(t))
	ctx := t.Context()

	// Start the report.
	res, err := orch.HandleMessage(ctx, directMessage(testReporter, report.StartKeyword))
	require.NoError(t, err)
	require.Len(t, res.Replies, 1)
	assert.True(t, orch.ActiveReport(testReporter))
	assert.Empty(t, scorer.texts, "onboarding must not be scored")

	// Identify the message; scoring now runs against the reported content.
	res, err = orch.HandleMessage(ctx, directMessage(testReporter, testLink))
	require.NoError(t, err)
	require.Len(t, res.Replies, 1)
	assert.Contains(t, res.Replies[0], "offender: some offensive content")

	require.NotNil(t, res.Scored)
	assert.Equal(t, testOffender, res.Scored.AuthorID)
	assert.Equal(t, []string{"some offensive content"}, scorer.texts)
	assert.Equal(t, 1, orch.WarningCount(testOffender), "warnings apply to the reported author")
	assert.Equal(t, 0, orch.WarningCount(testReporter))

	// File the report with a category.
	res, err = orch.HandleMessage(ctx, directMessage(testReporter, "hate speech"))
	require.NoError(t, err)
	require.NotNil(t, res.Filed)
	assert.Equal(t, "hate speech", res.Filed.Category.Label)
	assert.Equal(t, "offender", res.Filed.Author)
	assert.Equal(t, "some offensive content", res.Filed.Content)

	// The finished report is evicted from the registry.
	assert.False(t, orch.ActiveReport(testReporter))
}

func TestDMCancelSuppressesScoring(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	scorer := &fakeScorer{scores: toxicScores}
	orch := moderation.NewOrchestrator(gw, scorer, 3, zaptest.NewLogger(t))
	ctx := t.Context()

	_, err := orch.HandleMessage(ctx, directMessage(testReporter, report.StartKeyword))
	require.NoError(t, err)

	_, err = orch.HandleMessage(ctx, directMessage(testReporter, testLink))
	require.NoError(t, err)
	callsAfterIdentify := len(scorer.texts)

	res, err := orch.HandleMessage(ctx, directMessage(testReporter, report.CancelKeyword))
	require.NoError(t, err)
	assert.Contains(t, res.Replies[0], "cancelled")
	assert.Len(t, scorer.texts, callsAfterIdentify, "a cancelled turn must not score")
	assert.False(t, orch.ActiveReport(testReporter))
}
