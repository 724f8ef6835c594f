package moderation_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/modsentry/modsentry/internal/moderation"
)

func TestFormatVerdict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		verdict moderation.Verdict
		want    string
	}{
		{
			name:    "clean",
			verdict: moderation.Verdict{Kind: moderation.VerdictClean},
			want:    "This message seems to be okay",
		},
		{
			name: "toxic single attribute",
			verdict: moderation.Verdict{
				Kind:      moderation.VerdictToxic,
				Triggered: []moderation.Attribute{moderation.AttributeToxicity},
			},
			want: "This message is toxic.",
		},
		{
			name: "toxic two attributes",
			verdict: moderation.Verdict{
				Kind: moderation.VerdictToxic,
				Triggered: []moderation.Attribute{
					moderation.AttributeThreat,
					moderation.AttributeProfanity,
				},
			},
			want: "This message is threatening and profane.",
		},
		{
			name: "toxic three attributes",
			verdict: moderation.Verdict{
				Kind: moderation.VerdictToxic,
				Triggered: []moderation.Attribute{
					moderation.AttributeIdentityAttack,
					moderation.AttributeSevereToxicity,
					moderation.AttributeProfanity,
				},
			},
			want: "This message is attacking identity, vulgar and profane.",
		},
		{
			name: "questionable single attribute",
			verdict: moderation.Verdict{
				Kind:      moderation.VerdictQuestionable,
				Triggered: []moderation.Attribute{moderation.AttributeFlirtation},
			},
			want: "WARNING: This message might be flirtatious.",
		},
		{
			name: "questionable two attributes",
			verdict: moderation.Verdict{
				Kind: moderation.VerdictQuestionable,
				Triggered: []moderation.Attribute{
					moderation.AttributeToxicity,
					moderation.AttributeProfanity,
				},
			},
			want: "WARNING: This message might be toxic and profane.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := moderation.FormatVerdict(tt.verdict)
			assert.Equal(t, tt.want, got)

			// Single-item lists never contain "and"; longer lists contain
			// exactly one, before the last adjective.
			if len(tt.verdict.Triggered) <= 1 {
				assert.NotContains(t, got, " and ")
			} else {
				assert.Equal(t, 1, strings.Count(got, " and "))
			}
		})
	}
}
