package moderation

import "strings"

// CleanMessage is the fixed reply for messages that pass every threshold.
const CleanMessage = "This message seems to be okay"

// FormatVerdict turns a verdict into the user-facing moderation text.
// Toxic verdicts state the finding directly, questionable verdicts hedge
// with a warning, and clean verdicts return the fixed okay sentence.
func FormatVerdict(verdict Verdict) string {
	switch verdict.Kind {
	case VerdictToxic:
		return "This message is " + joinPhrases(verdict.Triggered) + "."
	case VerdictQuestionable:
		return "WARNING: This message might be " + joinPhrases(verdict.Triggered) + "."
	default:
		return CleanMessage
	}
}

// joinPhrases joins attribute display phrases into a natural-language
// list: a single item stands bare, two or more items are joined with
// commas and a final "and" before the last item.
func joinPhrases(attributes []Attribute) string {
	phrases := make([]string, 0, len(attributes))
	for _, attribute := range attributes {
		if policy, ok := attributePolicies[attribute]; ok {
			phrases = append(phrases, policy.Phrase)
		}
	}

	switch len(phrases) {
	case 0:
		return ""
	case 1:
		return phrases[0]
	default:
		return strings.Join(phrases[:len(phrases)-1], ", ") + " and " + phrases[len(phrases)-1]
	}
}
