package moderation

// Attribute identifies a scored attribute as named by the scoring service.
type Attribute string

const (
	AttributeIdentityAttack Attribute = "IDENTITY_ATTACK"
	AttributeThreat         Attribute = "THREAT"
	AttributeFlirtation     Attribute = "FLIRTATION"
	AttributeToxicity       Attribute = "TOXICITY"
	AttributeSevereToxicity Attribute = "SEVERE_TOXICITY"
	AttributeProfanity      Attribute = "PROFANITY"
)

// AllAttributes lists every attribute in evaluation order. The order is
// fixed so that verdicts and their formatted output are deterministic.
var AllAttributes = []Attribute{
	AttributeIdentityAttack,
	AttributeThreat,
	AttributeFlirtation,
	AttributeToxicity,
	AttributeSevereToxicity,
	AttributeProfanity,
}

// ScoreMap holds per-attribute confidence scores in [0,1] as returned by
// the scoring service for a single message.
type ScoreMap map[Attribute]float64

// AttributePolicy holds the moderation policy for a single attribute.
// Thresholds are policy constants, not derived values.
type AttributePolicy struct {
	// Score above which the attribute is considered toxic.
	ToxicThreshold float64
	// Score above which the attribute is considered questionable.
	QuestionableThreshold float64
	// Human-readable adjective used in moderation messages.
	Phrase string
}

// attributePolicies maps each attribute to its thresholds and display
// phrase. Attributes absent from this table are ignored by evaluation.
var attributePolicies = map[Attribute]AttributePolicy{
	AttributeIdentityAttack: {ToxicThreshold: 0.87, QuestionableThreshold: 0.65, Phrase: "attacking identity"},
	AttributeThreat:         {ToxicThreshold: 0.88, QuestionableThreshold: 0.64, Phrase: "threatening"},
	AttributeFlirtation:     {ToxicThreshold: 1.00, QuestionableThreshold: 0.60, Phrase: "flirtatious"},
	AttributeToxicity:       {ToxicThreshold: 0.86, QuestionableThreshold: 0.66, Phrase: "toxic"},
	AttributeSevereToxicity: {ToxicThreshold: 0.75, QuestionableThreshold: 0.68, Phrase: "vulgar"},
	AttributeProfanity:      {ToxicThreshold: 0.85, QuestionableThreshold: 0.62, Phrase: "profane"},
}

// PolicyFor returns the policy entry for the given attribute.
func PolicyFor(attribute Attribute) (AttributePolicy, bool) {
	policy, ok := attributePolicies[attribute]
	return policy, ok
}
