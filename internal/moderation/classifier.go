package moderation

// VerdictKind is the overall outcome of evaluating a message's scores.
type VerdictKind int

const (
	// VerdictClean means no attribute exceeded its questionable threshold.
	VerdictClean VerdictKind = iota
	// VerdictQuestionable means at least one attribute exceeded its
	// questionable threshold but none exceeded its toxic threshold.
	VerdictQuestionable
	// VerdictToxic means at least one attribute exceeded its toxic threshold.
	VerdictToxic
)

// String returns the name of the verdict kind.
func (k VerdictKind) String() string {
	switch k {
	case VerdictClean:
		return "clean"
	case VerdictQuestionable:
		return "questionable"
	case VerdictToxic:
		return "toxic"
	default:
		return "unknown"
	}
}

// Verdict is the result of threshold evaluation: the overall kind plus
// the attributes that triggered it, in evaluation order.
type Verdict struct {
	Kind      VerdictKind
	Triggered []Attribute
}

// Classify evaluates a score map against the attribute policy table.
//
// If any attribute exceeds its toxic threshold, the verdict is toxic and
// the triggered set contains exactly the attributes above their toxic
// threshold; attributes that only reached the questionable tier are
// dropped. Otherwise, if any attribute exceeds its questionable
// threshold, the verdict is questionable with those attributes.
// Otherwise the verdict is clean with an empty set.
//
// Attributes without a policy table entry are skipped.
func Classify(scores ScoreMap) Verdict {
	var toxic, questionable []Attribute

	for _, attribute := range AllAttributes {
		score, ok := scores[attribute]
		if !ok {
			continue
		}

		policy := attributePolicies[attribute]
		switch {
		case score > policy.ToxicThreshold:
			toxic = append(toxic, attribute)
		case score > policy.QuestionableThreshold:
			questionable = append(questionable, attribute)
		}
	}

	switch {
	case len(toxic) > 0:
		return Verdict{Kind: VerdictToxic, Triggered: toxic}
	case len(questionable) > 0:
		return Verdict{Kind: VerdictQuestionable, Triggered: questionable}
	default:
		return Verdict{Kind: VerdictClean}
	}
}
