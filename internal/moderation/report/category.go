package report

import "strings"

// Category is one of the fixed reasons a message can be reported for.
type Category struct {
	// Label is the keyword the reporter types, and the display label
	// carried into the moderator notification.
	Label string
	// HighPriority marks categories that need expedited human review.
	HighPriority bool
}

// Categories enumerates every report reason, in prompt order.
var Categories = []Category{
	{Label: "spam"},
	{Label: "dislike"},
	{Label: "hate speech"},
	{Label: "doxxing"},
	{Label: "threat"},
	{Label: "harassment"},
	{Label: "self-harm"},
	{Label: "nudity"},
	{Label: "child sexual abuse material", HighPriority: true},
	{Label: "adult sexual abuse material", HighPriority: true},
}

// MatchCategory matches user input against the category enumeration,
// ignoring case and surrounding whitespace.
func MatchCategory(input string) (Category, bool) {
	trimmed := strings.TrimSpace(input)
	for _, category := range Categories {
		if strings.EqualFold(trimmed, category.Label) {
			return category, true
		}
	}
	return Category{}, false
}
