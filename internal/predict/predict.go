// Package predict holds the best-effort text classifiers the orchestrator
// uses: detecting predictive statements worth offering to save, and
// recognizing short follow-up messages that need the last-analysis hint.
//
// Both sit behind narrow interfaces. The rule-based implementations here
// are deliberately replaceable: the boundary of "is this a follow-up"
// is fuzzy, and a model-based classifier can be swapped in without
// touching the orchestrator.
package predict

import (
	"strings"
)

// Draft is a detected predictive statement, offered to the user for
// saving. Never saved silently.
type Draft struct {
	Text   string `json:"text"`
	Source string `json:"source"` // "user" or "assistant"
}

// Detector finds predictive statements in free text.
type Detector interface {
	Detect(text string) []string
}

// FollowUpClassifier decides whether a message is a short affirmative or
// elliptical follow-up that needs the last-analysis hint to resolve.
type FollowUpClassifier interface {
	IsFollowUp(message string) bool
}

// predictionMarkers are phrases that signal a claim about a future
// outcome. Matching is case-insensitive, per sentence.
var predictionMarkers = []string{
	"i predict",
	"will win",
	"will beat",
	"will lose",
	"going to win",
	"going to beat",
	"going to lose",
	"gonna win",
	"gonna beat",
	"will throw for",
	"will rush for",
	"will score",
	"i guarantee",
	"calling it now",
	"mark my words",
	"book it",
}

// RuleDetector is the rule-based Detector.
type RuleDetector struct{}

// Detect returns the sentences of text containing a prediction marker.
func (RuleDetector) Detect(text string) []string {
	var found []string
	for _, sentence := range splitSentences(text) {
		lower := strings.ToLower(sentence)
		for _, marker := range predictionMarkers {
			if strings.Contains(lower, marker) {
				found = append(found, strings.TrimSpace(sentence))
				break
			}
		}
	}
	return found
}

func splitSentences(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	})
}

// affirmativeOpeners start messages like "yes show me" or "sure".
var affirmativeOpeners = []string{
	"yes", "yeah", "yep", "yup", "sure", "ok", "okay", "please",
	"show me", "do it", "go ahead", "that one", "the first", "the second",
	"what about", "how about", "and", "tell me more", "more",
}

// teamWords are the entities that mark a message as a new topic rather
// than a follow-up. Nicknames only; a bare nickname message is handled
// separately by the team-selection flow.
var teamWords = []string{
	"cardinals", "falcons", "ravens", "bills", "panthers", "bears",
	"bengals", "browns", "cowboys", "broncos", "lions", "packers",
	"texans", "colts", "jaguars", "chiefs", "raiders", "chargers",
	"rams", "dolphins", "vikings", "patriots", "saints", "giants",
	"jets", "eagles", "steelers", "49ers", "seahawks", "buccaneers",
	"titans", "commanders",
}

// RuleFollowUp is the rule-based FollowUpClassifier.
type RuleFollowUp struct{}

// IsFollowUp reports whether message reads as a short continuation of
// the previous topic: brief, names no team, and opens affirmatively or
// points back with a pronoun.
func (RuleFollowUp) IsFollowUp(message string) bool {
	msg := strings.ToLower(strings.TrimSpace(message))
	if msg == "" {
		return false
	}

	if len(msg) > 60 || len(strings.Fields(msg)) > 8 {
		return false
	}

	for _, team := range teamWords {
		if strings.Contains(msg, team) {
			return false
		}
	}

	for _, opener := range affirmativeOpeners {
		if msg == opener || strings.HasPrefix(msg, opener+" ") || strings.HasPrefix(msg, opener+",") {
			return true
		}
	}

	// Pronouns reaching back at the prior topic.
	for _, ref := range []string{"that", "this", "it", "those", "them"} {
		for _, w := range strings.Fields(msg) {
			if strings.Trim(w, "?.!,") == ref {
				return true
			}
		}
	}

	return false
}
