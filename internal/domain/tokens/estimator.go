// Package tokens estimates token costs before a model call, when the true
// usage is not yet known. Estimates feed reservations and are reconciled
// against provider-reported usage afterwards, so they only need to be in the
// right ballpark.
package tokens

import "strings"

const (
	// charsPerToken is the rough English-text ratio.
	charsPerToken = 4
	// messageOverhead covers the per-message framing the chat format adds.
	messageOverhead = 4
	// replyMultiplier sizes the expected completion relative to the prompt.
	replyMultiplier = 2
	// minReservation keeps holds meaningful for very short prompts.
	minReservation = 50
)

// EstimateText approximates the token count of a plain string, rounding up.
func EstimateText(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + charsPerToken - 1) / charsPerToken
}

// EstimatePrompt approximates the prompt-side cost of a chat request: every
// message's content plus framing overhead.
func EstimatePrompt(messages []string) int {
	total := 0
	for _, m := range messages {
		total += EstimateText(m) + messageOverhead
	}
	return total
}

// EstimateExchange sizes a reservation for a full exchange: the prompt plus
// an allowance for the reply. The result is what gets held against the
// budget and later reconciled.
func EstimateExchange(messages []string) int {
	prompt := EstimatePrompt(messages)
	estimate := prompt * (1 + replyMultiplier)
	if estimate < minReservation {
		return minReservation
	}
	return estimate
}

// contextWindows maps model name prefixes to their context sizes. Unknown
// models fall back to the smallest window.
var contextWindows = []struct {
	prefix string
	window int
}{
	{"gpt-4o", 128000},
	{"gpt-4-turbo", 128000},
	{"gpt-4.1", 128000},
	{"gpt-4", 8192},
	{"gpt-3.5-turbo-16k", 16385},
	{"gpt-3.5", 16385},
	{"o1", 200000},
	{"o3", 200000},
}

const defaultContextWindow = 8192

// ContextWindow returns the context size for a model name.
func ContextWindow(model string) int {
	for _, cw := range contextWindows {
		if strings.HasPrefix(model, cw.prefix) {
			return cw.window
		}
	}
	return defaultContextWindow
}

// CapToContext clamps a completion budget so prompt plus completion fit the
// model's context window. Returns zero when the prompt alone fills it.
func CapToContext(model string, promptTokens, maxCompletion int) int {
	room := ContextWindow(model) - promptTokens
	if room <= 0 {
		return 0
	}
	if maxCompletion > 0 && maxCompletion < room {
		return maxCompletion
	}
	return room
}
