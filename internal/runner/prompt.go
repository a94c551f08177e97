package runner

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/jsahoo/recall/internal/model"
)

const (
	promptHistoryTurns = 5
	promptShortTerm    = 3
)

// buildEnrichedPrompt concatenates the retrieved context blocks in fixed
// order, ending with the literal current request. Blocks with no data are
// omitted entirely.
func buildEnrichedPrompt(
	prompt string,
	history []model.Turn,
	shortTerm []model.ShortTermMemory,
	longTerm []model.LongTermMemory,
	extra map[string]any,
) string {
	var parts []string

	if len(history) > 0 {
		parts = append(parts, "=== Previous Conversation ===")
		turns := history
		if len(turns) > promptHistoryTurns {
			turns = turns[len(turns)-promptHistoryTurns:]
		}
		for _, t := range turns {
			parts = append(parts, fmt.Sprintf("%s: %s", capitalize(t.Role), t.Content))
		}
		parts = append(parts, "")
	}

	if len(longTerm) > 0 {
		parts = append(parts, "=== Relevant Context ===")
		for _, m := range longTerm {
			parts = append(parts, fmt.Sprintf("- %s: %s", m.Key, renderValue(m.Value)))
		}
		parts = append(parts, "")
	}

	if len(shortTerm) > 0 {
		parts = append(parts, "=== Recent Session Context ===")
		recent := shortTerm
		if len(recent) > promptShortTerm {
			recent = recent[:promptShortTerm]
		}
		for _, m := range recent {
			parts = append(parts, fmt.Sprintf("- %s: %s", m.Key, renderValue(m.Value)))
		}
		parts = append(parts, "")
	}

	if len(extra) > 0 {
		parts = append(parts, "=== Additional Context ===")
		keys := make([]string, 0, len(extra))
		for k := range extra {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("- %s: %s", k, renderValue(extra[k])))
		}
		parts = append(parts, "")
	}

	parts = append(parts, "=== Current Request ===", prompt)

	return strings.Join(parts, "\n")
}

// renderValue flattens a stored value for prompt text. Strings pass through;
// structured values render as compact JSON.
func renderValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	default:
		if b, err := json.Marshal(v); err == nil {
			return string(b)
		}
		return fmt.Sprintf("%v", v)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
