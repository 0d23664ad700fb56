package usecases

import (
	"fmt"
	"strings"

	"github.com/0xcro3dile/licenserag-go/internal/domain/entities"
)

const (
	// maxContextRecords bounds how many retrieved records go into the prompt.
	maxContextRecords = 6
	// maxHistoryExchanges bounds how many recent Q&A pairs are replayed.
	maxHistoryExchanges = 2
)

// BuildPrompt assembles retrieved records, recent conversation history, and
// the question into one generation request. The framing is deliberately
// compact: the backend runs small local models with a reduced context window.
func BuildPrompt(question string, records []entities.Record, history []entities.ConversationTurn) string {
	var sb strings.Builder
	sb.WriteString("License data:\n")
	sb.WriteString(buildContextSnippet(records))

	if h := buildHistory(history); h != "" {
		sb.WriteString("\nPrevious:\n")
		sb.WriteString(h)
		sb.WriteString("\n")
	}

	sb.WriteString("\nQ: ")
	sb.WriteString(question)
	sb.WriteString("\nA (2-3 sentences):")
	return sb.String()
}

// buildContextSnippet renders records as one compact line each.
func buildContextSnippet(records []entities.Record) string {
	if len(records) == 0 {
		return "No relevant records found."
	}
	if len(records) > maxContextRecords {
		records = records[:maxContextRecords]
	}

	lines := make([]string, len(records))
	for i, r := range records {
		lines[i] = fmt.Sprintf(
			"%s | %s | %s | license:%s | latest:%s | day_peak:%s | day_avg:%s | work_peak:%s | work_avg:%s",
			r.Field(entities.FieldSoftware),
			r.Field(entities.FieldServer),
			r.Field(entities.FieldLocation),
			r.Field(entities.FieldLicense),
			orZero(r.Field("latest_license_issued")),
			orZero(r.Field("license_day_peak")),
			orZero(r.Field("license_day_average")),
			orZero(r.Field("license_work_peak")),
			orZero(r.Field("license_work_average")),
		)
	}
	return strings.Join(lines, "\n")
}

// buildHistory renders the most recent exchanges as User:/Assistant: lines.
func buildHistory(history []entities.ConversationTurn) string {
	if len(history) == 0 {
		return ""
	}
	if max := maxHistoryExchanges * 2; len(history) > max {
		history = history[len(history)-max:]
	}

	var lines []string
	for _, turn := range history {
		switch turn.Role {
		case "user":
			lines = append(lines, "User: "+turn.Content)
		case "assistant":
			lines = append(lines, "Assistant: "+turn.Content)
		}
	}
	return strings.Join(lines, "\n")
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
