package usecases

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/0xcro3dile/licenserag-go/internal/domain/entities"
)

func TestBuildPromptContainsContextAndQuestion(t *testing.T) {
	prompt := BuildPrompt("where is MATLAB used?", licenseRecords(), nil)

	assert.True(t, strings.HasPrefix(prompt, "License data:\n"))
	assert.Contains(t, prompt, "MATLAB | 27000@SRV00001 | USA")
	assert.Contains(t, prompt, "Q: where is MATLAB used?")
	assert.True(t, strings.HasSuffix(prompt, "A (2-3 sentences):"))
	assert.NotContains(t, prompt, "Previous:")
}

func TestBuildPromptNoRecords(t *testing.T) {
	prompt := BuildPrompt("anything?", nil, nil)
	assert.Contains(t, prompt, "No relevant records found.")
}

func TestBuildPromptCapsContextRecords(t *testing.T) {
	var records []entities.Record
	for i := 0; i < 10; i++ {
		records = append(records, entities.Record{"software": "SW", "server": "S", "location": "L", "license": "X"})
	}

	prompt := BuildPrompt("q", records, nil)
	assert.Equal(t, maxContextRecords, strings.Count(prompt, "SW | S | L"))
}

func TestBuildPromptIncludesRecentHistoryOnly(t *testing.T) {
	history := []entities.ConversationTurn{
		{Role: "user", Content: "oldest question"},
		{Role: "assistant", Content: "oldest answer"},
		{Role: "user", Content: "older question"},
		{Role: "assistant", Content: "older answer"},
		{Role: "user", Content: "recent question"},
		{Role: "assistant", Content: "recent answer"},
	}

	prompt := BuildPrompt("follow-up", licenseRecords(), history)

	assert.Contains(t, prompt, "Previous:")
	assert.Contains(t, prompt, "User: recent question")
	assert.Contains(t, prompt, "Assistant: recent answer")
	assert.Contains(t, prompt, "User: older question")
	assert.NotContains(t, prompt, "oldest question")
}

func TestBuildPromptSkipsUnknownRoles(t *testing.T) {
	history := []entities.ConversationTurn{
		{Role: "system", Content: "internal note"},
		{Role: "user", Content: "hello"},
	}

	prompt := BuildPrompt("q", nil, history)
	assert.NotContains(t, prompt, "internal note")
	assert.Contains(t, prompt, "User: hello")
}
