package models

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConversation_Full(t *testing.T) {
	body := `{
		"id": "abc12345xyz",
		"created_at": "2025-01-15T10:00:00Z",
		"structured": {
			"title": "Standup",
			"overview": "Discussed roadmap",
			"category": "business",
			"action_items": [{"description": "Write doc"}, "Call Bob", 42, {"completed": true}]
		},
		"transcript_segments": [{"text": " Hi ", "speaker": "S1", "start": 0.4, "end": 2.9, "is_user": true}]
	}`

	record, err := ParseConversation([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, "abc12345xyz", record.ID)
	assert.Equal(t, "abc12345", record.ShortID())
	assert.Equal(t, "business", record.Category())
	assert.True(t, record.HasTranscript())
	require.Len(t, record.Structured.ActionItems, 4)

	items := record.Structured.ActionItems
	assert.Equal(t, ActionItemStructured, items[0].Kind)
	assert.Equal(t, "Write doc", items[0].Label())
	assert.Equal(t, ActionItemPlainText, items[1].Kind)
	assert.Equal(t, "Call Bob", items[1].Label())
	assert.Equal(t, "42", items[2].Label())
	assert.Equal(t, ActionItemStructured, items[3].Kind)
	assert.Equal(t, "", items[3].Label())
}

func TestParseConversation_Empty(t *testing.T) {
	record, err := ParseConversation([]byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "", record.ID)
	assert.Equal(t, "other", record.Category())
	assert.False(t, record.HasTranscript())
	assert.Equal(t, "", record.ShortID())
}

func TestParseConversation_NonObjectIsEmptyRecord(t *testing.T) {
	record, err := ParseConversation([]byte(`[1, 2, 3]`))
	require.NoError(t, err)
	assert.Equal(t, ConversationRecord{}, record)
}

func TestParseConversation_InvalidJSON(t *testing.T) {
	_, err := ParseConversation([]byte(`{"id": `))
	assert.Error(t, err)

	_, err = ParseConversation(nil)
	assert.Error(t, err)
}

func TestRawJSON_PreservesNonASCIIAndIndents(t *testing.T) {
	record, err := ParseConversation([]byte(`{"id":"c1","structured":{"title":"朝会 <draft>"}}`))
	require.NoError(t, err)

	raw, err := record.RawJSON()
	require.NoError(t, err)
	text := string(raw)
	assert.Contains(t, text, "朝会 <draft>")
	assert.True(t, strings.HasPrefix(text, "{\n  \"id\": \"c1\""))
}

func TestParseConversation_NonStringCreatedAtIsIgnored(t *testing.T) {
	for _, value := range []string{`1736935200`, `{"seconds": 1}`, `true`, `null`} {
		record, err := ParseConversation([]byte(`{"id":"c1","created_at":` + value + `}`))
		require.NoError(t, err, value)
		assert.Equal(t, Timestamp(""), record.CreatedAt, value)
		assert.Equal(t, "c1", record.ID)
	}

	record, err := ParseConversation([]byte(`{"created_at":"2025-01-15T10:00:00Z"}`))
	require.NoError(t, err)
	assert.Equal(t, Timestamp("2025-01-15T10:00:00Z"), record.CreatedAt)
}

func TestShortID_CountsCharacters(t *testing.T) {
	record := ConversationRecord{ID: "会話会話会話会話会話"}
	short := record.ShortID()
	assert.True(t, utf8.ValidString(short))
	assert.Equal(t, "会話会話会話会話", short)

	record.ID = "会話会話会話"
	assert.Equal(t, "会話会話会話", record.ShortID())
}
