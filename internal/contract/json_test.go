package contract

import (
	"encoding/json"
	"testing"

	"github.com/fyrsmithlabs/autodev/internal/project"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain object", `  {"a":1}  `, `{"a":1}`},
		{"plain prose untouched", "no json here", "no json here"},
		{"fenced object", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced array", "```\n[\"https://a.example\"]\n```", `["https://a.example"]`},
		{"prose before fence", "Here is the result:\n```json\n{\"x\":1}\n```", `{"x":1}`},
		{"array containing objects", "```json\n[{\"route\":\"/a\"},{\"route\":\"/b\"}]\n```", `[{"route":"/a"},{"route":"/b"}]`},
		{"object containing array", "```json\n{\"urls\":[\"a\",\"b\"]}\n```", `{"urls":["a","b"]}`},
		{"fence without json", "```\nhello\n```", "```\nhello\n```"},
		{"unbalanced", "```json\n{\"a\":1\n```", "```json\n{\"a\":1\n```"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.in))
		})
	}
}

func TestExtractJSON_ScopeDecisionRoundTrip(t *testing.T) {
	want := project.ScopeDecision{
		IsCRUDRequired:         true,
		IsUserLoginAndLogout:   false,
		IsExternalURLsRequired: true,
	}
	raw, err := json.Marshal(want)
	require.NoError(t, err)

	wrapped := "Sure! Here you go:\n```json\n" + string(raw) + "\n```\nLet me know if you need anything else."

	var got project.ScopeDecision
	require.NoError(t, json.Unmarshal([]byte(ExtractJSON(wrapped)), &got))
	assert.Equal(t, want, got)
}
