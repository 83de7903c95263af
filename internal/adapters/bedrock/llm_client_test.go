package bedrock

import (
	"encoding/json"
	"testing"

	"github.com/nalgeon/be"

	"github.com/mikey/email-tldr/internal/core"
)

var _ core.Model = (*BedrockClient)(nil)

func TestBuildPayload(t *testing.T) {
	tests := []struct {
		model string
		key   string
	}{
		{"anthropic.claude-3-haiku-20240307-v1:0", "messages"},
		{"amazon.titan-text-express-v1", "textGenerationConfig"},
		{"meta.llama3-8b-instruct-v1:0", "prompt"},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			data, err := buildPayload(tt.model, "Invoice due Friday", 200, 0.1)
			be.Err(t, err, nil)
			var got map[string]any
			be.Err(t, json.Unmarshal(data, &got), nil)
			_, ok := got[tt.key]
			be.True(t, ok)
		})
	}
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		model string
		body  string
		want  string
	}{
		{"anthropic.claude-3-haiku", `{"content":[{"type":"text","text":"Invoice due."}]}`, "Invoice due."},
		{"amazon.titan-text-lite-v1", `{"results":[{"outputText":"Meeting at 3pm."}]}`, "Meeting at 3pm."},
		{"meta.llama3", `{"generation":"Lunch moved."}`, "Lunch moved."},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			got, err := parseResponse(tt.model, []byte(tt.body))
			be.Err(t, err, nil)
			be.Equal(t, got, tt.want)
		})
	}

	_, err := parseResponse("amazon.titan-text-lite-v1", []byte(`{"results":[]}`))
	be.True(t, err != nil)
}
