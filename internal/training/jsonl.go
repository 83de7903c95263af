package training

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mikey/email-tldr/internal/core"
	"github.com/mikey/email-tldr/internal/dataset"
	"github.com/mikey/email-tldr/internal/utils"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRecord struct {
	Messages []chatMessage `json:"messages"`
}

// BuildJSONL renders examples as chat fine-tuning records, one JSON object per
// line. The framing matches what the serving models send at inference time.
// Examples with an empty body or summary are skipped; the count kept is returned.
func BuildJSONL(examples []dataset.Example, text *utils.TextProcessor, maxInputTokens, maxTargetTokens int) ([]byte, int, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	kept := 0
	for i, ex := range examples {
		body := text.ProcessText(strings.TrimSpace(ex.Body), maxInputTokens)
		summary := text.ProcessText(strings.TrimSpace(ex.Summary), maxTargetTokens)
		if body == "" || summary == "" {
			continue
		}
		record := chatRecord{Messages: []chatMessage{
			{Role: "system", Content: core.SummaryInstruction},
			{Role: "user", Content: fmt.Sprintf(core.SummaryPromptFormat, body)},
			{Role: "assistant", Content: summary},
		}}
		if err := enc.Encode(record); err != nil {
			return nil, 0, fmt.Errorf("failed to encode example %d: %w", i, err)
		}
		kept++
	}
	return buf.Bytes(), kept, nil
}
