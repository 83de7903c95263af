package utils

import (
	"testing"

	"github.com/nalgeon/be"
	"go.uber.org/zap"
)

func TestCleanBody(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"crlf", "Hello\r\nWorld", "HelloWorld"},
		{"zwnj", "pre\u200cheader", "preheader"},
		{"plain", "Meeting at 3pm", "Meeting at 3pm"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanBody(tt.in)
			be.Equal(t, got, tt.want)
			be.Equal(t, CleanBody(got), got)
		})
	}
}

func TestTruncateTokens(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	be.Equal(t, tp.TruncateTokens("one two three four", 2), "one two")
	be.Equal(t, tp.TruncateTokens("one two", 5), "one two")
	be.Equal(t, tp.TruncateTokens("  keep   spacing ", 0), "  keep   spacing ")
}

func TestSanitizeUTF8(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	be.Equal(t, tp.SanitizeUTF8("caf\xe9 ok"), "caf ok")
	be.Equal(t, tp.ProcessText("a b\xff c d", 2), "a b")
}

func TestVisibleText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"tag free", "  Invoice\n\tdue   Friday ", "Invoice due Friday"},
		{"paragraphs", "<p>Hello</p><p>World</p>", "Hello World"},
		{"script dropped", "<html><head><style>p{}</style></head><body><script>x()</script>Hi &amp; bye</body></html>", "Hi & bye"},
		{"inline", "<b>bold</b>text", "boldtext"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			be.Equal(t, VisibleText(tt.in), tt.want)
		})
	}
}

func TestHTMLList(t *testing.T) {
	got := HTMLList("first\n\n  \nsecond <b>")
	be.Equal(t, got, "<html><body><ul><li>first</li><li>second &lt;b&gt;</li></ul></body></html>")
}
