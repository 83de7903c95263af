package mailbox

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"

	"github.com/mikey/email-tldr/internal/utils"
)

// BodiesFromRaw extracts one body per id from the fetched raw messages.
// Ids with no raw message or an unparseable one yield an empty body in place.
func BodiesFromRaw(ids []uint32, raws map[uint32][]byte, htmlAware bool, logger *zap.Logger) []string {
	bodies := make([]string, len(ids))
	for i, id := range ids {
		raw, ok := raws[id]
		if !ok {
			logger.Warn("Message missing from fetch response", zap.Uint32("id", id))
			continue
		}
		body, err := ExtractBody(raw, htmlAware)
		if err != nil {
			logger.Warn("Failed to extract message body", zap.Uint32("id", id), zap.Error(err))
			continue
		}
		bodies[i] = body
	}
	return bodies
}

// ExtractBody decodes a raw RFC 5322 message into its text body.
//
// Multipart messages contribute the concatenation of their text/plain parts;
// single-part messages contribute their payload. The result is cleaned of
// line breaks and zero-width non-joiners. In HTML-aware mode text/html parts
// are preferred and returned uncleaned for later visible-text extraction.
func ExtractBody(raw []byte, htmlAware bool) (string, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return "", fmt.Errorf("failed to parse message: %w", err)
	}
	defer mr.Close()

	mediaType, _, _ := mr.Header.ContentType()
	multipart := strings.HasPrefix(mediaType, "multipart/")

	var plain, html strings.Builder
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil && (part == nil || !message.IsUnknownCharset(err)) {
			if plain.Len() == 0 && html.Len() == 0 {
				return "", fmt.Errorf("failed to read message part: %w", err)
			}
			break
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		partType, _, _ := h.ContentType()
		data, err := io.ReadAll(part.Body)
		if err != nil {
			continue
		}
		text := decodeText(data)

		switch {
		case !multipart:
			if htmlAware {
				return text, nil
			}
			return utils.CleanBody(text), nil
		case partType == "text/plain":
			plain.WriteString(text)
		case partType == "text/html":
			html.WriteString(text)
		}
	}

	if htmlAware && html.Len() > 0 {
		return html.String(), nil
	}
	if htmlAware {
		return plain.String(), nil
	}
	return utils.CleanBody(plain.String()), nil
}

// decodeText returns data as UTF-8, reading it as ISO-8859-1 when it is not valid UTF-8
func decodeText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return strings.ToValidUTF8(string(data), "")
	}
	return string(decoded)
}
