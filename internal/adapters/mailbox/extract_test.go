package mailbox

import (
	"strings"
	"testing"

	"github.com/nalgeon/be"
	"go.uber.org/zap"
)

const plainMessage = "From: a@example.com\r\n" +
	"To: me@example.com\r\n" +
	"Subject: Meeting\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Meeting at 3pm\r\nin room 4\r\n"

const multipartMessage = "From: b@example.com\r\n" +
	"To: me@example.com\r\n" +
	"Subject: Invoice\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/alternative; boundary=XYZ\r\n" +
	"\r\n" +
	"--XYZ\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Invoice due Friday\r\n" +
	"--XYZ\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<p>Invoice <b>due</b> Friday</p>\r\n" +
	"--XYZ--\r\n"

const quotedPrintableMessage = "From: c@example.com\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"Content-Transfer-Encoding: quoted-printable\r\n" +
	"\r\n" +
	"Caf=C3=A9 opens at=\r\n noon=E2=80=8C\r\n"

func TestExtractBodyPlain(t *testing.T) {
	got, err := ExtractBody([]byte(plainMessage), false)
	be.Err(t, err, nil)
	be.Equal(t, got, "Meeting at 3pmin room 4")
}

func TestExtractBodyMultipartPlainOnly(t *testing.T) {
	got, err := ExtractBody([]byte(multipartMessage), false)
	be.Err(t, err, nil)
	be.Equal(t, got, "Invoice due Friday")
}

func TestExtractBodyHTMLAware(t *testing.T) {
	got, err := ExtractBody([]byte(multipartMessage), true)
	be.Err(t, err, nil)
	be.True(t, strings.Contains(got, "<b>due</b>"))
}

func TestExtractBodyTransferEncoding(t *testing.T) {
	got, err := ExtractBody([]byte(quotedPrintableMessage), false)
	be.Err(t, err, nil)
	be.Equal(t, got, "Café opens at noon")
}

func TestExtractBodyLatin1Fallback(t *testing.T) {
	raw := "From: d@example.com\r\nContent-Type: text/plain\r\n\r\nr\xe9sum\xe9\r\n"
	got, err := ExtractBody([]byte(raw), false)
	be.Err(t, err, nil)
	be.Equal(t, got, "résumé")
}

func TestBodiesFromRawKeepsLengthAndOrder(t *testing.T) {
	ids := []uint32{3, 1, 2, 9}
	raws := map[uint32][]byte{
		1: []byte(plainMessage),
		2: []byte("From: e@example.com\r\nContent-Type: text/plain\r\n\r\n"),
		3: []byte(multipartMessage),
	}

	got := BodiesFromRaw(ids, raws, false, zap.NewNop())
	be.Equal(t, len(got), len(ids))
	be.Equal(t, got[0], "Invoice due Friday")
	be.Equal(t, got[1], "Meeting at 3pmin room 4")
	be.Equal(t, got[2], "")
	be.Equal(t, got[3], "")
}

func TestDecodeText(t *testing.T) {
	be.Equal(t, decodeText([]byte("plain ascii")), "plain ascii")
	be.Equal(t, decodeText([]byte("na\xefve")), "naïve")
}
