package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrUnreadable indicates the payload is not a parseable PDF.
var ErrUnreadable = errors.New("unreadable pdf")

// SentinelNoText is returned for well-formed PDFs that carry no extractable
// text, typically scanned or image-only documents. It is not an error; the
// pipeline forwards it to the model as the document body.
const SentinelNoText = "No text could be extracted from the document. The file might be scanned or image-based."

// ExtractTextFromBytes extracts text from an in-memory PDF payload. Each
// page's text is preceded by a [Page N] marker so the model can cite pages.
func ExtractTextFromBytes(ctx context.Context, data []byte) (text string, err error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty payload", ErrUnreadable)
	}

	// The pdf package panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: %v", ErrUnreadable, r)
		}
	}()

	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	var buf strings.Builder
	for i := 1; i <= pdfReader.NumPage(); i++ {
		page := pdfReader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			// Skip pages the parser cannot decode; the rest still matter.
			continue
		}
		pageText = strings.TrimSpace(pageText)
		if pageText == "" {
			continue
		}
		if buf.Len() > 0 {
			buf.WriteString("\n\n")
		}
		fmt.Fprintf(&buf, "[Page %d]\n%s", i, pageText)
	}

	if buf.Len() == 0 {
		return SentinelNoText, nil
	}
	return buf.String(), nil
}
