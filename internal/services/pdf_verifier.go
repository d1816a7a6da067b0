package services

import (
	"bytes"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	ierr "github.com/tallbag/gutinvoice/internal/errors"
)

// ExtractText returns the plain text of a PDF document
func ExtractText(data []byte) (text string, err error) {
	defer func() {
		// the reader panics on some malformed streams
		if r := recover(); r != nil {
			err = ierr.NewErrorf("unreadable PDF: %v", r).Mark(ierr.ErrSystem)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", ierr.WithError(err).WithMessage("error opening PDF").Mark(ierr.ErrSystem)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", ierr.WithError(err).WithMessage("error reading PDF text").Mark(ierr.ErrSystem)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", ierr.WithError(err).WithMessage("error reading PDF text").Mark(ierr.ErrSystem)
	}
	return buf.String(), nil
}

// VerifyDocument checks that the rendered PDF carries each of want
func VerifyDocument(data []byte, want ...string) error {
	text, err := ExtractText(data)
	if err != nil {
		return err
	}
	compact := strings.Join(strings.Fields(text), "")
	for _, w := range want {
		if !strings.Contains(compact, strings.Join(strings.Fields(w), "")) {
			return ierr.NewErrorf("rendered PDF is missing %q", w).
				WithHint("❌ Could not create the PDF. Please try again.").
				Mark(ierr.ErrSystem)
		}
	}
	return nil
}
