package textextract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrInvalidEncoding = errors.New("file is not valid utf-8 text")
)

// Supported reports whether a file with this name can be extracted.
func Supported(fileName string) bool {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf", ".txt", ".md":
		return true
	}
	return false
}

// FromFile extracts plain text from an uploaded file, dispatching on the
// extension. PDFs with no extractable text yield "" and a nil error.
func FromFile(fileName string, r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read upload failed: %w", err)
	}

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return fromPDF(b)
	case ".txt", ".md":
		if !utf8.Valid(b) {
			return "", ErrInvalidEncoding
		}
		return string(bytes.TrimPrefix(b, []byte("\xef\xbb\xbf"))), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, filepath.Ext(fileName))
	}
}

func fromPDF(b []byte) (string, error) {
	if len(b) == 0 {
		return "", nil
	}
	pdfReader, err := pdf.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return "", fmt.Errorf("open pdf failed: %w", err)
	}
	plainReader, err := pdfReader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text failed: %w", err)
	}
	out, err := io.ReadAll(plainReader)
	if err != nil {
		return "", fmt.Errorf("read pdf text failed: %w", err)
	}
	return string(out), nil
}
