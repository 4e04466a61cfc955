package textextract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupported(t *testing.T) {
	assert.True(t, Supported("notes.PDF"))
	assert.True(t, Supported("notes.md"))
	assert.True(t, Supported("notes.txt"))
	assert.False(t, Supported("notes.docx"))
	assert.False(t, Supported("notes"))
}

func TestFromFilePlainText(t *testing.T) {
	text, err := FromFile("notes.md", strings.NewReader("\xef\xbb\xbf# Cells\nMitochondria"))
	require.NoError(t, err)
	assert.Equal(t, "# Cells\nMitochondria", text)
}

func TestFromFileRejectsInvalidUTF8(t *testing.T) {
	_, err := FromFile("notes.txt", strings.NewReader("\xff\xfe\xfd"))
	assert.ErrorIs(t, err, ErrInvalidEncoding)
}

func TestFromFileRejectsUnknownExtension(t *testing.T) {
	_, err := FromFile("slides.pptx", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestFromFileEmptyPDF(t *testing.T) {
	text, err := FromFile("empty.pdf", strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestFromFileBrokenPDF(t *testing.T) {
	_, err := FromFile("broken.pdf", strings.NewReader("not a pdf"))
	assert.Error(t, err)
}
