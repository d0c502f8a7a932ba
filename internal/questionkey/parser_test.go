package questionkey

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTempFile(t *testing.T, content, ext string) string {
	file := filepath.Join(t.TempDir(), "key"+ext)
	require.NoError(t, os.WriteFile(file, []byte(content), 0644))
	return file
}

func createTempPDF(t *testing.T, text string) string {
	file := filepath.Join(t.TempDir(), "key.pdf")

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "", 12)
	pdf.MultiCell(0, 10, text, "", "", false)
	require.NoError(t, pdf.OutputFileAndClose(file))

	return file
}

func TestParserFactory(t *testing.T) {
	tests := []struct {
		path     string
		expected ContentType
	}{
		{"key.pdf", PDF},
		{"key.docx", DOCX},
		{"key.md", Markdown},
		{"key.txt", PlainText},
	}

	for _, tt := range tests {
		parser, err := ParserFactory(tt.path)
		require.NoError(t, err, "factory should handle %s", tt.path)
		assert.NotNil(t, parser)
	}

	_, err := ParserFactory("key.xlsx")
	assert.Error(t, err)
}

func TestPlainTextParser(t *testing.T) {
	content := "Q1. What is force?\nA push or a pull.\n2 marks"
	file := createTempFile(t, content, ".txt")

	text, err := NewPlainTextParser().Parse(file)
	require.NoError(t, err)
	assert.Equal(t, content, text)
}

func TestMarkdownParser(t *testing.T) {
	content := "# Physics Key\n\nQ1. What is force?\n\nA push or a pull.\n\n2 marks"
	file := createTempFile(t, content, ".md")

	text, err := NewMarkdownParser().Parse(file)
	require.NoError(t, err)

	assert.Contains(t, text, "Q1. What is force?")
	assert.Contains(t, text, "A push or a pull.")
}

func TestPDFParser(t *testing.T) {
	file := createTempPDF(t, "Q1. What is force?\nA push or a pull.")

	text, err := NewPDFParser().Parse(file)
	require.NoError(t, err)
	assert.Contains(t, text, "What is force?")
}

func TestParseKeyFileEndToEnd(t *testing.T) {
	content := strings.Join([]string{
		"Physics paper key",
		"Q1. What is gravity?",
		"It pulls objects toward the earth.",
		"4 marks",
		"Q2. State Newton's first law",
		"Objects keep their motion unless acted on.",
	}, "\n")
	file := createTempFile(t, content, ".txt")

	key, err := ParseKeyFile(file)
	require.NoError(t, err)

	assert.Equal(t, "Physics", key.Subject)
	require.Len(t, key.Questions, 2)
	assert.Equal(t, 4, key.Questions["Q1"].Marks)
	assert.Equal(t, 1, key.Questions["Q2"].Marks)
}

func TestParseKeyFileUnsupportedFormat(t *testing.T) {
	_, err := ParseKeyFile("key.xlsx")
	assert.Error(t, err)
}
