package questionkey

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fumiama/go-docx"
)

// DocxParser Word格式标准答案解析器
type DocxParser struct{}

// NewDocxParser 创建一个新的Word解析器
func NewDocxParser() Parser {
	return &DocxParser{}
}

// Parse 解析docx文件并提取段落文本
func (p *DocxParser) Parse(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open docx file: %v", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat docx file: %v", err)
	}

	return p.parse(file, info.Size())
}

// ParseReader 从Reader解析docx内容
// go-docx需要ReadSeeker和大小，先写入临时文件
func (p *DocxParser) ParseReader(r io.Reader, filename string) (string, error) {
	tmp, err := os.CreateTemp("", "keydocx-*.docx")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %v", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write temp file: %v", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to seek temp file: %v", err)
	}

	text, err := p.parse(tmp, size)
	tmp.Close()
	return text, err
}

// parse 遍历文档正文段落，每段一行
func (p *DocxParser) parse(r io.ReaderAt, size int64) (string, error) {
	doc, err := docx.Parse(r, size)
	if err != nil {
		return "", fmt.Errorf("failed to parse docx: %v", err)
	}

	var lines []string
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		if text := paragraphText(para); text != "" {
			lines = append(lines, text)
		}
	}

	if len(lines) == 0 {
		return "", fmt.Errorf("no text content found in docx")
	}
	return strings.Join(lines, "\n"), nil
}

// paragraphText 拼接段落中所有文本run
func paragraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
