package questionkey

import (
	"errors"
	"io"
	"path/filepath"
	"strings"
)

// Parser 题目标准答案文件解析器接口
// 负责把不同格式的标准答案文件解析为纯文本，供后续结构化扫描
type Parser interface {
	// Parse 解析文件，返回文本内容
	Parse(filePath string) (string, error)

	// ParseReader 从Reader解析，filename用于确定文档类型
	ParseReader(r io.Reader, filename string) (string, error)
}

// ContentType 表示标准答案文件的内容类型
type ContentType string

const (
	// PDF 文档类型
	PDF ContentType = "pdf"
	// DOCX Word文档类型
	DOCX ContentType = "docx"
	// Markdown 文档类型
	Markdown ContentType = "markdown"
	// PlainText 纯文本类型
	PlainText ContentType = "plaintext"
	// Unknown 未知类型
	Unknown ContentType = "unknown"
)

// ParserFactory 根据文件类型创建对应的解析器
func ParserFactory(filePath string) (Parser, error) {
	contentType := detectContentType(filePath)

	switch contentType {
	case PDF:
		return NewPDFParser(), nil
	case DOCX:
		return NewDocxParser(), nil
	case Markdown:
		return NewMarkdownParser(), nil
	case PlainText:
		return NewPlainTextParser(), nil
	default:
		return nil, errors.New("unsupported question key format")
	}
}

// detectContentType 根据文件扩展名检测内容类型
func detectContentType(filePath string) ContentType {
	ext := strings.ToLower(filepath.Ext(filePath))

	switch ext {
	case ".pdf":
		return PDF
	case ".docx":
		return DOCX
	case ".md", ".markdown":
		return Markdown
	case ".txt":
		return PlainText
	default:
		return Unknown
	}
}

// ParseKeyFile 解析标准答案文件并扫描为结构化题目集
func ParseKeyFile(filePath string) (*Key, error) {
	parser, err := ParserFactory(filePath)
	if err != nil {
		return nil, err
	}

	text, err := parser.Parse(filePath)
	if err != nil {
		return nil, err
	}

	return ParseKeyText(text), nil
}
