package questionkey

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFParser PDF格式标准答案解析器
type PDFParser struct{}

// NewPDFParser 创建一个新的PDF解析器
func NewPDFParser() Parser {
	return &PDFParser{}
}

// Parse 解析PDF文件并提取其文本内容
func (p *PDFParser) Parse(filePath string) (string, error) {
	// 创建临时目录用于存放提取的文本
	tmpDir, err := os.MkdirTemp("", "keypdf_extract_")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractContentFile(filePath, tmpDir, nil, conf); err != nil {
		return "", fmt.Errorf("failed to extract text from PDF: %v", err)
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		return "", fmt.Errorf("failed to read extracted text dir: %v", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".txt") {
			names = append(names, entry.Name())
		}
	}

	// 按文件名中的页号排序，避免page_10排在page_2之前
	sort.Slice(names, func(i, j int) bool {
		pi, iok := extractPageNumber(names[i])
		pj, jok := extractPageNumber(names[j])
		if iok && jok {
			return pi < pj
		}
		return names[i] < names[j]
	})

	var allText strings.Builder
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(tmpDir, name))
		if err != nil {
			continue
		}
		if allText.Len() > 0 {
			allText.WriteString("\n\n")
		}
		allText.Write(data)
	}

	result := strings.TrimSpace(allText.String())
	if result == "" {
		return "", fmt.Errorf("no text content found in PDF")
	}
	return result, nil
}

// ParseReader 从Reader解析PDF内容
// pdfcpu的提取接口基于文件路径，先落盘再解析
func (p *PDFParser) ParseReader(r io.Reader, filename string) (string, error) {
	tmp, err := os.CreateTemp("", "keypdf-*.pdf")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %v", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write temp file: %v", err)
	}
	tmp.Close()

	return p.Parse(tmpPath)
}

// extractPageNumber 从pdfcpu导出文件名中解析页号
func extractPageNumber(name string) (int, bool) {
	idx := strings.LastIndex(name, "page_")
	if idx == -1 {
		return 0, false
	}
	rest := name[idx+len("page_"):]

	value := 0
	width := 0
	for width < len(rest) && rest[width] >= '0' && rest[width] <= '9' {
		value = value*10 + int(rest[width]-'0')
		width++
	}
	if width == 0 {
		return 0, false
	}
	return value, true
}
