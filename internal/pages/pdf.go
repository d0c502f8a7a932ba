package pages

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFProvider 扫描PDF的页图像提供者
// 扫描答卷通常是每页一张嵌入图像，用pdfcpu逐页提取
type PDFProvider struct{}

// NewPDFProvider 创建PDF页图像提供者
func NewPDFProvider() *PDFProvider {
	return &PDFProvider{}
}

// 从pdfcpu导出文件名中取页号，如 "sheet_page_3_Im0.png"
var pageNumberPattern = regexp.MustCompile(`page_(\d+)`)

// PageImages 提取PDF中每页嵌入的扫描图像
func (p *PDFProvider) PageImages(ctx context.Context, filePath string) ([]PageImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 创建临时目录存放提取的图像
	tmpDir, err := os.MkdirTemp("", "pages_extract_")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractImagesFile(filePath, tmpDir, nil, conf); err != nil {
		return nil, fmt.Errorf("failed to extract images from PDF: %v", err)
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read extracted image dir: %v", err)
	}

	type extracted struct {
		page int
		name string
	}

	var found []extracted
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		page, ok := parsePageNumber(entry.Name())
		if !ok {
			continue
		}
		found = append(found, extracted{page: page, name: entry.Name()})
	}

	if len(found) == 0 {
		return nil, fmt.Errorf("no page images found in PDF: %s", filePath)
	}

	// 按解析出的页号排序，避免 page_10 排到 page_2 之前的字典序问题
	sort.Slice(found, func(i, j int) bool {
		return found[i].page < found[j].page
	})

	images := make([]PageImage, 0, len(found))
	for i, f := range found {
		data, err := os.ReadFile(filepath.Join(tmpDir, f.name))
		if err != nil {
			return nil, fmt.Errorf("failed to read extracted image %s: %v", f.name, err)
		}
		images = append(images, PageImage{
			Index:    i,
			Data:     data,
			MimeType: mimeTypeForImage(f.name),
		})
	}

	return images, nil
}

// parsePageNumber 从导出文件名解析页号
func parsePageNumber(name string) (int, bool) {
	matches := pageNumberPattern.FindStringSubmatch(name)
	if len(matches) != 2 {
		return 0, false
	}
	page, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, false
	}
	return page, true
}

// mimeTypeForImage 按扩展名判断图像MIME类型
func mimeTypeForImage(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".tif", ".tiff":
		return "image/tiff"
	default:
		return "application/octet-stream"
	}
}
