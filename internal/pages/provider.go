package pages

import (
	"context"
	"encoding/base64"
	"fmt"
	"path/filepath"
	"strings"
)

// PageImage 单页答卷图像
type PageImage struct {
	Index    int    // 页号，从0开始
	Data     []byte // 图像数据
	MimeType string // 图像MIME类型
}

// DataURI 返回图像的base64数据URI，供多模态转录接口直接使用
func (p PageImage) DataURI() string {
	return fmt.Sprintf("data:%s;base64,%s", p.MimeType, base64.StdEncoding.EncodeToString(p.Data))
}

// Provider 页图像提供者接口
// 给定上传的答卷文件，按页序产出图像
type Provider interface {
	// PageImages 提取文件中的有序页图像
	PageImages(ctx context.Context, filePath string) ([]PageImage, error)
}

// NewProvider 按文件扩展名选择页图像提供者
// PDF走pdfcpu提取嵌入的扫描图像，图片文件直接作为单页
func NewProvider(filePath string) (Provider, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".pdf":
		return NewPDFProvider(), nil
	case ".png", ".jpg", ".jpeg", ".webp":
		return NewImageProvider(), nil
	default:
		return nil, fmt.Errorf("unsupported answer sheet format: %s", ext)
	}
}
