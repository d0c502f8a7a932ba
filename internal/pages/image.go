package pages

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// ImageProvider 图片文件的页图像提供者
// 单张图片上传视为一页答卷
type ImageProvider struct{}

// NewImageProvider 创建图片页提供者
func NewImageProvider() *ImageProvider {
	return &ImageProvider{}
}

// PageImages 把图片文件作为唯一一页返回
func (p *ImageProvider) PageImages(ctx context.Context, filePath string) ([]PageImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read image file: %v", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("image file is empty: %s", filepath.Base(filePath))
	}

	return []PageImage{
		{
			Index:    0,
			Data:     data,
			MimeType: mimeTypeForImage(filePath),
		},
	}, nil
}
