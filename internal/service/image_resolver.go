package service

import (
	"strings"

	"github.com/z26b/storefront/internal/models"
)

// ImageResolver 图片地址解析：绝对地址原样返回，相对路径补全为图片域名
type ImageResolver struct {
	base string
}

// NewImageResolver 创建图片解析器，base 为空时不做补全
func NewImageResolver(base string) *ImageResolver {
	return &ImageResolver{base: strings.TrimRight(strings.TrimSpace(base), "/")}
}

// Resolve 解析单个图片地址
func (r *ImageResolver) Resolve(image string) string {
	image = strings.TrimSpace(image)
	if image == "" || r == nil || r.base == "" {
		return image
	}
	lower := strings.ToLower(image)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "//") {
		return image
	}
	if strings.HasPrefix(lower, "cloud://") {
		image = image[len("cloud://"):]
		if idx := strings.Index(image, "/"); idx >= 0 {
			image = image[idx+1:]
		}
	}
	return r.base + "/" + strings.TrimLeft(image, "/")
}

// ResolveSku 就地补全规格图与商品封面
func (r *ImageResolver) ResolveSku(sku *models.Sku) {
	if sku == nil {
		return
	}
	sku.Image = r.Resolve(sku.Image)
	if sku.Spu != nil {
		sku.Spu.CoverImage = r.Resolve(sku.Spu.CoverImage)
	}
}
