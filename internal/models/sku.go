package models

import "strings"

// Spu 商品（标准化产品单元）
type Spu struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	CoverImage string `json:"cover_image"`
}

// Sku 商品规格
type Sku struct {
	ID          string   `json:"id"`
	SpuID       string   `json:"spu_id"`
	Spu         *Spu     `json:"spu,omitempty"`
	Price       Money    `json:"price"`
	Image       string   `json:"image"`
	Description string   `json:"description"`
	Stock       int      `json:"stock"`
	AttrValues  []string `json:"attr_values,omitempty"`
}

// IsComplete 是否已包含展示所需的商品信息
func (s *Sku) IsComplete() bool {
	return s != nil && strings.TrimSpace(s.ID) != "" && s.Spu != nil && strings.TrimSpace(s.Spu.Name) != ""
}

// Title 展示标题
func (s *Sku) Title() string {
	if s == nil || s.Spu == nil {
		return ""
	}
	return strings.TrimSpace(s.Spu.Name)
}

// SpecText 规格描述，优先使用规格属性
func (s *Sku) SpecText() string {
	if s == nil {
		return ""
	}
	values := make([]string, 0, len(s.AttrValues))
	for _, v := range s.AttrValues {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	if len(values) > 0 {
		return strings.Join(values, "，")
	}
	return strings.TrimSpace(s.Description)
}

// Thumbnail 规格图，缺失时回退到商品封面
func (s *Sku) Thumbnail() string {
	if s == nil {
		return ""
	}
	if image := strings.TrimSpace(s.Image); image != "" {
		return image
	}
	if s.Spu != nil {
		return strings.TrimSpace(s.Spu.CoverImage)
	}
	return ""
}
