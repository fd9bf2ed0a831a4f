package models

// DefaultGoodsTitle 商品标题缺失时的占位
const DefaultGoodsTitle = "商品"

// GoodsLine 结算页商品行（派生数据，不持久化）
type GoodsLine struct {
	Thumbnail string `json:"thumbnail"`
	Title     string `json:"title"`
	SpecText  string `json:"spec_text"`
	UnitPrice Money  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}

// NewGoodsLine 由规格构建商品行，缺失字段使用默认值
func NewGoodsLine(sku *Sku, quantity int) GoodsLine {
	line := GoodsLine{Title: DefaultGoodsTitle, Quantity: quantity}
	if sku == nil {
		return line
	}
	if title := sku.Title(); title != "" {
		line.Title = title
	}
	line.SpecText = sku.SpecText()
	line.Thumbnail = sku.Thumbnail()
	line.UnitPrice = sku.Price
	return line
}

// TotalMinor 商品行合计（分）
func TotalMinor(lines []GoodsLine) int64 {
	var total int64
	for _, line := range lines {
		total += line.UnitPrice.Minor() * int64(line.Quantity)
	}
	return total
}

// TotalPrice 商品行合计金额
func TotalPrice(lines []GoodsLine) Money {
	return NewMoneyFromMinor(TotalMinor(lines))
}
