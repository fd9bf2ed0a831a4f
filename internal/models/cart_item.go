package models

// CartItem 购物车项
type CartItem struct {
	ID         string `json:"id"`
	SkuID      string `json:"sku_id"`
	Quantity   int    `json:"quantity"`
	IsSelected bool   `json:"is_selected"`
	Sku        *Sku   `json:"sku,omitempty"`
}

// LineMinor 小计（分），缺少规格信息时为 0
func (c CartItem) LineMinor() int64 {
	if c.Sku == nil || c.Quantity <= 0 {
		return 0
	}
	return c.Sku.Price.Minor() * int64(c.Quantity)
}

// CartSummary 购物车汇总
type CartSummary struct {
	ItemCount     int   `json:"item_count"`
	SelectedCount int   `json:"selected_count"`
	AllSelected   bool  `json:"all_selected"`
	SelectedTotal Money `json:"selected_total"`
}

// SummarizeCart 汇总选中数量与金额
func SummarizeCart(items []CartItem) CartSummary {
	summary := CartSummary{ItemCount: len(items)}
	var total int64
	for _, item := range items {
		if !item.IsSelected {
			continue
		}
		summary.SelectedCount++
		total += item.LineMinor()
	}
	summary.AllSelected = len(items) > 0 && summary.SelectedCount == len(items)
	summary.SelectedTotal = NewMoneyFromMinor(total)
	return summary
}

// SelectedItems 选中的购物车项（保持原顺序）
func SelectedItems(items []CartItem) []CartItem {
	selected := make([]CartItem, 0, len(items))
	for _, item := range items {
		if item.IsSelected {
			selected = append(selected, item)
		}
	}
	return selected
}
