package models

import "time"

// CartSnapshot 会话购物车快照，Version 单调递增
type CartSnapshot struct {
	Version   int64      `json:"version"`
	Items     []CartItem `json:"items"`
	FetchedAt time.Time  `json:"fetched_at"`
}

// Find 按购物车项 ID 查找，返回下标
func (s *CartSnapshot) Find(itemID string) int {
	if s == nil {
		return -1
	}
	for i := range s.Items {
		if s.Items[i].ID == itemID {
			return i
		}
	}
	return -1
}
