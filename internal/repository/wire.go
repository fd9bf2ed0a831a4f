package repository

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/z26b/storefront/internal/models"

	"github.com/ecodeclub/ekit/slice"
)

// 远端字段命名不统一（_id/id、quantity/count、isSelected/is_selected/selected、
// address/detailAddress），统一在此处转换为内部模型。

// flexString 接受字符串或数字
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(strings.TrimSpace(v))
		return nil
	}
	*s = flexString(string(b))
	return nil
}

// flexInt 接受数字、数字字符串
type flexInt int64

func (n *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	raw := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil
		}
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return err
	}
	*n = flexInt(f)
	return nil
}

// flexBool 接受布尔、数字（非 0 为真）、字符串
type flexBool bool

func (v *flexBool) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	switch b[0] {
	case 't', 'f':
		var x bool
		if err := json.Unmarshal(b, &x); err != nil {
			return err
		}
		*v = flexBool(x)
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.ToLower(strings.TrimSpace(s))
		*v = flexBool(s == "true" || s == "1" || s == "yes")
	default:
		f, err := strconv.ParseFloat(string(b), 64)
		if err != nil {
			return err
		}
		*v = flexBool(f != 0)
	}
	return nil
}

func firstID(ids ...flexString) string {
	for _, id := range ids {
		if v := strings.TrimSpace(string(id)); v != "" {
			return v
		}
	}
	return ""
}

type wireSpu struct {
	ID            flexString `json:"_id"`
	AltID         flexString `json:"id"`
	Name          string     `json:"name"`
	CoverImage    string     `json:"cover_image"`
	CoverImageAlt string     `json:"coverImage"`
}

func (w *wireSpu) toModel() *models.Spu {
	if w == nil {
		return nil
	}
	cover := strings.TrimSpace(w.CoverImage)
	if cover == "" {
		cover = strings.TrimSpace(w.CoverImageAlt)
	}
	return &models.Spu{
		ID:         firstID(w.ID, w.AltID),
		Name:       strings.TrimSpace(w.Name),
		CoverImage: cover,
	}
}

type wireAttrValue struct {
	Value string `json:"value"`
}

type wireSku struct {
	ID          flexString      `json:"_id"`
	AltID       flexString      `json:"id"`
	SpuID       flexString      `json:"spuId"`
	Spu         *wireSpu        `json:"spu"`
	Price       models.Money    `json:"price"`
	Image       string          `json:"image"`
	Description string          `json:"description"`
	Count       flexInt         `json:"count"`
	AttrValue   []wireAttrValue `json:"attr_value"`
}

func (w *wireSku) toModel() *models.Sku {
	if w == nil {
		return nil
	}
	sku := &models.Sku{
		ID:          firstID(w.ID, w.AltID),
		SpuID:       strings.TrimSpace(string(w.SpuID)),
		Spu:         w.Spu.toModel(),
		Price:       w.Price,
		Image:       strings.TrimSpace(w.Image),
		Description: strings.TrimSpace(w.Description),
		Stock:       int(w.Count),
		AttrValues: slice.Map(w.AttrValue, func(_ int, src wireAttrValue) string {
			return strings.TrimSpace(src.Value)
		}),
	}
	if sku.SpuID == "" && sku.Spu != nil {
		sku.SpuID = sku.Spu.ID
	}
	return sku
}

type wireCartItem struct {
	ID         flexString `json:"_id"`
	AltID      flexString `json:"id"`
	SkuID      flexString `json:"skuId"`
	Sku        *wireSku   `json:"sku"`
	Quantity   *flexInt   `json:"quantity"`
	Count      *flexInt   `json:"count"`
	IsSelected *flexBool  `json:"isSelected"`
	SnakeSel   *flexBool  `json:"is_selected"`
	Selected   *flexBool  `json:"selected"`
}

// toModel 转换购物车项，缺少 ID 时返回 false
func (w wireCartItem) toModel() (models.CartItem, bool) {
	item := models.CartItem{
		ID:  firstID(w.ID, w.AltID),
		Sku: w.Sku.toModel(),
	}
	if item.ID == "" {
		return item, false
	}
	item.SkuID = strings.TrimSpace(string(w.SkuID))
	if item.SkuID == "" && item.Sku != nil {
		item.SkuID = item.Sku.ID
	}
	switch {
	case w.Quantity != nil:
		item.Quantity = int(*w.Quantity)
	case w.Count != nil:
		item.Quantity = int(*w.Count)
	}
	if item.Quantity < 1 {
		item.Quantity = 1
	}
	for _, flag := range []*flexBool{w.IsSelected, w.SnakeSel, w.Selected} {
		if flag != nil {
			item.IsSelected = bool(*flag)
			break
		}
	}
	return item, true
}

type wireStoreGoods struct {
	StoreID   flexString     `json:"storeId"`
	StoreName string         `json:"storeName"`
	GoodsList []wireCartItem `json:"goodsList"`
}

type wireCartList struct {
	IsNotEmpty bool             `json:"isNotEmpty"`
	StoreGoods []wireStoreGoods `json:"storeGoods"`
	Items      []wireCartItem   `json:"items"`
}

// decodeCartItems 支持分店铺结构与扁平数组两种格式
func decodeCartItems(raw json.RawMessage) ([]wireCartItem, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '[' {
		var items []wireCartItem
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, err
		}
		return items, nil
	}
	var list wireCartList
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, err
	}
	items := append([]wireCartItem(nil), list.Items...)
	for _, store := range list.StoreGoods {
		items = append(items, store.GoodsList...)
	}
	return items, nil
}

type wireAddress struct {
	ID            flexString `json:"_id"`
	AltID         flexString `json:"id"`
	Name          string     `json:"name"`
	Phone         string     `json:"phone"`
	ProvinceName  string     `json:"provinceName"`
	CityName      string     `json:"cityName"`
	DistrictName  string     `json:"districtName"`
	DetailAddress string     `json:"detailAddress"`
	Address       string     `json:"address"`
	IsDefault     flexBool   `json:"isDefault"`
}

func (w wireAddress) toModel() models.Address {
	detail := strings.TrimSpace(w.DetailAddress)
	if detail == "" {
		detail = strings.TrimSpace(w.Address)
	}
	return models.Address{
		ID:            firstID(w.ID, w.AltID),
		Name:          strings.TrimSpace(w.Name),
		Phone:         strings.TrimSpace(w.Phone),
		ProvinceName:  strings.TrimSpace(w.ProvinceName),
		CityName:      strings.TrimSpace(w.CityName),
		DistrictName:  strings.TrimSpace(w.DistrictName),
		DetailAddress: detail,
		IsDefault:     bool(w.IsDefault),
	}
}

// wireAddressInput 地址写入参数（远端 isDefault 为整数）
type wireAddressInput struct {
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	ProvinceName  string `json:"provinceName"`
	CityName      string `json:"cityName"`
	DistrictName  string `json:"districtName"`
	DetailAddress string `json:"detailAddress"`
	IsDefault     int    `json:"isDefault"`
}

type wireOrderItem struct {
	ID       flexString   `json:"_id"`
	AltID    flexString   `json:"id"`
	SkuID    flexString   `json:"skuId"`
	Sku      *wireSku     `json:"sku"`
	Quantity flexInt      `json:"quantity"`
	Price    models.Money `json:"price"`
}

type wireOrder struct {
	ID            flexString      `json:"_id"`
	AltID         flexString      `json:"id"`
	Status        string          `json:"status"`
	DeliveryInfo  json.RawMessage `json:"delivery_info"`
	Items         []wireOrderItem `json:"items"`
	TotalPrice    models.Money    `json:"totalPrice"`
	DiscountPrice models.Money    `json:"discountPrice"`
	FinalPrice    models.Money    `json:"finalPrice"`
	Remarks       string          `json:"remarks"`
	CreatedAt     flexInt         `json:"createdAt"`
	UpdatedAt     flexInt         `json:"updatedAt"`
}

func (w wireOrder) toModel() models.Order {
	order := models.Order{
		ID:            firstID(w.ID, w.AltID),
		Status:        strings.TrimSpace(w.Status),
		TotalPrice:    w.TotalPrice,
		DiscountPrice: w.DiscountPrice,
		FinalPrice:    w.FinalPrice,
		Remarks:       w.Remarks,
		DeliveryInfo:  decodeDeliveryInfo(w.DeliveryInfo),
		CreatedAt:     normalizeTimestamp(int64(w.CreatedAt)),
		UpdatedAt:     normalizeTimestamp(int64(w.UpdatedAt)),
	}
	order.Items = slice.Map(w.Items, func(_ int, src wireOrderItem) models.OrderItem {
		sku := src.Sku.toModel()
		price := src.Price
		if price.IsZero() && sku != nil {
			price = sku.Price
		}
		skuID := strings.TrimSpace(string(src.SkuID))
		if skuID == "" && sku != nil {
			skuID = sku.ID
		}
		goods := models.NewGoodsLine(sku, int(src.Quantity))
		goods.UnitPrice = price
		return models.OrderItem{
			ID:       firstID(src.ID, src.AltID),
			SkuID:    skuID,
			Quantity: int(src.Quantity),
			Price:    price,
			Goods:    goods,
		}
	})
	return order
}

// decodeDeliveryInfo 收货信息可能是对象，也可能是 JSON 字符串
func decodeDeliveryInfo(raw json.RawMessage) *models.Address {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil || strings.TrimSpace(text) == "" {
			return nil
		}
		raw = json.RawMessage(text)
	}
	var addr wireAddress
	if err := json.Unmarshal(raw, &addr); err != nil {
		return nil
	}
	model := addr.toModel()
	return &model
}

// normalizeTimestamp 秒级时间戳统一换算为毫秒
func normalizeTimestamp(ts int64) time.Time {
	if ts <= 0 {
		return time.Time{}
	}
	if ts < 1e12 {
		ts *= 1000
	}
	return time.UnixMilli(ts)
}

type wireCreateOrderResult struct {
	Order         *wireOrder    `json:"order"`
	PaidAmount    *models.Money `json:"paidAmount"`
	RemainBalance models.Money  `json:"remainBalance"`
	PaymentMethod string        `json:"paymentMethod"`
}

func (w wireCreateOrderResult) toModel() *models.OrderResult {
	result := &models.OrderResult{
		RemainBalance: w.RemainBalance,
		PaymentMethod: strings.TrimSpace(w.PaymentMethod),
	}
	if w.Order != nil {
		result.OrderID = firstID(w.Order.ID, w.Order.AltID)
		result.Status = strings.TrimSpace(w.Order.Status)
	}
	if w.PaidAmount != nil {
		result.PaidAmount = *w.PaidAmount
		result.PaidAmountReported = true
	} else if w.Order != nil && !w.Order.FinalPrice.IsZero() {
		result.PaidAmount = w.Order.FinalPrice
		result.PaidAmountReported = true
	}
	return result
}

type wireOrderPage struct {
	Records  []wireOrder `json:"records"`
	Total    flexInt     `json:"total"`
	Page     flexInt     `json:"page"`
	PageSize flexInt     `json:"pageSize"`
}

type wireBalance struct {
	Balance models.Money `json:"balance"`
}
