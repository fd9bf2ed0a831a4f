package public

import (
	"github.com/z26b/storefront/internal/http/response"
	"github.com/z26b/storefront/internal/i18n"
	"github.com/z26b/storefront/internal/service"

	"github.com/gin-gonic/gin"
)

// AddCartItemRequest 加入购物车请求
type AddCartItemRequest struct {
	SkuID    string        `json:"sku_id" binding:"required"`
	Quantity quantityField `json:"quantity"`
}

// CartQuantityRequest 修改数量请求
type CartQuantityRequest struct {
	Quantity quantityField `json:"quantity"`
}

// CartSelectRequest 选中状态请求
type CartSelectRequest struct {
	Selected *bool `json:"selected" binding:"required"`
}

// GetCart 获取购物车（refresh=true 时丢弃快照重新拉取）
func (h *Handler) GetCart(c *gin.Context) {
	ctx := requestContext(c)
	var (
		view *service.CartView
		err  error
	)
	if queryBool(c, "refresh", false) {
		view, err = h.CartSessionService.Refresh(ctx)
	} else {
		view, err = h.CartSessionService.View(ctx)
	}
	if err != nil {
		respondAppError(c, err)
		return
	}
	response.Success(c, view)
}

// AddCartItem 加入购物车
func (h *Handler) AddCartItem(c *gin.Context) {
	var req AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	quantity := 1
	if req.Quantity.set {
		q, err := req.Quantity.Parse(h.CartService.MaxQuantity())
		if err != nil {
			respondAppError(c, err)
			return
		}
		quantity = q
	}
	item, err := h.CartSessionService.Add(requestContext(c), req.SkuID, quantity)
	if err != nil {
		respondAppError(c, err)
		return
	}
	response.Success(c, gin.H{"item": item})
}

// UpdateCartItemQuantity 修改数量（远端提交会合并短时间内的多次修改）
func (h *Handler) UpdateCartItemQuantity(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.cart_item_invalid", nil)
		return
	}
	var req CartQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	quantity, err := req.Quantity.Parse(h.CartService.MaxQuantity())
	if err != nil {
		respondAppError(c, err)
		return
	}
	view, err := h.CartSessionService.ChangeQuantity(requestContext(c), id, quantity)
	if err != nil {
		respondAppError(c, err)
		return
	}
	response.Success(c, view)
}

// UpdateCartItemSelected 切换单项选中
func (h *Handler) UpdateCartItemSelected(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.cart_item_invalid", nil)
		return
	}
	var req CartSelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	view, err := h.CartSessionService.ToggleSelected(requestContext(c), id, *req.Selected)
	if err != nil {
		respondAppError(c, err)
		return
	}
	response.Success(c, view)
}

// SelectAllCartItems 全选 / 全不选
func (h *Handler) SelectAllCartItems(c *gin.Context) {
	var req CartSelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	view, err := h.CartSessionService.SelectAll(requestContext(c), *req.Selected)
	if err != nil {
		respondAppError(c, err)
		return
	}
	response.Success(c, view)
}

// DeleteCartItem 删除购物车项，需要 confirm=true
func (h *Handler) DeleteCartItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.cart_item_invalid", nil)
		return
	}
	view, err := h.CartSessionService.Remove(requestContext(c), id, queryBool(c, "confirm", false))
	if err != nil {
		respondAppError(c, err)
		return
	}
	response.SuccessWithMsg(c, i18n.T(i18n.ResolveLocale(c), "message.cart_item_removed"), view)
}

// SettleCart 去结算
func (h *Handler) SettleCart(c *gin.Context) {
	result, err := h.CartSessionService.Settle(requestContext(c))
	if err != nil {
		respondAppError(c, err)
		return
	}
	response.Success(c, result)
}
