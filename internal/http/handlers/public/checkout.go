package public

import (
	"strings"

	"github.com/z26b/storefront/internal/constants"
	"github.com/z26b/storefront/internal/http/response"
	"github.com/z26b/storefront/internal/i18n"
	"github.com/z26b/storefront/internal/service"

	"github.com/gin-gonic/gin"
)

// SubmitCheckoutRequest 提交订单请求
type SubmitCheckoutRequest struct {
	Mode      string        `json:"mode"`
	AddressID string        `json:"address_id"`
	Remarks   string        `json:"remarks"`
	SkuID     string        `json:"sku_id"`
	Quantity  quantityField `json:"quantity"`
}

// GetCheckout 结算页数据
// 购物车模式：GET /checkout
// 直接购买：GET /checkout?mode=direct&sku_id=xx&quantity=2
func (h *Handler) GetCheckout(c *gin.Context) {
	req := service.CheckoutRequest{
		Mode:  c.Query("mode"),
		SkuID: strings.TrimSpace(c.Query("sku_id")),
	}
	mode, err := service.NormalizeMode(req.Mode)
	if err != nil {
		respondAppError(c, err)
		return
	}
	if mode == constants.CheckoutModeDirect {
		quantity, err := quantityField{raw: c.DefaultQuery("quantity", "1"), set: true}.Parse(h.CartService.MaxQuantity())
		if err != nil {
			respondAppError(c, err)
			return
		}
		req.Quantity = quantity
	}
	preview, err := h.CheckoutService.Prepare(requestContext(c), req)
	if err != nil {
		respondAppError(c, err)
		return
	}
	response.Success(c, preview)
}

// SubmitCheckout 提交订单
func (h *Handler) SubmitCheckout(c *gin.Context) {
	var req SubmitCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	submit := service.SubmitRequest{
		Mode:      req.Mode,
		AddressID: req.AddressID,
		Remarks:   req.Remarks,
		SkuID:     req.SkuID,
	}
	if mode, _ := service.NormalizeMode(req.Mode); mode == constants.CheckoutModeDirect {
		quantity, err := req.Quantity.Parse(h.CartService.MaxQuantity())
		if err != nil {
			respondAppError(c, err)
			return
		}
		submit.Quantity = quantity
	}
	sub, err := h.OrderSubmitter.Submit(requestContext(c), submit)
	if err != nil {
		respondSubmitError(c, sub, err)
		return
	}
	response.SuccessWithMsg(c, i18n.T(i18n.ResolveLocale(c), "message.order_submitted"), submissionView(sub))
}

// ListCheckoutAttempts 当前会话的下单记录
func (h *Handler) ListCheckoutAttempts(c *gin.Context) {
	page, pageSize := parsePagination(c)
	attempts, total, err := h.OrderSubmitter.Attempts(requestContext(c), page, pageSize)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.SuccessWithPage(c, attempts, response.BuildPagination(page, pageSize, total))
}
