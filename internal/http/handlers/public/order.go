package public

import (
	"github.com/z26b/storefront/internal/http/response"
	"github.com/z26b/storefront/internal/service"

	"github.com/gin-gonic/gin"
)

// ListOrders 订单列表，status 为空时返回全部
func (h *Handler) ListOrders(c *gin.Context) {
	page, pageSize := parsePagination(c)
	orders, total, err := h.OrderQueryService.List(requestContext(c), service.OrderListQuery{
		Page:     page,
		PageSize: pageSize,
		Status:   c.Query("status"),
	})
	if err != nil {
		respondAppError(c, err)
		return
	}
	response.SuccessWithPage(c, orders, response.BuildPagination(page, pageSize, total))
}

// GetOrder 订单详情
func (h *Handler) GetOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.order_id_invalid", nil)
		return
	}
	order, err := h.OrderQueryService.Detail(requestContext(c), id)
	if err != nil {
		respondAppError(c, err)
		return
	}
	response.Success(c, order)
}

// CancelOrder 取消订单
func (h *Handler) CancelOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.order_id_invalid", nil)
		return
	}
	if err := h.OrderQueryService.Cancel(requestContext(c), id); err != nil {
		respondAppError(c, err)
		return
	}
	response.Success(c, gin.H{"canceled": true})
}

// ConfirmOrderReceipt 确认收货
func (h *Handler) ConfirmOrderReceipt(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.order_id_invalid", nil)
		return
	}
	if err := h.OrderQueryService.ConfirmReceipt(requestContext(c), id); err != nil {
		respondAppError(c, err)
		return
	}
	response.Success(c, gin.H{"confirmed": true})
}

// GetOrderCounts 各状态订单数量
func (h *Handler) GetOrderCounts(c *gin.Context) {
	counts, err := h.OrderQueryService.Counts(requestContext(c))
	if err != nil {
		respondAppError(c, err)
		return
	}
	response.Success(c, counts)
}
