package public

import (
	"github.com/z26b/storefront/internal/apperr"
	"github.com/z26b/storefront/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetSku 规格详情
func (h *Handler) GetSku(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.sku_invalid", nil)
		return
	}
	sku, err := h.SkuRepo.GetByID(requestContext(c), id)
	if err != nil {
		respondAppError(c, err)
		return
	}
	if sku == nil {
		respondAppError(c, apperr.ErrNotFound)
		return
	}
	h.ImageResolver.ResolveSku(sku)
	response.Success(c, sku)
}

// ListSpuSkus 商品下的全部规格
func (h *Handler) ListSpuSkus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.sku_invalid", nil)
		return
	}
	skus, err := h.SkuRepo.ListBySpu(requestContext(c), id)
	if err != nil {
		respondAppError(c, err)
		return
	}
	for i := range skus {
		h.ImageResolver.ResolveSku(&skus[i])
	}
	response.Success(c, skus)
}
