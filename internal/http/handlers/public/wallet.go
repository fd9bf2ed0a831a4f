package public

import (
	"github.com/z26b/storefront/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetWalletBalance 账户余额
func (h *Handler) GetWalletBalance(c *gin.Context) {
	balance, err := h.OrderQueryService.Balance(requestContext(c))
	if err != nil {
		respondAppError(c, err)
		return
	}
	response.Success(c, gin.H{"balance": balance})
}
