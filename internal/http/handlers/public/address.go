package public

import (
	"github.com/z26b/storefront/internal/http/response"
	"github.com/z26b/storefront/internal/service"

	"github.com/gin-gonic/gin"
)

// AddressRequest 地址表单
type AddressRequest struct {
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	ProvinceName  string `json:"province_name"`
	CityName      string `json:"city_name"`
	DistrictName  string `json:"district_name"`
	DetailAddress string `json:"detail_address"`
	IsDefault     bool   `json:"is_default"`
}

func (r AddressRequest) toInput() service.AddressInput {
	return service.AddressInput{
		Name:          r.Name,
		Phone:         r.Phone,
		ProvinceName:  r.ProvinceName,
		CityName:      r.CityName,
		DistrictName:  r.DistrictName,
		DetailAddress: r.DetailAddress,
		IsDefault:     r.IsDefault,
	}
}

// ListAddresses 地址列表
func (h *Handler) ListAddresses(c *gin.Context) {
	addresses, err := h.AddressService.List(requestContext(c))
	if err != nil {
		respondAppError(c, err)
		return
	}
	response.Success(c, addresses)
}

// GetDefaultAddress 结算默认地址，没有地址时 data 为 null
func (h *Handler) GetDefaultAddress(c *gin.Context) {
	addr, err := h.AddressService.Default(requestContext(c))
	if err != nil {
		respondAppError(c, err)
		return
	}
	response.Success(c, addr)
}

// GetAddress 地址详情
func (h *Handler) GetAddress(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.address_invalid", nil)
		return
	}
	addr, err := h.AddressService.Get(requestContext(c), id)
	if err != nil {
		respondAppError(c, err)
		return
	}
	response.Success(c, addr)
}

// CreateAddress 新增地址
func (h *Handler) CreateAddress(c *gin.Context) {
	var req AddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	addr, err := h.AddressService.Create(requestContext(c), req.toInput())
	if err != nil {
		respondAppError(c, err)
		return
	}
	response.Success(c, addr)
}

// UpdateAddress 更新地址
func (h *Handler) UpdateAddress(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.address_invalid", nil)
		return
	}
	var req AddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	addr, err := h.AddressService.Update(requestContext(c), id, req.toInput())
	if err != nil {
		respondAppError(c, err)
		return
	}
	response.Success(c, addr)
}

// DeleteAddress 删除地址
func (h *Handler) DeleteAddress(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.address_invalid", nil)
		return
	}
	if err := h.AddressService.Delete(requestContext(c), id); err != nil {
		respondAppError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": true})
}
