package service

import (
	"context"
	"strings"

	"github.com/z26b/storefront/internal/apperr"
	"github.com/z26b/storefront/internal/backend"
	"github.com/z26b/storefront/internal/logger"
	"github.com/z26b/storefront/internal/models"
	"github.com/z26b/storefront/internal/repository"
	"github.com/z26b/storefront/internal/security"
)

// AddressInput 地址表单
type AddressInput struct {
	Name          string
	Phone         string
	ProvinceName  string
	CityName      string
	DistrictName  string
	DetailAddress string
	IsDefault     bool
}

// AddressService 收货地址服务
type AddressService struct {
	addressRepo repository.AddressRepository
}

// NewAddressService 创建地址服务
func NewAddressService(addressRepo repository.AddressRepository) *AddressService {
	return &AddressService{addressRepo: addressRepo}
}

// List 地址列表（默认地址排在最前）
func (s *AddressService) List(ctx context.Context) ([]models.Address, error) {
	addresses, err := s.addressRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Address, 0, len(addresses))
	for _, addr := range addresses {
		if addr.IsDefault {
			out = append(out, addr)
		}
	}
	for _, addr := range addresses {
		if !addr.IsDefault {
			out = append(out, addr)
		}
	}
	return out, nil
}

// Get 地址详情
func (s *AddressService) Get(ctx context.Context, id string) (*models.Address, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperr.Validation("地址不存在")
	}
	addr, err := s.addressRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if addr == nil {
		return nil, apperr.New(apperr.KindNotFound, "地址不存在")
	}
	return addr, nil
}

// Default 结算使用的地址
func (s *AddressService) Default(ctx context.Context) (*models.Address, error) {
	addresses, err := s.addressRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	return ResolveAddress(addresses), nil
}

// Create 新增地址
func (s *AddressService) Create(ctx context.Context, input AddressInput) (*models.Address, error) {
	addr, err := normalizeAddressInput(input)
	if err != nil {
		return nil, err
	}
	created, err := s.addressRepo.Create(ctx, addr)
	if err != nil {
		return nil, err
	}
	logger.ForSession(backend.SessionKey(ctx)).Infow("address_created",
		"address_id", created.ID,
		"name", security.MaskName(created.Name),
		"phone", security.MaskPhone(created.Phone),
	)
	return created, nil
}

// Update 更新地址
func (s *AddressService) Update(ctx context.Context, id string, input AddressInput) (*models.Address, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperr.Validation("地址不存在")
	}
	addr, err := normalizeAddressInput(input)
	if err != nil {
		return nil, err
	}
	addr.ID = id
	return s.addressRepo.Update(ctx, addr)
}

// Delete 删除地址
func (s *AddressService) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperr.Validation("地址不存在")
	}
	return s.addressRepo.Delete(ctx, id)
}

func normalizeAddressInput(input AddressInput) (*models.Address, error) {
	addr := &models.Address{
		Name:          security.SanitizeInput(input.Name),
		Phone:         strings.TrimSpace(input.Phone),
		ProvinceName:  security.SanitizeInput(input.ProvinceName),
		CityName:      security.SanitizeInput(input.CityName),
		DistrictName:  security.SanitizeInput(input.DistrictName),
		DetailAddress: security.SanitizeInput(input.DetailAddress),
		IsDefault:     input.IsDefault,
	}
	if err := security.ValidateName(addr.Name); err != nil {
		return nil, err
	}
	if !security.IsValidPhone(addr.Phone) {
		return nil, apperr.Validation("请输入正确的手机号")
	}
	if addr.ProvinceName == "" || addr.CityName == "" {
		return nil, apperr.Validation("请选择所在地区")
	}
	if err := security.ValidateAddress(addr.DetailAddress); err != nil {
		return nil, err
	}
	return addr, nil
}
