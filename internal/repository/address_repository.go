package repository

import (
	"context"
	"net/url"
	"strings"

	"github.com/z26b/storefront/internal/backend"
	"github.com/z26b/storefront/internal/models"

	"github.com/ecodeclub/ekit/slice"
)

// AddressRepository 收货地址数据访问接口
type AddressRepository interface {
	List(ctx context.Context) ([]models.Address, error)
	GetByID(ctx context.Context, id string) (*models.Address, error)
	Create(ctx context.Context, addr *models.Address) (*models.Address, error)
	Update(ctx context.Context, addr *models.Address) (*models.Address, error)
	Delete(ctx context.Context, id string) error
}

// RemoteAddressRepository 基于后端 REST 接口的实现
type RemoteAddressRepository struct {
	client *backend.Client
}

// NewAddressRepository 创建地址仓库
func NewAddressRepository(client *backend.Client) *RemoteAddressRepository {
	return &RemoteAddressRepository{client: client}
}

// List 获取地址列表
func (r *RemoteAddressRepository) List(ctx context.Context) ([]models.Address, error) {
	var wires []wireAddress
	if err := r.client.Get(ctx, "/address/list", &wires); err != nil {
		return nil, err
	}
	return slice.Map(wires, func(_ int, w wireAddress) models.Address {
		return w.toModel()
	}), nil
}

// GetByID 获取地址详情
func (r *RemoteAddressRepository) GetByID(ctx context.Context, id string) (*models.Address, error) {
	var w *wireAddress
	if err := r.client.Get(ctx, "/address/"+url.PathEscape(strings.TrimSpace(id)), &w); err != nil {
		return nil, err
	}
	if w == nil {
		return nil, nil
	}
	addr := w.toModel()
	return &addr, nil
}

// Create 新增地址
func (r *RemoteAddressRepository) Create(ctx context.Context, addr *models.Address) (*models.Address, error) {
	var w *wireAddress
	if err := r.client.Post(ctx, "/address/create", toAddressInput(addr), &w); err != nil {
		return nil, err
	}
	return mergeAddress(addr, w), nil
}

// Update 更新地址
func (r *RemoteAddressRepository) Update(ctx context.Context, addr *models.Address) (*models.Address, error) {
	var w *wireAddress
	path := "/address/update/" + url.PathEscape(strings.TrimSpace(addr.ID))
	if err := r.client.Put(ctx, path, toAddressInput(addr), &w); err != nil {
		return nil, err
	}
	return mergeAddress(addr, w), nil
}

// Delete 删除地址
func (r *RemoteAddressRepository) Delete(ctx context.Context, id string) error {
	return r.client.Delete(ctx, "/address/"+url.PathEscape(strings.TrimSpace(id)), nil)
}

func toAddressInput(addr *models.Address) wireAddressInput {
	input := wireAddressInput{
		Name:          addr.Name,
		Phone:         addr.Phone,
		ProvinceName:  addr.ProvinceName,
		CityName:      addr.CityName,
		DistrictName:  addr.DistrictName,
		DetailAddress: addr.DetailAddress,
	}
	if addr.IsDefault {
		input.IsDefault = 1
	}
	return input
}

// mergeAddress 远端未回传完整记录时以提交内容为准
func mergeAddress(input *models.Address, w *wireAddress) *models.Address {
	out := *input
	if w == nil {
		return &out
	}
	saved := w.toModel()
	if saved.ID != "" {
		out.ID = saved.ID
	}
	if saved.Name != "" {
		out = saved
	}
	return &out
}
