package repository

import (
	"context"
	"net/url"
	"strings"

	"github.com/z26b/storefront/internal/backend"
	"github.com/z26b/storefront/internal/models"

	"github.com/ecodeclub/ekit/slice"
)

// SkuRepository 商品规格数据访问接口
type SkuRepository interface {
	GetByID(ctx context.Context, skuID string) (*models.Sku, error)
	ListBySpu(ctx context.Context, spuID string) ([]models.Sku, error)
}

// RemoteSkuRepository 基于后端 REST 接口的实现
type RemoteSkuRepository struct {
	client *backend.Client
}

// NewSkuRepository 创建规格仓库
func NewSkuRepository(client *backend.Client) *RemoteSkuRepository {
	return &RemoteSkuRepository{client: client}
}

// GetByID 获取规格详情（含商品信息），远端返回空数据时为 nil
func (r *RemoteSkuRepository) GetByID(ctx context.Context, skuID string) (*models.Sku, error) {
	var w *wireSku
	if err := r.client.Get(ctx, "/sku/"+url.PathEscape(strings.TrimSpace(skuID)), &w); err != nil {
		return nil, err
	}
	return w.toModel(), nil
}

// ListBySpu 获取商品下的全部规格
func (r *RemoteSkuRepository) ListBySpu(ctx context.Context, spuID string) ([]models.Sku, error) {
	var wires []wireSku
	if err := r.client.Get(ctx, "/sku/list/"+url.PathEscape(strings.TrimSpace(spuID)), &wires); err != nil {
		return nil, err
	}
	return slice.Map(wires, func(_ int, w wireSku) models.Sku {
		return *w.toModel()
	}), nil
}
