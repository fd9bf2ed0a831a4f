package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/z26b/storefront/internal/models"

	"gorm.io/gorm"
)

// CheckoutAttemptRepository 下单流水数据访问接口
type CheckoutAttemptRepository interface {
	Create(attempt *models.CheckoutAttempt) error
	Update(attempt *models.CheckoutAttempt) error
	GetBySubmissionID(submissionID string) (*models.CheckoutAttempt, error)
	List(filter CheckoutAttemptFilter) ([]models.CheckoutAttempt, int64, error)
	MarkNotified(submissionID string, at time.Time) (bool, error)
	DeleteFinishedBefore(before time.Time) (int64, error)
	WithTx(tx *gorm.DB) *GormCheckoutAttemptRepository
}

// GormCheckoutAttemptRepository GORM 实现
type GormCheckoutAttemptRepository struct {
	db *gorm.DB
}

// NewCheckoutAttemptRepository 创建下单流水仓库
func NewCheckoutAttemptRepository(db *gorm.DB) *GormCheckoutAttemptRepository {
	return &GormCheckoutAttemptRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCheckoutAttemptRepository) WithTx(tx *gorm.DB) *GormCheckoutAttemptRepository {
	if tx == nil {
		return r
	}
	return &GormCheckoutAttemptRepository{db: tx}
}

// Create 写入流水
func (r *GormCheckoutAttemptRepository) Create(attempt *models.CheckoutAttempt) error {
	if attempt == nil {
		return nil
	}
	return r.db.Create(attempt).Error
}

// Update 保存流水的终态
func (r *GormCheckoutAttemptRepository) Update(attempt *models.CheckoutAttempt) error {
	if attempt == nil || attempt.ID == 0 {
		return nil
	}
	updates := map[string]interface{}{
		"state":         attempt.State,
		"trace":         attempt.Trace,
		"address_id":    attempt.AddressID,
		"item_count":    attempt.ItemCount,
		"total_amount":  attempt.TotalAmount,
		"order_id":      attempt.OrderID,
		"paid_amount":   attempt.PaidAmount,
		"error_kind":    attempt.ErrorKind,
		"error_message": attempt.ErrorMessage,
		"finished_at":   attempt.FinishedAt,
	}
	return r.db.Model(&models.CheckoutAttempt{}).Where("id = ?", attempt.ID).Updates(updates).Error
}

// GetBySubmissionID 按提交ID获取流水
func (r *GormCheckoutAttemptRepository) GetBySubmissionID(submissionID string) (*models.CheckoutAttempt, error) {
	submissionID = strings.TrimSpace(submissionID)
	if submissionID == "" {
		return nil, nil
	}
	var attempt models.CheckoutAttempt
	if err := r.db.Where("submission_id = ?", submissionID).First(&attempt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &attempt, nil
}

// List 按会话分页查询流水（最新在前）
func (r *GormCheckoutAttemptRepository) List(filter CheckoutAttemptFilter) ([]models.CheckoutAttempt, int64, error) {
	query := r.db.Model(&models.CheckoutAttempt{})
	if key := strings.TrimSpace(filter.SessionKey); key != "" {
		query = query.Where("session_key = ?", key)
	}
	if state := strings.TrimSpace(filter.State); state != "" {
		query = query.Where("state = ?", state)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	var attempts []models.CheckoutAttempt
	if err := applyPagination(query, page, pageSize).Order("id desc").Find(&attempts).Error; err != nil {
		return nil, 0, err
	}
	return attempts, total, nil
}

// MarkNotified 记录下单事件已处理，重复处理时保留首次时间
func (r *GormCheckoutAttemptRepository) MarkNotified(submissionID string, at time.Time) (bool, error) {
	submissionID = strings.TrimSpace(submissionID)
	if submissionID == "" {
		return false, nil
	}
	result := r.db.Model(&models.CheckoutAttempt{}).
		Where("submission_id = ? AND notified_at IS NULL", submissionID).
		Update("notified_at", at)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// DeleteFinishedBefore 清理早于指定时间结束的流水
func (r *GormCheckoutAttemptRepository) DeleteFinishedBefore(before time.Time) (int64, error) {
	result := r.db.Where("finished_at < ? AND state IN ?", before, []string{"success", "failed"}).
		Delete(&models.CheckoutAttempt{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
