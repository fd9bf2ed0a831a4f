package models

import (
	"time"
)

// CheckoutAttempt 下单尝试流水
type CheckoutAttempt struct {
	ID           uint       `gorm:"primarykey" json:"id"`                                       // 主键
	SubmissionID string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"submission_id"` // 提交ID
	SessionKey   string     `gorm:"type:varchar(128);index;not null" json:"-"`                  // 会话键
	Mode         string     `gorm:"type:varchar(20);not null" json:"mode"`                      // cart / direct
	State        string     `gorm:"type:varchar(32);index;not null" json:"state"`               // 最终状态
	Trace        string     `gorm:"type:varchar(255)" json:"trace"`                             // 状态轨迹
	AddressID    string     `gorm:"type:varchar(64)" json:"address_id"`                         // 收货地址
	ItemCount    int        `gorm:"not null;default:0" json:"item_count"`                       // 商品行数
	TotalAmount  Money      `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"`  // 预览合计
	OrderID      string     `gorm:"type:varchar(64);index" json:"order_id"`                     // 远端订单ID
	PaidAmount   Money      `gorm:"type:decimal(20,2);not null;default:0" json:"paid_amount"`   // 实付金额
	ErrorKind    string     `gorm:"type:varchar(32)" json:"error_kind"`                         // 失败分类
	ErrorMessage string     `gorm:"type:varchar(255)" json:"error_message"`                     // 失败提示
	StartedAt    time.Time  `gorm:"not null" json:"started_at"`                                 // 开始时间
	FinishedAt   time.Time  `gorm:"index" json:"finished_at"`                                   // 结束时间
	NotifiedAt   *time.Time `json:"notified_at,omitempty"`                                      // 下单事件处理时间
	CreatedAt    time.Time  `json:"created_at"`                                                 // 创建时间
	UpdatedAt    time.Time  `json:"updated_at"`                                                 // 更新时间
}

// TableName 指定表名
func (CheckoutAttempt) TableName() string {
	return "checkout_attempts"
}
