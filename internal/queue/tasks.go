package queue

import (
	"encoding/json"

	"github.com/z26b/storefront/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskCartRefresh 购物车快照预热任务
	TaskCartRefresh = constants.TaskCartRefresh
	// TaskOrderPlaced 下单成功事件
	TaskOrderPlaced = constants.TaskOrderPlaced
)

// CartRefreshPayload 购物车预热任务载荷，只携带 OpenID，不落地 Bearer token
type CartRefreshPayload struct {
	SessionKey string `json:"session_key"`
	OpenID     string `json:"openid,omitempty"`
}

// OrderPlacedPayload 下单成功任务载荷
type OrderPlacedPayload struct {
	SubmissionID string `json:"submission_id"`
	OrderID      string `json:"order_id"`
	SessionKey   string `json:"session_key"`
	Mode         string `json:"mode"`
	PaidAmount   string `json:"paid_amount"`
}

// NewCartRefreshTask 创建购物车预热任务
func NewCartRefreshTask(payload CartRefreshPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCartRefresh, body), nil
}

// NewOrderPlacedTask 创建下单成功任务
func NewOrderPlacedTask(payload OrderPlacedPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderPlaced, body), nil
}

// ParseCartRefreshPayload 解析购物车预热任务载荷
func ParseCartRefreshPayload(task *asynq.Task) (CartRefreshPayload, error) {
	var payload CartRefreshPayload
	err := json.Unmarshal(task.Payload(), &payload)
	return payload, err
}

// ParseOrderPlacedPayload 解析下单成功任务载荷
func ParseOrderPlacedPayload(task *asynq.Task) (OrderPlacedPayload, error) {
	var payload OrderPlacedPayload
	err := json.Unmarshal(task.Payload(), &payload)
	return payload, err
}
