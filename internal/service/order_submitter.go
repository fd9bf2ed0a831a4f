package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/z26b/storefront/internal/apperr"
	"github.com/z26b/storefront/internal/backend"
	"github.com/z26b/storefront/internal/constants"
	"github.com/z26b/storefront/internal/logger"
	"github.com/z26b/storefront/internal/models"
	"github.com/z26b/storefront/internal/queue"
	"github.com/z26b/storefront/internal/ratelimit"
	"github.com/z26b/storefront/internal/repository"
	"github.com/z26b/storefront/internal/security"

	"github.com/ecodeclub/ekit/slice"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// SubmitState 下单状态
type SubmitState string

const (
	StateIdle             SubmitState = "idle"
	StateValidating       SubmitState = "validating"
	StateSyncingSelection SubmitState = "syncing_selection"
	StateSubmitting       SubmitState = "submitting"
	StateSuccess          SubmitState = "success"
	StateFailed           SubmitState = "failed"
)

const defaultRemarkMaxLength = 200

// SubmitRequest 下单请求
type SubmitRequest struct {
	Mode      string
	AddressID string
	Remarks   string
	SkuID     string
	Quantity  int
}

// Submission 一次下单尝试，终态只会进入一次
type Submission struct {
	ID         string              `json:"submission_id"`
	Mode       string              `json:"mode"`
	State      SubmitState         `json:"state"`
	Trace      []SubmitState       `json:"trace"`
	Preview    *CheckoutPreview    `json:"preview,omitempty"`
	Address    *models.Address     `json:"address,omitempty"`
	Result     *models.OrderResult `json:"result,omitempty"`
	Err        error               `json:"-"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
}

// Terminal 是否已结束
func (s *Submission) Terminal() bool {
	return s.State == StateSuccess || s.State == StateFailed
}

// TraceString 状态轨迹文本
func (s *Submission) TraceString() string {
	return strings.Join(slice.Map(s.Trace, func(_ int, st SubmitState) string {
		return string(st)
	}), ">")
}

// OrderSubmitterOptions 下单参数
type OrderSubmitterOptions struct {
	// SubmitGuard 重复提交守卫，nil 表示不限制
	SubmitGuard     ratelimit.Guard
	RemarkMaxLength int
	Concurrency     int
	// Journal 下单流水，nil 表示不记录
	Journal     repository.CheckoutAttemptRepository
	QueueClient *queue.Client
	// OnTransition 状态变化回调
	OnTransition func(sub *Submission, from, to SubmitState)
}

// OrderSubmitter 下单状态机：validating → syncing_selection → submitting → success | failed
type OrderSubmitter struct {
	checkout    *CheckoutService
	cart        *CartService
	orderRepo   repository.OrderRepository
	invalidator CartInvalidator
	opts        OrderSubmitterOptions
	now         func() time.Time

	journalMu sync.Mutex
}

// NewOrderSubmitter 创建下单服务
func NewOrderSubmitter(checkout *CheckoutService, cart *CartService, orderRepo repository.OrderRepository, invalidator CartInvalidator, opts OrderSubmitterOptions) *OrderSubmitter {
	if opts.RemarkMaxLength <= 0 {
		opts.RemarkMaxLength = defaultRemarkMaxLength
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultResolveConcurrency
	}
	return &OrderSubmitter{
		checkout:    checkout,
		cart:        cart,
		orderRepo:   orderRepo,
		invalidator: invalidator,
		opts:        opts,
		now:         time.Now,
	}
}

// Submit 执行一次下单。提交开始后不受调用方取消影响；失败不自动重试。
// 防重复提交守卫在校验通过后才占用，校验失败不会阻塞下一次提交
func (s *OrderSubmitter) Submit(ctx context.Context, req SubmitRequest) (*Submission, error) {
	ctx = context.WithoutCancel(ctx)
	session := backend.SessionKey(ctx)

	mode, modeErr := NormalizeMode(req.Mode)
	if modeErr != nil {
		mode = strings.ToLower(strings.TrimSpace(req.Mode))
	}
	sub := &Submission{
		ID:        uuid.NewString(),
		Mode:      mode,
		State:     StateIdle,
		Trace:     []SubmitState{StateIdle},
		StartedAt: s.now(),
	}
	log := logger.ForSession(session).With("submission_id", sub.ID)

	plan, err := s.validate(ctx, sub, req)
	if err == nil && s.opts.SubmitGuard != nil {
		allowed, _ := s.opts.SubmitGuard.Allow(ctx, "checkout:submit:"+session)
		if !allowed {
			log.Infow("checkout_submit_repeated", "mode", sub.Mode)
			return nil, apperr.RateLimited(apperr.MsgSubmitting)
		}
	}
	attempt := s.journalStart(sub, session)
	if err == nil {
		err = s.commit(ctx, sub, plan)
	}
	if err != nil {
		s.transition(sub, StateFailed)
		sub.Err = err
		log.Warnw("checkout_submit_failed",
			"mode", sub.Mode,
			"trace", sub.TraceString(),
			"kind", apperr.KindOf(err),
			"error", err,
		)
	} else {
		s.transition(sub, StateSuccess)
		log.Infow("checkout_submit_success",
			"mode", sub.Mode,
			"order_id", sub.Result.OrderID,
			"paid_amount", sub.Result.PaidAmount.String(),
		)
		if invErr := s.invalidator.InvalidateCart(ctx); invErr != nil {
			log.Warnw("checkout_cart_invalidate_failed", "error", invErr)
		}
		s.notifyPlaced(sub, session)
	}
	sub.FinishedAt = s.now()
	s.journalFinish(attempt, sub)
	return sub, err
}

// submitPlan 校验通过后的下单内容
type submitPlan struct {
	mode    string
	remarks string
	preview *CheckoutPreview
	address *models.Address
}

// validate 校验模式、备注、地址与待购商品；地址缺失优先于空选择
func (s *OrderSubmitter) validate(ctx context.Context, sub *Submission, req SubmitRequest) (*submitPlan, error) {
	s.transition(sub, StateValidating)
	mode, err := NormalizeMode(req.Mode)
	if err != nil {
		return nil, err
	}
	sub.Mode = mode
	remarks, err := security.CleanRemark(req.Remarks, s.opts.RemarkMaxLength)
	if err != nil {
		return nil, err
	}
	if mode == constants.CheckoutModeCart {
		s.cart.FlushSession(ctx)
	}
	preview, prepErr := s.checkout.Prepare(ctx, CheckoutRequest{Mode: mode, SkuID: req.SkuID, Quantity: req.Quantity})
	if prepErr != nil && (preview == nil || !errors.Is(prepErr, apperr.ErrEmptySelection)) {
		return nil, prepErr
	}
	if prepErr == nil {
		sub.Preview = preview
	}
	address := preview.Address
	if id := strings.TrimSpace(req.AddressID); id != "" {
		if address == nil || address.ID != id {
			address, err = s.checkout.AddressByID(ctx, id)
			if err != nil {
				return nil, err
			}
		}
	}
	if address == nil || strings.TrimSpace(address.ID) == "" {
		return nil, apperr.ErrMissingAddress
	}
	if prepErr != nil {
		return nil, prepErr
	}
	sub.Address = address
	return &submitPlan{mode: mode, remarks: remarks, preview: preview, address: address}, nil
}

// commit 同步选中状态后创建订单
func (s *OrderSubmitter) commit(ctx context.Context, sub *Submission, plan *submitPlan) error {
	var err error
	s.transition(sub, StateSyncingSelection)
	if plan.mode == constants.CheckoutModeDirect {
		err = s.syncDirect(ctx, plan.preview)
	} else {
		err = s.syncCart(ctx, plan.preview.Items)
	}
	if err != nil {
		return err
	}

	s.transition(sub, StateSubmitting)
	result, err := s.orderRepo.Create(ctx, repository.CreateOrderInput{
		AddressID: plan.address.ID,
		Remarks:   plan.remarks,
	})
	if err != nil {
		return err
	}
	if result == nil {
		result = &models.OrderResult{}
	}
	if !result.PaidAmountReported {
		result.PaidAmount = plan.preview.TotalPrice
	}
	sub.Result = result
	return nil
}

// syncCart 将待购买的购物车项全部标记为选中，任一失败即中止
func (s *OrderSubmitter) syncCart(ctx context.Context, items []models.CartItem) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for _, item := range items {
		g.Go(func() error {
			return s.cart.UpdateSelected(gctx, item.ID, true)
		})
	}
	return g.Wait()
}

// syncDirect 直接购买：加入购物车后选中该项
func (s *OrderSubmitter) syncDirect(ctx context.Context, preview *CheckoutPreview) error {
	skuID := preview.DirectSku.ID
	item, err := s.cartRepoAdd(ctx, skuID, preview.Quantity)
	if err != nil {
		return err
	}
	if item == nil || item.ID == "" {
		item, err = s.cart.FindBySku(ctx, skuID)
		if err != nil {
			return err
		}
	}
	if item == nil || item.ID == "" {
		return apperr.Wrap(apperr.KindServer, "加入购物车失败", errors.New("cart item not found after add"))
	}
	return s.cart.UpdateSelected(ctx, item.ID, true)
}

// cartRepoAdd 直接购买的加购不经过加购冷却
func (s *OrderSubmitter) cartRepoAdd(ctx context.Context, skuID string, quantity int) (*models.CartItem, error) {
	return s.cart.cartRepo.Add(ctx, skuID, quantity)
}

func (s *OrderSubmitter) transition(sub *Submission, to SubmitState) {
	if sub.Terminal() {
		return
	}
	from := sub.State
	sub.State = to
	sub.Trace = append(sub.Trace, to)
	if s.opts.OnTransition != nil {
		s.opts.OnTransition(sub, from, to)
	}
}

func (s *OrderSubmitter) notifyPlaced(sub *Submission, session string) {
	if s.opts.QueueClient == nil || sub.Result == nil {
		return
	}
	if err := s.opts.QueueClient.EnqueueOrderPlaced(queue.OrderPlacedPayload{
		SubmissionID: sub.ID,
		OrderID:      sub.Result.OrderID,
		SessionKey:   session,
		Mode:         sub.Mode,
		PaidAmount:   sub.Result.PaidAmount.String(),
	}); err != nil {
		logger.Warnw("order_placed_enqueue_failed", "submission_id", sub.ID, "error", err)
	}
}

func (s *OrderSubmitter) journalStart(sub *Submission, session string) *models.CheckoutAttempt {
	if s.opts.Journal == nil {
		return nil
	}
	attempt := &models.CheckoutAttempt{
		SubmissionID: sub.ID,
		SessionKey:   session,
		Mode:         sub.Mode,
		State:        string(sub.State),
		Trace:        sub.TraceString(),
		StartedAt:    sub.StartedAt,
	}
	s.journalMu.Lock()
	defer s.journalMu.Unlock()
	if err := s.opts.Journal.Create(attempt); err != nil {
		logger.Warnw("checkout_journal_create_failed", "submission_id", sub.ID, "error", err)
		return nil
	}
	return attempt
}

func (s *OrderSubmitter) journalFinish(attempt *models.CheckoutAttempt, sub *Submission) {
	if s.opts.Journal == nil || attempt == nil {
		return
	}
	attempt.Mode = sub.Mode
	attempt.State = string(sub.State)
	attempt.Trace = sub.TraceString()
	attempt.FinishedAt = sub.FinishedAt
	if sub.Address != nil {
		attempt.AddressID = sub.Address.ID
	}
	if sub.Preview != nil {
		attempt.ItemCount = len(sub.Preview.GoodsList)
		attempt.TotalAmount = sub.Preview.TotalPrice
	}
	if sub.Result != nil {
		attempt.OrderID = sub.Result.OrderID
		attempt.PaidAmount = sub.Result.PaidAmount
	}
	if sub.Err != nil {
		attempt.ErrorKind = string(apperr.KindOf(sub.Err))
		attempt.ErrorMessage = truncateRunes(apperr.Message(sub.Err), 255)
	}
	s.journalMu.Lock()
	defer s.journalMu.Unlock()
	if err := s.opts.Journal.Update(attempt); err != nil {
		logger.Warnw("checkout_journal_update_failed", "submission_id", sub.ID, "error", err)
	}
}

// Attempts 当前会话的下单流水
func (s *OrderSubmitter) Attempts(ctx context.Context, page, pageSize int) ([]models.CheckoutAttempt, int64, error) {
	if s.opts.Journal == nil {
		return []models.CheckoutAttempt{}, 0, nil
	}
	return s.opts.Journal.List(repository.CheckoutAttemptFilter{
		Page:       page,
		PageSize:   pageSize,
		SessionKey: backend.SessionKey(ctx),
	})
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
