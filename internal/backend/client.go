// Package backend 封装对远端商城接口的鉴权 HTTP 调用。
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/z26b/storefront/internal/apperr"
	"github.com/z26b/storefront/internal/logger"
)

const (
	headerOpenID        = "X-OpenID"
	headerAuthorization = "Authorization"
	maxResponseBytes    = 4 << 20
	defaultTimeout      = 30 * time.Second
)

// Options 客户端配置
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	DevMode   bool
	DevOpenID string
	// HTTPClient 为空时按 Timeout 创建
	HTTPClient *http.Client
	// OnUnauthorized 远端返回 401 时回调，由上层决定登出等处理
	OnUnauthorized func(ctx context.Context, id Identity)
}

// Client 远端接口客户端
type Client struct {
	baseURL        string
	httpClient     *http.Client
	devMode        bool
	devOpenID      string
	onUnauthorized func(ctx context.Context, id Identity)
}

// NewClient 创建客户端
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:        strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		httpClient:     httpClient,
		devMode:        opts.DevMode,
		devOpenID:      strings.TrimSpace(opts.DevOpenID),
		onUnauthorized: opts.OnUnauthorized,
	}
}

type callOptions struct {
	anonymous bool
	query     url.Values
}

// CallOption 单次调用选项
type CallOption func(*callOptions)

// Anonymous 允许无身份调用（例如商品详情）
func Anonymous() CallOption {
	return func(o *callOptions) { o.anonymous = true }
}

// WithQuery 附加查询参数
func WithQuery(query url.Values) CallOption {
	return func(o *callOptions) { o.query = query }
}

// envelope 远端统一响应包
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

// Get 发送 GET 请求
func (c *Client) Get(ctx context.Context, path string, out interface{}, opts ...CallOption) error {
	return c.Do(ctx, http.MethodGet, path, nil, out, opts...)
}

// Post 发送 POST 请求
func (c *Client) Post(ctx context.Context, path string, body, out interface{}, opts ...CallOption) error {
	return c.Do(ctx, http.MethodPost, path, body, out, opts...)
}

// Put 发送 PUT 请求
func (c *Client) Put(ctx context.Context, path string, body, out interface{}, opts ...CallOption) error {
	return c.Do(ctx, http.MethodPut, path, body, out, opts...)
}

// Delete 发送 DELETE 请求
func (c *Client) Delete(ctx context.Context, path string, out interface{}, opts ...CallOption) error {
	return c.Do(ctx, http.MethodDelete, path, nil, out, opts...)
}

// Do 发送请求并解析 {"data": ...} 响应包，错误统一映射为 apperr
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}, opts ...CallOption) error {
	if ctx == nil {
		ctx = context.Background()
	}
	options := callOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	id := c.resolveIdentity(ctx)
	if !options.anonymous && id.Empty() {
		return apperr.New(apperr.KindUnauthorized, apperr.MsgLoginRequired)
	}

	req, err := c.newRequest(ctx, method, path, options.query, body)
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, "请求构建失败", err)
	}
	if id.OpenID != "" {
		req.Header.Set(headerOpenID, id.OpenID)
	}
	if id.Token != "" {
		req.Header.Set(headerAuthorization, "Bearer "+id.Token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		mapped := classifyTransportError(err)
		logger.Warnw("backend_request_transport_failed",
			"method", method,
			"path", path,
			"latency_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return mapped
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return classifyTransportError(err)
	}
	logger.Debugw("backend_request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"latency_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return decodeEnvelope(payload, out)
	}

	mapped := mapStatus(resp.StatusCode, payload)
	if resp.StatusCode == http.StatusUnauthorized && c.onUnauthorized != nil {
		c.onUnauthorized(ctx, id)
	}
	logger.Warnw("backend_request_failed",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"kind", mapped.Kind,
		"message", mapped.Message,
	)
	return mapped
}

func (c *Client) resolveIdentity(ctx context.Context) Identity {
	id, _ := IdentityFrom(ctx)
	id.OpenID = strings.TrimSpace(id.OpenID)
	id.Token = strings.TrimSpace(id.Token)
	if id.OpenID == "" && c.devMode {
		id.OpenID = c.devOpenID
	}
	return id
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body interface{}) (*http.Request, error) {
	endpoint := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func decodeEnvelope(payload []byte, out interface{}) error {
	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return apperr.Wrap(apperr.KindServer, apperr.MsgServer, fmt.Errorf("decode envelope: %w", err))
	}
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperr.Wrap(apperr.KindServer, apperr.MsgServer, fmt.Errorf("decode data: %w", err))
	}
	return nil
}

// mapStatus 远端状态码到错误分类的映射
func mapStatus(status int, payload []byte) *apperr.Error {
	var err *apperr.Error
	switch {
	case status == http.StatusUnauthorized:
		err = apperr.New(apperr.KindUnauthorized, apperr.MsgUnauthorized)
	case status == http.StatusNotFound:
		err = apperr.New(apperr.KindNotFound, apperr.MsgNotFound)
	case status == http.StatusTooManyRequests:
		err = apperr.New(apperr.KindRateLimited, apperr.MsgRateLimited)
	case status >= http.StatusInternalServerError:
		err = apperr.New(apperr.KindServer, apperr.MsgServer)
	default:
		message := fmt.Sprintf("请求失败: %d", status)
		var env envelope
		if json.Unmarshal(payload, &env) == nil && strings.TrimSpace(env.Error) != "" {
			message = strings.TrimSpace(env.Error)
		}
		err = apperr.New(apperr.KindRejected, message)
	}
	err.Status = status
	return err
}

func classifyTransportError(err error) *apperr.Error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return apperr.Wrap(apperr.KindTransientNetwork, apperr.MsgTimeout, err)
	}
	return apperr.Wrap(apperr.KindTransientNetwork, apperr.MsgNetwork, err)
}
