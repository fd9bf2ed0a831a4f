package backend

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Identity 调用方身份（小程序 openid 与登录令牌）
type Identity struct {
	OpenID string
	Token  string
}

// Empty 是否没有任何身份信息
func (i Identity) Empty() bool {
	return strings.TrimSpace(i.OpenID) == "" && strings.TrimSpace(i.Token) == ""
}

// Key 会话键，用于限流、快照等按用户隔离的状态
func (i Identity) Key() string {
	if openID := strings.TrimSpace(i.OpenID); openID != "" {
		return "oid:" + openID
	}
	if token := strings.TrimSpace(i.Token); token != "" {
		sum := sha256.Sum256([]byte(token))
		return "tk:" + hex.EncodeToString(sum[:8])
	}
	return "anonymous"
}

type identityKey struct{}

// WithIdentity 将身份写入上下文
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom 从上下文读取身份
func IdentityFrom(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// SessionKey 上下文对应的会话键
func SessionKey(ctx context.Context) string {
	id, _ := IdentityFrom(ctx)
	return id.Key()
}
