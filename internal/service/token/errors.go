package token

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrCredentialsMissing 槽位既没有 API Key 也没有用户名/密码。
	ErrCredentialsMissing = errors.New("no usable credentials configured")
	// ErrUnknownSlot 请求了未定义的服务槽位。
	ErrUnknownSlot = errors.New("unknown service slot")
	// ErrEmptyToken 外部服务返回成功状态但没有令牌。
	ErrEmptyToken = errors.New("upstream returned an empty token")
)

// UpstreamError 外部认证服务返回了非 2xx 状态。
type UpstreamError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s responded %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("%s responded %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// IsAuthRejected 表示外部服务拒绝了所给凭证。
func IsAuthRejected(err error) bool {
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		return false
	}
	switch upstream.StatusCode {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return true
	default:
		return false
	}
}
