package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenExpiry 读取 JWT 形式令牌中的 exp 声明，仅用于调试日志。
// 不校验签名：令牌由外部服务签发，这里只是转交。
func tokenExpiry(raw string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
