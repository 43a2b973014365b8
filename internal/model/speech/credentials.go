package speech

import "strings"

// CredentialSet 单个服务槽位的凭证，所有字段均可为空。
type CredentialSet struct {
	Username   string `json:"username,omitempty"`
	Password   string `json:"password,omitempty"`
	APIKey     string `json:"apikey,omitempty"`
	ServiceURL string `json:"url,omitempty"`
}

// Merge 按字段覆盖：override 中非空（去除首尾空白后）的字段替换当前值。
// 用户名、密码与 API Key 原样保存，只有服务地址会去除首尾空白。
func (c CredentialSet) Merge(override CredentialSet) CredentialSet {
	if present(override.Username) {
		c.Username = override.Username
	}
	if present(override.Password) {
		c.Password = override.Password
	}
	if present(override.APIKey) {
		c.APIKey = override.APIKey
	}
	if v := strings.TrimSpace(override.ServiceURL); v != "" {
		c.ServiceURL = v
	}
	return c
}

func present(v string) bool {
	return strings.TrimSpace(v) != ""
}

// IsEmpty 表示没有任何可用于认证的字段。
func (c CredentialSet) IsEmpty() bool {
	return !present(c.APIKey) && !present(c.Username) && !present(c.Password)
}

// AuthMode 决定向外部认证服务换取令牌的方式。
// 只有 APIKeyAuth 与 BasicAuth 两种实现。
type AuthMode interface {
	// Name 返回可安全输出到日志与健康检查中的模式名称。
	Name() string
	authMode()
}

// APIKeyAuth 使用 IAM API Key 交换令牌。
type APIKeyAuth struct {
	Key string
}

// BasicAuth 使用用户名/密码向授权服务申请令牌。
type BasicAuth struct {
	Username string
	Password string
}

func (APIKeyAuth) Name() string { return "apikey" }
func (APIKeyAuth) authMode()    {}

func (BasicAuth) Name() string { return "basic" }
func (BasicAuth) authMode()    {}

// ModeNone is reported for slots that have no usable credentials.
const ModeNone = "none"

// AuthMode 解析当前凭证对应的认证模式：API Key 优先，其次用户名/密码。
// 两者都不可用时返回 nil。
func (c CredentialSet) AuthMode() AuthMode {
	if present(c.APIKey) {
		return APIKeyAuth{Key: c.APIKey}
	}
	if present(c.Username) {
		return BasicAuth{Username: c.Username, Password: c.Password}
	}
	return nil
}
