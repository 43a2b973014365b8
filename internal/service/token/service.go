package token

import (
	"context"
	"fmt"
	"log"

	"github.com/zhouzirui/speech-token-server/internal/model/speech"
)

// CredentialSource 提供每个槽位启动时解析好的凭证。
type CredentialSource interface {
	For(slot speech.Slot) (speech.CredentialSet, bool)
}

type apiKeyExchanger interface {
	RequestToken(ctx context.Context, apiKey string) (string, error)
}

type passwordAuthorizer interface {
	RequestToken(ctx context.Context, username, password, serviceURL string) (string, error)
}

// Options 令牌服务的依赖。
type Options struct {
	IAM           *IAMClient
	Authorization *AuthorizationClient
	// Debug 为真时记录令牌过期时间（从不记录令牌本身）。
	Debug bool
}

// binding 是槽位在启动时确定的认证方式，之后只读。
type binding struct {
	auth       speech.AuthMode
	serviceURL string
}

// Service 为每个服务槽位向外部认证服务申请令牌。
// 不缓存令牌，不重试，每次请求对应一次外部调用。
type Service struct {
	bindings map[speech.Slot]binding
	iam      apiKeyExchanger
	authz    passwordAuthorizer
	debug    bool
}

// NewService 创建令牌服务，并为每个槽位确定一次认证模式。
func NewService(creds CredentialSource, opts Options) *Service {
	bindings := make(map[speech.Slot]binding, len(speech.Slots()))
	for _, slot := range speech.Slots() {
		set, ok := creds.For(slot)
		if !ok {
			continue
		}
		serviceURL := set.ServiceURL
		if serviceURL == "" {
			serviceURL = slot.DefaultURL()
		}
		bindings[slot] = binding{auth: set.AuthMode(), serviceURL: serviceURL}
	}

	svc := &Service{bindings: bindings, debug: opts.Debug}
	// 避免把 nil 指针包装成非 nil 接口。
	if opts.IAM != nil {
		svc.iam = opts.IAM
	}
	if opts.Authorization != nil {
		svc.authz = opts.Authorization
	}
	return svc
}

// GetToken 使用槽位的凭证申请一个令牌并原样返回。
// API Key 存在时总是走 IAM 交换，否则走用户名/密码授权。
func (s *Service) GetToken(ctx context.Context, slot speech.Slot) (string, error) {
	b, ok := s.bindings[slot]
	if !ok {
		return "", fmt.Errorf("%q: %w", slot, ErrUnknownSlot)
	}

	var (
		token string
		err   error
	)

	switch auth := b.auth.(type) {
	case speech.APIKeyAuth:
		if s.iam == nil {
			return "", fmt.Errorf("%s: iam client not configured", slot)
		}
		token, err = s.iam.RequestToken(ctx, auth.Key)
	case speech.BasicAuth:
		if s.authz == nil {
			return "", fmt.Errorf("%s: authorization client not configured", slot)
		}
		token, err = s.authz.RequestToken(ctx, auth.Username, auth.Password, b.serviceURL)
	default:
		return "", fmt.Errorf("%s: %w", slot, ErrCredentialsMissing)
	}

	if err != nil {
		return "", fmt.Errorf("%s token via %s: %w", slot, b.auth.Name(), err)
	}

	if s.debug {
		if exp, ok := tokenExpiry(token); ok {
			log.Printf("[token] issued %s token via %s, expires %s", slot, b.auth.Name(), exp.UTC().Format("2006-01-02T15:04:05Z"))
		} else {
			log.Printf("[token] issued %s token via %s", slot, b.auth.Name())
		}
	}

	return token, nil
}

// Status 返回每个槽位的认证模式与服务地址，不含任何密钥。
func (s *Service) Status() []speech.SlotStatus {
	statuses := make([]speech.SlotStatus, 0, len(s.bindings))
	for _, slot := range speech.Slots() {
		b, ok := s.bindings[slot]
		if !ok {
			continue
		}
		mode := speech.ModeNone
		if b.auth != nil {
			mode = b.auth.Name()
		}
		statuses = append(statuses, speech.SlotStatus{
			Slot:       slot,
			AuthMode:   mode,
			ServiceURL: b.serviceURL,
			Ready:      b.auth != nil,
		})
	}
	return statuses
}
