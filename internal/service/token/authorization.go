package token

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// AuthorizationClient 使用用户名/密码向授权服务申请指定服务地址的令牌。
type AuthorizationClient struct {
	endpoint   string
	httpClient *http.Client
}

// NewAuthorizationClient 创建授权服务客户端；httpClient 为 nil 时使用 http.DefaultClient。
func NewAuthorizationClient(endpoint string, httpClient *http.Client) *AuthorizationClient {
	return &AuthorizationClient{
		endpoint:   endpoint,
		httpClient: httpClientOrDefault(httpClient),
	}
}

// RequestToken 申请作用于 serviceURL 的令牌，响应体即令牌原文。
func (c *AuthorizationClient) RequestToken(ctx context.Context, username, password, serviceURL string) (string, error) {
	if strings.TrimSpace(username) == "" {
		return "", ErrCredentialsMissing
	}

	endpoint, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse authorization endpoint: %w", err)
	}
	query := endpoint.Query()
	query.Set("url", serviceURL)
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return "", fmt.Errorf("build authorization request: %w", err)
	}
	req.SetBasicAuth(username, password)

	body, err := do(c.httpClient, req)
	if err != nil {
		return "", err
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return "", ErrEmptyToken
	}

	return string(body), nil
}
