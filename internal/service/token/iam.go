package token

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const apiKeyGrantType = "urn:ibm:params:oauth:grant-type:apikey"

// IAMClient 使用 API Key 向身份服务交换访问令牌。
type IAMClient struct {
	endpoint   string
	httpClient *http.Client
}

type iamTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Expiration  int64  `json:"expiration"`
}

// NewIAMClient 创建 IAM 令牌客户端；httpClient 为 nil 时使用 http.DefaultClient。
func NewIAMClient(endpoint string, httpClient *http.Client) *IAMClient {
	return &IAMClient{
		endpoint:   endpoint,
		httpClient: httpClientOrDefault(httpClient),
	}
}

// RequestToken 用 API Key 换取访问令牌，返回身份服务给出的 access_token 原文。
func (c *IAMClient) RequestToken(ctx context.Context, apiKey string) (string, error) {
	if strings.TrimSpace(apiKey) == "" {
		return "", ErrCredentialsMissing
	}

	form := url.Values{}
	form.Set("grant_type", apiKeyGrantType)
	form.Set("apikey", apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build iam request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	body, err := do(c.httpClient, req)
	if err != nil {
		return "", err
	}

	var payload iamTokenResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decode iam response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", ErrEmptyToken
	}

	return payload.AccessToken, nil
}
