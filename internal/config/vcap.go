package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/zhouzirui/speech-token-server/internal/model/speech"
)

const vcapServicesKey = "VCAP_SERVICES"

// ErrMalformedBinding 平台注入的 VCAP_SERVICES 无法解析或缺少必需字段。
var ErrMalformedBinding = errors.New("malformed platform service binding")

// Bindings 是 VCAP_SERVICES 按服务名分组的绑定条目。
type Bindings map[string][]BindingEntry

// BindingEntry 平台绑定中的单个服务实例。
type BindingEntry struct {
	Name        string              `json:"name,omitempty"`
	Label       string              `json:"label,omitempty"`
	Credentials *BindingCredentials `json:"credentials"`
}

// BindingCredentials 平台绑定的凭证子对象。
type BindingCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	APIKey   string `json:"apikey"`
	URL      string `json:"url"`
}

func platformBindingPresent(environ map[string]string) bool {
	raw, ok := environ[vcapServicesKey]
	return ok && strings.TrimSpace(raw) != ""
}

// ParseBindings 解析 VCAP_SERVICES 的 JSON 内容。
func ParseBindings(raw string) (Bindings, error) {
	var bindings Bindings
	if err := json.Unmarshal([]byte(raw), &bindings); err != nil {
		return nil, fmt.Errorf("%w: %s is not valid JSON: %v", ErrMalformedBinding, vcapServicesKey, err)
	}
	if bindings == nil {
		return nil, fmt.Errorf("%w: %s must be a JSON object", ErrMalformedBinding, vcapServicesKey)
	}
	return bindings, nil
}

// CredentialsFor 返回槽位对应服务的第一个绑定条目的凭证。
// 平台绑定整体替换该槽位的四个字段，url 为空时使用槽位默认地址。
func (b Bindings) CredentialsFor(slot speech.Slot) (speech.CredentialSet, error) {
	name := slot.BindingName()
	entries, ok := b[name]
	if !ok {
		return speech.CredentialSet{}, fmt.Errorf("%w: no %q service bound", ErrMalformedBinding, name)
	}
	if len(entries) == 0 {
		return speech.CredentialSet{}, fmt.Errorf("%w: %q has no binding entries", ErrMalformedBinding, name)
	}

	creds := entries[0].Credentials
	if creds == nil {
		return speech.CredentialSet{}, fmt.Errorf("%w: first %q binding has no credentials", ErrMalformedBinding, name)
	}

	url := strings.TrimSpace(creds.URL)
	if url == "" {
		url = slot.DefaultURL()
	}

	return speech.CredentialSet{
		Username:   creds.Username,
		Password:   creds.Password,
		APIKey:     creds.APIKey,
		ServiceURL: url,
	}, nil
}
