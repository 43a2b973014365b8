package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/zhouzirui/speech-token-server/internal/model/speech"
)

// Credentials holds the resolved credential set of every slot.
type Credentials struct {
	SpeechToText speech.CredentialSet
	TextToSpeech speech.CredentialSet
}

// For returns the credential set bound to slot.
func (c Credentials) For(slot speech.Slot) (speech.CredentialSet, bool) {
	switch slot {
	case speech.SpeechToText:
		return c.SpeechToText, true
	case speech.TextToSpeech:
		return c.TextToSpeech, true
	default:
		return speech.CredentialSet{}, false
	}
}

func (c *Credentials) set(slot speech.Slot, set speech.CredentialSet) {
	switch slot {
	case speech.SpeechToText:
		c.SpeechToText = set
	case speech.TextToSpeech:
		c.TextToSpeech = set
	}
}

// Sources 是凭证解析的输入：本地配置文件的键值与进程环境变量。
type Sources struct {
	File    map[string]string
	Environ map[string]string
}

// 本地配置文件中的键名：STT_USERNAME、STT_APIKEY、TTS_URL 等。
type fileSlot struct {
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	APIKey   string `env:"APIKEY"`
	URL      string `env:"URL"`
}

type fileCredentials struct {
	SpeechToText fileSlot `envPrefix:"STT_"`
	TextToSpeech fileSlot `envPrefix:"TTS_"`
}

// 环境变量名：SPEECH_TO_TEXT_USERNAME、SPEECH_TO_TEXT_IAM_APIKEY 等。
type envSlot struct {
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	APIKey   string `env:"IAM_APIKEY"`
	URL      string `env:"URL"`
}

type envCredentials struct {
	SpeechToText envSlot `envPrefix:"SPEECH_TO_TEXT_"`
	TextToSpeech envSlot `envPrefix:"TEXT_TO_SPEECH_"`
}

func (s fileSlot) credentialSet() speech.CredentialSet {
	return speech.CredentialSet{Username: s.Username, Password: s.Password, APIKey: s.APIKey, ServiceURL: s.URL}
}

func (s envSlot) credentialSet() speech.CredentialSet {
	return speech.CredentialSet{Username: s.Username, Password: s.Password, APIKey: s.APIKey, ServiceURL: s.URL}
}

// ResolveCredentials 按优先级合并凭证来源：
// 默认值 < 本地配置文件 < 环境变量 < 平台绑定（VCAP_SERVICES）。
// 前三层逐字段合并，只有非空值才会覆盖；平台绑定整体替换该槽位的四个字段。
// 所有字段为空并不是错误，缺失凭证会在申请令牌时报告。
func ResolveCredentials(src Sources) (Credentials, error) {
	var fromFile fileCredentials
	if err := env.ParseWithOptions(&fromFile, env.Options{Environment: nonNil(src.File)}); err != nil {
		return Credentials{}, fmt.Errorf("parse config file credentials: %w", err)
	}

	var fromEnv envCredentials
	if err := env.ParseWithOptions(&fromEnv, env.Options{Environment: nonNil(src.Environ)}); err != nil {
		return Credentials{}, fmt.Errorf("parse credential env: %w", err)
	}

	var out Credentials
	out.SpeechToText = speech.CredentialSet{}.
		Merge(fromFile.SpeechToText.credentialSet()).
		Merge(fromEnv.SpeechToText.credentialSet())
	out.TextToSpeech = speech.CredentialSet{}.
		Merge(fromFile.TextToSpeech.credentialSet()).
		Merge(fromEnv.TextToSpeech.credentialSet())

	if platformBindingPresent(src.Environ) {
		bindings, err := ParseBindings(src.Environ[vcapServicesKey])
		if err != nil {
			return Credentials{}, err
		}
		for _, slot := range speech.Slots() {
			bound, err := bindings.CredentialsFor(slot)
			if err != nil {
				return Credentials{}, err
			}
			out.set(slot, bound)
		}
	}

	for _, slot := range speech.Slots() {
		set, _ := out.For(slot)
		if set.ServiceURL == "" {
			set.ServiceURL = slot.DefaultURL()
			out.set(slot, set)
		}
	}

	return out, nil
}

func nonNil(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
