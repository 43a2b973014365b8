package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config 聚合整个服务的配置项，启动时构建一次，之后只读。
type Config struct {
	Server      ServerConfig
	Upstream    UpstreamConfig
	Credentials Credentials
}

// Load 从进程环境变量与本地配置文件加载配置。
func Load() (*Config, error) {
	return LoadFrom(EnvironMap(os.Environ()))
}

// LoadFrom 使用给定的环境变量快照加载配置，便于测试。
func LoadFrom(environ map[string]string) (*Config, error) {
	server, err := loadServerConfig(environ)
	if err != nil {
		return nil, err
	}

	upstream, err := loadUpstreamConfig(environ)
	if err != nil {
		return nil, err
	}

	file, err := ReadConfigFile(server.EnvFile)
	if err != nil {
		return nil, err
	}

	creds, err := ResolveCredentials(Sources{File: file, Environ: environ})
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, Upstream: upstream, Credentials: creds}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr        string
	HTTPSAddr   string
	TLSCertFile string
	TLSKeyFile  string
	StaticDir   string
	EnvFile     string
	MaxInflight int
	// RateLimit 每个客户端 IP 在 RateWindow 内可发起的 /api 请求数，0 表示不限制。
	RateLimit  int
	RateWindow time.Duration
	Debug      bool
	// OnPlatform 表示检测到了平台注入的 VCAP_SERVICES。
	OnPlatform bool
}

// TLSEnabled 表示是否需要额外启动本地 HTTPS 监听。
func (c ServerConfig) TLSEnabled() bool {
	return !c.OnPlatform && c.TLSCertFile != "" && c.TLSKeyFile != ""
}

type serverEnv struct {
	Port        string `env:"PORT"`
	VCAPAppPort string `env:"VCAP_APP_PORT"`
	HTTPSPort   string `env:"TOKEN_SERVER_HTTPS_PORT" envDefault:"3001"`
	TLSCert     string `env:"TOKEN_SERVER_TLS_CERT"`
	TLSKey      string `env:"TOKEN_SERVER_TLS_KEY"`
	StaticDir   string `env:"TOKEN_SERVER_STATIC_DIR"`
	EnvFile     string `env:"TOKEN_SERVER_ENV_FILE" envDefault:".env"`
	MaxInflight int           `env:"TOKEN_SERVER_MAX_INFLIGHT" envDefault:"100"`
	RateLimit   int           `env:"TOKEN_SERVER_RATE_LIMIT" envDefault:"100"`
	RateWindow  time.Duration `env:"TOKEN_SERVER_RATE_WINDOW" envDefault:"15m"`
	Debug       bool          `env:"TOKEN_SERVER_DEBUG"`
}

// loadServerConfig 解析服务器监听地址等设置。
func loadServerConfig(environ map[string]string) (ServerConfig, error) {
	var raw serverEnv
	if err := env.ParseWithOptions(&raw, env.Options{Environment: nonNil(environ)}); err != nil {
		return ServerConfig{}, fmt.Errorf("parse server env: %w", err)
	}

	port := strings.TrimSpace(raw.Port)
	if port == "" {
		port = strings.TrimSpace(raw.VCAPAppPort)
	}
	addr, err := listenAddr("PORT", port, "3000")
	if err != nil {
		return ServerConfig{}, err
	}

	httpsAddr, err := listenAddr("TOKEN_SERVER_HTTPS_PORT", strings.TrimSpace(raw.HTTPSPort), "3001")
	if err != nil {
		return ServerConfig{}, err
	}

	maxInflight := raw.MaxInflight
	if maxInflight < 1 {
		maxInflight = 100
	}

	if raw.RateLimit < 0 || raw.RateWindow < 0 {
		return ServerConfig{}, fmt.Errorf("invalid rate limit %d per %s: must not be negative", raw.RateLimit, raw.RateWindow)
	}

	envFile := strings.TrimSpace(raw.EnvFile)
	if envFile == "" {
		envFile = ".env"
	}

	return ServerConfig{
		Addr:        addr,
		HTTPSAddr:   httpsAddr,
		TLSCertFile: strings.TrimSpace(raw.TLSCert),
		TLSKeyFile:  strings.TrimSpace(raw.TLSKey),
		StaticDir:   strings.TrimSpace(raw.StaticDir),
		EnvFile:     envFile,
		MaxInflight: maxInflight,
		RateLimit:   raw.RateLimit,
		RateWindow:  raw.RateWindow,
		Debug:       raw.Debug,
		OnPlatform:  platformBindingPresent(environ),
	}, nil
}

func listenAddr(key, port, fallback string) (string, error) {
	if port == "" {
		port = fallback
	}

	if strings.Contains(port, ":") {
		// 允许直接传入 ":3000" 或 "127.0.0.1:3000"。
		return port, nil
	}

	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid %s value: %q", key, port)
	}

	return ":" + port, nil
}

// UpstreamConfig 描述外部认证服务的地址与超时。
type UpstreamConfig struct {
	IAMURL           string
	AuthorizationURL string
	Timeout          time.Duration
}

const (
	DefaultIAMURL           = "https://iam.cloud.ibm.com/identity/token"
	DefaultAuthorizationURL = "https://stream.watsonplatform.net/authorization/api/v1/token"
)

type upstreamEnv struct {
	IAMURL           string        `env:"IAM_URL"`
	AuthorizationURL string        `env:"AUTHORIZATION_URL"`
	Timeout          time.Duration `env:"TOKEN_UPSTREAM_TIMEOUT" envDefault:"30s"`
}

func loadUpstreamConfig(environ map[string]string) (UpstreamConfig, error) {
	var raw upstreamEnv
	if err := env.ParseWithOptions(&raw, env.Options{Environment: nonNil(environ)}); err != nil {
		return UpstreamConfig{}, fmt.Errorf("parse upstream env: %w", err)
	}

	if raw.Timeout < 0 {
		return UpstreamConfig{}, fmt.Errorf("invalid TOKEN_UPSTREAM_TIMEOUT value %q: must not be negative", raw.Timeout)
	}

	return UpstreamConfig{
		IAMURL:           orDefault(raw.IAMURL, DefaultIAMURL),
		AuthorizationURL: orDefault(raw.AuthorizationURL, DefaultAuthorizationURL),
		Timeout:          raw.Timeout,
	}, nil
}

// ReadConfigFile 读取本地开发配置文件（.env 格式）。
// 文件不存在时返回空集合，不会写入进程环境变量。
func ReadConfigFile(path string) (map[string]string, error) {
	if strings.TrimSpace(path) == "" {
		return map[string]string{}, nil
	}

	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Printf("[config] %s not found, continuing with environment variables only", path)
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	if keys := environmentStyleKeys(values); len(keys) > 0 {
		log.Printf("[config] warning: %s contains environment variable names %v, which are ignored in this file; use STT_*/TTS_* keys or export them instead", path, keys)
	}
	return values, nil
}

// environmentStyleKeys 返回配置文件中使用环境变量命名（SPEECH_TO_TEXT_*、TEXT_TO_SPEECH_*）的键。
func environmentStyleKeys(values map[string]string) []string {
	var keys []string
	for key := range values {
		if strings.HasPrefix(key, "SPEECH_TO_TEXT_") || strings.HasPrefix(key, "TEXT_TO_SPEECH_") {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys
}

// EnvironMap 把 os.Environ 形式的 KEY=VALUE 列表转换为 map。
func EnvironMap(environ []string) map[string]string {
	out := make(map[string]string, len(environ))
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		out[key] = value
	}
	return out
}

func orDefault(value, defaultValue string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return defaultValue
}
