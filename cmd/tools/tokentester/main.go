package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/zhouzirui/speech-token-server/internal/config"
	"github.com/zhouzirui/speech-token-server/internal/model/speech"
	"github.com/zhouzirui/speech-token-server/internal/service/token"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	slotName := flag.StringP("slot", "s", "", "服务槽位: speech-to-text 或 text-to-speech")
	timeout := flag.Duration("timeout", 30*time.Second, "请求超时时间")
	printToken := flag.Bool("print", false, "将令牌原文输出到标准输出")
	showConfig := flag.Bool("show-config", false, "只输出解析后的认证模式，不申请令牌")

	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}

	httpClient := &http.Client{Timeout: cfg.Upstream.Timeout}
	svc := token.NewService(cfg.Credentials, token.Options{
		IAM:           token.NewIAMClient(cfg.Upstream.IAMURL, httpClient),
		Authorization: token.NewAuthorizationClient(cfg.Upstream.AuthorizationURL, httpClient),
		Debug:         true,
	})

	if *showConfig {
		for _, status := range svc.Status() {
			fmt.Printf("%-16s mode=%-6s url=%s\n", status.Slot, status.AuthMode, status.ServiceURL)
		}
		return
	}

	slot, ok := speech.ParseSlot(*slotName)
	if !ok {
		flag.Usage()
		log.Fatal("请通过 --slot=speech-to-text 或 --slot=text-to-speech 指定服务")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	log.Printf("开始申请令牌: slot=%s", slot)

	started := time.Now()
	tok, err := svc.GetToken(ctx, slot)
	if err != nil {
		log.Fatalf("令牌申请失败: %v", err)
	}

	log.Printf("令牌申请成功: slot=%s length=%d elapsed=%s", slot, len(tok), time.Since(started).Round(time.Millisecond))
	if *printToken {
		fmt.Fprintln(os.Stdout, tok)
	}
}
