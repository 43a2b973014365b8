package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zhouzirui/speech-token-server/internal/config"
	"github.com/zhouzirui/speech-token-server/internal/handler"
	"github.com/zhouzirui/speech-token-server/internal/service/token"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	httpClient := &http.Client{Timeout: cfg.Upstream.Timeout}
	tokenService := token.NewService(cfg.Credentials, token.Options{
		IAM:           token.NewIAMClient(cfg.Upstream.IAMURL, httpClient),
		Authorization: token.NewAuthorizationClient(cfg.Upstream.AuthorizationURL, httpClient),
		Debug:         cfg.Server.Debug,
	})

	for _, status := range tokenService.Status() {
		if status.Ready {
			log.Printf("[config] %s uses %s credentials (%s)", status.Slot, status.AuthMode, status.ServiceURL)
		} else {
			log.Printf("[config] warning: no credentials for %s, token requests will fail", status.Slot)
		}
	}
	if cfg.Server.OnPlatform {
		log.Println("[config] platform service binding detected, enforcing https on all routes")
		if cfg.Server.RateLimit > 0 {
			log.Printf("[config] limiting /api to %d requests per %s per client ip", cfg.Server.RateLimit, cfg.Server.RateWindow)
		}
	}

	router, err := handler.NewRouter(tokenService, handler.Options{
		StaticDir:   cfg.Server.StaticDir,
		OnPlatform:  cfg.Server.OnPlatform,
		MaxInflight: cfg.Server.MaxInflight,
		RateLimit:   cfg.Server.RateLimit,
		RateWindow:  cfg.Server.RateWindow,
	})
	if err != nil {
		log.Fatalf("failed to build router: %v", err)
	}

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	servers := []*managedServer{{
		srv:  newHTTPServer(serverCfg.Addr, router),
		name: "http",
	}}

	// browsers only grant microphone access to https or localhost origins
	if serverCfg.TLSEnabled() {
		servers = append(servers, &managedServer{
			srv:      newHTTPServer(serverCfg.HTTPSAddr, router),
			name:     "https",
			certFile: serverCfg.TLSCertFile,
			keyFile:  serverCfg.TLSKeyFile,
		})
	}

	for _, s := range servers {
		log.Printf("[server] speech token server (%s) listening on %s", s.name, s.srv.Addr)
	}
	if err := runServers(ctx, servers); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

type managedServer struct {
	srv      *http.Server
	name     string
	certFile string
	keyFile  string
}

func (m *managedServer) listen() error {
	if m.certFile != "" {
		return m.srv.ListenAndServeTLS(m.certFile, m.keyFile)
	}
	return m.srv.ListenAndServe()
}

func newHTTPServer(addr string, router http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

func runServers(ctx context.Context, servers []*managedServer) error {
	errCh := make(chan error, len(servers))
	for _, s := range servers {
		go func(s *managedServer) {
			errCh <- s.listen()
		}(s)
	}

	shutdown := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for _, s := range servers {
			_ = s.srv.Shutdown(shutdownCtx)
		}
	}

	select {
	case <-ctx.Done():
		shutdown()
	case err := <-errCh:
		shutdown()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	return nil
}
