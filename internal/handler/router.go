package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/zhouzirui/speech-token-server/internal/handler/token"
	middlewarePkg "github.com/zhouzirui/speech-token-server/internal/middleware"
	"github.com/zhouzirui/speech-token-server/internal/web"
)

// Options controls the platform-only behaviour of the router.
type Options struct {
	// StaticDir overrides the embedded single-page app.
	StaticDir string
	// OnPlatform enables https enforcement and the /api limits below.
	OnPlatform bool
	// MaxInflight caps concurrent /api requests when OnPlatform is set.
	MaxInflight int
	// RateLimit is the number of /api requests one client IP may make per RateWindow.
	RateLimit  int
	RateWindow time.Duration
}

// NewRouter wires HTTP routes to the token service and the static app.
func NewRouter(tokenSvc token.TokenService, opts Options) (http.Handler, error) {
	static, err := web.Handler(opts.StaticDir)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if opts.OnPlatform {
		// microphone access in browsers requires https
		r.Use(middlewarePkg.RequireHTTPS)
	}

	tokenHandler := token.New(tokenSvc)

	r.Route("/api", func(api chi.Router) {
		if opts.OnPlatform && opts.RateLimit > 0 && opts.RateWindow > 0 {
			api.Use(httprate.LimitByIP(opts.RateLimit, opts.RateWindow))
		}
		if opts.OnPlatform && opts.MaxInflight > 0 {
			api.Use(middleware.Throttle(opts.MaxInflight))
		}

		// Warning: token endpoints are unauthenticated; guard them before production use.
		tokenHandler.RegisterRoutes(api)
		tokenHandler.RegisterHealth(api)
	})

	r.Handle("/*", static)

	return r, nil
}
