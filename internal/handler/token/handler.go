package token

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/speech-token-server/internal/model/speech"
	tokensvc "github.com/zhouzirui/speech-token-server/internal/service/token"
	"github.com/zhouzirui/speech-token-server/pkg/utils"
)

// TokenService 抽象令牌业务，便于测试与替换实现
type TokenService interface {
	GetToken(ctx context.Context, slot speech.Slot) (string, error)
	Status() []speech.SlotStatus
}

// Handler 令牌服务的HTTP处理器
type Handler struct {
	tokenSvc TokenService
}

// New 创建令牌处理器
func New(tokenSvc TokenService) *Handler {
	return &Handler{tokenSvc: tokenSvc}
}

// RegisterRoutes 注册令牌相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/speech-to-text/token", h.slotToken(speech.SpeechToText))
	r.Get("/text-to-speech/token", h.slotToken(speech.TextToSpeech))
}

// RegisterHealth 注册健康检查路由
func (h *Handler) RegisterHealth(r chi.Router) {
	r.Get("/health", h.handleHealth)
}

func (h *Handler) slotToken(slot speech.Slot) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.processToken(w, r, slot)
	}
}

func (h *Handler) processToken(w http.ResponseWriter, r *http.Request, slot speech.Slot) {
	token, err := h.tokenSvc.GetToken(r.Context(), slot)
	if err != nil {
		log.Printf("[token] error retrieving %s token: %v", slot, err)
		status, message := errorStatus(err)
		w.Header().Set("Cache-Control", "no-store")
		utils.RespondError(w, status, message)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	utils.RespondText(w, http.StatusOK, token)
}

// errorStatus 把令牌错误映射为HTTP状态码与对外消息，不暴露外部服务的响应内容。
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, tokensvc.ErrUnknownSlot):
		return http.StatusNotFound, "unknown service"
	case errors.Is(err, tokensvc.ErrCredentialsMissing):
		return http.StatusUnauthorized, "no credentials configured for service"
	case tokensvc.IsAuthRejected(err):
		return http.StatusUnauthorized, "credentials rejected by authentication service"
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "request cancelled"
	default:
		return http.StatusBadGateway, "error retrieving token"
	}
}

// handleHealth 健康检查端点
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	statuses := h.tokenSvc.Status()
	status := "healthy"
	for _, s := range statuses {
		if !s.Ready {
			status = "degraded"
			break
		}
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"status": status,
		"slots":  statuses,
	})
}
