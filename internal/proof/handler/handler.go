package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"zeropass/internal/proof/models"
	id "zeropass/pkg/domain"
	"zeropass/pkg/platform/httputil"
	"zeropass/pkg/requestcontext"
)

type Service interface {
	Generate(ctx context.Context, userID id.UserID) (*models.GenerateResult, error)
	Verify(ctx context.Context, payload string) (*models.VerifyResult, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts proof generation, which needs an authenticated user.
func (h *Handler) Register(r chi.Router) {
	r.Post("/proof/generate", h.HandleGenerate)
}

// RegisterPublic mounts verification. Verifiers are anonymous.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/proof/verify", h.HandleVerify)
}

func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := httputil.RequireUserID(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.Generate(ctx, userID)
	if err != nil {
		h.logger.WarnContext(ctx, "proof generation failed",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", userID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, GenerateProofResponse{
		Payload:      result.Payload,
		Commitment:   result.Commitment,
		CredentialID: string(result.CredentialID),
		ExpiresAt:    result.ExpiresAt,
	})
}

// HandleVerify answers 200 for every policy outcome, valid or not, except
// RATE_LIMITED which is 429 so clients back off.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[VerifyProofRequest](w, r, h.logger)
	if !ok {
		return
	}

	result, err := h.service.Verify(ctx, req.Payload)
	if err != nil {
		h.logger.WarnContext(ctx, "proof verification failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	status := http.StatusOK
	if result.Reason == models.ReasonRateLimited {
		status = http.StatusTooManyRequests
	}
	httputil.WriteJSON(w, status, toVerifyResponse(result))
}
