package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"zeropass/internal/credential/models"
	id "zeropass/pkg/domain"
	"zeropass/pkg/platform/httputil"
	"zeropass/pkg/requestcontext"
)

// Service defines the credential operations used by the handler.
type Service interface {
	SubmitKYC(ctx context.Context, userID id.UserID, wallet id.WalletAddress, claims models.Claims, txHash string) (*models.Credential, error)
	ConfirmPayment(ctx context.Context, userID id.UserID, txHash string) (*models.Credential, error)
	Revoke(ctx context.Context, userID id.UserID) (*models.Credential, error)
	Status(ctx context.Context, userID id.UserID) (*models.StatusView, error)
	StatusByWallet(ctx context.Context, wallet id.WalletAddress) (*models.StatusView, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the endpoints that need an authenticated user.
func (h *Handler) Register(r chi.Router) {
	r.Post("/kyc/submit", h.HandleSubmitKYC)
	r.Post("/kyc/confirm-payment", h.HandleConfirmPayment)
	r.Get("/credential/status", h.HandleStatus)
	r.Post("/credential/revoke", h.HandleRevoke)
}

// RegisterPublic mounts the anonymous wallet lookup.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/credential/wallet/{address}", h.HandleWalletStatus)
}

func (h *Handler) HandleSubmitKYC(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := httputil.RequireUserID(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[SubmitKYCRequest](w, r, h.logger)
	if !ok {
		return
	}
	now := requestcontext.Now(ctx)
	claims, err := models.NewClaims(req.FullName, req.DateOfBirth, req.Country, req.DocumentType, now)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	cred, err := h.service.SubmitKYC(ctx, userID, req.ParsedWallet(), claims, req.TransactionHash)
	if err != nil {
		h.logFailure(ctx, "kyc submission failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCredentialResponse(cred, now))
}

func (h *Handler) HandleConfirmPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := httputil.RequireUserID(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ConfirmPaymentRequest](w, r, h.logger)
	if !ok {
		return
	}

	cred, err := h.service.ConfirmPayment(ctx, userID, req.TransactionHash)
	if err != nil {
		h.logFailure(ctx, "payment confirmation failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCredentialResponse(cred, requestcontext.Now(ctx)))
}

func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := httputil.RequireUserID(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	cred, err := h.service.Revoke(ctx, userID)
	if err != nil {
		h.logFailure(ctx, "revoke failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCredentialResponse(cred, requestcontext.Now(ctx)))
}

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := httputil.RequireUserID(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	view, err := h.service.Status(ctx, userID)
	if err != nil {
		h.logFailure(ctx, "status lookup failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toStatusResponse(view))
}

func (h *Handler) HandleWalletStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	wallet, err := id.ParseWalletAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	view, err := h.service.StatusByWallet(ctx, wallet)
	if err != nil {
		h.logFailure(ctx, "wallet status lookup failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, WalletStatusResponse{
		WalletAddress: string(wallet),
		Status:        string(view.Status),
		CredentialID:  string(view.CredentialID),
		ExpiresAt:     view.ExpiresAt,
	})
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	h.logger.WarnContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"user_id", requestcontext.UserID(ctx),
		"error", err,
	)
}
