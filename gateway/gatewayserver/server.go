// Package gatewayserver exposes any gateway.Gateway over HTTP using the wire
// shapes in package wire.
package gatewayserver

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/goWallet/gateway"
	"github.com/MrEthical07/goWallet/gateway/wire"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const maxBodyBytes = 1 << 16

// Options configures the router.
type Options struct {
	Logger         *slog.Logger
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// Handler serves the wallet gateway routes.
type Handler struct {
	gw     gateway.Gateway
	logger *slog.Logger
}

// NewRouter builds the chi router for gw.
func NewRouter(gw gateway.Gateway, opts Options) *chi.Mux {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"https://*", "http://*"}
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}
	h := &Handler{gw: gw, logger: opts.Logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(opts.Logger.Handler(), slog.LevelInfo),
		NoColor: true,
	}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(opts.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	r.Post(wire.PathGoogleAuth, h.handleGoogleAuth)
	r.Post(wire.PathEmailAuth, h.handleEmailAuth)
	r.Post(wire.PathEmailVerify, h.handleEmailVerify)
	r.Get(wire.PathNetworks, h.handleNetworks)
	r.Get(wire.PathTokens, h.handleTokens)
	r.Get(wire.PathOrderStatus, h.handleOrderStatus)

	r.Group(func(r chi.Router) {
		r.Use(requireBearer)
		r.Get(wire.PathVerifySession, h.handleVerifySession)
		r.Post(wire.PathLogout, h.handleLogout)
		r.Post(wire.PathTransferSubmit, h.handleTransfer)
	})

	return r
}

func (h *Handler) handleGoogleAuth(w http.ResponseWriter, r *http.Request) {
	var req wire.GoogleAuthRequest
	if !decodeBody(w, r, &req) {
		return
	}
	token, err := h.gw.ExchangeFederatedCredential(r.Context(), req.IDToken)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondData(w, wire.AuthTokenData{AuthToken: token})
}

func (h *Handler) handleEmailAuth(w http.ResponseWriter, r *http.Request) {
	var req wire.EmailAuthRequest
	if !decodeBody(w, r, &req) {
		return
	}
	token, err := h.gw.RequestEmailChallenge(r.Context(), req.Email)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondData(w, wire.EmailAuthData{Token: token, Email: req.Email})
}

func (h *Handler) handleEmailVerify(w http.ResponseWriter, r *http.Request) {
	var req wire.EmailVerifyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	token, err := h.gw.VerifyEmailChallenge(r.Context(), req.Email, req.OTP, req.Token)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondData(w, wire.AuthTokenData{AuthToken: token})
}

func (h *Handler) handleVerifySession(w http.ResponseWriter, r *http.Request) {
	id, err := h.gw.VerifySession(r.Context(), bearerFrom(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondData(w, wire.SessionDataFrom(id))
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.gw.InvalidateSession(r.Context(), bearerFrom(r)); err != nil {
		h.respondError(w, err)
		return
	}
	respondData(w, struct{}{})
}

func (h *Handler) handleNetworks(w http.ResponseWriter, r *http.Request) {
	networks, err := h.gw.ListNetworks(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondData(w, wire.NetworksData{Networks: networks})
}

func (h *Handler) handleTokens(w http.ResponseWriter, r *http.Request) {
	tokens, err := h.gw.ListTokens(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondData(w, wire.TokensData{Tokens: tokens})
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req wire.TransferRequest
	if !decodeBody(w, r, &req) {
		return
	}
	amount, err := strconv.ParseFloat(strings.TrimSpace(req.Quantity), 64)
	if err != nil {
		h.respondError(w, gateway.ErrValidationFailure)
		return
	}
	spec := gateway.TransferSpec{
		NetworkID:    req.NetworkName,
		TokenAddress: req.TokenAddress,
		Recipient:    req.RecipientAddress,
		Amount:       amount,
	}
	jobID, err := h.gw.SubmitTransfer(r.Context(), bearerFrom(r), req.SessionConfig, spec)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondData(w, wire.TransferData{JobID: jobID})
}

func (h *Handler) handleOrderStatus(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Query().Get(wire.QueryOrderID)
	report, err := h.gw.CheckJobStatus(r.Context(), bearerFrom(r), jobID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondData(w, wire.OrderStatusData{
		OrderID:         report.JobID,
		Status:          report.Status.String(),
		TransactionHash: report.TransactionHash,
		FailureReason:   report.FailureReason,
	})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	code := gateway.CodeForError(err)
	status := statusForCode(code)
	msg := err.Error()
	if code == "" {
		h.logger.Error("gateway call failed", slog.String("error", err.Error()))
		msg = "gateway unavailable"
	}
	respondJSON(w, status, wire.Envelope{Status: wire.StatusError, Message: msg, Code: code})
}

func statusForCode(code string) int {
	switch code {
	case gateway.CodeAuthFailure, gateway.CodeSessionInvalid:
		return http.StatusUnauthorized
	case gateway.CodeRateLimited:
		return http.StatusTooManyRequests
	case gateway.CodeInvalidEmail, gateway.CodeInvalidCode, gateway.CodeInvalidChallenge,
		gateway.CodeValidationFailure, gateway.CodeSessionMissing:
		return http.StatusBadRequest
	case gateway.CodeUnknownJob:
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

func requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if bearerFrom(r) == "" {
			respondJSON(w, http.StatusUnauthorized, wire.Envelope{
				Status:  wire.StatusError,
				Message: gateway.ErrSessionInvalid.Error(),
				Code:    gateway.CodeSessionInvalid,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerFrom(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		status := http.StatusBadRequest
		if errors.As(err, &maxErr) {
			status = http.StatusRequestEntityTooLarge
		}
		respondJSON(w, status, wire.Envelope{Status: wire.StatusError, Message: "invalid request body"})
		return false
	}
	return true
}

func respondData(w http.ResponseWriter, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		respondJSON(w, http.StatusInternalServerError, wire.Envelope{Status: wire.StatusError, Message: "internal server error"})
		return
	}
	respondJSON(w, http.StatusOK, wire.Envelope{Status: wire.StatusSuccess, Data: raw})
}

func respondJSON(w http.ResponseWriter, status int, env wire.Envelope) {
	raw, err := json.Marshal(env)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(raw)
}
