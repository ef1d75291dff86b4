package settings

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"absapay-be/internal/logger"
	"absapay-be/internal/payment"
	"absapay-be/internal/utils"

	"go.uber.org/zap"
)

// SecretMask replaces the stored API secret in admin responses.
const SecretMask = "********"

type settingsResponse struct {
	Enabled      bool       `json:"enabled"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	TestMode     bool       `json:"test_mode"`
	MerchantID   string     `json:"merchant_id"`
	APIKey       string     `json:"api_key"`
	APISecret    string     `json:"api_secret"`
	ReturnPageID *uint      `json:"return_page_id"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

func toResponse(s *Settings) settingsResponse {
	resp := settingsResponse{
		Enabled:      s.Enabled,
		Title:        s.Title,
		Description:  s.Description,
		TestMode:     s.TestMode,
		MerchantID:   s.MerchantID,
		APIKey:       s.APIKey,
		ReturnPageID: s.ReturnPageID,
	}
	if s.APISecret != "" {
		resp.APISecret = SecretMask
	}
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		resp.UpdatedAt = &t
	}
	return resp
}

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Get(r.Context())
	if err != nil {
		logger.FromCtx(r.Context()).Error("failed to load gateway settings", zap.Error(err))
		utils.WriteJSONError(w, "failed to load settings", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, toResponse(s))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var in UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		utils.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	s, err := h.svc.Update(r.Context(), in)
	if err != nil {
		var cfgErr *payment.ConfigurationError
		switch {
		case errors.Is(err, ErrEmptyUpdate):
			utils.WriteJSONError(w, err.Error(), http.StatusBadRequest)
		case errors.As(err, &cfgErr), errors.Is(err, ErrPageNotFound):
			utils.WriteJSONError(w, err.Error(), http.StatusUnprocessableEntity)
		default:
			logger.FromCtx(r.Context()).Error("failed to save gateway settings", zap.Error(err))
			utils.WriteJSONError(w, "failed to save settings", http.StatusInternalServerError)
		}
		return
	}

	p, _ := utils.PrincipalFrom(r.Context())
	logger.FromCtx(r.Context()).Info("gateway settings updated",
		zap.Uint("updated_by", p.UserID),
		zap.Bool("internal", utils.IsInternalRequest(r.Context())),
		zap.Bool("enabled", s.Enabled),
		zap.Bool("test_mode", s.TestMode),
	)
	utils.WriteJSON(w, http.StatusOK, toResponse(s))
}

func (h *Handler) Pages(w http.ResponseWriter, r *http.Request) {
	options, err := h.svc.PageOptions(r.Context())
	if err != nil {
		logger.FromCtx(r.Context()).Error("failed to list pages", zap.Error(err))
		utils.WriteJSONError(w, "failed to list pages", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, options)
}
