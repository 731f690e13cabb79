package dbadmin

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apihttp "oee-backend/internal/api/http"
)

// Handler serves the /db bootstrap routes.
type Handler struct {
	manager *Manager
	logger  *zap.Logger
}

// NewHandler constructs a Handler.
func NewHandler(manager *Manager, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{manager: manager, logger: logger}
}

// Routes mounts the /db endpoints on the router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/db/config", h.SetConfig)
	r.Get("/db/validate", h.Validate)
}

type configRequest struct {
	Address  string `json:"address" validate:"required"`
	Database string `json:"database" validate:"required"`
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// SetConfig handles POST /db/config: build the DSN, verify it
// connects, then persist it for the next startup.
func (h *Handler) SetConfig(w http.ResponseWriter, r *http.Request) {
	var req configRequest
	if err := apihttp.DecodeValid(r, &req); err != nil {
		apihttp.WriteError(w, h.logger, err)
		return
	}

	dsn := BuildDSN(req.Address, req.Database, req.Username, req.Password)
	if err := h.manager.Set(r.Context(), dsn); err != nil {
		apihttp.WriteError(w, h.logger, err)
		return
	}

	apihttp.WriteData(w, http.StatusOK, map[string]string{"status": "database configuration updated"})
}

// Validate handles GET /db/validate against the configured DSN.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Validate(r.Context(), ""); err != nil {
		apihttp.WriteError(w, h.logger, err)
		return
	}
	apihttp.WriteData(w, http.StatusOK, map[string]string{"status": "database connection successful"})
}
