// Package assethttp exposes asset CRUD and the derived asset tree over
// HTTP.
package assethttp

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apihttp "oee-backend/internal/api/http"
	"oee-backend/internal/apperr"
	"oee-backend/internal/assets/application"
	assets "oee-backend/internal/assets/domain"
	"oee-backend/internal/audit"
	"oee-backend/internal/auth"
	"oee-backend/internal/observability/metrics"
)

// Handler serves the /asset routes.
type Handler struct {
	repo   assets.Repository
	tree   *application.TreeBuilder
	audit  audit.Logger
	logger *zap.Logger
}

// NewHandler constructs a Handler. auditLog may be nil; auditing is
// then disabled.
func NewHandler(repo assets.Repository, tree *application.TreeBuilder, auditLog audit.Logger, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, tree: tree, audit: auditLog, logger: logger}
}

// Routes mounts the asset endpoints on the router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/asset/all", h.Tree)
	r.Route("/asset/{kind}", func(r chi.Router) {
		r.Post("/create", h.Create)
		r.Get("/all", h.All)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Get("/{id}/children", h.Children)
		r.Get("/{id}/parent", h.Parent)
	})
}

type createRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	ParentID    *int64 `json:"parent_id"`
}

type updateRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// Create handles POST /asset/{kind}/create.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		apihttp.WriteError(w, h.logger, err)
		return
	}

	var req createRequest
	if err := apihttp.DecodeValid(r, &req); err != nil {
		metrics.IncAssetOp(kind.String(), audit.ActionCreate, metrics.ResultError)
		apihttp.WriteError(w, h.logger, err)
		return
	}

	asset, err := h.repo.Create(r.Context(), kind, req.Name, req.Description, req.ParentID)
	if err != nil {
		metrics.IncAssetOp(kind.String(), audit.ActionCreate, metrics.ResultError)
		apihttp.WriteError(w, h.logger, err)
		return
	}
	metrics.IncAssetOp(kind.String(), audit.ActionCreate, metrics.ResultSuccess)
	h.recordAudit(r, audit.ActionCreate, kind, asset)

	apihttp.WriteData(w, http.StatusOK, asset)
}

// All handles GET /asset/{kind}/all.
func (h *Handler) All(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		apihttp.WriteError(w, h.logger, err)
		return
	}

	list, err := h.repo.GetAll(r.Context(), kind)
	if err != nil {
		apihttp.WriteError(w, h.logger, err)
		return
	}
	if list == nil {
		list = []assets.Asset{}
	}
	apihttp.WriteData(w, http.StatusOK, list)
}

// Get handles GET /asset/{kind}/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	kind, id, err := kindIDParams(r)
	if err != nil {
		apihttp.WriteError(w, h.logger, err)
		return
	}

	asset, err := h.repo.Get(r.Context(), kind, id)
	if err != nil {
		apihttp.WriteError(w, h.logger, err)
		return
	}
	apihttp.WriteData(w, http.StatusOK, asset)
}

// Update handles PUT /asset/{kind}/{id}. Only name and description are
// mutable; hierarchy moves are not supported.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	kind, id, err := kindIDParams(r)
	if err != nil {
		apihttp.WriteError(w, h.logger, err)
		return
	}

	var req updateRequest
	if err := apihttp.DecodeValid(r, &req); err != nil {
		metrics.IncAssetOp(kind.String(), audit.ActionUpdate, metrics.ResultError)
		apihttp.WriteError(w, h.logger, err)
		return
	}

	asset, err := h.repo.Update(r.Context(), kind, id, req.Name, req.Description)
	if err != nil {
		metrics.IncAssetOp(kind.String(), audit.ActionUpdate, metrics.ResultError)
		apihttp.WriteError(w, h.logger, err)
		return
	}
	metrics.IncAssetOp(kind.String(), audit.ActionUpdate, metrics.ResultSuccess)
	h.recordAudit(r, audit.ActionUpdate, kind, asset)

	apihttp.WriteData(w, http.StatusOK, asset)
}

// Delete handles DELETE /asset/{kind}/{id} and returns the last live
// state of the soft-deleted asset.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	kind, id, err := kindIDParams(r)
	if err != nil {
		apihttp.WriteError(w, h.logger, err)
		return
	}

	asset, err := h.repo.Delete(r.Context(), kind, id)
	if err != nil {
		metrics.IncAssetOp(kind.String(), audit.ActionDelete, metrics.ResultError)
		apihttp.WriteError(w, h.logger, err)
		return
	}
	metrics.IncAssetOp(kind.String(), audit.ActionDelete, metrics.ResultSuccess)
	h.recordAudit(r, audit.ActionDelete, kind, asset)

	apihttp.WriteData(w, http.StatusOK, asset)
}

// Children handles GET /asset/{kind}/{id}/children.
func (h *Handler) Children(w http.ResponseWriter, r *http.Request) {
	kind, id, err := kindIDParams(r)
	if err != nil {
		apihttp.WriteError(w, h.logger, err)
		return
	}

	children, err := h.repo.GetChildren(r.Context(), kind, id)
	if err != nil {
		apihttp.WriteError(w, h.logger, err)
		return
	}
	if children == nil {
		children = []assets.Asset{}
	}
	apihttp.WriteData(w, http.StatusOK, children)
}

// Parent handles GET /asset/{kind}/{id}/parent.
func (h *Handler) Parent(w http.ResponseWriter, r *http.Request) {
	kind, id, err := kindIDParams(r)
	if err != nil {
		apihttp.WriteError(w, h.logger, err)
		return
	}

	parent, err := h.repo.GetParent(r.Context(), kind, id)
	if err != nil {
		apihttp.WriteError(w, h.logger, err)
		return
	}
	apihttp.WriteData(w, http.StatusOK, parent)
}

// Tree handles GET /asset/all: the full nested hierarchy with the
// latest OEE record attached to every populated node.
func (h *Handler) Tree(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	tree, err := h.tree.GetTree(r.Context())
	if err != nil {
		metrics.ObserveTreeBuild(metrics.ResultError, time.Since(start))
		apihttp.WriteError(w, h.logger, err)
		return
	}
	metrics.ObserveTreeBuild(metrics.ResultSuccess, time.Since(start))
	apihttp.WriteData(w, http.StatusOK, tree)
}

// recordAudit writes an asset-change entry. Failures are logged and
// swallowed; audit never fails the request.
func (h *Handler) recordAudit(r *http.Request, action string, kind assets.Kind, asset *assets.Asset) {
	if h.audit == nil || asset == nil {
		return
	}
	meta, _ := json.Marshal(asset)
	entry := audit.Entry{
		Actor:     auth.SubjectFromContext(r.Context()),
		Action:    action,
		AssetKind: kind.String(),
		AssetID:   asset.ID,
		Metadata:  meta,
		IP:        r.RemoteAddr,
	}
	if err := h.audit.Log(r.Context(), entry); err != nil {
		h.logger.Warn("audit write failed",
			zap.String("action", action),
			zap.String("kind", kind.String()),
			zap.Int64("id", asset.ID),
			zap.Error(err))
	}
}

func kindParam(r *http.Request) (assets.Kind, error) {
	name := chi.URLParam(r, "kind")
	kind, ok := assets.KindFromName(name)
	if !ok {
		return 0, apperr.Validationf("unknown asset kind %q", name)
	}
	return kind, nil
}

func kindIDParams(r *http.Request) (assets.Kind, int64, error) {
	kind, err := kindParam(r)
	if err != nil {
		return 0, 0, err
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, 0, apperr.Validationf("invalid asset id %q", chi.URLParam(r, "id"))
	}
	return kind, id, nil
}
