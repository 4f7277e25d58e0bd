package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/services/admin-console/internal/composer"
	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/services/admin-console/internal/session"
	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/auth/middleware"
	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/broadcast"
	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/response"
	xerrors "github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/utils/errors"
)

type ComposerHandler struct {
	sessions    *session.Store
	catalog     *broadcast.Catalog
	sendTimeout time.Duration
	logger      *zap.Logger
}

// NewComposerHandler builds the composer endpoints. sendTimeout bounds a
// batched send once it has started; zero leaves it unbounded.
func NewComposerHandler(sessions *session.Store, catalog *broadcast.Catalog, sendTimeout time.Duration, logger *zap.Logger) *ComposerHandler {
	return &ComposerHandler{sessions: sessions, catalog: catalog, sendTimeout: sendTimeout, logger: logger}
}

type sessionView struct {
	ID string `json:"id"`
	composer.Snapshot
}

type openRequest struct {
	Initial []composer.InitialEntry `json:"initial_selection"`
}

type toggleRequest struct {
	Phone string `json:"phone"`
}

type templateRequest struct {
	TemplateID string `json:"template_id"`
}

type paramRequest struct {
	Value string `json:"value"`
}

// OpenSession POST /api/v1/composer/sessions
func (h *ComposerHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	owner, _ := middleware.GetUserID(r.Context())
	sid, c := h.sessions.Create(owner)
	c.Open(r.Context(), req.Initial)

	h.logger.Info("composer session opened",
		zap.String("session_id", sid),
		zap.String("operator_id", owner),
		zap.Int("initial", len(req.Initial)))
	response.JSON(w, http.StatusCreated, sessionView{ID: sid, Snapshot: c.Snapshot()})
}

// GetSession GET /api/v1/composer/sessions/{id}
func (h *ComposerHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sid, c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.snapshot(w, sid, c)
}

// CloseSession DELETE /api/v1/composer/sessions/{id}
func (h *ComposerHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	owner, _ := middleware.GetUserID(r.Context())
	if err := h.sessions.Delete(chi.URLParam(r, "id"), owner); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetFilter PUT /api/v1/composer/sessions/{id}/filter
func (h *ComposerHandler) SetFilter(w http.ResponseWriter, r *http.Request) {
	sid, c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var filter broadcast.CustomerFilter
	if err := json.NewDecoder(r.Body).Decode(&filter); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := c.SetFilter(r.Context(), filter); err != nil {
		h.fail(w, err)
		return
	}
	h.snapshot(w, sid, c)
}

// Toggle POST /api/v1/composer/sessions/{id}/recipients/toggle
func (h *ComposerHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	sid, c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Phone == "" {
		response.Error(w, http.StatusBadRequest, "phone is required")
		return
	}
	if _, err := c.Toggle(req.Phone); err != nil {
		h.fail(w, err)
		return
	}
	h.snapshot(w, sid, c)
}

// SelectVisible POST /api/v1/composer/sessions/{id}/recipients/select-visible
func (h *ComposerHandler) SelectVisible(w http.ResponseWriter, r *http.Request) {
	sid, c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := c.SelectAllVisible(); err != nil {
		h.fail(w, err)
		return
	}
	h.snapshot(w, sid, c)
}

// DeselectVisible POST /api/v1/composer/sessions/{id}/recipients/deselect-visible
func (h *ComposerHandler) DeselectVisible(w http.ResponseWriter, r *http.Request) {
	sid, c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := c.DeselectAllVisible(); err != nil {
		h.fail(w, err)
		return
	}
	h.snapshot(w, sid, c)
}

// SetTemplate PUT /api/v1/composer/sessions/{id}/template
func (h *ComposerHandler) SetTemplate(w http.ResponseWriter, r *http.Request) {
	sid, c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req templateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := c.SetTemplate(req.TemplateID); err != nil {
		h.fail(w, err)
		return
	}
	h.snapshot(w, sid, c)
}

// SetParam PUT /api/v1/composer/sessions/{id}/params/{index}
func (h *ComposerHandler) SetParam(w http.ResponseWriter, r *http.Request) {
	sid, c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "index must be an integer")
		return
	}
	var req paramRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := c.SetParam(index, req.Value); err != nil {
		h.fail(w, err)
		return
	}
	h.snapshot(w, sid, c)
}

// Refresh POST /api/v1/composer/sessions/{id}/refresh
func (h *ComposerHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	sid, c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := c.Refresh(r.Context()); err != nil {
		h.fail(w, err)
		return
	}
	h.snapshot(w, sid, c)
}

// Preview GET /api/v1/composer/sessions/{id}/preview
func (h *ComposerHandler) Preview(w http.ResponseWriter, r *http.Request) {
	_, c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"preview": c.Preview()})
}

// Send POST /api/v1/composer/sessions/{id}/send
func (h *ComposerHandler) Send(w http.ResponseWriter, r *http.Request) {
	sid, c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	// A started send runs to completion even if the operator goes away. The
	// detached context keeps the forwarded token.
	ctx := context.WithoutCancel(r.Context())
	if h.sendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.sendTimeout)
		defer cancel()
	}
	resp, err := c.Send(ctx)
	if err != nil {
		if errors.Is(err, xerrors.ErrComposerClosed) || errors.Is(err, xerrors.ErrComposerBusy) {
			h.fail(w, err)
			return
		}
		response.Error(w, http.StatusBadGateway, composer.NoticeFor(err))
		return
	}
	if resp == nil {
		response.JSON(w, http.StatusOK, map[string]interface{}{
			"sent":    false,
			"session": sessionView{ID: sid, Snapshot: c.Snapshot()},
		})
		return
	}
	response.JSON(w, http.StatusOK, map[string]interface{}{
		"sent":   true,
		"report": resp,
	})
}

// ListTemplates GET /api/v1/composer/templates
func (h *ComposerHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.catalog.All())
}

func (h *ComposerHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]interface{}{
		"service":  "admin-console",
		"sessions": h.sessions.Len(),
	})
}

func (h *ComposerHandler) lookup(w http.ResponseWriter, r *http.Request) (string, *composer.Composer, bool) {
	sid := chi.URLParam(r, "id")
	owner, _ := middleware.GetUserID(r.Context())
	c, err := h.sessions.Get(sid, owner)
	if err != nil {
		h.fail(w, err)
		return "", nil, false
	}
	return sid, c, true
}

func (h *ComposerHandler) snapshot(w http.ResponseWriter, sid string, c *composer.Composer) {
	response.JSON(w, http.StatusOK, sessionView{ID: sid, Snapshot: c.Snapshot()})
}

func (h *ComposerHandler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, xerrors.ErrNotFound):
		response.Error(w, http.StatusNotFound, "session not found")
	case errors.Is(err, xerrors.ErrSessionExpired):
		response.Error(w, http.StatusGone, err.Error())
	case errors.Is(err, xerrors.ErrComposerClosed), errors.Is(err, xerrors.ErrComposerBusy):
		response.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, xerrors.ErrParamIndex), errors.Is(err, xerrors.ErrUnknownTemplate):
		response.Error(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("composer request failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "internal server error")
	}
}
