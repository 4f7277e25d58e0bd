package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/auth/middleware"
	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/broadcast"
	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/response"
	xerrors "github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/utils/errors"
)

type BroadcastSender interface {
	SendTemplate(ctx context.Context, operatorID string, req broadcast.SendTemplateRequest) (*broadcast.SendResponse, error)
}

type CustomerLister interface {
	List(ctx context.Context, filter broadcast.CustomerFilter) ([]broadcast.Customer, error)
}

type BroadcastHandler struct {
	broadcasts BroadcastSender
	customers  CustomerLister
	catalog    *broadcast.Catalog
	logger     *zap.Logger
}

func NewBroadcastHandler(b BroadcastSender, c CustomerLister, catalog *broadcast.Catalog, logger *zap.Logger) *BroadcastHandler {
	return &BroadcastHandler{broadcasts: b, customers: c, catalog: catalog, logger: logger}
}

// SendTemplate POST /api/v1/broadcast/send-template
func (h *BroadcastHandler) SendTemplate(w http.ResponseWriter, r *http.Request) {
	var req broadcast.SendTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	operatorID, _ := middleware.GetUserID(r.Context())
	// Once started, the batch runs to the end even if the caller disconnects.
	resp, err := h.broadcasts.SendTemplate(context.WithoutCancel(r.Context()), operatorID, req)
	if err != nil {
		if errors.Is(err, xerrors.ErrNoClients) || errors.Is(err, xerrors.ErrTemplateName) {
			response.Error(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.logger.Error("broadcast failed",
			zap.String("operator_id", operatorID),
			zap.String("template", req.TemplateName),
			zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "Error enviando broadcast")
		return
	}
	response.Raw(w, http.StatusOK, resp)
}

// ListTemplates GET /api/v1/broadcast/templates
func (h *BroadcastHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	response.Raw(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"templates": h.catalog.All(),
	})
}

// ListCustomers GET /api/v1/customers/list?q=&status=
func (h *BroadcastHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	filter := broadcast.CustomerFilter{
		Q:      r.URL.Query().Get("q"),
		Status: r.URL.Query().Get("status"),
	}
	customers, err := h.customers.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list customers failed",
			zap.String("q", filter.Q),
			zap.String("status", filter.Status),
			zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "Error obteniendo clientes")
		return
	}
	response.Raw(w, http.StatusOK, customers)
}

func (h *BroadcastHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{"service": "broadcast-service"})
}
