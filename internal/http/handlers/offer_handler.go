// README: Offer handlers for create/get/history and status actions.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"travelcrm/internal/http/middleware"
	"travelcrm/internal/modules/offer"
	"travelcrm/internal/types"
)

type OfferHandler struct {
	offer *offer.Service
}

func NewOfferHandler(svc *offer.Service) *OfferHandler {
	return &OfferHandler{offer: svc}
}

type createOfferReq struct {
	quoteReq
	PackageID    string `json:"package_id"`
	CustomerName string `json:"customer_name"`
}

func (h *OfferHandler) Create(c *gin.Context) {
	var req createOfferReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.PackageID == "" || req.CustomerName == "" {
		writeError(c, http.StatusBadRequest, "missing fields")
		return
	}
	o, err := h.offer.Create(c.Request.Context(), offer.CreateCommand{
		PackageID:    types.ID(req.PackageID),
		CustomerName: req.CustomerName,
		Request:      req.request(),
		ShiftID:      types.ID(req.ShiftID),
		ActorID:      types.ID(middleware.CallerUID(c)),
	})
	if err != nil {
		writeOfferError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, o)
}

func (h *OfferHandler) Get(c *gin.Context) {
	o, err := h.offer.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeOfferError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, o)
}

func (h *OfferHandler) History(c *gin.Context) {
	events, err := h.offer.History(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeOfferError(c, err)
		return
	}
	out := make([]gin.H, 0, len(events))
	for _, e := range events {
		out = append(out, gin.H{"from": e.FromStatus, "to": e.ToStatus, "actor_id": e.ActorID, "at": e.CreatedAt})
	}
	writeJSON(c, http.StatusOK, gin.H{"offer_id": c.Param("id"), "events": out})
}

// Transition handles POST /api/offers/:id/:action for send, accept and decline.
func (h *OfferHandler) Transition(c *gin.Context) {
	to, ok := offer.ParseAction(c.Param("action"))
	if !ok {
		writeError(c, http.StatusNotFound, "unknown action")
		return
	}
	o, err := h.offer.Transition(c.Request.Context(), offer.TransitionCommand{
		OfferID: types.ID(c.Param("id")),
		To:      to,
		ActorID: types.ID(middleware.CallerUID(c)),
	})
	if err != nil {
		writeOfferError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"offer_id": o.ID, "status": o.Status, "status_version": o.StatusVersion})
}
