// README: Upsell handler; lists alternatives to the selection stored on a sent offer.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"travelcrm/internal/modules/offer"
	"travelcrm/internal/modules/upsell"
	"travelcrm/internal/types"
)

type UpsellHandler struct {
	offer  *offer.Service
	upsell *upsell.Service
}

func NewUpsellHandler(offers *offer.Service, upsells *upsell.Service) *UpsellHandler {
	return &UpsellHandler{offer: offers, upsell: upsells}
}

// ForOffer is public: customers reach it from the offer link, so drafts and
// closed offers stay hidden.
func (h *UpsellHandler) ForOffer(c *gin.Context) {
	o, err := h.offer.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeOfferError(c, err)
		return
	}
	if o.Status != offer.StatusSent {
		writeOfferError(c, offer.ErrNotFound)
		return
	}
	q := upsell.Query{
		PackageID:    o.PackageID,
		Request:      o.Request,
		PublicOnly:   true,
		UpgradesOnly: c.Query("upgrades_only") == "true",
	}
	if o.ShiftID != nil {
		q.ShiftID = *o.ShiftID
	}
	cmp, err := h.upsell.Alternatives(c.Request.Context(), q)
	if err != nil {
		writeOfferError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"offer_id": o.ID, "current": cmp.Current, "alternatives": cmp.Alternatives})
}
