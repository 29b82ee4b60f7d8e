// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"travelcrm/internal/http/handlers"
	"travelcrm/internal/http/middleware"
	"travelcrm/internal/infra"
	"travelcrm/internal/modules/offer"
	"travelcrm/internal/modules/pricing"
	"travelcrm/internal/modules/upsell"
)

// Roles allowed on agency routes.
var agencyRoles = infra.AgencyRoles

type RouterDeps struct {
	Pricing  *pricing.Service
	Offer    *offer.Service
	Upsell   *upsell.Service
	Verifier infra.TokenVerifier
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(), middleware.Logging())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	pricingHandler := handlers.NewPricingHandler(deps.Pricing)
	offerHandler := handlers.NewOfferHandler(deps.Offer)
	upsellHandler := handlers.NewUpsellHandler(deps.Offer, deps.Upsell)

	public := r.Group("/api/public")
	public.POST("/packages/:id/calculate-price", pricingHandler.CalculatePublic)
	public.POST("/packages/calculate-prices", pricingHandler.CalculateBatch)
	public.GET("/packages/:id/price-for-date", pricingHandler.PriceForDate)
	public.GET("/offers/:id/upsells", upsellHandler.ForOffer)

	agency := r.Group("/api", middleware.Auth(deps.Verifier), middleware.RequireRole(agencyRoles...))
	agency.POST("/packages/:id/calculate-price", pricingHandler.Calculate)
	agency.POST("/packages/:id/price-cache/invalidate", pricingHandler.InvalidateCache)
	agency.POST("/offers", offerHandler.Create)
	agency.GET("/offers/:id", offerHandler.Get)
	agency.GET("/offers/:id/events", offerHandler.History)
	agency.POST("/offers/:id/:action", offerHandler.Transition)

	return r
}
