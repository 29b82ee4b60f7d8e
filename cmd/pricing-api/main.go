// README: Entry point; loads config, wires the pricing, offer and upsell services, and serves HTTP.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"travelcrm/internal/config"
	httptransport "travelcrm/internal/http"
	"travelcrm/internal/infra"
	"travelcrm/internal/modules/offer"
	"travelcrm/internal/modules/pricing"
	"travelcrm/internal/modules/upsell"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Firebase.ProjectID == "" {
		log.Fatal("PRICING_FIREBASE_PROJECT_ID is required")
	}
	verifier, err := infra.NewFirebaseVerifier(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		log.Fatalf("firebase init: %v", err)
	}

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal(err)
	}
	defer dbPool.Close()

	var quoteCache pricing.ResultCache
	if cfg.Redis.Addr != "" {
		redisClient := infra.NewRedis(cfg.Redis.Addr)
		defer redisClient.Close()
		if !infra.RedisAvailable(ctx, redisClient) {
			log.Printf("redis %s not reachable; quotes are served uncached until it is", cfg.Redis.Addr)
		}
		quoteCache = pricing.NewQuoteCache(redisClient, cfg.Pricing.CachePrefix, cfg.Pricing.CacheTTL)
	}

	pricingStore := pricing.NewStore(dbPool)
	pricingSvc := pricing.NewService(pricingStore, quoteCache, cfg.Pricing)

	offerStore := offer.NewStore(dbPool)
	offerSvc := offer.NewService(offerStore, pricingSvc)
	if cfg.AMQP.URL != "" {
		publisher, err := infra.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.OfferQueue)
		if err != nil {
			log.Printf("offer events disabled: %v", err)
		} else {
			defer publisher.Close()
			offerSvc.WithPublisher(publisher)
		}
	}

	upsellSvc := upsell.NewService(pricingSvc)

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	server := httptransport.NewServer(cfg.HTTP.Addr, httptransport.RouterDeps{
		Pricing:  pricingSvc,
		Offer:    offerSvc,
		Upsell:   upsellSvc,
		Verifier: verifier,
	})
	if err := server.Run(ctx); err != nil {
		log.Fatal(err)
	}
}
