package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"

	"diary/config"
	"diary/controllers"
	"diary/routes"
	"diary/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if gin.Mode() == gin.DebugMode {
		log.Printf("Running in gin debug mode, set GIN_MODE=release in production")
	}

	store, err := services.NewStore(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	if !cfg.Configured() {
		log.Printf("Store %s is not configured, /webhook will return 500", store.Name())
	}

	var deliveries services.DeliveryRecorder = services.NopDeliveryLog{}
	if cfg.DatabaseURL != "" {
		pg, err := services.NewPostgresDeliveryLog(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect delivery log: %v", err)
		}
		defer pg.Close()
		deliveries = pg
	}

	service := services.NewDiaryService(cfg, store, deliveries, nil)
	router := routes.SetupRouter(controllers.NewDiaryController(service))

	port := ":" + cfg.Port
	log.Printf("Server starting on port %s", port)
	if err := router.Run(port); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
