package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ArturMykhailiuk/sello-api/internal/api"
	"github.com/ArturMykhailiuk/sello-api/internal/config"
	"github.com/ArturMykhailiuk/sello-api/internal/database"
	"github.com/ArturMykhailiuk/sello-api/internal/n8n"
	"github.com/ArturMykhailiuk/sello-api/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	db, err := database.NewDatabase(cfg.DatabaseURL, cfg.SQLitePath)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer db.Close()

	engine := n8n.NewClient(cfg.N8NBaseURL, cfg.N8NAdminKey)
	bot := n8n.NewBotAPI(cfg.TelegramAPIBaseURL)

	templateService := services.NewTemplateService(db.DB)
	if err := templateService.SeedDefaults(); err != nil {
		log.Fatal("Failed to seed default templates:", err)
	}

	userService := services.NewUserService(db.DB, engine, cfg.EncryptionKey)
	workflowService := services.NewWorkflowService(
		db.DB,
		engine,
		bot,
		templateService,
		services.NewServiceStore(db.DB),
		userService,
		cfg.EncryptionKey,
		cfg.PromptWebhookURL,
	)

	server := api.NewAPIServer(templateService, workflowService, userService, cfg.TokenSecret)

	go func() {
		log.Printf("API server listening on port %s", cfg.Port)
		if err := server.Start(cfg.Port); err != nil {
			log.Fatal("Failed to start API server:", err)
		}
	}()

	// Set up graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	log.Println("Shutting down server...")
	if err := server.Shutdown(); err != nil {
		log.Printf("Error shutting down API server: %v", err)
	}
	log.Println("Server shut down successfully")
}
