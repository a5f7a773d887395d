// @title           CodeKeeper API
// @version         1.0
// @host            localhost
// @schemes         http https
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"log"
	"net/http"

	"github.com/09samuel/codekeeper-api-backend/internal/api"
	"github.com/09samuel/codekeeper-api-backend/internal/config"
	"github.com/09samuel/codekeeper-api-backend/internal/database"
	"github.com/09samuel/codekeeper-api-backend/internal/mailer"
	"github.com/09samuel/codekeeper-api-backend/internal/notify"
	"github.com/09samuel/codekeeper-api-backend/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "github.com/09samuel/codekeeper-api-backend/docs"

	httpSwagger "github.com/swaggo/http-swagger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	dbpool, err := pgxpool.New(context.Background(), cfg.DB.Source)
	if err != nil {
		log.Fatalf("Failed to connect to the database: %v", err)
	}
	defer dbpool.Close()

	if err := dbpool.Ping(context.Background()); err != nil {
		log.Fatalf("Failed to ping the database: %v", err)
	}
	log.Println("Connected to the database")

	contentStore, err := storage.NewLocalStorage(cfg.Storage.Path)
	if err != nil {
		log.Fatalf("Failed to initialize content storage: %v", err)
	}
	log.Printf("Document contents will be stored in: %s", cfg.Storage.Path)

	var m mailer.Mailer
	if cfg.Mail.BrevoAPIKey != "" {
		m = mailer.NewBrevoMailer(cfg.Mail.BrevoAPIKey, cfg.Mail.SenderName, cfg.Mail.SenderEmail)
	} else {
		log.Println("No mail API key configured, emails will be logged")
		m = mailer.LogMailer{}
	}

	store := database.NewStore(dbpool)
	server := api.NewServer(cfg, store, contentStore, m)

	dispatcher := notify.NewDispatcher(store, cfg.Transport.ControlURL)
	go dispatcher.Run(context.Background())

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.ClientURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))
	r.Use(api.MetricsMiddleware)

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("https://localhost/swagger/doc.json"),
	))

	r.Get("/health", server.HealthCheckHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/api/v1/auth/register", server.RegisterHandler)
	r.Get("/api/v1/auth/verify-email", server.VerifyEmailHandler)
	r.Post("/api/v1/auth/login", server.LoginHandler)
	r.Post("/api/v1/auth/refresh", server.RefreshTokenHandler)
	r.Post("/api/v1/auth/logout", server.LogoutHandler)
	r.Post("/api/v1/auth/forgot-password", server.ForgotPasswordHandler)
	r.Post("/api/v1/auth/reset-password", server.ResetPasswordHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(server.AuthMiddleware)
		r.Get("/me", server.GetCurrentUserHandler)
		r.Get("/me/storage", server.GetStorageUsageHandler)
		r.Get("/documents", server.ListDocumentsHandler)
		r.Post("/documents/file", server.CreateFileHandler)
		r.Post("/documents/folder", server.CreateFolderHandler)
		r.Get("/documents/{docId}", server.GetDocumentHandler)
		r.Patch("/documents/{docId}", server.RenameDocumentHandler)
		r.Delete("/documents/{docId}", server.DeleteDocumentHandler)
		r.Put("/documents/{docId}/content", server.SaveContentHandler)
		r.Get("/documents/{docId}/permission", server.GetPermissionHandler)
		r.Get("/documents/{docId}/ownership", server.CheckOwnershipHandler)
		r.Get("/documents/{docId}/collaborators", server.GetCollaboratorsHandler)
		r.Post("/documents/{docId}/collaborators", server.AddCollaboratorHandler)
		r.Patch("/documents/{docId}/collaborators/{collaboratorId}", server.UpdateCollaboratorHandler)
		r.Delete("/documents/{docId}/collaborators/{collaboratorId}", server.RemoveCollaboratorHandler)
	})

	log.Println("Starting server on :8080")
	if err := http.ListenAndServe(":8080", r); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
