package api

import (
	"github.com/09samuel/codekeeper-api-backend/internal/config"
	"github.com/09samuel/codekeeper-api-backend/internal/database"
	"github.com/09samuel/codekeeper-api-backend/internal/mailer"
	"github.com/09samuel/codekeeper-api-backend/internal/storage"
)

type Server struct {
	config  *config.Config
	store   *database.Store
	storage storage.ContentStore
	mailer  mailer.Mailer
}

func NewServer(cfg *config.Config, store *database.Store, contentStore storage.ContentStore, m mailer.Mailer) *Server {
	return &Server{
		config:  cfg,
		store:   store,
		storage: contentStore,
		mailer:  m,
	}
}
