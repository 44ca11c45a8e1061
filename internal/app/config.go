package app

import (
	"strings"

	"github.com/dwoslabs/dwos-backend/internal/platform/logger"
	"github.com/dwoslabs/dwos-backend/internal/utils"
)

type Config struct {
	Port               string
	ChunkSize          int
	ChunkOverlap       int
	TopK               int
	LexicalDimension   int
	EmbedDimension     int
	StartTransition    string
	CompleteTransition string
	AllowOrigins       []string
	PersistenceEnabled bool
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:               utils.GetEnv("PORT", "8080", log),
		ChunkSize:          utils.GetEnvAsInt("CHUNK_SIZE", 800, log),
		ChunkOverlap:       utils.GetEnvAsInt("CHUNK_OVERLAP", 120, log),
		TopK:               utils.GetEnvAsInt("RAG_TOP_K", 4, log),
		LexicalDimension:   utils.GetEnvAsInt("LEXICAL_EMBED_DIM", 256, log),
		EmbedDimension:     utils.GetEnvAsInt("NIM_EMBED_DIM", 1024, log),
		StartTransition:    utils.GetEnv("JIRA_START_TRANSITION", "21", log),
		CompleteTransition: utils.GetEnv("JIRA_COMPLETE_TRANSITION", "31", log),
		PersistenceEnabled: strings.EqualFold(utils.GetEnv("PERSISTENCE_ENABLED", "true", log), "true"),
	}
	if origins := strings.TrimSpace(utils.GetEnv("CORS_ALLOW_ORIGINS", "", log)); origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.AllowOrigins = append(cfg.AllowOrigins, origin)
			}
		}
	}
	return cfg
}
