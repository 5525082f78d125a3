package app

import (
	"strings"

	"github.com/nextpointlabs/nextpoint-backend/internal/logger"
	"github.com/nextpointlabs/nextpoint-backend/internal/utils"
)

type Config struct {
	ServiceName  string
	Environment  string
	Port         string
	OpsKey       string
	AllowOrigins []string
}

func LoadConfig(log *logger.Logger) Config {
	origins := []string{}
	for _, o := range strings.Split(utils.GetEnv("CORS_ALLOW_ORIGINS", "", log), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return Config{
		ServiceName:  "nextpoint-backend",
		Environment:  utils.GetEnv("ENVIRONMENT", "development", log),
		Port:         utils.GetEnv("PORT", "8000", log),
		OpsKey:       utils.GetEnv("VIDEO_WORKER_OPS_KEY", "", log),
		AllowOrigins: origins,
	}
}
