package main

import (
	"fmt"
	"os"

	"github.com/nextpointlabs/nextpoint-backend/internal/db"
	"github.com/nextpointlabs/nextpoint-backend/internal/logger"
)

// rebuildviews drops and recreates the analytics view chain against the
// configured database. Run it after a manual schema change or when a
// dashboard reports a missing view.
func main() {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Connect failed", "error", err)
		os.Exit(1)
	}
	if err := db.NewViewService(pg, log).Rebuild(); err != nil {
		log.Error("View rebuild failed", "error", err)
		os.Exit(1)
	}
	log.Info("Analytics views rebuilt")
}
