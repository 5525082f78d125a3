package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/nextpointlabs/nextpoint-backend/internal/app"
	"github.com/nextpointlabs/nextpoint-backend/internal/db"
)

// Exit codes: 3 means the database never became reachable within the
// bounded boot wait, anything else fatal is 1.
const exitCodeDBUnavailable = 3

func main() {
	ctx := context.Background()

	a, err := app.New(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		if errors.Is(err, db.ErrDatabaseUnavailable) {
			os.Exit(exitCodeDBUnavailable)
		}
		os.Exit(1)
	}
	defer a.Close()

	a.Log.Info("Server starting", "port", a.Cfg.Port)
	if err := a.Run(); err != nil {
		a.Log.Error("Server stopped", "error", err)
		a.Close()
		os.Exit(1)
	}
}
