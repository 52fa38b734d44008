package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/essboard/essboard/pkg/log"
	"github.com/essboard/essboard/pkg/storage"
	"github.com/levenlabs/go-lflag"
)

// seed writes the built-in fleet dashboard into Firestore, defaulting to a
// local emulator.
func main() {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		os.Setenv("FIRESTORE_EMULATOR_HOST", "127.0.0.1:8087")
	}
	s := storage.ConfiguredWithDefault(storage.ProviderFirestore)
	lflag.Configure()
	defer s.Close()

	ctx := context.Background()

	log.Ctx(ctx).InfoContext(ctx, "seeding dashboard")
	ids, err := seed(ctx, s)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to seed dashboard", slog.Any("error", err))
		s.Close()
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "seeding complete", slog.Any("dashboards", ids))
}

func seed(ctx context.Context, db storage.Database) ([]string, error) {
	d := storage.BuiltinDashboard()
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("built-in dashboard is invalid: %w", err)
	}
	if err := db.PutDashboard(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to write dashboard: %w", err)
	}
	ids, err := db.ListDashboards(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list dashboards: %w", err)
	}
	return ids, nil
}
