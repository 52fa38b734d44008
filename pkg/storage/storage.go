package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/essboard/essboard/pkg/types"
	"github.com/levenlabs/go-lflag"
)

var (
	ErrDashboardNotFound = errors.New("dashboard not found")
)

// DefaultDashboardID is the dashboard served when none is configured.
const DefaultDashboardID = "fleet"

// Database defines the interface for reading and writing the fleet dashboard.
type Database interface {
	// GetDashboard returns the configured dashboard.
	GetDashboard(ctx context.Context) (types.Dashboard, error)
	// PutDashboard replaces the configured dashboard.
	PutDashboard(ctx context.Context, d types.Dashboard) error
	// ListDashboards returns the IDs of every stored dashboard.
	ListDashboards(ctx context.Context) ([]string, error)

	// Lifecycle
	Close() error
}

const (
	ProviderStatic    = "static"
	ProviderFirestore = "firestore"
)

// Configured sets up the Storage provider based on flags, serving the
// built-in dashboard unless another provider is chosen.
func Configured() Database {
	return ConfiguredWithDefault(ProviderStatic)
}

// ConfiguredWithDefault is Configured with a different default for the
// storage-provider flag.
func ConfiguredWithDefault(defaultProvider string) Database {
	provider := lflag.String("storage-provider", defaultProvider, "Storage provider to use (available: static, firestore)")
	dashboardID := lflag.String("dashboard-id", DefaultDashboardID, "ID of the dashboard document to serve")

	var p struct{ Database }

	fs := configuredFirestore()

	lflag.Do(func() {
		db, err := open(context.Background(), *provider, *dashboardID, fs)
		if err != nil {
			panic(err.Error())
		}
		p.Database = db
	})

	return &p
}

func open(ctx context.Context, provider, dashboardID string, fs *FirestoreProvider) (Database, error) {
	switch provider {
	case ProviderStatic:
		return NewStaticProvider(dashboardID, BuiltinDashboard()), nil
	case ProviderFirestore:
		fs.dashboardID = dashboardID
		if err := fs.Validate(); err != nil {
			return nil, fmt.Errorf("firestore validation failed: %w", err)
		}
		if err := fs.Init(ctx); err != nil {
			return nil, fmt.Errorf("firestore init failed: %w", err)
		}
		return fs, nil
	default:
		return nil, fmt.Errorf("unknown storage provider: %s", provider)
	}
}
