package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/essboard/essboard/pkg/log"
	"github.com/essboard/essboard/pkg/types"
	"github.com/levenlabs/go-lflag"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const dashboardsCollection = "dashboards"

// FirestoreProvider implements the Database interface using Google Cloud Firestore.
// Each dashboard is one document holding the dashboard as a JSON string.
type FirestoreProvider struct {
	client      *firestore.Client
	projectID   string
	database    string
	dashboardID string
}

// configuredFirestore sets up the Firestore provider.
// It registers flags for configuration.
func configuredFirestore() *FirestoreProvider {
	projectID := lflag.String("firestore-project-id", "", "Google Cloud Project ID for Firestore")
	database := lflag.String("firestore-database", "", "Google Cloud Firestore Database")
	emulator := lflag.String("firestore-emulator", "", "Use Firestore emulator")

	f := &FirestoreProvider{}

	lflag.Do(func() {
		f.projectID = *projectID
		f.database = *database

		// set this because that's how firestore client expects it
		if *emulator != "" {
			os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
		}
	})

	return f
}

// Validate checks if the provider is properly configured.
func (f *FirestoreProvider) Validate() error {
	if f.dashboardID == "" {
		return fmt.Errorf("dashboard-id cannot be empty")
	}
	return nil
}

// Init initializes the Firestore client.
// This must be called before using the provider methods.
func (f *FirestoreProvider) Init(ctx context.Context) error {
	projectID := f.projectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	database := f.database
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database)
	if err != nil {
		return fmt.Errorf("failed to create firestore client (project=%s, database=%s): %w", projectID, database, err)
	}
	f.client = client
	return nil
}

// Close closes the Firestore client connection.
func (f *FirestoreProvider) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

// GetDashboard reads the "dashboards/{id}" document.
func (f *FirestoreProvider) GetDashboard(ctx context.Context) (types.Dashboard, error) {
	doc, err := f.client.Collection(dashboardsCollection).Doc(f.dashboardID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return types.Dashboard{}, ErrDashboardNotFound
		}
		return types.Dashboard{}, fmt.Errorf("failed to fetch dashboard doc: %w", err)
	}

	val, err := doc.DataAt("json")
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "dashboard doc missing json", slog.String("dashboardID", f.dashboardID))
		return types.Dashboard{}, fmt.Errorf("dashboard document missing 'json' field: %w", err)
	}
	jsonStr, ok := val.(string)
	if !ok {
		log.Ctx(ctx).WarnContext(ctx, "dashboard doc json not string", slog.String("dashboardID", f.dashboardID))
		return types.Dashboard{}, fmt.Errorf("dashboard 'json' field is not a string")
	}

	var d types.Dashboard
	if err := json.Unmarshal([]byte(jsonStr), &d); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal dashboard json", slog.String("dashboardID", f.dashboardID), slog.Any("err", err))
		return types.Dashboard{}, fmt.Errorf("failed to unmarshal dashboard json: %w", err)
	}
	return d, nil
}

// PutDashboard saves the dashboard to the "dashboards/{id}" document.
// It stores the dashboard as a JSON string for portability.
func (f *FirestoreProvider) PutDashboard(ctx context.Context, d types.Dashboard) error {
	jsonBytes, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal dashboard: %w", err)
	}
	_, err = f.client.Collection(dashboardsCollection).Doc(f.dashboardID).Set(ctx, map[string]interface{}{
		"json":    string(jsonBytes),
		"updated": time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to save dashboard: %w", err)
	}
	return nil
}

// ListDashboards returns the IDs in the "dashboards" collection.
func (f *FirestoreProvider) ListDashboards(ctx context.Context) ([]string, error) {
	iter := f.client.Collection(dashboardsCollection).Documents(ctx)
	defer iter.Stop()

	var ids []string
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating dashboards: %w", err)
		}
		ids = append(ids, doc.Ref.ID)
	}
	return ids, nil
}
