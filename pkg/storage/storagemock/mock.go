package storagemock

import (
	"context"

	"github.com/essboard/essboard/pkg/storage"
	"github.com/essboard/essboard/pkg/types"
	"github.com/stretchr/testify/mock"
)

type MockDatabase struct {
	mock.Mock
}

var _ storage.Database = (*MockDatabase)(nil)

func (m *MockDatabase) GetDashboard(ctx context.Context) (types.Dashboard, error) {
	args := m.Called(ctx)
	return args.Get(0).(types.Dashboard), args.Error(1)
}

func (m *MockDatabase) PutDashboard(ctx context.Context, d types.Dashboard) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDatabase) ListDashboards(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if ids, ok := args.Get(0).([]string); ok {
		return ids, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDatabase) Close() error {
	args := m.Called()
	return args.Error(0)
}
