package monitoring

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/formfill-cli/internal/model"
	"github.com/sells-group/formfill-cli/internal/store"
)

type mockRunLister struct {
	mock.Mock
}

func (m *mockRunLister) ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Run), args.Error(1)
}

type mockPruner struct {
	mock.Mock
}

func (m *mockPruner) DeleteExpiredPages(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
