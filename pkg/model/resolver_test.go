package model

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// mockResolver is a testify mock for the Resolver interface, shared by the
// mapping tests that resolve actors or repositories.
type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) ResolveActorIDs(ctx context.Context, names []string) ([]ActorID, error) {
	args := m.Called(ctx, names)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ActorID), args.Error(1)
}

func (m *mockResolver) ResolveRepoIDs(ctx context.Context, names []string) ([]int64, error) {
	args := m.Called(ctx, names)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}
