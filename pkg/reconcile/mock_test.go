package reconcile

import (
	"context"

	"github.com/stretchr/testify/mock"

	"orgsync/pkg/model"
)

// mockProviderClient is a testify mock for the full ProviderClient
// surface, shared by the fetch and apply tests.
type mockProviderClient struct {
	mock.Mock
}

func (m *mockProviderClient) rawResult(args mock.Arguments) (map[string]any, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]any), args.Error(1)
}

func (m *mockProviderClient) listResult(args mock.Arguments) ([]map[string]any, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]map[string]any), args.Error(1)
}

func (m *mockProviderClient) ResolveActorIDs(ctx context.Context, names []string) ([]model.ActorID, error) {
	args := m.Called(ctx, names)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ActorID), args.Error(1)
}

func (m *mockProviderClient) ResolveRepoIDs(ctx context.Context, names []string) ([]int64, error) {
	args := m.Called(ctx, names)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *mockProviderClient) GetOrgSettings(ctx context.Context) (map[string]any, error) {
	return m.rawResult(m.Called(ctx))
}

func (m *mockProviderClient) UpdateOrgSettings(ctx context.Context, payload map[string]any) error {
	return m.Called(ctx, payload).Error(0)
}

func (m *mockProviderClient) GetOrgWorkflowSettings(ctx context.Context) (map[string]any, error) {
	return m.rawResult(m.Called(ctx))
}

func (m *mockProviderClient) UpdateOrgWorkflowSettings(ctx context.Context, payload map[string]any) error {
	return m.Called(ctx, payload).Error(0)
}

func (m *mockProviderClient) ListOrgWebhooks(ctx context.Context) ([]map[string]any, error) {
	return m.listResult(m.Called(ctx))
}

func (m *mockProviderClient) CreateOrgWebhook(ctx context.Context, payload map[string]any) error {
	return m.Called(ctx, payload).Error(0)
}

func (m *mockProviderClient) UpdateOrgWebhook(ctx context.Context, id int64, payload map[string]any) error {
	return m.Called(ctx, id, payload).Error(0)
}

func (m *mockProviderClient) DeleteOrgWebhook(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockProviderClient) ListOrgSecrets(ctx context.Context) ([]map[string]any, error) {
	return m.listResult(m.Called(ctx))
}

func (m *mockProviderClient) PutOrgSecret(ctx context.Context, name string, payload map[string]any) error {
	return m.Called(ctx, name, payload).Error(0)
}

func (m *mockProviderClient) DeleteOrgSecret(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

func (m *mockProviderClient) ListRepositories(ctx context.Context) ([]map[string]any, error) {
	return m.listResult(m.Called(ctx))
}

func (m *mockProviderClient) CreateRepository(ctx context.Context, payload map[string]any, opts CreateRepoOptions) error {
	return m.Called(ctx, payload, opts).Error(0)
}

func (m *mockProviderClient) UpdateRepository(ctx context.Context, repo string, payload map[string]any) error {
	return m.Called(ctx, repo, payload).Error(0)
}

func (m *mockProviderClient) DeleteRepository(ctx context.Context, repo string) error {
	return m.Called(ctx, repo).Error(0)
}

func (m *mockProviderClient) GetRepoWorkflowSettings(ctx context.Context, repo string) (map[string]any, error) {
	return m.rawResult(m.Called(ctx, repo))
}

func (m *mockProviderClient) UpdateRepoWorkflowSettings(ctx context.Context, repo string, payload map[string]any) error {
	return m.Called(ctx, repo, payload).Error(0)
}

func (m *mockProviderClient) ListRepoWebhooks(ctx context.Context, repo string) ([]map[string]any, error) {
	return m.listResult(m.Called(ctx, repo))
}

func (m *mockProviderClient) CreateRepoWebhook(ctx context.Context, repo string, payload map[string]any) error {
	return m.Called(ctx, repo, payload).Error(0)
}

func (m *mockProviderClient) UpdateRepoWebhook(ctx context.Context, repo string, id int64, payload map[string]any) error {
	return m.Called(ctx, repo, id, payload).Error(0)
}

func (m *mockProviderClient) DeleteRepoWebhook(ctx context.Context, repo string, id int64) error {
	return m.Called(ctx, repo, id).Error(0)
}

func (m *mockProviderClient) ListRepoSecrets(ctx context.Context, repo string) ([]map[string]any, error) {
	return m.listResult(m.Called(ctx, repo))
}

func (m *mockProviderClient) PutRepoSecret(ctx context.Context, repo, name string, payload map[string]any) error {
	return m.Called(ctx, repo, name, payload).Error(0)
}

func (m *mockProviderClient) DeleteRepoSecret(ctx context.Context, repo, name string) error {
	return m.Called(ctx, repo, name).Error(0)
}

func (m *mockProviderClient) ListEnvironments(ctx context.Context, repo string) ([]map[string]any, error) {
	return m.listResult(m.Called(ctx, repo))
}

func (m *mockProviderClient) PutEnvironment(ctx context.Context, repo, name string, payload map[string]any) error {
	return m.Called(ctx, repo, name, payload).Error(0)
}

func (m *mockProviderClient) DeleteEnvironment(ctx context.Context, repo, name string) error {
	return m.Called(ctx, repo, name).Error(0)
}

func (m *mockProviderClient) ListBranchProtections(ctx context.Context, repo string) ([]map[string]any, error) {
	return m.listResult(m.Called(ctx, repo))
}

func (m *mockProviderClient) CreateBranchProtection(ctx context.Context, repo string, payload map[string]any) error {
	return m.Called(ctx, repo, payload).Error(0)
}

func (m *mockProviderClient) UpdateBranchProtection(ctx context.Context, id string, payload map[string]any) error {
	return m.Called(ctx, id, payload).Error(0)
}

func (m *mockProviderClient) DeleteBranchProtection(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
