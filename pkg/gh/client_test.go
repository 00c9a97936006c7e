package gh

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/go-github/v66/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orgsync/pkg/model"
)

func TestNewClientValidatesOptions(t *testing.T) {
	_, err := NewClient(Options{Org: "acme"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token is required")

	_, err = NewClient(Options{Token: "ghp_x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "organization is required")
}

func TestNewClientDefaults(t *testing.T) {
	client, err := NewClient(Options{Token: "ghp_x", Org: "acme"})
	require.NoError(t, err)

	assert.Equal(t, "acme", client.Org())
	assert.Equal(t, DefaultRetryConfig(), client.retry)
	assert.NotNil(t, client.logger)
	assert.Equal(t, "https://api.github.com/", client.rest.BaseURL.String())
}

func TestNewClientEnterprise(t *testing.T) {
	client, err := NewClient(Options{
		Token:   "ghp_x",
		Org:     "acme",
		BaseURL: "https://ghe.example.com/api/v3",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://ghe.example.com/api/v3/", client.rest.BaseURL.String())
}

func TestGraphURLFromBase(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		expected string
	}{
		{
			name:     "standard enterprise rest base",
			base:     "https://ghe.example.com/api/v3",
			expected: "https://ghe.example.com/api/graphql",
		},
		{
			name:     "trailing slash",
			base:     "https://ghe.example.com/api/v3/",
			expected: "https://ghe.example.com/api/graphql",
		},
		{
			name:     "base without version suffix",
			base:     "https://ghe.example.com/api",
			expected: "https://ghe.example.com/api/graphql",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, graphURLFromBase(tt.base))
		})
	}
}

func TestIsNotFound(t *testing.T) {
	assert.False(t, isNotFound(nil))
	assert.True(t, isNotFound(&github.Response{Response: &http.Response{StatusCode: http.StatusNotFound}}))
	assert.False(t, isNotFound(&github.Response{Response: &http.Response{StatusCode: http.StatusOK}}))
}

func TestResolveActorIDsUsesCache(t *testing.T) {
	client := &Client{
		actorCache: map[string]model.ActorID{
			"@erin":          {Type: "User", ID: 7, NodeID: "U_7"},
			"@acme/platform": {Type: "Team", ID: 99, NodeID: "T_99"},
		},
	}

	// A nil REST client would panic on any lookup, so passing proves the
	// cache short-circuits.
	actors, err := client.ResolveActorIDs(context.Background(), []string{"@acme/platform", "@erin"})
	require.NoError(t, err)
	assert.Equal(t, []model.ActorID{
		{Type: "Team", ID: 99, NodeID: "T_99"},
		{Type: "User", ID: 7, NodeID: "U_7"},
	}, actors)
}

func TestResolveRepoIDsUsesCache(t *testing.T) {
	client := &Client{
		repoCache: map[string]repoIdentity{
			"api": {id: 1200, nodeID: "R_abc"},
			"web": {id: 1300, nodeID: "R_def"},
		},
	}

	ids, err := client.ResolveRepoIDs(context.Background(), []string{"web", "api"})
	require.NoError(t, err)
	assert.Equal(t, []int64{1300, 1200}, ids)
}

func TestCacheRepoIdentity(t *testing.T) {
	client := &Client{repoCache: map[string]repoIdentity{}}

	client.cacheRepoIdentity(&github.Repository{
		Name:   github.String("api"),
		ID:     github.Int64(1200),
		NodeID: github.String("R_abc"),
	})
	assert.Equal(t, repoIdentity{id: 1200, nodeID: "R_abc"}, client.repoCache["api"])

	client.cacheRepoIdentity(&github.Repository{Name: github.String("incomplete")})
	assert.NotContains(t, client.repoCache, "incomplete")
}
