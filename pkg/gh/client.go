// Package gh implements the provider client for GitHub, speaking REST for
// organization and repository resources and GraphQL for branch protection
// rules. All reads surface raw field maps keyed by configuration names and
// all writes accept them back, so callers never touch wire types.
package gh

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v66/github"
	"github.com/pkg/errors"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"

	"orgsync/internal/helpers"
	"orgsync/pkg/model"
)

// Options configures a Client.
type Options struct {
	// Token is a personal access token or installation token with admin
	// access to the target organization.
	Token string

	// Org is the organization login all calls are scoped to.
	Org string

	// BaseURL points at a GitHub Enterprise REST endpoint in the
	// "https://host/api/v3" form. Empty selects github.com.
	BaseURL string

	Logger *slog.Logger
	Retry  RetryConfig
}

// Client talks to a single GitHub organization. It implements
// reconcile.ProviderClient.
type Client struct {
	rest   *github.Client
	graph  *githubv4.Client
	org    string
	logger *slog.Logger
	retry  RetryConfig

	actorCache map[string]model.ActorID
	repoCache  map[string]repoIdentity

	// Secrets public keys, fetched lazily and kept for the client's
	// lifetime. Keyed by repository name, with "" for the organization.
	keyCache map[string]*github.PublicKey
}

// repoIdentity carries both identifiers of a repository. REST endpoints
// take the numeric ID, GraphQL mutations the node ID.
type repoIdentity struct {
	id     int64
	nodeID string
}

// NewClient builds a Client around an oauth2 transport with secondary rate
// limit waiting.
func NewClient(opts Options) (*Client, error) {
	if opts.Token == "" {
		return nil, errors.New("gh: token is required")
	}
	if opts.Org == "" {
		return nil, errors.New("gh: organization is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = helpers.NewNoopLogger()
	}
	retry := opts.Retry
	if retry == (RetryConfig{}) {
		retry = DefaultRetryConfig()
	}

	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
	httpClient := oauth2.NewClient(context.Background(), src)

	rateLimiter, err := github_ratelimit.NewRateLimitWaiterClient(httpClient.Transport)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create rate limiting client")
	}

	rest := github.NewClient(rateLimiter)
	graph := githubv4.NewClient(rateLimiter)
	if opts.BaseURL != "" {
		rest, err = rest.WithEnterpriseURLs(opts.BaseURL, opts.BaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "failed to configure enterprise URLs")
		}
		graph = githubv4.NewEnterpriseClient(graphURLFromBase(opts.BaseURL), rateLimiter)
	}

	return &Client{
		rest:       rest,
		graph:      graph,
		org:        opts.Org,
		logger:     logger,
		retry:      retry,
		actorCache: map[string]model.ActorID{},
		repoCache:  map[string]repoIdentity{},
		keyCache:   map[string]*github.PublicKey{},
	}, nil
}

// graphURLFromBase maps an enterprise REST base URL onto the GraphQL
// endpoint, "https://host/api/v3" onto "https://host/api/graphql".
func graphURLFromBase(base string) string {
	return strings.TrimSuffix(strings.TrimSuffix(base, "/"), "/v3") + "/graphql"
}

// Org returns the organization login the client is scoped to.
func (c *Client) Org() string {
	return c.org
}

func (c *Client) withRetry(ctx context.Context, operation func() error) error {
	return withRetry(ctx, c.retry, operation)
}

// ResolveActorIDs implements model.Resolver. References name users as
// "@login" and teams as "@org/slug". Results are cached for the lifetime
// of the client.
func (c *Client) ResolveActorIDs(ctx context.Context, names []string) ([]model.ActorID, error) {
	actors := make([]model.ActorID, 0, len(names))
	for _, name := range names {
		actor, err := c.resolveActor(ctx, name)
		if err != nil {
			return nil, err
		}
		actors = append(actors, actor)
	}
	return actors, nil
}

func (c *Client) resolveActor(ctx context.Context, name string) (model.ActorID, error) {
	if cached, ok := c.actorCache[name]; ok {
		return cached, nil
	}

	ref := strings.TrimPrefix(name, "@")
	var actor model.ActorID

	if owner, slug, isTeam := strings.Cut(ref, "/"); isTeam {
		var team *github.Team
		err := c.withRetry(ctx, func() error {
			var err error
			team, _, err = c.rest.Teams.GetTeamBySlug(ctx, owner, slug)
			return wrapError(err, fmt.Sprintf("team %s", name))
		})
		if err != nil {
			return model.ActorID{}, err
		}
		actor = model.ActorID{Type: "Team", ID: team.GetID(), NodeID: team.GetNodeID()}
	} else {
		var user *github.User
		err := c.withRetry(ctx, func() error {
			var err error
			user, _, err = c.rest.Users.Get(ctx, ref)
			return wrapError(err, fmt.Sprintf("user %s", name))
		})
		if err != nil {
			return model.ActorID{}, err
		}
		actor = model.ActorID{Type: "User", ID: user.GetID(), NodeID: user.GetNodeID()}
	}

	c.actorCache[name] = actor
	return actor, nil
}

// ResolveRepoIDs implements model.Resolver. Names are repositories inside
// the client's organization.
func (c *Client) ResolveRepoIDs(ctx context.Context, names []string) ([]int64, error) {
	ids := make([]int64, 0, len(names))
	for _, name := range names {
		identity, err := c.lookupRepo(ctx, name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, identity.id)
	}
	return ids, nil
}

func (c *Client) lookupRepo(ctx context.Context, name string) (repoIdentity, error) {
	if cached, ok := c.repoCache[name]; ok {
		return cached, nil
	}

	var repo *github.Repository
	err := c.withRetry(ctx, func() error {
		var err error
		repo, _, err = c.rest.Repositories.Get(ctx, c.org, name)
		return wrapError(err, fmt.Sprintf("repository %s/%s", c.org, name))
	})
	if err != nil {
		return repoIdentity{}, err
	}

	identity := repoIdentity{id: repo.GetID(), nodeID: repo.GetNodeID()}
	c.repoCache[name] = identity
	return identity, nil
}

// cacheRepoIdentity records identifiers learned from list and create
// responses so later lookups skip the extra GET.
func (c *Client) cacheRepoIdentity(repo *github.Repository) {
	if repo.GetName() == "" || repo.GetID() == 0 {
		return
	}
	c.repoCache[repo.GetName()] = repoIdentity{id: repo.GetID(), nodeID: repo.GetNodeID()}
}

// isNotFound reports whether a REST response carries a 404 without forcing
// callers through error unwrapping.
func isNotFound(resp *github.Response) bool {
	return resp != nil && resp.StatusCode == http.StatusNotFound
}
