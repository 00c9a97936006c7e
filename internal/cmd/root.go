// Package cmd implements the orgsync command line interface.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	appcfg "orgsync/internal/config"
	"orgsync/internal/helpers"
	"orgsync/pkg/gh"
	"orgsync/pkg/model"
)

// Version is the build version, overridden from main at build time.
var Version = "dev"

var (
	settingsPath string
	orgOverride  string
	verbosity    int

	settings *appcfg.Settings
	logger   *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "orgsync",
	Short: "Manage GitHub organization configuration as code",
	Long: `Orgsync keeps a GitHub organization in line with a declarative YAML
configuration: organization settings, webhooks, secrets, repositories,
environments, and branch protection rules. It validates the configuration,
plans the changes needed to converge the live organization, and applies
them.`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		var err error
		settings, err = appcfg.Load(settingsPath)
		if err != nil {
			return err
		}
		if orgOverride != "" {
			settings.Org = orgOverride
		}
		settings.Verbosity += verbosity
		logger = helpers.NewLogger(settings.Verbosity)
		return nil
	},
}

func Execute() {
	rootCmd.Version = Version
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", "", "orgsync settings file (default ~/.orgsync/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&orgOverride, "org", "", "organization login, overriding the configured one")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase log verbosity (repeatable)")
}

// newProviderClient builds the provider client for login, prompting for a
// token when none is configured.
func newProviderClient(login string) (*gh.Client, error) {
	settings.Org = login
	if err := settings.EnsureToken(); err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return gh.NewClient(gh.Options{
		Token:   settings.Token,
		Org:     login,
		BaseURL: settings.APIURL,
		Logger:  logger,
		Retry: gh.RetryConfig{
			MaxRetries:      settings.Retry.MaxRetries,
			InitialInterval: settings.Retry.InitialInterval,
			MaxInterval:     settings.Retry.MaxInterval,
			Multiplier:      settings.Retry.Multiplier,
		},
	})
}

// documentOrg resolves which organization a loaded document manages. A
// configured or flag-supplied login must agree with the document.
func documentOrg(org *model.Organization) (string, error) {
	if settings.Org != "" && settings.Org != org.GitHubID {
		return "", fmt.Errorf("configuration is for organization %q but %q was requested", org.GitHubID, settings.Org)
	}
	return org.GitHubID, nil
}
