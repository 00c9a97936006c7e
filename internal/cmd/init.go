package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	appcfg "orgsync/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize orgsync settings",
	Long:  "Create a default settings file for orgsync",
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(_ *cobra.Command, _ []string) error {
	path := settingsPath
	if path == "" {
		path = appcfg.DefaultPath()
	}
	if path == "" {
		return fmt.Errorf("cannot determine settings path: pass --settings")
	}

	if _, err := os.Stat(path); err == nil {
		fmt.Printf("⚠️  Settings file already exists at: %s\n", path)
		ok, err := confirm(os.Stdin, "Do you want to overwrite it?")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Settings initialization cancelled.")
			return nil
		}
	}

	// Only the essentials: retry and verbosity defaults apply at load
	// time without being spelled out here.
	starter := &appcfg.Settings{Org: "your-org"}
	if err := starter.Save(path); err != nil {
		return err
	}

	fmt.Printf("✅ Settings file created at: %s\n", path)
	fmt.Println("📝 Please edit the file to set your organization and token.")
	return nil
}
