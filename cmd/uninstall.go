package cmd

import (
	"fmt"
	"os"

	"github.com/jfmyers9/spinpost/internal/schedule"
	"github.com/spf13/cobra"
)

// uninstallCmd represents the uninstall command
var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the spinpost launchd agent",
	Long: `Remove the spinpost launchd agent so it no longer runs on a schedule.

This command will:
  - Unload the agent from launchd
  - Remove the plist file from ~/Library/LaunchAgents/

The database and token cache are left in place.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		plistPath, err := schedule.GetPlistPath()
		if err != nil {
			return fmt.Errorf("failed to get plist path: %w", err)
		}

		if _, err := os.Stat(plistPath); os.IsNotExist(err) {
			fmt.Println("Agent is not installed (plist not found)")
			return nil
		}

		fmt.Println("Unloading agent...")
		warning, err := schedule.NewLaunchctl().Bootout(schedule.Label)
		switch {
		case err != nil:
			fmt.Printf("Warning: failed to unload agent: %v\n", err)
			fmt.Println("Continuing with plist removal...")
		case warning != "":
			fmt.Printf("Warning: %s\n", warning)
		default:
			fmt.Println("✓ Agent unloaded")
		}

		if err := os.Remove(plistPath); err != nil {
			return fmt.Errorf("failed to remove plist file: %w", err)
		}

		fmt.Printf("✓ Removed plist from %s\n", plistPath)
		fmt.Println("\nTo reinstall, run:")
		fmt.Println("  spinpost install")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(uninstallCmd)
}
