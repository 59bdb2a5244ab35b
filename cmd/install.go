package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jfmyers9/spinpost/internal/schedule"
	"github.com/spf13/cobra"
)

// installCmd represents the install command
var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Schedule spinpost as a launchd agent",
	Long: `Install spinpost as a launchd agent that runs periodically.

This command will:
  - Generate a launchd plist that runs spinpost every --interval
  - Install it to ~/Library/LaunchAgents/
  - Load the agent with launchctl

By default the agent only ingests (--ingest-only), so plays are collected
regularly. Post the weekly summary with a separate schedule (for example a
weekly cron entry running 'spinpost'), or pass --post to make every run post.

The agent runs from the current directory so a .env file there is picked up.`,
	RunE: runInstall,
}

func init() {
	rootCmd.AddCommand(installCmd)

	installCmd.Flags().Duration("interval", schedule.DefaultInterval*time.Second, "How often to run")
	installCmd.Flags().Bool("post", false, "Post on every run instead of only ingesting")
}

func runInstall(cmd *cobra.Command, args []string) error {
	interval, _ := cmd.Flags().GetDuration("interval")
	post, _ := cmd.Flags().GetBool("post")
	if interval < time.Minute {
		return fmt.Errorf("interval must be at least a minute, got %s", interval)
	}

	// Get the path to the current executable
	binaryPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	// Resolve symlinks to get the actual binary path
	binaryPath, err = filepath.EvalSymlinks(binaryPath)
	if err != nil {
		return fmt.Errorf("failed to resolve executable path: %w", err)
	}

	logPath, err := schedule.GetDefaultLogPath()
	if err != nil {
		return fmt.Errorf("failed to get log path: %w", err)
	}
	if err := os.MkdirAll(logPath, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	var agentArgs []string
	if !post {
		agentArgs = append(agentArgs, "--ingest-only")
	}
	if logLevel != "" && logLevel != "info" {
		agentArgs = append(agentArgs, "--log-level", logLevel)
	}
	if dbPath != "" {
		abs, err := filepath.Abs(dbPath)
		if err != nil {
			return fmt.Errorf("failed to resolve database path: %w", err)
		}
		agentArgs = append(agentArgs, "--db", abs)
	}

	plistContent, err := schedule.GeneratePlist(schedule.PlistConfig{
		BinaryPath:       binaryPath,
		Args:             agentArgs,
		IntervalSeconds:  int(interval / time.Second),
		RunAtLoad:        true,
		LogPath:          logPath,
		WorkingDirectory: workDir,
	})
	if err != nil {
		return fmt.Errorf("failed to generate plist: %w", err)
	}

	plistPath, err := schedule.GetPlistPath()
	if err != nil {
		return fmt.Errorf("failed to get plist path: %w", err)
	}

	// Create LaunchAgents directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(plistPath), 0755); err != nil {
		return fmt.Errorf("failed to create LaunchAgents directory: %w", err)
	}

	launchctl := schedule.NewLaunchctl()

	if _, err := os.Stat(plistPath); err == nil {
		fmt.Println("Agent is already installed. Reinstalling...")
		if warning, err := launchctl.Bootout(schedule.Label); err != nil {
			fmt.Printf("Warning: failed to unload existing agent: %v\n", err)
		} else if warning != "" {
			fmt.Printf("Warning: %s\n", warning)
		}
	}

	if err := os.WriteFile(plistPath, []byte(plistContent), 0644); err != nil {
		return fmt.Errorf("failed to write plist file: %w", err)
	}

	fmt.Printf("✓ Installed plist to %s\n", plistPath)

	if err := launchctl.Bootstrap(plistPath); err != nil {
		return fmt.Errorf("failed to load agent: %w", err)
	}

	fmt.Printf("✓ Agent loaded, running every %s\n", interval)
	fmt.Printf("✓ Logs will be written to %s\n", logPath)
	fmt.Println("\nYou can check the agent status with:")
	fmt.Println("  launchctl list | grep spinpost")
	fmt.Println("\nTo uninstall, run:")
	fmt.Println("  spinpost uninstall")

	return nil
}
