package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/mattn/go-isatty"
	"github.com/niels/repo-status/pkg/config"
	"github.com/niels/repo-status/pkg/git"
	"github.com/niels/repo-status/pkg/logging"
	"github.com/niels/repo-status/pkg/version"
	"github.com/niels/repo-status/pkg/workflow"
	"github.com/spf13/cobra"
)

var (
	configPath  string
	debug       bool
	showVersion bool
	fetch       bool
	workers     int
	format      string
	outputPath  string
	noColor     bool
	dirtyOnly   bool
	failDirty   bool
	noProgress  bool
	maxDepth    int
	writeConfig bool
	cfg         *config.Config
	runner      git.CommandRunner
)

// NewRootCmd creates the root command for repo-status
func NewRootCmd() *cobra.Command {
	return NewRootCmdWithRunner(nil)
}

// NewRootCmdWithRunner creates the root command with a custom Git runner.
// A nil runner runs the configured Git binary.
// This is primarily used for testing
func NewRootCmdWithRunner(r git.CommandRunner) *cobra.Command {
	runner = r

	rootCmd := &cobra.Command{
		Use:   version.AppName + " [paths...]",
		Short: version.Description,
		Long: fmt.Sprintf(`%s - %s

Checks every configured Git working copy (or the paths given as arguments)
and reports unpushed and unpulled commits, modified and deleted files and
untracked files.
`, version.AppName, version.Description),
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if path == "" {
				path = config.DefaultPath()
			}
			cfg = config.LoadOrDefault(path)
			if err := config.ApplyEnv(cfg); err != nil {
				return err
			}

			logging.InitGlobalLogger(debug, &cfg.Logging)
			logging.InfoWith("Initializing repo-status", map[string]interface{}{
				"config": path,
			})
			if debug {
				logging.Debug("Debug logging enabled")
			}

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Check if we should just show the version
			if showVersion {
				fmt.Fprintln(cmd.OutOrStdout(), version.GetVersionInfo())
				return nil
			}
			return runCheck(cmd, args)
		},
	}

	// Add flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug mode")
	rootCmd.Flags().BoolVarP(&showVersion, "version", "v", false, "Show version information")
	addCheckFlags(rootCmd)

	rootCmd.AddCommand(newCheckCmd(), newDiscoverCmd())

	return rootCmd
}

func addCheckFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&fetch, "fetch", "f", false, "Fetch from the remote before checking")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Number of repositories checked concurrently (overrides config)")
	cmd.Flags().StringVar(&format, "format", "", "Report format: terminal, json or markdown (overrides config)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the report to a file instead of stdout")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	cmd.Flags().BoolVar(&dirtyOnly, "dirty-only", false, "Only report repositories that need attention")
	cmd.Flags().BoolVar(&failDirty, "fail-dirty", false, "Exit with status 1 when a repository is dirty")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Do not show progress on stderr")
}

func newCheckCmd() *cobra.Command {
	checkCmd := &cobra.Command{
		Use:   "check [paths...]",
		Short: "Check repositories and print a status report",
		RunE:  runCheck,
	}
	addCheckFlags(checkCmd)
	return checkCmd
}

func newDiscoverCmd() *cobra.Command {
	discoverCmd := &cobra.Command{
		Use:   "discover <root>",
		Short: "Find Git working copies below a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := config.ExpandPath(args[0], "")
			repos, err := git.Discover(root, maxDepth)
			if err != nil {
				return fmt.Errorf("discovery failed: %w", err)
			}

			logging.InfoWith("Discovery completed", map[string]interface{}{
				"root":  root,
				"found": len(repos),
			})

			paths := make([]string, 0, len(repos))
			for _, repo := range repos {
				paths = append(paths, repo.Path)
				if repo.Branch != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", repo.Path, repo.Branch)
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), repo.Path)
				}
			}

			if !writeConfig {
				return nil
			}

			path := configPath
			if path == "" {
				path = config.DefaultPath()
			}
			added, err := config.AppendRepositories(path, paths)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %d repositories to %s\n", len(added), path)
			return nil
		},
	}

	discoverCmd.Flags().IntVar(&maxDepth, "max-depth", 3, "Maximum directory depth to search, 0 for unlimited")
	discoverCmd.Flags().BoolVar(&writeConfig, "write", false, "Add the discovered repositories to the configuration file")

	return discoverCmd
}

func runCheck(cmd *cobra.Command, args []string) error {
	options := workflow.Options{
		Paths:        args,
		Fetch:        fetch,
		Format:       format,
		OutputPath:   outputPath,
		DirtyOnly:    dirtyOnly,
		NoColor:      noColor,
		Workers:      workers,
		ShowProgress: !noProgress && isatty.IsTerminal(os.Stderr.Fd()),
		Stdout:       cmd.OutOrStdout(),
	}

	statusWorkflow, err := workflow.NewStatusWorkflow(options, cfg, runner)
	if err != nil {
		logging.ErrorWith("Failed to create status workflow", map[string]interface{}{
			"error": err.Error(),
		})
		return fmt.Errorf("failed to create status workflow: %w", err)
	}

	stats, _, err := statusWorkflow.Run(cmd.Context())
	if err != nil {
		logging.ErrorWith("Status workflow failed", map[string]interface{}{
			"error": err.Error(),
		})
		return fmt.Errorf("status workflow failed: %w", err)
	}

	if stats.ExitCode(failDirty) != 0 {
		if stats.Failed > 0 {
			return fmt.Errorf("%d of %d repositories could not be checked", stats.Failed, stats.Checked)
		}
		return fmt.Errorf("%d of %d repositories need attention", stats.Dirty, stats.Checked)
	}

	return nil
}

// Execute runs the root command, cancelling in-flight Git commands on interrupt.
// This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		stop()
		os.Exit(1)
	}
}
