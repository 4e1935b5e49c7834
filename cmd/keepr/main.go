// Package main is the entry point for the keepr CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jsridhar/keepr/internal/browser"
	"github.com/jsridhar/keepr/internal/config"
	"github.com/jsridhar/keepr/internal/export"
	"github.com/jsridhar/keepr/internal/svc"
	"github.com/jsridhar/keepr/pkg/app"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "keepr",
		Short:         "Keeps a job portal profile active on a schedule",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "Path to configuration file")
	root.PersistentFlags().String("log-level", "info", "Minimum log level (debug, info, warn, error)")
	root.AddCommand(versionCmd(), startCmd(), runCmd(), loginCmd(), configCmd(), serviceCmd())
	return root
}

func paramsFrom(cmd *cobra.Command) (app.RunParams, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	levelStr, _ := cmd.Flags().GetString("log-level")

	var level slog.Level
	if err := level.UnmarshalText([]byte(levelStr)); err != nil {
		return app.RunParams{}, fmt.Errorf("invalid log level %q", levelStr)
	}

	return app.RunParams{
		ConfigPath: cfgPath,
		Version:    version,
		Commit:     commit,
		Date:       date,
		LogLevel:   level,
	}, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("keepr %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func startCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := paramsFrom(cmd)
			if err != nil {
				return err
			}
			params.Immediate, _ = cmd.Flags().GetBool("immediate")
			return app.Run(params)
		},
	}
	cmd.Flags().Bool("immediate", false, "Run enabled jobs once at startup, ignoring windows")
	return cmd
}

func runCmd() *cobra.Command {
	names := []string{config.JobResumeRefresh, config.JobHeadlineToggle, config.JobHistoryCleanup}
	return &cobra.Command{
		Use:       "run <job>",
		Short:     "Run one job immediately, ignoring its window",
		Long:      "Run one job immediately. Jobs: " + strings.Join(names, ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := paramsFrom(cmd)
			if err != nil {
				return err
			}
			return app.RunJob(cmd.Context(), params, args[0])
		},
	}
}

func loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in interactively and save session cookies",
		Long: "Opens a visible browser on the portal's login page. Sign in by hand\n" +
			"(including any OTP), confirm in the terminal, and the session cookies\n" +
			"are saved for the daemon's unattended runs.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := paramsFrom(cmd)
			if err != nil {
				return err
			}

			cfgPath := params.ConfigPath
			if cfgPath == "" {
				if cfgPath, err = config.ResolvePath(); err != nil {
					return err
				}
			}
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}

			cookieFile := cfg.Portal.CookiesFile
			if cookieFile == "" {
				return fmt.Errorf("portal.cookies_file must be set before `keepr login`")
			}

			return export.Run(cmd.Context(), export.Options{
				LoginURL:   cfg.Portal.LoginURL,
				CookieFile: cookieFile,
				Browser: browser.Options{
					NavTimeout:    cfg.Browser.NavTimeout.Std(),
					ActionTimeout: cfg.Browser.ActionTimeout.Std(),
					UserAgent:     cfg.Browser.UserAgent,
				},
			})
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check <path>",
		Short: "Validate configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}

			enabled := 0
			for _, job := range cfg.Jobs {
				if job.IsEnabled() {
					enabled++
				}
			}
			fmt.Printf("Configuration OK (%d jobs enabled)\n", enabled)
			for name, job := range cfg.Jobs {
				if job.IsEnabled() {
					fmt.Printf("  %s: %s\n", name, job.Schedule)
				}
			}
			return nil
		},
	})
	return cmd
}

func serviceCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "service <action>",
		Short:     "Manage the system service",
		Long:      "Actions: " + strings.Join(svc.Actions, ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: svc.Actions,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			return svc.Control(args[0], cfgPath)
		},
	}
}
