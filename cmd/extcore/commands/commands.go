package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/axonbase/extcore/config"
	"github.com/axonbase/extcore/crx"
	"github.com/axonbase/extcore/logging/logger"
	"github.com/axonbase/extcore/system"
	"github.com/axonbase/extcore/version"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "extcore",
		Short: "Extension lifecycle and policy management service",
	}

	rootCmd.AddCommand(
		NewStartCommand(),
		NewCheckCommand(),
		NewValidateCommand(),
		NewVersionCommand(),
	)

	return rootCmd
}

// NewStartCommand creates the start command
func NewStartCommand() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the extension management service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %v", err)
			}

			cleanup, err := logger.Init(cfg.Logger)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %v", err)
			}
			defer cleanup()

			sys, err := system.New(cfg)
			if err != nil {
				return fmt.Errorf("failed to create extension system: %v", err)
			}

			ctx := context.Background()
			if err := sys.Start(ctx); err != nil {
				return fmt.Errorf("failed to start extension system: %v", err)
			}

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			return sys.Shutdown(ctx)
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "config.yaml", "config file path")
	return cmd
}

// NewCheckCommand creates the one-shot reconciliation command
func NewCheckCommand() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run one external-provider reconciliation pass and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %v", err)
			}

			sys, err := system.New(cfg)
			if err != nil {
				return fmt.Errorf("failed to create extension system: %v", err)
			}

			ctx := context.Background()
			if err := sys.Start(ctx); err != nil {
				return fmt.Errorf("failed to start extension system: %v", err)
			}

			c := sys.Coordinator()
			if err := c.CheckForExternalUpdates(ctx); err != nil {
				return err
			}
			for _, msg := range c.Errors() {
				fmt.Fprintln(os.Stderr, msg)
			}

			return sys.Shutdown(ctx)
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "config.yaml", "config file path")
	return cmd
}

// NewValidateCommand creates the manifest validation command
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <dir>",
		Short: "Validate an unpacked extension directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, err := crx.NewDirValidator().Validate(context.Background(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("id:      %s\nname:    %s\nversion: %s\n", manifest.ID, manifest.Name, manifest.Version)
			if perms := manifest.Permissions.Names(); len(perms) > 0 {
				fmt.Printf("permissions: %v\n", perms)
			}
			return nil
		},
	}
	return cmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			version.Print()
		},
	}
}
