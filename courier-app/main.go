package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/compose-network/courier/courier-app/config"
	"github.com/compose-network/courier/log"
)

const banner = `
 ██████╗ ██████╗ ██╗   ██╗██████╗ ██╗███████╗██████╗
██╔════╝██╔═══██╗██║   ██║██╔══██╗██║██╔════╝██╔══██╗
██║     ██║   ██║██║   ██║██████╔╝██║█████╗  ██████╔╝
██║     ██║   ██║██║   ██║██╔══██╗██║██╔══╝  ██╔══██╗
╚██████╗╚██████╔╝╚██████╔╝██║  ██║██║███████╗██║  ██║
 ╚═════╝ ╚═════╝  ╚═════╝ ╚═╝  ╚═╝╚═╝╚══════╝╚═╝  ╚═╝`

var cfgFile string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "courier-app",
		Short:         "Typed pub/sub and service calls over a TCP hub",
		Long:          banner + "\n\nSample publishers, subscribers and services for the courier transport.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (defaults and COURIER_* env when empty)")
	root.PersistentFlags().String("log-level", "", "log level (trace, debug, info, warn, error)")
	root.PersistentFlags().Bool("log-pretty", false, "enable pretty logging")
	root.PersistentFlags().String("hub-addr", "", "hub address clients dial")
	root.PersistentFlags().String("listen-addr", "", "hub listen address")
	root.PersistentFlags().String("api-addr", "", "HTTP API listen address")
	root.PersistentFlags().Bool("zero-copy", false, "publish through pooled zero-copy buffers")
	root.PersistentFlags().Int("buffer-count", 0, "number of pooled publish buffers")
	root.PersistentFlags().Duration("acknowledge-timeout", 0, "how long a zero-copy send waits for the buffer to be released")
	root.PersistentFlags().Duration("call-timeout", 0, "per-instance service call timeout")

	root.AddCommand(
		newVersionCmd(),
		newConfigCmd(),
		newHubCmd(),
		newPersonSendCmd(),
		newPersonReceiveCmd(),
		newHelloSendCmd(),
		newHelloReceiveCmd(),
		newBlobReceiveCmd(),
		newPerfSendCmd(),
		newMirrorServerCmd(),
		newMirrorClientCmd(),
	)
	return root
}

// loadApp loads the config, applies flag overrides and builds the App.
func loadApp(cmd *cobra.Command) (*App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}

	logger := log.New(cfg.Log.Level, cfg.Log.Pretty)
	logger.Debug().
		Str("config_file", cfgFile).
		Str("hub_addr", cfg.Transport.Client.Address).
		Bool("zero_copy", cfg.Publisher.ZeroCopy).
		Str("log_level", cfg.Log.Level).
		Msg("Configuration loaded")

	return NewApp(cfg, logger.Logger, cmd.OutOrStdout()), nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-pretty") {
		cfg.Log.Pretty, _ = flags.GetBool("log-pretty")
	}
	if flags.Changed("hub-addr") {
		cfg.Transport.Client.Address, _ = flags.GetString("hub-addr")
	}
	if flags.Changed("listen-addr") {
		cfg.Transport.Hub.ListenAddr, _ = flags.GetString("listen-addr")
	}
	if flags.Changed("api-addr") {
		cfg.API.ListenAddr, _ = flags.GetString("api-addr")
	}
	if flags.Changed("zero-copy") {
		cfg.Publisher.ZeroCopy, _ = flags.GetBool("zero-copy")
	}
	if flags.Changed("buffer-count") {
		cfg.Publisher.BufferCount, _ = flags.GetInt("buffer-count")
	}
	if flags.Changed("acknowledge-timeout") {
		cfg.Publisher.AcknowledgeTimeout, _ = flags.GetDuration("acknowledge-timeout")
	}
	if flags.Changed("call-timeout") {
		cfg.Service.CallTimeout, _ = flags.GetDuration("call-timeout")
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, banner)
			fmt.Fprintln(out)
			fmt.Fprintf(out, "Courier\n")
			fmt.Fprintf(out, "Version:    %s\n", Version)
			fmt.Fprintf(out, "Build Time: %s\n", BuildTime)
			fmt.Fprintf(out, "Git Commit: %s\n", GitCommit)
			fmt.Fprintf(out, "Go Version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			applyFlags(cmd, cfg)

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			return enc.Close()
		},
	})
	return cmd
}
