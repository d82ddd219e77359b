package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func executeCLI() error {
	return buildRootCommand().Execute()
}

func buildRootCommand() *cobra.Command {
	var showVersion bool

	root := &cobra.Command{
		Use:   "shopchat",
		Short: "Conversational e-commerce assistant with HTTP and Discord gateways",
		Long: strings.TrimSpace(`shopchat answers questions about products, orders, and sales
analytics over an HTTP chat endpoint or a Discord bot.

Use 'serve' to run the assistant, 'repl' for a local terminal session, and
'backend' to run the self-contained development data service.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				printVersion()
				return nil
			}
			_ = cmd.Help()
			return fmt.Errorf("a subcommand is required")
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.Flags().BoolVarP(&showVersion, "version", "v", false, "Show build/version metadata")

	root.AddCommand(newServeCommand())
	root.AddCommand(newReplCommand())
	root.AddCommand(newBackendCommand())
	root.AddCommand(newVersionCommand())

	return root
}

func newServeCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Run the HTTP gateway and any configured chat channels",
		Example: "  shopchat serve --config ./shopchat.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	return cmd
}

func newReplCommand() *cobra.Command {
	var (
		configPath string
		message    string
	)

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Chat with the assistant from the terminal",
		Example: strings.Join([]string{
			"  shopchat repl",
			"  shopchat repl --message \"show me my last order\"",
		}, "\n"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl(configPath, message)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	cmd.Flags().StringVarP(&message, "message", "m", "", "One-shot message instead of an interactive session")
	return cmd
}

func newBackendCommand() *cobra.Command {
	var (
		configPath string
		dataset    string
		dbPath     string
		addr       string
	)

	cmd := &cobra.Command{
		Use:     "backend",
		Short:   "Run the development data service backed by SQLite",
		Long:    "Serve the order dataset over the same routes the production order and analytics services use.",
		Example: "  shopchat backend --dataset ./ecommerce.csv --addr 127.0.0.1:8081",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackend(configPath, dataset, dbPath, addr)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	cmd.Flags().StringVarP(&dataset, "dataset", "d", "", "Order dataset CSV to import on startup")
	cmd.Flags().StringVar(&dbPath, "db", ":memory:", "SQLite database path")
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8081", "Listen address")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   "Show build/version metadata",
		Example: "  shopchat version",
		RunE: func(cmd *cobra.Command, args []string) error {
			printVersion()
			return nil
		},
	}
}
