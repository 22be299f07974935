// Command atomstore is a thin operational CLI over the embeddable store:
// bootstrap a fresh data directory, inspect a resource, and mint agents.
// It does not expose an HTTP or TUI surface; wiring the store into a
// network-facing server is left to the embedding application.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cuemby/atomstore/pkg/config"
	"github.com/cuemby/atomstore/pkg/log"
	"github.com/cuemby/atomstore/pkg/populate"
	"github.com/cuemby/atomstore/pkg/security"
	"github.com/cuemby/atomstore/pkg/storage"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "atomstore",
	Short: "atomstore - an embeddable Atomic Data store",
	Long: `atomstore is a triple-oriented, URI-keyed graph database with a
signed append-only commit log, secondary indexes, and capability-based
authorization, delivered as a Go library with a small operational CLI.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"atomstore version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("data-dir", "./atomstore-data", "Data directory for the bbolt-backed store")
	rootCmd.PersistentFlags().String("server-root", "https://localhost", "Base URL subjects are rooted under")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(agentCmd)
}

func initLogging() {
	config.FromFlags(rootCmd).InitLogging()
}

func openStore(cmd *cobra.Command) (*storage.Store, config.Config, error) {
	cfg := config.FromFlags(cmd)
	s, err := storage.Open(cfg.DataDir, cfg.ServerRoot)
	return s, cfg, err
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Bootstrap a fresh data directory with the built-in ontology and a root agent",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, cfg, err := openStore(cmd)
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer s.Close()

		kp, err := populate.Bootstrap(s, cfg.ServerRoot)
		if err != nil {
			return fmt.Errorf("bootstrapping store: %w", err)
		}

		fmt.Printf("Store initialized at %s\n", cfg.DataDir)
		fmt.Printf("  Server root: %s\n", cfg.ServerRoot)
		fmt.Printf("  Root agent:  %s/agents/root\n", cfg.ServerRoot)
		if kp != nil {
			fmt.Printf("  Public key:  %s\n", security.EncodePublicKey(kp.Public))
			fmt.Printf("  Private key: %s\n", security.EncodePrivateKey(kp.Private))
			fmt.Println()
			fmt.Println("Store the private key; it is not persisted.")
		} else {
			fmt.Println("  (store was already initialized; keypair not regenerated)")
		}
		return nil
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect SUBJECT",
	Short: "Print a resource's propvals as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, err := openStore(cmd)
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer s.Close()

		r, err := s.GetPropvals(args[0])
		if err != nil {
			return fmt.Errorf("fetching %s: %w", args[0], err)
		}

		out, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding %s: %w", args[0], err)
		}
		fmt.Println(string(out))
		return nil
	},
}

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Manage agents",
}

var agentCreateCmd = &cobra.Command{
	Use:   "create SHORTNAME",
	Short: "Mint a new agent with a fresh Ed25519 keypair",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, cfg, err := openStore(cmd)
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer s.Close()

		shortname := args[0]
		subject := cfg.ServerRoot + "/agents/" + shortname
		kp, err := s.CreateAgent(subject, shortname)
		if err != nil {
			return fmt.Errorf("creating agent: %w", err)
		}

		log.WithAgent(subject).Info().Msg("agent created")
		fmt.Printf("Agent created: %s\n", subject)
		fmt.Printf("  Public key:  %s\n", security.EncodePublicKey(kp.Public))
		fmt.Printf("  Private key: %s\n", security.EncodePrivateKey(kp.Private))
		return nil
	},
}

var agentSetDefaultCmd = &cobra.Command{
	Use:   "set-default SUBJECT",
	Short: "Set the store's default signing agent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, err := openStore(cmd)
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer s.Close()

		if err := s.SetDefaultAgent(args[0]); err != nil {
			return fmt.Errorf("setting default agent: %w", err)
		}
		fmt.Printf("Default agent set to %s\n", args[0])
		return nil
	},
}

func init() {
	agentCmd.AddCommand(agentCreateCmd)
	agentCmd.AddCommand(agentSetDefaultCmd)
}
