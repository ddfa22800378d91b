// Package main implements the faqctl CLI for faqd administrative operations.
//
// faqctl talks directly to Elasticsearch using the same configuration as the
// daemon, so it can provision the index and pipeline before faqd starts, or
// mint API keys without a running server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sembase/faqd/internal/auth"
	"github.com/sembase/faqd/internal/config"
	"github.com/sembase/faqd/internal/logging"
	"github.com/sembase/faqd/internal/store"
)

var configPath string

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "faqctl",
	Short: "Administrative CLI for the faqd FAQ retrieval service",
	Long: `faqctl manages the faqd service out of band: minting tenant API keys,
provisioning or dropping the Elasticsearch index and ingest pipeline, and
seeding demo FAQ entries.

It reads the same configuration as faqd (YAML file plus FAQD_-prefixed
environment variables).`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.AddCommand(apikeyCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(seedCmd)

	indexCmd.AddCommand(indexCreateCmd)
	indexCmd.AddCommand(indexDropCmd)
}

var apikeyCmd = &cobra.Command{
	Use:   "apikey <email>",
	Short: "Derive the API key for a tenant identity",
	Long: `Derive the API key for a tenant identity from the configured secret.

Keys are deterministic: the same identity and secret always produce the same
key, so this command both issues new keys and recovers lost ones.

Examples:
  faqctl apikey user@example.com`,
	Args: cobra.ExactArgs(1),
	RunE: runAPIKey,
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the FAQ index and ingest pipeline",
}

var indexCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the FAQ index and ingest pipeline",
	Long: `Create the FAQ index and its ingest pipeline if they do not exist.

Idempotent: running it against an already provisioned cluster is a no-op.

Examples:
  faqctl index create
  faqctl index create --config /etc/faqd/config.yaml`,
	Args: cobra.NoArgs,
	RunE: runIndexCreate,
}

var indexDropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Delete the FAQ index",
	Long: `Delete the FAQ index and every document in it. The ingest pipeline
is left in place.

Examples:
  faqctl index drop`,
	Args: cobra.NoArgs,
	RunE: runIndexDrop,
}

var seedCmd = &cobra.Command{
	Use:   "seed <email>",
	Short: "Insert demo FAQ entries for a tenant",
	Long: `Insert a small set of demo FAQ entries owned by the given tenant.

Examples:
  faqctl seed user@example.com`,
	Args: cobra.ExactArgs(1),
	RunE: runSeed,
}

// seedEntries are the demo FAQ fixtures.
var seedEntries = []struct {
	question string
	answer   string
}{
	{"What is the meaning of life?", "42"},
	{"What is the office phone extension?", "6251"},
	{"When is the company birthday?", "6/31"},
}

func runAPIKey(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	key, err := auth.DeriveAPIKey(args[0], cfg.Auth.APIKeySecret)
	if err != nil {
		return fmt.Errorf("deriving api key: %w", err)
	}

	fmt.Println(key)
	return nil
}

func runIndexCreate(cmd *cobra.Command, args []string) error {
	faqStore, logger, err := buildStore()
	if err != nil {
		return err
	}
	defer logging.Sync(logger)

	ctx := cmd.Context()
	if err := faqStore.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("creating index: %w", err)
	}
	if err := faqStore.EnsurePipeline(ctx); err != nil {
		return fmt.Errorf("creating pipeline: %w", err)
	}

	fmt.Println("index and pipeline ready")
	return nil
}

func runIndexDrop(cmd *cobra.Command, args []string) error {
	faqStore, logger, err := buildStore()
	if err != nil {
		return err
	}
	defer logging.Sync(logger)

	if err := faqStore.DeleteIndex(cmd.Context()); err != nil {
		return fmt.Errorf("dropping index: %w", err)
	}

	fmt.Println("index dropped")
	return nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	owner := args[0]

	faqStore, logger, err := buildStore()
	if err != nil {
		return err
	}
	defer logging.Sync(logger)

	ctx := cmd.Context()
	if err := faqStore.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("ensuring index: %w", err)
	}
	if err := faqStore.EnsurePipeline(ctx); err != nil {
		return fmt.Errorf("ensuring pipeline: %w", err)
	}

	for _, entry := range seedEntries {
		doc, err := faqStore.Add(ctx, owner, entry.question, entry.answer)
		if err != nil {
			return fmt.Errorf("seeding %q: %w", entry.question, err)
		}
		fmt.Printf("seeded %s: %s\n", doc.ID, entry.question)
	}

	return nil
}

// buildStore loads configuration and creates the document store.
func buildStore() (*store.Store, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing logger: %w", err)
	}

	var caCert []byte
	if cfg.Elastic.CACertPath != "" {
		caCert, err = os.ReadFile(cfg.Elastic.CACertPath)
		if err != nil {
			return nil, nil, fmt.Errorf("reading ca certificate: %w", err)
		}
	}

	faqStore, err := store.New(store.Config{
		Addresses:           cfg.Elastic.Addresses,
		Username:            cfg.Elastic.Username,
		Password:            cfg.Elastic.Password,
		CACert:              caCert,
		Index:               cfg.Elastic.Index,
		Pipeline:            cfg.Elastic.Pipeline,
		ModelID:             cfg.Elastic.ModelID,
		Dims:                cfg.Elastic.Dims,
		RequestTimeout:      cfg.Elastic.RequestTimeout,
		ListCap:             cfg.Elastic.ListCap,
		CandidateMultiplier: cfg.Elastic.CandidateMultiplier,
		CandidateCap:        cfg.Elastic.CandidateCap,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("creating document store: %w", err)
	}

	return faqStore, logger, nil
}
