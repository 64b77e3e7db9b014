package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/crtscope/crtscope/core"
	"github.com/crtscope/crtscope/internal/contract"
	"github.com/crtscope/crtscope/internal/embed"
	"github.com/crtscope/crtscope/internal/graphstore"
	"github.com/crtscope/crtscope/internal/outwriter"
	"github.com/crtscope/crtscope/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// store is the graph store shared by all commands, opened in sharedSetup.
var store *graphstore.Store

// writer renders results in the configured output format.
var writer = outwriter.NewOutWriter()

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:                "crtscope",
	Short:              "Score component activity and dissatisfaction from cross-team signals.",
	Long:               `Crtscope fuses Git, Slack, support and doc signals into explainable scores that show which components are heating up before they page you.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// Check if a specific config file is provided
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		// Set config file name and paths
		viper.SetConfigName(".crtscope") // Name of config file (without extension)
		viper.SetConfigType("yaml")      // We'll use YAML format
		viper.AddConfigPath(".")         // Look in the current directory
		viper.AddConfigPath("$HOME")     // Look in the home directory
	}

	// Set environment variable prefix
	viper.SetEnvPrefix("CRTSCOPE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // Read in environment variables that match

	// Set defaults in Viper
	viper.SetDefault("top", contract.DefaultResultLimit)
	viper.SetDefault("workers", contract.DefaultWorkers)
	viper.SetDefault("window", contract.DefaultWindow)
	viper.SetDefault("precision", contract.DefaultPrecision)
	viper.SetDefault("output", schema.TextOut)
	viper.SetDefault("graph-backend", schema.SQLiteBackend)
	viper.SetDefault("graph-db-connect", "")
	viper.SetDefault("color", "yes")
}

// sharedSetup unmarshals config, runs validation and opens the graph store.
func sharedSetup(_ context.Context, _ *cobra.Command, _ []string) error {
	// 1. Read config file. This merges defaults, file, env, and flags.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error was produced
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, which is fine; we'll use defaults/env/flags.
	}

	// 2. Unmarshal all resolved values from Viper into our raw input struct.
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	// 3. Run all validation and complex parsing.
	// This function populates the global 'cfg' from 'input'.
	if err := contract.ProcessAndValidate(cfg, input); err != nil {
		return err
	}

	// 4. Open the graph store with the validated config.
	s, err := graphstore.New(cfg.GraphBackend, cfg.GraphDBConnect)
	if err != nil {
		return fmt.Errorf("failed to initialize graph store: %w", err)
	}
	store = s

	return nil
}

// sharedSetupWrapper wraps sharedSetup to provide context for Cobra's PreRunE.
func sharedSetupWrapper(cmd *cobra.Command, args []string) error {
	return sharedSetup(rootCtx, cmd, args)
}

// newPipeline builds a scoring pipeline on the shared store, wiring the
// remote embedder when one is configured.
func newPipeline() *core.Pipeline {
	pipeline := core.NewPipeline(store, cfg)
	if cfg.EmbedServiceURL != "" {
		pipeline.SetEmbedder(embed.NewHTTPEmbedder(cfg.EmbedServiceURL, cfg.EmbedTimeout))
	}
	return pipeline
}

// Execute runs the root command.
func Execute() error {
	defer func() {
		if store != nil {
			_ = store.Close()
		}
	}()
	return rootCmd.Execute()
}
