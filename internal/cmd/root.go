// Package cmd provides CLI command implementations.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/mlisa-ops/drgen/internal/config"
	"github.com/mlisa-ops/drgen/internal/output"
	"github.com/mlisa-ops/drgen/internal/version"
)

var (
	// Global flags
	kubeconfigFlag string
	contextFlag    string
	configFlag     string
	verboseFlag    bool
	skipBucketFlag bool

	// Resolved configuration (loaded during PersistentPreRunE)
	toolConfig *config.Config
)

// NewRootCmd creates the root command for the drgen CLI.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "drgen",
		Short: "Disaster-recovery artifact generator",
		Long: `drgen generates the Terraform variable files and Kubernetes manifests
for a cluster's primary and disaster-recovery sites from a single
configuration catalog.

It provides commands to:
  - Extract and templatize live resources from a cluster
  - Generate site-specific manifests and Terraform variables
  - Check site parity between primary and DR artifacts`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initializeGlobals()
		},
	}

	// Add global flags
	rootCmd.PersistentFlags().StringVar(&kubeconfigFlag, "kubeconfig", "", "Path to kubeconfig file (env: DRGEN_KUBECONFIG)")
	rootCmd.PersistentFlags().StringVar(&contextFlag, "context", "", "Kubernetes context to use (env: DRGEN_CONTEXT)")
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Path to config file (env: DRGEN_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&skipBucketFlag, "skip-bucket", false, "Skip bucket download/upload; work from local files only")

	// Add subcommands
	rootCmd.AddCommand(NewGenerateCmd())
	rootCmd.AddCommand(NewFetchCmd())
	rootCmd.AddCommand(NewDiffCmd())
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

// initializeGlobals sets up logging and loads the tool configuration.
func initializeGlobals() error {
	output.SetupLogging(verboseFlag)

	info := version.GetInfo()
	output.Debug("drgen started", "version", info.Version)

	cfg, err := config.NewLoader().Load(GetConfigFile())
	if err != nil {
		return err
	}
	if skipBucketFlag {
		cfg.SkipBucket = true
	}
	toolConfig = cfg

	output.Debug("configuration loaded",
		"staticConfigDir", cfg.StaticConfigDir,
		"outputDir", cfg.OutputDir,
		"tfvarsDir", cfg.TFVarsDir,
		"bucket", cfg.Bucket,
		"skipBucket", cfg.SkipBucket,
	)

	return nil
}

// GetConfig returns the loaded tool configuration.
func GetConfig() *config.Config {
	return toolConfig
}

// GetConfigFile returns the config file path from flags or environment.
func GetConfigFile() string {
	if configFlag != "" {
		return configFlag
	}
	if env := os.Getenv("DRGEN_CONFIG"); env != "" {
		return env
	}
	return ""
}

// GetKubeconfig returns the kubeconfig path from flags or environment.
func GetKubeconfig() string {
	if kubeconfigFlag != "" {
		return kubeconfigFlag
	}
	if env := os.Getenv("DRGEN_KUBECONFIG"); env != "" {
		return env
	}
	return ""
}

// GetContext returns the kubernetes context from flags or environment.
func GetContext() string {
	if contextFlag != "" {
		return contextFlag
	}
	if env := os.Getenv("DRGEN_CONTEXT"); env != "" {
		return env
	}
	return ""
}
