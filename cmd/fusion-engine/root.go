package main

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/skywatch-oss/fusion-engine/internal/config"
	"github.com/skywatch-oss/fusion-engine/internal/monitoring"
	"github.com/skywatch-oss/fusion-engine/internal/version"
)

// envPrefix namespaces every environment variable the engine reads,
// e.g. FUSION_DB_PATH, FUSION_ADSB_BASE_URL.
const envPrefix = "FUSION"

func newRootCmd() *cobra.Command {
	var (
		envFile    string
		tuningPath string
	)

	root := &cobra.Command{
		Use:           "fusion-engine",
		Short:         "Real-time OSINT fusion engine for military aviation",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// A local .env is a dev convenience; absence is fine.
			if envFile != "" {
				if err := godotenv.Load(envFile); err != nil {
					monitoring.Logf("cmd: env file %s not loaded: %v", envFile, err)
				}
			} else {
				_ = godotenv.Load()
			}
			viper.SetEnvPrefix(envPrefix)
			viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
			viper.AutomaticEnv()
			return nil
		},
	}

	root.PersistentFlags().StringVar(&envFile, "env-file", "", "path to a .env file to load before reading configuration")
	root.PersistentFlags().StringVar(&tuningPath, "tuning", "", "path to a tuning overrides JSON file")

	root.AddCommand(newServeCmd(&tuningPath))
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newCalibrateCmd(&tuningPath))
	root.AddCommand(newReplayCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("fusion-engine %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		},
	}
}

// loadTuning resolves the tuning config from --tuning, falling back
// to built-in defaults.
func loadTuning(path string) (*config.TuningConfig, error) {
	if path == "" {
		return config.EmptyTuningConfig(), nil
	}
	cfg, err := config.LoadTuningConfig(path)
	if err != nil {
		return nil, fmt.Errorf("load tuning config: %w", err)
	}
	return cfg, nil
}

// dbPath resolves the database location; FUSION_DB_PATH overrides the
// default working-directory file.
func dbPath() string {
	if path := viper.GetString("db_path"); path != "" {
		return path
	}
	return "fusion.db"
}
