package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"property-workflow-backend/config"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:          "propertyd",
		Short:        "Property workflow backend: vacancy notices, maintenance jobs and approvals",
		SilenceUsage: true,
	}

	defaultPath := os.Getenv("CONFIG_PATH")
	if defaultPath == "" {
		defaultPath = "./config/config.yaml"
	}
	root.PersistentFlags().StringVar(&configPath, "config", defaultPath, "path to the YAML config file")

	root.AddCommand(serveCmd(), migrateCmd(), tokenCmd(), sweepCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log.Printf("configuration loaded from %s", configPath)
	return cfg, nil
}
