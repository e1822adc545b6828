package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/markdown-ticket/mdt/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the global configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the effective configuration after defaults and MDT_*
environment overrides are applied.`,
	RunE: runConfigShow,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	cfg := a.cfg.Current()
	if jsonOutput {
		return printJSON(configView{
			File:         displayConfigFile(),
			AutoDiscover: cfg.Discovery.AutoDiscover,
			SearchPaths:  cfg.Discovery.SearchPaths,
			LogLevel:     cfg.Logging.Level,
			LogFormat:    cfg.Logging.Format,
			ServerHost:   cfg.Server.Host,
			ServerPort:   cfg.Server.Port,
		})
	}

	fmt.Printf("Config file:    %s\n", displayConfigFile())
	fmt.Printf("Auto-discover:  %t\n", cfg.Discovery.AutoDiscover)
	fmt.Printf("Search paths:   %s\n", strings.Join(cfg.Discovery.SearchPaths, ", "))
	fmt.Printf("Log level:      %s\n", cfg.Logging.Level)
	fmt.Printf("Log format:     %s\n", cfg.Logging.Format)
	fmt.Printf("Server:         %s:%d\n", cfg.Server.Host, cfg.Server.Port)
	return nil
}

type configView struct {
	File         string   `json:"file"`
	AutoDiscover bool     `json:"autoDiscover"`
	SearchPaths  []string `json:"searchPaths"`
	LogLevel     string   `json:"logLevel"`
	LogFormat    string   `json:"logFormat"`
	ServerHost   string   `json:"serverHost"`
	ServerPort   int      `json:"serverPort"`
}

func displayConfigFile() string {
	if configPath != "" {
		return configPath
	}
	file, err := config.File()
	if err != nil {
		return "(unknown)"
	}
	return file
}
