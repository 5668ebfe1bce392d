package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/ref-builder/internal/config"
	"github.com/rcliao/ref-builder/internal/printer"
)

func init() {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or initialize the configuration",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Run:   runConfigShow,
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file if none exists",
		Run:   runConfigInit,
	}

	cmd.AddCommand(showCmd, initCmd)
	RootCmd.AddCommand(cmd)
}

func runConfigShow(cmd *cobra.Command, args []string) {
	printJSON(map[string]any{
		"config_path": cfg.Path,
		"db_path":     getDBPath(),
		"redis_addr":  cfg.RedisAddr,
		"log_level":   cfg.LogLevel,
		"policy":      cfg.EnginePolicy(),
	})
}

func runConfigInit(cmd *cobra.Command, args []string) {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	if err := config.WriteDefault(path); err != nil {
		exitErr("write config", err)
	}
	printer.Stdout().Success("config at %s", path)
}
