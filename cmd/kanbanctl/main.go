// Command kanbanctl is a terminal client for the Kanban Live API.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"kanbanlive/internal/client"
	"kanbanlive/internal/logging"
)

var Version = "dev"

func main() {
	if err := newRootCmd(viper.New()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:          "kanbanctl",
		Short:        "Terminal client for Kanban Live boards",
		Version:      Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(v, cfgFile)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (default $HOME/.kanbanctl.yaml)")
	flags.String("url", "http://localhost:8080", "API base URL (KANBAN_URL)")
	flags.String("token", "", "Bearer token (KANBAN_TOKEN)")
	flags.String("log-level", "warn", "Log level")
	_ = v.BindPFlag("url", flags.Lookup("url"))
	_ = v.BindPFlag("token", flags.Lookup("token"))
	_ = v.BindPFlag("log_level", flags.Lookup("log-level"))

	// Add subcommands
	rootCmd.AddCommand(boardsCmd(v))
	rootCmd.AddCommand(watchCmd(v))
	rootCmd.AddCommand(moveTaskCmd(v))
	rootCmd.AddCommand(moveListCmd(v))
	rootCmd.AddCommand(activityCmd(v))

	return rootCmd
}

func loadConfig(v *viper.Viper, cfgFile string) error {
	v.SetEnvPrefix("KANBAN")
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		v.AddConfigPath(home)
		v.SetConfigName(".kanbanctl")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func newClient(v *viper.Viper) (*client.Client, error) {
	token := v.GetString("token")
	if token == "" {
		return nil, fmt.Errorf("no token: set --token or KANBAN_TOKEN")
	}
	logger := logging.New(v.GetString("log_level"), false)
	return client.New(v.GetString("url"), token, client.WithLogger(logger)), nil
}
