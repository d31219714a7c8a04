package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pairledger/internal/cli"
	"pairledger/internal/config"
	applog "pairledger/internal/log"
)

var (
	cfgFile string
	version = "dev"

	// appConfig is resolved once per invocation by initConfig.
	appConfig *config.Config
	appLogger = slog.Default()

	rootCmd = &cobra.Command{
		Use:   "pairledger",
		Short: "Income-proportional ledger for two-person households",
		Long: `pairledger keeps a shared household ledger for two people. Shared expenses
are split by each member's income on the expense date, and the balance shows
who owes whom after settlements.`,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/pairledger/config.yaml)")
	rootCmd.PersistentFlags().String("user", "", "user id acting on the household")
	rootCmd.PersistentFlags().String("db", "", "SQLite database path (overrides SQLITE_DB_PATH)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (console, json)")

	// Bind flags to viper
	_ = viper.BindPFlag("user", rootCmd.PersistentFlags().Lookup("user"))
	_ = viper.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))

	// Add commands
	rootCmd.AddCommand(householdCmd())
	rootCmd.AddCommand(incomeCmd())
	rootCmd.AddCommand(categoryCmd())
	rootCmd.AddCommand(expenseCmd())
	rootCmd.AddCommand(settleCmd())
	rootCmd.AddCommand(settlementCmd())
	rootCmd.AddCommand(recurringCmd())
	rootCmd.AddCommand(balanceCmd())
	rootCmd.AddCommand(ratioCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(materializeCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(eventsCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	ctx, cancel := cli.SignalContext(appLogger)

	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	cli.LoadEnvFile()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}

		// Search for config in standard locations
		viper.AddConfigPath(fmt.Sprintf("%s/.config/pairledger", home))
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("PAIRLEDGER")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := config.Load()
	overlay(cfg)
	appLogger = cli.SetupLogger(cfg, applog.ComponentCLI)
	if err := cfg.Validate(); err != nil {
		return err
	}
	appConfig = cfg
	return nil
}

// overlay applies flag, PAIRLEDGER_* and config file values on top of the
// environment configuration.
func overlay(cfg *config.Config) {
	set := func(dst *string, key string) {
		if v := viper.GetString(key); v != "" {
			*dst = v
		}
	}
	set(&cfg.SQLiteDBPath, "db")
	set(&cfg.LogLevel, "logging.level")
	set(&cfg.LogFormat, "logging.format")
	set(&cfg.AMQPURL, "amqp.url")
	set(&cfg.AMQPExchange, "amqp.exchange")
	set(&cfg.AMQPQueue, "amqp.queue")
	set(&cfg.GoogleSpreadsheetID, "sheets.spreadsheet_id")
	set(&cfg.GoogleSheetName, "sheets.sheet_name")
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pairledger %s\n", version)
		},
	}
}
