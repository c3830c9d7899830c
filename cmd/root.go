package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "mail-sentinel",
	Short: "Watch an inbox, relay verification codes and confirm household checks",
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		// Setup logger after flag parsing
		setupLogger()
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable verbose (info/debug) logging")
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(initCmd)
}

func Execute() error {
	return rootCmd.Execute()
}

func initConfig() {
	// Secrets may live in a .env next to the config; missing file is fine.
	if err := godotenv.Load(); err == nil {
		slog.Debug("Loaded environment from .env")
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	err := viper.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			slog.Warn("No config.yaml found in current directory.",
				"hint", "Run `mail-sentinel init` to create one interactively.")
		} else {
			slog.Error("Failed to read config", "error", err)
		}
	} else {
		validateConfig()
	}
}

func validateConfig() {
	if !viper.InConfig("imap") {
		slog.Warn("No imap section configured - the inbox cannot be read")
	}

	switch viper.GetString("notify.channel") {
	case "telegram":
		if viper.GetString("notify.telegram.token") == "" {
			slog.Warn("Telegram channel selected but notify.telegram.token is empty")
		}
	case "mail":
		if viper.GetString("notify.smtp.server") == "" {
			slog.Warn("Mail channel selected but notify.smtp.server is empty")
		}
	case "":
		slog.Warn("No notify.channel configured - outcomes cannot be delivered")
	}

	if viper.GetString("automation.email") == "" {
		slog.Warn("No automation credentials configured",
			"hint", "Household confirmations will be surfaced for manual action")
	}
}

func setupLogger() {
	var level slog.Level
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	} else {
		level = slog.LevelError
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	slog.SetDefault(slog.New(handler))
}
