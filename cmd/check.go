package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mlennartz/mail-sentinel/internal/automate"
	"github.com/mlennartz/mail-sentinel/internal/extract"
	"github.com/mlennartz/mail-sentinel/internal/notify"
	"github.com/mlennartz/mail-sentinel/internal/sentinel"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Process all unseen messages once and exit",
	RunE: func(_ *cobra.Command, _ []string) error {
		if !viper.InConfig("imap") {
			return fmt.Errorf(`configuration missing or incomplete.

Create a config.yaml file by running:
  mail-sentinel init

The configuration file should be in your current directory and contain:
- IMAP server settings (to read the inbox)
- Notification channel settings (telegram or mail)
- Optional automation credentials (for household confirmations)`)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		notifier, err := notify.New()
		if err != nil {
			return err
		}

		source, err := sentinel.NewImapSource()
		if err != nil {
			return err
		}
		defer source.Close()

		processor := &sentinel.Processor{
			Source:    source,
			Notifier:  notifier,
			Fetcher:   extract.NewFetcher(),
			Confirmer: automate.NewChrome(),
		}

		return processor.Run(ctx)
	},
}
