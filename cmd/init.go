package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Interactively generate a config.yaml file",
	RunE: func(_ *cobra.Command, _ []string) error {
		configFile := "config.yaml"

		if _, err := os.Stat(configFile); err == nil {
			fmt.Printf("config.yaml already exists, not overwriting.\n")
			return nil
		}

		reader := bufio.NewReader(os.Stdin)

		fmt.Println("Let's set up your config.yaml!")

		fmt.Println("\n--- IMAP ---")
		imapServer := prompt(reader, "IMAP server (e.g. imap.gmail.com): ")
		imapPort := prompt(reader, "IMAP port (e.g. 993): ")
		imapUser := prompt(reader, "IMAP username: ")
		imapPass := prompt(reader, "IMAP password: ")

		fmt.Println("\n--- NOTIFICATION ---")
		channel := prompt(reader, "Notification channel (telegram/mail): ")

		var notifySection string
		if channel == "mail" {
			smtpServer := prompt(reader, "SMTP server: ")
			smtpPort := prompt(reader, "SMTP port (e.g. 465): ")
			smtpSecurity := prompt(reader, "SMTP security (ssl/starttls): ")
			smtpUser := prompt(reader, "SMTP username: ")
			smtpPass := prompt(reader, "SMTP password: ")
			recipient := prompt(reader, "Notification recipient address: ")
			notifySection = fmt.Sprintf(`notify:
  channel: mail
  smtp:
    server: %s
    port: %s
    security: %s
    username: %s
    password: %s
    recipient: %s`, smtpServer, smtpPort, smtpSecurity, smtpUser, smtpPass, recipient)
		} else {
			token := prompt(reader, "Telegram bot token: ")
			chatID := prompt(reader, "Telegram chat id: ")
			notifySection = fmt.Sprintf(`notify:
  channel: telegram
  telegram:
    token: %s
    chat_id: %s`, token, chatID)
		}

		fmt.Println("\n--- AUTOMATION (optional, leave empty to skip) ---")
		autoEmail := prompt(reader, "Account email for household confirmations: ")
		autoPass := ""
		if autoEmail != "" {
			autoPass = prompt(reader, "Account password: ")
		}

		content := fmt.Sprintf(`imap:
  server: %s
  port: %s
  username: %s
  password: %s

%s

automation:
  email: %s
  password: %s
`, imapServer, imapPort, imapUser, imapPass, notifySection, autoEmail, autoPass)

		if err := os.WriteFile(configFile, []byte(content), 0o600); err != nil {
			return fmt.Errorf("failed to write config.yaml: %w", err)
		}

		fmt.Println("\n✅ config.yaml created successfully.")
		return nil
	},
}

func prompt(r *bufio.Reader, label string) string {
	fmt.Print(label)
	text, _ := r.ReadString('\n')
	return strings.TrimSpace(text)
}
