// Package sentinel watches the inbox and routes each unseen message to
// the code-extraction path or the household-confirmation path.
package sentinel

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message"
	"github.com/spf13/viper"
)

// Message is one parsed inbound mail, owned by the orchestrator for the
// duration of a single processing cycle.
type Message struct {
	UID      uint32
	Subject  string
	Sender   string
	TextBody string
	HTMLBody string
}

// ImapSource supplies unseen messages from one IMAP session and accepts
// a batched mark-as-handled update.
type ImapSource struct {
	client *client.Client
}

// NewImapSource connects to the configured IMAP server, logs in and
// selects the INBOX. Missing imap.* config values fail here with a
// descriptive error.
func NewImapSource() (*ImapSource, error) {
	server := viper.GetString("imap.server")
	if server == "" {
		return nil, fmt.Errorf("imap.server is not configured")
	}
	username := viper.GetString("imap.username")
	password := viper.GetString("imap.password")
	if username == "" || password == "" {
		return nil, fmt.Errorf("imap.username / imap.password are not configured")
	}
	port := viper.GetInt("imap.port")
	if port == 0 {
		port = 993
	}

	address := fmt.Sprintf("%s:%d", server, port)

	tlsConfig := &tls.Config{
		ServerName: server, // ensures correct certificate validation
	}

	c, err := client.DialTLS(address, tlsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to IMAP server: %w", err)
	}

	if err := c.Login(username, password); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("failed to login: %w", err)
	}

	// Read-write select so the \Seen flag can be stored later.
	if _, err := c.Select("INBOX", false); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("failed to select INBOX: %w", err)
	}

	return &ImapSource{client: c}, nil
}

// Close logs out of the IMAP session.
func (s *ImapSource) Close() {
	_ = s.client.Logout()
	slog.Info("Logged out from IMAP server")
}

// FetchUnseen returns all unseen messages, optionally restricted to the
// filter.from sender allow-list, with their bodies parsed.
func (s *ImapSource) FetchUnseen() ([]Message, error) {
	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}

	uids, err := s.client.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	if len(uids) == 0 {
		slog.Info("No unseen messages found")
		return nil, nil
	}

	slog.Debug("Found unseen messages", "count", len(uids))

	// First pass: envelopes only, to apply the sender filter cheaply.
	matching, err := s.filterBySender(uids)
	if err != nil {
		return nil, err
	}
	if len(matching) == 0 {
		slog.Info("No messages match the sender filter", "unseen_total", len(uids))
		return nil, nil
	}

	// Second pass: full bodies for the matching set.
	seqset := new(imap.SeqSet)
	seqset.AddNum(matching...)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{
		imap.FetchEnvelope,
		imap.FetchUid,
		section.FetchItem(),
	}

	messages := make(chan *imap.Message, len(matching))
	if err := s.client.Fetch(seqset, items, messages); err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	results := make([]Message, 0, len(matching))

	for msg := range messages {
		body := msg.GetBody(section)
		if body == nil {
			slog.Warn("No body found in message", "uid", msg.Uid)
			continue
		}

		entity, err := message.Read(body)
		if err != nil {
			slog.Warn("Failed to parse MIME message", "uid", msg.Uid, "error", err)
			continue
		}

		text, html := extractBodies(entity)

		results = append(results, Message{
			UID:      msg.Uid,
			Subject:  envelopeSubject(msg.Envelope),
			Sender:   envelopeSender(msg.Envelope),
			TextBody: text,
			HTMLBody: html,
		})
	}

	slog.Info("Fetched messages", "count", len(results))

	return results, nil
}

// MarkHandled stores the \Seen flag for all given UIDs in one silent
// batched update, flushed once per processing cycle.
func (s *ImapSource) MarkHandled(uids []uint32) error {
	if len(uids) == 0 {
		return nil
	}

	slog.Debug("Marking messages as handled", "uids", uids)

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	item := imap.FormatFlagsOp(imap.AddFlags, true) // true = silent update
	flags := []any{imap.SeenFlag}

	if err := s.client.UidStore(seqset, item, flags, nil); err != nil {
		return fmt.Errorf("failed to mark %d messages as \\Seen: %w", len(uids), err)
	}

	slog.Info("Marked messages as handled", "count", len(uids))
	return nil
}

// filterBySender reduces the unseen UID set to senders on the
// filter.from allow-list. An empty list lets everything through.
func (s *ImapSource) filterBySender(uids []uint32) ([]uint32, error) {
	filters := viper.GetStringSlice("filter.from")
	if len(filters) == 0 {
		return uids, nil
	}

	normalized := make([]string, len(filters))
	for i, f := range filters {
		normalized[i] = strings.ToLower(f)
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	envelopes := make(chan *imap.Message, len(uids))
	if err := s.client.Fetch(seqset, []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid}, envelopes); err != nil {
		return nil, fmt.Errorf("failed to fetch envelopes: %w", err)
	}

	matching := make([]uint32, 0, len(uids))
	for msg := range envelopes {
		sender := strings.ToLower(envelopeSender(msg.Envelope))
		for _, f := range normalized {
			if sender == f {
				matching = append(matching, msg.Uid)
				break
			}
		}
	}

	return matching, nil
}

func envelopeSender(envelope *imap.Envelope) string {
	if envelope == nil || len(envelope.From) == 0 || envelope.From[0] == nil {
		return "unknown"
	}
	return envelope.From[0].Address()
}

func envelopeSubject(envelope *imap.Envelope) string {
	if envelope == nil {
		return ""
	}
	return envelope.Subject
}
