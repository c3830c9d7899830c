package sentinel

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlennartz/mail-sentinel/internal/automate"
)

type fakeSource struct {
	messages []Message
	marked   []uint32
}

func (f *fakeSource) FetchUnseen() ([]Message, error) {
	return f.messages, nil
}

func (f *fakeSource) MarkHandled(uids []uint32) error {
	f.marked = append(f.marked, uids...)
	return nil
}

type codeNote struct {
	code, subject, sender string
}

type confirmationNote struct {
	identity  string
	succeeded bool
	reason    string
}

type fakeNotifier struct {
	codes         []codeNote
	confirmations []confirmationNote
	errors        []string
	failSends     bool
}

func (f *fakeNotifier) NotifyCode(_ context.Context, code, subject, sender string) error {
	if f.failSends {
		return errors.New("delivery failed")
	}
	f.codes = append(f.codes, codeNote{code, subject, sender})
	return nil
}

func (f *fakeNotifier) NotifyConfirmation(_ context.Context, identity string, succeeded bool, reason string) error {
	if f.failSends {
		return errors.New("delivery failed")
	}
	f.confirmations = append(f.confirmations, confirmationNote{identity, succeeded, reason})
	return nil
}

func (f *fakeNotifier) NotifyError(_ context.Context, message, detail string) {
	f.errors = append(f.errors, message+": "+detail)
}

type fakeFetcher struct {
	pages map[string]string
}

func (f *fakeFetcher) FetchCode(_ context.Context, link string) string {
	return f.pages[link]
}

type fakeConfirmer struct {
	outcome automate.Outcome
	links   []string
}

func (f *fakeConfirmer) Confirm(_ context.Context, link string, _ automate.Credentials) automate.Outcome {
	f.links = append(f.links, link)
	return f.outcome
}

func newProcessor(source *fakeSource, notifier *fakeNotifier, fetcher *fakeFetcher, confirmer *fakeConfirmer) *Processor {
	if fetcher == nil {
		fetcher = &fakeFetcher{}
	}
	if confirmer == nil {
		confirmer = &fakeConfirmer{}
	}
	return &Processor{
		Source:    source,
		Notifier:  notifier,
		Fetcher:   fetcher,
		Confirmer: confirmer,
	}
}

func TestRun_CodeInPlainBody(t *testing.T) {
	source := &fakeSource{messages: []Message{{
		UID:      7,
		Subject:  "Your sign-in code",
		Sender:   "info@account.netflix.com",
		TextBody: "Your verification code is 551234, valid for 10 minutes",
	}}}
	notifier := &fakeNotifier{}

	err := newProcessor(source, notifier, nil, nil).Run(context.Background())

	require.NoError(t, err)
	require.Len(t, notifier.codes, 1)
	assert.Equal(t, codeNote{"551234", "Your sign-in code", "info@account.netflix.com"}, notifier.codes[0])
	assert.Equal(t, []uint32{7}, source.marked)
}

func TestRun_CodeViaLink(t *testing.T) {
	link := "https://example.com/verify/abc"
	source := &fakeSource{messages: []Message{{
		UID:      3,
		Subject:  "Get your code",
		Sender:   "noreply@example.com",
		HTMLBody: `<a href="` + link + `">Get code</a> <a href="https://example.com/help">Help</a>`,
	}}}
	notifier := &fakeNotifier{}
	fetcher := &fakeFetcher{pages: map[string]string{link: "662211"}}

	err := newProcessor(source, notifier, fetcher, nil).Run(context.Background())

	require.NoError(t, err)
	require.Len(t, notifier.codes, 1)
	assert.Equal(t, "662211", notifier.codes[0].code)
	assert.Equal(t, []uint32{3}, source.marked)
}

func TestRun_HouseholdConfirmation(t *testing.T) {
	viper.Set("automation.email", "user@example.com")
	viper.Set("automation.password", "secret")
	defer viper.Reset()

	source := &fakeSource{messages: []Message{{
		UID:      11,
		Subject:  "Netflix-Haushalt bestätigen",
		Sender:   "info@account.netflix.com",
		HTMLBody: `<a href="https://www.netflix.com/account/update-primary-location?nftoken=abc">Jetzt</a>`,
	}}}
	notifier := &fakeNotifier{}
	confirmer := &fakeConfirmer{outcome: automate.Outcome{Succeeded: true}}

	err := newProcessor(source, notifier, nil, confirmer).Run(context.Background())

	require.NoError(t, err)
	require.Len(t, confirmer.links, 1)
	assert.Equal(t, "https://www.netflix.com/account/update-primary-location?nftoken=abc", confirmer.links[0])
	require.Len(t, notifier.confirmations, 1)
	assert.Equal(t, confirmationNote{"user@example.com", true, ""}, notifier.confirmations[0])
	assert.Equal(t, []uint32{11}, source.marked)
}

func TestRun_HouseholdFailureStillNotified(t *testing.T) {
	viper.Set("automation.email", "user@example.com")
	viper.Set("automation.password", "secret")
	defer viper.Reset()

	source := &fakeSource{messages: []Message{{
		UID:      12,
		Subject:  "Confirm your household",
		HTMLBody: `<a href="https://example.com/household/x">Go</a>`,
	}}}
	notifier := &fakeNotifier{}
	confirmer := &fakeConfirmer{outcome: automate.Outcome{Reason: "confirmation control not found"}}

	err := newProcessor(source, notifier, nil, confirmer).Run(context.Background())

	require.NoError(t, err)
	require.Len(t, notifier.confirmations, 1)
	assert.False(t, notifier.confirmations[0].succeeded)
	assert.Equal(t, "confirmation control not found", notifier.confirmations[0].reason)
	assert.Equal(t, []uint32{12}, source.marked)
}

func TestRun_HouseholdWithoutCredentialsSurfacesLink(t *testing.T) {
	source := &fakeSource{messages: []Message{{
		UID:      4,
		Subject:  "Update your primary location",
		HTMLBody: `<a href="https://www.netflix.com/account/update-primary-location?t=9">Go</a>`,
	}}}
	notifier := &fakeNotifier{}
	confirmer := &fakeConfirmer{}

	err := newProcessor(source, notifier, nil, confirmer).Run(context.Background())

	require.NoError(t, err)
	assert.Empty(t, confirmer.links)
	require.Len(t, notifier.errors, 1)
	assert.Contains(t, notifier.errors[0], "update-primary-location")
	assert.Equal(t, []uint32{4}, source.marked)
}

func TestRun_NothingFoundLeavesMessageUnhandled(t *testing.T) {
	source := &fakeSource{messages: []Message{{
		UID:      9,
		Subject:  "Newsletter",
		TextBody: "Nothing interesting here",
		HTMLBody: `<a href="https://example.com/unsubscribe">Unsubscribe</a>`,
	}}}
	notifier := &fakeNotifier{}

	err := newProcessor(source, notifier, nil, nil).Run(context.Background())

	require.NoError(t, err)
	assert.Empty(t, notifier.codes)
	assert.Empty(t, notifier.confirmations)
	assert.Empty(t, source.marked)
}

func TestRun_NotificationFailureLeavesMessageUnhandled(t *testing.T) {
	source := &fakeSource{messages: []Message{{
		UID:      5,
		Subject:  "Your code",
		TextBody: "Code 123456",
	}}}
	notifier := &fakeNotifier{failSends: true}

	err := newProcessor(source, notifier, nil, nil).Run(context.Background())

	require.NoError(t, err)
	assert.Empty(t, source.marked)
}

func TestRun_OneMessageFailureDoesNotAbortBatch(t *testing.T) {
	source := &fakeSource{messages: []Message{
		{UID: 1, Subject: "Junk", TextBody: "no code at all"},
		{UID: 2, Subject: "Code mail", TextBody: "Your code is 987654"},
	}}
	notifier := &fakeNotifier{}

	err := newProcessor(source, notifier, nil, nil).Run(context.Background())

	require.NoError(t, err)
	require.Len(t, notifier.codes, 1)
	assert.Equal(t, "987654", notifier.codes[0].code)
	assert.Equal(t, []uint32{2}, source.marked)
}

func TestRun_CascadeStopsAtFirstSuccess(t *testing.T) {
	source := &fakeSource{messages: []Message{{
		UID:      6,
		Subject:  "Code",
		TextBody: "Your code is 111111",
		HTMLBody: `<a href="https://example.com/verify/abc">Get code</a>`,
	}}}
	notifier := &fakeNotifier{}
	fetcher := &fakeFetcher{pages: map[string]string{"https://example.com/verify/abc": "222222"}}

	err := newProcessor(source, notifier, fetcher, nil).Run(context.Background())

	require.NoError(t, err)
	require.Len(t, notifier.codes, 1)
	// Direct body match wins; the link is never fetched.
	assert.Equal(t, "111111", notifier.codes[0].code)
}
