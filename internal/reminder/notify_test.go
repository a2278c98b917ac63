package reminder

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type fakeSender struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeSender) DialAndSend(m ...*gomail.Message) error {
	f.sent = append(f.sent, m...)
	return f.err
}

func newTestEmailNotifier(cfg EmailConfig) (*EmailNotifier, *fakeSender) {
	sender := &fakeSender{}
	n := NewEmailNotifier(cfg, testLogger())
	n.sender = sender
	return n, sender
}

var smtpConfig = EmailConfig{Host: "smtp.example.com", Port: 587, Username: "u", Password: "p", From: "mylist@example.com"}

func TestEmailNotifier_SendsToOwner(t *testing.T) {
	n, sender := newTestEmailNotifier(smtpConfig)
	r := Reminder{Owner: "lina@example.com", TaskID: "1", Title: "Buy milk", DueAt: at("09:00:00")}

	require.NoError(t, n.Notify(context.Background(), newNotification(r)))

	require.Len(t, sender.sent, 1)
	m := sender.sent[0]
	assert.Equal(t, []string{"lina@example.com"}, m.GetHeader("To"))
	assert.Equal(t, []string{"mylist@example.com"}, m.GetHeader("From"))
	assert.Equal(t, []string{"Task Reminder"}, m.GetHeader("Subject"))

	var body strings.Builder
	_, err := m.WriteTo(&body)
	require.NoError(t, err)
	assert.Contains(t, body.String(), "Buy milk")
}

func TestEmailNotifier_SkipsGuest(t *testing.T) {
	n, sender := newTestEmailNotifier(smtpConfig)

	err := n.Notify(context.Background(), newNotification(Reminder{Title: "x"}))

	assert.NoError(t, err)
	assert.Empty(t, sender.sent)
}

func TestEmailNotifier_SkipsWithoutConfig(t *testing.T) {
	n, sender := newTestEmailNotifier(EmailConfig{})

	err := n.Notify(context.Background(), newNotification(Reminder{Owner: "a@b.c", Title: "x"}))

	assert.NoError(t, err)
	assert.Empty(t, sender.sent)
}

func TestEmailNotifier_WrapsSendError(t *testing.T) {
	n, sender := newTestEmailNotifier(smtpConfig)
	boom := errors.New("connection refused")
	sender.err = boom

	err := n.Notify(context.Background(), newNotification(Reminder{Owner: "a@b.c", Title: "x", DueAt: time.Now()}))

	assert.ErrorIs(t, err, boom)
}

func TestMultiNotifier_DeliversToAllAndJoinsErrors(t *testing.T) {
	ok := &fakeNotifier{}
	failing := &fakeNotifier{err: errors.New("down")}
	multi := MultiNotifier{failing, ok, NewLogNotifier(testLogger())}

	err := multi.Notify(context.Background(), newNotification(Reminder{Title: "x"}))

	assert.ErrorIs(t, err, failing.err)
	assert.Equal(t, 1, ok.count())
	assert.Equal(t, 1, failing.count())
}

func TestConfigPermission(t *testing.T) {
	denied := NewConfigPermission(false)
	assert.False(t, denied.Request())
	assert.False(t, denied.Granted())

	allowed := NewConfigPermission(true)
	assert.False(t, allowed.Granted())
	assert.True(t, allowed.Request())
	assert.True(t, allowed.Granted())
}
