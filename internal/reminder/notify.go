package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gopkg.in/gomail.v2"
)

// NotificationTitle is the heading of every system notification.
const NotificationTitle = "Task Reminder"

// Notification is what a Notifier delivers.
type Notification struct {
	Title string
	Body  string
	// To is the signed-in user's email, empty for the guest.
	To       string
	Reminder Reminder
}

func newNotification(r Reminder) Notification {
	return Notification{
		Title:    NotificationTitle,
		Body:     r.Title,
		To:       string(r.Owner),
		Reminder: r,
	}
}

// Notifier delivers system notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// ---------------------------------------------------------------------------
// log
// ---------------------------------------------------------------------------

// LogNotifier writes notifications to the application log.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, note Notification) error {
	n.logger.Info(note.Title,
		slog.String("body", note.Body),
		slog.String("taskID", note.Reminder.TaskID),
		slog.Time("dueAt", note.Reminder.DueAt),
	)
	return nil
}

// ---------------------------------------------------------------------------
// email
// ---------------------------------------------------------------------------

// EmailConfig holds the SMTP settings of EmailNotifier.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Enabled reports whether enough is set to attempt delivery.
func (c EmailConfig) Enabled() bool {
	return c.Host != "" && c.From != ""
}

type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailNotifier mails the reminder to the signed-in user. Guest reminders
// have no recipient and are skipped.
type EmailNotifier struct {
	cfg    EmailConfig
	sender mailSender
	logger *slog.Logger
}

func NewEmailNotifier(cfg EmailConfig, logger *slog.Logger) *EmailNotifier {
	return &EmailNotifier{
		cfg:    cfg,
		sender: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		logger: logger,
	}
}

func (n *EmailNotifier) Notify(_ context.Context, note Notification) error {
	if !n.cfg.Enabled() {
		n.logger.Warn("email config missing, skip notification")
		return nil
	}
	if strings.TrimSpace(note.To) == "" {
		n.logger.Debug("guest reminder has no recipient, skip email", slog.String("taskID", note.Reminder.TaskID))
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.From)
	m.SetHeader("To", note.To)
	m.SetHeader("Subject", note.Title)
	m.SetBody("text/plain", fmt.Sprintf("%s\n\nDue %s", note.Body, note.Reminder.DueAt.Format("2006-01-02 15:04")))

	if err := n.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("reminder: send email: %w", err)
	}

	n.logger.Info("reminder email sent", slog.String("to", note.To), slog.String("taskID", note.Reminder.TaskID))
	return nil
}

// ---------------------------------------------------------------------------
// fan-out
// ---------------------------------------------------------------------------

// MultiNotifier delivers to every notifier in order and joins the errors.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, note Notification) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, note); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
