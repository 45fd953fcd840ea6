// Package mailer is the email side of notification fan-out. Delivery is
// best-effort: callers log failures and never let them affect the request
// that triggered the send.
package mailer

import (
	"fmt"
	"math"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

// Mailer sends the four notification mail kinds. The zero configuration
// case is a no-op implementation so development environments work without
// an SMTP server.
type Mailer interface {
	SendGroupInvitation(to, groupName, code string) error
	SendGoalShared(to, goalTitle, groupName, code string) error
	SendGoalAchievement(to, goalTitle, groupName string) error
	SendGoalProgress(to, goalTitle, groupName string, progress, target float64, unit string) error
}

type Config struct {
	Host string
	Port string
	User string
	Pass string
	From string
}

// New returns an SMTP mailer, or a no-op one when no host is configured.
func New(cfg Config, log *zap.Logger) Mailer {
	if cfg.Host == "" {
		log.Info("smtp not configured, email notifications disabled")
		return noop{}
	}
	from := cfg.From
	if from == "" {
		from = cfg.User
	}
	return &smtpMailer{cfg: cfg, from: from}
}

type smtpMailer struct {
	cfg  Config
	from string
}

func (m *smtpMailer) send(to, subject, html string) error {
	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=\"UTF-8\"",
		"",
		html,
	}, "\r\n")

	addr := m.cfg.Host + ":" + m.cfg.Port
	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)
	}
	return smtp.SendMail(addr, auth, m.from, []string{to}, []byte(msg))
}

func (m *smtpMailer) SendGroupInvitation(to, groupName, code string) error {
	subject := fmt.Sprintf("Invitation to join %s on CoreX", groupName)
	html := fmt.Sprintf(`<h1>You've been invited to join %s!</h1>
<p>You've been invited to join a fitness group on CoreX. Join the group to track goals and progress together!</p>
<p>Your invitation code is: <strong>%s</strong></p>
<p>To join, simply enter this code in the "Join Group" section of the app.</p>
<p>This invitation will expire in 7 days.</p>`, groupName, code)
	return m.send(to, subject, html)
}

func (m *smtpMailer) SendGoalShared(to, goalTitle, groupName, code string) error {
	subject := fmt.Sprintf("New Goal Shared in %s", groupName)
	html := fmt.Sprintf(`<h1>A new goal has been shared with you!</h1>
<p>A member of %s has shared their goal "%s" with the group.</p>
<p>To add this goal to your profile, use the code: <strong>%s</strong></p>
<p>You can enter this code in the "Add Goal" section of your dashboard.</p>
<p>This code will expire in 7 days.</p>`, groupName, goalTitle, code)
	return m.send(to, subject, html)
}

func (m *smtpMailer) SendGoalAchievement(to, goalTitle, groupName string) error {
	subject := fmt.Sprintf("Goal Achievement in %s!", groupName)
	html := fmt.Sprintf(`<h1>Congratulations!</h1>
<p>A member of %s has achieved their goal "%s"!</p>
<p>Keep up the great work and continue supporting each other!</p>`, groupName, goalTitle)
	return m.send(to, subject, html)
}

func (m *smtpMailer) SendGoalProgress(to, goalTitle, groupName string, progress, target float64, unit string) error {
	percentage := int(math.Round(progress / target * 100))
	subject := fmt.Sprintf("Goal Progress Update in %s", groupName)
	html := fmt.Sprintf(`<h1>Goal Progress Update</h1>
<p>There's been progress on the goal "%s" in %s!</p>
<p>Current progress: %g %s (%d%% of target %g %s)</p>
<p>Keep going! You're doing great!</p>`, goalTitle, groupName, progress, unit, percentage, target, unit)
	return m.send(to, subject, html)
}

type noop struct{}

func (noop) SendGroupInvitation(to, groupName, code string) error { return nil }

func (noop) SendGoalShared(to, goalTitle, groupName, code string) error { return nil }

func (noop) SendGoalAchievement(to, goalTitle, groupName string) error { return nil }

func (noop) SendGoalProgress(to, goalTitle, groupName string, progress, target float64, unit string) error {
	return nil
}
