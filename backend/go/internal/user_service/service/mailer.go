package service

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/aimankahim/mcqsbank/backend/go/internal/config"
	"github.com/aimankahim/mcqsbank/backend/go/pkg/logger"
)

// Mailer 发送一封纯文本邮件。
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// NewMailer 根据配置返回 SMTP 发信器，未启用时返回只记录日志的发信器。
func NewMailer(cfg config.MailConfig, log *logger.Logger) Mailer {
	if !cfg.Enabled || cfg.Host == "" {
		return &LogMailer{log: log}
	}
	return &SMTPMailer{cfg: cfg}
}

// SMTPMailer 通过 SMTP 发送邮件。
type SMTPMailer struct {
	cfg config.MailConfig
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	msg := strings.Join([]string{
		"From: " + m.cfg.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"",
		body,
	}, "\r\n")
	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("发送邮件到 %s 失败: %w", to, err)
	}
	return nil
}

// LogMailer 只把邮件写入日志，用于开发环境。
type LogMailer struct {
	log *logger.Logger
}

func (m *LogMailer) Send(ctx context.Context, to, subject, body string) error {
	m.log.WithPayload(map[string]interface{}{"to": to, "subject": subject}).Info("邮件未启用，跳过发送")
	return nil
}
