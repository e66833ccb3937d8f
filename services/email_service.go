package services

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"maternal-triage-backend/config"
	"maternal-triage-backend/models"
)

type mailSender func(ctx context.Context, addr string, auth smtp.Auth, from string, to []string, msg []byte) error

// EmailService sends alert emails over SMTP
type EmailService struct {
	host     string
	port     int
	username string
	password string
	from     string
	fromName string
	logger   *zap.Logger
	send     mailSender
}

func NewEmailService(cfg config.EmailConfig, logger *zap.Logger) *EmailService {
	from := cfg.FromEmail
	if from == "" {
		from = cfg.Username
	}
	return &EmailService{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.Username,
		password: cfg.Password,
		from:     from,
		fromName: cfg.FromName,
		logger:   logger,
		send:     sendMailContext,
	}
}

// Configured reports whether SMTP credentials are present
func (es *EmailService) Configured() bool {
	return es.username != "" && es.password != "" && es.host != ""
}

// Send implements Notifier for the email channel
func (es *EmailService) Send(ctx context.Context, req models.NotificationRequest) error {
	if !es.Configured() {
		return fmt.Errorf("email to %s: %w", req.Recipient, models.ErrNotifierNotConfigured)
	}
	if req.Recipient == "" {
		return fmt.Errorf("email: empty recipient")
	}

	msg := es.buildMessage(req)
	addr := net.JoinHostPort(es.host, strconv.Itoa(es.port))
	auth := smtp.PlainAuth("", es.username, es.password, es.host)

	if err := es.send(ctx, addr, auth, es.from, []string{req.Recipient}, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	es.logger.Info("alert email sent", zap.String("recipient", req.Recipient))
	return nil
}

func (es *EmailService) buildMessage(req models.NotificationRequest) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s <%s>\r\n", es.fromName, es.from)
	fmt.Fprintf(&buf, "To: %s\r\n", req.Recipient)
	fmt.Fprintf(&buf, "Subject: %s\r\n", sanitizeHeader(req.Subject))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")

	buf.WriteString(`<div style="font-family: Arial, sans-serif; padding: 20px;">`)
	fmt.Fprintf(&buf, "<h2>%s</h2>", html.EscapeString(req.Subject))
	for _, line := range strings.Split(req.Message, "\n") {
		fmt.Fprintf(&buf, "<p>%s</p>", html.EscapeString(line))
	}
	buf.WriteString(`<p style="font-size: 12px; color: #888;">Sent by the LifeGuard maternal monitoring service</p></div>`)
	return buf.Bytes()
}

func sanitizeHeader(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}

// sendMailContext is smtp.SendMail with the dial bound to ctx
func sendMailContext(ctx context.Context, addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	host, _, _ := net.SplitHostPort(addr)
	c, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return err
		}
	}
	if auth != nil {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(auth); err != nil {
				return err
			}
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}
