package Alerts

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"sort"
	"strings"

	"gorm.io/gorm"

	"Gmao/Models"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	TLS      bool
}

// EmailNotifier mails notifications addressed to a user. Site-wide
// notifications (no UserID) are left to the other sinks.
type EmailNotifier struct {
	DB     *gorm.DB
	Config SMTPConfig
	// Send delivers one message; NewEmailNotifier sets it to SMTP.
	Send func(cfg SMTPConfig, to []string, msg []byte) error
}

func NewEmailNotifier(db *gorm.DB, cfg SMTPConfig) *EmailNotifier {
	return &EmailNotifier{DB: db, Config: cfg, Send: sendMail}
}

func (e *EmailNotifier) Notify(ctx context.Context, n Notification) error {
	if n.UserID == nil {
		return nil
	}
	var user Models.User
	if err := e.DB.WithContext(ctx).Select("id", "name", "email").First(&user, *n.UserID).Error; err != nil {
		return fmt.Errorf("looking up recipient %d: %w", *n.UserID, err)
	}
	if user.Email == "" {
		return nil
	}
	msg := buildEmail(e.Config, user.Email, n)
	if err := e.Send(e.Config, []string{user.Email}, msg); err != nil {
		return fmt.Errorf("mailing %s: %w", user.Email, err)
	}
	return nil
}

func buildEmail(cfg SMTPConfig, to string, n Notification) []byte {
	headers := map[string]string{
		"From":         fmt.Sprintf("%s <%s>", cfg.FromName, cfg.From),
		"To":           to,
		"Subject":      n.Title,
		"MIME-Version": "1.0",
		"Content-Type": "text/plain; charset=UTF-8",
	}
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\r\n", k, headers[k])
	}
	b.WriteString("\r\n")
	b.WriteString(n.Message)
	if n.Link != "" {
		b.WriteString("\r\n\r\n")
		b.WriteString(n.Link)
	}
	return []byte(b.String())
}

func sendMail(cfg SMTPConfig, to []string, msg []byte) error {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	if !cfg.TLS {
		return smtp.SendMail(addr, auth, cfg.From, to, msg)
	}

	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: cfg.Host})
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	client, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}
	if err := client.Mail(cfg.From); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("failed to add recipient %s: %w", rcpt, err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open data connection: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("failed to write email body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data connection: %w", err)
	}
	return client.Quit()
}
