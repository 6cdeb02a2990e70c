package delivery

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"os"
	"time"

	"github.com/jhillyerd/enmime"
)

const smtpTimeout = 30 * time.Second

// EmailProvider sends EPUB files as email attachments over SMTP, typically
// to a Kindle send-to address.
type EmailProvider struct {
	host     string
	port     int
	username string
	password string
	from     string
	to       string
	timeout  time.Duration
}

func NewEmailProvider(host string, port int, username, password, from, to string) *EmailProvider {
	return &EmailProvider{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		to:       to,
		timeout:  smtpTimeout,
	}
}

func (p *EmailProvider) Type() string { return "email" }

func (p *EmailProvider) Deliver(ctx context.Context, filePath string, meta Metadata) error {
	fileBytes, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read epub file %s: %w", filePath, err)
	}

	subject := fmt.Sprintf("%s (chapters %d-%d)", meta.BookName, meta.From, meta.To)
	root, err := enmime.Builder().
		From("Wuxia2Kindle", p.from).
		To("Kindle", p.to).
		Subject(subject).
		Text([]byte("Your book is attached.")).
		AddAttachment(fileBytes, epubContentType, epubFileName).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build email: %w", err)
	}

	var msg bytes.Buffer
	if err := root.Encode(&msg); err != nil {
		return fmt.Errorf("failed to encode email: %w", err)
	}

	if err := p.send(ctx, msg.Bytes()); err != nil {
		return fmt.Errorf("SMTP send to %s failed: %w", p.to, err)
	}
	return nil
}

// send runs the SMTP session with an absolute deadline on the connection.
// smtp.SendMail has no timeout hook, so the session is driven manually; a
// hung server fails this delivery instead of stalling the batch and every
// tick after it.
func (p *EmailProvider) send(ctx context.Context, msg []byte) error {
	deadline := time.Now().Add(p.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	addr := fmt.Sprintf("%s:%d", p.host, p.port)
	dialer := &net.Dialer{Timeout: p.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	client, err := smtp.NewClient(conn, p.host)
	if err != nil {
		return err
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: p.host}); err != nil {
			return err
		}
	}
	if p.username != "" {
		if ok, _ := client.Extension("AUTH"); ok {
			auth := smtp.PlainAuth("", p.username, p.password, p.host)
			if err := client.Auth(auth); err != nil {
				return err
			}
		}
	}

	if err := client.Mail(p.from); err != nil {
		return err
	}
	if err := client.Rcpt(p.to); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}
