package sources

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/angelonej/daily-planner-agent-sub000/internal/domain/briefing"
	"github.com/angelonej/daily-planner-agent-sub000/pkg/config"
	"github.com/google/uuid"
)

// ErrDigestNotConfigured is returned when no SMTP server or recipient is set
var ErrDigestNotConfigured = errors.New("digest: smtp not configured")

// Digest mails the morning briefing as plain text
type Digest struct {
	cfg  config.DigestConfig
	loc  *time.Location
	send func(ctx context.Context, from string, to []string, msg []byte) error
}

// NewDigest creates an SMTP digest sender
func NewDigest(cfg config.DigestConfig, loc *time.Location) *Digest {
	if loc == nil {
		loc = time.Local
	}
	d := &Digest{cfg: cfg, loc: loc}
	d.send = d.sendSMTP
	return d
}

// Send delivers the digest and returns its Message-ID
func (d *Digest) Send(ctx context.Context, snap *briefing.Snapshot) (string, error) {
	if d.cfg.SMTPHost == "" || d.cfg.To == "" || d.cfg.From == "" {
		return "", ErrDigestNotConfigured
	}

	domain := "localhost"
	if at := strings.LastIndex(d.cfg.From, "@"); at >= 0 {
		domain = strings.Trim(d.cfg.From[at+1:], "> ")
	}
	messageID := fmt.Sprintf("<%s@%s>", uuid.New().String(), domain)

	recipients := splitAddresses(d.cfg.To)
	msg := d.compose(snap, messageID, recipients)
	if err := d.send(ctx, d.cfg.From, recipients, msg); err != nil {
		return "", fmt.Errorf("digest: %w", err)
	}
	return messageID, nil
}

func (d *Digest) compose(snap *briefing.Snapshot, messageID string, to []string) []byte {
	now := snap.GeneratedAt
	if now.IsZero() {
		now = time.Now()
	}
	now = now.In(d.loc)

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", d.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: Your day: %s\r\n", now.Format("Monday, Jan 2"))
	fmt.Fprintf(&b, "Date: %s\r\n", now.Format(time.RFC1123Z))
	fmt.Fprintf(&b, "Message-ID: %s\r\n", messageID)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(DigestBody(snap), "\n", "\r\n"))
	return []byte(b.String())
}

// DigestBody renders the snapshot as a plain-text summary
func DigestBody(snap *briefing.Snapshot) string {
	var b strings.Builder

	if w := snap.Weather; w != nil {
		fmt.Fprintf(&b, "Weather: %s, %.0f°/%.0f°, %d%% chance of rain\n\n", w.Condition, w.TemperatureHigh, w.TemperatureLow, w.PrecipitationProbability)
	}

	b.WriteString("Schedule\n")
	if len(snap.Events) == 0 {
		b.WriteString("  Nothing on the calendar.\n")
	}
	for _, e := range snap.Events {
		line := fmt.Sprintf("  %s  %s", e.Start, e.Title)
		if e.Location != "" {
			line += " @ " + e.Location
		}
		b.WriteString(line + "\n")
	}

	if len(snap.ImportantEmails) > 0 {
		b.WriteString("\nImportant mail\n")
		for _, m := range snap.ImportantEmails {
			fmt.Fprintf(&b, "  %s: %s\n", m.From, m.Subject)
		}
	}

	if len(snap.Tasks) > 0 {
		b.WriteString("\nTasks\n")
		for _, t := range snap.Tasks {
			if t.Due != nil {
				fmt.Fprintf(&b, "  [ ] %s (due %s)\n", t.Title, t.Due.Format("Jan 2"))
				continue
			}
			fmt.Fprintf(&b, "  [ ] %s\n", t.Title)
		}
	}

	if len(snap.Packages) > 0 {
		b.WriteString("\nPackages\n")
		for _, p := range snap.Packages {
			fmt.Fprintf(&b, "  %s %s\n", p.Carrier, p.TrackingNumber)
		}
	}

	if len(snap.Suggestions) > 0 {
		b.WriteString("\nSuggestions\n")
		for _, s := range snap.Suggestions {
			fmt.Fprintf(&b, "  - %s\n", s)
		}
	}

	for topic, articles := range snap.News {
		if len(articles) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\nNews: %s\n", topic)
		for _, a := range articles {
			fmt.Fprintf(&b, "  %s\n", a.Title)
		}
	}
	return b.String()
}

func splitAddresses(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// sendSMTP delivers over implicit TLS on port 465 and STARTTLS otherwise
func (d *Digest) sendSMTP(ctx context.Context, from string, to []string, msg []byte) error {
	port := d.cfg.SMTPPort
	if port == 0 {
		port = 587
	}
	addr := fmt.Sprintf("%s:%d", d.cfg.SMTPHost, port)
	dialer := &net.Dialer{Timeout: 30 * time.Second}
	tlsConfig := &tls.Config{ServerName: d.cfg.SMTPHost}

	var (
		conn net.Conn
		err  error
	)
	if port == 465 {
		conn, err = tls.DialWithDialer(dialer, "tcp", addr, tlsConfig)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("connect %s: %w", addr, err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, d.cfg.SMTPHost)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	defer c.Quit()

	if port != 465 {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(tlsConfig); err != nil {
				return fmt.Errorf("starttls: %w", err)
			}
		}
	}
	if d.cfg.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", d.cfg.Username, d.cfg.Password, d.cfg.SMTPHost)); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}
	if err := c.Mail(bareAddress(from)); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	for _, rcpt := range to {
		if err := c.Rcpt(bareAddress(rcpt)); err != nil {
			return fmt.Errorf("rcpt %s: %w", rcpt, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return w.Close()
}

func bareAddress(address string) string {
	if start := strings.Index(address, "<"); start >= 0 {
		if end := strings.Index(address[start:], ">"); end > 0 {
			return address[start+1 : start+end]
		}
	}
	return strings.TrimSpace(address)
}
