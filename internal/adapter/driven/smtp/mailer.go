// Package smtp implements the Mailer port with an SMTP client.
package smtp

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	gosmtp "github.com/emersion/go-smtp"
	"github.com/jaytaylor/html2text"

	"github.com/coldrm/coldrm/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Mailer = (*Mailer)(nil)

// errPlaintextAuth is returned instead of sending credentials over a
// connection that is not encrypted.
var errPlaintextAuth = errors.New("refusing to authenticate without TLS")

// Mailer sends HTML email with a generated plain-text alternative through a
// single configured SMTP relay. Each Send opens its own connection; nothing is
// pooled between requests.
type Mailer struct {
	addr        string
	implicitTLS bool
	timeout     time.Duration
	tlsConfig   *tls.Config
	logger      *slog.Logger
	now         func() time.Time
}

// Option customizes a Mailer.
type Option func(*Mailer)

// WithTLSConfig overrides the TLS configuration used for implicit TLS and
// STARTTLS.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(m *Mailer) { m.tlsConfig = cfg }
}

// WithClock overrides the clock used for the Date header.
func WithClock(now func() time.Time) Option {
	return func(m *Mailer) { m.now = now }
}

// NewMailer creates a Mailer for the relay at addr ("host:port"). With
// implicitTLS the connection is wrapped in TLS before the greeting (port 465);
// otherwise the client upgrades with STARTTLS (port 587) and fails when the
// relay does not offer it.
func NewMailer(addr string, implicitTLS bool, timeout time.Duration, logger *slog.Logger, opts ...Option) *Mailer {
	m := &Mailer{
		addr:        addr,
		implicitTLS: implicitTLS,
		timeout:     timeout,
		logger:      logger,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Send performs one SMTP transaction: connect, authenticate with PLAIN, send
// the envelope (To plus every Bcc address) and the message, then quit.
// Failures are returned as *driven.SendError.
func (m *Mailer) Send(ctx context.Context, creds driven.Credentials, msg driven.OutgoingMessage) (string, error) {
	body, messageID, err := m.buildMessage(msg)
	if err != nil {
		return "", &driven.SendError{Code: driven.SendErrorMessage, Command: "BUILD", Err: err}
	}

	if err := ctx.Err(); err != nil {
		return "", &driven.SendError{Code: driven.SendErrorConnection, Command: "CONN", Err: err}
	}

	c, err := m.dial()
	if err != nil {
		return "", newSendError(driven.SendErrorConnection, "CONN", err)
	}
	defer c.Close()

	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()

	if _, ok := c.TLSConnectionState(); !ok {
		return "", newSendError(driven.SendErrorConnection, "AUTH", errPlaintextAuth)
	}
	if err := c.Auth(sasl.NewPlainClient("", creds.Username, creds.Password)); err != nil {
		return "", newSendError(classifyAuth(err), "AUTH", err)
	}

	if err := c.Mail(msg.FromAddress, nil); err != nil {
		return "", newSendError(classify(err, driven.SendErrorEnvelope), "MAIL FROM", err)
	}
	for _, rcpt := range append([]string{msg.To}, msg.Bcc...) {
		if err := c.Rcpt(rcpt, nil); err != nil {
			return "", newSendError(classify(err, driven.SendErrorEnvelope), "RCPT TO", err)
		}
	}

	w, err := c.Data()
	if err != nil {
		return "", newSendError(classify(err, driven.SendErrorMessage), "DATA", err)
	}
	if _, err := io.Copy(w, bytes.NewReader(body)); err != nil {
		_ = w.Close()
		return "", newSendError(driven.SendErrorConnection, "DATA", err)
	}
	if err := w.Close(); err != nil {
		return "", newSendError(classify(err, driven.SendErrorMessage), "DATA", err)
	}

	if err := c.Quit(); err != nil {
		// The message was accepted; a failed QUIT does not undo delivery.
		m.logger.Warn("smtp quit failed", "addr", m.addr, "error", err)
	}

	m.logger.Info("email sent", "to", msg.To, "message_id", messageID)
	return messageID, nil
}

func (m *Mailer) dial() (*gosmtp.Client, error) {
	var (
		c   *gosmtp.Client
		err error
	)
	if m.implicitTLS {
		c, err = gosmtp.DialTLS(m.addr, m.tlsConfig)
	} else {
		c, err = gosmtp.DialStartTLS(m.addr, m.tlsConfig)
	}
	if err != nil {
		return nil, err
	}
	if m.timeout > 0 {
		c.CommandTimeout = m.timeout
		c.SubmissionTimeout = m.timeout
	}
	return c, nil
}

// buildMessage renders the RFC 5322 message and returns it with its Message-ID
// in angle-bracket form.
func (m *Mailer) buildMessage(msg driven.OutgoingMessage) ([]byte, string, error) {
	var h mail.Header
	h.SetDate(m.now())
	h.SetAddressList("From", []*mail.Address{{Name: msg.FromName, Address: msg.FromAddress}})
	h.SetAddressList("To", []*mail.Address{{Address: msg.To}})
	h.SetSubject(msg.Subject)
	if err := h.GenerateMessageID(); err != nil {
		return nil, "", fmt.Errorf("generate message id: %w", err)
	}
	id, err := h.MessageID()
	if err != nil {
		return nil, "", fmt.Errorf("read message id: %w", err)
	}

	text, err := html2text.FromString(msg.HTML)
	if err != nil {
		return nil, "", fmt.Errorf("render text part: %w", err)
	}

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, "", fmt.Errorf("create message writer: %w", err)
	}
	alt, err := mw.CreateInline()
	if err != nil {
		return nil, "", fmt.Errorf("create alternative part: %w", err)
	}
	if err := writePart(alt, "text/plain", text); err != nil {
		return nil, "", err
	}
	if err := writePart(alt, "text/html", msg.HTML); err != nil {
		return nil, "", err
	}
	if err := alt.Close(); err != nil {
		return nil, "", fmt.Errorf("close alternative part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("close message writer: %w", err)
	}

	return buf.Bytes(), "<" + id + ">", nil
}

func writePart(alt *mail.InlineWriter, contentType, body string) error {
	var h mail.InlineHeader
	h.SetContentType(contentType, map[string]string{"charset": "utf-8"})
	w, err := alt.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create %s part: %w", contentType, err)
	}
	if _, err := io.WriteString(w, body); err != nil {
		return fmt.Errorf("write %s part: %w", contentType, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close %s part: %w", contentType, err)
	}
	return nil
}

// classify keeps protocol rejections under fallback and treats anything
// without a server reply as a connection failure.
func classify(err error, fallback driven.SendErrorCode) driven.SendErrorCode {
	var smtpErr *gosmtp.SMTPError
	if errors.As(err, &smtpErr) {
		return fallback
	}
	return driven.SendErrorConnection
}

func classifyAuth(err error) driven.SendErrorCode {
	var smtpErr *gosmtp.SMTPError
	if errors.As(err, &smtpErr) {
		return driven.SendErrorAuth
	}
	return driven.SendErrorConnection
}

func newSendError(code driven.SendErrorCode, command string, err error) *driven.SendError {
	se := &driven.SendError{Code: code, Command: command, Err: err}
	var smtpErr *gosmtp.SMTPError
	if errors.As(err, &smtpErr) {
		se.ResponseCode = smtpErr.Code
		se.Response = smtpErr.Message
	}
	return se
}
