package driven

import (
	"context"
	"errors"
	"fmt"
)

// Credentials authenticate a single SMTP session.
type Credentials struct {
	Username string
	Password string
}

// OutgoingMessage is one HTML email. Bcc addresses are added to the envelope
// only and never appear in the headers.
type OutgoingMessage struct {
	FromName    string
	FromAddress string
	To          string
	Bcc         []string
	Subject     string
	HTML        string
}

// Mailer defines the driven port for outbound email. Each Send performs
// exactly one SMTP transaction and returns the generated Message-ID.
type Mailer interface {
	Send(ctx context.Context, creds Credentials, msg OutgoingMessage) (string, error)
}

// SendErrorCode classifies mailer failures for user-facing messages.
type SendErrorCode string

const (
	SendErrorAuth       SendErrorCode = "EAUTH"
	SendErrorConnection SendErrorCode = "ECONNECTION"
	SendErrorEnvelope   SendErrorCode = "EENVELOPE"
	SendErrorMessage    SendErrorCode = "EMESSAGE"
)

// SendError describes a failed SMTP transaction with enough context to
// diagnose provider-side rejections.
type SendError struct {
	Code         SendErrorCode
	Command      string // SMTP stage that failed, e.g. "AUTH", "DATA".
	ResponseCode int    // Provider status code, 0 when no reply was received.
	Response     string // Provider reply text.
	Err          error
}

func (e *SendError) Error() string {
	if e.ResponseCode != 0 {
		return fmt.Sprintf("smtp %s failed (%s): %d %s", e.Command, e.Code, e.ResponseCode, e.Response)
	}
	return fmt.Sprintf("smtp %s failed (%s): %v", e.Command, e.Code, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// AsSendError extracts a *SendError from err's chain.
func AsSendError(err error) (*SendError, bool) {
	var se *SendError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
