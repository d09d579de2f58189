package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coldrm/coldrm/internal/application"
	"github.com/coldrm/coldrm/internal/crypto"
	"github.com/coldrm/coldrm/internal/domain/model"
	"github.com/coldrm/coldrm/internal/domain/port/driven"
)

type dispatchFixture struct {
	svc      *application.DispatchService
	logs     *mockSendLogs
	profiles *mockProfiles
	mailer   *mockMailer
}

func newDispatchFixture(t *testing.T, admins ...string) *dispatchFixture {
	t.Helper()

	c := newTestCipher(t)
	profiles := newMockProfiles(
		configuredProfile(t, c, "u1", "app-password"),
		model.Profile{ID: "unconfigured", ReferralCode: "UNCONF"},
		model.Profile{ID: "garbled", ReferralCode: "GARB", EmailConfigured: true, EncryptedPassword: "zz:zz"},
	)
	logs := &mockSendLogs{}
	adminSet := application.NewAdminSet(admins)
	limiter := application.NewRateLimiter(logs, adminSet, 5, time.Minute)
	quotas := application.NewQuotaPolicy(profiles, logs, newMockContacts(), adminSet, 15, 20)
	mailer := &mockMailer{}

	return &dispatchFixture{
		svc:      application.NewDispatchService(limiter, quotas, profiles, logs, c, mailer, discardLogger()),
		logs:     logs,
		profiles: profiles,
		mailer:   mailer,
	}
}

func dispatchRequest(userID string) application.DispatchRequest {
	return application.DispatchRequest{
		UserID:      userID,
		To:          "lead@example.org",
		Subject:     "Q&A <today>",
		Content:     "Hi Bob\n[Let's Talk](https://cal.example/ada)",
		ContactName: "Bob",
		ContactID:   "c1",
		FromName:    "Ada",
		FromCompany: "Engines",
		FromEmail:   "ada@example.com",
	}
}

func TestDispatch_Success(t *testing.T) {
	f := newDispatchFixture(t)

	id, err := f.svc.Send(context.Background(), dispatchRequest("u1"))
	require.NoError(t, err)
	assert.Equal(t, "<msg-lead@example.org@test>", id)

	require.Len(t, f.mailer.sent, 1)
	sent := f.mailer.sent[0]
	assert.Equal(t, driven.Credentials{Username: "ada@example.com", Password: "app-password"}, sent.creds)
	assert.Equal(t, "Ada from Engines", sent.msg.FromName)
	assert.Equal(t, "ada@example.com", sent.msg.FromAddress)
	assert.Equal(t, "lead@example.org", sent.msg.To)
	assert.Equal(t, []string{"ada@example.com"}, sent.msg.Bcc)
	assert.Equal(t, "Q&A <today>", sent.msg.Subject, "subject is a header, not HTML")
	assert.Contains(t, sent.msg.HTML, "Hi Bob<br>")
	assert.Contains(t, sent.msg.HTML, `href="https://cal.example/ada"`)

	require.Len(t, f.logs.entries, 1)
	entry := f.logs.entries[0]
	assert.Equal(t, "u1", entry.UserID)
	assert.Equal(t, "c1", entry.ContactID)
	assert.Equal(t, id, entry.MessageID)
	assert.Equal(t, model.SendStatusSent, entry.Status)
	assert.NotEmpty(t, entry.ID)
}

func TestDispatch_SixthSendWithinWindowIsRateLimited(t *testing.T) {
	f := newDispatchFixture(t)
	ctx := context.Background()

	for i := range 5 {
		_, err := f.svc.Send(ctx, dispatchRequest("u1"))
		require.NoError(t, err, "send %d", i+1)
	}

	_, err := f.svc.Send(ctx, dispatchRequest("u1"))
	assert.ErrorIs(t, err, application.ErrRateLimited)
	assert.Len(t, f.mailer.sent, 5)
}

func TestDispatch_AdminBypassesRateLimitAndQuota(t *testing.T) {
	f := newDispatchFixture(t, "u1")
	f.logs.seed("u1", 20, time.Now())

	_, err := f.svc.Send(context.Background(), dispatchRequest("u1"))
	require.NoError(t, err)
}

func TestDispatch_EmailQuota(t *testing.T) {
	f := newDispatchFixture(t)
	f.logs.seed("u1", 15, time.Now().Add(-time.Hour))

	_, err := f.svc.Send(context.Background(), dispatchRequest("u1"))
	assert.ErrorIs(t, err, application.ErrEmailQuotaReached)
	assert.Empty(t, f.mailer.sent)

	require.NoError(t, f.profiles.update("u1", func(p *model.Profile) { p.BonusEmails = 10 }))

	_, err = f.svc.Send(context.Background(), dispatchRequest("u1"))
	assert.NoError(t, err, "referral bonus raises the limit")
}

func TestDispatch_EnrollmentDoesNotUseEmailQuota(t *testing.T) {
	f := newDispatchFixture(t)
	f.logs.seed("u1", 14, time.Now().Add(-time.Hour))
	f.logs.entries = append(f.logs.entries, model.SendLogEntry{
		UserID:  "u1",
		Subject: application.EnrollmentSubject,
		SentAt:  time.Now().Add(-time.Hour),
	})

	_, err := f.svc.Send(context.Background(), dispatchRequest("u1"))
	require.NoError(t, err, "14 outreach emails plus an enrollment leaves one send")

	_, err = f.svc.Send(context.Background(), dispatchRequest("u1"))
	assert.ErrorIs(t, err, application.ErrEmailQuotaReached)
}

func TestDispatch_CredentialErrors(t *testing.T) {
	tests := []struct {
		name    string
		userID  string
		wantErr error
	}{
		{name: "no profile", userID: "ghost", wantErr: application.ErrEmailNotConfigured},
		{name: "not configured", userID: "unconfigured", wantErr: application.ErrEmailNotConfigured},
		{name: "undecryptable", userID: "garbled", wantErr: crypto.ErrDecryption},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newDispatchFixture(t)

			_, err := f.svc.Send(context.Background(), dispatchRequest(tt.userID))
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, f.mailer.sent)
			assert.Empty(t, f.logs.entries)
		})
	}
}

func TestDispatch_StorageFailure(t *testing.T) {
	f := newDispatchFixture(t)
	f.profiles.getErr = errors.New("disk I/O error")

	_, err := f.svc.Send(context.Background(), dispatchRequest("u1"))
	assert.ErrorIs(t, err, application.ErrStorage)
}

func TestDispatch_RateLimitQueryFailure(t *testing.T) {
	f := newDispatchFixture(t)
	f.logs.countErr = errors.New("database is locked")

	_, err := f.svc.Send(context.Background(), dispatchRequest("u1"))
	assert.ErrorIs(t, err, application.ErrStorage)
}

func TestDispatch_MailerFailureNotLogged(t *testing.T) {
	f := newDispatchFixture(t)
	f.mailer.err = &driven.SendError{Code: driven.SendErrorAuth, Command: "AUTH", ResponseCode: 535, Response: "bad credentials"}

	_, err := f.svc.Send(context.Background(), dispatchRequest("u1"))

	se, ok := driven.AsSendError(err)
	require.True(t, ok)
	assert.Equal(t, driven.SendErrorAuth, se.Code)
	assert.Empty(t, f.logs.entries)
}

func TestDispatch_LogWriteFailureStillSucceeds(t *testing.T) {
	f := newDispatchFixture(t)
	f.logs.insertErr = errors.New("constraint failed")

	id, err := f.svc.Send(context.Background(), dispatchRequest("u1"))
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Len(t, f.mailer.sent, 1)
}
