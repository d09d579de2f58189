package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coldrm/coldrm/internal/application"
	"github.com/coldrm/coldrm/internal/domain/model"
)

type enrollmentFixture struct {
	svc      *application.EnrollmentService
	logs     *mockSendLogs
	profiles *mockProfiles
	mailer   *mockMailer
}

func newEnrollmentFixture(t *testing.T, recipient string) *enrollmentFixture {
	t.Helper()

	c := newTestCipher(t)
	profiles := newMockProfiles(
		configuredProfile(t, c, "u1", "app-password"),
		model.Profile{ID: "unconfigured", ReferralCode: "UNCONF"},
	)
	logs := &mockSendLogs{}
	limiter := application.NewRateLimiter(logs, application.NewAdminSet(nil), 5, time.Minute)
	mailer := &mockMailer{}

	return &enrollmentFixture{
		svc:      application.NewEnrollmentService(limiter, profiles, logs, c, mailer, recipient, discardLogger()),
		logs:     logs,
		profiles: profiles,
		mailer:   mailer,
	}
}

func enrollmentRequest(userID string) application.EnrollmentRequest {
	return application.EnrollmentRequest{
		UserID:    userID,
		UserEmail: "ada@example.com",
		Name:      "Ada",
		Email:     "ada.personal@example.com",
		Reason:    "I send a lot of cold email",
		Feedback:  "More templates",
	}
}

func TestEnroll_Success(t *testing.T) {
	f := newEnrollmentFixture(t, "founder@coldrm.example")

	require.NoError(t, f.svc.Enroll(context.Background(), enrollmentRequest("u1")))

	require.Len(t, f.mailer.sent, 1)
	sent := f.mailer.sent[0]
	assert.Equal(t, "founder@coldrm.example", sent.msg.To)
	assert.Equal(t, "ada@example.com", sent.msg.FromAddress)
	assert.Equal(t, application.EnrollmentSubject, sent.msg.Subject)
	assert.Equal(t, "app-password", sent.creds.Password)
	assert.Contains(t, sent.msg.HTML, "I send a lot of cold email")

	require.Len(t, f.logs.entries, 1)
	assert.Equal(t, application.EnrollmentSubject, f.logs.entries[0].Subject)
	assert.Equal(t, []string{"u1"}, f.profiles.enrolled)
}

func TestEnroll_OnlyOnce(t *testing.T) {
	f := newEnrollmentFixture(t, "founder@coldrm.example")
	ctx := context.Background()

	require.NoError(t, f.svc.Enroll(ctx, enrollmentRequest("u1")))

	err := f.svc.Enroll(ctx, enrollmentRequest("u1"))
	assert.ErrorIs(t, err, application.ErrAlreadyEnrolled)
	assert.Len(t, f.mailer.sent, 1)
}

func TestEnroll_Errors(t *testing.T) {
	tests := []struct {
		name      string
		recipient string
		userID    string
		setup     func(*enrollmentFixture)
		wantErr   error
	}{
		{name: "recipient unset", userID: "u1", wantErr: application.ErrEnrollmentDisabled},
		{name: "unconfigured email", recipient: "r@example.com", userID: "unconfigured", wantErr: application.ErrEmailNotConfigured},
		{name: "missing profile", recipient: "r@example.com", userID: "ghost", wantErr: application.ErrEmailNotConfigured},
		{
			name:      "log write fails after send",
			recipient: "r@example.com",
			userID:    "u1",
			setup:     func(f *enrollmentFixture) { f.logs.insertErr = errors.New("disk full") },
			wantErr:   application.ErrEnrollmentNotRecorded,
		},
		{
			name:      "count fails",
			recipient: "r@example.com",
			userID:    "u1",
			setup:     func(f *enrollmentFixture) { f.logs.countErr = errors.New("locked") },
			wantErr:   application.ErrStorage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEnrollmentFixture(t, tt.recipient)
			if tt.setup != nil {
				tt.setup(f)
			}

			err := f.svc.Enroll(context.Background(), enrollmentRequest(tt.userID))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
