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

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func TestRateLimiter_CanSend(t *testing.T) {
	tests := []struct {
		name   string
		recent int
		old    int
		want   bool
	}{
		{name: "no history", want: true},
		{name: "below threshold", recent: 4, want: true},
		{name: "at threshold", recent: 5, want: false},
		{name: "old entries ignored", recent: 4, old: 10, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs := &mockSendLogs{}
			logs.seed("u1", tt.recent, testNow.Add(-30*time.Second))
			logs.seed("u1", tt.old, testNow.Add(-61*time.Second))
			logs.seed("other", 10, testNow)

			limiter := application.NewRateLimiter(logs, application.NewAdminSet(nil), 5, time.Minute)

			got, err := limiter.CanSend(context.Background(), "u1", testNow)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRateLimiter_WindowBoundaryInclusive(t *testing.T) {
	logs := &mockSendLogs{}
	logs.seed("u1", 5, testNow.Add(-time.Minute))

	limiter := application.NewRateLimiter(logs, application.NewAdminSet(nil), 5, time.Minute)

	ok, err := limiter.CanSend(context.Background(), "u1", testNow)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = limiter.CanSend(context.Background(), "u1", testNow.Add(time.Millisecond))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRateLimiter_AdminBypassSkipsQuery(t *testing.T) {
	logs := &mockSendLogs{countErr: errors.New("should not be called")}
	limiter := application.NewRateLimiter(logs, application.NewAdminSet([]string{"admin"}), 5, time.Minute)

	ok, err := limiter.CanSend(context.Background(), "admin", testNow)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = limiter.CanSend(context.Background(), "u1", testNow)
	assert.Error(t, err)
}

func TestRateLimiter_CanEnroll(t *testing.T) {
	logs := &mockSendLogs{}
	limiter := application.NewRateLimiter(logs, application.NewAdminSet(nil), 5, time.Minute)

	ok, err := limiter.CanEnroll(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, ok)

	logs.entries = append(logs.entries, model.SendLogEntry{
		UserID:  "u1",
		Subject: application.EnrollmentSubject,
		SentAt:  testNow.Add(-365 * 24 * time.Hour),
	})

	ok, err = limiter.CanEnroll(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, ok, "enrollment is once per lifetime")

	ok, err = limiter.CanEnroll(context.Background(), "u2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAdminSet(t *testing.T) {
	admins := application.NewAdminSet([]string{"a", "", "b"})

	assert.True(t, admins.Contains("a"))
	assert.True(t, admins.Contains("b"))
	assert.False(t, admins.Contains(""))
	assert.False(t, admins.Contains("c"))
}
