package application_test

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coldrm/coldrm/internal/crypto"
	"github.com/coldrm/coldrm/internal/domain/model"
	"github.com/coldrm/coldrm/internal/domain/port/driven"
)

// --- Mock implementations ---

type mockSendLogs struct {
	mu        sync.Mutex
	entries   []model.SendLogEntry
	insertErr error
	countErr  error
}

func (m *mockSendLogs) Insert(_ context.Context, e model.SendLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockSendLogs) CountSince(_ context.Context, userID string, since time.Time) (int, error) {
	return m.count(func(e model.SendLogEntry) bool { return e.UserID == userID && !e.SentAt.Before(since) })
}

func (m *mockSendLogs) CountBySubject(_ context.Context, userID, subject string) (int, error) {
	return m.count(func(e model.SendLogEntry) bool { return e.UserID == userID && e.Subject == subject })
}

func (m *mockSendLogs) CountAll(_ context.Context, userID string) (int, error) {
	return m.count(func(e model.SendLogEntry) bool { return e.UserID == userID })
}

func (m *mockSendLogs) count(match func(model.SendLogEntry) bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.countErr != nil {
		return 0, m.countErr
	}
	n := 0
	for _, e := range m.entries {
		if match(e) {
			n++
		}
	}
	return n, nil
}

func (m *mockSendLogs) ListByContact(_ context.Context, userID, contactID string) ([]model.SendLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.SendLogEntry
	for _, e := range m.entries {
		if e.UserID == userID && e.ContactID == contactID {
			out = append(out, e)
		}
	}
	return out, nil
}

// seed appends n entries for userID sent at t.
func (m *mockSendLogs) seed(userID string, n int, t time.Time) {
	for range n {
		m.entries = append(m.entries, model.SendLogEntry{UserID: userID, Subject: "s", SentAt: t})
	}
}

type mockProfiles struct {
	mu       sync.Mutex
	profiles map[string]*model.Profile
	getErr   error
	enrolled []string

	// codeCollisions makes the next n Create calls report a taken
	// referral code.
	codeCollisions int
	createCalls    int
}

func newMockProfiles(profiles ...model.Profile) *mockProfiles {
	m := &mockProfiles{profiles: make(map[string]*model.Profile)}
	for i := range profiles {
		p := profiles[i]
		m.profiles[p.ID] = &p
	}
	return m
}

func (m *mockProfiles) Create(_ context.Context, p model.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if _, ok := m.profiles[p.ID]; ok {
		return driven.ErrProfileExists
	}
	if m.codeCollisions > 0 {
		m.codeCollisions--
		return driven.ErrReferralCodeTaken
	}
	for _, existing := range m.profiles {
		if existing.ReferralCode == p.ReferralCode {
			return driven.ErrReferralCodeTaken
		}
	}
	m.profiles[p.ID] = &p
	return nil
}

func (m *mockProfiles) Get(_ context.Context, id string) (*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.profiles[id]
	if !ok {
		return nil, driven.ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockProfiles) GetByReferralCode(_ context.Context, code string) (*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if p.ReferralCode == code {
			cp := *p
			return &cp, nil
		}
	}
	return nil, driven.ErrProfileNotFound
}

func (m *mockProfiles) SetEmailCredential(_ context.Context, id, provider, encrypted string) error {
	return m.update(id, func(p *model.Profile) {
		p.EmailProvider, p.EncryptedPassword, p.EmailConfigured = provider, encrypted, true
	})
}

func (m *mockProfiles) ClearEmailCredential(_ context.Context, id string) error {
	return m.update(id, func(p *model.Profile) {
		p.EmailProvider, p.EncryptedPassword, p.EmailConfigured = "", "", false
	})
}

func (m *mockProfiles) MarkEnrolled(_ context.Context, id string) error {
	m.enrolled = append(m.enrolled, id)
	return m.update(id, func(p *model.Profile) { p.Enrolled = true })
}

func (m *mockProfiles) ListNotificationOptIns(_ context.Context) ([]model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Profile
	for _, p := range m.profiles {
		if p.NotifyFullVersion {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockProfiles) update(id string, fn func(*model.Profile)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return driven.ErrProfileNotFound
	}
	fn(p)
	return nil
}

type mockContacts struct {
	mu       sync.Mutex
	contacts map[string]model.Contact
}

func newMockContacts(contacts ...model.Contact) *mockContacts {
	m := &mockContacts{contacts: make(map[string]model.Contact)}
	for _, c := range contacts {
		m.contacts[c.ID] = c
	}
	return m
}

func (m *mockContacts) Create(_ context.Context, c model.Contact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contacts[c.ID] = c
	return nil
}

func (m *mockContacts) Update(_ context.Context, c model.Contact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.contacts[c.ID]; !ok || old.OwnerID != c.OwnerID {
		return driven.ErrContactNotFound
	}
	m.contacts[c.ID] = c
	return nil
}

func (m *mockContacts) Delete(_ context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.contacts[id]; !ok || c.OwnerID != ownerID {
		return driven.ErrContactNotFound
	}
	delete(m.contacts, id)
	return nil
}

func (m *mockContacts) Get(_ context.Context, ownerID, id string) (*model.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contacts[id]
	if !ok || c.OwnerID != ownerID {
		return nil, driven.ErrContactNotFound
	}
	return &c, nil
}

func (m *mockContacts) List(_ context.Context, ownerID string, filter model.ContactFilter) ([]model.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Contact
	for _, c := range m.contacts {
		if c.OwnerID != ownerID || (filter.Status != "" && c.Status != filter.Status) {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(c.Name+c.Email+c.Company), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockContacts) Count(_ context.Context, ownerID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.contacts {
		if c.OwnerID == ownerID {
			n++
		}
	}
	return n, nil
}

func (m *mockContacts) UpdateStatus(_ context.Context, id string, status model.ContactStatus, notes string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.contacts[id]; ok {
		c.Status, c.Notes = status, notes
		m.contacts[id] = c
	}
	return nil
}

type mockReferrals struct {
	byReferee map[string]model.Referral
	redeemErr error
	rewards   [][2]model.Reward
}

func (m *mockReferrals) GetByReferee(_ context.Context, refereeID string) (*model.Referral, error) {
	if r, ok := m.byReferee[refereeID]; ok {
		return &r, nil
	}
	return nil, nil
}

func (m *mockReferrals) Redeem(_ context.Context, r model.Referral, referrer, referee model.Reward) error {
	if m.redeemErr != nil {
		return m.redeemErr
	}
	if m.byReferee == nil {
		m.byReferee = make(map[string]model.Referral)
	}
	m.byReferee[r.RefereeID] = r
	m.rewards = append(m.rewards, [2]model.Reward{referrer, referee})
	return nil
}

type sentMessage struct {
	creds driven.Credentials
	msg   driven.OutgoingMessage
}

type mockMailer struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (m *mockMailer) Send(_ context.Context, creds driven.Credentials, msg driven.OutgoingMessage) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.sent = append(m.sent, sentMessage{creds: creds, msg: msg})
	return "<msg-" + msg.To + "@test>", nil
}

// --- Helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestCipher(t *testing.T) *crypto.Cipher {
	t.Helper()
	c, err := crypto.NewCipher("application-test-secret")
	require.NoError(t, err)
	return c
}

// configuredProfile returns a profile whose credential decrypts to password.
func configuredProfile(t *testing.T, c *crypto.Cipher, id, password string) model.Profile {
	t.Helper()
	token, err := c.Encrypt(password)
	require.NoError(t, err)
	return model.Profile{
		ID:                id,
		Username:          "user-" + id,
		ReferralCode:      "CODE" + strings.ToUpper(id),
		EncryptedPassword: token,
		EmailConfigured:   true,
	}
}
