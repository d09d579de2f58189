package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coldrm/coldrm/internal/domain/model"
	"github.com/coldrm/coldrm/internal/domain/port/driven"
)

func newContact(id, owner, name, email, company string, status model.ContactStatus, created time.Time) model.Contact {
	return model.Contact{
		ID:        id,
		OwnerID:   owner,
		Name:      name,
		Email:     email,
		Company:   company,
		Status:    status,
		Tags:      []string{"warm"},
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestContactRepo_CRUD(t *testing.T) {
	db := setupTestDB(t)
	repo := NewContactRepo(db)
	ctx := context.Background()

	c := newContact("c1", "u1", "Ada", "ada@example.com", "Engines", model.ContactStatusLead, testNow)
	c.FollowUpDate = "2026-04-01"
	require.NoError(t, repo.Create(ctx, c))

	got, err := repo.Get(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name)
	assert.Equal(t, []string{"warm"}, got.Tags)
	assert.Equal(t, "2026-04-01", got.FollowUpDate)

	c.Name = "Ada L."
	c.Tags = nil
	c.Status = model.ContactStatusCustomer
	require.NoError(t, repo.Update(ctx, c))

	got, err = repo.Get(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", got.Name)
	assert.Empty(t, got.Tags)
	assert.Equal(t, model.ContactStatusCustomer, got.Status)

	require.NoError(t, repo.Delete(ctx, "u1", "c1"))
	_, err = repo.Get(ctx, "u1", "c1")
	assert.ErrorIs(t, err, driven.ErrContactNotFound)
}

func TestContactRepo_OwnerScoping(t *testing.T) {
	db := setupTestDB(t)
	repo := NewContactRepo(db)
	ctx := context.Background()

	c := newContact("c1", "u1", "Ada", "ada@example.com", "", model.ContactStatusLead, testNow)
	require.NoError(t, repo.Create(ctx, c))

	_, err := repo.Get(ctx, "u2", "c1")
	assert.ErrorIs(t, err, driven.ErrContactNotFound)

	c.OwnerID = "u2"
	assert.ErrorIs(t, repo.Update(ctx, c), driven.ErrContactNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "u2", "c1"), driven.ErrContactNotFound)
}

func TestContactRepo_ListFilters(t *testing.T) {
	db := setupTestDB(t)
	repo := NewContactRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newContact("c1", "u1", "Ada", "ada@example.com", "Engines", model.ContactStatusLead, testNow.Add(-2*time.Hour))))
	require.NoError(t, repo.Create(ctx, newContact("c2", "u1", "Grace", "grace@navy.mil", "Navy", model.ContactStatusProspect, testNow.Add(-time.Hour))))
	require.NoError(t, repo.Create(ctx, newContact("c3", "u1", "Linus", "linus@example.com", "", model.ContactStatusLead, testNow)))
	require.NoError(t, repo.Create(ctx, newContact("c4", "u2", "Ada", "ada@other.com", "", model.ContactStatusLead, testNow)))

	tests := []struct {
		name   string
		filter model.ContactFilter
		want   []string
	}{
		{name: "all newest first", filter: model.ContactFilter{}, want: []string{"c3", "c2", "c1"}},
		{name: "by status", filter: model.ContactFilter{Status: model.ContactStatusLead}, want: []string{"c3", "c1"}},
		{name: "search name case insensitive", filter: model.ContactFilter{Search: "ADA"}, want: []string{"c1"}},
		{name: "search company", filter: model.ContactFilter{Search: "navy"}, want: []string{"c2"}},
		{name: "search email domain", filter: model.ContactFilter{Search: "example.com"}, want: []string{"c3", "c1"}},
		{name: "status and search", filter: model.ContactFilter{Status: model.ContactStatusProspect, Search: "ada"}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.List(ctx, "u1", tt.filter)
			require.NoError(t, err)

			var ids []string
			for _, c := range got {
				ids = append(ids, c.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	n, err := repo.Count(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestContactRepo_UpdateStatus(t *testing.T) {
	db := setupTestDB(t)
	repo := NewContactRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newContact("c1", "u1", "Ada", "ada@example.com", "", model.ContactStatusLead, testNow)))

	require.NoError(t, repo.UpdateStatus(ctx, "c1", model.ContactStatusProspect, "clicked"))
	require.NoError(t, repo.UpdateStatus(ctx, "missing", model.ContactStatusProspect, "clicked"))

	got, err := repo.Get(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.Equal(t, model.ContactStatusProspect, got.Status)
	assert.Equal(t, "clicked", got.Notes)
}
