// Copyright (c) 2026 Tebeo. All rights reserved.

package comics_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tebeoapp/tebeo/internal/comics"
	"github.com/tebeoapp/tebeo/internal/platform/apperr"
)

// # Test Doubles

// fakeRepository is an in-memory [comics.Repository] mirroring the contract
// of the Postgres implementation, including the conditional popularity
// increment inside SetStatus.
type fakeRepository struct {
	items  map[string]*comics.Comic
	nextID int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{items: map[string]*comics.Comic{}}
}

func (r *fakeRepository) Insert(_ context.Context, c *comics.Comic) error {
	r.nextID++
	c.ID = fmt.Sprintf("comic-%04d", r.nextID)
	stored := *c
	r.items[c.ID] = &stored
	return nil
}

func (r *fakeRepository) FindByID(_ context.Context, id, ownerID string) (*comics.Comic, error) {
	c, ok := r.items[id]
	if !ok || c.OwnerID != ownerID {
		return nil, apperr.NotFound("Comic")
	}
	clone := *c
	return &clone, nil
}

func (r *fakeRepository) FindByOwner(_ context.Context, ownerID string, f comics.Filter, limit, offset int) ([]*comics.Comic, int, error) {
	var matched []*comics.Comic
	for i := 1; i <= r.nextID; i++ {
		c, ok := r.items[fmt.Sprintf("comic-%04d", i)]
		if !ok || c.OwnerID != ownerID {
			continue
		}
		if f.TitleSubstring != "" && !strings.Contains(strings.ToLower(c.Title), strings.ToLower(f.TitleSubstring)) {
			continue
		}
		clone := *c
		matched = append(matched, &clone)
	}

	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (r *fakeRepository) UpdateFields(_ context.Context, id, ownerID string, changes comics.FieldChanges) (int64, error) {
	c, ok := r.items[id]
	if !ok || c.OwnerID != ownerID {
		return 0, nil
	}
	if changes.Title != nil {
		c.Title = *changes.Title
	}
	if changes.Authors != nil {
		c.Authors = *changes.Authors
	}
	if changes.Publishers != nil {
		c.Publishers = *changes.Publishers
	}
	if changes.Year != nil {
		c.Year = changes.Year
	}
	if changes.ISBN != nil {
		c.ISBN = *changes.ISBN
	}
	return 1, nil
}

func (r *fakeRepository) SetStatus(_ context.Context, id, ownerID string, status comics.Status, incrementPopularity bool) (int64, error) {
	c, ok := r.items[id]
	if !ok || c.OwnerID != ownerID {
		return 0, nil
	}
	if incrementPopularity && c.Status != status {
		c.Popularity++
	}
	c.Status = status
	return 1, nil
}

func (r *fakeRepository) Delete(_ context.Context, id, ownerID string) (int64, error) {
	c, ok := r.items[id]
	if !ok || c.OwnerID != ownerID {
		return 0, nil
	}
	delete(r.items, id)
	return 1, nil
}

func (r *fakeRepository) TopByPopularity(_ context.Context, limit int) ([]*comics.PublicComic, error) {
	var all []*comics.Comic
	for i := 1; i <= r.nextID; i++ {
		if c, ok := r.items[fmt.Sprintf("comic-%04d", i)]; ok {
			all = append(all, c)
		}
	}
	// Popularity descending, insertion order as tie-break.
	for i := range all {
		for j := i + 1; j < len(all); j++ {
			if all[j].Popularity > all[i].Popularity {
				all[i], all[j] = all[j], all[i]
			}
		}
	}
	if limit > len(all) {
		limit = len(all)
	}
	result := make([]*comics.PublicComic, 0, limit)
	for _, c := range all[:limit] {
		result = append(result, &comics.PublicComic{
			ID:         c.ID,
			Title:      c.Title,
			Authors:    c.Authors,
			Popularity: c.Popularity,
		})
	}
	return result, nil
}

// fakeResolver returns a canned metadata record, or fails when failWith is set.
type fakeResolver struct {
	metadata *comics.BookMetadata
	failWith error
	lastISBN string
	calls    int
}

func (r *fakeResolver) Resolve(_ context.Context, isbn string) (*comics.BookMetadata, error) {
	r.calls++
	r.lastISBN = isbn
	if r.failWith != nil {
		return nil, r.failWith
	}
	return r.metadata, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testMetadata() *comics.BookMetadata {
	year := 1997
	return &comics.BookMetadata{
		Title:      "The Yellow M",
		Authors:    []string{"Edgar P. Jacobs"},
		Publishers: []string{"Blake & Mortimer"},
		Year:       &year,
	}
}

// # Creation

/*
TestService_Create_Success verifies a fresh item starts pending with zero
popularity and carries the normalized ISBN.
*/
func TestService_Create_Success(t *testing.T) {
	repo := newFakeRepository()
	resolver := &fakeResolver{metadata: testMetadata()}
	service := comics.NewService(repo, resolver, discardLogger())

	comic, err := service.Create(context.Background(), "owner-1", "978-0140173154")
	require.NoError(t, err)

	assert.NotEmpty(t, comic.ID)
	assert.Equal(t, "The Yellow M", comic.Title)
	assert.Equal(t, []string{"Edgar P. Jacobs"}, comic.Authors)
	assert.Equal(t, "9780140173154", comic.ISBN, "catalog must be queried with the canonical form")
	assert.Equal(t, "9780140173154", resolver.lastISBN)
	assert.Equal(t, comics.StatusPending, comic.Status)
	assert.Equal(t, 0, comic.Popularity)
	assert.Equal(t, "owner-1", comic.OwnerID)
}

/*
TestService_Create_InvalidISBN verifies malformed input is rejected before
the catalog is ever contacted.
*/
func TestService_Create_InvalidISBN(t *testing.T) {
	tests := []struct {
		name string
		isbn string
	}{
		{"empty", ""},
		{"letters", "abc"},
		{"too_short", "123"},
		{"twelve_digits", "123456789012"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepository()
			resolver := &fakeResolver{metadata: testMetadata()}
			service := comics.NewService(repo, resolver, discardLogger())

			_, err := service.Create(context.Background(), "owner-1", tt.isbn)
			require.Error(t, err)

			ae := apperr.As(err)
			require.NotNil(t, ae)
			assert.Equal(t, http.StatusBadRequest, ae.HTTPStatus)
			assert.Zero(t, resolver.calls, "resolver must not be reached for invalid input")
			assert.Empty(t, repo.items)
		})
	}
}

/*
TestService_Create_ResolutionFailure verifies any resolver failure surfaces
as 404 and leaves no partial write behind.
*/
func TestService_Create_ResolutionFailure(t *testing.T) {
	repo := newFakeRepository()
	resolver := &fakeResolver{failWith: errors.New("connection refused")}
	service := comics.NewService(repo, resolver, discardLogger())

	_, err := service.Create(context.Background(), "owner-1", "9780140173154")
	require.Error(t, err)

	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, http.StatusNotFound, ae.HTTPStatus)
	assert.Empty(t, repo.items, "failed resolution must not persist anything")
}

// # Status Transitions

func createTestComic(t *testing.T, service *comics.Service, ownerID string) *comics.Comic {
	t.Helper()
	comic, err := service.Create(context.Background(), ownerID, "9780140173154")
	require.NoError(t, err)
	return comic
}

/*
TestService_UpdateStatus_Popularity walks the state machine and checks the
popularity counter only moves on transitions INTO read.
*/
func TestService_UpdateStatus_Popularity(t *testing.T) {
	repo := newFakeRepository()
	service := comics.NewService(repo, &fakeResolver{metadata: testMetadata()}, discardLogger())
	comic := createTestComic(t, service, "owner-1")

	// pending -> read: +1
	status, err := service.UpdateStatus(context.Background(), "owner-1", comic.ID, "read")
	require.NoError(t, err)
	assert.Equal(t, comics.StatusRead, status)
	assert.Equal(t, 1, repo.items[comic.ID].Popularity)

	// read -> read: idempotent, no double count
	_, err = service.UpdateStatus(context.Background(), "owner-1", comic.ID, "read")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.items[comic.ID].Popularity)

	// read -> pending: untouched
	_, err = service.UpdateStatus(context.Background(), "owner-1", comic.ID, "pending")
	require.NoError(t, err)
	assert.Equal(t, comics.StatusPending, repo.items[comic.ID].Status)
	assert.Equal(t, 1, repo.items[comic.ID].Popularity)

	// pending -> read again: +1
	_, err = service.UpdateStatus(context.Background(), "owner-1", comic.ID, "read")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.items[comic.ID].Popularity)
}

/*
TestService_UpdateStatus_InvalidValue rejects anything outside the two
recognised states.
*/
func TestService_UpdateStatus_InvalidValue(t *testing.T) {
	repo := newFakeRepository()
	service := comics.NewService(repo, &fakeResolver{metadata: testMetadata()}, discardLogger())
	comic := createTestComic(t, service, "owner-1")

	for _, status := range []string{"", "Read", "finished", "PENDING"} {
		_, err := service.UpdateStatus(context.Background(), "owner-1", comic.ID, status)
		require.Error(t, err, "status %q must be rejected", status)

		ae := apperr.As(err)
		require.NotNil(t, ae)
		assert.Equal(t, http.StatusBadRequest, ae.HTTPStatus)
	}
}

/*
TestService_UpdateStatus_NotOwned verifies a foreign or unknown target yields
the same indistinguishable not-found outcome.
*/
func TestService_UpdateStatus_NotOwned(t *testing.T) {
	repo := newFakeRepository()
	service := comics.NewService(repo, &fakeResolver{metadata: testMetadata()}, discardLogger())
	comic := createTestComic(t, service, "owner-1")

	tests := []struct {
		name    string
		ownerID string
		comicID string
	}{
		{"unknown_id", "owner-1", "comic-9999"},
		{"foreign_owner", "owner-2", comic.ID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.UpdateStatus(context.Background(), tt.ownerID, tt.comicID, "read")
			require.Error(t, err)

			ae := apperr.As(err)
			require.NotNil(t, ae)
			assert.Equal(t, http.StatusNotFound, ae.HTTPStatus)
			assert.Equal(t, "NOT_FOUND", ae.Code)
		})
	}

	assert.Equal(t, 0, repo.items[comic.ID].Popularity, "failed transitions must not touch popularity")
}

// # Field Updates

/*
TestService_UpdateFields_Partial verifies supplied fields overwrite and
absent fields are preserved.
*/
func TestService_UpdateFields_Partial(t *testing.T) {
	repo := newFakeRepository()
	service := comics.NewService(repo, &fakeResolver{metadata: testMetadata()}, discardLogger())
	comic := createTestComic(t, service, "owner-1")

	newTitle := "The Mystery of the Great Pyramid"
	err := service.UpdateFields(context.Background(), "owner-1", comic.ID, comics.FieldChanges{
		Title: &newTitle,
	})
	require.NoError(t, err)

	stored := repo.items[comic.ID]
	assert.Equal(t, newTitle, stored.Title)
	assert.Equal(t, []string{"Edgar P. Jacobs"}, stored.Authors, "absent fields stay untouched")
	assert.Equal(t, "9780140173154", stored.ISBN)
}

/*
TestService_UpdateFields_NormalizesISBN verifies a replacement ISBN goes
through the same canonicalization as creation.
*/
func TestService_UpdateFields_NormalizesISBN(t *testing.T) {
	repo := newFakeRepository()
	service := comics.NewService(repo, &fakeResolver{metadata: testMetadata()}, discardLogger())
	comic := createTestComic(t, service, "owner-1")

	raw := "2-87097-001-9"
	err := service.UpdateFields(context.Background(), "owner-1", comic.ID, comics.FieldChanges{
		ISBN: &raw,
	})
	require.NoError(t, err)
	assert.Equal(t, "2870970019", repo.items[comic.ID].ISBN)

	bad := "not-an-isbn"
	err = service.UpdateFields(context.Background(), "owner-1", comic.ID, comics.FieldChanges{
		ISBN: &bad,
	})
	require.Error(t, err)
	assert.Equal(t, "2870970019", repo.items[comic.ID].ISBN, "invalid replacement must not be written")
}

/*
TestService_UpdateFields_Empty rejects a payload with no fields at all.
*/
func TestService_UpdateFields_Empty(t *testing.T) {
	repo := newFakeRepository()
	service := comics.NewService(repo, &fakeResolver{metadata: testMetadata()}, discardLogger())
	comic := createTestComic(t, service, "owner-1")

	err := service.UpdateFields(context.Background(), "owner-1", comic.ID, comics.FieldChanges{})
	require.Error(t, err)

	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "VALIDATION_ERROR", ae.Code)
}

// # Retrieval & Deletion

/*
TestService_List_Pagination seeds 15 items and checks the second page of 10
holds the remaining 5 with the full filtered total.
*/
func TestService_List_Pagination(t *testing.T) {
	repo := newFakeRepository()
	service := comics.NewService(repo, &fakeResolver{metadata: testMetadata()}, discardLogger())

	for range 15 {
		createTestComic(t, service, "owner-1")
	}
	createTestComic(t, service, "owner-2")

	page1, total, err := service.List(context.Background(), "owner-1", comics.Filter{}, 10, 0)
	require.NoError(t, err)
	assert.Len(t, page1, 10)
	assert.Equal(t, 15, total, "total counts the filtered set, not the page")

	page2, total, err := service.List(context.Background(), "owner-1", comics.Filter{}, 10, 10)
	require.NoError(t, err)
	assert.Len(t, page2, 5)
	assert.Equal(t, 15, total)
}

/*
TestService_Delete_NotOwned verifies owner scoping on deletion.
*/
func TestService_Delete_NotOwned(t *testing.T) {
	repo := newFakeRepository()
	service := comics.NewService(repo, &fakeResolver{metadata: testMetadata()}, discardLogger())
	comic := createTestComic(t, service, "owner-1")

	err := service.Delete(context.Background(), "owner-2", comic.ID)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, apperr.As(err).HTTPStatus)
	assert.Contains(t, repo.items, comic.ID, "foreign delete must not remove the row")

	require.NoError(t, service.Delete(context.Background(), "owner-1", comic.ID))
	assert.NotContains(t, repo.items, comic.ID)
}

// # Public View

/*
TestService_PublicTop verifies the default limit and the owner-free
projection.
*/
func TestService_PublicTop(t *testing.T) {
	repo := newFakeRepository()
	service := comics.NewService(repo, &fakeResolver{metadata: testMetadata()}, discardLogger())

	for i := range 14 {
		comic := createTestComic(t, service, fmt.Sprintf("owner-%d", i%3))
		// Give distinct popularity by transitioning some items to read.
		if i%2 == 0 {
			_, err := service.UpdateStatus(context.Background(), fmt.Sprintf("owner-%d", i%3), comic.ID, "read")
			require.NoError(t, err)
		}
	}

	top, err := service.PublicTop(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, top, comics.DefaultPublicTopLimit, "zero limit falls back to the default")

	for i := 1; i < len(top); i++ {
		assert.GreaterOrEqual(t, top[i-1].Popularity, top[i].Popularity, "ordering must be popularity descending")
	}

	top3, err := service.PublicTop(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, top3, 3)
}
