// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package denuncia

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber/h3-go/v4"

	"github.com/jcodagnone/denuncia/location"
	"github.com/jcodagnone/denuncia/spatial"
)

func setupTestRepository(t *testing.T) *Repository {
	t.Helper()

	db, err := sql.Open("duckdb", "")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewRepository(db, nil)
	require.NoError(t, repo.CreateSchema(context.Background()))

	return repo
}

func newRecord(category, description string) *Denunciation {
	s := Normalize(Submission{
		Category:    category,
		Description: description,
		Address: location.Address{
			Street:       "Rua Augusta",
			Neighborhood: "Consolação",
			City:         "São Paulo",
			State:        "SP",
		},
		Point: &spatial.Point{Lat: -23.5505, Lng: -46.6333},
	})

	return FromSubmission(s, &User{ID: "u1", Name: "Maria"})
}

func TestCreateSchemaIsIdempotent(t *testing.T) {
	repo := setupTestRepository(t)
	require.NoError(t, repo.CreateSchema(context.Background()))

	var tableName string

	err := repo.DB().QueryRow("SELECT table_name FROM information_schema.tables WHERE table_name = 'denunciations'").Scan(&tableName)
	require.NoError(t, err)
	assert.Equal(t, "denunciations", tableName)
}

func TestRepositoryCreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepository(t)

	d := newRecord("buraco", "Big pothole")
	require.NoError(t, repo.Create(ctx, d))
	require.NotEmpty(t, d.ID)
	assert.False(t, d.CreatedAt.IsZero())

	got, err := repo.Get(ctx, d.ID)
	require.NoError(t, err)

	if diff := cmp.Diff(d, got, cmpopts.EquateApproxTime(time.Millisecond)); diff != "" {
		t.Errorf("Get() mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, "Buraco na via", got.Title)
	assert.Equal(t, StatusUnresolved, got.Status)
	assert.Empty(t, got.ImageURL)
	assert.Equal(t, []string{}, got.Likes)
	assert.Equal(t, []string{}, got.Dislikes)

	want, err := h3.LatLngToCell(h3.NewLatLng(-23.5505, -46.6333), H3Resolution)
	require.NoError(t, err)
	assert.Equal(t, int64(want), got.H3Cell)
}

func TestRepositoryCreateWithoutPoint(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepository(t)

	d := newRecord("lixo_acumulado", "Lixo na esquina")
	d.Point = nil
	require.NoError(t, repo.Create(ctx, d))

	got, err := repo.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Point)
	assert.Zero(t, got.H3Cell)
}

func TestRepositoryGetNotFound(t *testing.T) {
	repo := setupTestRepository(t)

	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepositoryListNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepository(t)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	var ids []string

	for _, desc := range []string{"primeira", "segunda", "terceira"} {
		d := newRecord("buraco", desc)
		require.NoError(t, repo.Create(ctx, d))

		ids = append([]string{d.ID}, ids...)
	}

	list, err = repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)

	for i, d := range list {
		assert.Equal(t, ids[i], d.ID)
	}
}

func TestRepositorySetImageURL(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepository(t)

	d := newRecord("buraco", "Big pothole")
	require.NoError(t, repo.Create(ctx, d))

	require.NoError(t, repo.SetImageURL(ctx, d.ID, "https://img/1.jpg"))
	// same URL again is a no-op
	require.NoError(t, repo.SetImageURL(ctx, d.ID, "https://img/1.jpg"))
	assert.ErrorIs(t, repo.SetImageURL(ctx, d.ID, "https://img/2.jpg"), ErrImageAlreadyAttached)
	assert.ErrorIs(t, repo.SetImageURL(ctx, "missing", "https://img/1.jpg"), ErrNotFound)

	got, err := repo.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://img/1.jpg", got.ImageURL)
}

func TestRepositoryUpdateVotes(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepository(t)

	d := newRecord("buraco", "Big pothole")
	require.NoError(t, repo.Create(ctx, d))

	toggle := func(user string, kind VoteKind) func(VoteSets) (VoteSets, error) {
		return func(v VoteSets) (VoteSets, error) { return v.Toggle(user, kind) }
	}

	v, err := repo.UpdateVotes(ctx, d.ID, toggle("a", VoteLike))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, v.Likes)

	v, err = repo.UpdateVotes(ctx, d.ID, toggle("b", VoteDislike))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, v.Likes)
	assert.Equal(t, []string{"b"}, v.Dislikes)

	v, err = repo.UpdateVotes(ctx, d.ID, toggle("a", VoteDislike))
	require.NoError(t, err)
	assert.Empty(t, v.Likes)
	assert.ElementsMatch(t, []string{"a", "b"}, v.Dislikes)

	got, err := repo.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Likes)
	assert.ElementsMatch(t, []string{"a", "b"}, got.Dislikes)
	assert.Equal(t, VoteDisliked, got.VoteState("a"))

	_, err = repo.UpdateVotes(ctx, "missing", toggle("a", VoteLike))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepositoryUpdateVotesFnErrorKeepsRow(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepository(t)

	d := newRecord("buraco", "Big pothole")
	require.NoError(t, repo.Create(ctx, d))

	boom := errors.New("boom")
	_, err := repo.UpdateVotes(ctx, d.ID, func(VoteSets) (VoteSets, error) { return VoteSets{}, boom })
	assert.ErrorIs(t, err, boom)

	got, err := repo.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Likes)
}

func TestRepositoryConcurrentVotes(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepository(t)

	d := newRecord("buraco", "Big pothole")
	require.NoError(t, repo.Create(ctx, d))

	users := []string{"a", "b", "c", "d", "e", "f", "g", "h"}

	var wg sync.WaitGroup

	for _, u := range users {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := repo.UpdateVotes(ctx, d.ID, func(v VoteSets) (VoteSets, error) {
				return v.Toggle(u, VoteLike)
			})
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	got, err := repo.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, users, got.Likes)
}

func TestRepositoryImport(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepository(t)

	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	a := newRecord("buraco", "A")
	a.ID = "seed-a"
	a.CreatedAt = created
	a.Likes = []string{"x"}
	a.ImageURL = "https://img/a.jpg"

	b := newRecord("transito", "B")
	b.ID = "seed-b"
	b.CreatedAt = created.Add(time.Hour)
	b.Status = StatusResolved

	n, err := repo.Import(ctx, []*Denunciation{a, b})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// already present ids are skipped
	n, err = repo.Import(ctx, []*Denunciation{a})
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "seed-b", list[0].ID)
	assert.Equal(t, StatusResolved, list[0].Status)
	assert.Equal(t, []string{"x"}, list[1].Likes)
	assert.Equal(t, "https://img/a.jpg", list[1].ImageURL)
	assert.True(t, created.Equal(list[1].CreatedAt.UTC()))
}

type snapshotRecorder struct {
	mu    sync.Mutex
	calls int
	last  []*Denunciation
}

func (r *snapshotRecorder) record(records []*Denunciation) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls++
	r.last = records
}

func (r *snapshotRecorder) latest() (int, []*Denunciation) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.calls, r.last
}

func TestRepositorySubscribe(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepository(t)

	first := newRecord("buraco", "existing")
	require.NoError(t, repo.Create(ctx, first))

	rec := &snapshotRecorder{}
	cancel, err := repo.Subscribe(ctx, rec.record)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, last := rec.latest()

		return len(last) == 1
	}, time.Second, 5*time.Millisecond)

	second := newRecord("transito", "new one")
	require.NoError(t, repo.Create(ctx, second))

	require.Eventually(t, func() bool {
		_, last := rec.latest()

		return len(last) == 2 && last[0].ID == second.ID
	}, time.Second, 5*time.Millisecond)

	_, err = repo.UpdateVotes(ctx, second.ID, func(v VoteSets) (VoteSets, error) { return v.Toggle("u", VoteLike) })
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, last := rec.latest()

		return len(last) == 2 && len(last[0].Likes) == 1
	}, time.Second, 5*time.Millisecond)

	// snapshots are copies
	_, last := rec.latest()
	last[0].Likes[0] = "tampered"

	cancel()
	cancel()

	calls, _ := rec.latest()

	require.NoError(t, repo.Create(ctx, newRecord("buraco", "after cancel")))
	time.Sleep(20 * time.Millisecond)

	after, _ := rec.latest()
	assert.Equal(t, calls, after)
	assert.False(t, repo.feed.active())

	got, err := repo.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"u"}, got.Likes)
}

func TestRepositorySubscribeStopsWithContext(t *testing.T) {
	repo := setupTestRepository(t)
	ctx, cancel := context.WithCancel(context.Background())

	_, err := repo.Subscribe(ctx, func([]*Denunciation) {})
	require.NoError(t, err)
	assert.True(t, repo.feed.active())

	cancel()

	assert.Eventually(t, func() bool { return !repo.feed.active() }, time.Second, 5*time.Millisecond)
}

func TestRepositoryDatabaseErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db, nil)
	ctx := context.Background()
	boom := errors.New("connection lost")

	mock.ExpectQuery("FROM denunciations").WithArgs("id-1").WillReturnError(boom)

	_, err = repo.Get(ctx, "id-1")
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNotFound)

	mock.ExpectQuery("INSERT INTO denunciations").WillReturnError(boom)

	d := newRecord("buraco", "Big pothole")
	err = repo.Create(ctx, d)
	require.ErrorIs(t, err, boom)
	assert.Empty(t, d.ID)

	mock.ExpectExec("UPDATE denunciations").WillReturnError(boom)
	assert.ErrorIs(t, repo.SetImageURL(ctx, "id-1", "https://img/1.jpg"), boom)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT likes, dislikes FROM denunciations").
		WithArgs("id-1").
		WillReturnRows(sqlmock.NewRows([]string{"likes", "dislikes"}))
	mock.ExpectRollback()

	_, err = repo.UpdateVotes(ctx, "id-1", func(v VoteSets) (VoteSets, error) { return v, nil })
	assert.ErrorIs(t, err, ErrNotFound)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT likes, dislikes FROM denunciations").WithArgs("id-1").WillReturnError(boom)
	mock.ExpectRollback()

	_, err = repo.UpdateVotes(ctx, "id-1", func(v VoteSets) (VoteSets, error) { return v, nil })
	assert.ErrorIs(t, err, boom)

	assert.NoError(t, mock.ExpectationsWereMet())
}
