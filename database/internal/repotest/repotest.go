// Package repotest holds behaviour tests shared by every metadata backend.
package repotest

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/pinvault"
)

func newRecord(name string, uploadedAt time.Time) pinvault.FileRecord {
	return pinvault.FileRecord{
		ID:          uuid.New(),
		DisplayName: name,
		StorageKey:  pinvault.NewStorageKey(name),
		SizeBytes:   42,
		MimeType:    "text/plain",
		UploadedAt:  uploadedAt,
	}
}

func assertSameRecord(t *testing.T, want, got pinvault.FileRecord) {
	t.Helper()
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.DisplayName, got.DisplayName)
	assert.Equal(t, want.StorageKey, got.StorageKey)
	assert.Equal(t, want.SizeBytes, got.SizeBytes)
	assert.Equal(t, want.MimeType, got.MimeType)
	assert.True(t, want.UploadedAt.Equal(got.UploadedAt), "uploadedAt: want %s, got %s", want.UploadedAt, got.UploadedAt)
}

// RunFileRepo exercises a FileRepo. newRepo must return an empty repo.
func RunFileRepo(t *testing.T, newRepo func(t *testing.T) pinvault.FileRepo) {
	t.Helper()

	t.Run("create and get", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Create(ctx, newRecord("a.txt", time.Now()))
		require.NoError(t, err)
		assert.Equal(t, time.UTC, created.UploadedAt.Location())

		got, err := repo.Get(ctx, created.ID)
		require.NoError(t, err)
		assertSameRecord(t, created, got)
	})

	t.Run("get unknown id", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.Get(context.Background(), uuid.New())
		assert.ErrorIs(t, err, pinvault.ErrNotFound)
	})

	t.Run("duplicate storage key rejected", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		first := newRecord("a.txt", time.Now())
		_, err := repo.Create(ctx, first)
		require.NoError(t, err)

		second := newRecord("b.txt", time.Now())
		second.StorageKey = first.StorageKey
		_, err = repo.Create(ctx, second)
		assert.Error(t, err)
	})

	t.Run("list empty", func(t *testing.T) {
		repo := newRepo(t)

		records, err := repo.List(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, records)
		assert.Empty(t, records)
	})

	t.Run("list newest first with ties by id", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
		oldest := newRecord("oldest.txt", base.Add(-time.Hour))
		tieA := newRecord("tie-a.txt", base)
		tieB := newRecord("tie-b.txt", base)
		newest := newRecord("newest.txt", base.Add(time.Second))
		// Sub-second precision must not be lost to text ordering.
		fraction := newRecord("fraction.txt", base.Add(500*time.Millisecond))

		for _, rec := range []pinvault.FileRecord{tieB, oldest, newest, fraction, tieA} {
			_, err := repo.Create(ctx, rec)
			require.NoError(t, err)
		}

		ties := []pinvault.FileRecord{tieA, tieB}
		sort.Slice(ties, func(i, j int) bool { return ties[i].ID.String() < ties[j].ID.String() })

		records, err := repo.List(ctx)
		require.NoError(t, err)

		var names []string
		for _, rec := range records {
			names = append(names, rec.DisplayName)
		}
		assert.Equal(t, []string{"newest.txt", "fraction.txt", ties[0].DisplayName, ties[1].DisplayName, "oldest.txt"}, names)

		again, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, records, again)
	})

	t.Run("rename changes display name only", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Create(ctx, newRecord("a.txt", time.Now()))
		require.NoError(t, err)

		require.NoError(t, repo.Rename(ctx, created.ID, "b.txt"))

		got, err := repo.Get(ctx, created.ID)
		require.NoError(t, err)

		want := created
		want.DisplayName = "b.txt"
		assertSameRecord(t, want, got)
	})

	t.Run("rename unknown id", func(t *testing.T) {
		repo := newRepo(t)

		err := repo.Rename(context.Background(), uuid.New(), "b.txt")
		assert.ErrorIs(t, err, pinvault.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		kept, err := repo.Create(ctx, newRecord("kept.txt", time.Now()))
		require.NoError(t, err)
		gone, err := repo.Create(ctx, newRecord("gone.txt", time.Now()))
		require.NoError(t, err)

		require.NoError(t, repo.Delete(ctx, gone.ID))

		_, err = repo.Get(ctx, gone.ID)
		assert.ErrorIs(t, err, pinvault.ErrNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, gone.ID), pinvault.ErrNotFound)

		records, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, kept.ID, records[0].ID)
	})
}

// RunCredentialRepo exercises a CredentialRepo. newRepo must return an empty repo.
func RunCredentialRepo(t *testing.T, newRepo func(t *testing.T) pinvault.CredentialRepo) {
	t.Helper()

	t.Run("get before put", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.Get(context.Background())
		assert.ErrorIs(t, err, pinvault.ErrNotFound)
	})

	t.Run("put and replace", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		first := pinvault.Credential{Kind: pinvault.CredentialPlain, Secret: "1234", UpdatedAt: time.Now().UTC()}
		require.NoError(t, repo.Put(ctx, first))

		got, err := repo.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, first.Kind, got.Kind)
		assert.Equal(t, first.Secret, got.Secret)
		assert.WithinDuration(t, first.UpdatedAt, got.UpdatedAt, time.Millisecond)

		second := pinvault.Credential{Kind: pinvault.CredentialHashed, Secret: "$2a$04$hash", UpdatedAt: time.Now().UTC()}
		require.NoError(t, repo.Put(ctx, second))

		got, err = repo.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, pinvault.CredentialHashed, got.Kind)
		assert.Equal(t, "$2a$04$hash", got.Secret)
	})
}
