package pinvault_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/pinvault"
)

type SpyFileRepo struct {
	mock.Mock
}

func (s *SpyFileRepo) Create(ctx context.Context, rec pinvault.FileRecord) (pinvault.FileRecord, error) {
	args := s.Called(ctx, rec)
	return args.Get(0).(pinvault.FileRecord), args.Error(1)
}

func (s *SpyFileRepo) Get(ctx context.Context, id uuid.UUID) (pinvault.FileRecord, error) {
	args := s.Called(ctx, id)
	return args.Get(0).(pinvault.FileRecord), args.Error(1)
}

func (s *SpyFileRepo) List(ctx context.Context) ([]pinvault.FileRecord, error) {
	args := s.Called(ctx)
	return args.Get(0).([]pinvault.FileRecord), args.Error(1)
}

func (s *SpyFileRepo) Rename(ctx context.Context, id uuid.UUID, displayName string) error {
	args := s.Called(ctx, id, displayName)
	return args.Error(0)
}

func (s *SpyFileRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := s.Called(ctx, id)
	return args.Error(0)
}

type SpyObjectStore struct {
	mock.Mock
}

// Put drains content so the spy observes what a real backend would.
func (s *SpyObjectStore) Put(ctx context.Context, key, contentType string, content io.Reader) (pinvault.SaveResult, error) {
	args := s.Called(ctx, key, contentType, content)
	if err := args.Error(1); err != nil {
		return pinvault.SaveResult{}, err
	}
	n, err := io.Copy(io.Discard, content)
	if err != nil {
		return pinvault.SaveResult{}, err
	}
	res := args.Get(0).(pinvault.SaveResult)
	res.BytesWritten = n
	return res, nil
}

func (s *SpyObjectStore) Delete(ctx context.Context, key string) error {
	args := s.Called(ctx, key)
	return args.Error(0)
}

func (s *SpyObjectStore) SignedURL(ctx context.Context, key string, opts pinvault.SignOptions) (string, error) {
	args := s.Called(ctx, key, opts)
	return args.String(0), args.Error(1)
}

func (s *SpyObjectStore) List(ctx context.Context, prefix string) ([]string, error) {
	args := s.Called(ctx, prefix)
	return args.Get(0).([]string), args.Error(1)
}

func NewFileService(t *testing.T, cfg pinvault.ServiceConfig) (*pinvault.FileService, *SpyFileRepo, *SpyObjectStore) {
	t.Helper()
	spyRepo := new(SpyFileRepo)
	spyStore := new(SpyObjectStore)
	s, err := pinvault.NewFileService(spyRepo, spyStore, cfg)
	require.NoError(t, err, "new file service")
	return s, spyRepo, spyStore
}

func echoCreate(args mock.Arguments) pinvault.FileRecord {
	return args.Get(1).(pinvault.FileRecord)
}

func TestNewFileService(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		s, _, _ := NewFileService(t, pinvault.ServiceConfig{})
		assert.Equal(t, pinvault.DefaultMaxUploadSize, s.MaxUploadSize())
	})

	t.Run("nil store", func(t *testing.T) {
		_, err := pinvault.NewFileService(new(SpyFileRepo), nil, pinvault.ServiceConfig{})
		assert.Error(t, err)
	})
}

func TestFileService_Upload(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		service, repo, store := NewFileService(t, pinvault.ServiceConfig{})
		ctx := context.Background()

		store.On("Put", ctx, mock.MatchedBy(func(key string) bool {
			return strings.HasPrefix(key, "uploads/") && strings.HasSuffix(key, ".txt")
		}), "text/plain", mock.Anything).Return(pinvault.SaveResult{BytesWritten: 5}, nil)

		var created pinvault.FileRecord
		repo.On("Create", ctx, mock.Anything).
			Run(func(args mock.Arguments) { created = echoCreate(args) }).
			Return(pinvault.FileRecord{}, nil).Once()

		_, err := service.Upload(ctx, pinvault.NewFile{DisplayName: "a.txt", MimeType: "text/plain", Size: 5}, strings.NewReader("hello"))
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, created.ID)
		assert.Equal(t, "a.txt", created.DisplayName)
		assert.Equal(t, int64(5), created.SizeBytes)
		assert.Equal(t, "text/plain", created.MimeType)
		assert.False(t, created.UploadedAt.IsZero())
		assert.True(t, strings.HasPrefix(created.StorageKey, pinvault.StorageKeyPrefix))

		store.AssertExpectations(t)
		repo.AssertExpectations(t)
	})

	t.Run("empty mime type defaults to octet-stream", func(t *testing.T) {
		service, repo, store := NewFileService(t, pinvault.ServiceConfig{})
		ctx := context.Background()

		store.On("Put", ctx, mock.Anything, pinvault.DefaultMimeType, mock.Anything).Return(pinvault.SaveResult{}, nil)
		repo.On("Create", ctx, mock.MatchedBy(func(rec pinvault.FileRecord) bool {
			return rec.MimeType == pinvault.DefaultMimeType
		})).Return(pinvault.FileRecord{}, nil)

		_, err := service.Upload(ctx, pinvault.NewFile{DisplayName: "blob"}, strings.NewReader("x"))
		require.NoError(t, err)

		store.AssertExpectations(t)
		repo.AssertExpectations(t)
	})

	t.Run("missing file", func(t *testing.T) {
		service, repo, store := NewFileService(t, pinvault.ServiceConfig{})

		_, err := service.Upload(context.Background(), pinvault.NewFile{}, strings.NewReader("x"))
		assert.ErrorIs(t, err, pinvault.ErrMissingFile)

		store.AssertNotCalled(t, "Put")
		repo.AssertNotCalled(t, "Create")
	})

	t.Run("declared size over ceiling rejected before any object write", func(t *testing.T) {
		service, repo, store := NewFileService(t, pinvault.ServiceConfig{MaxUploadSize: 10})

		_, err := service.Upload(context.Background(), pinvault.NewFile{DisplayName: "big.bin", Size: 11}, strings.NewReader(strings.Repeat("x", 11)))
		assert.ErrorIs(t, err, pinvault.ErrPayloadTooLarge)

		store.AssertNotCalled(t, "Put")
		repo.AssertNotCalled(t, "Create")
	})

	t.Run("undeclared oversize body fails", func(t *testing.T) {
		service, repo, store := NewFileService(t, pinvault.ServiceConfig{MaxUploadSize: 10})
		ctx := context.Background()

		store.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).Return(pinvault.SaveResult{}, nil)

		_, err := service.Upload(ctx, pinvault.NewFile{DisplayName: "big.bin"}, strings.NewReader(strings.Repeat("x", 11)))
		assert.ErrorIs(t, err, pinvault.ErrPayloadTooLarge)
		assert.NotErrorIs(t, err, pinvault.ErrStorage)

		repo.AssertNotCalled(t, "Create")
	})

	t.Run("body exactly at ceiling accepted", func(t *testing.T) {
		service, repo, store := NewFileService(t, pinvault.ServiceConfig{MaxUploadSize: 10})
		ctx := context.Background()

		store.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).Return(pinvault.SaveResult{}, nil)
		repo.On("Create", ctx, mock.MatchedBy(func(rec pinvault.FileRecord) bool {
			return rec.SizeBytes == 10
		})).Return(pinvault.FileRecord{}, nil)

		_, err := service.Upload(ctx, pinvault.NewFile{DisplayName: "ok.bin", Size: 10}, strings.NewReader(strings.Repeat("x", 10)))
		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("object write failure leaves no metadata", func(t *testing.T) {
		service, repo, store := NewFileService(t, pinvault.ServiceConfig{})
		ctx := context.Background()

		store.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).Return(pinvault.SaveResult{}, errors.New("bucket unreachable"))

		_, err := service.Upload(ctx, pinvault.NewFile{DisplayName: "a.txt"}, strings.NewReader("x"))
		assert.ErrorIs(t, err, pinvault.ErrStorage)

		repo.AssertNotCalled(t, "Create")
	})

	t.Run("metadata failure leaves blob in place", func(t *testing.T) {
		service, repo, store := NewFileService(t, pinvault.ServiceConfig{})
		ctx := context.Background()

		store.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).Return(pinvault.SaveResult{}, nil)
		repo.On("Create", ctx, mock.Anything).Return(pinvault.FileRecord{}, errors.New("db down"))

		_, err := service.Upload(ctx, pinvault.NewFile{DisplayName: "a.txt"}, strings.NewReader("x"))
		assert.ErrorIs(t, err, pinvault.ErrStorage)

		store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("context cancelled", func(t *testing.T) {
		service, repo, store := NewFileService(t, pinvault.ServiceConfig{})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := service.Upload(ctx, pinvault.NewFile{DisplayName: "a.txt"}, strings.NewReader("x"))
		assert.ErrorIs(t, err, context.Canceled)

		store.AssertNotCalled(t, "Put")
		repo.AssertNotCalled(t, "Create")
	})
}

func TestFileService_List(t *testing.T) {
	t.Run("returns records in repo order", func(t *testing.T) {
		service, repo, _ := NewFileService(t, pinvault.ServiceConfig{})
		ctx := context.Background()

		records := []pinvault.FileRecord{
			{ID: uuid.New(), DisplayName: "b.txt", UploadedAt: time.Now()},
			{ID: uuid.New(), DisplayName: "a.txt", UploadedAt: time.Now().Add(-time.Minute)},
		}
		repo.On("List", ctx).Return(records, nil)

		first, err := service.List(ctx)
		require.NoError(t, err)
		second, err := service.List(ctx)
		require.NoError(t, err)

		assert.Equal(t, records, first)
		assert.Equal(t, first, second)
	})

	t.Run("empty is not nil", func(t *testing.T) {
		service, repo, _ := NewFileService(t, pinvault.ServiceConfig{})
		ctx := context.Background()

		repo.On("List", ctx).Return([]pinvault.FileRecord(nil), nil)

		files, err := service.List(ctx)
		require.NoError(t, err)
		assert.NotNil(t, files)
		assert.Empty(t, files)
	})

	t.Run("repo error", func(t *testing.T) {
		service, repo, _ := NewFileService(t, pinvault.ServiceConfig{})
		ctx := context.Background()

		repo.On("List", ctx).Return([]pinvault.FileRecord(nil), errors.New("db down"))

		_, err := service.List(ctx)
		assert.ErrorIs(t, err, pinvault.ErrStorage)
	})
}

func TestFileService_Rename(t *testing.T) {
	id := uuid.New()

	t.Run("stores trimmed name", func(t *testing.T) {
		service, repo, _ := NewFileService(t, pinvault.ServiceConfig{})
		ctx := context.Background()

		repo.On("Rename", ctx, id, "b.txt").Return(nil)

		err := service.Rename(ctx, id.String(), "  b.txt  ")
		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("blank name rejected before lookup", func(t *testing.T) {
		service, repo, _ := NewFileService(t, pinvault.ServiceConfig{})

		for _, name := range []string{"", "   ", "\t\n"} {
			err := service.Rename(context.Background(), id.String(), name)
			assert.ErrorIs(t, err, pinvault.ErrInvalidArgument)
		}

		err := service.Rename(context.Background(), "not-a-uuid", " ")
		assert.ErrorIs(t, err, pinvault.ErrInvalidArgument)

		repo.AssertNotCalled(t, "Rename")
	})

	t.Run("unknown id", func(t *testing.T) {
		service, repo, _ := NewFileService(t, pinvault.ServiceConfig{})
		ctx := context.Background()

		repo.On("Rename", ctx, id, "b.txt").Return(pinvault.ErrNotFound)

		err := service.Rename(ctx, id.String(), "b.txt")
		assert.ErrorIs(t, err, pinvault.ErrNotFound)
	})

	t.Run("malformed id is not found", func(t *testing.T) {
		service, repo, _ := NewFileService(t, pinvault.ServiceConfig{})

		err := service.Rename(context.Background(), "nope", "b.txt")
		assert.ErrorIs(t, err, pinvault.ErrNotFound)
		repo.AssertNotCalled(t, "Rename")
	})
}

func TestFileService_PreviewAndDownloadURL(t *testing.T) {
	rec := pinvault.FileRecord{
		ID:          uuid.New(),
		DisplayName: "report.pdf",
		StorageKey:  "uploads/abc.pdf",
		MimeType:    "application/pdf",
	}

	t.Run("preview omits disposition", func(t *testing.T) {
		service, repo, store := NewFileService(t, pinvault.ServiceConfig{})
		ctx := context.Background()

		repo.On("Get", ctx, rec.ID).Return(rec, nil)
		store.On("SignedURL", ctx, rec.StorageKey, pinvault.SignOptions{
			Expires:     time.Hour,
			ContentType: "application/pdf",
		}).Return("https://signed/preview", nil)

		got, err := service.PreviewURL(ctx, rec.ID.String())
		require.NoError(t, err)
		assert.Equal(t, pinvault.SignedFile{URL: "https://signed/preview", DisplayName: "report.pdf", MimeType: "application/pdf"}, got)
		store.AssertExpectations(t)
	})

	t.Run("download sets attachment disposition", func(t *testing.T) {
		service, repo, store := NewFileService(t, pinvault.ServiceConfig{URLExpiry: 10 * time.Minute})
		ctx := context.Background()

		repo.On("Get", ctx, rec.ID).Return(rec, nil)
		store.On("SignedURL", ctx, rec.StorageKey, pinvault.SignOptions{
			Expires:            10 * time.Minute,
			ContentDisposition: `attachment; filename="report.pdf"`,
			ContentType:        "application/pdf",
		}).Return("https://signed/download", nil)

		got, err := service.DownloadURL(ctx, rec.ID.String())
		require.NoError(t, err)
		assert.Equal(t, "https://signed/download", got.URL)
		assert.Equal(t, "report.pdf", got.DisplayName)
		store.AssertExpectations(t)
	})

	t.Run("unknown id", func(t *testing.T) {
		service, repo, store := NewFileService(t, pinvault.ServiceConfig{})
		ctx := context.Background()

		repo.On("Get", ctx, rec.ID).Return(pinvault.FileRecord{}, pinvault.ErrNotFound)

		_, err := service.PreviewURL(ctx, rec.ID.String())
		assert.ErrorIs(t, err, pinvault.ErrNotFound)
		_, err = service.DownloadURL(ctx, rec.ID.String())
		assert.ErrorIs(t, err, pinvault.ErrNotFound)

		store.AssertNotCalled(t, "SignedURL")
	})

	t.Run("missing id", func(t *testing.T) {
		service, _, _ := NewFileService(t, pinvault.ServiceConfig{})

		_, err := service.DownloadURL(context.Background(), "")
		assert.ErrorIs(t, err, pinvault.ErrMissingField)
	})

	t.Run("signing failure", func(t *testing.T) {
		service, repo, store := NewFileService(t, pinvault.ServiceConfig{})
		ctx := context.Background()

		repo.On("Get", ctx, rec.ID).Return(rec, nil)
		store.On("SignedURL", ctx, rec.StorageKey, mock.Anything).Return("", errors.New("no credentials"))

		_, err := service.PreviewURL(ctx, rec.ID.String())
		assert.ErrorIs(t, err, pinvault.ErrStorage)
	})
}

func TestFileService_Delete(t *testing.T) {
	rec := pinvault.FileRecord{ID: uuid.New(), StorageKey: "uploads/abc.txt"}

	t.Run("blob first then metadata", func(t *testing.T) {
		service, repo, store := NewFileService(t, pinvault.ServiceConfig{})
		ctx := context.Background()

		var order []string
		repo.On("Get", ctx, rec.ID).Return(rec, nil)
		store.On("Delete", ctx, rec.StorageKey).Run(func(mock.Arguments) { order = append(order, "blob") }).Return(nil)
		repo.On("Delete", ctx, rec.ID).Run(func(mock.Arguments) { order = append(order, "record") }).Return(nil)

		err := service.Delete(ctx, rec.ID.String())
		require.NoError(t, err)
		assert.Equal(t, []string{"blob", "record"}, order)
	})

	t.Run("missing blob tolerated", func(t *testing.T) {
		service, repo, store := NewFileService(t, pinvault.ServiceConfig{})
		ctx := context.Background()

		repo.On("Get", ctx, rec.ID).Return(rec, nil)
		store.On("Delete", ctx, rec.StorageKey).Return(pinvault.ErrNotFound)
		repo.On("Delete", ctx, rec.ID).Return(nil)

		assert.NoError(t, service.Delete(ctx, rec.ID.String()))
		repo.AssertExpectations(t)
	})

	t.Run("blob delete failure keeps record", func(t *testing.T) {
		service, repo, store := NewFileService(t, pinvault.ServiceConfig{})
		ctx := context.Background()

		repo.On("Get", ctx, rec.ID).Return(rec, nil)
		store.On("Delete", ctx, rec.StorageKey).Return(errors.New("bucket unreachable"))

		err := service.Delete(ctx, rec.ID.String())
		assert.ErrorIs(t, err, pinvault.ErrStorage)
		repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("unknown id", func(t *testing.T) {
		service, repo, store := NewFileService(t, pinvault.ServiceConfig{})
		ctx := context.Background()

		repo.On("Get", ctx, rec.ID).Return(pinvault.FileRecord{}, pinvault.ErrNotFound)

		err := service.Delete(ctx, rec.ID.String())
		assert.ErrorIs(t, err, pinvault.ErrNotFound)
		store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}

func TestFileService_Reconcile(t *testing.T) {
	kept := pinvault.FileRecord{ID: uuid.New(), StorageKey: "uploads/kept.txt"}
	dangling := pinvault.FileRecord{ID: uuid.New(), StorageKey: "uploads/gone.txt"}
	blobs := []string{"uploads/orphan-b.txt", "uploads/kept.txt", "uploads/orphan-a.txt"}

	t.Run("dry run reports without deleting", func(t *testing.T) {
		service, repo, store := NewFileService(t, pinvault.ServiceConfig{})
		ctx := context.Background()

		store.On("List", ctx, pinvault.StorageKeyPrefix).Return(blobs, nil)
		repo.On("List", ctx).Return([]pinvault.FileRecord{kept, dangling}, nil)

		report, err := service.Reconcile(ctx, true)
		require.NoError(t, err)

		assert.Equal(t, []string{"uploads/orphan-a.txt", "uploads/orphan-b.txt"}, report.OrphanedBlobs)
		assert.Equal(t, []uuid.UUID{dangling.ID}, report.DanglingRecords)
		assert.Equal(t, 0, report.DeletedBlobs)
		assert.Equal(t, 3, report.ScannedBlobs)
		assert.Equal(t, 2, report.ScannedRecords)
		store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("deletes orphans only", func(t *testing.T) {
		service, repo, store := NewFileService(t, pinvault.ServiceConfig{})
		ctx := context.Background()

		store.On("List", ctx, pinvault.StorageKeyPrefix).Return(blobs, nil)
		repo.On("List", ctx).Return([]pinvault.FileRecord{kept, dangling}, nil)
		store.On("Delete", ctx, "uploads/orphan-a.txt").Return(nil)
		store.On("Delete", ctx, "uploads/orphan-b.txt").Return(pinvault.ErrNotFound)

		report, err := service.Reconcile(ctx, false)
		require.NoError(t, err)

		assert.Equal(t, 2, report.DeletedBlobs)
		store.AssertExpectations(t)
		repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("store list error", func(t *testing.T) {
		service, _, store := NewFileService(t, pinvault.ServiceConfig{})
		ctx := context.Background()

		store.On("List", ctx, pinvault.StorageKeyPrefix).Return([]string(nil), errors.New("denied"))

		_, err := service.Reconcile(ctx, true)
		assert.ErrorIs(t, err, pinvault.ErrStorage)
	})

	t.Run("delete failure stops sweep", func(t *testing.T) {
		service, repo, store := NewFileService(t, pinvault.ServiceConfig{})
		ctx := context.Background()

		store.On("List", ctx, pinvault.StorageKeyPrefix).Return([]string{"uploads/orphan-a.txt", "uploads/orphan-b.txt"}, nil)
		repo.On("List", ctx).Return([]pinvault.FileRecord{}, nil)
		store.On("Delete", ctx, "uploads/orphan-a.txt").Return(errors.New("denied"))

		report, err := service.Reconcile(ctx, false)
		assert.ErrorIs(t, err, pinvault.ErrStorage)
		assert.Equal(t, 0, report.DeletedBlobs)
		store.AssertNotCalled(t, "Delete", ctx, "uploads/orphan-b.txt")
	})
}

func TestFileService_UploadRenameList(t *testing.T) {
	service, repo, store := NewFileService(t, pinvault.ServiceConfig{})
	ctx := context.Background()

	var stored pinvault.FileRecord
	store.On("Put", ctx, mock.Anything, "text/plain", mock.Anything).Return(pinvault.SaveResult{}, nil)
	repo.On("Create", ctx, mock.Anything).
		Run(func(args mock.Arguments) { stored = echoCreate(args) }).
		Return(pinvault.FileRecord{}, nil)

	_, err := service.Upload(ctx, pinvault.NewFile{DisplayName: "a.txt", MimeType: "text/plain"}, bytes.NewReader([]byte("hello")))
	require.NoError(t, err)

	repo.On("Rename", ctx, stored.ID, "b.txt").Run(func(args mock.Arguments) {
		stored.DisplayName = args.String(2)
	}).Return(nil)
	require.NoError(t, service.Rename(ctx, stored.ID.String(), "b.txt"))

	repo.On("List", ctx).Return([]pinvault.FileRecord{stored}, nil)

	files, err := service.List(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "b.txt", files[0].DisplayName)
	assert.Equal(t, int64(5), files[0].SizeBytes)
}
