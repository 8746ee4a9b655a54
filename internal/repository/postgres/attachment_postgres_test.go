package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"attachapi/internal/model"
	"attachapi/internal/repository"
)

var metaCols = []string{
	"id", "owner_id", "original_name", "declared_mime", "detected_mime",
	"size_bytes", "content_digest", "scan_status", "is_deleted", "created_at",
}

func sampleAttachment(now time.Time) *model.Attachment {
	return &model.Attachment{
		ID:            "att-1",
		OwnerID:       "user-1",
		OriginalName:  "report.pdf",
		DeclaredMime:  "application/pdf",
		DetectedMime:  "application/pdf",
		SizeBytes:     4,
		ContentDigest: "abcd",
		Payload:       []byte("%PDF"),
		ScanStatus:    model.ScanClean,
		CreatedAt:     now,
	}
}

func metaRow(a *model.Attachment) *sqlmock.Rows {
	return sqlmock.NewRows(metaCols).AddRow(
		a.ID, a.OwnerID, a.OriginalName, a.DeclaredMime, a.DetectedMime,
		a.SizeBytes, a.ContentDigest, string(a.ScanStatus), a.IsDeleted, a.CreatedAt,
	)
}

func TestAttachmentPostgres_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewAttachmentPostgres(db)
	ctx := context.Background()
	att := sampleAttachment(time.Now().UTC())

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO attachments").
		WithArgs(att.ID, att.OwnerID, att.OriginalName, att.DeclaredMime, att.DetectedMime,
			att.SizeBytes, att.ContentDigest, att.Payload, string(att.ScanStatus), att.IsDeleted, att.CreatedAt).
		WillReturnRows(metaRow(att))
	mock.ExpectCommit()

	result, err := repo.Create(ctx, att)

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, att.ID, result.ID)
	assert.Empty(t, result.Payload, "create must not echo the payload back")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachmentPostgres_Create_SizeMismatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewAttachmentPostgres(db)
	att := sampleAttachment(time.Now().UTC())
	att.SizeBytes = 999 // does not match len(Payload)

	result, err := repo.Create(context.Background(), att)

	assert.ErrorIs(t, err, repository.ErrIntegrity)
	assert.Nil(t, result)
	// No transaction should even begin.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachmentPostgres_FindByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewAttachmentPostgres(db)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		att := sampleAttachment(time.Now())
		mock.ExpectQuery("SELECT (.+) FROM attachments WHERE id = (.+) AND is_deleted = FALSE").
			WithArgs("att-1").
			WillReturnRows(metaRow(att))

		got, err := repo.FindByID(ctx, "att-1")

		assert.NoError(t, err)
		assert.Equal(t, "att-1", got.ID)
		assert.Equal(t, model.ScanClean, got.ScanStatus)
	})

	t.Run("soft-deleted rows look like not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM attachments WHERE id = (.+) AND is_deleted = FALSE").
			WithArgs("deleted-id").
			WillReturnError(sql.ErrNoRows)

		got, err := repo.FindByID(ctx, "deleted-id")

		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.Nil(t, got)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachmentPostgres_FindAny(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewAttachmentPostgres(db)

	// A soft-deleted row is still visible here; FindAny backs the delete
	// path's already-deleted reporting.
	att := sampleAttachment(time.Now())
	att.IsDeleted = true
	mock.ExpectQuery(`SELECT (.+) FROM attachments WHERE id = (.+)`).
		WithArgs("att-1").
		WillReturnRows(metaRow(att))

	got, err := repo.FindAny(context.Background(), "att-1")

	assert.NoError(t, err)
	assert.True(t, got.IsDeleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachmentPostgres_FindByDigest(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewAttachmentPostgres(db)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		att := sampleAttachment(time.Now())
		mock.ExpectQuery(`SELECT (.+) FROM attachments\s+WHERE content_digest = (.+) AND is_deleted = FALSE`).
			WithArgs("abcd").
			WillReturnRows(metaRow(att))

		got, err := repo.FindByDigest(ctx, "abcd")

		assert.NoError(t, err)
		assert.Equal(t, "abcd", got.ContentDigest)
	})

	t.Run("no match", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM attachments\s+WHERE content_digest = (.+) AND is_deleted = FALSE`).
			WithArgs("ffff").
			WillReturnError(sql.ErrNoRows)

		got, err := repo.FindByDigest(ctx, "ffff")

		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.Nil(t, got)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachmentPostgres_FindWithPayload(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewAttachmentPostgres(db)
	att := sampleAttachment(time.Now())

	cols := append(append([]string{}, metaCols...), "payload")
	rows := sqlmock.NewRows(cols).AddRow(
		att.ID, att.OwnerID, att.OriginalName, att.DeclaredMime, att.DetectedMime,
		att.SizeBytes, att.ContentDigest, string(att.ScanStatus), att.IsDeleted, att.CreatedAt,
		att.Payload,
	)
	mock.ExpectQuery("SELECT (.+), payload FROM attachments WHERE id = (.+) AND is_deleted = FALSE").
		WithArgs("att-1").
		WillReturnRows(rows)

	got, err := repo.FindWithPayload(context.Background(), "att-1")

	assert.NoError(t, err)
	assert.Equal(t, []byte("%PDF"), got.Payload)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachmentPostgres_SoftDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("first delete succeeds", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
		}
		defer db.Close()
		repo := NewAttachmentPostgres(db)

		mock.ExpectExec("UPDATE attachments SET is_deleted = TRUE").
			WithArgs("att-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.SoftDelete(ctx, "att-1"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("second delete reports already deleted", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
		}
		defer db.Close()
		repo := NewAttachmentPostgres(db)

		mock.ExpectExec("UPDATE attachments SET is_deleted = TRUE").
			WithArgs("att-1").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs("att-1").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		err = repo.SoftDelete(ctx, "att-1")
		assert.ErrorIs(t, err, repository.ErrAlreadyDeleted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown id reports not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
		}
		defer db.Close()
		repo := NewAttachmentPostgres(db)

		mock.ExpectExec("UPDATE attachments SET is_deleted = TRUE").
			WithArgs("ghost").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs("ghost").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		err = repo.SoftDelete(ctx, "ghost")
		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAttachmentPostgres_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewAttachmentPostgres(db)
	att := sampleAttachment(time.Now())

	t.Run("all owners", func(t *testing.T) {
		mock.ExpectQuery("SELECT COUNT").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectQuery("SELECT (.+) FROM attachments WHERE is_deleted = FALSE").
			WithArgs(10, 0).
			WillReturnRows(metaRow(att))

		res, err := repo.List(context.Background(), repository.AttachmentFilter{}, repository.PageQuery{Limit: 10, Offset: 0})

		assert.NoError(t, err)
		assert.Equal(t, 1, res.Total)
		assert.Len(t, res.Items, 1)
		assert.Empty(t, res.Items[0].Payload)
	})

	t.Run("filtered by owner", func(t *testing.T) {
		mock.ExpectQuery("SELECT COUNT").
			WithArgs("user-1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectQuery("AND owner_id").
			WithArgs("user-1", 5, 0).
			WillReturnRows(metaRow(att))

		res, err := repo.List(context.Background(), repository.AttachmentFilter{OwnerID: "user-1"}, repository.PageQuery{Limit: 5, Offset: 0})

		assert.NoError(t, err)
		assert.Equal(t, "user-1", res.Items[0].OwnerID)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
