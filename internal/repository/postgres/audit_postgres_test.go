package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"attachapi/internal/model"
	"attachapi/internal/repository"
)

func TestAuditPostgres_Insert(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewAuditPostgres(db)
	now := time.Now().UTC()
	rec := &model.AuditRecord{
		ID:           "audit-1",
		ActorID:      "user-1",
		Action:       model.AuditDeleteDenied,
		ResourceType: "attachment",
		ResourceID:   "att-1",
		IPAddress:    "10.0.0.1",
		Metadata:     map[string]any{"reason": "operation restricted to the resource owner"},
		CreatedAt:    now,
	}

	rows := sqlmock.NewRows([]string{"id", "actor_id", "action", "resource_type", "resource_id", "ip_address", "created_at"}).
		AddRow(rec.ID, rec.ActorID, string(rec.Action), rec.ResourceType, rec.ResourceID, rec.IPAddress, rec.CreatedAt)

	mock.ExpectQuery("INSERT INTO audit_logs").
		WithArgs(rec.ID, rec.ActorID, string(rec.Action), rec.ResourceType, rec.ResourceID,
			rec.IPAddress, sqlmock.AnyArg(), rec.CreatedAt).
		WillReturnRows(rows)

	out, err := repo.Insert(context.Background(), rec)

	assert.NoError(t, err)
	assert.Equal(t, model.AuditDeleteDenied, out.Action)
	assert.Equal(t, rec.Metadata, out.Metadata)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditPostgres_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewAuditPostgres(db)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("user-1", "DELETE").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	rows := sqlmock.NewRows([]string{"id", "actor_id", "action", "resource_type", "resource_id", "ip_address", "metadata", "created_at"}).
		AddRow("audit-1", "user-1", "DELETE", "attachment", "att-1", "10.0.0.1", []byte(`{"filename":"report.pdf"}`), now)

	mock.ExpectQuery("SELECT (.+) FROM audit_logs").
		WithArgs("user-1", "DELETE", 10, 0).
		WillReturnRows(rows)

	res, err := repo.List(context.Background(),
		repository.AuditFilter{ActorID: "user-1", Action: model.AuditDelete},
		repository.PageQuery{Limit: 10, Offset: 0})

	assert.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	assert.Len(t, res.Items, 1)
	assert.Equal(t, "report.pdf", res.Items[0].Metadata["filename"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
