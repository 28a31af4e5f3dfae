package postgres

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/applyflow/applyflow/internal/core/domain"
)

func TestCommunicationRepo_Insert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCommunicationRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO communications")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))

	id, err := repo.Insert(context.Background(), &domain.Communication{
		ApplicantID: 7,
		MessageID:   "msg-9",
		ThreadID:    "thread-1",
		Direction:   domain.DirectionIncoming,
	})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if id != 11 {
		t.Errorf("Insert returned id %d, want 11", id)
	}
}

func TestCommunicationRepo_InsertDuplicateMessage(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCommunicationRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO communications")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	id, err := repo.Insert(context.Background(), &domain.Communication{
		ApplicantID: 7,
		MessageID:   "msg-9",
	})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if id != 0 {
		t.Errorf("Duplicate insert returned id %d, want 0", id)
	}
}

func TestCommunicationRepo_KnownMessageIDs(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCommunicationRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT message_id FROM communications")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"message_id"}).
			AddRow("msg-1").
			AddRow("msg-2"))

	known, err := repo.KnownMessageIDs(context.Background(), 7)
	if err != nil {
		t.Fatalf("KnownMessageIDs failed: %v", err)
	}
	if len(known) != 2 {
		t.Fatalf("Expected 2 known ids, got %d", len(known))
	}
	if _, ok := known["msg-2"]; !ok {
		t.Error("msg-2 missing from known set")
	}
}
