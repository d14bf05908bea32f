package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"docsearch/config/database"
	"docsearch/internal/document/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columns = []string{"id", "title", "content"}

func newRepo(t *testing.T, dialect database.Dialect) (*DocumentRepository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewDocumentRepository(db, dialect), mock
}

func TestList(t *testing.T) {
	repo, mock := newRepo(t, database.Postgres())

	mock.ExpectQuery(regexp.QuoteMeta(listQuery)).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(1, "FastAPI Tutorial", "Learn FastAPI step by step.").
			AddRow(2, nil, nil))

	docs, err := repo.List(context.Background())
	require.NoError(t, err)

	want := []model.Document{
		{ID: 1, Title: "FastAPI Tutorial", Content: "Learn FastAPI step by step."},
		{ID: 2},
	}
	if diff := cmp.Diff(want, docs); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListEmpty(t *testing.T) {
	repo, mock := newRepo(t, database.Postgres())

	mock.ExpectQuery(regexp.QuoteMeta(listQuery)).WillReturnRows(sqlmock.NewRows(columns))

	docs, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
}

func TestListQueryError(t *testing.T) {
	repo, mock := newRepo(t, database.Postgres())

	boom := errors.New("connection reset by peer")
	mock.ExpectQuery(regexp.QuoteMeta(listQuery)).WillReturnError(boom)

	_, err := repo.List(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestSearchPostgres(t *testing.T) {
	repo, mock := newRepo(t, database.Postgres())

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, title, content FROM documents WHERE title ILIKE $1 ESCAPE '\' ORDER BY id LIMIT $2 OFFSET $3`)).
		WithArgs("%python%", 10, 0).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(2, "Python Tips", "Best Python tricks for developers."))

	docs, err := repo.Search(context.Background(), "python", 10, 0)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Python Tips", docs[0].Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchSQLiteEscapesPattern(t *testing.T) {
	repo, mock := newRepo(t, database.SQLiteDialect())

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, title, content FROM documents WHERE title LIKE ? ESCAPE '\' ORDER BY id LIMIT ? OFFSET ?`)).
		WithArgs(`%50\%%`, 5, 20).
		WillReturnRows(sqlmock.NewRows(columns))

	docs, err := repo.Search(context.Background(), "50%", 5, 20)
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate(t *testing.T) {
	repo, mock := newRepo(t, database.Postgres())

	mock.ExpectQuery(regexp.QuoteMeta(insertQuery)).
		WithArgs("A", "B").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(1, "A", "B"))

	doc, err := repo.Create(context.Background(), "A", "B")
	require.NoError(t, err)
	assert.Equal(t, model.Document{ID: 1, Title: "A", Content: "B"}, doc)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID(t *testing.T) {
	repo, mock := newRepo(t, database.Postgres())

	mock.ExpectQuery(regexp.QuoteMeta(getQuery)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(7, "T", "C"))
	mock.ExpectQuery(regexp.QuoteMeta(getQuery)).
		WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows(columns))

	doc, err := repo.GetByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), doc.ID)

	_, err = repo.GetByID(context.Background(), 8)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate(t *testing.T) {
	repo, mock := newRepo(t, database.Postgres())

	mock.ExpectQuery(regexp.QuoteMeta(updateQuery)).
		WithArgs("New", "Body", int64(3)).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(3, "New", "Body"))
	mock.ExpectQuery(regexp.QuoteMeta(updateQuery)).
		WithArgs("New", "Body", int64(4)).
		WillReturnRows(sqlmock.NewRows(columns))

	doc, err := repo.Update(context.Background(), 3, "New", "Body")
	require.NoError(t, err)
	assert.Equal(t, model.Document{ID: 3, Title: "New", Content: "Body"}, doc)

	_, err = repo.Update(context.Background(), 4, "New", "Body")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete(t *testing.T) {
	repo, mock := newRepo(t, database.SQLiteDialect())

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM documents WHERE id = ?`)).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM documents WHERE id = ?`)).
		WithArgs(int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	n, err := repo.Delete(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.Delete(context.Background(), 2)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
