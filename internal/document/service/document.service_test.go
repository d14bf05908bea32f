package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"docsearch/config/database"
	"docsearch/internal/document/model"
	"docsearch/internal/migrate"
	"docsearch/internal/session"
	"docsearch/socket"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []socket.Event
}

func (r *recorder) Publish(ev socket.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

func setup(t *testing.T) (*session.Manager, *DocumentService, *recorder) {
	t.Helper()
	ctx := context.Background()
	url := "sqlite://" + filepath.Join(t.TempDir(), "docs.db")
	db, dialect, err := database.Connect(ctx, url, 1, time.Millisecond)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = migrate.NewRunner(dialect).Up(ctx, db)
	require.NoError(t, err)

	events := &recorder{}
	return session.NewManager(db), NewDocumentService(dialect, events), events
}

// inSession runs fn in a fresh session and closes it, as one request would.
func inSession(t *testing.T, m *session.Manager, fn func(sess *session.Session)) {
	t.Helper()
	sess := m.Open(context.Background())
	defer func() { require.NoError(t, sess.Close()) }()
	fn(sess)
}

func TestCreateIsVisibleToLaterSessions(t *testing.T) {
	m, svc, events := setup(t)
	ctx := context.Background()

	var created model.Document
	inSession(t, m, func(sess *session.Session) {
		var err error
		created, err = svc.CreateDocument(ctx, sess, "FastAPI Tutorial", "Learn FastAPI step by step.")
		require.NoError(t, err)
	})

	inSession(t, m, func(sess *session.Session) {
		got, err := svc.GetDocument(ctx, sess, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created, got)
	})
	assert.Equal(t, []string{socket.CreatedType}, events.types())
}

func TestSearchNoResults(t *testing.T) {
	m, svc, _ := setup(t)
	ctx := context.Background()

	inSession(t, m, func(sess *session.Session) {
		_, err := svc.CreateDocument(ctx, sess, "Python Tips", "")
		require.NoError(t, err)
	})

	inSession(t, m, func(sess *session.Session) {
		docs, err := svc.SearchDocuments(ctx, sess, model.SearchParams{Query: "python", Limit: 10})
		require.NoError(t, err)
		require.Len(t, docs, 1)

		_, err = svc.SearchDocuments(ctx, sess, model.SearchParams{Query: "xyz", Limit: 10})
		assert.ErrorIs(t, err, ErrNoResults)
	})
}

func TestEmptyQueryMatchesEveryTitle(t *testing.T) {
	m, svc, _ := setup(t)
	ctx := context.Background()

	var want []model.Document
	inSession(t, m, func(sess *session.Session) {
		for _, title := range []string{"a", "b", "c"} {
			doc, err := svc.CreateDocument(ctx, sess, title, "")
			require.NoError(t, err)
			want = append(want, doc)
		}
	})

	inSession(t, m, func(sess *session.Session) {
		docs, err := svc.SearchDocuments(ctx, sess, model.SearchParams{Query: "", Limit: 10})
		require.NoError(t, err)
		if diff := cmp.Diff(want, docs); diff != "" {
			t.Errorf("search mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestUpdateAndDeleteMissing(t *testing.T) {
	m, svc, events := setup(t)
	ctx := context.Background()

	inSession(t, m, func(sess *session.Session) {
		_, err := svc.UpdateDocument(ctx, sess, 42, "t", "c")
		assert.ErrorIs(t, err, ErrNotFound)

		err = svc.DeleteDocument(ctx, sess, 42)
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = svc.GetDocument(ctx, sess, 42)
		assert.ErrorIs(t, err, ErrNotFound)
	})
	assert.Empty(t, events.types())
}

func TestUpdateThenDelete(t *testing.T) {
	m, svc, events := setup(t)
	ctx := context.Background()

	var id int64
	inSession(t, m, func(sess *session.Session) {
		doc, err := svc.CreateDocument(ctx, sess, "A", "B")
		require.NoError(t, err)
		id = doc.ID

		updated, err := svc.UpdateDocument(ctx, sess, id, "A2", "B2")
		require.NoError(t, err)
		assert.Equal(t, model.Document{ID: id, Title: "A2", Content: "B2"}, updated)
	})

	inSession(t, m, func(sess *session.Session) {
		require.NoError(t, svc.DeleteDocument(ctx, sess, id))
	})

	inSession(t, m, func(sess *session.Session) {
		docs, err := svc.ListDocuments(ctx, sess)
		require.NoError(t, err)
		assert.Empty(t, docs)
	})
	assert.Equal(t, []string{socket.CreatedType, socket.UpdatedType, socket.DeletedType}, events.types())
}

func TestUncommittedWorkIsRolledBack(t *testing.T) {
	m, svc, _ := setup(t)
	ctx := context.Background()

	// Write through the repository without committing, as a handler that
	// failed midway would.
	inSession(t, m, func(sess *session.Session) {
		_, err := svc.repo(sess).Create(ctx, "orphan", "")
		require.NoError(t, err)
	})

	inSession(t, m, func(sess *session.Session) {
		docs, err := svc.ListDocuments(ctx, sess)
		require.NoError(t, err)
		assert.Empty(t, docs)
	})
}

func TestCommitFailureIsNotPublished(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO documents").
		WithArgs("A", "B").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "content"}).AddRow(1, "A", "B"))
	mock.ExpectCommit().WillReturnError(errors.New("disk full"))

	events := &recorder{}
	svc := NewDocumentService(database.Postgres(), events)
	sess := session.NewManager(db).Open(context.Background())
	defer sess.Close()

	_, err = svc.CreateDocument(context.Background(), sess, "A", "B")
	assert.ErrorContains(t, err, "disk full")
	assert.Empty(t, events.types())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNilPublisher(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM documents").WithArgs(int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	svc := NewDocumentService(database.Postgres(), nil)
	var sess Session = session.NewManager(db).Open(context.Background())

	assert.NoError(t, svc.DeleteDocument(context.Background(), sess, 1))
	assert.NoError(t, mock.ExpectationsWereMet())
}

var _ Session = (*session.Session)(nil)
