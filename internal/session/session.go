// Package session scopes database work to a single HTTP request.
//
// A Session begins a transaction lazily on its first statement. Handlers
// commit explicitly; whatever is left uncommitted when the session closes
// is rolled back. The middleware guarantees the session is closed on every
// exit path, including panics.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"docsearch/pkg/logger"
)

var ErrSessionClosed = errors.New("session is closed")

type contextKey string

const sessionKey contextKey = "session"

// Manager hands out sessions bound to a single database handle.
type Manager struct {
	DB *sql.DB
}

func NewManager(db *sql.DB) *Manager {
	return &Manager{DB: db}
}

// Open returns a new session. No connection is taken from the pool until
// the first statement runs.
func (m *Manager) Open(ctx context.Context) *Session {
	return &Session{db: m.DB, ctx: ctx}
}

// Session is a request-scoped unit of work. It is not safe for concurrent use.
type Session struct {
	db     *sql.DB
	ctx    context.Context
	mu     sync.Mutex
	tx     *sql.Tx
	closed bool
}

func (s *Session) begin() (*sql.Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	if s.tx != nil {
		return s.tx, nil
	}
	tx, err := s.db.BeginTx(s.ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	s.tx = tx
	return tx, nil
}

func (s *Session) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	tx, err := s.begin()
	if err != nil {
		return nil, err
	}
	return tx.ExecContext(ctx, query, args...)
}

func (s *Session) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	tx, err := s.begin()
	if err != nil {
		return nil, err
	}
	return tx.QueryContext(ctx, query, args...)
}

// Commit commits the pending transaction, if any. A later statement starts
// a fresh transaction.
func (s *Session) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Rollback discards the pending transaction, if any.
func (s *Session) Rollback() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rollbackLocked()
}

func (s *Session) rollbackLocked() error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback transaction: %w", err)
	}
	return nil
}

// Close rolls back uncommitted work and releases the connection. It is
// safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.rollbackLocked()
}

// Middleware opens one session per request and stores it in the request
// context. The session is always closed when the handler returns; if the
// handler panics the session is rolled back first and the panic re-raised.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := m.Open(r.Context())
		defer func() {
			if p := recover(); p != nil {
				if err := sess.Close(); err != nil {
					logger.Sugar.Errorf("Session rollback after panic failed: %v", err)
				}
				panic(p)
			}
			if err := sess.Close(); err != nil {
				logger.Sugar.Errorf("Session close failed: %v", err)
			}
		}()
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), sess)))
	})
}

func NewContext(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

func FromContext(ctx context.Context) (*Session, bool) {
	sess, ok := ctx.Value(sessionKey).(*Session)
	return sess, ok
}
