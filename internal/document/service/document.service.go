package service

import (
	"context"
	"database/sql"
	"errors"

	"docsearch/config/database"
	"docsearch/internal/document/model"
	"docsearch/internal/document/repository"
	"docsearch/socket"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrNoResults = errors.New("no results found")
)

// Session is the request-scoped unit of work the service runs against.
// *session.Session satisfies it.
type Session interface {
	repository.DBTX
	Commit() error
}

// Publisher receives committed document changes. *socket.Hub satisfies it.
type Publisher interface {
	Publish(ev socket.Event)
}

type DocumentService struct {
	Dialect database.Dialect
	Events  Publisher
}

// NewDocumentService builds a service for the given dialect. events may be
// nil, in which case changes are not broadcast.
func NewDocumentService(dialect database.Dialect, events Publisher) *DocumentService {
	return &DocumentService{Dialect: dialect, Events: events}
}

func (s *DocumentService) repo(sess Session) *repository.DocumentRepository {
	return repository.NewDocumentRepository(sess, s.Dialect)
}

func (s *DocumentService) ListDocuments(ctx context.Context, sess Session) ([]model.Document, error) {
	return s.repo(sess).List(ctx)
}

// SearchDocuments matches params.Query against titles. An empty result is
// reported as ErrNoResults rather than an empty slice.
func (s *DocumentService) SearchDocuments(ctx context.Context, sess Session, params model.SearchParams) ([]model.Document, error) {
	docs, err := s.repo(sess).Search(ctx, params.Query, params.Limit, params.Offset)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNoResults
	}
	return docs, nil
}

func (s *DocumentService) CreateDocument(ctx context.Context, sess Session, title, content string) (model.Document, error) {
	doc, err := s.repo(sess).Create(ctx, title, content)
	if err != nil {
		return model.Document{}, err
	}
	if err := sess.Commit(); err != nil {
		return model.Document{}, err
	}
	s.publish(socket.CreatedType, doc.ID, &doc)
	return doc, nil
}

func (s *DocumentService) GetDocument(ctx context.Context, sess Session, id int64) (model.Document, error) {
	doc, err := s.repo(sess).GetByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Document{}, ErrNotFound
	}
	return doc, err
}

// UpdateDocument overwrites title and content. Concurrent updates to the
// same id are last-write-wins.
func (s *DocumentService) UpdateDocument(ctx context.Context, sess Session, id int64, title, content string) (model.Document, error) {
	doc, err := s.repo(sess).Update(ctx, id, title, content)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Document{}, ErrNotFound
	}
	if err != nil {
		return model.Document{}, err
	}
	if err := sess.Commit(); err != nil {
		return model.Document{}, err
	}
	s.publish(socket.UpdatedType, doc.ID, &doc)
	return doc, nil
}

func (s *DocumentService) DeleteDocument(ctx context.Context, sess Session, id int64) error {
	n, err := s.repo(sess).Delete(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	if err := sess.Commit(); err != nil {
		return err
	}
	s.publish(socket.DeletedType, id, nil)
	return nil
}

func (s *DocumentService) publish(typ string, id int64, doc *model.Document) {
	if s.Events == nil {
		return
	}
	s.Events.Publish(socket.Event{Type: typ, DocID: id, Document: doc})
}
