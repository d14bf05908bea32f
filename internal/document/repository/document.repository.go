package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"docsearch/config/database"
	"docsearch/internal/document/model"
	"docsearch/pkg/logger"
)

// DBTX is the subset of *sql.DB, *sql.Tx and *session.Session the
// repository needs.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

const (
	listQuery   = `SELECT id, title, content FROM documents ORDER BY id`
	getQuery    = `SELECT id, title, content FROM documents WHERE id = $1`
	insertQuery = `INSERT INTO documents (title, content) VALUES ($1, $2) RETURNING id, title, content`
	updateQuery = `UPDATE documents SET title = $1, content = $2 WHERE id = $3 RETURNING id, title, content`
	deleteQuery = `DELETE FROM documents WHERE id = $1`
)

type DocumentRepository struct {
	DB      DBTX
	Dialect database.Dialect
}

func NewDocumentRepository(db DBTX, dialect database.Dialect) *DocumentRepository {
	return &DocumentRepository{DB: db, Dialect: dialect}
}

func (r *DocumentRepository) List(ctx context.Context) ([]model.Document, error) {
	docs, err := r.queryAll(ctx, listQuery)
	if err != nil {
		logger.Sugar.Errorf("Failed to list documents: %v", err)
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// Search returns documents whose title contains query, ignoring case,
// skipping offset matches and returning at most limit.
func (r *DocumentRepository) Search(ctx context.Context, query string, limit, offset int) ([]model.Document, error) {
	q := `SELECT id, title, content FROM documents WHERE ` + r.Dialect.ContainsFold("title", 1) +
		` ORDER BY id LIMIT $2 OFFSET $3`
	docs, err := r.queryAll(ctx, q, database.ContainsPattern(query), limit, offset)
	if err != nil {
		logger.Sugar.Errorf("Failed to search documents for %q: %v", query, err)
		return nil, fmt.Errorf("search documents: %w", err)
	}
	return docs, nil
}

func (r *DocumentRepository) Create(ctx context.Context, title, content string) (model.Document, error) {
	doc, err := r.queryOne(ctx, insertQuery, title, content)
	if err != nil {
		logger.Sugar.Errorf("Failed to create document: %v", err)
		return model.Document{}, fmt.Errorf("create document: %w", err)
	}
	return doc, nil
}

// GetByID returns sql.ErrNoRows when no document has the id.
func (r *DocumentRepository) GetByID(ctx context.Context, id int64) (model.Document, error) {
	doc, err := r.queryOne(ctx, getQuery, id)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			logger.Sugar.Errorf("Failed to get doc %d: %v", id, err)
		}
		return model.Document{}, fmt.Errorf("get document %d: %w", id, err)
	}
	return doc, nil
}

// Update overwrites title and content and returns the stored row, or
// sql.ErrNoRows when no document has the id.
func (r *DocumentRepository) Update(ctx context.Context, id int64, title, content string) (model.Document, error) {
	doc, err := r.queryOne(ctx, updateQuery, title, content, id)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			logger.Sugar.Errorf("Failed to update doc %d: %v", id, err)
		}
		return model.Document{}, fmt.Errorf("update document %d: %w", id, err)
	}
	return doc, nil
}

// Delete removes the document and reports how many rows went away.
func (r *DocumentRepository) Delete(ctx context.Context, id int64) (int64, error) {
	result, err := r.DB.ExecContext(ctx, r.Dialect.Rebind(deleteQuery), id)
	if err != nil {
		logger.Sugar.Errorf("Failed to delete doc %d: %v", id, err)
		return 0, fmt.Errorf("delete document %d: %w", id, err)
	}
	return result.RowsAffected()
}

func (r *DocumentRepository) queryAll(ctx context.Context, query string, args ...any) ([]model.Document, error) {
	rows, err := r.DB.QueryContext(ctx, r.Dialect.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []model.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (r *DocumentRepository) queryOne(ctx context.Context, query string, args ...any) (model.Document, error) {
	rows, err := r.DB.QueryContext(ctx, r.Dialect.Rebind(query), args...)
	if err != nil {
		return model.Document{}, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return model.Document{}, err
		}
		return model.Document{}, sql.ErrNoRows
	}
	doc, err := scanDocument(rows)
	if err != nil {
		return model.Document{}, err
	}
	return doc, rows.Close()
}

// title and content are nullable columns; NULL reads as "".
func scanDocument(rows *sql.Rows) (model.Document, error) {
	var doc model.Document
	var title, content sql.NullString
	if err := rows.Scan(&doc.ID, &title, &content); err != nil {
		return model.Document{}, err
	}
	doc.Title = title.String
	doc.Content = content.String
	return doc, nil
}
