package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/annotatehq/prepper/helper"
	"github.com/annotatehq/prepper/model"
	"github.com/annotatehq/prepper/sql"
	"github.com/google/uuid"
)

// DocumentsDBHandlerFunctions defines the interface for Documents database operations.
type DocumentsDBHandlerFunctions interface {
	InsertDocument(doc *model.Document) error
	SelectDocument(rid uuid.UUID) (*model.Document, error)
	SelectAllDocuments(lastCreatedAt *time.Time, limit int) ([]*model.Document, error)
	SelectRawDocuments() ([]*model.Document, error)
	SelectDocumentsLackingPreprocess(step model.PreprocessStep) ([]*model.Document, error)
	UpdateDocument(doc *model.Document) error
	DeleteDocument(rid uuid.UUID) error
}

// DocumentsDBHandler handles document-related database operations
type DocumentsDBHandler struct {
	db *helper.Database
}

// NewDocumentsDBHandler creates a new documents database handler.
// It initializes the database connection and loads document-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewDocumentsDBHandler(db *helper.Database, force bool) (*DocumentsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	documentsDbHandler := &DocumentsDBHandler{
		db: db,
	}

	err := sql.LoadDocumentsSql(documentsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load documents sql", err)
	}

	err = documentsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized DocumentsDBHandler")

	return documentsDbHandler, nil
}

// CreateTable creates the 'documents' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary indexes and triggers.
func (h *DocumentsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_documents();`)
	if err != nil {
		log.Panicf("error initializing documents table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table documents")

	return nil
}

// InsertDocument inserts a new document with its raw text. Preprocess
// metadata starts empty; it is only ever written via UpdateDocument.
func (h *DocumentsDBHandler) InsertDocument(doc *model.Document) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_document($1, $2, $3, $4)`,
		doc.Title,
		doc.Source,
		doc.Text,
		doc.Metadata,
	)

	err := row.Scan(
		&doc.ID,
		&doc.RID,
		&doc.Title,
		&doc.Source,
		&doc.Text,
		&doc.Preprocess,
		&doc.Metadata,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectDocument retrieves a document by RID
func (h *DocumentsDBHandler) SelectDocument(rid uuid.UUID) (*model.Document, error) {
	doc := &model.Document{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_document($1)`,
		rid,
	)

	err := row.Scan(
		&doc.ID,
		&doc.RID,
		&doc.Title,
		&doc.Source,
		&doc.Text,
		&doc.Preprocess,
		&doc.Metadata,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return doc, nil
}

// SelectAllDocuments retrieves all documents with pagination
func (h *DocumentsDBHandler) SelectAllDocuments(lastCreatedAt *time.Time, limit int) ([]*model.Document, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_all_documents($1, $2)`,
		lastCreatedAt,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// SelectRawDocuments retrieves the documents whose raw text is empty,
// independent of their preprocessing state.
func (h *DocumentsDBHandler) SelectRawDocuments() ([]*model.Document, error) {
	rows, err := h.db.Instance.Query(`SELECT * FROM select_raw_documents()`)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// SelectDocumentsLackingPreprocess retrieves the documents that have no
// stored result for step, regardless of the other steps' status.
func (h *DocumentsDBHandler) SelectDocumentsLackingPreprocess(step model.PreprocessStep) ([]*model.Document, error) {
	if !step.Valid() {
		return nil, helper.NewError("step validation", fmt.Errorf("%w: %d", model.ErrInvalidPreprocessStep, int(step)))
	}

	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_documents_lacking_step($1)`,
		step.String(),
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// UpdateDocument updates a document, persisting its text and preprocess
// metadata. This is the explicit save step after SetPreprocessResult calls.
func (h *DocumentsDBHandler) UpdateDocument(doc *model.Document) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM update_document($1, $2, $3, $4, $5, $6)`,
		doc.RID,
		doc.Title,
		doc.Source,
		doc.Text,
		doc.Preprocess,
		doc.Metadata,
	)

	err := row.Scan(
		&doc.ID,
		&doc.RID,
		&doc.Title,
		&doc.Source,
		&doc.Text,
		&doc.Preprocess,
		&doc.Metadata,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// DeleteDocument deletes a document by RID
func (h *DocumentsDBHandler) DeleteDocument(rid uuid.UUID) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_document($1)`,
		rid,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// scanDocuments drains rows into documents.
func scanDocuments(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]*model.Document, error) {
	var documents []*model.Document
	for rows.Next() {
		doc := &model.Document{}
		err := rows.Scan(
			&doc.ID,
			&doc.RID,
			&doc.Title,
			&doc.Source,
			&doc.Text,
			&doc.Preprocess,
			&doc.Metadata,
			&doc.CreatedAt,
			&doc.UpdatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		documents = append(documents, doc)
	}

	err := rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return documents, nil
}
