package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/annotatehq/prepper/helper"
	"github.com/annotatehq/prepper/model"
	"github.com/annotatehq/prepper/sql"
)

// EntitiesDBHandlerFunctions defines the interface for Entities database operations.
type EntitiesDBHandlerFunctions interface {
	UpsertEntity(entity *model.Entity) error
	SelectEntityByKey(key string) (*model.Entity, error)
	SelectEntitiesByKind(kind string, limit int) ([]*model.Entity, error)
	DeleteEntity(key string) error
}

// EntitiesDBHandler handles entity catalog database operations
type EntitiesDBHandler struct {
	db *helper.Database
}

// NewEntitiesDBHandler creates a new entities database handler.
// If force is true, it will reload the SQL functions even if they already exist.
func NewEntitiesDBHandler(db *helper.Database, force bool) (*EntitiesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	entitiesDbHandler := &EntitiesDBHandler{
		db: db,
	}

	err := sql.LoadEntitiesSql(entitiesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load entities sql", err)
	}

	err = entitiesDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized EntitiesDBHandler")

	return entitiesDbHandler, nil
}

// CreateTable creates the 'entities' table in the database.
// If the table already exists, it does not create it again.
func (h *EntitiesDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_entities();`)
	if err != nil {
		log.Panicf("error initializing entities table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table entities")

	return nil
}

// UpsertEntity inserts an entity or, when the key already exists, updates
// its canonical form, kind and metadata.
func (h *EntitiesDBHandler) UpsertEntity(entity *model.Entity) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM upsert_entity($1, $2, $3, $4)`,
		entity.Key,
		entity.CanonicalForm,
		entity.Kind,
		entity.Metadata,
	)

	err := row.Scan(
		&entity.ID,
		&entity.Key,
		&entity.CanonicalForm,
		&entity.Kind,
		&entity.Metadata,
		&entity.CreatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectEntityByKey retrieves an entity by key
func (h *EntitiesDBHandler) SelectEntityByKey(key string) (*model.Entity, error) {
	entity := &model.Entity{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_entity_by_key($1)`,
		key,
	)

	err := row.Scan(
		&entity.ID,
		&entity.Key,
		&entity.CanonicalForm,
		&entity.Kind,
		&entity.Metadata,
		&entity.CreatedAt,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return entity, nil
}

// SelectEntitiesByKind retrieves entities of a kind ordered by canonical form
func (h *EntitiesDBHandler) SelectEntitiesByKind(kind string, limit int) ([]*model.Entity, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_entities_by_kind($1, $2)`,
		kind,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var entities []*model.Entity
	for rows.Next() {
		entity := &model.Entity{}
		err := rows.Scan(
			&entity.ID,
			&entity.Key,
			&entity.CanonicalForm,
			&entity.Kind,
			&entity.Metadata,
			&entity.CreatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		entities = append(entities, entity)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return entities, nil
}

// DeleteEntity deletes an entity by key
func (h *EntitiesDBHandler) DeleteEntity(key string) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_entity($1)`,
		key,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}
