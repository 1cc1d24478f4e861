package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
)

//go:embed init.sql
var initSQL string

//go:embed documents.sql
var documentsSQL string

//go:embed chunks.sql
var chunksSQL string

//go:embed entities.sql
var entitiesSQL string

// Function lists for verification
var DocumentsFunctions = []string{
	"init_documents",
	"insert_document",
	"select_document",
	"select_all_documents",
	"select_raw_documents",
	"select_documents_lacking_step",
	"update_document",
	"delete_document",
}

var ChunksFunctions = []string{
	"init_chunks",
	"insert_chunk",
	"select_chunk",
	"select_chunks_by_document",
	"select_chunks_by_entity_keys",
	"select_chunks_by_similarity",
	"update_chunk_entities",
	"update_chunk_embedding",
	"delete_chunk",
}

var EntitiesFunctions = []string{
	"init_entities",
	"upsert_entity",
	"select_entity_by_key",
	"select_entities_by_kind",
	"delete_entity",
}

// Init intializes db extensions
func Init(db *sql.DB) error {
	_, err := db.Exec(initSQL)
	if err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}

	log.Println("Database extensions initialized successfully")
	return nil
}

// LoadDocumentsSql loads document-related SQL functions
func LoadDocumentsSql(db *sql.DB, force bool) error {
	if !force {
		exist, err := checkFunctions(db, DocumentsFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing documents functions: %w", err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(documentsSQL)
	if err != nil {
		return fmt.Errorf("error executing documents SQL: %w", err)
	}

	exist, err := checkFunctions(db, DocumentsFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Println("SQL documents functions loaded successfully")
	return nil
}

// LoadChunksSql loads chunk-related SQL functions
func LoadChunksSql(db *sql.DB, force bool) error {
	if !force {
		exist, err := checkFunctions(db, ChunksFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing chunks functions: %w", err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(chunksSQL)
	if err != nil {
		return fmt.Errorf("error executing chunks SQL: %w", err)
	}

	exist, err := checkFunctions(db, ChunksFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Println("SQL chunks functions loaded successfully")
	return nil
}

// LoadEntitiesSql loads entity-related SQL functions
func LoadEntitiesSql(db *sql.DB, force bool) error {
	if !force {
		exist, err := checkFunctions(db, EntitiesFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing entities functions: %w", err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(entitiesSQL)
	if err != nil {
		return fmt.Errorf("error executing entities SQL: %w", err)
	}

	exist, err := checkFunctions(db, EntitiesFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Println("SQL entities functions loaded successfully")
	return nil
}

// LoadAllSql loads all SQL functions
func LoadAllSql(db *sql.DB, force bool) error {
	if err := LoadDocumentsSql(db, force); err != nil {
		return err
	}

	if err := LoadChunksSql(db, force); err != nil {
		return err
	}

	if err := LoadEntitiesSql(db, force); err != nil {
		return err
	}

	return nil
}

// checkFunctions verifies that all required functions exist in the database
func checkFunctions(db *sql.DB, sqlFunctions []string) (bool, error) {
	var allExist bool
	for _, f := range sqlFunctions {
		err := db.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);`,
			f,
		).Scan(&allExist)
		if err != nil {
			return false, fmt.Errorf("error checking existence of function %s: %w", f, err)
		}
		if !allExist {
			log.Printf("Function %s does not exist", f)
			break
		}
	}
	return allExist, nil
}
