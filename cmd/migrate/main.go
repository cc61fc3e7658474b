package main

import (
	"log"
	"os"

	"ragone-be/internal/model"
	"ragone-be/pkg/database"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		color.Red("Error: DB_CONNECTION_STRING is not set")
		os.Exit(1)
	}

	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		color.Red("Error: Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// 2. Extensions
	color.Cyan("Step 1: Setting up extensions...")
	setupSQL := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
		`CREATE EXTENSION IF NOT EXISTS vector;`,
	}
	for _, sql := range setupSQL {
		if err := db.Exec(sql).Error; err != nil {
			color.Yellow("Warn: Failed to execute setup SQL: %v. Continuing...", err)
		}
	}

	// 3. Tables
	color.Cyan("Step 2: Running AutoMigrate...")
	models := []interface{}{
		&model.KnowledgeBase{},
		&model.DocumentChunk{},
		&model.ChatHistory{},
		&model.Character{},
		&model.CharacterProfile{},
		&model.RolePlaySession{},
		&model.RolePlayHistory{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		color.Red("Error: AutoMigrate failed: %v", err)
		os.Exit(1)
	}

	// 4. Search indexes
	color.Cyan("Step 3: Creating search indexes...")
	indexSQL := []string{
		`CREATE INDEX IF NOT EXISTS idx_document_chunks_embedding ON document_chunks USING hnsw (embedding vector_cosine_ops);`,
		`CREATE INDEX IF NOT EXISTS idx_document_chunks_content_fts ON document_chunks USING gin (to_tsvector('simple', content));`,
		`CREATE INDEX IF NOT EXISTS idx_role_play_histories_session_turn ON role_play_histories (role_play_session_id, turn_number);`,
	}
	for _, sql := range indexSQL {
		if err := db.Exec(sql).Error; err != nil {
			color.Yellow("Warn: Failed to create index: %v", err)
		}
	}

	color.Green("✅ Success: Database migration completed.")
}
