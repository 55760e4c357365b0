package automation

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Repository defines the interface for scene persistence.
// Scenes are stored as JSON documents keyed by name.
type Repository interface {
	// List retrieves all scenes ordered by name.
	List(ctx context.Context) ([]Scene, error)

	// Save inserts or replaces a scene.
	Save(ctx context.Context, scene *Scene) error

	// Delete removes a scene by name.
	// Returns ErrSceneNotFound if the scene does not exist.
	Delete(ctx context.Context, name string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// List retrieves all scenes ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Scene, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT doc FROM scenes ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying scenes: %w", err)
	}
	defer rows.Close()

	var scenes []Scene
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scanning scene: %w", err)
		}
		var s Scene
		if err := json.Unmarshal([]byte(doc), &s); err != nil {
			return nil, fmt.Errorf("decoding scene: %w", err)
		}
		scenes = append(scenes, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating scenes: %w", err)
	}
	return scenes, nil
}

// Save inserts or replaces a scene.
func (r *SQLiteRepository) Save(ctx context.Context, scene *Scene) error {
	doc, err := json.Marshal(scene)
	if err != nil {
		return fmt.Errorf("marshalling scene: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO scenes (name, doc, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at`,
		scene.Name, string(doc), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving scene: %w", err)
	}
	return nil
}

// Delete removes a scene by name.
func (r *SQLiteRepository) Delete(ctx context.Context, name string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM scenes WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("deleting scene: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return ErrSceneNotFound
	}
	return nil
}
