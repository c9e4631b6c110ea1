package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// EnsureSchema creates the downloads and users tables when they are missing.
// Safe to call at startup.
func EnsureSchema(db *sql.DB, d Dialect) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for i, ddl := range d.schema {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("%s schema step %d failed: %w", d.Name, i+1, err)
		}
	}
	return nil
}
