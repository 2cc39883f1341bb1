// Package pkgdb inspects the packages.db SQLite database that backs the
// search page. The database is produced elsewhere; this package only verifies
// its shape and reports summary statistics.
package pkgdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "modernc.org/sqlite"

	werrors "github.com/py-swift/wheelsite/internal/errors"
)

// Stats summarizes a packages database.
type Stats struct {
	Path      string   `json:"path"`
	SizeBytes int64    `json:"size_bytes"`
	Packages  int      `json:"packages"`
	Wheels    int      `json:"wheels"`
	Platforms []string `json:"platforms"`
}

// requiredTables must exist for the client-side engine to work against the
// database.
var requiredTables = []string{"packages", "wheels"}

// Inspect opens the database read-only, verifies the expected tables exist
// and returns summary statistics.
func Inspect(ctx context.Context, path string) (*Stats, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, werrors.New(werrors.CategoryDatabase, werrors.SeverityError,
			"packages database not found").WithContext("path", path)
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return nil, werrors.Wrap(err, werrors.CategoryDatabase, werrors.SeverityError, "open packages database")
	}
	defer db.Close()

	if err := verifySchema(ctx, db); err != nil {
		return nil, err
	}

	stats := &Stats{Path: path, SizeBytes: info.Size()}
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM packages").Scan(&stats.Packages); err != nil {
		return nil, werrors.Wrap(err, werrors.CategoryDatabase, werrors.SeverityError, "count packages")
	}
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM wheels").Scan(&stats.Wheels); err != nil {
		return nil, werrors.Wrap(err, werrors.CategoryDatabase, werrors.SeverityError, "count wheels")
	}

	rows, err := db.QueryContext(ctx, "SELECT DISTINCT platform FROM wheels ORDER BY platform")
	if err != nil {
		return nil, werrors.Wrap(err, werrors.CategoryDatabase, werrors.SeverityError, "list platforms")
	}
	defer rows.Close()
	for rows.Next() {
		var platform string
		if err := rows.Scan(&platform); err != nil {
			return nil, werrors.Wrap(err, werrors.CategoryDatabase, werrors.SeverityError, "scan platform")
		}
		stats.Platforms = append(stats.Platforms, platform)
	}
	if err := rows.Err(); err != nil {
		return nil, werrors.Wrap(err, werrors.CategoryDatabase, werrors.SeverityError, "iterate platforms")
	}
	return stats, nil
}

func verifySchema(ctx context.Context, db *sql.DB) error {
	for _, table := range requiredTables {
		var name string
		err := db.QueryRowContext(ctx,
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		if err == sql.ErrNoRows {
			return werrors.New(werrors.CategoryDatabase, werrors.SeverityError,
				fmt.Sprintf("packages database is missing required table %q", table))
		}
		if err != nil {
			return werrors.Wrap(err, werrors.CategoryDatabase, werrors.SeverityError, "inspect schema")
		}
	}
	return nil
}
