package extract

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lumenworks/askdoc/internal/models"
)

// extractSQLite introspects an uploaded SQLite database and emits one
// descriptive summary unit: table names, column lists, and row counts. The
// driver needs a file path, so content is staged in a temp file.
func extractSQLite(content []byte, filename string) ([]Unit, error) {
	tmp, err := os.CreateTemp("", "askdoc-db-*.db")
	if err != nil {
		return nil, fmt.Errorf("stage database: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("stage database: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("stage database: %w", err)
	}

	db, err := sql.Open("sqlite3", "file:"+tmp.Name()+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SQLite database %s with %d table(s).\n", filename, len(tables))
	for _, table := range tables {
		cols, err := tableColumns(db, table)
		if err != nil {
			return nil, err
		}
		var count int64
		// Table names from sqlite_master cannot be bound as parameters.
		if err := db.QueryRow(fmt.Sprintf(`SELECT COUNT(*) FROM %q`, table)).Scan(&count); err != nil {
			return nil, fmt.Errorf("count rows in %s: %w", table, err)
		}
		fmt.Fprintf(&b, "Table %s: %d rows, columns: %s\n", table, count, strings.Join(cols, ", "))
	}
	return []Unit{{Locator: models.NameLocator(filename), Text: b.String()}}, nil
}

func tableColumns(db *sql.DB, table string) ([]string, error) {
	rows, err := db.Query(fmt.Sprintf(`PRAGMA table_info(%q)`, table))
	if err != nil {
		return nil, fmt.Errorf("table info for %s: %w", table, err)
	}
	defer rows.Close()
	var cols []string
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notnull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan column for %s: %w", table, err)
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}
