package database

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/medgen-mcp-server/internal/domain"
)

// Dialect captures the differences between the supported SQL servers.
type Dialect struct {
	// Name is the db_driver config value.
	Name string
	// DriverName is the database/sql driver to open.
	DriverName string
	// Numbered placeholders ($1, $2) instead of ?.
	Numbered bool
}

var (
	MySQL    = Dialect{Name: "mysql", DriverName: "mysql"}
	SQLite   = Dialect{Name: "sqlite", DriverName: "sqlite"}
	Postgres = Dialect{Name: "postgres", DriverName: "postgres", Numbered: true}
	PGX      = Dialect{Name: "pgx", DriverName: "pgx", Numbered: true}
)

// DialectFor returns the dialect for a db_driver value.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "", "mysql":
		return MySQL, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql":
		return Postgres, nil
	case "pgx":
		return PGX, nil
	default:
		return Dialect{}, domain.InvalidArgument("unsupported db_driver %q", driver)
	}
}

// Rebind rewrites ? placeholders into the dialect's native form.
func (d Dialect) Rebind(query string) string {
	if !d.Numbered {
		return query
	}
	return substitutePlaceholders(query, func(i int) string {
		return "$" + strconv.Itoa(i+1)
	})
}

// TruncateSQL empties a table. SQLite has no TRUNCATE.
func (d Dialect) TruncateSQL(table string) string {
	if d.Name == SQLite.Name {
		return "DELETE FROM " + table
	}
	return "TRUNCATE TABLE " + table
}

// DropTableSQL drops a table if it exists.
func (d Dialect) DropTableSQL(table string) string {
	return "DROP TABLE IF EXISTS " + table
}

// CreateIndexSQL returns the statement that indexes columns of table. MySQL
// and Postgres warehouses ship a create_index routine that also logs start
// and stop times; SQLite mirrors index directly.
func (d Dialect) CreateIndexSQL(table string, columns []string) (string, []interface{}) {
	if d.Name == SQLite.Name {
		name := "idx_" + strings.ReplaceAll(table, ".", "_") + "_" + strings.Join(columns, "_")
		return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)", name, table, strings.Join(columns, ", ")), nil
	}
	return "CALL create_index(?, ?)", []interface{}{table, strings.Join(columns, ",")}
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ValidIdentifier reports whether name is safe to splice into SQL as a table
// or column name.
func ValidIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

func checkIdentifiers(kind string, names ...string) error {
	for _, name := range names {
		if !ValidIdentifier(name) {
			return domain.InvalidArgument("invalid %s name %q", kind, name)
		}
	}
	return nil
}

// splitColumnSpec parses "col1, col2" into validated column names.
func splitColumnSpec(spec string) ([]string, error) {
	parts := strings.Split(spec, ",")
	columns := make([]string, 0, len(parts))
	for _, p := range parts {
		col := strings.TrimSpace(p)
		if col == "" {
			continue
		}
		columns = append(columns, col)
	}
	if len(columns) == 0 {
		return nil, domain.InvalidArgument("empty column spec")
	}
	if err := checkIdentifiers("column", columns...); err != nil {
		return nil, err
	}
	return columns, nil
}
