// Package catalogsource optionally introspects a live database's
// physical table/column shape to pre-populate a catalog document's
// `tables:` section, so a catalog author does not have to hand-type
// every column. It is strictly read-only: every query here targets
// information_schema (or the dialect's equivalent) — never DDL, never
// DML, matching spec.md §1's Non-goals. Adapted from the teacher's
// driver/database.go dispatch style and driver/mysql.go's/
// driver/postgres.go's per-dialect DSN building and table queries,
// generalized from "dump DDL" to "list tables and columns".
package catalogsource

import (
	"database/sql"
	"fmt"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	mysqldriver "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/nl2sqlc/nl2sqlc/catalog"
	"github.com/nl2sqlc/nl2sqlc/dialect"
)

// Config names the target database connection. Password is intended
// to be filled in from a terminal prompt (see cmd/nl2sqlc), never from
// a catalog document committed to source control.
type Config struct {
	Dialect  dialect.Dialect
	Host     string
	Port     int
	User     string
	Password string
	DbName   string
	// Path is the SQLite file path, used instead of Host/Port/User/DbName.
	Path string
}

// Source is an open, read-only handle to a physical database.
type Source struct {
	db *sql.DB
	d  dialect.Dialect
}

// Open connects to the database named by cfg. The caller must Close it.
func Open(cfg Config) (*Source, error) {
	driverName, dsn, err := dsnFor(cfg)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("catalogsource: opening %s: %w", cfg.Dialect, err)
	}
	return &Source{db: db, d: cfg.Dialect}, nil
}

func (s *Source) Close() error {
	return s.db.Close()
}

func dsnFor(cfg Config) (driverName, dsn string, err error) {
	switch cfg.Dialect {
	case dialect.MySQL:
		c := mysqldriver.NewConfig()
		c.User = cfg.User
		c.Passwd = cfg.Password
		c.Net = "tcp"
		c.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
		c.DBName = cfg.DbName
		return "mysql", c.FormatDSN(), nil
	case dialect.Postgres:
		return "postgres", fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DbName), nil
	case dialect.SQLite:
		return "sqlite", cfg.Path, nil
	case dialect.SQLServer:
		return "sqlserver", fmt.Sprintf("sqlserver://%s:%s@%s:%d?database=%s",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DbName), nil
	default:
		return "", "", fmt.Errorf("catalogsource: dialect %s has no introspection backend", cfg.Dialect)
	}
}

// IntrospectTables reads the physical table/column shape via the
// dialect's read-only metadata views and returns it as a
// catalog.Document's `tables:` section, ready to be merged with a
// hand-authored entities/foreign_keys document by catalog.New.
func (s *Source) IntrospectTables() (map[string]catalog.TableDoc, error) {
	switch s.d {
	case dialect.MySQL:
		return s.introspectInformationSchema("DATABASE()")
	case dialect.Postgres:
		return s.introspectInformationSchema("'public'")
	case dialect.SQLServer:
		return s.introspectInformationSchema("SCHEMA_NAME()")
	case dialect.SQLite:
		return s.introspectSQLite()
	default:
		return nil, fmt.Errorf("catalogsource: dialect %s has no introspection backend", s.d)
	}
}

// introspectInformationSchema covers MySQL, Postgres, and SQL Server,
// which all expose a standard information_schema.columns view; only
// the table_schema predicate differs, passed in as schemaExpr (a raw
// SQL expression, never user input — callers only pass the three
// literals above).
func (s *Source) introspectInformationSchema(schemaExpr string) (map[string]catalog.TableDoc, error) {
	query := fmt.Sprintf(`
		SELECT table_name, column_name
		FROM information_schema.columns
		WHERE table_schema = %s
		ORDER BY table_name, ordinal_position
	`, schemaExpr)

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("catalogsource: querying information_schema.columns: %w", err)
	}
	defer rows.Close()

	tables := make(map[string]catalog.TableDoc)
	for rows.Next() {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return nil, fmt.Errorf("catalogsource: scanning information_schema.columns: %w", err)
		}
		td := tables[table]
		td.Columns = append(td.Columns, column)
		tables[table] = td
	}
	return tables, rows.Err()
}

// introspectSQLite uses sqlite_master plus PRAGMA table_info, SQLite's
// equivalent of information_schema.
func (s *Source) introspectSQLite() (map[string]catalog.TableDoc, error) {
	rows, err := s.db.Query(`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return nil, fmt.Errorf("catalogsource: querying sqlite_master: %w", err)
	}
	var tableNames []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("catalogsource: scanning sqlite_master: %w", err)
		}
		tableNames = append(tableNames, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tables := make(map[string]catalog.TableDoc, len(tableNames))
	for _, name := range tableNames {
		// table name came from sqlite_master itself, not user input.
		colRows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", name))
		if err != nil {
			return nil, fmt.Errorf("catalogsource: querying table_info(%s): %w", name, err)
		}
		var td catalog.TableDoc
		for colRows.Next() {
			var cid int
			var colName, colType string
			var notNull, pk int
			var dfltValue sql.NullString
			if err := colRows.Scan(&cid, &colName, &colType, &notNull, &dfltValue, &pk); err != nil {
				colRows.Close()
				return nil, fmt.Errorf("catalogsource: scanning table_info(%s): %w", name, err)
			}
			td.Columns = append(td.Columns, colName)
		}
		colRows.Close()
		if err := colRows.Err(); err != nil {
			return nil, err
		}
		tables[name] = td
	}
	return tables, nil
}
