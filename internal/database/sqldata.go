package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/medgen-mcp-server/internal/domain"
	"github.com/medgen-mcp-server/internal/monitoring"
)

// DefaultIDColumn is the column FetchID reads.
const DefaultIDColumn = "ID"

// Option overrides one field of a resolved section before connecting.
type Option func(*domain.DatabaseConfig)

func WithDriver(driver string) Option     { return func(c *domain.DatabaseConfig) { c.Driver = driver } }
func WithHost(host string) Option         { return func(c *domain.DatabaseConfig) { c.Host = host } }
func WithUser(user string) Option         { return func(c *domain.DatabaseConfig) { c.User = user } }
func WithPassword(password string) Option { return func(c *domain.DatabaseConfig) { c.Password = password } }
func WithDataset(dataset string) Option   { return func(c *domain.DatabaseConfig) { c.Dataset = dataset } }

// WithCommitOnEnd sets whether every statement commits on its own.
func WithCommitOnEnd(commit bool) Option {
	return func(c *domain.DatabaseConfig) { c.CommitOnEnd = commit }
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// SQLData is the generic warehouse accessor every domain accessor builds on.
//
// With commit-on-end set, every statement autocommits. Without it the first
// write opens a transaction that later reads and writes on this accessor
// share until Commit or Rollback.
type SQLData struct {
	db          *DB
	commitOnEnd bool
	log         *logrus.Logger
	metrics     *monitoring.Metrics

	mu sync.Mutex
	tx *sql.Tx
}

// NewSQLData builds an accessor over an open connection.
func NewSQLData(db *DB, commitOnEnd bool, logger *logrus.Logger, metrics *monitoring.Metrics) *SQLData {
	return &SQLData{
		db:          db,
		commitOnEnd: commitOnEnd,
		log:         logger,
		metrics:     metrics,
	}
}

// Open resolves the connection from a section config plus overrides, connects
// and returns an accessor owning the connection.
func Open(ctx context.Context, config domain.DatabaseConfig, logger *logrus.Logger, metrics *monitoring.Metrics, opts ...Option) (*SQLData, error) {
	for _, opt := range opts {
		opt(&config)
	}
	db, err := NewConnection(ctx, config, logger)
	if err != nil {
		return nil, err
	}
	return NewSQLData(db, config.CommitOnEnd, logger, metrics), nil
}

// OpenSection is Open for a named config section.
func OpenSection(ctx context.Context, cfg domain.ConfigManager, section string, logger *logrus.Logger, metrics *monitoring.Metrics, opts ...Option) (*SQLData, error) {
	sd, err := Open(ctx, cfg.GetDatabaseConfig(section), logger, metrics, opts...)
	if err != nil {
		return nil, fmt.Errorf("opening %s section: %w", section, err)
	}
	return sd, nil
}

// DB returns the underlying connection.
func (s *SQLData) DB() *DB {
	return s.db
}

// CommitOnEnd reports whether statements autocommit.
func (s *SQLData) CommitOnEnd() bool {
	return s.commitOnEnd
}

// Close rolls back uncommitted work and closes the connection.
func (s *SQLData) Close() error {
	if err := s.Rollback(); err != nil {
		s.log.WithError(err).Warn("Rollback on close failed")
	}
	return s.db.Close()
}

// Ping checks the connection is alive.
func (s *SQLData) Ping(ctx context.Context) error {
	if err := s.db.Health(ctx); err != nil {
		s.log.WithError(err).Error("DB connection is dead")
		return &domain.QueryError{SQL: "ping", Err: err}
	}
	return nil
}

// Commit commits the pending transaction, if any.
func (s *SQLData) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx == nil {
		return nil
	}
	err := s.tx.Commit()
	s.tx = nil
	if err != nil {
		return &domain.QueryError{SQL: "COMMIT", Err: err}
	}
	return nil
}

// Rollback discards the pending transaction, if any.
func (s *SQLData) Rollback() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx == nil {
		return nil
	}
	err := s.tx.Rollback()
	s.tx = nil
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return &domain.QueryError{SQL: "ROLLBACK", Err: err}
	}
	return nil
}

// target picks the pending transaction, opening one for writes when
// statements do not autocommit.
func (s *SQLData) target(ctx context.Context, write bool) (querier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx != nil {
		return s.tx, nil
	}
	if !write || s.commitOnEnd {
		return s.db.SQL, nil
	}
	tx, err := s.db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return nil, &domain.QueryError{SQL: "BEGIN", Err: err}
	}
	s.tx = tx
	return tx, nil
}

func (s *SQLData) logStatement(query string, args []interface{}) {
	s.log.WithFields(logrus.Fields{
		"sql":  Render(query, args...),
		"args": len(args),
	}).Debug("SQL.execute")
}

// Execute runs a statement that returns no rows. Every write funnels
// through it.
func (s *SQLData) Execute(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	s.logStatement(query, args)

	q, err := s.target(ctx, true)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	res, err := q.ExecContext(ctx, s.db.Dialect.Rebind(query), args...)
	s.metrics.ObserveSQL("exec", started, err)
	if err != nil {
		return nil, &domain.QueryError{SQL: Render(query, args...), Err: err}
	}
	return res, nil
}

// FetchAll runs a query and decodes every row. Zero rows is an empty,
// non-nil result.
func (s *SQLData) FetchAll(ctx context.Context, query string, args ...interface{}) (domain.Rows, error) {
	s.logStatement(query, args)

	q, err := s.target(ctx, false)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	rows, err := q.QueryContext(ctx, s.db.Dialect.Rebind(query), args...)
	if err != nil {
		s.metrics.ObserveSQL("query", started, err)
		return nil, &domain.QueryError{SQL: Render(query, args...), Err: err}
	}
	defer rows.Close()

	result, err := decodeRows(rows)
	s.metrics.ObserveSQL("query", started, err)
	if err != nil {
		return nil, &domain.QueryError{SQL: Render(query, args...), Err: err}
	}
	return result, nil
}

// FetchRow returns the first row of the query, or nil when there is none.
func (s *SQLData) FetchRow(ctx context.Context, query string, args ...interface{}) (domain.Row, error) {
	rows, err := s.FetchAll(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// FetchID returns the ID column of the first row. found is false when the
// query matched nothing.
func (s *SQLData) FetchID(ctx context.Context, query string, args ...interface{}) (value interface{}, found bool, err error) {
	return s.FetchColumn(ctx, query, DefaultIDColumn, args...)
}

// FetchColumn returns one column of the first row.
func (s *SQLData) FetchColumn(ctx context.Context, query, column string, args ...interface{}) (interface{}, bool, error) {
	row, err := s.FetchRow(ctx, query, args...)
	if err != nil {
		return nil, false, err
	}
	if row == nil {
		return nil, false, nil
	}
	value, ok := row[column]
	if !ok {
		return nil, false, &domain.ColumnNotFoundError{Column: column, SQL: Render(query, args...)}
	}
	return value, true, nil
}

// FetchList collects one column of every row as text.
func (s *SQLData) FetchList(ctx context.Context, query, column string, args ...interface{}) ([]string, error) {
	rows, err := s.FetchAll(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	list := make([]string, 0, len(rows))
	for _, row := range rows {
		if !row.Has(column) {
			return nil, &domain.ColumnNotFoundError{Column: column, SQL: Render(query, args...)}
		}
		list = append(list, row.String(column))
	}
	return list, nil
}

// ListConcepts lists the CUI column of a MedGen query.
func (s *SQLData) ListConcepts(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	return s.FetchList(ctx, query, "CUI", args...)
}

// ListGenes lists the gene_name column of a query.
func (s *SQLData) ListGenes(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	return s.FetchList(ctx, query, "gene_name", args...)
}

// distinctColumn collects the non-empty values of column into a sorted set.
func (s *SQLData) distinctColumn(ctx context.Context, column, query string, args []interface{}) ([]string, error) {
	values, err := s.FetchList(ctx, query, column, args...)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(values))
	set := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		set = append(set, v)
	}
	sort.Strings(set)
	return set, nil
}

// PMIDs returns the distinct PMID values of a query.
func (s *SQLData) PMIDs(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	return s.distinctColumn(ctx, "PMID", query, args)
}

// HGVSTexts returns the distinct hgvs_text values of a query.
func (s *SQLData) HGVSTexts(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	return s.distinctColumn(ctx, "hgvs_text", query, args)
}

// Insert adds one row. Every field is written; nil values bind as NULL.
// It returns the last insert id, or 0 when the driver does not report one.
func (s *SQLData) Insert(ctx context.Context, table string, fields map[string]interface{}) (int64, error) {
	if err := checkIdentifiers("table", table); err != nil {
		return 0, err
	}
	if len(fields) == 0 {
		return 0, domain.InvalidArgument("insert into %s without fields", table)
	}

	columns := sortedKeys(fields)
	if err := checkIdentifiers("column", columns...); err != nil {
		return 0, err
	}

	args := make([]interface{}, len(columns))
	for i, col := range columns {
		args[i] = fields[col]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), placeholders(len(columns)))

	res, err := s.Execute(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return s.lastInsertID(res), nil
}

// Update sets fields on the row whose idColumn equals rowID.
func (s *SQLData) Update(ctx context.Context, table, idColumn string, rowID int64, fields map[string]interface{}) (int64, error) {
	if err := checkIdentifiers("table", table); err != nil {
		return 0, err
	}
	if err := checkIdentifiers("column", idColumn); err != nil {
		return 0, err
	}
	if len(fields) == 0 {
		return 0, domain.InvalidArgument("update of %s without fields", table)
	}

	columns := sortedKeys(fields)
	if err := checkIdentifiers("column", columns...); err != nil {
		return 0, err
	}

	sets := make([]string, len(columns))
	args := make([]interface{}, 0, len(columns)+1)
	for i, col := range columns {
		sets[i] = col + " = ?"
		args = append(args, fields[col])
	}
	args = append(args, rowID)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", table, strings.Join(sets, ", "), idColumn)
	res, err := s.Execute(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return s.lastInsertID(res), nil
}

// Delete removes the rows matching every field. An empty field map is
// refused rather than deleting the whole table.
func (s *SQLData) Delete(ctx context.Context, table string, fields map[string]interface{}) (int64, error) {
	if len(fields) == 0 {
		return 0, domain.InvalidArgument("delete from %q without a WHERE clause is not supported", table)
	}
	if err := checkIdentifiers("table", table); err != nil {
		return 0, err
	}

	columns := sortedKeys(fields)
	if err := checkIdentifiers("column", columns...); err != nil {
		return 0, err
	}

	terms := make([]string, len(columns))
	args := make([]interface{}, 0, len(columns))
	for i, col := range columns {
		if fields[col] == nil {
			terms[i] = col + " IS NULL"
			continue
		}
		terms[i] = col + " = ?"
		args = append(args, fields[col])
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE %s", table, strings.Join(terms, " AND "))
	res, err := s.Execute(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, &domain.QueryError{SQL: Render(query, args...), Err: fmt.Errorf("rows affected: %w", err)}
	}
	return affected, nil
}

// DropTable drops table if it exists.
func (s *SQLData) DropTable(ctx context.Context, table string) error {
	if err := checkIdentifiers("table", table); err != nil {
		return err
	}
	_, err := s.Execute(ctx, s.db.Dialect.DropTableSQL(table))
	return err
}

// TruncateTable removes every row of table.
func (s *SQLData) TruncateTable(ctx context.Context, table string) error {
	if err := checkIdentifiers("table", table); err != nil {
		return err
	}
	_, err := s.Execute(ctx, s.db.Dialect.TruncateSQL(table))
	return err
}

// CreateIndex indexes the comma separated columns of table.
func (s *SQLData) CreateIndex(ctx context.Context, table, columnSpec string) error {
	if err := checkIdentifiers("table", table); err != nil {
		return err
	}
	columns, err := splitColumnSpec(columnSpec)
	if err != nil {
		return err
	}
	query, args := s.db.Dialect.CreateIndexSQL(table, columns)
	_, err = s.Execute(ctx, query, args...)
	return err
}

const lastMirrorSQL = "SELECT event_time FROM log WHERE entity_name = ? AND message LIKE 'rows loaded %' ORDER BY event_time DESC LIMIT 1"

// LastMirrorTime returns when entity was last mirrored into the warehouse.
func (s *SQLData) LastMirrorTime(ctx context.Context, entity string) (time.Time, error) {
	value, found, err := s.FetchColumn(ctx, lastMirrorSQL, "event_time", entity)
	if err != nil {
		return time.Time{}, err
	}
	if !found {
		return time.Time{}, domain.NotFound("query %q returned no results. Have you loaded the %s table?",
			Render(lastMirrorSQL, entity), entity)
	}
	return ParseTime(value)
}

const lastLoadedSQL = "SELECT event_time AS ID FROM log WHERE entity_name = 'load_database.sh' AND message = 'done' ORDER BY idx DESC LIMIT 1"

// LastLoaded returns when the full warehouse load last finished.
func (s *SQLData) LastLoaded(ctx context.Context) (time.Time, error) {
	value, found, err := s.FetchID(ctx, lastLoadedSQL)
	if err != nil {
		return time.Time{}, err
	}
	if !found {
		return time.Time{}, domain.NotFound("no completed warehouse load recorded")
	}
	return ParseTime(value)
}

// ParseTime converts a decoded DATETIME column to time.Time. Drivers hand
// back either time.Time or text depending on DSN options.
func ParseTime(value interface{}) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		for _, layout := range []string{DateLayout, time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, v); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized timestamp %q", v)
	case int64:
		return time.Unix(v, 0).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp value %v (%T)", value, value)
	}
}

func (s *SQLData) lastInsertID(res sql.Result) int64 {
	id, err := res.LastInsertId()
	if err != nil {
		s.log.WithError(err).Debug("Driver does not report last insert id")
		return 0
	}
	return id
}

func decodeRows(rows *sql.Rows) (domain.Rows, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	result := domain.Rows{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(domain.Row, len(columns))
		for i, col := range columns {
			row[col] = decodeValue(values[i], types[i].DatabaseTypeName())
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// decodeValue normalizes driver values to the Row value types. The MySQL
// text protocol returns numbers as []byte, so the column type decides.
func decodeValue(v interface{}, dbType string) interface{} {
	switch val := v.(type) {
	case []byte:
		text := string(val)
		switch strings.ToUpper(dbType) {
		case "INT", "INTEGER", "TINYINT", "SMALLINT", "MEDIUMINT", "BIGINT", "UNSIGNED INT", "UNSIGNED BIGINT", "INT4", "INT8":
			if n, err := strconv.ParseInt(text, 10, 64); err == nil {
				return n
			}
		case "DECIMAL", "FLOAT", "DOUBLE", "REAL", "NUMERIC", "FLOAT4", "FLOAT8":
			if f, err := strconv.ParseFloat(text, 64); err == nil {
				return f
			}
		}
		return text
	case int:
		return int64(val)
	case int32:
		return int64(val)
	case int16:
		return int64(val)
	case int8:
		return int64(val)
	case uint32:
		return int64(val)
	case uint64:
		return int64(val)
	case float32:
		return float64(val)
	default:
		return val
	}
}

func sortedKeys(fields map[string]interface{}) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
