package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medgen-mcp-server/internal/domain"
	"github.com/medgen-mcp-server/internal/logging"
	"github.com/medgen-mcp-server/internal/monitoring"
)

func newMockSQLData(t *testing.T, dialect Dialect, commitOnEnd bool) (*SQLData, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := logging.Discard()
	return NewSQLData(Wrap(db, dialect, logger), commitOnEnd, logger, nil), mock
}

func TestFetchAll(t *testing.T) {
	sd, mock := newMockSQLData(t, MySQL, true)
	ctx := context.Background()

	rows := sqlmock.NewRows([]string{"GeneID", "Symbol", "Synonyms"}).
		AddRow(672, "BRCA1", []byte("BRCAI|BRCC1")).
		AddRow(675, "BRCA2", nil)
	mock.ExpectQuery("SELECT GeneID, Symbol, Synonyms FROM gene_info WHERE Symbol LIKE ?").
		WithArgs("BRCA%").
		WillReturnRows(rows)

	result, err := sd.FetchAll(ctx, "SELECT GeneID, Symbol, Synonyms FROM gene_info WHERE Symbol LIKE ?", "BRCA%")
	require.NoError(t, err)
	require.Len(t, result, 2)

	assert.Equal(t, int64(672), result[0]["GeneID"])
	assert.Equal(t, "BRCA1", result[0]["Symbol"])
	assert.Equal(t, "BRCAI|BRCC1", result[0]["Synonyms"])
	assert.Nil(t, result[1]["Synonyms"])
	assert.True(t, result[1].Has("Synonyms"))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchAll_ZeroRows(t *testing.T) {
	sd, mock := newMockSQLData(t, MySQL, true)
	ctx := context.Background()

	query := "SELECT * FROM gene_info WHERE GeneID = ?"
	mock.ExpectQuery(query).WithArgs(-1).WillReturnRows(sqlmock.NewRows([]string{"GeneID"}))
	mock.ExpectQuery(query).WithArgs(-1).WillReturnRows(sqlmock.NewRows([]string{"GeneID"}))
	mock.ExpectQuery("SELECT GeneID AS ID FROM gene_info WHERE GeneID = ?").WithArgs(-1).WillReturnRows(sqlmock.NewRows([]string{"ID"}))

	all, err := sd.FetchAll(ctx, query, -1)
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)

	row, err := sd.FetchRow(ctx, query, -1)
	require.NoError(t, err)
	assert.Nil(t, row)

	id, found, err := sd.FetchID(ctx, "SELECT GeneID AS ID FROM gene_info WHERE GeneID = ?", -1)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, id)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchAll_QueryError(t *testing.T) {
	sd, mock := newMockSQLData(t, MySQL, true)
	driverErr := errors.New("Error 1146: Table 'medgen.nonexistent' doesn't exist")

	mock.ExpectQuery("SELECT * FROM nonexistent").WillReturnError(driverErr)

	_, err := sd.FetchAll(context.Background(), "SELECT * FROM nonexistent")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrQuery)
	assert.ErrorIs(t, err, driverErr)

	var queryErr *domain.QueryError
	require.ErrorAs(t, err, &queryErr)
	assert.Equal(t, "SELECT * FROM nonexistent", queryErr.SQL)
}

func TestFetchID(t *testing.T) {
	sd, mock := newMockSQLData(t, MySQL, true)
	ctx := context.Background()

	mock.ExpectQuery("SELECT GeneID AS ID FROM gene_info WHERE Symbol = ? LIMIT 1").
		WithArgs("TP53").
		WillReturnRows(sqlmock.NewRows([]string{"ID"}).AddRow(7157))

	id, found, err := sd.FetchID(ctx, "SELECT GeneID AS ID FROM gene_info WHERE Symbol = ? LIMIT 1", "TP53")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(7157), id)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchID_MissingColumn(t *testing.T) {
	sd, mock := newMockSQLData(t, MySQL, true)

	mock.ExpectQuery("SELECT GeneID FROM gene_info LIMIT 1").
		WillReturnRows(sqlmock.NewRows([]string{"GeneID"}).AddRow(1))

	_, _, err := sd.FetchID(context.Background(), "SELECT GeneID FROM gene_info LIMIT 1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrColumnNotFound)
	assert.Contains(t, err.Error(), "no ID column found")
}

func TestPMIDs_Deduplicates(t *testing.T) {
	sd, mock := newMockSQLData(t, MySQL, true)

	mock.ExpectQuery("SELECT PMID FROM gene2pubmed WHERE GeneID = ?").
		WithArgs(672).
		WillReturnRows(sqlmock.NewRows([]string{"PMID"}).
			AddRow("9774970").
			AddRow(int64(11389588)).
			AddRow("9774970").
			AddRow(nil))

	pmids, err := sd.PMIDs(context.Background(), "SELECT PMID FROM gene2pubmed WHERE GeneID = ?", 672)
	require.NoError(t, err)
	assert.Equal(t, []string{"11389588", "9774970"}, pmids)
}

func TestHGVSTexts(t *testing.T) {
	sd, mock := newMockSQLData(t, MySQL, true)

	mock.ExpectQuery("SELECT hgvs_text FROM hgvs_query").
		WillReturnRows(sqlmock.NewRows([]string{"hgvs_text"}).
			AddRow("NM_000059.3:c.274G>T").
			AddRow("NM_000059.3:c.274G>T").
			AddRow("NM_007294.3:c.68_69delAG"))

	texts, err := sd.HGVSTexts(context.Background(), "SELECT hgvs_text FROM hgvs_query")
	require.NoError(t, err)
	assert.Equal(t, []string{"NM_000059.3:c.274G>T", "NM_007294.3:c.68_69delAG"}, texts)
}

func TestFetchList(t *testing.T) {
	sd, mock := newMockSQLData(t, MySQL, true)
	ctx := context.Background()

	mock.ExpectQuery("SELECT Symbol AS gene_name FROM gene_info").
		WillReturnRows(sqlmock.NewRows([]string{"gene_name"}).AddRow("BRCA1").AddRow("TP53"))
	mock.ExpectQuery("SELECT CUI FROM MGCONSO LIMIT 2").
		WillReturnRows(sqlmock.NewRows([]string{"CUI"}).AddRow("C0006142").AddRow("C0027651"))
	mock.ExpectQuery("SELECT Symbol FROM gene_info").
		WillReturnRows(sqlmock.NewRows([]string{"Symbol"}).AddRow("BRCA1"))

	genes, err := sd.ListGenes(ctx, "SELECT Symbol AS gene_name FROM gene_info")
	require.NoError(t, err)
	assert.Equal(t, []string{"BRCA1", "TP53"}, genes)

	cuis, err := sd.ListConcepts(ctx, "SELECT CUI FROM MGCONSO LIMIT 2")
	require.NoError(t, err)
	assert.Equal(t, []string{"C0006142", "C0027651"}, cuis)

	_, err = sd.ListGenes(ctx, "SELECT Symbol FROM gene_info")
	assert.ErrorIs(t, err, domain.ErrColumnNotFound)
}

func TestInsert_BindsEveryFieldIncludingNull(t *testing.T) {
	sd, mock := newMockSQLData(t, MySQL, true)
	created := time.Date(2016, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO hgvs_query (created, hgvs_text, pmid) VALUES (?, ?, ?)").
		WithArgs(created, "NM_000059.3:c.274G>T", nil).
		WillReturnResult(sqlmock.NewResult(42, 1))

	id, err := sd.Insert(context.Background(), "hgvs_query", map[string]interface{}{
		"hgvs_text": "NM_000059.3:c.274G>T",
		"pmid":      nil,
		"created":   created,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_RejectsBadIdentifiers(t *testing.T) {
	sd, mock := newMockSQLData(t, MySQL, true)
	ctx := context.Background()

	_, err := sd.Insert(ctx, "hgvs_query; DROP TABLE log", map[string]interface{}{"a": 1})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = sd.Insert(ctx, "hgvs_query", map[string]interface{}{"a) VALUES (1); --": 1})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = sd.Insert(ctx, "hgvs_query", map[string]interface{}{})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate(t *testing.T) {
	sd, mock := newMockSQLData(t, MySQL, true)

	mock.ExpectExec("UPDATE hgvs_query SET note = ?, pmid = ? WHERE hgvs_id = ?").
		WithArgs(`say "hi"`, nil, int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := sd.Update(context.Background(), "hgvs_query", "hgvs_id", 9, map[string]interface{}{
		"pmid": nil,
		"note": `say "hi"`,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	_, err = sd.Update(context.Background(), "hgvs_query", "hgvs_id", 9, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestDelete(t *testing.T) {
	sd, mock := newMockSQLData(t, MySQL, true)

	mock.ExpectExec("DELETE FROM hgvs_query WHERE hgvs_text = ? AND pmid IS NULL").
		WithArgs("NM_000059.3:c.274G>T").
		WillReturnResult(sqlmock.NewResult(0, 3))

	affected, err := sd.Delete(context.Background(), "hgvs_query", map[string]interface{}{
		"hgvs_text": "NM_000059.3:c.274G>T",
		"pmid":      nil,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), affected)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_RowsAffectedFailure(t *testing.T) {
	sd, mock := newMockSQLData(t, MySQL, true)

	mock.ExpectExec("DELETE FROM hgvs_query WHERE hgvs_text = ?").
		WithArgs("NM_000059.3:c.274G>T").
		WillReturnResult(sqlmock.NewErrorResult(errors.New("driver cannot count rows")))

	affected, err := sd.Delete(context.Background(), "hgvs_query", map[string]interface{}{
		"hgvs_text": "NM_000059.3:c.274G>T",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrQuery)
	assert.Contains(t, err.Error(), "driver cannot count rows")
	assert.Zero(t, affected)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_EmptyFieldsAlwaysRefused(t *testing.T) {
	sd, mock := newMockSQLData(t, MySQL, true)

	for _, table := range []string{"hgvs_query", "log", "", "not a table"} {
		_, err := sd.Delete(context.Background(), table, map[string]interface{}{})
		assert.ErrorIs(t, err, domain.ErrInvalidArgument, table)

		_, err = sd.Delete(context.Background(), table, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument, table)
	}

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdministrativeStatements(t *testing.T) {
	sd, mock := newMockSQLData(t, MySQL, true)
	ctx := context.Background()

	mock.ExpectExec("DROP TABLE IF EXISTS tmp_citations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("TRUNCATE TABLE hgvs_query").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CALL create_index(?, ?)").WithArgs("gene2pubmed", "GeneID,PMID").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, sd.DropTable(ctx, "tmp_citations"))
	require.NoError(t, sd.TruncateTable(ctx, "hgvs_query"))
	require.NoError(t, sd.CreateIndex(ctx, "gene2pubmed", "GeneID, PMID"))

	assert.ErrorIs(t, sd.DropTable(ctx, "x; DROP DATABASE medgen"), domain.ErrInvalidArgument)
	assert.ErrorIs(t, sd.CreateIndex(ctx, "gene2pubmed", ""), domain.ErrInvalidArgument)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_PostgresRebind(t *testing.T) {
	sd, mock := newMockSQLData(t, Postgres, true)

	mock.ExpectExec("DELETE FROM log WHERE entity_name = $1 AND message = $2").
		WithArgs("gene_info", "rows loaded 10").
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := sd.Delete(context.Background(), "log", map[string]interface{}{
		"entity_name": "gene_info",
		"message":     "rows loaded 10",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitOnEndFalse_DefersCommit(t *testing.T) {
	sd, mock := newMockSQLData(t, MySQL, false)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO log (entity_name, message) VALUES (?, ?)").
		WithArgs("gene_info", "rows loaded 5").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT COUNT(*) AS ID FROM log").
		WillReturnRows(sqlmock.NewRows([]string{"ID"}).AddRow(1))
	mock.ExpectCommit()

	_, err := sd.Insert(ctx, "log", map[string]interface{}{"entity_name": "gene_info", "message": "rows loaded 5"})
	require.NoError(t, err)

	count, found, err := sd.FetchID(ctx, "SELECT COUNT(*) AS ID FROM log")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(1), count)

	require.NoError(t, sd.Commit())
	require.NoError(t, sd.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitOnEndFalse_Rollback(t *testing.T) {
	sd, mock := newMockSQLData(t, MySQL, false)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("TRUNCATE TABLE hgvs_query").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	require.NoError(t, sd.TruncateTable(ctx, "hgvs_query"))
	require.NoError(t, sd.Rollback())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLastMirrorTime(t *testing.T) {
	sd, mock := newMockSQLData(t, MySQL, true)
	ctx := context.Background()
	loaded := time.Date(2016, 2, 1, 8, 30, 0, 0, time.UTC)

	mock.ExpectQuery(lastMirrorSQL).WithArgs("gene_info").
		WillReturnRows(sqlmock.NewRows([]string{"event_time"}).AddRow(loaded))
	mock.ExpectQuery(lastMirrorSQL).WithArgs("variant_summary").
		WillReturnRows(sqlmock.NewRows([]string{"event_time"}).AddRow("2016-02-03 10:00:00"))
	mock.ExpectQuery(lastMirrorSQL).WithArgs("fake_table").
		WillReturnRows(sqlmock.NewRows([]string{"event_time"}))

	got, err := sd.LastMirrorTime(ctx, "gene_info")
	require.NoError(t, err)
	assert.True(t, got.Equal(loaded))

	got, err = sd.LastMirrorTime(ctx, "variant_summary")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2016, 2, 3, 10, 0, 0, 0, time.UTC), got)

	_, err = sd.LastMirrorTime(ctx, "fake_table")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, err.Error(), "Have you loaded the fake_table table?")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLastLoaded(t *testing.T) {
	sd, mock := newMockSQLData(t, MySQL, true)

	mock.ExpectQuery(lastLoadedSQL).WillReturnRows(sqlmock.NewRows([]string{"ID"}))

	_, err := sd.LastLoaded(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPing(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	logger := logging.Discard()
	sd := NewSQLData(Wrap(db, MySQL, logger), true, logger, nil)

	mock.ExpectPing()
	require.NoError(t, sd.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	assert.ErrorIs(t, sd.Ping(context.Background()), domain.ErrQuery)
}

func TestStatementsRecordMetrics(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	logger := logging.Discard()
	metrics := monitoring.NewMetrics("test_sqldata", prometheus.NewRegistry())
	sd := NewSQLData(Wrap(db, MySQL, logger), true, logger, metrics)

	mock.ExpectQuery("SELECT 1 AS ID").WillReturnRows(sqlmock.NewRows([]string{"ID"}).AddRow(1))
	mock.ExpectExec("TRUNCATE TABLE t").WillReturnError(errors.New("denied"))

	_, _, err = sd.FetchID(context.Background(), "SELECT 1 AS ID")
	require.NoError(t, err)
	assert.Error(t, sd.TruncateTable(context.Background(), "t"))

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.SQLStatements.WithLabelValues("query", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.SQLStatements.WithLabelValues("exec", "error")))
}

func TestParseTime(t *testing.T) {
	want := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, v := range []interface{}{want, "2015-01-01 00:00:00", "2015-01-01T00:00:00Z", "2015-01-01", int64(1420070400)} {
		got, err := ParseTime(v)
		require.NoError(t, err, v)
		assert.True(t, got.Equal(want), v)
	}

	_, err := ParseTime("yesterday")
	assert.Error(t, err)
	_, err = ParseTime(3.5)
	assert.Error(t, err)
}
