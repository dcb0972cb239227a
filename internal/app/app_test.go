package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medgen-mcp-server/internal/database"
	"github.com/medgen-mcp-server/internal/domain"
	"github.com/medgen-mcp-server/internal/logging"
)

type staticConfig struct {
	cfg *domain.Config
}

func (s staticConfig) GetConfig() *domain.Config { return s.cfg }
func (s staticConfig) GetDatabaseConfig(section string) domain.DatabaseConfig {
	return s.cfg.Database(section)
}
func (s staticConfig) GetExternalAPIConfig() *domain.ExternalAPIConfig { return &s.cfg.ExternalAPI }
func (s staticConfig) GetServerConfig() *domain.ServerConfig           { return &s.cfg.Server }

// sqliteConfig points the gene and clinvar sections at separate migrated
// SQLite files.
func sqliteConfig(t *testing.T) *domain.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &domain.Config{Databases: map[string]domain.DatabaseConfig{}}
	for _, section := range []string{domain.SectionGene, domain.SectionClinVar} {
		db := domain.DatabaseConfig{Driver: "sqlite", Dataset: filepath.Join(dir, section+".db"), CommitOnEnd: true}
		runner, err := database.NewMigrationRunner(db, logging.Discard())
		require.NoError(t, err)
		require.NoError(t, runner.Up(context.Background()))
		require.NoError(t, runner.Close())
		cfg.Databases[section] = db
	}
	cfg.ExternalAPI.PubMed.BaseURL = "http://127.0.0.1:1/eutils/"
	cfg.ExternalAPI.VariantReporter.BaseURL = "http://127.0.0.1:1/var_rep.cgi"
	return cfg
}

func newApp(t *testing.T, cfg *domain.Config) *App {
	t.Helper()
	a, err := New(context.Background(), staticConfig{cfg: cfg}, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestNew_WiresServices(t *testing.T) {
	a := newApp(t, sqliteConfig(t))

	assert.NotNil(t, a.Genes)
	assert.NotNil(t, a.ClinVar)
	assert.NotNil(t, a.Annotator)
	assert.NotNil(t, a.APIDependencies().Articles)

	deps := a.APIDependencies()
	assert.Len(t, deps.Checks, 2)
	for name, check := range deps.Checks {
		assert.NoError(t, check(context.Background()), name)
	}

	families, err := a.Registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNew_BadSection(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.Databases[domain.SectionClinVar] = domain.DatabaseConfig{Driver: "oracle", Dataset: "x"}

	_, err := New(context.Background(), staticConfig{cfg: cfg}, logging.Discard())
	assert.Error(t, err)
}

func TestNew_UnreachableRedisIsSkipped(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.Cache.RedisURL = "redis://127.0.0.1:1/0"

	a := newApp(t, cfg)
	assert.NotNil(t, a.Reporter)
}

func TestNew_WithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := sqliteConfig(t)
	cfg.Cache.RedisURL = "redis://" + mr.Addr() + "/0"

	a := newApp(t, cfg)
	assert.Len(t, a.closers, 3)
}

func TestLastMirrorTime_FallsBackToClinVar(t *testing.T) {
	ctx := context.Background()
	a := newApp(t, sqliteConfig(t))

	_, err := a.ClinVarDB.Insert(ctx, "log", map[string]interface{}{
		"entity_name": "variant_summary",
		"message":     "rows loaded 1200",
		"event_time":  "2024-03-01 10:00:00",
	})
	require.NoError(t, err)

	status, err := a.LastMirrorTime(ctx, "variant_summary")
	require.NoError(t, err)
	assert.Equal(t, "variant_summary", status.Entity)
	assert.True(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC).Equal(status.LastMirror), status.LastMirror)

	_, err = a.LastMirrorTime(ctx, "gene_info")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestLastLoaded_OpensOtherSections(t *testing.T) {
	ctx := context.Background()
	cfg := sqliteConfig(t)
	cfg.Databases[domain.SectionHugo] = cfg.Databases[domain.SectionGene]
	a := newApp(t, cfg)

	_, err := a.LastLoaded(ctx, domain.SectionHugo)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = a.GeneDB.Insert(ctx, "log", map[string]interface{}{
		"entity_name": "load_database.sh",
		"message":     "done",
		"event_time":  "2024-03-02 06:30:00",
	})
	require.NoError(t, err)

	want := time.Date(2024, 3, 2, 6, 30, 0, 0, time.UTC)
	for _, section := range []string{domain.SectionGene, domain.SectionHugo} {
		loaded, err := a.LastLoaded(ctx, section)
		require.NoError(t, err, section)
		assert.True(t, want.Equal(loaded), "%s: %s", section, loaded)
	}

	_, err = a.LastLoaded(ctx, domain.SectionClinVar)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = a.LastLoaded(ctx, "warehouse")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestClose_Idempotent(t *testing.T) {
	a, err := New(context.Background(), staticConfig{cfg: sqliteConfig(t)}, logging.Discard())
	require.NoError(t, err)
	require.NoError(t, a.Close())
	assert.NoError(t, a.Close())
}
