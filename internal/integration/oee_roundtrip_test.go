package integration_test

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"oee-backend/internal/assets/application"
	assets "oee-backend/internal/assets/domain"
	assetrepo "oee-backend/internal/assets/infrastructure/postgres"
	oee "oee-backend/internal/oee/domain"
	oeerepo "oee-backend/internal/oee/infrastructure/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}
	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	if !tableExists(db, "obj_enterprises") || !tableExists(db, "oee_data") {
		t.Skip("missing tables; run migrations")
	}
	return db
}

func tableExists(db *sql.DB, name string) bool {
	var exists bool
	err := db.QueryRow("SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)", name).Scan(&exists)
	return err == nil && exists
}

func TestAssetLifecycleRoundtrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := assetrepo.NewAssetRepository(db)

	enterprise, err := repo.Create(ctx, assets.KindEnterprise, "it-enterprise", "integration", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = repo.Delete(ctx, assets.KindEnterprise, enterprise.ID) })

	site, err := repo.Create(ctx, assets.KindSite, "it-site", "", &enterprise.ID)
	require.NoError(t, err)

	got, err := repo.Get(ctx, assets.KindSite, site.ID)
	require.NoError(t, err)
	assert.Equal(t, "it-site", got.Name)
	require.NotNil(t, got.ParentID)
	assert.Equal(t, enterprise.ID, *got.ParentID)

	children, err := repo.GetChildren(ctx, assets.KindEnterprise, enterprise.ID)
	require.NoError(t, err)
	require.Len(t, children, 1)

	parent, err := repo.GetParent(ctx, assets.KindSite, site.ID)
	require.NoError(t, err)
	assert.Equal(t, enterprise.ID, parent.ID)

	last, err := repo.Delete(ctx, assets.KindSite, site.ID)
	require.NoError(t, err)
	assert.Equal(t, "it-site", last.Name)

	_, err = repo.Get(ctx, assets.KindSite, site.ID)
	require.Error(t, err)
}

func TestRecordSeriesRoundtrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := assetrepo.NewAssetRepository(db)
	records := oeerepo.NewRecordRepository(db)

	enterprise, err := repo.Create(ctx, assets.KindEnterprise, "it-series", "", nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = db.ExecContext(ctx, "DELETE FROM oee_data WHERE object_type = 4 AND object_id = $1", enterprise.ID)
		_, _ = repo.Delete(ctx, assets.KindEnterprise, enterprise.ID)
	})

	sample := oee.Sample{GoodCount: 70, TotalCount: 80, RunTime: 8, TotalTime: 8, TargetCount: 100}
	result, err := oee.Calculate(sample)
	require.NoError(t, err)

	day1 := time.Date(2026, time.February, 1, 9, 0, 0, 0, time.UTC)
	for i, ts := range []time.Time{day1, day1.Add(time.Hour), day1.Add(25 * time.Hour)} {
		record := oee.Record{
			Time:       ts,
			ObjectType: int(assets.KindEnterprise),
			ObjectID:   enterprise.ID,
			Sample:     sample,
			Metrics:    result,
		}
		require.NoError(t, records.Insert(ctx, record), "insert %d", i)
	}

	latest, err := records.GetLatest(ctx, int(assets.KindEnterprise), enterprise.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, latest.Time.Equal(day1.Add(25*time.Hour)))

	buckets, err := records.GetRange(ctx, int(assets.KindEnterprise), enterprise.ID, day1.Add(-time.Hour), day1.Add(48*time.Hour))
	require.NoError(t, err)
	require.Len(t, buckets, 2)
	assert.True(t, buckets[0].Day.Before(buckets[1].Day))
	assert.Equal(t, int64(2), buckets[0].SampleCount)
	assert.InDelta(t, 140, buckets[0].SumGoodCount, 1e-9)
	assert.InDelta(t, 0.7, buckets[0].AvgOee, 1e-9)
}

func TestTreeReflectsView(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := assetrepo.NewAssetRepository(db)

	enterprise, err := repo.Create(ctx, assets.KindEnterprise, "it-tree", "", nil)
	require.NoError(t, err)
	site, err := repo.Create(ctx, assets.KindSite, "it-tree-site", "", &enterprise.ID)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = repo.Delete(ctx, assets.KindSite, site.ID)
		_, _ = repo.Delete(ctx, assets.KindEnterprise, enterprise.ID)
	})

	builder, err := application.NewTreeBuilder(
		assetrepo.NewFlatViewRepository(db),
		repo,
		oeerepo.NewRecordRepository(db),
		zap.NewNop(),
	)
	require.NoError(t, err)

	tree, err := builder.GetTree(ctx)
	require.NoError(t, err)

	node, ok := tree["it-tree"]
	require.True(t, ok, "enterprise missing from tree")
	require.NotNil(t, node.Data)
	assert.Equal(t, enterprise.ID, node.Data.ID)
	child, ok := node.Children["it-tree-site"]
	require.True(t, ok, "site missing from tree")
	assert.Equal(t, site.ID, child.Data.ID)
}
