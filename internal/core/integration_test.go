package core_test

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/menuimport/internal/admin"
	"github.com/JonMunkholm/menuimport/internal/core"
	db "github.com/JonMunkholm/menuimport/internal/database"
)

// openTestDB connects to DATABASE_URL, migrates and empties the menu tables.
// The test is skipped when DATABASE_URL is unset.
func openTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, db.Migrate(ctx, pool))
	require.NoError(t, admin.ResetAll(ctx, db.New(pool), false))
	return pool
}

func importDoc(t *testing.T, svc *core.Service, doc string) *core.Report {
	t.Helper()
	payload, err := core.DecodePayload(strings.NewReader(doc), core.FormatJSON)
	require.NoError(t, err)
	report, err := svc.ImportRestaurants(context.Background(), core.PermitPayload(payload))
	require.NoError(t, err)
	return report
}

func requireCounts(t *testing.T, q *db.Queries, restaurants, menus, items, links int64) {
	t.Helper()
	ctx := context.Background()

	n, err := q.CountRestaurants(ctx)
	require.NoError(t, err)
	require.Equal(t, restaurants, n, "restaurants")

	n, err = q.CountMenus(ctx)
	require.NoError(t, err)
	require.Equal(t, menus, n, "menus")

	n, err = q.CountMenuItems(ctx)
	require.NoError(t, err)
	require.Equal(t, items, n, "menu_items")

	n, err = q.CountMenuMenuItems(ctx)
	require.NoError(t, err)
	require.Equal(t, links, n, "menu_menu_items")
}

const restaurantsDoc = `{"restaurants":[
  {"name":"Poppo's Cafe","menus":[
    {"name":"lunch","menu_items":[{"name":"Burger","price":9.0},{"name":"Small Salad","price":5.0}]},
    {"name":"dinner","menu_items":[{"name":"Chicken Wings","price":9.0},{"name":"Burger","price":15.0}]}]},
  {"name":"Casa del Poppo","menus":[
    {"name":"lunch","dishes":[{"name":"Chicken Wings","price":9.0},{"name":"Burger","price":9.0},{"name":"Chicken Wings","price":9.0}]},
    {"name":"dinner","dishes":[{"name":"Mega \"Burger\"","price":22.0},{"name":"Lobster Mac & Cheese","price":31.0}]}]}
]}`

func TestIntegration_ImportAndReimport(t *testing.T) {
	pool := openTestDB(t)
	q := db.New(pool)
	svc := core.NewService(core.NewPgStore(pool, 2), nil)

	report := importDoc(t, svc, restaurantsDoc)
	require.True(t, report.General.Success, "%+v", report.General.Errors)
	requireCounts(t, q, 2, 4, 5, 8)

	again := importDoc(t, svc, restaurantsDoc)
	require.True(t, again.General.Success)
	requireCounts(t, q, 2, 4, 5, 8)
	require.Equal(t, report.Restaurants.Success, again.Restaurants.Success, "re-import keeps ids")
}

func TestIntegration_AbortRollsBack(t *testing.T) {
	pool := openTestDB(t)
	q := db.New(pool)
	svc := core.NewService(core.NewPgStore(pool, 0), nil)

	require.True(t, importDoc(t, svc, restaurantsDoc).General.Success)

	report := importDoc(t, svc, `{"restaurants":[{"name":"New Place","menus":[{"description":"no name","menu_items":[{"name":"Soup"}]}]}]}`)

	require.False(t, report.General.Success)
	require.Equal(t, core.MessageImportFailed, report.General.Message)
	requireCounts(t, q, 2, 4, 5, 8)
}

func TestIntegration_CatalogReadsImportedRows(t *testing.T) {
	pool := openTestDB(t)
	q := db.New(pool)
	svc := core.NewService(core.NewPgStore(pool, 0), nil)
	catalog := core.NewCatalog(q)
	ctx := context.Background()

	report := importDoc(t, svc, restaurantsDoc)
	require.True(t, report.General.Success)

	restaurants, err := catalog.ListRestaurants(ctx)
	require.NoError(t, err)
	require.Len(t, restaurants, 2)

	detail, err := catalog.GetRestaurant(ctx, restaurants[0].ID)
	require.NoError(t, err)
	require.Len(t, detail.Menus, 2)

	menu, err := catalog.GetMenu(ctx, detail.Menus[0].ID)
	require.NoError(t, err)
	require.Len(t, menu.MenuItems, 2)

	_, err = catalog.GetRestaurant(ctx, 1_000_000)
	require.ErrorIs(t, err, core.ErrNotFound)
}
