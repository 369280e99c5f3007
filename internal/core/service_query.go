package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	db "github.com/JonMunkholm/menuimport/internal/database"
)

// ErrNotFound is returned when a restaurant or menu does not exist.
var ErrNotFound = errors.New("record not found")

// CatalogQuerier is the read surface of database.Queries the catalog needs.
type CatalogQuerier interface {
	ListRestaurants(ctx context.Context) ([]db.Restaurant, error)
	GetRestaurant(ctx context.Context, id int64) (db.Restaurant, error)
	ListMenus(ctx context.Context) ([]db.Menu, error)
	GetMenu(ctx context.Context, id int64) (db.Menu, error)
	ListMenusByRestaurant(ctx context.Context, restaurantID pgtype.Int8) ([]db.Menu, error)
	ListMenuItemsByMenu(ctx context.Context, menuID int64) ([]db.ListMenuItemsByMenuRow, error)
}

// Catalog serves the imported restaurants and menus.
type Catalog struct {
	q CatalogQuerier
}

// NewCatalog creates a Catalog over q, typically database.New(pool).
func NewCatalog(q CatalogQuerier) *Catalog {
	return &Catalog{q: q}
}

// RestaurantDetail is a restaurant with its menus.
type RestaurantDetail struct {
	db.Restaurant
	Menus []db.Menu `json:"menus"`
}

// MenuDetail is a menu with its items, priced for this menu.
type MenuDetail struct {
	db.Menu
	MenuItems []db.ListMenuItemsByMenuRow `json:"menu_items"`
}

// ListRestaurants returns every restaurant ordered by id.
func (c *Catalog) ListRestaurants(ctx context.Context) ([]db.Restaurant, error) {
	rows, err := c.q.ListRestaurants(ctx)
	if err != nil {
		return nil, fmt.Errorf("list restaurants: %w", err)
	}
	if rows == nil {
		rows = []db.Restaurant{}
	}
	return rows, nil
}

// GetRestaurant returns one restaurant and its menus.
func (c *Catalog) GetRestaurant(ctx context.Context, id int64) (*RestaurantDetail, error) {
	r, err := c.q.GetRestaurant(ctx, id)
	if err != nil {
		return nil, notFound(err, "get restaurant %d", id)
	}

	menus, err := c.q.ListMenusByRestaurant(ctx, pgtype.Int8{Int64: id, Valid: true})
	if err != nil {
		return nil, fmt.Errorf("list menus for restaurant %d: %w", id, err)
	}
	if menus == nil {
		menus = []db.Menu{}
	}
	return &RestaurantDetail{Restaurant: r, Menus: menus}, nil
}

// ListMenus returns every menu ordered by id.
func (c *Catalog) ListMenus(ctx context.Context) ([]db.Menu, error) {
	rows, err := c.q.ListMenus(ctx)
	if err != nil {
		return nil, fmt.Errorf("list menus: %w", err)
	}
	if rows == nil {
		rows = []db.Menu{}
	}
	return rows, nil
}

// GetMenu returns one menu and its items.
func (c *Catalog) GetMenu(ctx context.Context, id int64) (*MenuDetail, error) {
	m, err := c.q.GetMenu(ctx, id)
	if err != nil {
		return nil, notFound(err, "get menu %d", id)
	}

	items, err := c.q.ListMenuItemsByMenu(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list items for menu %d: %w", id, err)
	}
	if items == nil {
		items = []db.ListMenuItemsByMenuRow{}
	}
	return &MenuDetail{Menu: m, MenuItems: items}, nil
}

// notFound wraps err, translating pgx.ErrNoRows into ErrNotFound.
func notFound(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", msg, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
