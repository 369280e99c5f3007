package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const countMenus = `-- name: CountMenus :one
SELECT COUNT(*) FROM menus
`

func (q *Queries) CountMenus(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, countMenus)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const countMenuItems = `-- name: CountMenuItems :one
SELECT COUNT(*) FROM menu_items
`

func (q *Queries) CountMenuItems(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, countMenuItems)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const countMenuMenuItems = `-- name: CountMenuMenuItems :one
SELECT COUNT(*) FROM menu_menu_items
`

func (q *Queries) CountMenuMenuItems(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, countMenuMenuItems)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const getMenu = `-- name: GetMenu :one
SELECT id, name, description, restaurant_id, created_at, updated_at
FROM menus
WHERE id = $1
`

func (q *Queries) GetMenu(ctx context.Context, id int64) (Menu, error) {
	row := q.db.QueryRow(ctx, getMenu, id)
	var i Menu
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Description,
		&i.RestaurantID,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listMenus = `-- name: ListMenus :many
SELECT id, name, description, restaurant_id, created_at, updated_at
FROM menus
ORDER BY id
`

func (q *Queries) ListMenus(ctx context.Context) ([]Menu, error) {
	rows, err := q.db.Query(ctx, listMenus)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Menu
	for rows.Next() {
		var i Menu
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.Description,
			&i.RestaurantID,
			&i.CreatedAt,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listMenusByRestaurant = `-- name: ListMenusByRestaurant :many
SELECT id, name, description, restaurant_id, created_at, updated_at
FROM menus
WHERE restaurant_id = $1
ORDER BY id
`

func (q *Queries) ListMenusByRestaurant(ctx context.Context, restaurantID pgtype.Int8) ([]Menu, error) {
	rows, err := q.db.Query(ctx, listMenusByRestaurant, restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Menu
	for rows.Next() {
		var i Menu
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.Description,
			&i.RestaurantID,
			&i.CreatedAt,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listMenuItemsByMenu = `-- name: ListMenuItemsByMenu :many
SELECT mi.id, mi.name, mi.description, mi.picture_url, mmi.price
FROM menu_menu_items mmi
JOIN menu_items mi ON mi.id = mmi.menu_item_id
WHERE mmi.menu_id = $1
ORDER BY mi.id
`

type ListMenuItemsByMenuRow struct {
	ID          int64         `json:"id"`
	Name        pgtype.Text   `json:"name"`
	Description pgtype.Text   `json:"description"`
	PictureUrl  pgtype.Text   `json:"picture_url"`
	Price       pgtype.Float8 `json:"price"`
}

// ListMenuItemsByMenu returns the menu's items with the price they carry on
// that menu.
func (q *Queries) ListMenuItemsByMenu(ctx context.Context, menuID int64) ([]ListMenuItemsByMenuRow, error) {
	rows, err := q.db.Query(ctx, listMenuItemsByMenu, menuID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListMenuItemsByMenuRow
	for rows.Next() {
		var i ListMenuItemsByMenuRow
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.Description,
			&i.PictureUrl,
			&i.Price,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
