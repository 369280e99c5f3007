package database

import (
	"context"
)

const countRestaurants = `-- name: CountRestaurants :one
SELECT COUNT(*) FROM restaurants
`

func (q *Queries) CountRestaurants(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, countRestaurants)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const getRestaurant = `-- name: GetRestaurant :one
SELECT id, name, current_menu_id, created_at, updated_at
FROM restaurants
WHERE id = $1
`

func (q *Queries) GetRestaurant(ctx context.Context, id int64) (Restaurant, error) {
	row := q.db.QueryRow(ctx, getRestaurant, id)
	var i Restaurant
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.CurrentMenuID,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listRestaurants = `-- name: ListRestaurants :many
SELECT id, name, current_menu_id, created_at, updated_at
FROM restaurants
ORDER BY id
`

func (q *Queries) ListRestaurants(ctx context.Context) ([]Restaurant, error) {
	rows, err := q.db.Query(ctx, listRestaurants)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Restaurant
	for rows.Next() {
		var i Restaurant
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.CurrentMenuID,
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
