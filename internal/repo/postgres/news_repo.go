package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/crimewatch/internal/domain/news"
	"github.com/geocoder89/crimewatch/internal/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type NewsRepo struct {
	pool  *pgxpool.Pool
	obs   Observer
	clock *utils.Clock
}

func NewNewsRepo(pool *pgxpool.Pool, obs Observer) *NewsRepo {
	return &NewsRepo{pool: pool, obs: observerOrNoop(obs), clock: utils.NewClock()}
}

func (r *NewsRepo) Create(ctx context.Context, req news.CreateRequest) (news.Item, error) {
	item := news.NewFromCreateRequest(req, r.clock.Now())

	err := r.obs.ObserveDB("news.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO news (id, title, location, content, created_at) VALUES ($1,$2,$3,$4,$5)`,
			item.ID, item.Title, item.Location, item.Content, item.CreatedAt,
		)
		return err
	})
	if err != nil {
		return news.Item{}, err
	}

	return item, nil
}

func (r *NewsRepo) List(ctx context.Context, filter news.ListFilter) ([]news.Item, error) {
	query := `SELECT id, title, location, content, created_at FROM news`

	// stable ordering: ties on timestamp fall back to id
	if filter.Ascending {
		query += ` ORDER BY created_at ASC, id ASC`
	} else {
		query += ` ORDER BY created_at DESC, id DESC`
	}

	var args []interface{}
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, filter.Limit)
	}

	out := make([]news.Item, 0)

	err := r.obs.ObserveDB("news.list", func() error {
		rows, err := r.pool.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var it news.Item
			if err := rows.Scan(&it.ID, &it.Title, &it.Location, &it.Content, &it.CreatedAt); err != nil {
				return err
			}
			out = append(out, it)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *NewsRepo) GetByID(ctx context.Context, id string) (news.Item, error) {
	var it news.Item

	err := r.obs.ObserveDB("news.get_by_id", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, title, location, content, created_at FROM news WHERE id = $1`, id,
		).Scan(&it.ID, &it.Title, &it.Location, &it.Content, &it.CreatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return news.Item{}, news.ErrNotFound
		}
		return news.Item{}, err
	}
	return it, nil
}

func (r *NewsRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.obs.ObserveDB("news.count", func() error {
		return r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM news`).Scan(&n)
	})
	return n, err
}
