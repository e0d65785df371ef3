package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/crimewatch/internal/domain/incident"
	"github.com/geocoder89/crimewatch/internal/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type IncidentsRepo struct {
	pool  *pgxpool.Pool
	obs   Observer
	clock *utils.Clock
}

func NewIncidentsRepo(pool *pgxpool.Pool, obs Observer) *IncidentsRepo {
	return &IncidentsRepo{pool: pool, obs: observerOrNoop(obs), clock: utils.NewClock()}
}

const incidentColumns = `id, title, description, location, status, reporter, actions_taken, created_at`

func scanIncident(row pgx.Row) (incident.Incident, error) {
	var inc incident.Incident
	var status string
	err := row.Scan(
		&inc.ID,
		&inc.Title,
		&inc.Description,
		&inc.Location,
		&status,
		&inc.Reporter,
		&inc.ActionsTaken,
		&inc.CreatedAt,
	)
	inc.Status = incident.Status(status)
	return inc, err
}

func (r *IncidentsRepo) Create(ctx context.Context, req incident.ReportRequest, reporter string) (incident.Incident, error) {
	inc := incident.NewFromReport(req, reporter, r.clock.Now())

	err := r.obs.ObserveDB("incidents.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO incidents (`+incidentColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			inc.ID, inc.Title, inc.Description, inc.Location, string(inc.Status), inc.Reporter, inc.ActionsTaken, inc.CreatedAt,
		)
		return err
	})
	if err != nil {
		return incident.Incident{}, err
	}

	return inc, nil
}

func (r *IncidentsRepo) List(ctx context.Context, filter incident.ListFilter) ([]incident.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents`

	var args []interface{}
	if filter.Status != nil {
		query += ` WHERE status = $1`
		args = append(args, string(*filter.Status))
	}

	if filter.Ascending {
		query += ` ORDER BY created_at ASC, id ASC`
	} else {
		query += ` ORDER BY created_at DESC, id DESC`
	}

	out := make([]incident.Incident, 0)

	err := r.obs.ObserveDB("incidents.list", func() error {
		rows, err := r.pool.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			inc, err := scanIncident(rows)
			if err != nil {
				return err
			}
			out = append(out, inc)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *IncidentsRepo) GetByID(ctx context.Context, id string) (incident.Incident, error) {
	var inc incident.Incident

	err := r.obs.ObserveDB("incidents.get_by_id", func() error {
		var err error
		inc, err = scanIncident(r.pool.QueryRow(ctx, `SELECT `+incidentColumns+` FROM incidents WHERE id = $1`, id))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return incident.Incident{}, incident.ErrNotFound
		}
		return incident.Incident{}, err
	}
	return inc, nil
}

func (r *IncidentsRepo) UpdateStatus(ctx context.Context, id string, upd incident.StatusUpdate) (incident.Incident, error) {
	var inc incident.Incident

	err := r.obs.ObserveDB("incidents.update_status", func() error {
		var err error
		// a NULL $3 leaves actions_taken untouched
		inc, err = scanIncident(r.pool.QueryRow(ctx,
			`UPDATE incidents
				SET status = $2,
					actions_taken = COALESCE($3, actions_taken)
			WHERE id = $1
			RETURNING `+incidentColumns,
			id, string(upd.Status), upd.ActionsTaken,
		))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return incident.Incident{}, incident.ErrNotFound
		}
		return incident.Incident{}, err
	}
	return inc, nil
}

func (r *IncidentsRepo) Count(ctx context.Context, filter incident.ListFilter) (int, error) {
	query := `SELECT COUNT(*) FROM incidents`
	var args []interface{}
	if filter.Status != nil {
		query += ` WHERE status = $1`
		args = append(args, string(*filter.Status))
	}

	var n int
	err := r.obs.ObserveDB("incidents.count", func() error {
		return r.pool.QueryRow(ctx, query, args...).Scan(&n)
	})
	return n, err
}
