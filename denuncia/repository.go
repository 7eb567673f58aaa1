// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package denuncia

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/google/uuid"

	"github.com/jcodagnone/denuncia/metrics"
	"github.com/jcodagnone/denuncia/spatial"
	"github.com/jcodagnone/denuncia/utils/textutils"
)

// H3Resolution of the cell stored with every located record.
const H3Resolution = 9

// Repository is a DuckDB backed Store.
type Repository struct {
	db   *sql.DB
	feed *feed

	// serializes writes so every subscriber sees them in order
	mu sync.Mutex
}

// NewRepository creates a repository on db. Call CreateSchema before use.
func NewRepository(db *sql.DB, m *metrics.Metrics) *Repository {
	return &Repository{db: db, feed: newFeed(m)}
}

// DB returns the underlying database connection.
func (r *Repository) DB() *sql.DB {
	return r.db
}

// CreateSchema creates the denunciations table.
func (r *Repository) CreateSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE SEQUENCE IF NOT EXISTS denunciations_seq START 1;

		CREATE TABLE IF NOT EXISTS denunciations (
			id VARCHAR PRIMARY KEY,
			seq BIGINT NOT NULL DEFAULT nextval('denunciations_seq'),
			title VARCHAR NOT NULL,
			category VARCHAR NOT NULL,
			custom_category VARCHAR NOT NULL DEFAULT '',
			description VARCHAR NOT NULL,
			location VARCHAR NOT NULL,
			street VARCHAR NOT NULL,
			neighborhood VARCHAR NOT NULL,
			city VARCHAR NOT NULL,
			state VARCHAR NOT NULL,
			lat DOUBLE,
			lng DOUBLE,
			h3_cell UBIGINT,
			is_anonymous BOOLEAN NOT NULL DEFAULT FALSE,
			reporter_name VARCHAR NOT NULL,
			user_id VARCHAR NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			status VARCHAR NOT NULL DEFAULT 'Não Resolvido',
			image_url VARCHAR NOT NULL DEFAULT '',
			likes VARCHAR[] NOT NULL DEFAULT []::VARCHAR[],
			dislikes VARCHAR[] NOT NULL DEFAULT []::VARCHAR[]
		);
	`)
	if err != nil {
		return fmt.Errorf("creating denunciations schema: %w", err)
	}

	return nil
}

type pointColumns struct {
	lat, lng *float64
	cell     *int64
}

func pointArgs(p *spatial.Point) (pointColumns, error) {
	if p == nil {
		return pointColumns{}, nil
	}

	cell, err := p.Cell(H3Resolution)
	if err != nil {
		return pointColumns{}, err
	}

	lat, lng, c := p.Lat, p.Lng, int64(cell)

	return pointColumns{lat: &lat, lng: &lng, cell: &c}, nil
}

// Create implements Store.
func (r *Repository) Create(ctx context.Context, d *Denunciation) error {
	pc, err := pointArgs(d.Point)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.NewString()

	err = r.db.QueryRowContext(ctx, `
		INSERT INTO denunciations (
			id, title, category, custom_category, description, location,
			street, neighborhood, city, state, lat, lng, h3_cell,
			is_anonymous, reporter_name, user_id, status
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING created_at
	`,
		id,
		d.Title,
		d.Category,
		d.CustomCategory,
		d.Description,
		d.Location,
		d.Address.Street,
		d.Address.Neighborhood,
		d.Address.City,
		d.Address.State,
		pc.lat,
		pc.lng,
		pc.cell,
		d.IsAnonymous,
		d.ReporterName,
		d.UserID,
		string(StatusUnresolved),
	).Scan(&d.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting denunciation: %w", err)
	}

	d.ID = id
	d.Status = StatusUnresolved
	d.ImageURL = ""
	d.Likes, d.Dislikes = []string{}, []string{}

	if pc.cell != nil {
		d.H3Cell = *pc.cell
	}

	r.notify(ctx)

	return nil
}

// Import inserts records as they are, keeping their ids and timestamps.
// Records whose id already exists are skipped. It returns how many rows were
// inserted.
func (r *Repository) Import(ctx context.Context, records []*Denunciation) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			log.WithError(err).Error("rolling back denunciations import")
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO denunciations (
			id, title, category, custom_category, description, location,
			street, neighborhood, city, state, lat, lng, h3_cell,
			is_anonymous, reporter_name, user_id, created_at, status,
			image_url, likes, dislikes
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0

	for _, d := range records {
		pc, err := pointArgs(d.Point)
		if err != nil {
			return 0, fmt.Errorf("denunciation %s: %w", d.ID, err)
		}

		if d.ID == "" {
			d.ID = uuid.NewString()
		}

		if d.Status == "" {
			d.Status = StatusUnresolved
		}

		if d.CreatedAt.IsZero() {
			d.CreatedAt = time.Now().UTC()
		}

		votes := normalizeVotes(d.Votes())

		res, err := stmt.ExecContext(ctx,
			d.ID,
			d.Title,
			d.Category,
			d.CustomCategory,
			d.Description,
			d.Location,
			d.Address.Street,
			d.Address.Neighborhood,
			d.Address.City,
			d.Address.State,
			pc.lat,
			pc.lng,
			pc.cell,
			d.IsAnonymous,
			d.ReporterName,
			d.UserID,
			d.CreatedAt,
			string(d.Status),
			d.ImageURL,
			votes.Likes,
			votes.Dislikes,
		)
		if err != nil {
			return 0, fmt.Errorf("importing denunciation %s: %w", d.ID, err)
		}

		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	r.notify(ctx)

	return inserted, nil
}

const selectColumns = `
	SELECT id, title, category, custom_category, description, location,
	       street, neighborhood, city, state, lat, lng, h3_cell,
	       is_anonymous, reporter_name, user_id, created_at, status,
	       image_url, likes, dislikes
	FROM denunciations
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDenunciation(row rowScanner) (*Denunciation, error) {
	var (
		d               Denunciation
		lat, lng        sql.NullFloat64
		cell            sql.NullInt64
		status          string
		likes, dislikes any
	)

	err := row.Scan(
		&d.ID,
		&d.Title,
		&d.Category,
		&d.CustomCategory,
		&d.Description,
		&d.Location,
		&d.Address.Street,
		&d.Address.Neighborhood,
		&d.Address.City,
		&d.Address.State,
		&lat,
		&lng,
		&cell,
		&d.IsAnonymous,
		&d.ReporterName,
		&d.UserID,
		&d.CreatedAt,
		&status,
		&d.ImageURL,
		&likes,
		&dislikes,
	)
	if err != nil {
		return nil, err
	}

	d.Status = Status(status)

	if lat.Valid && lng.Valid {
		d.Point = &spatial.Point{Lat: lat.Float64, Lng: lng.Float64}
	}

	if cell.Valid {
		d.H3Cell = cell.Int64
	}

	var ok bool

	if d.Likes, ok = textutils.AnyToStringSlice(likes); !ok {
		return nil, fmt.Errorf("failed to convert likes to []string for denunciation: %s", d.ID)
	}

	if d.Dislikes, ok = textutils.AnyToStringSlice(dislikes); !ok {
		return nil, fmt.Errorf("failed to convert dislikes to []string for denunciation: %s", d.ID)
	}

	v := normalizeVotes(d.Votes())
	d.Likes, d.Dislikes = v.Likes, v.Dislikes

	return &d, nil
}

func normalizeVotes(v VoteSets) VoteSets {
	if v.Likes == nil {
		v.Likes = []string{}
	}

	if v.Dislikes == nil {
		v.Dislikes = []string{}
	}

	return v
}

// Get implements Store.
func (r *Repository) Get(ctx context.Context, id string) (*Denunciation, error) {
	d, err := scanDenunciation(r.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("reading denunciation %s: %w", id, err)
	}

	return d, nil
}

// List implements Store.
func (r *Repository) List(ctx context.Context) ([]*Denunciation, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+` ORDER BY created_at DESC, seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing denunciations: %w", err)
	}
	defer rows.Close()

	records := []*Denunciation{}

	for rows.Next() {
		d, err := scanDenunciation(rows)
		if err != nil {
			return nil, err
		}

		records = append(records, d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// SetImageURL implements Store.
func (r *Repository) SetImageURL(ctx context.Context, id, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.ExecContext(ctx, `
		UPDATE denunciations
		SET image_url = ?
		WHERE id = ? AND (image_url = '' OR image_url = ?)
	`, url, id, url)
	if err != nil {
		return fmt.Errorf("setting image of denunciation %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}

		return ErrImageAlreadyAttached
	}

	r.notify(ctx)

	return nil
}

// UpdateVotes implements Store.
func (r *Repository) UpdateVotes(
	ctx context.Context,
	id string,
	fn func(VoteSets) (VoteSets, error),
) (VoteSets, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return VoteSets{}, err
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			log.WithError(err).WithField("id", id).Error("rolling back vote update")
		}
	}()

	var likes, dislikes any

	err = tx.QueryRowContext(ctx, `SELECT likes, dislikes FROM denunciations WHERE id = ?`, id).
		Scan(&likes, &dislikes)
	if errors.Is(err, sql.ErrNoRows) {
		return VoteSets{}, ErrNotFound
	}

	if err != nil {
		return VoteSets{}, fmt.Errorf("reading votes of denunciation %s: %w", id, err)
	}

	var current VoteSets

	var ok bool

	if current.Likes, ok = textutils.AnyToStringSlice(likes); !ok {
		return VoteSets{}, fmt.Errorf("failed to convert likes to []string for denunciation: %s", id)
	}

	if current.Dislikes, ok = textutils.AnyToStringSlice(dislikes); !ok {
		return VoteSets{}, fmt.Errorf("failed to convert dislikes to []string for denunciation: %s", id)
	}

	next, err := fn(normalizeVotes(current))
	if err != nil {
		return VoteSets{}, err
	}

	next = normalizeVotes(next)

	if _, err := tx.ExecContext(ctx, `
		UPDATE denunciations SET likes = ?, dislikes = ? WHERE id = ?
	`, next.Likes, next.Dislikes, id); err != nil {
		return VoteSets{}, fmt.Errorf("writing votes of denunciation %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return VoteSets{}, err
	}

	r.notify(ctx)

	return next, nil
}

// Subscribe implements Store.
func (r *Repository) Subscribe(ctx context.Context, fn SnapshotFunc) (func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	initial, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	return r.feed.subscribe(ctx, fn, initial), nil
}

// notify publishes a fresh snapshot. The caller holds mu.
func (r *Repository) notify(ctx context.Context) {
	if !r.feed.active() {
		return
	}

	// the write already happened, a canceled request must not hide it
	snapshot, err := r.List(context.WithoutCancel(ctx))
	if err != nil {
		log.WithError(err).Error("building denunciations snapshot")

		return
	}

	r.feed.publish(snapshot)
}
