package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/crew-booking/internal/model"
)

// EventRepo manages persistence for events and their position
// requirements.  Positions and bookings reference events with ON DELETE
// CASCADE, so deleting an event removes everything attached to it.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

const eventColumns = `id, date, venue, time, name, notes, status, created_by, created_at, updated_at`

// CreateEvent inserts e and its positions in one transaction.  On success
// the generated ID and DB-default fields (status, timestamps) are populated
// on e.  A repeated role within positions fails with ErrDuplicate and
// nothing is written.
func (r *EventRepo) CreateEvent(ctx context.Context, e *model.Event, positions []model.PositionRequest) (out []model.Position, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO events (date, venue, time, name, notes, created_by) VALUES (?, ?, ?, ?, ?, ?)`,
		e.Date, e.Venue, e.Time, e.Name, e.Notes, e.CreatedBy)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	e.ID = uint64(id)

	for _, p := range positions {
		pres, perr := tx.ExecContext(ctx,
			`INSERT INTO event_positions (event_id, role, quantity) VALUES (?, ?, ?)`,
			e.ID, string(p.Role), p.Quantity)
		if perr != nil {
			if isDuplicateKey(perr) {
				err = ErrDuplicate
				return nil, err
			}
			err = perr
			return nil, err
		}
		pid, perr := pres.LastInsertId()
		if perr != nil {
			err = perr
			return nil, err
		}
		out = append(out, model.Position{ID: uint64(pid), EventID: e.ID, Role: p.Role, Quantity: p.Quantity})
	}

	// Query back the event row to obtain status and timestamps.
	if err = scanEvent(tx.QueryRowContext(ctx, "SELECT "+eventColumns+" FROM events WHERE id = ?", e.ID), e); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].CreatedAt = e.CreatedAt
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetEvent returns the event with the given id or ErrNotFound.
func (r *EventRepo) GetEvent(ctx context.Context, id uint64) (*model.Event, error) {
	var e model.Event
	err := scanEvent(r.db.QueryRowContext(ctx, "SELECT "+eventColumns+" FROM events WHERE id = ?", id), &e)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// ListEvents returns events matching f ordered by date ascending.
func (r *EventRepo) ListEvents(ctx context.Context, f model.EventFilter) ([]model.Event, error) {
	var (
		where []string
		args  []any
	)
	if !f.StartDate.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, f.StartDate)
	}
	if !f.EndDate.IsZero() {
		where = append(where, "date <= ?")
		args = append(args, f.EndDate)
	}
	if len(f.Statuses) > 0 {
		marks := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			marks[i] = "?"
			args = append(args, string(s))
		}
		where = append(where, "status IN ("+strings.Join(marks, ",")+")")
	}
	q := "SELECT " + eventColumns + " FROM events"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY date ASC, id ASC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Event{}
	for rows.Next() {
		var e model.Event
		if err := scanEvent(rows, &e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListPositions returns the requirements of an event in insertion order.
func (r *EventRepo) ListPositions(ctx context.Context, eventID uint64) ([]model.Position, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, event_id, role, quantity, created_at FROM event_positions WHERE event_id = ? ORDER BY id ASC`,
		eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Position{}
	for rows.Next() {
		var p model.Position
		if err := rows.Scan(&p.ID, &p.EventID, &p.Role, &p.Quantity, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateEvent overwrites every editable field of e, status included, and
// refreshes e from the stored row.  It returns ErrNotFound when the event
// does not exist.
func (r *EventRepo) UpdateEvent(ctx context.Context, e *model.Event) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE events SET date = ?, venue = ?, time = ?, name = ?, notes = ?, status = ?, updated_at = UTC_TIMESTAMP()
		 WHERE id = ?`,
		e.Date, e.Venue, e.Time, e.Name, e.Notes, string(e.Status), e.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports 0 affected rows for an unchanged row too, so
		// confirm the row is really gone before failing.
		if _, gerr := r.GetEvent(ctx, e.ID); gerr != nil {
			return gerr
		}
	}
	fresh, err := r.GetEvent(ctx, e.ID)
	if err != nil {
		return err
	}
	*e = *fresh
	return nil
}

// DeleteEvent removes an event and, through the foreign keys, its positions
// and bookings.  It returns the deleted event or ErrNotFound.
func (r *EventRepo) DeleteEvent(ctx context.Context, id uint64) (*model.Event, error) {
	e, err := r.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return e, nil
}

// ReconcileStatus locks the event row, reads the statuses of all of its
// bookings under that lock and stores derive(statuses).  Concurrent
// reconciles of the same event serialise on the row lock, and each one
// reads bookings committed before it acquired the lock, so the last one to
// commit always reflects the full set.
func (r *EventRepo) ReconcileStatus(ctx context.Context, eventID uint64, derive func([]model.BookingStatus) model.EventStatus) (status model.EventStatus, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var current model.EventStatus
	if err = tx.QueryRowContext(ctx, `SELECT status FROM events WHERE id = ? FOR UPDATE`, eventID).Scan(&current); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}

	rows, err := tx.QueryContext(ctx, `SELECT status FROM bookings WHERE event_id = ?`, eventID)
	if err != nil {
		return "", err
	}
	var statuses []model.BookingStatus
	for rows.Next() {
		var s model.BookingStatus
		if err = rows.Scan(&s); err != nil {
			rows.Close()
			return "", err
		}
		statuses = append(statuses, s)
	}
	if err = rows.Err(); err != nil {
		rows.Close()
		return "", err
	}
	rows.Close()

	status = derive(statuses)
	if status != current {
		if _, err = tx.ExecContext(ctx,
			`UPDATE events SET status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`, string(status), eventID); err != nil {
			return "", err
		}
	}
	if err = tx.Commit(); err != nil {
		return "", err
	}
	committed = true
	return status, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner, e *model.Event) error {
	var notes sql.NullString
	if err := row.Scan(&e.ID, &e.Date, &e.Venue, &e.Time, &e.Name, &notes, &e.Status,
		&e.CreatedBy, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return err
	}
	e.Notes = nullableString(notes)
	return nil
}
