package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/crew-booking/internal/model"
)

// AvailabilityRepo stores day-level availability declarations.  The
// (date, user_id) unique key guarantees one record per person per day.
type AvailabilityRepo struct {
	db *sql.DB
}

// NewAvailabilityRepo returns a new AvailabilityRepo bound to the given database.
func NewAvailabilityRepo(db *sql.DB) *AvailabilityRepo { return &AvailabilityRepo{db: db} }

// UpsertAvailability writes the declaration for (date, userID) in a single
// statement.  A resubmission overwrites available and notes and advances
// submitted_at, so concurrent submissions can never produce two rows.
func (r *AvailabilityRepo) UpsertAvailability(ctx context.Context, userID uint64, date model.Date, available bool, notes *string) (*model.Availability, error) {
	const q = `INSERT INTO availability (date, user_id, available, notes, submitted_at)
	           VALUES (?, ?, ?, ?, UTC_TIMESTAMP(6))
	           ON DUPLICATE KEY UPDATE available = VALUES(available), notes = VALUES(notes),
	                                   submitted_at = UTC_TIMESTAMP(6)`
	if _, err := r.db.ExecContext(ctx, q, date, userID, available, notes); err != nil {
		return nil, err
	}
	// LastInsertId is unreliable for the update branch, so read the row back
	// by its natural key.
	const sel = `SELECT id, date, user_id, available, notes, submitted_at
	             FROM availability WHERE date = ? AND user_id = ?`
	var (
		a  model.Availability
		ns sql.NullString
	)
	err := r.db.QueryRowContext(ctx, sel, date, userID).Scan(
		&a.ID, &a.Date, &a.UserID, &a.Available, &ns, &a.SubmittedAt)
	if err != nil {
		return nil, err
	}
	a.Notes = nullableString(ns)
	return &a, nil
}

// ListAvailability returns records joined with the person's display fields,
// ordered by date and then by name.
func (r *AvailabilityRepo) ListAvailability(ctx context.Context, f model.AvailabilityFilter) ([]model.AvailabilityEntry, error) {
	var (
		where []string
		args  []any
	)
	if !f.Date.IsZero() {
		where = append(where, "a.date = ?")
		args = append(args, f.Date)
	}
	if !f.StartDate.IsZero() {
		where = append(where, "a.date >= ?")
		args = append(args, f.StartDate)
	}
	if !f.EndDate.IsZero() {
		where = append(where, "a.date <= ?")
		args = append(args, f.EndDate)
	}
	if f.UserID != 0 {
		where = append(where, "a.user_id = ?")
		args = append(args, f.UserID)
	}
	q := `SELECT a.id, a.date, a.user_id, a.available, a.notes, a.submitted_at,
	             u.name, u.email, u.role_category, u.contact, u.emergency_contact
	      FROM availability a
	      JOIN users u ON u.id = a.user_id`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY a.date ASC, u.name ASC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.AvailabilityEntry{}
	for rows.Next() {
		var (
			e           model.AvailabilityEntry
			notes, emer sql.NullString
			role        sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Date, &e.UserID, &e.Available, &notes, &e.SubmittedAt,
			&e.Name, &e.Email, &role, &e.Contact, &emer); err != nil {
			return nil, err
		}
		e.Notes = nullableString(notes)
		e.RoleCategory = model.RoleCategory(role.String)
		e.EmergencyContact = nullableString(emer)
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteAvailability removes the record with the given id when it belongs to
// userID.  Missing and foreign records both yield ErrNotFound so the caller
// cannot probe for other people's declarations.
func (r *AvailabilityRepo) DeleteAvailability(ctx context.Context, id, userID uint64) (*model.Availability, error) {
	const sel = `SELECT id, date, user_id, available, notes, submitted_at
	             FROM availability WHERE id = ? AND user_id = ?`
	var (
		a  model.Availability
		ns sql.NullString
	)
	err := r.db.QueryRowContext(ctx, sel, id, userID).Scan(
		&a.ID, &a.Date, &a.UserID, &a.Available, &ns, &a.SubmittedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	a.Notes = nullableString(ns)
	res, err := r.db.ExecContext(ctx, `DELETE FROM availability WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return &a, nil
}

// IsAvailable reports whether userID has declared themselves available on
// date.  No record counts as unavailable.
func (r *AvailabilityRepo) IsAvailable(ctx context.Context, userID uint64, date model.Date) (bool, error) {
	var available bool
	err := r.db.QueryRowContext(ctx,
		`SELECT available FROM availability WHERE user_id = ? AND date = ?`, userID, date).Scan(&available)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return available, nil
}

// ListCandidates returns people whose role_category equals role, who are
// available on date and who hold no booking of any role or status on
// eventID.
func (r *AvailabilityRepo) ListCandidates(ctx context.Context, eventID uint64, date model.Date, role model.RoleCategory) ([]model.Candidate, error) {
	const q = `SELECT u.id, u.name, u.contact, u.emergency_contact, u.role_category, a.notes
	           FROM users u
	           JOIN availability a ON a.user_id = u.id AND a.date = ? AND a.available = TRUE
	           WHERE u.role_category = ?
	             AND NOT EXISTS (SELECT 1 FROM bookings b WHERE b.event_id = ? AND b.user_id = u.id)
	           ORDER BY u.name ASC`
	rows, err := r.db.QueryContext(ctx, q, date, string(role), eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Candidate{}
	for rows.Next() {
		var (
			c           model.Candidate
			emer, notes sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Contact, &emer, &c.RoleCategory, &notes); err != nil {
			return nil, err
		}
		c.EmergencyContact = nullableString(emer)
		c.Notes = nullableString(notes)
		out = append(out, c)
	}
	return out, rows.Err()
}
