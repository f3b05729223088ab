package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/crew-booking/internal/model"
)

// BookingRepo is the booking ledger.  The (event_id, user_id) unique key
// is what keeps a person from holding two bookings on one event, including
// when two coordinators propose the same person at the same moment.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, event_id, role, user_id, status, booked_by, booked_at, confirmed_at`

// CreateBooking inserts b with status pending.  A lost race on the unique
// key surfaces as ErrDuplicate.
func (r *BookingRepo) CreateBooking(ctx context.Context, b *model.Booking) error {
	if b.Status == "" {
		b.Status = model.BookingPending
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO bookings (event_id, role, user_id, status, booked_by) VALUES (?, ?, ?, ?, ?)`,
		b.EventID, string(b.Role), b.UserID, string(b.Status), b.BookedBy)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	stored, err := r.GetBooking(ctx, uint64(id))
	if err != nil {
		return err
	}
	*b = *stored
	return nil
}

// GetBooking returns the booking with the given id or ErrNotFound.
func (r *BookingRepo) GetBooking(ctx context.Context, id uint64) (*model.Booking, error) {
	var b model.Booking
	err := scanBooking(r.db.QueryRowContext(ctx, "SELECT "+bookingColumns+" FROM bookings WHERE id = ?", id), &b)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

// HasBooking reports whether userID holds a booking of any role or status
// on eventID.
func (r *BookingRepo) HasBooking(ctx context.Context, eventID, userID uint64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM bookings WHERE event_id = ? AND user_id = ? LIMIT 1`, eventID, userID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// RespondBooking moves a pending booking owned by userID to status.  The
// update is conditional on status = 'pending', so of two concurrent
// responses only the first takes effect.  A booking that is missing or
// owned by someone else yields ErrForbidden; one that is already decided
// yields ErrConflict.
func (r *BookingRepo) RespondBooking(ctx context.Context, id, userID uint64, status model.BookingStatus, at time.Time) (*model.Booking, error) {
	var confirmedAt any
	if status == model.BookingConfirmed {
		confirmedAt = at.UTC()
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET status = ?, confirmed_at = ?
		 WHERE id = ? AND user_id = ? AND status = 'pending'`,
		string(status), confirmedAt, id, userID)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	b, err := r.GetBooking(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrForbidden
		}
		return nil, err
	}
	if b.UserID != userID {
		return nil, ErrForbidden
	}
	if n == 0 {
		return b, ErrConflict
	}
	return b, nil
}

// ListEventBookings returns an event's bookings joined with the booked
// person's display fields, ordered by role and then name.
func (r *BookingRepo) ListEventBookings(ctx context.Context, eventID uint64) ([]model.BookingDetail, error) {
	const q = `SELECT b.id, b.event_id, b.role, b.user_id, b.status, b.booked_by, b.booked_at, b.confirmed_at,
	                  u.name, u.email, u.role_category, u.contact, u.emergency_contact
	           FROM bookings b
	           JOIN users u ON u.id = b.user_id
	           WHERE b.event_id = ?
	           ORDER BY b.role ASC, u.name ASC`
	rows, err := r.db.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.BookingDetail{}
	for rows.Next() {
		var (
			d          model.BookingDetail
			confirmed  sql.NullTime
			role, emer sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.EventID, &d.Role, &d.UserID, &d.Status, &d.BookedBy, &d.BookedAt, &confirmed,
			&d.Name, &d.Email, &role, &d.Contact, &emer); err != nil {
			return nil, err
		}
		d.ConfirmedAt = nullableTime(confirmed)
		d.RoleCategory = model.RoleCategory(role.String)
		d.EmergencyContact = nullableString(emer)
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListUserBookings returns a person's bookings joined with their event
// fields, ordered by event date.
func (r *BookingRepo) ListUserBookings(ctx context.Context, userID uint64) ([]model.UserBooking, error) {
	const q = `SELECT b.id, b.event_id, b.role, b.user_id, b.status, b.booked_by, b.booked_at, b.confirmed_at,
	                  e.date, e.name, e.venue, e.time
	           FROM bookings b
	           JOIN events e ON e.id = b.event_id
	           WHERE b.user_id = ?
	           ORDER BY e.date ASC, b.id ASC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.UserBooking{}
	for rows.Next() {
		var (
			ub        model.UserBooking
			confirmed sql.NullTime
		)
		if err := rows.Scan(&ub.ID, &ub.EventID, &ub.Role, &ub.UserID, &ub.Status, &ub.BookedBy, &ub.BookedAt, &confirmed,
			&ub.EventDate, &ub.EventName, &ub.Venue, &ub.Time); err != nil {
			return nil, err
		}
		ub.ConfirmedAt = nullableTime(confirmed)
		out = append(out, ub)
	}
	return out, rows.Err()
}

func scanBooking(row rowScanner, b *model.Booking) error {
	var confirmed sql.NullTime
	if err := row.Scan(&b.ID, &b.EventID, &b.Role, &b.UserID, &b.Status, &b.BookedBy, &b.BookedAt, &confirmed); err != nil {
		return err
	}
	b.ConfirmedAt = nullableTime(confirmed)
	return nil
}

func nullableTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
