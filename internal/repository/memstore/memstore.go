// Package memstore is an in-memory implementation of the storage
// interfaces.  It enforces the same unique keys and cascades as the MySQL
// schema under a single mutex, and backs both STORAGE_DRIVER=memory and
// the service and handler tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/crew-booking/internal/model"
	"github.com/iliyamo/crew-booking/internal/repository"
)

type availabilityKey struct {
	date   string
	userID uint64
}

type bookingKey struct {
	eventID uint64
	userID  uint64
}

type refreshToken struct {
	userID  uint64
	expires time.Time
	revoked bool
}

// Store holds every table in maps keyed by primary key, plus the unique
// indexes the schema declares.
type Store struct {
	mu  sync.Mutex
	now func() time.Time

	nextID uint64

	users        map[uint64]*model.Person
	usersByEmail map[string]uint64

	tokens map[string]*refreshToken

	availability      map[uint64]*model.Availability
	availabilityByKey map[availabilityKey]uint64

	events    map[uint64]*model.Event
	positions map[uint64][]model.Position

	bookings      map[uint64]*model.Booking
	bookingsByKey map[bookingKey]uint64
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{
		now:               time.Now,
		users:             map[uint64]*model.Person{},
		usersByEmail:      map[string]uint64{},
		tokens:            map[string]*refreshToken{},
		availability:      map[uint64]*model.Availability{},
		availabilityByKey: map[availabilityKey]uint64{},
		events:            map[uint64]*model.Event{},
		positions:         map[uint64][]model.Position{},
		bookings:          map[uint64]*model.Booking{},
		bookingsByKey:     map[bookingKey]uint64{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) id() uint64 {
	s.nextID++
	return s.nextID
}

func (s *Store) timestamp() time.Time { return s.now().UTC() }

// ---- users ----

func (s *Store) CreateUser(_ context.Context, p *model.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	if _, ok := s.usersByEmail[p.Email]; ok {
		return repository.ErrEmailExists
	}
	now := s.timestamp()
	p.ID = s.id()
	p.CreatedAt, p.UpdatedAt = now, now
	cp := *p
	s.users[p.ID] = &cp
	s.usersByEmail[p.Email] = p.ID
	return nil
}

func (s *Store) GetByEmail(_ context.Context, email string) (*model.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.usersByEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s.users[id]
	return &cp, nil
}

func (s *Store) GetPerson(_ context.Context, id uint64) (*model.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// ---- refresh tokens ----

func (s *Store) StoreRefresh(_ context.Context, userID uint64, tokenHash string, exp time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[tokenHash]; ok {
		return repository.ErrDuplicate
	}
	s.tokens[tokenHash] = &refreshToken{userID: userID, expires: exp}
	return nil
}

func (s *Store) activeToken(tokenHash string) (*refreshToken, bool) {
	t, ok := s.tokens[tokenHash]
	if !ok || t.revoked || s.timestamp().After(t.expires) {
		return nil, false
	}
	return t, true
}

func (s *Store) ValidateRefresh(_ context.Context, tokenHash string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.activeToken(tokenHash)
	if !ok {
		return 0, repository.ErrNotFound
	}
	return t.userID, nil
}

func (s *Store) RotateRefresh(_ context.Context, oldHash, newHash string, exp time.Time) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.activeToken(oldHash)
	if !ok {
		return 0, repository.ErrNotFound
	}
	t.revoked = true
	s.tokens[newHash] = &refreshToken{userID: t.userID, expires: exp}
	return t.userID, nil
}

func (s *Store) RevokeByHash(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tokens[tokenHash]; ok {
		t.revoked = true
	}
	return nil
}

func (s *Store) RevokeAllForUser(_ context.Context, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tokens {
		if t.userID == userID {
			t.revoked = true
		}
	}
	return nil
}

// ---- availability ----

func (s *Store) UpsertAvailability(_ context.Context, userID uint64, date model.Date, available bool, notes *string) (*model.Availability, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return nil, repository.ErrNotFound
	}
	key := availabilityKey{date: date.String(), userID: userID}
	now := s.timestamp()
	if id, ok := s.availabilityByKey[key]; ok {
		a := s.availability[id]
		// submitted_at strictly advances on every resubmission, even when
		// the clock has not ticked.
		if !now.After(a.SubmittedAt) {
			now = a.SubmittedAt.Add(time.Microsecond)
		}
		a.Available, a.Notes, a.SubmittedAt = available, copyString(notes), now
		cp := *a
		return &cp, nil
	}
	a := &model.Availability{
		ID:          s.id(),
		Date:        date,
		UserID:      userID,
		Available:   available,
		Notes:       copyString(notes),
		SubmittedAt: now,
	}
	s.availability[a.ID] = a
	s.availabilityByKey[key] = a.ID
	cp := *a
	return &cp, nil
}

func (s *Store) ListAvailability(_ context.Context, f model.AvailabilityFilter) ([]model.AvailabilityEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.AvailabilityEntry{}
	for _, a := range s.availability {
		if !f.Matches(a) {
			continue
		}
		p := s.users[a.UserID]
		out = append(out, model.AvailabilityEntry{Availability: *a, PersonSummary: p.Summary()})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) DeleteAvailability(_ context.Context, id, userID uint64) (*model.Availability, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.availability[id]
	if !ok || a.UserID != userID {
		return nil, repository.ErrNotFound
	}
	delete(s.availability, id)
	delete(s.availabilityByKey, availabilityKey{date: a.Date.String(), userID: a.UserID})
	return a, nil
}

func (s *Store) IsAvailable(_ context.Context, userID uint64, date model.Date) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.availabilityByKey[availabilityKey{date: date.String(), userID: userID}]
	if !ok {
		return false, nil
	}
	return s.availability[id].Available, nil
}

func (s *Store) ListCandidates(_ context.Context, eventID uint64, date model.Date, role model.RoleCategory) ([]model.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Candidate{}
	for _, p := range s.users {
		if p.RoleCategory != role || p.RoleCategory == model.RoleNone {
			continue
		}
		id, ok := s.availabilityByKey[availabilityKey{date: date.String(), userID: p.ID}]
		if !ok || !s.availability[id].Available {
			continue
		}
		if _, booked := s.bookingsByKey[bookingKey{eventID: eventID, userID: p.ID}]; booked {
			continue
		}
		out = append(out, model.Candidate{
			ID:               p.ID,
			Name:             p.Name,
			Contact:          p.Contact,
			EmergencyContact: p.EmergencyContact,
			RoleCategory:     p.RoleCategory,
			Notes:            copyString(s.availability[id].Notes),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ---- events ----

func (s *Store) CreateEvent(_ context.Context, e *model.Event, reqs []model.PositionRequest) ([]model.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[model.RoleCategory]bool{}
	for _, r := range reqs {
		if seen[r.Role] {
			return nil, repository.ErrDuplicate
		}
		seen[r.Role] = true
	}
	now := s.timestamp()
	e.ID = s.id()
	e.Status = model.EventUnfilled
	e.CreatedAt, e.UpdatedAt = now, now
	cp := *e
	cp.Notes = copyString(e.Notes)
	s.events[e.ID] = &cp

	positions := make([]model.Position, 0, len(reqs))
	for _, r := range reqs {
		positions = append(positions, model.Position{
			ID: s.id(), EventID: e.ID, Role: r.Role, Quantity: r.Quantity, CreatedAt: now,
		})
	}
	s.positions[e.ID] = positions
	return append([]model.Position(nil), positions...), nil
}

func (s *Store) GetEvent(_ context.Context, id uint64) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *Store) ListEvents(_ context.Context, f model.EventFilter) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Event{}
	for _, e := range s.events {
		if f.Matches(e) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) ListPositions(_ context.Context, eventID uint64) ([]model.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Position{}, s.positions[eventID]...), nil
}

func (s *Store) UpdateEvent(_ context.Context, e *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.events[e.ID]
	if !ok {
		return repository.ErrNotFound
	}
	cur.Date, cur.Venue, cur.Time, cur.Name = e.Date, e.Venue, e.Time, e.Name
	cur.Notes = copyString(e.Notes)
	cur.Status = e.Status
	cur.UpdatedAt = s.timestamp()
	*e = *cur
	return nil
}

func (s *Store) DeleteEvent(_ context.Context, id uint64) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(s.events, id)
	delete(s.positions, id)
	for bid, b := range s.bookings {
		if b.EventID == id {
			delete(s.bookings, bid)
			delete(s.bookingsByKey, bookingKey{eventID: id, userID: b.UserID})
		}
	}
	return e, nil
}

func (s *Store) ReconcileStatus(_ context.Context, eventID uint64, derive func([]model.BookingStatus) model.EventStatus) (model.EventStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[eventID]
	if !ok {
		return "", repository.ErrNotFound
	}
	var statuses []model.BookingStatus
	for _, b := range s.bookings {
		if b.EventID == eventID {
			statuses = append(statuses, b.Status)
		}
	}
	status := derive(statuses)
	if status != e.Status {
		e.Status = status
		e.UpdatedAt = s.timestamp()
	}
	return status, nil
}

// ---- bookings ----

func (s *Store) CreateBooking(_ context.Context, b *model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[b.EventID]; !ok {
		return repository.ErrNotFound
	}
	if _, ok := s.users[b.UserID]; !ok {
		return repository.ErrNotFound
	}
	key := bookingKey{eventID: b.EventID, userID: b.UserID}
	if _, ok := s.bookingsByKey[key]; ok {
		return repository.ErrDuplicate
	}
	if b.Status == "" {
		b.Status = model.BookingPending
	}
	b.ID = s.id()
	b.BookedAt = s.timestamp()
	b.ConfirmedAt = nil
	cp := *b
	s.bookings[b.ID] = &cp
	s.bookingsByKey[key] = b.ID
	return nil
}

func (s *Store) GetBooking(_ context.Context, id uint64) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *Store) HasBooking(_ context.Context, eventID, userID uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.bookingsByKey[bookingKey{eventID: eventID, userID: userID}]
	return ok, nil
}

func (s *Store) RespondBooking(_ context.Context, id, userID uint64, status model.BookingStatus, at time.Time) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok || b.UserID != userID {
		return nil, repository.ErrForbidden
	}
	if b.Status != model.BookingPending {
		cp := *b
		return &cp, repository.ErrConflict
	}
	b.Status = status
	if status == model.BookingConfirmed {
		t := at.UTC()
		b.ConfirmedAt = &t
	}
	cp := *b
	return &cp, nil
}

func (s *Store) ListEventBookings(_ context.Context, eventID uint64) ([]model.BookingDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.BookingDetail{}
	for _, b := range s.bookings {
		if b.EventID != eventID {
			continue
		}
		out = append(out, model.BookingDetail{Booking: *b, PersonSummary: s.users[b.UserID].Summary()})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Role != out[j].Role {
			return out[i].Role < out[j].Role
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) ListUserBookings(_ context.Context, userID uint64) ([]model.UserBooking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.UserBooking{}
	for _, b := range s.bookings {
		if b.UserID != userID {
			continue
		}
		e := s.events[b.EventID]
		out = append(out, model.UserBooking{
			Booking:   *b,
			EventDate: e.Date,
			EventName: e.Name,
			Venue:     e.Venue,
			Time:      e.Time,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EventDate.Equal(out[j].EventDate) {
			return out[i].EventDate.Before(out[j].EventDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
