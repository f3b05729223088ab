package repository

import "database/sql"

// Store groups the MySQL repositories behind the storage interfaces the
// service and handler layers consume.
type Store struct {
	*UserRepo
	*TokenRepo
	*AvailabilityRepo
	*EventRepo
	*BookingRepo
}

// NewStore binds every repository to db.
func NewStore(db *sql.DB) *Store {
	return &Store{
		UserRepo:         NewUserRepo(db),
		TokenRepo:        NewTokenRepo(db),
		AvailabilityRepo: NewAvailabilityRepo(db),
		EventRepo:        NewEventRepo(db),
		BookingRepo:      NewBookingRepo(db),
	}
}
