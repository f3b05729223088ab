package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/iliyamo/crew-booking/internal/model"
	"github.com/iliyamo/crew-booking/internal/repository"
)

// AvailabilityService records who can work on which days.
type AvailabilityService struct {
	store AvailabilityStore
	log   *zap.Logger
}

func NewAvailabilityService(store AvailabilityStore, log *zap.Logger) *AvailabilityService {
	return &AvailabilityService{store: store, log: log}
}

// Submit declares personID available or unavailable on date.  Submitting
// again for the same day overwrites the previous declaration.
func (s *AvailabilityService) Submit(ctx context.Context, personID uint64, date model.Date, available bool, notes *string) (*model.Availability, error) {
	if date.IsZero() {
		return nil, ValidationError("Date is required", FieldError{Field: "date", Message: "required"})
	}
	a, err := s.store.UpsertAvailability(ctx, personID, date, available, notes)
	if err != nil {
		return nil, internalError("upsert availability", err)
	}
	return a, nil
}

// FailedDate is a date of a bulk submission that could not be stored.
type FailedDate struct {
	Date  model.Date `json:"date"`
	Error string     `json:"error"`
}

// BulkResult reports which dates of a bulk submission were stored.
type BulkResult struct {
	Results []model.Availability `json:"results"`
	Failed  []FailedDate         `json:"failed"`
}

// SubmitBulk applies the same declaration to every date independently.  A
// date that fails is reported in Failed and does not stop the others; dates
// already stored are never rolled back.  Repeated dates are stored once.
func (s *AvailabilityService) SubmitBulk(ctx context.Context, personID uint64, dates []model.Date, available bool, notes *string) (*BulkResult, error) {
	if len(dates) == 0 {
		return nil, ValidationError("Dates array is required", FieldError{Field: "dates", Message: "must contain at least one date"})
	}
	res := &BulkResult{Results: []model.Availability{}, Failed: []FailedDate{}}
	seen := make(map[string]bool, len(dates))
	for _, d := range dates {
		if d.IsZero() {
			res.Failed = append(res.Failed, FailedDate{Date: d, Error: "invalid date"})
			continue
		}
		if seen[d.String()] {
			continue
		}
		seen[d.String()] = true
		a, err := s.store.UpsertAvailability(ctx, personID, d, available, notes)
		if err != nil {
			s.log.Warn("bulk availability date failed",
				zap.Uint64("user_id", personID), zap.String("date", d.String()), zap.Error(err))
			res.Failed = append(res.Failed, FailedDate{Date: d, Error: "could not save availability"})
			continue
		}
		res.Results = append(res.Results, *a)
	}
	return res, nil
}

// Delete removes one of personID's own declarations.
func (s *AvailabilityService) Delete(ctx context.Context, id, personID uint64) (*model.Availability, error) {
	a, err := s.store.DeleteAvailability(ctx, id, personID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFoundError("Availability not found or unauthorized")
		}
		return nil, internalError("delete availability", err)
	}
	return a, nil
}

// List returns declarations matching f, ordered by date.
func (s *AvailabilityService) List(ctx context.Context, f model.AvailabilityFilter) ([]model.AvailabilityEntry, error) {
	out, err := s.store.ListAvailability(ctx, f)
	if err != nil {
		return nil, internalError("list availability", err)
	}
	return out, nil
}
