package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/iliyamo/crew-booking/internal/model"
	"github.com/iliyamo/crew-booking/internal/repository"
)

// StatusPolicy tunes how an event's status is derived from its bookings.
type StatusPolicy struct {
	// IgnoreDeclined drops declined bookings before derivation, so an event
	// whose remaining bookings are all confirmed becomes confirmed.  When
	// false, a declined booking keeps the event from being confirmed.
	IgnoreDeclined bool
}

// DeriveStatus maps the statuses of an event's bookings to the event status:
//
//	no bookings          -> unfilled
//	all confirmed        -> confirmed
//	some confirmed       -> partially_filled
//	none confirmed       -> unfilled
//
// It is a pure function of its input.
func DeriveStatus(statuses []model.BookingStatus, policy StatusPolicy) model.EventStatus {
	total, confirmed := 0, 0
	for _, s := range statuses {
		if policy.IgnoreDeclined && s == model.BookingDeclined {
			continue
		}
		total++
		if s == model.BookingConfirmed {
			confirmed++
		}
	}
	switch {
	case total == 0:
		return model.EventUnfilled
	case confirmed == total:
		return model.EventConfirmed
	case confirmed > 0:
		return model.EventPartiallyFilled
	}
	return model.EventUnfilled
}

// Reconciler recomputes and stores an event's derived status.
type Reconciler struct {
	events EventStore
	policy StatusPolicy
	log    *zap.Logger
}

func NewReconciler(events EventStore, policy StatusPolicy, log *zap.Logger) *Reconciler {
	return &Reconciler{events: events, policy: policy, log: log}
}

// Reconcile derives the status of eventID from its current bookings and
// stores it.  Running it twice without intervening booking changes leaves
// the event unchanged.
func (r *Reconciler) Reconcile(ctx context.Context, eventID uint64) (model.EventStatus, error) {
	status, err := r.events.ReconcileStatus(ctx, eventID, func(statuses []model.BookingStatus) model.EventStatus {
		return DeriveStatus(statuses, r.policy)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", NotFoundError("Event not found")
		}
		return "", internalError("reconcile event status", err)
	}
	r.log.Debug("event status reconciled", zap.Uint64("event_id", eventID), zap.String("status", string(status)))
	return status, nil
}
