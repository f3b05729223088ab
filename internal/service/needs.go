package service

import (
	"context"

	"github.com/iliyamo/crew-booking/internal/model"
)

// NeedsProjector computes what each open event still needs.  It only
// reads.
type NeedsProjector struct {
	store Store
}

func NewNeedsProjector(store Store) *NeedsProjector {
	return &NeedsProjector{store: store}
}

// ListOpenNeeds returns every unfilled or partially filled event, earliest
// first.  For each position it reports how many bookings of that role exist
// in any status, how many are still needed (negative when overbooked) and
// who could fill it: people of that role who are available on the event
// date and hold no booking on the event.
func (n *NeedsProjector) ListOpenNeeds(ctx context.Context) ([]model.EventNeeds, error) {
	events, err := n.store.ListEvents(ctx, model.EventFilter{Statuses: model.OpenStatuses})
	if err != nil {
		return nil, internalError("list open events", err)
	}
	out := make([]model.EventNeeds, 0, len(events))
	for _, ev := range events {
		positions, err := n.store.ListPositions(ctx, ev.ID)
		if err != nil {
			return nil, internalError("list positions", err)
		}
		bookings, err := n.store.ListEventBookings(ctx, ev.ID)
		if err != nil {
			return nil, internalError("list event bookings", err)
		}
		booked := map[model.RoleCategory]int{}
		for _, b := range bookings {
			booked[b.Role]++
		}
		needs := make([]model.PositionNeed, 0, len(positions))
		for _, p := range positions {
			candidates, err := n.store.ListCandidates(ctx, ev.ID, ev.Date, p.Role)
			if err != nil {
				return nil, internalError("list candidates", err)
			}
			needs = append(needs, model.PositionNeed{
				Role:            p.Role,
				QuantityNeeded:  p.Quantity,
				BookedCount:     booked[p.Role],
				RemainingNeeded: p.Quantity - booked[p.Role],
				AvailablePeople: candidates,
			})
		}
		out = append(out, model.EventNeeds{Event: ev, Positions: needs, Bookings: bookings})
	}
	return out, nil
}
