package fleet

import (
	"context"
	"fmt"

	"github.com/tailored-agentic-units/movi/stage"
)

// Checker reports the effects of changing a trip or route in a Store.
type Checker struct {
	Store *Store
}

// Check never fails for a missing entity; it reports no effects.
func (c Checker) Check(ctx context.Context, category stage.Category, entity string) (stage.Effects, error) {
	if err := ctx.Err(); err != nil {
		return stage.Effects{}, err
	}

	c.Store.mu.RLock()
	defer c.Store.mu.RUnlock()

	switch category {
	case stage.CategoryTrip:
		return tripEffects(&c.Store.data, entity), nil
	case stage.CategoryRoute:
		return routeEffects(&c.Store.data, entity), nil
	}
	return stage.Effects{}, nil
}

func tripEffects(d *Dataset, name string) stage.Effects {
	t := d.tripByName(name)
	if t == nil {
		return stage.Effects{}
	}
	if t.Booking == 0 {
		return stage.Effects{
			HasEffects: true,
			Details:    fmt.Sprintf("You are about to remove the vehicle from trip '%s'. This trip currently has no bookings.", name),
		}
	}
	return stage.Effects{
		HasEffects: true,
		Details:    fmt.Sprintf("The trip '%s' is already %s%% booked by employees.", name, pct(t.Booking)),
	}
}

func routeEffects(d *Dataset, name string) stage.Effects {
	r := d.routeByName(name)
	if r == nil {
		return stage.Effects{}
	}
	trips := d.tripsOn(r.ID)
	if len(trips) == 0 {
		return stage.Effects{}
	}

	booked, total := 0, 0.0
	for _, t := range trips {
		if t.Booking > 0 {
			booked++
			total += t.Booking
		}
	}
	if booked > 0 {
		return stage.Effects{
			HasEffects: true,
			Details:    fmt.Sprintf("Route '%s' has %d active trips with bookings (total: %s%%).", name, booked, pct(total)),
		}
	}
	return stage.Effects{
		HasEffects: true,
		Details:    fmt.Sprintf("Route '%s' has %d active trips but no bookings yet.", name, len(trips)),
	}
}
