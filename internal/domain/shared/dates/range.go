package dates

import "errors"

var ErrInvalidRange = errors.New("dates: check-out must be after check-in")

// Range is a half-open stay interval [CheckIn, CheckOut): the check-out date
// itself is not an occupied night.
type Range struct {
	CheckIn  Date
	CheckOut Date
}

func NewRange(checkIn, checkOut Date) (Range, error) {
	r := Range{CheckIn: checkIn, CheckOut: checkOut}
	if err := r.Validate(); err != nil {
		return Range{}, err
	}
	return r, nil
}

func (r Range) Validate() error {
	if r.CheckIn.IsZero() || r.CheckOut.IsZero() {
		return ErrInvalidRange
	}
	if !r.CheckOut.After(r.CheckIn) {
		return ErrInvalidRange
	}
	return nil
}

func (r Range) Nights() int {
	return r.CheckIn.DaysUntil(r.CheckOut)
}

// NightDates enumerates every occupied night in ascending order.
func (r Range) NightDates() []Date {
	n := r.Nights()
	if n <= 0 {
		return nil
	}
	out := make([]Date, 0, n)
	for d := r.CheckIn; d.Before(r.CheckOut); d = d.AddDays(1) {
		out = append(out, d)
	}
	return out
}

func (r Range) Overlaps(other Range) bool {
	return r.CheckIn.Before(other.CheckOut) && other.CheckIn.Before(r.CheckOut)
}

func (r Range) ContainsDate(d Date) bool {
	return !d.Before(r.CheckIn) && d.Before(r.CheckOut)
}
