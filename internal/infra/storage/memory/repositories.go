package memory

import (
	"context"
	"sort"
	"sync"

	"ereft/internal/domain/booking"
	"ereft/internal/domain/calendar"
	"ereft/internal/domain/property"
	"ereft/internal/domain/shared/dates"
)

// PropertyRepository keeps properties in a map guarded by a RWMutex.
type PropertyRepository struct {
	mu    sync.RWMutex
	items map[property.ID]property.Property
}

func NewPropertyRepository() *PropertyRepository {
	return &PropertyRepository{items: make(map[property.ID]property.Property)}
}

func (r *PropertyRepository) ByID(ctx context.Context, id property.ID) (*property.Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.items[id]
	if !ok {
		return nil, property.ErrNotFound
	}
	cp := p
	return &cp, nil
}

func (r *PropertyRepository) Save(ctx context.Context, p *property.Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[p.ID] = *p
	return nil
}

func (r *PropertyRepository) Delete(ctx context.Context, id property.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return property.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

var _ property.Repository = (*PropertyRepository)(nil)

// CalendarStore keeps one entry per (property, date). BulkUpsert holds the
// write lock for the whole batch, which is what makes it atomic here.
type CalendarStore struct {
	mu      sync.RWMutex
	entries map[property.ID]map[dates.Date]calendar.Entry
}

func NewCalendarStore() *CalendarStore {
	return &CalendarStore{entries: make(map[property.ID]map[dates.Date]calendar.Entry)}
}

func (s *CalendarStore) Range(ctx context.Context, id property.ID, from, to dates.Date) ([]calendar.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []calendar.Entry
	for d, e := range s.entries[id] {
		if d.Before(from) || d.After(to) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *CalendarStore) Get(ctx context.Context, id property.ID, date dates.Date) (calendar.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id][date]
	if !ok {
		return calendar.Entry{}, calendar.ErrEntryNotFound
	}
	return e, nil
}

func (s *CalendarStore) Upsert(ctx context.Context, entry calendar.Entry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertLocked(entry), nil
}

func (s *CalendarStore) BulkUpsert(ctx context.Context, id property.ID, entries []calendar.Entry) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	created, updated := 0, 0
	for _, e := range entries {
		e.PropertyID = id
		if s.upsertLocked(e) {
			created++
		} else {
			updated++
		}
	}
	return created, updated, nil
}

func (s *CalendarStore) upsertLocked(entry calendar.Entry) bool {
	byDate, ok := s.entries[entry.PropertyID]
	if !ok {
		byDate = make(map[dates.Date]calendar.Entry)
		s.entries[entry.PropertyID] = byDate
	}
	_, existed := byDate[entry.Date]
	byDate[entry.Date] = entry
	return !existed
}

func (s *CalendarStore) Delete(ctx context.Context, id property.ID, date dates.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byDate := s.entries[id]
	if _, ok := byDate[date]; !ok {
		return calendar.ErrEntryNotFound
	}
	delete(byDate, date)
	return nil
}

func (s *CalendarStore) DeleteByOrigin(ctx context.Context, id property.ID, origin calendar.Origin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for d, e := range s.entries[id] {
		if e.Origin == origin {
			delete(s.entries[id], d)
		}
	}
	return nil
}

func (s *CalendarStore) DeleteAll(ctx context.Context, id property.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

var _ calendar.Store = (*CalendarStore)(nil)

// RuleRepository keeps recurring rules indexed by id.
type RuleRepository struct {
	mu    sync.RWMutex
	items map[calendar.RuleID]calendar.Rule
}

func NewRuleRepository() *RuleRepository {
	return &RuleRepository{items: make(map[calendar.RuleID]calendar.Rule)}
}

func (r *RuleRepository) ByID(ctx context.Context, id calendar.RuleID) (*calendar.Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.items[id]
	if !ok {
		return nil, calendar.ErrRuleNotFound
	}
	cp := rule
	return &cp, nil
}

func (r *RuleRepository) ByProperty(ctx context.Context, id property.ID) ([]calendar.Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []calendar.Rule
	for _, rule := range r.items {
		if rule.PropertyID == id {
			out = append(out, rule)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *RuleRepository) Save(ctx context.Context, rule *calendar.Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[rule.ID] = *rule
	return nil
}

func (r *RuleRepository) Delete(ctx context.Context, id calendar.RuleID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return calendar.ErrRuleNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *RuleRepository) DeleteAll(ctx context.Context, id property.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for rid, rule := range r.items {
		if rule.PropertyID == id {
			delete(r.items, rid)
		}
	}
	return nil
}

var _ calendar.RuleRepository = (*RuleRepository)(nil)

// BookingRepository keeps bookings indexed by id with a copy on both sides of
// the map so callers never alias stored state.
type BookingRepository struct {
	mu    sync.RWMutex
	items map[booking.ID]booking.Booking
}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{items: make(map[booking.ID]booking.Booking)}
}

func (r *BookingRepository) ByID(ctx context.Context, id booking.ID) (*booking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.items[id]
	if !ok {
		return nil, booking.ErrNotFound
	}
	cp := b
	cp.ClearEvents()
	return &cp, nil
}

func (r *BookingRepository) ByProperty(ctx context.Context, id property.ID) ([]*booking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*booking.Booking
	for _, b := range r.items {
		if b.PropertyID == id {
			cp := b
			cp.ClearEvents()
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *BookingRepository) Save(ctx context.Context, b *booking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b.Version++
	cp := *b
	cp.ClearEvents()
	r.items[b.ID] = cp
	return nil
}

func (r *BookingRepository) DeleteAll(ctx context.Context, id property.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for bid, b := range r.items {
		if b.PropertyID == id {
			delete(r.items, bid)
		}
	}
	return nil
}

var _ booking.Repository = (*BookingRepository)(nil)
