package assignment

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/householdpro/backend/internal/distance"
	"github.com/householdpro/backend/internal/geocode"
	"github.com/householdpro/backend/internal/models"
)

type fakeStore struct {
	mu        sync.Mutex
	bookings  map[string]models.Booking
	employees []models.Employee
	audit     []models.AuditEntry
	applied   []models.AssignmentChange
	agendaErr error
	poolErr   error
	// applyErrs are returned by successive ApplyAssignment calls before any write.
	applyErrs []error
}

func newFakeStore(employees ...models.Employee) *fakeStore {
	return &fakeStore{bookings: map[string]models.Booking{}, employees: employees}
}

func (f *fakeStore) addBooking(b models.Booking) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bookings[b.ID] = b
}

func (f *fakeStore) booking(id string) models.Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bookings[id]
}

func (f *fakeStore) GetBooking(_ context.Context, id string) (models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return models.Booking{}, models.ErrNotFound
	}
	return b, nil
}

func (f *fakeStore) ListEmployeeAgenda(_ context.Context, employeeID string, date time.Time, statuses []models.BookingStatus) ([]models.Booking, error) {
	if f.agendaErr != nil {
		return nil, f.agendaErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.agendaLocked(employeeID, date, statuses), nil
}

func (f *fakeStore) agendaLocked(employeeID string, date time.Time, statuses []models.BookingStatus) []models.Booking {
	var out []models.Booking
	for _, b := range f.bookings {
		if b.AssignedEmployeeID == nil || *b.AssignedEmployeeID != employeeID {
			continue
		}
		if b.ScheduledDate.Format(models.DateFormat) != date.Format(models.DateFormat) {
			continue
		}
		for _, s := range statuses {
			if b.Status == s {
				out = append(out, b)
				break
			}
		}
	}
	return out
}

func (f *fakeStore) ApplyAssignment(_ context.Context, change models.AssignmentChange) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.applyErrs) > 0 {
		err := f.applyErrs[0]
		f.applyErrs = f.applyErrs[1:]
		return err
	}
	b, ok := f.bookings[change.BookingID]
	if !ok {
		return models.ErrNotFound
	}
	if change.EmployeeID != nil && change.ExpectedWorkload >= 0 {
		load := 0
		for _, other := range f.agendaLocked(*change.EmployeeID, change.ScheduledDate, models.ActiveStatuses) {
			if other.ID != change.BookingID {
				load++
			}
		}
		if load > change.ExpectedWorkload {
			return models.ErrWorkloadChanged
		}
	}
	b.AssignedEmployeeID = change.EmployeeID
	b.Status = change.Status
	f.bookings[b.ID] = b
	f.audit = append(f.audit, change.Audit)
	f.applied = append(f.applied, change)
	return nil
}

func (f *fakeStore) ListEmployees(_ context.Context, filter models.EmployeeFilter) ([]models.Employee, error) {
	if f.poolErr != nil {
		return nil, f.poolErr
	}
	var out []models.Employee
	for _, e := range f.employees {
		if filter.ActiveOnly && !e.IsActive {
			continue
		}
		if filter.AvailableOnly && !e.IsAvailable {
			continue
		}
		if filter.Expertise != "" && !hasTagContaining(e.ExpertiseAreas, filter.Expertise) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeStore) GetEmployee(_ context.Context, id string) (models.Employee, error) {
	for _, e := range f.employees {
		if e.ID == id {
			return e, nil
		}
	}
	return models.Employee{}, models.ErrNotFound
}

func hasTagContaining(tags []string, v string) bool {
	for _, t := range tags {
		if strings.Contains(strings.ToLower(t), strings.ToLower(v)) {
			return true
		}
	}
	return false
}

// mapResolver resolves exact location strings.
type mapResolver map[string]geocode.Point

func (m mapResolver) Resolve(_ context.Context, text string) (geocode.Point, bool) {
	p, ok := m[text]
	return p, ok
}

// northOf returns a point km kilometers due north of the origin.
func northOf(km float64) geocode.Point {
	return geocode.Point{Lat: km / (distance.EarthRadiusKm * math.Pi / 180)}
}

type fakeRecorder struct {
	mu       sync.Mutex
	outcomes []string
	retries  int
}

func (r *fakeRecorder) ObserveAssignment(_ string, code string, _ float64, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, code)
}

func (r *fakeRecorder) ObserveRetry(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retries++
}

type fakePublisher struct {
	entries []models.AuditEntry
	err     error
}

func (p *fakePublisher) PublishAssignment(_ context.Context, entry models.AuditEntry) error {
	p.entries = append(p.entries, entry)
	return p.err
}

func newTestService(store *fakeStore, resolver geocode.Resolver) *Service {
	svc := NewService(store, store, Scorer{Resolver: resolver, Distance: distance.Haversine{}}, zerolog.Nop())
	svc.Now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	return svc
}

func ptr[T any](v T) *T { return &v }

var serviceDay = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
