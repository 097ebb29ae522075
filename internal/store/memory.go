package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/eventflow/backend/internal/models"
)

// Memory implements Store in process memory.
// Intended for demos and testing; no Postgres required.
// Transactions are serialised and rolled back by restoring a snapshot.
// Calls made outside a transaction wait until no transaction is open, so
// they never observe uncommitted writes.
type Memory struct {
	state *memState
	inTx  bool
}

type memState struct {
	mu   sync.RWMutex
	txMu sync.RWMutex
	data memData
	now  func() time.Time
}

type memData struct {
	seq           int64
	users         map[int64]models.User
	events        map[int64]models.Event
	registrations map[int64]models.Registration
	feedback      map[int64]models.Feedback
	auditLogs     []models.AuditLog
}

func (d memData) clone() memData {
	c := memData{
		seq:           d.seq,
		users:         make(map[int64]models.User, len(d.users)),
		events:        make(map[int64]models.Event, len(d.events)),
		registrations: make(map[int64]models.Registration, len(d.registrations)),
		feedback:      make(map[int64]models.Feedback, len(d.feedback)),
		auditLogs:     append([]models.AuditLog(nil), d.auditLogs...),
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.events {
		c.events[k] = v
	}
	for k, v := range d.registrations {
		c.registrations[k] = v
	}
	for k, v := range d.feedback {
		c.feedback[k] = v
	}
	return c
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{state: &memState{
		data: memData{
			users:         make(map[int64]models.User),
			events:        make(map[int64]models.Event),
			registrations: make(map[int64]models.Registration),
			feedback:      make(map[int64]models.Feedback),
		},
		now: time.Now,
	}}
}

func (m *Memory) nextID() int64 {
	m.state.data.seq++
	return m.state.data.seq
}

// gate blocks until no transaction is open and returns the release func.
// Inside a transaction the caller already holds it.
func (m *Memory) gate(write bool) func() {
	if m.inTx {
		return func() {}
	}
	if write {
		m.state.txMu.Lock()
		return m.state.txMu.Unlock
	}
	m.state.txMu.RLock()
	return m.state.txMu.RUnlock
}

// WithTx serialises fn against other transactions and restores the previous
// state if fn fails.
func (m *Memory) WithTx(ctx context.Context, fn func(tx Store) error) error {
	if m.inTx {
		return fn(m)
	}
	s := m.state
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	if err := fn(&Memory{state: s, inTx: true}); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// Users

func (m *Memory) CreateUser(_ context.Context, u *models.User) error {
	defer m.gate(true)()
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	for _, existing := range m.state.data.users {
		if existing.Email == u.Email {
			return fmt.Errorf("%w: users_email_key", ErrDuplicate)
		}
	}
	u.ID = m.nextID()
	u.CreatedAt = m.state.now()
	m.state.data.users[u.ID] = *u
	return nil
}

func (m *Memory) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	defer m.gate(false)()
	m.state.mu.RLock()
	defer m.state.mu.RUnlock()
	u, ok := m.state.data.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *Memory) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	defer m.gate(false)()
	m.state.mu.RLock()
	defer m.state.mu.RUnlock()
	for _, u := range m.state.data.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) ListUsers(_ context.Context) ([]models.UserPublic, error) {
	defer m.gate(false)()
	m.state.mu.RLock()
	users := make([]models.User, 0, len(m.state.data.users))
	for _, u := range m.state.data.users {
		users = append(users, u)
	}
	m.state.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool { return users[i].ID > users[j].ID })
	list := make([]models.UserPublic, 0, len(users))
	for i := range users {
		list = append(list, users[i].ToPublic())
	}
	return list, nil
}

func (m *Memory) SetUserResponded(_ context.Context, id int64, responded bool) error {
	defer m.gate(true)()
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	u, ok := m.state.data.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Responded = responded
	m.state.data.users[id] = u
	return nil
}

// Events

func (m *Memory) CreateEvent(_ context.Context, e *models.Event) error {
	defer m.gate(true)()
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	e.ID = m.nextID()
	e.Score = 0
	e.CreatedAt = m.state.now()
	stored := *e
	stored.Organizer = nil
	m.state.data.events[e.ID] = stored
	return nil
}

func (m *Memory) GetEventByID(_ context.Context, id int64) (*models.Event, error) {
	defer m.gate(false)()
	m.state.mu.RLock()
	defer m.state.mu.RUnlock()
	e, ok := m.state.data.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (m *Memory) GetEventDetail(ctx context.Context, id int64) (*models.EventDetail, error) {
	defer m.gate(false)()
	held := &Memory{state: m.state, inTx: true}
	e, err := held.GetEventByID(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &models.EventDetail{Event: *e}
	if organizer, err := held.GetUserByID(ctx, e.OrganizerID); err == nil {
		detail.Organizer = organizer
	}
	detail.Registrations, _ = held.ListRegistrationsByEvent(ctx, id)
	detail.Feedback, _ = held.ListFeedbackByEvent(ctx, id)
	return detail, nil
}

func (m *Memory) sortedEvents(keep func(models.Event) bool) []models.Event {
	var list []models.Event
	for _, e := range m.state.data.events {
		if keep(e) {
			list = append(list, e)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Date.Equal(list[j].Date) {
			return list[i].ID < list[j].ID
		}
		return list[i].Date.Before(list[j].Date)
	})
	return list
}

func (m *Memory) ListEvents(_ context.Context) ([]models.Event, error) {
	defer m.gate(false)()
	m.state.mu.RLock()
	defer m.state.mu.RUnlock()
	list := m.sortedEvents(func(models.Event) bool { return true })
	for i := range list {
		if u, ok := m.state.data.users[list[i].OrganizerID]; ok {
			pub := u.ToPublic()
			list[i].Organizer = &pub
		}
	}
	return list, nil
}

func (m *Memory) ListEventsByOrganizer(_ context.Context, organizerID int64) ([]models.Event, error) {
	defer m.gate(false)()
	m.state.mu.RLock()
	defer m.state.mu.RUnlock()
	return m.sortedEvents(func(e models.Event) bool { return e.OrganizerID == organizerID }), nil
}

func (m *Memory) UpdateEvent(_ context.Context, e *models.Event) error {
	defer m.gate(true)()
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	stored, ok := m.state.data.events[e.ID]
	if !ok {
		return ErrNotFound
	}
	stored.Title, stored.Description, stored.Date, stored.Location = e.Title, e.Description, e.Date, e.Location
	m.state.data.events[e.ID] = stored
	return nil
}

func (m *Memory) DeleteEvent(_ context.Context, id int64) error {
	defer m.gate(true)()
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	if _, ok := m.state.data.events[id]; !ok {
		return ErrNotFound
	}
	delete(m.state.data.events, id)
	for rid, r := range m.state.data.registrations {
		if r.EventID == id {
			delete(m.state.data.registrations, rid)
		}
	}
	for fid, f := range m.state.data.feedback {
		if f.EventID == id {
			delete(m.state.data.feedback, fid)
		}
	}
	return nil
}

func (m *Memory) SetEventScore(_ context.Context, id int64, score int) error {
	defer m.gate(true)()
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	e, ok := m.state.data.events[id]
	if !ok {
		return ErrNotFound
	}
	e.Score = score
	m.state.data.events[id] = e
	return nil
}

// Registrations

func (m *Memory) CreateRegistration(_ context.Context, r *models.Registration) error {
	defer m.gate(true)()
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	if _, ok := m.state.data.events[r.EventID]; !ok {
		return fmt.Errorf("event %d: %w", r.EventID, ErrNotFound)
	}
	for _, existing := range m.state.data.registrations {
		if existing.AttendeeID == r.AttendeeID && existing.EventID == r.EventID {
			return fmt.Errorf("%w: registrations_attendee_id_event_id_key", ErrDuplicate)
		}
	}
	r.ID = m.nextID()
	r.Confirmed = false
	r.CreatedAt = m.state.now()
	stored := *r
	stored.Event, stored.Attendee = nil, nil
	m.state.data.registrations[r.ID] = stored
	return nil
}

func (m *Memory) GetRegistration(_ context.Context, attendeeID, eventID int64) (*models.Registration, error) {
	defer m.gate(false)()
	m.state.mu.RLock()
	defer m.state.mu.RUnlock()
	for _, r := range m.state.data.registrations {
		if r.AttendeeID == attendeeID && r.EventID == eventID {
			return &r, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) GetRegistrationByID(_ context.Context, id int64) (*models.Registration, error) {
	defer m.gate(false)()
	m.state.mu.RLock()
	defer m.state.mu.RUnlock()
	r, ok := m.state.data.registrations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (m *Memory) DeleteRegistrations(_ context.Context, attendeeID, eventID int64) (int64, error) {
	defer m.gate(true)()
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	var n int64
	for id, r := range m.state.data.registrations {
		if r.AttendeeID == attendeeID && r.EventID == eventID {
			delete(m.state.data.registrations, id)
			n++
		}
	}
	return n, nil
}

func (m *Memory) sortedRegistrations(keep func(models.Registration) bool) []models.Registration {
	var list []models.Registration
	for _, r := range m.state.data.registrations {
		if keep(r) {
			list = append(list, r)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

func (m *Memory) ListRegistrationsByAttendee(_ context.Context, attendeeID int64) ([]models.Registration, error) {
	defer m.gate(false)()
	m.state.mu.RLock()
	defer m.state.mu.RUnlock()
	list := m.sortedRegistrations(func(r models.Registration) bool { return r.AttendeeID == attendeeID })
	for i := range list {
		if e, ok := m.state.data.events[list[i].EventID]; ok {
			list[i].Event = &e
		}
	}
	return list, nil
}

func (m *Memory) ListRegistrationsByEvent(_ context.Context, eventID int64) ([]models.Registration, error) {
	defer m.gate(false)()
	m.state.mu.RLock()
	defer m.state.mu.RUnlock()
	list := m.sortedRegistrations(func(r models.Registration) bool { return r.EventID == eventID })
	for i := range list {
		if u, ok := m.state.data.users[list[i].AttendeeID]; ok {
			pub := u.ToPublic()
			list[i].Attendee = &pub
		}
	}
	return list, nil
}

func (m *Memory) ConfirmRegistration(_ context.Context, id int64) error {
	defer m.gate(true)()
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	r, ok := m.state.data.registrations[id]
	if !ok {
		return ErrNotFound
	}
	r.Confirmed = true
	m.state.data.registrations[id] = r
	return nil
}

// Feedback

func (m *Memory) CreateFeedback(_ context.Context, f *models.Feedback) error {
	defer m.gate(true)()
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	if _, ok := m.state.data.events[f.EventID]; !ok {
		return fmt.Errorf("event %d: %w", f.EventID, ErrNotFound)
	}
	f.ID = m.nextID()
	f.CreatedAt = m.state.now()
	m.state.data.feedback[f.ID] = *f
	return nil
}

func (m *Memory) ListFeedbackByEvent(_ context.Context, eventID int64) ([]models.Feedback, error) {
	defer m.gate(false)()
	m.state.mu.RLock()
	defer m.state.mu.RUnlock()
	var list []models.Feedback
	for _, f := range m.state.data.feedback {
		if f.EventID == eventID {
			list = append(list, f)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

// Audit logs

func (m *Memory) CreateAuditLog(_ context.Context, l *models.AuditLog) error {
	defer m.gate(true)()
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	l.ID = m.nextID()
	l.CreatedAt = m.state.now()
	m.state.data.auditLogs = append(m.state.data.auditLogs, *l)
	return nil
}

func (m *Memory) ListAuditLogs(_ context.Context, filter AuditFilter) ([]models.AuditLog, error) {
	defer m.gate(false)()
	m.state.mu.RLock()
	defer m.state.mu.RUnlock()
	var list []models.AuditLog
	for i := len(m.state.data.auditLogs) - 1; i >= 0; i-- {
		l := m.state.data.auditLogs[i]
		if filter.UserID != 0 && l.UserID != filter.UserID {
			continue
		}
		list = append(list, l)
		if filter.Limit > 0 && len(list) == filter.Limit {
			break
		}
	}
	return list, nil
}
