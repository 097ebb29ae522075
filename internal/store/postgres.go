package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventflow/backend/internal/models"
)

const pgUniqueViolation = "23505"

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Postgres implements Store on a pgx pool.
type Postgres struct {
	db dbtx
}

// NewPostgres creates a Postgres-backed store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{db: pool}
}

// WithTx runs fn inside a transaction (a savepoint when already in one).
func (p *Postgres) WithTx(ctx context.Context, fn func(tx Store) error) error {
	return pgx.BeginFunc(ctx, p.db, func(tx pgx.Tx) error {
		return fn(&Postgres{db: tx})
	})
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

// Users

const userColumns = `id, name, email, password_hash, role, responded, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	var role string
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Password, &role, &u.Responded, &u.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	u.Role = models.Role(role)
	return &u, nil
}

// CreateUser inserts a user; email is unique.
func (p *Postgres) CreateUser(ctx context.Context, u *models.User) error {
	const q = `INSERT INTO users (name, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, responded, created_at`
	err := p.db.QueryRow(ctx, q, u.Name, u.Email, u.Password, string(u.Role)).
		Scan(&u.ID, &u.Responded, &u.CreatedAt)
	return mapErr(err)
}

// GetUserByID returns a user by ID.
func (p *Postgres) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return scanUser(p.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetUserByEmail returns a user by email.
func (p *Postgres) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(p.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// ListUsers returns all users, newest first.
func (p *Postgres) ListUsers(ctx context.Context) ([]models.UserPublic, error) {
	rows, err := p.db.Query(ctx, `SELECT id, name, email, role FROM users ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.UserPublic
	for rows.Next() {
		var u models.UserPublic
		var role string
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &role); err != nil {
			return nil, err
		}
		u.Role = models.Role(role)
		list = append(list, u)
	}
	return list, rows.Err()
}

// SetUserResponded sets the organizer responsiveness flag.
func (p *Postgres) SetUserResponded(ctx context.Context, id int64, responded bool) error {
	tag, err := p.db.Exec(ctx, `UPDATE users SET responded = $1 WHERE id = $2`, responded, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Events

const eventColumns = `e.id, e.title, e.description, e.event_date, e.location, e.organizer_id, e.score, e.created_at`

func scanEvent(row pgx.Row) (*models.Event, error) {
	var e models.Event
	if err := row.Scan(&e.ID, &e.Title, &e.Description, &e.Date, &e.Location, &e.OrganizerID, &e.Score, &e.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &e, nil
}

// CreateEvent inserts a new event with score 0.
func (p *Postgres) CreateEvent(ctx context.Context, e *models.Event) error {
	const q = `INSERT INTO events (title, description, event_date, location, organizer_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, score, created_at`
	err := p.db.QueryRow(ctx, q, e.Title, e.Description, e.Date, e.Location, e.OrganizerID).
		Scan(&e.ID, &e.Score, &e.CreatedAt)
	return mapErr(err)
}

// GetEventByID returns an event by ID.
func (p *Postgres) GetEventByID(ctx context.Context, id int64) (*models.Event, error) {
	return scanEvent(p.db.QueryRow(ctx, `SELECT `+eventColumns+` FROM events e WHERE e.id = $1`, id))
}

// GetEventDetail loads the event, its organizer, registrations and feedback.
func (p *Postgres) GetEventDetail(ctx context.Context, id int64) (*models.EventDetail, error) {
	ev, err := p.GetEventByID(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &models.EventDetail{Event: *ev}
	organizer, err := p.GetUserByID(ctx, ev.OrganizerID)
	switch {
	case err == nil:
		detail.Organizer = organizer
	case !errors.Is(err, ErrNotFound):
		return nil, fmt.Errorf("load organizer: %w", err)
	}
	if detail.Registrations, err = p.ListRegistrationsByEvent(ctx, id); err != nil {
		return nil, fmt.Errorf("load registrations: %w", err)
	}
	if detail.Feedback, err = p.ListFeedbackByEvent(ctx, id); err != nil {
		return nil, fmt.Errorf("load feedback: %w", err)
	}
	return detail, nil
}

// ListEvents returns all events with their organizer, soonest first.
func (p *Postgres) ListEvents(ctx context.Context) ([]models.Event, error) {
	const q = `SELECT ` + eventColumns + `, u.id, u.name, u.email, u.role
		FROM events e JOIN users u ON u.id = e.organizer_id
		ORDER BY e.event_date ASC, e.id ASC`
	rows, err := p.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Event
	for rows.Next() {
		var e models.Event
		var o models.UserPublic
		var role string
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.Date, &e.Location, &e.OrganizerID, &e.Score, &e.CreatedAt,
			&o.ID, &o.Name, &o.Email, &role); err != nil {
			return nil, err
		}
		o.Role = models.Role(role)
		e.Organizer = &o
		list = append(list, e)
	}
	return list, rows.Err()
}

// ListEventsByOrganizer returns an organizer's events, soonest first.
func (p *Postgres) ListEventsByOrganizer(ctx context.Context, organizerID int64) ([]models.Event, error) {
	rows, err := p.db.Query(ctx, `SELECT `+eventColumns+` FROM events e WHERE e.organizer_id = $1 ORDER BY e.event_date ASC, e.id ASC`, organizerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *e)
	}
	return list, rows.Err()
}

// UpdateEvent writes title, description, date and location.
func (p *Postgres) UpdateEvent(ctx context.Context, e *models.Event) error {
	const q = `UPDATE events SET title = $1, description = $2, event_date = $3, location = $4 WHERE id = $5`
	tag, err := p.db.Exec(ctx, q, e.Title, e.Description, e.Date, e.Location, e.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteEvent removes an event; registrations and feedback cascade.
func (p *Postgres) DeleteEvent(ctx context.Context, id int64) error {
	tag, err := p.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetEventScore persists the engagement score.
func (p *Postgres) SetEventScore(ctx context.Context, id int64, score int) error {
	tag, err := p.db.Exec(ctx, `UPDATE events SET score = $1 WHERE id = $2`, score, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Registrations

const registrationColumns = `r.id, r.attendee_id, r.event_id, r.confirmed, r.created_at`

func scanRegistration(row pgx.Row) (*models.Registration, error) {
	var r models.Registration
	if err := row.Scan(&r.ID, &r.AttendeeID, &r.EventID, &r.Confirmed, &r.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &r, nil
}

// CreateRegistration inserts a registration (unique per attendee+event).
func (p *Postgres) CreateRegistration(ctx context.Context, r *models.Registration) error {
	const q = `INSERT INTO registrations (attendee_id, event_id)
		VALUES ($1, $2)
		RETURNING id, confirmed, created_at`
	err := p.db.QueryRow(ctx, q, r.AttendeeID, r.EventID).Scan(&r.ID, &r.Confirmed, &r.CreatedAt)
	return mapErr(err)
}

// GetRegistration returns the registration for attendee+event.
func (p *Postgres) GetRegistration(ctx context.Context, attendeeID, eventID int64) (*models.Registration, error) {
	return scanRegistration(p.db.QueryRow(ctx,
		`SELECT `+registrationColumns+` FROM registrations r WHERE r.attendee_id = $1 AND r.event_id = $2`,
		attendeeID, eventID))
}

// GetRegistrationByID returns a registration by ID.
func (p *Postgres) GetRegistrationByID(ctx context.Context, id int64) (*models.Registration, error) {
	return scanRegistration(p.db.QueryRow(ctx, `SELECT `+registrationColumns+` FROM registrations r WHERE r.id = $1`, id))
}

// DeleteRegistrations removes the attendee's registrations for the event.
func (p *Postgres) DeleteRegistrations(ctx context.Context, attendeeID, eventID int64) (int64, error) {
	tag, err := p.db.Exec(ctx, `DELETE FROM registrations WHERE attendee_id = $1 AND event_id = $2`, attendeeID, eventID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListRegistrationsByAttendee returns an attendee's registrations with the joined event.
func (p *Postgres) ListRegistrationsByAttendee(ctx context.Context, attendeeID int64) ([]models.Registration, error) {
	const q = `SELECT ` + registrationColumns + `, ` + eventColumns + `
		FROM registrations r JOIN events e ON e.id = r.event_id
		WHERE r.attendee_id = $1
		ORDER BY r.created_at ASC, r.id ASC`
	rows, err := p.db.Query(ctx, q, attendeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Registration
	for rows.Next() {
		var r models.Registration
		var e models.Event
		if err := rows.Scan(&r.ID, &r.AttendeeID, &r.EventID, &r.Confirmed, &r.CreatedAt,
			&e.ID, &e.Title, &e.Description, &e.Date, &e.Location, &e.OrganizerID, &e.Score, &e.CreatedAt); err != nil {
			return nil, err
		}
		r.Event = &e
		list = append(list, r)
	}
	return list, rows.Err()
}

// ListRegistrationsByEvent returns an event's registrations with the joined attendee.
func (p *Postgres) ListRegistrationsByEvent(ctx context.Context, eventID int64) ([]models.Registration, error) {
	const q = `SELECT ` + registrationColumns + `, u.id, u.name, u.email, u.role
		FROM registrations r JOIN users u ON u.id = r.attendee_id
		WHERE r.event_id = $1
		ORDER BY r.created_at ASC, r.id ASC`
	rows, err := p.db.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Registration
	for rows.Next() {
		var r models.Registration
		var a models.UserPublic
		var role string
		if err := rows.Scan(&r.ID, &r.AttendeeID, &r.EventID, &r.Confirmed, &r.CreatedAt,
			&a.ID, &a.Name, &a.Email, &role); err != nil {
			return nil, err
		}
		a.Role = models.Role(role)
		r.Attendee = &a
		list = append(list, r)
	}
	return list, rows.Err()
}

// ConfirmRegistration marks a registration as confirmed.
func (p *Postgres) ConfirmRegistration(ctx context.Context, id int64) error {
	tag, err := p.db.Exec(ctx, `UPDATE registrations SET confirmed = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Feedback

// CreateFeedback inserts a feedback entry.
func (p *Postgres) CreateFeedback(ctx context.Context, f *models.Feedback) error {
	const q = `INSERT INTO feedback (event_id, attendee_id, message)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	return mapErr(p.db.QueryRow(ctx, q, f.EventID, f.AttendeeID, f.Message).Scan(&f.ID, &f.CreatedAt))
}

// ListFeedbackByEvent returns an event's feedback, oldest first.
func (p *Postgres) ListFeedbackByEvent(ctx context.Context, eventID int64) ([]models.Feedback, error) {
	rows, err := p.db.Query(ctx,
		`SELECT id, event_id, attendee_id, message, created_at FROM feedback WHERE event_id = $1 ORDER BY created_at ASC, id ASC`,
		eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Feedback
	for rows.Next() {
		var f models.Feedback
		if err := rows.Scan(&f.ID, &f.EventID, &f.AttendeeID, &f.Message, &f.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, f)
	}
	return list, rows.Err()
}

// Audit logs

// CreateAuditLog appends an audit entry; created_at is assigned by the database.
func (p *Postgres) CreateAuditLog(ctx context.Context, l *models.AuditLog) error {
	const q = `INSERT INTO audit_logs (action, user_id) VALUES ($1, $2) RETURNING id, created_at`
	return mapErr(p.db.QueryRow(ctx, q, l.Action, l.UserID).Scan(&l.ID, &l.CreatedAt))
}

// ListAuditLogs returns audit entries newest first.
func (p *Postgres) ListAuditLogs(ctx context.Context, filter AuditFilter) ([]models.AuditLog, error) {
	q := `SELECT id, action, user_id, created_at FROM audit_logs`
	var args []any
	if filter.UserID != 0 {
		args = append(args, filter.UserID)
		q += fmt.Sprintf(" WHERE user_id = $%d", len(args))
	}
	q += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	rows, err := p.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.AuditLog
	for rows.Next() {
		var l models.AuditLog
		if err := rows.Scan(&l.ID, &l.Action, &l.UserID, &l.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, l)
	}
	return list, rows.Err()
}
