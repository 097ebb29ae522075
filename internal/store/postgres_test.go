package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventflow/backend/internal/models"
)

func newMockPostgres(t *testing.T) (*Postgres, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return &Postgres{db: mock}, mock
}

func exactly(sql string) string {
	return "^" + regexp.QuoteMeta(sql) + "$"
}

func TestMapErr(t *testing.T) {
	other := errors.New("connection reset")
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"no rows", pgx.ErrNoRows, ErrNotFound},
		{"wrapped no rows", errors.Join(errors.New("scan"), pgx.ErrNoRows), ErrNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}, ErrDuplicate},
		{"foreign key violation", &pgconn.PgError{Code: "23503"}, nil},
		{"other", other, other},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapErr(tt.in)
			switch {
			case tt.in == nil:
				assert.NoError(t, got)
			case tt.want == nil:
				assert.Equal(t, tt.in, got)
				assert.False(t, errors.Is(got, ErrDuplicate))
				assert.False(t, errors.Is(got, ErrNotFound))
			default:
				assert.ErrorIs(t, got, tt.want)
			}
		})
	}
}

func TestMapErr_KeepsConstraintName(t *testing.T) {
	err := mapErr(&pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "registrations_attendee_id_event_id_key"})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Contains(t, err.Error(), "registrations_attendee_id_event_id_key")
}

func TestPostgres_CreateRegistration(t *testing.T) {
	p, mock := newMockPostgres(t)
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO registrations (attendee_id, event_id)`)).
		WithArgs(int64(7), int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "confirmed", "created_at"}).AddRow(int64(11), false, created))

	r := &models.Registration{AttendeeID: 7, EventID: 3}
	require.NoError(t, p.CreateRegistration(context.Background(), r))
	assert.Equal(t, int64(11), r.ID)
	assert.False(t, r.Confirmed)
	assert.Equal(t, created, r.CreatedAt)
}

func TestPostgres_CreateRegistrationDuplicate(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO registrations (attendee_id, event_id)`)).
		WithArgs(int64(7), int64(3)).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "registrations_attendee_id_event_id_key"})

	err := p.CreateRegistration(context.Background(), &models.Registration{AttendeeID: 7, EventID: 3})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestPostgres_GetEventByIDMissing(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM events e WHERE e.id = $1`)).
		WithArgs(int64(42)).
		WillReturnError(pgx.ErrNoRows)

	_, err := p.GetEventByID(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgres_SetEventScoreMissing(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE events SET score = $1 WHERE id = $2`)).
		WithArgs(4, int64(9)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	assert.ErrorIs(t, p.SetEventScore(context.Background(), 9, 4), ErrNotFound)
}

func TestPostgres_ListAuditLogs(t *testing.T) {
	base := `SELECT id, action, user_id, created_at FROM audit_logs`
	order := ` ORDER BY created_at DESC, id DESC`
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		filter AuditFilter
		sql    string
		args   []interface{}
	}{
		{"no filter", AuditFilter{}, base + order, nil},
		{"user only", AuditFilter{UserID: 5}, base + ` WHERE user_id = $1` + order, []interface{}{int64(5)}},
		{"limit only", AuditFilter{Limit: 10}, base + order + ` LIMIT $1`, []interface{}{10}},
		{"user and limit", AuditFilter{UserID: 5, Limit: 10}, base + ` WHERE user_id = $1` + order + ` LIMIT $2`, []interface{}{int64(5), 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, mock := newMockPostgres(t)
			rows := pgxmock.NewRows([]string{"id", "action", "user_id", "created_at"}).
				AddRow(int64(2), "EVENT_UPDATE", int64(5), at.Add(time.Minute)).
				AddRow(int64(1), "CREATE_EVENT", int64(5), at)
			q := mock.ExpectQuery(exactly(tt.sql))
			if tt.args != nil {
				q = q.WithArgs(tt.args...)
			}
			q.WillReturnRows(rows)

			logs, err := p.ListAuditLogs(context.Background(), tt.filter)
			require.NoError(t, err)
			require.Len(t, logs, 2)
			assert.Equal(t, "EVENT_UPDATE", logs[0].Action)
			assert.Equal(t, int64(5), logs[1].UserID)
			assert.Equal(t, at, logs[1].CreatedAt)
		})
	}
}

func TestPostgres_WithTxCommits(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE events SET score = $1 WHERE id = $2`)).
		WithArgs(2, int64(9)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err := p.WithTx(context.Background(), func(tx Store) error {
		return tx.SetEventScore(context.Background(), 9, 2)
	})
	assert.NoError(t, err)
}

func TestPostgres_WithTxRollsBackOnError(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE events SET score = $1 WHERE id = $2`)).
		WithArgs(2, int64(9)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO audit_logs (action, user_id)`)).
		WithArgs("CREATE_EVENT", int64(4)).
		WillReturnError(errors.New("audit table unavailable"))
	mock.ExpectRollback()

	ctx := context.Background()
	err := p.WithTx(ctx, func(tx Store) error {
		if err := tx.SetEventScore(ctx, 9, 2); err != nil {
			return err
		}
		return tx.CreateAuditLog(ctx, &models.AuditLog{Action: "CREATE_EVENT", UserID: 4})
	})
	assert.EqualError(t, err, "audit table unavailable")
}
