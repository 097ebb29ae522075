package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventflow/backend/internal/models"
	"github.com/eventflow/backend/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestService() (*Service, *store.Memory) {
	st := store.NewMemory()
	return NewService(st, NewJWTService("secret", 1), nil), st
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	session, err := svc.Register(ctx, RegisterInput{Name: "Olive", Email: " Olive@Example.com ", Password: "hunter22", Role: models.RoleOrganizer})
	require.NoError(t, err)
	assert.Equal(t, "olive@example.com", session.User.Email)
	assert.Equal(t, models.RoleOrganizer, session.User.Role)
	assert.NotEmpty(t, session.Token)

	got, err := svc.Login(ctx, "olive@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, got.User.ID)

	_, err = svc.Login(ctx, "olive@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterRules(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	session, err := svc.Register(ctx, RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAttendee, session.User.Role)

	_, err = svc.Register(ctx, RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = svc.Register(ctx, RegisterInput{Name: "Eve", Email: "eve@example.com", Password: "secret1", Role: models.RoleAdmin})
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestEnsureAdmin(t *testing.T) {
	svc, st := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx, "Admin", "", ""))
	require.NoError(t, svc.EnsureAdmin(ctx, "Admin", "admin@example.com", "changeme"))
	require.NoError(t, svc.EnsureAdmin(ctx, "Admin", "admin@example.com", "changeme"))

	u, err := st.GetUserByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)

	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestHandlerRegisterLogin(t *testing.T) {
	svc, _ := newTestService()
	h := NewHandler(svc, nil)
	r := gin.New()
	r.POST("/register", h.Register)
	r.POST("/login", h.Login)

	post := func(path string, body interface{}) *httptest.ResponseRecorder {
		raw, _ := json.Marshal(body)
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := post("/register", gin.H{"name": "Olive", "email": "olive@example.com", "password": "hunter22", "role": "organizer"})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = post("/register", gin.H{"name": "Olive", "email": "olive@example.com", "password": "hunter22"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = post("/register", gin.H{"name": "Olive", "email": "not-an-email", "password": "hunter22"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post("/register", gin.H{"name": "Mal", "email": "mal@example.com", "password": "hunter22", "role": "admin"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post("/login", gin.H{"email": "olive@example.com", "password": "hunter22"})
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Success bool    `json:"success"`
		Data    Session `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.NotEmpty(t, body.Data.Token)

	w = post("/login", gin.H{"email": "olive@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
