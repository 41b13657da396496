package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"jogosescolares/internal/audit"
	"jogosescolares/internal/authz"
	"jogosescolares/internal/config"
	"jogosescolares/internal/database/memory"
	"jogosescolares/internal/eligibility"
	"jogosescolares/internal/event"
	"jogosescolares/internal/inscription"
	"jogosescolares/internal/modality"
	"jogosescolares/internal/participant"
	"jogosescolares/internal/ratelimit"
	"jogosescolares/internal/school"
	"jogosescolares/internal/session"
	"jogosescolares/internal/storage"
	"jogosescolares/internal/team"
	"jogosescolares/internal/telemetry"
	"jogosescolares/internal/user"
	"jogosescolares/internal/validator"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassword = "senha1234"

type fixture struct {
	app   *fiber.App
	users *user.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	store := memory.New()
	auditor := audit.NewAuditor(logger)
	v := validator.New()
	tel := &telemetry.OpenTelemetry{}

	authorizer, err := authz.NewClient(logger, config.OpenFGAConfig{})
	require.NoError(t, err)
	documents, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	users := user.NewManager(logger, store, &auditor, v)
	events := event.NewManager(logger, store, &auditor, nil)
	resolver := eligibility.NewResolver(logger, store, nil)
	schools := school.NewManager(logger, store, &auditor, &users, &events, tel, v)
	inscriptions := inscription.NewManager(logger, store, &auditor, &resolver, tel)
	teams := team.NewManager(logger, store, &auditor, &events, authorizer, tel)
	participants := participant.NewManager(logger, store, &auditor, documents, v)
	modalities := modality.NewManager(logger, store, &auditor, v)

	cfg := config.Config{
		Server: config.ServerConfig{
			ReadTimeout:    5 * time.Second,
			WriteTimeout:   5 * time.Second,
			RequestTimeout: 5 * time.Second,
		},
		Telemetry: config.TelemetryConfig{ServiceName: "jogosescolares-test"},
	}

	h := NewHandler(HandlerParams{
		Logger:       logger,
		DB:           store,
		Sessions:     session.New(nil, cfg.Server, &users),
		Limiter:      ratelimit.NewRateLimiter(nil, nil),
		Users:        &users,
		Events:       &events,
		Schools:      &schools,
		Inscriptions: &inscriptions,
		Teams:        &teams,
		Participants: &participants,
		Modalities:   &modalities,
		Resolver:     &resolver,
	})

	return &fixture{app: NewApp(cfg, h), users: &users}
}

func (f *fixture) createUser(t *testing.T, role user.Role, email string) user.User {
	t.Helper()
	u, err := f.users.CreateUser(context.Background(), user.CreateUserParams{
		Role:     role,
		Name:     string(role),
		Email:    email,
		Password: testPassword,
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) do(t *testing.T, method, path string, body any, cookies []*http.Cookie) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func (f *fixture) login(t *testing.T, email string) []*http.Cookie {
	t.Helper()
	resp := f.do(t, http.MethodPost, "/api/login", loginRequest{Email: email, Password: testPassword}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return resp.Cookies()
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (f *fixture) createEvent(t *testing.T, cookies []*http.Cookie) event.Event {
	t.Helper()
	start := time.Now().AddDate(0, 1, 0).UTC()
	resp := f.do(t, http.MethodPost, "/api/events", scheduleRequest{
		Name:      "Jogos Escolares 2026",
		Location:  "Campinas",
		StartDate: start,
		EndDate:   start.AddDate(0, 0, 5),
	}, cookies)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[event.Event](t, resp)
}

func registerSchool(eventID uuid.UUID, inep, email string) registerSchoolRequest {
	return registerSchoolRequest{
		EventID:      eventID,
		INEP:         inep,
		Name:         "E.E. Monteiro Lobato",
		DirectorName: "Maria Silva",
		State:        "SP",
		Responsible: responsibleRequest{
			Name:     "João",
			Email:    email,
			Password: testPassword,
		},
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/api/health", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", decode[map[string]any](t, resp)["status"])
}

func TestAuthentication(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, user.RoleProducer, "produtor@example.com")

	resp := f.do(t, http.MethodGet, "/api/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/login", loginRequest{Email: "produtor@example.com", Password: "errada123"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	cookies := f.login(t, "produtor@example.com")
	resp = f.do(t, http.MethodGet, "/api/me", nil, cookies)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, user.RoleProducer, decode[user.User](t, resp).Role)

	resp = f.do(t, http.MethodPost, "/api/logout", nil, cookies)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestErrorMapping(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, user.RoleProducer, "produtor@example.com")
	cookies := f.login(t, "produtor@example.com")

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{name: "malformed id", method: http.MethodGet, path: "/api/events/abc", status: http.StatusUnprocessableEntity},
		{name: "unknown event", method: http.MethodGet, path: "/api/events/" + uuid.NewString(), status: http.StatusNotFound},
		{name: "invalid schedule", method: http.MethodPost, path: "/api/events", body: scheduleRequest{}, status: http.StatusUnprocessableEntity},
		{name: "admin only", method: http.MethodPost, path: "/api/users", body: createUserRequest{}, status: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.do(t, tt.method, tt.path, tt.body, cookies)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.NotEmpty(t, decode[errorResponse](t, resp).Error)
		})
	}
}

func TestEventTeamPermissions(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, user.RoleProducer, "dono@example.com")
	other := f.createUser(t, user.RoleProducer, "outro@example.com")

	owner := f.login(t, "dono@example.com")
	outsider := f.login(t, "outro@example.com")
	e := f.createEvent(t, owner)

	resp := f.do(t, http.MethodPut, "/api/events/"+e.ID.String()+"/modalities", setModalitiesRequest{}, outsider)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/events/"+e.ID.String()+"/team", memberRequest{UserID: other.ID, Role: event.RoleAssistant}, owner)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = f.do(t, http.MethodPut, "/api/events/"+e.ID.String()+"/modalities", setModalitiesRequest{}, outsider)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/api/events/"+e.ID.String()+"/team", nil, outsider)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	members := decode[[]team.Member](t, resp)
	require.Len(t, members, 2)
	assert.Equal(t, event.RoleOwner, members[0].Role)

	resp = f.do(t, http.MethodGet, "/api/events", nil, outsider)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]event.Event](t, resp), 1)
}

func TestSchoolRegistrationAndInscription(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, user.RoleProducer, "produtor@example.com")
	producer := f.login(t, "produtor@example.com")
	e := f.createEvent(t, producer)

	resp := f.do(t, http.MethodPost, "/api/modalities", createModalityRequest{
		Name: "Atletismo", Type: "individual", Gender: "misto", MinAge: 10, MaxAge: 14,
	}, producer)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	m := decode[eligibility.Modality](t, resp)

	resp = f.do(t, http.MethodPost, "/api/schools/check", checkSchoolRequest{INEP: "35000001", EventID: e.ID}, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/schools/register", registerSchool(e.ID, "35000001", "escola@example.com"), nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	schoolAdmin := resp.Cookies()
	result := decode[school.RegisterResult](t, resp)
	assert.False(t, result.Merged)

	resp = f.do(t, http.MethodPost, "/api/schools/check", checkSchoolRequest{INEP: "35000001", EventID: e.ID}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/schools/register", registerSchool(e.ID, "35000001", "outra@example.com"), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	dob := time.Now().AddDate(-12, 0, 0).Format(time.DateOnly)
	resp = f.do(t, http.MethodPost, "/api/participants", createParticipantRequest{
		Kind: eligibility.KindAthlete, Name: "Pedro", Sex: "Masculino", DateOfBirth: dob,
	}, schoolAdmin)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	p := decode[participant.Participant](t, resp)
	assert.Equal(t, result.School.ID, p.SchoolID)

	path := "/api/participants/" + p.ID.String() + "/eligibility?event=" + e.ID.String() + "&type=individual&name=Atletismo"
	resp = f.do(t, http.MethodGet, path, nil, schoolAdmin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	funnel := decode[eligibilityResponse](t, resp)
	assert.Equal(t, []string{"individual"}, funnel.Types)
	require.NotNil(t, funnel.Selected)
	assert.Equal(t, m.ID, funnel.Selected.ID)

	enroll := createInscriptionRequest{ParticipantID: p.ID, EventID: e.ID, ModalityID: m.ID}
	resp = f.do(t, http.MethodPost, "/api/inscriptions", enroll, schoolAdmin)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[inscription.Inscription](t, resp)

	resp = f.do(t, http.MethodPost, "/api/inscriptions", enroll, schoolAdmin)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/api/inscriptions?event="+e.ID.String(), nil, schoolAdmin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]inscription.Inscription](t, resp), 1)

	resp = f.do(t, http.MethodDelete, "/api/inscriptions/"+created.ID.String(), nil, schoolAdmin)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestSchoolAdminScopedToOwnSchool(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, user.RoleProducer, "produtor@example.com")
	producer := f.login(t, "produtor@example.com")
	e := f.createEvent(t, producer)

	resp := f.do(t, http.MethodPost, "/api/schools/register", registerSchool(e.ID, "35000001", "a@example.com"), nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	first := decode[school.RegisterResult](t, resp)

	resp = f.do(t, http.MethodPost, "/api/schools/register", registerSchool(e.ID, "35000002", "b@example.com"), nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	second := resp.Cookies()

	resp = f.do(t, http.MethodGet, "/api/schools/"+first.School.ID.String(), nil, second)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/api/events/"+e.ID.String()+"/schools", nil, producer)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]school.School](t, resp), 2)
}
