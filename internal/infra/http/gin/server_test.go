package ginserver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"hostelfinder/internal/app/commands"
	"hostelfinder/internal/app/dto"
	"hostelfinder/internal/app/guard"
	hostelapp "hostelfinder/internal/app/handlers/hostels"
	"hostelfinder/internal/app/middleware"
	"hostelfinder/internal/app/queries"
	authsvc "hostelfinder/internal/app/services/auth"
	domainprofile "hostelfinder/internal/domain/profile"
	domainuser "hostelfinder/internal/domain/user"
	"hostelfinder/internal/infra/config"
	"hostelfinder/internal/infra/obs"
	"hostelfinder/internal/infra/security"
	"hostelfinder/internal/infra/storage/memory"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type stubImages struct{ uploads int }

func (s *stubImages) Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	s.uploads++
	return "http://images.test/" + key, nil
}

type brokenProfiles struct{}

func (brokenProfiles) ByUserID(ctx context.Context, id domainuser.ID) (*domainprofile.Profile, error) {
	return nil, errors.New("profiles offline")
}

func (brokenProfiles) Save(ctx context.Context, p *domainprofile.Profile) error { return nil }

type testApp struct {
	router   *gin.Engine
	auth     *authsvc.Service
	images   *stubImages
	profiles domainprofile.Repository
}

func newTestApp(t *testing.T, guardProfiles domainprofile.Repository) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := obs.Discard()

	profiles := memory.NewProfileRepository()
	if guardProfiles == nil {
		guardProfiles = profiles
	}
	broker := memory.NewSessionBroker()
	t.Cleanup(func() { _ = broker.Close() })
	svc := &authsvc.Service{
		Users:      memory.NewUserRepository(),
		Profiles:   profiles,
		Sessions:   memory.NewSessionStore(),
		Events:     broker,
		Passwords:  security.BcryptHasher{Cost: bcrypt.MinCost},
		Tokens:     security.RandomTokenGenerator{},
		SessionTTL: time.Hour,
		Logger:     logger,
	}

	factory := memory.Factory{
		HostelsRepo:   memory.NewHostelRepository(),
		RoomTypesRepo: memory.NewRoomTypeRepository(),
		ProfilesRepo:  profiles,
	}
	box := memory.NewOutbox()
	images := &stubImages{}
	cmdBus := commands.NewInMemoryBus()
	queryBus := queries.NewInMemoryBus()
	hostelapp.Register(cmdBus, queryBus, hostelapp.Writer{UoWFactory: factory, Images: images, Outbox: box, Logger: logger}, logger)

	authorizer := guard.AdminAuthorizer{Profiles: guardProfiles}
	commandsChain := middleware.ChainCommands(cmdBus,
		middleware.Logging(logger),
		middleware.Validation(),
		middleware.Authorization(authorizer),
		middleware.Transaction(factory, nil),
		middleware.OutboxFlush(box),
	)
	queriesChain := middleware.ChainQueries(queryBus, middleware.QueryAuthorization(authorizer))

	userGuard := &guard.Guard{Sessions: svc, Profiles: guardProfiles, Logger: logger}
	adminGuard := &guard.Guard{Sessions: svc, Profiles: guardProfiles, Admin: true, Logger: logger}

	cfg := config.Config{Env: "test", HTTPAddr: ":0", CORSOrigins: []string{"http://localhost:3000"}}
	router := NewRouter(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{}, Handlers{
		Pages:          PagesHandler{Guard: userGuard},
		Auth:           AuthHandler{Service: svc, Logger: logger},
		Session:        SessionHandler{User: userGuard, Admin: adminGuard, Heartbeat: time.Second},
		Hostels:        HostelHandler{Queries: queriesChain, Logger: logger},
		AdminHostels:   AdminHostelHandler{Commands: commandsChain, Queries: queriesChain, Logger: logger},
		AuthMiddleware: AuthMiddleware{Service: svc, Logger: logger}.Handle,
		UserGuard:      GuardFactory(userGuard),
		AdminGuard:     GuardFactory(adminGuard),
	})
	return &testApp{router: router, auth: svc, images: images, profiles: profiles}
}

func (a *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) register(t *testing.T, email string) string {
	t.Helper()
	body := `{"email":"` + email + `","name":"Tester","password":"password1"}`
	w := a.do(httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp dto.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func (a *testApp) admin(t *testing.T) string {
	t.Helper()
	_, err := a.auth.EnsureAdmin(context.Background(), authsvc.AdminAccount{Email: "root@test.io", Password: "supersecret"})
	require.NoError(t, err)
	res, err := a.auth.Login(context.Background(), authsvc.LoginParams{Email: "root@test.io", Password: "supersecret"})
	require.NoError(t, err)
	return res.Token()
}

func withToken(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func withCookie(req *http.Request, token string) *http.Request {
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	return req
}

func hostelPayload(name, price string) string {
	return `{"name":"` + name + `","price":` + price + `,"room_types":["single"],"room_prices":{"single":"` + price + `"},` +
		`"owner_name":"Kojo","owner_contact":"0200000000","description":"near campus","available_rooms":3}`
}

func multipartRequest(t *testing.T, method, target, payload string, images int) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("payload", payload))
	for i := 0; i < images; i++ {
		part, err := mw.CreateFormFile("images", "photo.png")
		require.NoError(t, err)
		_, err = part.Write(pngHeader)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestPages_Redirects(t *testing.T) {
	app := newTestApp(t, nil)

	w := app.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	w = app.do(httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	w = app.do(httptest.NewRequest(http.MethodGet, "/login", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"authenticated":false}`, w.Body.String())

	token := app.register(t, "a@test.io")
	w = app.do(withCookie(httptest.NewRequest(http.MethodGet, "/login", nil), token))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))
}

func TestDashboard_RequiresSession(t *testing.T) {
	app := newTestApp(t, nil)

	w := app.do(httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	w = app.do(httptest.NewRequest(http.MethodGet, "/api/v1/hostels", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := app.register(t, "a@test.io")
	w = app.do(withCookie(httptest.NewRequest(http.MethodGet, "/dashboard", nil), token))
	assert.Equal(t, http.StatusOK, w.Code)
	var catalog dto.HostelCatalog
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &catalog))
	assert.Empty(t, catalog.Items)
}

func TestAdmin_DeniedForRegularUsers(t *testing.T) {
	app := newTestApp(t, nil)
	token := app.register(t, "a@test.io")

	w := app.do(withCookie(httptest.NewRequest(http.MethodGet, "/admin", nil), token))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	w = app.do(withToken(httptest.NewRequest(http.MethodGet, "/api/v1/admin/hostels", nil), token))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = app.do(httptest.NewRequest(http.MethodGet, "/api/v1/admin/hostels", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = app.do(httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestAdmin_ProfileLookupFailureIsRetryable(t *testing.T) {
	app := newTestApp(t, brokenProfiles{})
	token := app.register(t, "a@test.io")

	w := app.do(withToken(httptest.NewRequest(http.MethodGet, "/api/v1/admin/hostels", nil), token))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"retryable":true`)

	w = app.do(withCookie(httptest.NewRequest(http.MethodGet, "/admin", nil), token))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Empty(t, w.Header().Get("Location"))
}

func TestAdminHostels_CreateFilterUpdateDelete(t *testing.T) {
	app := newTestApp(t, nil)
	admin := app.admin(t)

	w := app.do(withToken(multipartRequest(t, http.MethodPost, "/api/v1/admin/hostels", hostelPayload("Alpha Hostel", "1200"), 1), admin))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var alpha dto.HostelDetail
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &alpha))
	assert.Equal(t, "/api/v1/admin/hostels/"+alpha.ID, w.Header().Get("Location"))
	assert.Equal(t, "1200", alpha.Price)

	w = app.do(withToken(multipartRequest(t, http.MethodPost, "/api/v1/admin/hostels", hostelPayload("Gamma Hostel", "2000"), 2), admin))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, 3, app.images.uploads)

	w = app.do(withToken(httptest.NewRequest(http.MethodGet, "/api/v1/hostels?q=hostel&price_min=1500", nil), admin))
	require.Equal(t, http.StatusOK, w.Code)
	var catalog dto.HostelCatalog
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &catalog))
	require.Len(t, catalog.Items, 1)
	assert.Equal(t, "Gamma Hostel", catalog.Items[0].Name)
	assert.Equal(t, 2, catalog.Total)

	update := httptest.NewRequest(http.MethodPut, "/api/v1/admin/hostels/"+alpha.ID, strings.NewReader(hostelPayload("Alpha Annex", "900")))
	update.Header.Set("Content-Type", "application/json")
	w = app.do(withToken(update, admin))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "Alpha Annex")

	w = app.do(withToken(httptest.NewRequest(http.MethodGet, "/api/v1/admin/hostels/"+alpha.ID, nil), admin))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"draft"`)

	w = app.do(withToken(httptest.NewRequest(http.MethodDelete, "/api/v1/admin/hostels/"+alpha.ID, nil), admin))
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = app.do(withToken(httptest.NewRequest(http.MethodGet, "/api/v1/admin/hostels/"+alpha.ID, nil), admin))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminHostels_Rejections(t *testing.T) {
	app := newTestApp(t, nil)
	admin := app.admin(t)

	w := app.do(withToken(multipartRequest(t, http.MethodPost, "/api/v1/admin/hostels", hostelPayload("Alpha", "1200"), 0), admin))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Please select at least one image")

	w = app.do(withToken(multipartRequest(t, http.MethodPost, "/api/v1/admin/hostels", `{"name":"A"}`, 1), admin))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "validation failed", body.Error)
	assert.Contains(t, body.Fields, "owner_contact")
	assert.Zero(t, app.images.uploads)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("payload", hostelPayload("Alpha", "1200")))
	part, err := mw.CreateFormFile("images", "notes.txt")
	require.NoError(t, err)
	_, _ = part.Write([]byte("plain text, not an image"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/hostels", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w = app.do(withToken(req, admin))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unsupported content type")

	w = app.do(withToken(httptest.NewRequest(http.MethodGet, "/api/v1/hostels?price_min=cheap", nil), admin))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "price_min")
}

func TestCatalog_InfinitePriceBounds(t *testing.T) {
	app := newTestApp(t, nil)
	token := app.register(t, "a@test.io")

	for _, raw := range []string{"-Inf", "Infinity"} {
		w := app.do(withToken(httptest.NewRequest(http.MethodGet, "/api/v1/hostels?price_min="+raw, nil), token))
		assert.Equal(t, http.StatusBadRequest, w.Code, raw)
		assert.Contains(t, w.Body.String(), "price_min", raw)
	}

	w := app.do(withToken(httptest.NewRequest(http.MethodGet, "/api/v1/hostels?price_max=Inf", nil), token))
	require.Equal(t, http.StatusOK, w.Code)
	var catalog dto.HostelCatalog
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &catalog))
	assert.Nil(t, catalog.Filters.PriceMax)
}

func TestAuth_LogoutEndsCookieSession(t *testing.T) {
	app := newTestApp(t, nil)
	token := app.register(t, "a@test.io")

	w := app.do(withToken(httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil), token))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"is_admin":false`)

	w = app.do(withCookie(httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil), token))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), SessionCookie+"=;")

	w = app.do(withCookie(httptest.NewRequest(http.MethodGet, "/dashboard", nil), token))
	assert.Equal(t, http.StatusFound, w.Code)

	w = app.do(httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"a@test.io","password":"nope-nope"}`)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

type decisionStream struct {
	t      *testing.T
	reader *bufio.Reader
}

func openDecisionStream(t *testing.T, srv *httptest.Server, token string) *decisionStream {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/session/watch", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return &decisionStream{t: t, reader: bufio.NewReader(resp.Body)}
}

func (s *decisionStream) next() decisionEvent {
	s.t.Helper()
	for {
		line, err := s.reader.ReadString('\n')
		require.NoError(s.t, err)
		if !strings.HasPrefix(line, "event:decision") {
			continue
		}
		data, err := s.reader.ReadString('\n')
		require.NoError(s.t, err)
		var ev decisionEvent
		require.NoError(s.t, json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(data), "data:")), &ev))
		return ev
	}
}

func TestSessionWatch_StreamsDecisionsUntilSignOut(t *testing.T) {
	app := newTestApp(t, nil)
	token := app.register(t, "a@test.io")

	srv := httptest.NewServer(app.router)
	defer srv.Close()
	stream := openDecisionStream(t, srv, token)

	assert.Equal(t, guard.Pending, stream.next().Outcome)
	assert.Equal(t, guard.Granted, stream.next().Outcome)

	require.NoError(t, app.auth.Logout(context.Background(), token))
	denied := stream.next()
	assert.Equal(t, guard.Denied, denied.Outcome)
	assert.Equal(t, "/login", denied.Redirect)
}

func TestSessionWatch_DeniesWhenSessionExpires(t *testing.T) {
	app := newTestApp(t, nil)
	app.auth.SessionTTL = 300 * time.Millisecond
	token := app.register(t, "a@test.io")

	srv := httptest.NewServer(app.router)
	defer srv.Close()
	stream := openDecisionStream(t, srv, token)

	assert.Equal(t, guard.Pending, stream.next().Outcome)
	assert.Equal(t, guard.Granted, stream.next().Outcome)

	denied := stream.next()
	assert.Equal(t, guard.Denied, denied.Outcome)
	assert.Equal(t, "/login", denied.Redirect)
}
