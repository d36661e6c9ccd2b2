package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/crm-api/internal/application/analytics"
	"github.com/jhoicas/crm-api/internal/application/auth"
	"github.com/jhoicas/crm-api/internal/application/dto"
	"github.com/jhoicas/crm-api/internal/application/notification"
	"github.com/jhoicas/crm-api/internal/application/usecase"
	"github.com/jhoicas/crm-api/internal/infrastructure/pdf"
	"github.com/jhoicas/crm-api/internal/infrastructure/sqlite"
	apphttp "github.com/jhoicas/crm-api/internal/interfaces/http"
)

const (
	adminEmail    = "admin@crm.test"
	adminPassword = "admin-secret"
)

// buildAPI monta el router completo sobre SQLite en memoria con el ADMIN inicial creado.
func buildAPI(t *testing.T) *fiber.App {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(ctx, sqlite.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	users := sqlite.NewUserRepository(db)
	deals := sqlite.NewDealRepository(db)
	leads := sqlite.NewLeadRepository(db)
	dispatcher := notification.NewDispatcher(notification.NewRegistry(nil), nil, nil)

	authUC := auth.NewAuthUseCase(users, auth.JWTConfig{Secret: testJWTSecret, ExpMinutes: 60, Issuer: testIssuer})
	seeded, err := authUC.EnsureAdmin(ctx, adminEmail, adminPassword)
	require.NoError(t, err)
	require.True(t, seeded)

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		AuthUC:      authUC,
		UserUC:      usecase.NewUserUseCase(users, "password-por-defecto"),
		LeadUC:      usecase.NewLeadUseCase(leads, users),
		DealUC:      usecase.NewDealUseCase(deals, users, sqlite.NewTxRunner(db), dispatcher, nil),
		AnalyticsUC: analytics.NewForecastUseCase(deals, leads, pdf.NewForecastReportGenerator("crm-api")),
		Dispatcher:  dispatcher,
		JWTSecret:   testJWTSecret,
	})
	return app
}

func call(t *testing.T, app *fiber.App, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func login(t *testing.T, app *fiber.App, email, password string) string {
	t.Helper()
	resp, body := call(t, app, http.MethodPost, "/api/auth/login", "", dto.LoginRequest{Email: email, Password: password})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var out dto.LoginResponse
	require.NoError(t, json.Unmarshal(body, &out))
	require.NotEmpty(t, out.AccessToken)
	return out.AccessToken
}

func createUser(t *testing.T, app *fiber.App, adminToken, email, role string) string {
	t.Helper()
	resp, body := call(t, app, http.MethodPost, "/api/users", adminToken, dto.CreateUserRequest{
		Name: email, Email: email, Password: "rep-secret-1", Role: role,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	return login(t, app, email, "rep-secret-1")
}

func TestLogin_CredencialesInvalidas(t *testing.T) {
	app := buildAPI(t)

	resp, body := call(t, app, http.MethodPost, "/api/auth/login", "", dto.LoginRequest{Email: adminEmail, Password: "mala"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, string(body), "UNAUTHORIZED")

	resp, _ = call(t, app, http.MethodPost, "/api/auth/login", "", dto.LoginRequest{Email: "nadie@crm.test", Password: "x"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = call(t, app, http.MethodPost, "/api/auth/login", "", dto.LoginRequest{Email: adminEmail})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUsers_MeYRestriccionesDeAdmin(t *testing.T) {
	app := buildAPI(t)
	adminToken := login(t, app, " ADMIN@crm.test ", adminPassword)

	resp, body := call(t, app, http.MethodGet, "/api/users/me", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var me dto.MeResponse
	require.NoError(t, json.Unmarshal(body, &me))
	assert.Equal(t, adminEmail, me.User.Email)
	assert.Equal(t, "ADMIN", me.User.Role)

	repToken := createUser(t, app, adminToken, "rep@crm.test", "SALES_REP")

	resp, _ = call(t, app, http.MethodGet, "/api/users", repToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = call(t, app, http.MethodPost, "/api/users", adminToken, dto.CreateUserRequest{Name: "x", Email: "rep@crm.test", Role: "SALES_REP"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(body), "EMAIL_EXISTS")

	resp, _ = call(t, app, http.MethodGet, "/api/users/abc", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = call(t, app, http.MethodGet, "/api/users/999", adminToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "USER_NOT_FOUND")

	resp, _ = call(t, app, http.MethodGet, "/api/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestDeals_FlujoCompleto(t *testing.T) {
	app := buildAPI(t)
	adminToken := login(t, app, adminEmail, adminPassword)
	repA := createUser(t, app, adminToken, "a@crm.test", "SALES_REP")
	repB := createUser(t, app, adminToken, "b@crm.test", "SALES_REP")
	manager := createUser(t, app, adminToken, "m@crm.test", "SALES_MANAGER")

	resp, body := call(t, app, http.MethodPost, "/api/deals", repA, map[string]any{
		"name": "Acme", "deal_value": 1000, "stage": "NEGOTIATION", "expected_close_date": "2026-03-15",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var deal dto.DealResponse
	require.NoError(t, json.Unmarshal(body, &deal))
	assert.Equal(t, 50, deal.CloseProbability)
	assert.Equal(t, "500", deal.ForecastValue.String())

	resp, _ = call(t, app, http.MethodPost, "/api/deals", manager, map[string]any{"name": "No"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = call(t, app, http.MethodGet, "/api/deals/"+deal.ID, repB, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = call(t, app, http.MethodGet, "/api/deals/"+deal.ID, manager, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = call(t, app, http.MethodPatch, "/api/deals/"+deal.ID, repA, map[string]any{"stage": "CLOSED_WON"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.NoError(t, json.Unmarshal(body, &deal))
	assert.Equal(t, 100, deal.CloseProbability)
	assert.Equal(t, "1000", deal.ForecastValue.String())

	// las rutas estáticas no se confunden con /:id
	resp, body = call(t, app, http.MethodGet, "/api/deals/stage-percentages", repA, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var stages []dto.StagePercentageDTO
	require.NoError(t, json.Unmarshal(body, &stages))
	assert.Equal(t, []dto.StagePercentageDTO{{Stage: "CLOSED_WON", Count: 1, Percentage: 100}}, stages)

	resp, body = call(t, app, http.MethodGet, "/api/deals/forecast/monthly", repA, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var monthly []dto.MonthlyForecastDTO
	require.NoError(t, json.Unmarshal(body, &monthly))
	require.Len(t, monthly, 1)
	assert.Equal(t, "March 2026", monthly[0].Label)

	resp, body = call(t, app, http.MethodGet, "/api/deals/pipeline", repB, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"NEGOTIATION":[],"PROPOSAL_SENT":[],"CLOSED_WON":[],"CLOSED_LOST":[],"OTHER":[]}`, string(body))

	resp, body = call(t, app, http.MethodGet, "/api/deals/forecast/report", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))

	resp, _ = call(t, app, http.MethodDelete, "/api/deals/"+deal.ID, repB, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = call(t, app, http.MethodDelete, "/api/deals/"+deal.ID, repA, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, body = call(t, app, http.MethodGet, "/api/deals/"+deal.ID, adminToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "NOT_FOUND")
}

func TestLeads_PorcentajesYBusqueda(t *testing.T) {
	app := buildAPI(t)
	adminToken := login(t, app, adminEmail, adminPassword)
	rep := createUser(t, app, adminToken, "a@crm.test", "SALES_REP")

	resp, body := call(t, app, http.MethodGet, "/api/leads/status-percentages", rep, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body))

	for _, name := range []string{"Ana", "Luis"} {
		resp, body = call(t, app, http.MethodPost, "/api/leads", rep, dto.CreateLeadRequest{Name: name, Company: "Acme"})
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	}
	resp, _ = call(t, app, http.MethodPost, "/api/leads", rep, dto.CreateLeadRequest{Name: "Mal", Status: "HOT"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = call(t, app, http.MethodGet, "/api/leads?search=luis", rep, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list dto.LeadListResponse
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list.Data, 1)
	assert.Equal(t, "Luis", list.Data[0].Name)

	resp, body = call(t, app, http.MethodGet, "/api/leads/status-percentages", rep, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[{"status":"NEW","count":2,"percentage":100}]`, string(body))
}

func TestNotifications_SinConexionNoEntrega(t *testing.T) {
	app := buildAPI(t)
	adminToken := login(t, app, adminEmail, adminPassword)

	resp, body := call(t, app, http.MethodPost, "/api/notifications", adminToken, dto.SendNotificationRequest{Message: "hola", Type: "DEAL_WON"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"delivered":false}`, string(body))

	resp, _ = call(t, app, http.MethodPost, "/api/notifications", adminToken, dto.SendNotificationRequest{Message: "hola", Type: "OTRO"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeals_IDMalformadoDevuelve404(t *testing.T) {
	app := buildAPI(t)
	adminToken := login(t, app, adminEmail, adminPassword)

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		resp, body := call(t, app, method, "/api/deals/no-es-uuid", adminToken, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, method)
		assert.Contains(t, string(body), "NOT_FOUND")
	}
	resp, _ := call(t, app, http.MethodPatch, "/api/leads/no-es-uuid", adminToken, map[string]any{"name": "x"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
