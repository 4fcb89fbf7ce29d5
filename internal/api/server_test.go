package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fmuoria/gems-hub/internal/apperr"
	"github.com/fmuoria/gems-hub/internal/auth"
	"github.com/fmuoria/gems-hub/internal/cache"
	"github.com/fmuoria/gems-hub/internal/gemdb"
	"github.com/fmuoria/gems-hub/internal/hub"
	"github.com/fmuoria/gems-hub/internal/ingestion"
	"github.com/fmuoria/gems-hub/internal/metrics"
	"github.com/fmuoria/gems-hub/internal/models"
	"github.com/fmuoria/gems-hub/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeUpstream struct {
	mu       sync.Mutex
	gems     []models.GemType
	holdings []models.Holding
	nextID   int64
}

func (f *fakeUpstream) ListGems(context.Context, int) ([]models.GemType, error) {
	return f.gems, nil
}

func (f *fakeUpstream) ListListings(context.Context, string, int) ([]models.Listing, error) {
	return []models.Listing{}, nil
}

func (f *fakeUpstream) ProductDetails(context.Context, string) (*models.ProductDetails, error) {
	return nil, apperr.NotFound("no product")
}

func (f *fakeUpstream) ListHoldings(_ context.Context, userID string) ([]models.Holding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Holding
	for _, h := range f.holdings {
		if h.UserID == userID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (f *fakeUpstream) CreateHolding(_ context.Context, userID string, in models.HoldingInput) (*models.Holding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	h := models.Holding{
		ID:            f.nextID,
		UserID:        userID,
		GemTypeName:   in.GemTypeName,
		WeightCarats:  in.WeightCarats,
		PurchasePrice: in.PurchasePrice,
		CurrentValue:  in.CurrentValue,
	}
	f.holdings = append(f.holdings, h)
	return &h, nil
}

func (f *fakeUpstream) UpdateHolding(_ context.Context, userID string, id int64, in models.HoldingInput) (*models.Holding, error) {
	return &models.Holding{ID: id, UserID: userID, GemTypeName: in.GemTypeName}, nil
}

func (f *fakeUpstream) DeleteHolding(_ context.Context, _ string, id int64) error {
	if id == 404 {
		return apperr.NotFound("holding not found")
	}
	return nil
}

type fakeHealth struct{ status gemdb.HealthStatus }

func (f fakeHealth) Health(context.Context) gemdb.HealthStatus { return f.status }

type fakeProvider struct{}

func (fakeProvider) AuthCodeURL(state string) string {
	return "https://accounts.example.com/o/auth?state=" + state
}

func (fakeProvider) Exchange(_ context.Context, code string) (models.User, error) {
	if code != "good" {
		return models.User{}, apperr.Unauthorized("google sign-in failed")
	}
	return models.User{GoogleID: "g-1", Email: "ada@example.com", Name: "Ada"}, nil
}

func fixtureGems() []models.GemType {
	return []models.GemType{
		{
			Name:                      "Painite",
			MineralGroup:              "Borate",
			Rarity:                    "Singular Occurrence",
			Availability:              "Collectors Market",
			InvestmentAppropriateness: "Blue Chip Investment Gems",
			Hardness:                  "8.2",
			PriceRange:                "$30 per carat",
		},
		{
			Name:                      "Zircon",
			MineralGroup:              "Zircon",
			Rarity:                    "Limited Occurrence",
			Availability:              "Limited Supply",
			InvestmentAppropriateness: "Fashion/Trend Gems",
			Hardness:                  "7.2",
			PriceRange:                "$150",
		},
		{Name: "Quartz", Rarity: "Abundant Minerals", Availability: "Consistently Available", Hardness: "7"},
	}
}

type testEnv struct {
	router   *gin.Engine
	sessions *auth.Sessions
	store    *store.Store
	metrics  *metrics.Metrics
	invoices *ingestion.InvoiceArchive
}

func newTestEnv(t *testing.T, signIn bool) *testEnv {
	t.Helper()

	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	m := metrics.New(false)
	up := &fakeUpstream{gems: fixtureGems()}
	svc := hub.New(hub.Deps{
		Gems:     up,
		Holdings: up,
		Store:    st,
		Cache:    cache.NewMemory(time.Minute),
		Metrics:  m,
	}, hub.Options{})

	sessions, err := auth.NewSessions("test-secret", time.Hour)
	require.NoError(t, err)
	archive := ingestion.NewInvoiceArchive(t.TempDir())

	cfg := Config{
		Hub:            svc,
		Users:          st,
		Sessions:       sessions,
		Health:         fakeHealth{status: gemdb.HealthStatus{OK: false, Error: "connection refused"}},
		Metrics:        m,
		Invoices:       archive,
		SearchBaseURL:  "https://example.com/search?query=",
		MaxUploadBytes: 1 << 20,
	}
	if signIn {
		cfg.Provider = fakeProvider{}
	}

	return &testEnv{
		router:   NewServer(cfg).Router(),
		sessions: sessions,
		store:    st,
		metrics:  m,
		invoices: archive,
	}
}

func (e *testEnv) token(t *testing.T) string {
	t.Helper()
	u := models.User{GoogleID: "g-1", Email: "ada@example.com", Name: "Ada"}
	_, err := e.store.UpsertUser(context.Background(), u)
	require.NoError(t, err)
	tok, _, err := e.sessions.Issue(u)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, path string, body interface{}, token string) *http.Request {
	var r io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error errorBody `json:"error"`
	}
	decode(t, rec, &body)
	return body.Error.Code
}

func TestHealth_ReportsDegradedUpstream(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status   string             `json:"status"`
		Upstream gemdb.HealthStatus `json:"upstream"`
	}
	decode(t, rec, &body)
	assert.Equal(t, "degraded", body.Status)
	assert.False(t, body.Upstream.OK)
}

func TestRequestID(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec = env.do(req)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}

func TestBrowse_Filters(t *testing.T) {
	env := newTestEnv(t, false)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"all", "", []string{"Painite", "Quartz", "Zircon"}},
		{"rarity", "?rarity=singular+occurrence", []string{"Painite"}},
		{"price bucket", "?price=MID-RANGE", []string{"Zircon"}},
		{"search", "?q=bor", []string{"Painite"}},
		{"no match", "?rarity=unknown", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/gems"+tt.query, nil))
			require.Equal(t, http.StatusOK, rec.Code)

			var body struct {
				Gems  []models.GemSummary `json:"gems"`
				Count int                 `json:"count"`
			}
			decode(t, rec, &body)
			names := []string{}
			for _, g := range body.Gems {
				names = append(names, g.Name)
			}
			assert.Equal(t, tt.want, names)
			assert.Equal(t, len(tt.want), body.Count)
		})
	}
}

func TestProfile(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/gems/painite", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var profile models.GemProfile
	decode(t, rec, &profile)
	assert.Equal(t, "Painite", profile.Gem.Name)
	assert.Equal(t, 80.0, profile.Gem.Ranking.Score)
	assert.True(t, profile.CacheStale)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/v1/gems/Unobtainium", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errorCode(t, rec))
}

func TestRankings(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/rankings", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var report models.RankingReport
	decode(t, rec, &report)
	require.Len(t, report.Gems, 3)
	assert.Equal(t, "Painite", report.Gems[0].Name)
	assert.Equal(t, 1, report.Gems[0].Rank)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/v1/rankings?min_tier=VERY+BULLISH", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	report = models.RankingReport{}
	decode(t, rec, &report)
	require.Len(t, report.Gems, 1)
	assert.Equal(t, "Painite", report.Gems[0].Name)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/v1/rankings?min_tier=moonshot", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation", errorCode(t, rec))
}

func TestRankings_RefreshAndExport(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(httptest.NewRequest(http.MethodPost, "/api/v1/rankings/refresh", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Updated int `json:"updated"`
	}
	decode(t, rec, &body)
	assert.Equal(t, 3, body.Updated)

	n, err := env.store.CountScores(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/v1/rankings/export", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "gem_rankings_")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")), "xlsx is a zip archive")
}

func TestScore_AcceptsNumericHardness(t *testing.T) {
	env := newTestEnv(t, false)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/score", strings.NewReader(`{
		"rarity": "Singular Occurrence",
		"availability": "Collectors Market",
		"investment": "Blue Chip Investment Gems",
		"hardness": 8.2,
		"price_range": "$30 per carat"
	}`))
	req.Header.Set("Content-Type", "application/json")
	rec := env.do(req)
	require.Equal(t, http.StatusOK, rec.Code)

	var b models.ScoreBreakdown
	decode(t, rec, &b)
	assert.Equal(t, 80.0, b.Score)
	assert.Equal(t, "VERY BULLISH", b.Tier)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/score", strings.NewReader(`{not json`))
	req.Header.Set("Content-Type", "application/json")
	rec = env.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPriceBucket(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/price-bucket?text=%24150", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Bucket string  `json:"bucket"`
		Points float64 `json:"points"`
	}
	decode(t, rec, &body)
	assert.Equal(t, "MID-RANGE", body.Bucket)
	assert.Equal(t, 25.0, body.Points)
}

func TestCatalog_DerivedFromGems(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/catalog", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "https://example.com/search?query=Painite")
}

func TestPortfolio_RequiresSession(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(jsonRequest(http.MethodGet, "/api/v1/portfolio", nil, ""))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", errorCode(t, rec))

	rec = env.do(jsonRequest(http.MethodGet, "/api/v1/portfolio", nil, "forged.token.value"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPortfolio_CRUD(t *testing.T) {
	env := newTestEnv(t, false)
	tok := env.token(t)

	rec := env.do(jsonRequest(http.MethodGet, "/api/v1/portfolio", nil, tok))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"holdings": [], "count": 0}`, rec.Body.String())

	rec = env.do(jsonRequest(http.MethodPost, "/api/v1/portfolio", models.HoldingInput{
		GemTypeName: "Spinel", WeightCarats: 1.5, PurchasePrice: 100, CurrentValue: 130,
	}, tok))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(jsonRequest(http.MethodPost, "/api/v1/portfolio", models.HoldingInput{}, tok))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(jsonRequest(http.MethodGet, "/api/v1/portfolio/stats", nil, tok))
	require.Equal(t, http.StatusOK, rec.Code)
	var stats models.PortfolioStats
	decode(t, rec, &stats)
	assert.Equal(t, 1, stats.TotalItems)
	assert.Equal(t, 30.0, stats.UnrealizedGain)

	rec = env.do(jsonRequest(http.MethodPut, "/api/v1/portfolio/1", models.HoldingInput{GemTypeName: "Spinel"}, tok))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(jsonRequest(http.MethodDelete, "/api/v1/portfolio/abc", nil, tok))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(jsonRequest(http.MethodDelete, "/api/v1/portfolio/404", nil, tok))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(jsonRequest(http.MethodDelete, "/api/v1/portfolio/1", nil, tok))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(jsonRequest(http.MethodGet, "/api/v1/portfolio/export", nil, tok))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
}

func uploadRequest(t *testing.T, filename string, content []byte, token string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/portfolio/invoices", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestInvoiceUpload_Rejections(t *testing.T) {
	env := newTestEnv(t, false)
	tok := env.token(t)

	rec := env.do(uploadRequest(t, "invoice.txt", []byte("just some text"), tok))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "validation", errorCode(t, rec))

	rec = env.do(uploadRequest(t, "invoice.pdf", []byte("%PDF-1.4\nbroken"), tok))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// only the upload that looked like a PDF is archived
	archived, err := env.invoices.LoadPDFs()
	require.NoError(t, err)
	assert.Len(t, archived, 1)

	req := jsonRequest(http.MethodPost, "/api/v1/portfolio/invoices", nil, tok)
	rec = env.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInvoiceImport(t *testing.T) {
	env := newTestEnv(t, false)
	tok := env.token(t)

	rec := env.do(jsonRequest(http.MethodPost, "/api/v1/portfolio/invoices/import", importRequest{
		Items: []models.InvoiceLineItem{
			{ProductID: "p1", GemTypeName: "Painite", PriceUSD: 120},
			{ProductID: "p2", Description: "Mystery stone", PriceUSD: 10},
		},
		PurchaseDate: "2024-03-12",
	}, tok))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var result models.ImportResult
	decode(t, rec, &result)
	assert.Len(t, result.Created, 1)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "p2", result.Failed[0].ProductID)

	rec = env.do(jsonRequest(http.MethodPost, "/api/v1/portfolio/invoices/import", importRequest{}, tok))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin_Disabled(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unavailable", errorCode(t, rec))
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLogin_Flow(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	require.Equal(t, http.StatusFound, rec.Code)
	state := cookieNamed(rec, stateCookie)
	require.NotNil(t, state)
	assert.True(t, state.HttpOnly)
	assert.Equal(t, "https://accounts.example.com/o/auth?state="+state.Value, rec.Header().Get("Location"))

	// state mismatch
	req := httptest.NewRequest(http.MethodGet, "/auth/callback?state=other&code=good", nil)
	req.AddCookie(state)
	rec = env.do(req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/auth/callback?state="+state.Value+"&code=good", nil)
	req.AddCookie(state)
	rec = env.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	session := cookieNamed(rec, "gemshub_session")
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.AddCookie(session)
	rec = env.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	var me models.User
	decode(t, rec, &me)
	assert.Equal(t, "Ada", me.Name)

	rec = env.do(httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	cleared := cookieNamed(rec, "gemshub_session")
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
}

func TestProfileAndPreferences(t *testing.T) {
	env := newTestEnv(t, false)
	tok := env.token(t)

	rec := env.do(jsonRequest(http.MethodPut, "/api/v1/me/profile", models.ProfileUpdate{
		PreferredStore: "Gem Rock Auctions", MinimalInvestmentTier: "bullish",
	}, tok))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var me models.User
	decode(t, rec, &me)
	assert.Equal(t, "BULLISH", me.MinimalInvestmentTier)

	rec = env.do(jsonRequest(http.MethodPut, "/api/v1/me/profile", models.ProfileUpdate{MinimalInvestmentTier: "moonshot"}, tok))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(jsonRequest(http.MethodGet, "/api/v1/me/gem-preferences/Painite", nil, tok))
	require.Equal(t, http.StatusOK, rec.Code)
	var pref models.GemPreference
	decode(t, rec, &pref)
	assert.Equal(t, "Painite", pref.GemTypeName)
	assert.False(t, pref.IsHunted)

	rec = env.do(jsonRequest(http.MethodPost, "/api/v1/me/gem-preferences/Painite", models.GemPreference{
		IsHunted: true, MaxHuntTotalCost: 500,
	}, tok))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(jsonRequest(http.MethodGet, "/api/v1/me/gem-preferences", nil, tok))
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Preferences []models.GemPreference `json:"preferences"`
	}
	decode(t, rec, &list)
	require.Len(t, list.Preferences, 1)
	assert.True(t, list.Preferences[0].IsHunted)
	assert.Equal(t, 500.0, list.Preferences[0].MaxHuntTotalCost)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, false)

	env.do(httptest.NewRequest(http.MethodGet, "/api/v1/rankings", nil))
	env.do(jsonRequest(http.MethodPost, "/api/v1/score", map[string]string{"rarity": "Singular Occurrence"}, ""))
	rec := env.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "gemshub_http_request_duration_seconds")
	assert.Contains(t, body, `route="/api/v1/rankings"`)
	assert.Contains(t, body, "gemshub_gems_scored_total")
}
