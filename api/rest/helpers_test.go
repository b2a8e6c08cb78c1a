package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/tvip/server/admin"
	"github.com/tvip/server/api/rest"
	"github.com/tvip/server/audit"
	"github.com/tvip/server/cache"
	"github.com/tvip/server/config"
	mw "github.com/tvip/server/middleware"
	"github.com/tvip/server/model"
	"github.com/tvip/server/steam"
	"github.com/tvip/server/testutil"
	"github.com/tvip/server/vip"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// harness wires the full REST surface against an in-memory DB and cache.
type harness struct {
	r     *gin.Engine
	db    *gorm.DB
	cache cache.Cache
	sec   config.SecurityConfig
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.SetupTestDB(t)
	c := testutil.SetupTestCache(t)
	sec := config.SecurityConfig{JWTSecret: "test-secret", JWTTTL: time.Hour}
	logger := zap.NewNop()

	registry := admin.NewRegistry(db)
	recorder := audit.NewRecorder(logger)
	vipSvc := vip.NewService(db, recorder, logger)
	logSvc := audit.NewLogService(db)
	authenticator := steam.NewAuthenticator("http://localhost:3000", "http://localhost:3000/auth/steam/return", "", logger)

	authH := rest.NewAuthHandler(authenticator, registry, c, sec, "http://localhost:5173", logger)
	vipH := rest.NewVipHandler(vipSvc)
	logsH := rest.NewLogsHandler(logSvc, registry)
	adminH := rest.NewAdminHandler(db, logger)

	r := gin.New()
	r.Use(mw.TraceID())
	api := r.Group("/api")
	api.GET("/vips", vipH.List)

	authed := api.Group("", mw.Auth(sec, c))
	authed.GET("/me", authH.Me)
	authed.GET("/isAdmin", authH.AdminStatus)
	authed.POST("/auth/logout", authH.Logout)
	authed.GET("/vip-logs", logsH.List)

	adminOnly := api.Group("", mw.Auth(sec, c), mw.RequireAdmin(registry, logger))
	adminOnly.POST("/vips", vipH.Create)
	adminOnly.PUT("/vips/:playerid", vipH.Update)
	adminOnly.PUT("/vips/:playerid/extend", vipH.Extend)
	adminOnly.DELETE("/vips/:playerid", vipH.Delete)

	adminOnly.GET("/admin/metrics", adminH.Metrics)

	return &harness{r: r, db: db, cache: c, sec: sec}
}

// loginAs mints a session token for the given identity.
func (h *harness) loginAs(t *testing.T, steamID, name string) string {
	t.Helper()
	token, err := mw.GenerateToken(steamID, name, h.sec.JWTSecret, h.sec.JWTTTL)
	require.NoError(t, err)
	require.NoError(t, h.cache.Set(context.Background(), mw.SessionKey(token), steamID, h.sec.JWTTTL))
	return token
}

// loginAdmin seeds the admin table and returns a token for that admin.
func (h *harness) loginAdmin(t *testing.T, steamID, name string) string {
	t.Helper()
	require.NoError(t, h.db.Create(&model.AdminEntry{SteamID: steamID, Name: name}).Error)
	return h.loginAs(t, steamID, name)
}

func (h *harness) do(method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		b, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.r.ServeHTTP(w, req)
	return w
}

func bearer(token string) []string { return []string{"Authorization", "Bearer " + token} }

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}
