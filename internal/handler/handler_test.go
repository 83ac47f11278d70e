package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"license-admin/internal/database"
	"license-admin/internal/model"
	"license-admin/internal/service"
	"license-admin/internal/store"
	"license-admin/internal/token"
)

type testApp struct {
	app    *fiber.App
	db     *gorm.DB
	engine *service.ActivationEngine
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	db, err := database.OpenTest()
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseTest(db) })

	users := store.NewUserStore(db)
	refresh := store.NewRefreshTokenStore(db)
	keys := store.NewKeyStore(db)
	tokens := token.NewService("access-secret", "refresh-secret", 15*time.Minute, 24*time.Hour)

	log := zap.NewNop()
	auth := service.NewAuthService(users, refresh, tokens, bcrypt.MinCost, log)
	engine := service.NewActivationEngine(keys, log)

	app := fiber.New()
	Register(app,
		tokens,
		NewAuthHandler(auth, log),
		NewUserHandler(auth, engine, log),
		NewKeyHandler(engine, nil, log),
	)

	return &testApp{app: app, db: db, engine: engine}
}

func (ta *testApp) seedUser(t *testing.T, username, password, role string, active bool) *model.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	user := &model.User{Username: username, PasswordHash: string(hash), Role: role, IsActive: active}
	require.NoError(t, ta.db.Create(user).Error)
	return user
}

func (ta *testApp) request(t *testing.T, method, path, bearer string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if bearer != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+bearer)
	}

	resp, err := ta.app.Test(req)
	require.NoError(t, err)

	decoded := map[string]interface{}{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &decoded)
	}
	return resp, decoded
}

func (ta *testApp) login(t *testing.T, username, password string) (access, refreshToken string) {
	t.Helper()

	resp, body := ta.request(t, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return body["accessToken"].(string), body["refreshToken"].(string)
}

func TestLoginEndpoint(t *testing.T) {
	ta := newTestApp(t)
	ta.seedUser(t, "admin", "s3cret", model.RoleAdmin, true)
	ta.seedUser(t, "frozen", "s3cret", model.RoleUser, false)

	resp, body := ta.request(t, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"username": "admin", "password": "s3cret",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["accessToken"])
	assert.NotEmpty(t, body["refreshToken"])
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "admin", user["username"])
	assert.Equal(t, model.RoleAdmin, user["role"])

	resp, _ = ta.request(t, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"username": "admin", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = ta.request(t, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"username": "frozen", "password": "s3cret",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = ta.request(t, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"username": "admin",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRefreshAndLogoutEndpoints(t *testing.T) {
	ta := newTestApp(t)
	ta.seedUser(t, "admin", "s3cret", model.RoleAdmin, true)
	_, refreshToken := ta.login(t, "admin", "s3cret")

	resp, body := ta.request(t, http.MethodPost, "/api/auth/refresh", "", fiber.Map{
		"refreshToken": refreshToken,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	rotated := body["refreshToken"].(string)
	assert.NotEqual(t, refreshToken, rotated)

	// replay of the pre-rotation token is rejected
	resp, _ = ta.request(t, http.MethodPost, "/api/auth/refresh", "", fiber.Map{
		"refreshToken": refreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// logout always answers 200, even for nonsense
	resp, _ = ta.request(t, http.MethodPost, "/api/auth/logout", "", fiber.Map{
		"refreshToken": rotated,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = ta.request(t, http.MethodPost, "/api/auth/logout", "", fiber.Map{
		"refreshToken": "garbage",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = ta.request(t, http.MethodPost, "/api/auth/refresh", "", fiber.Map{
		"refreshToken": rotated,
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProfileEndpoint(t *testing.T) {
	ta := newTestApp(t)
	ta.seedUser(t, "admin", "s3cret", model.RoleAdmin, true)
	access, _ := ta.login(t, "admin", "s3cret")

	resp, _ := ta.request(t, http.MethodGet, "/api/auth/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := ta.request(t, http.MethodGet, "/api/auth/profile", access, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "admin", body["username"])
	assert.Equal(t, model.RoleAdmin, body["role"])
	assert.NotEmpty(t, body["created_at"])
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	ta := newTestApp(t)
	ta.seedUser(t, "admin", "s3cret", model.RoleAdmin, true)
	ta.seedUser(t, "plain", "s3cret", model.RoleUser, true)
	adminAccess, _ := ta.login(t, "admin", "s3cret")
	userAccess, _ := ta.login(t, "plain", "s3cret")

	paths := []string{"/api/keys/", "/api/keys/stats", "/api/users/"}
	for _, path := range paths {
		resp, _ := ta.request(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)

		resp, _ = ta.request(t, http.MethodGet, path, userAccess, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, path)

		resp, _ = ta.request(t, http.MethodGet, path, adminAccess, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestKeyLifecycleOverHTTP(t *testing.T) {
	ta := newTestApp(t)
	ta.seedUser(t, "admin", "s3cret", model.RoleAdmin, true)
	access, _ := ta.login(t, "admin", "s3cret")

	// create with a validity window
	resp, body := ta.request(t, http.MethodPost, "/api/keys/", access, fiber.Map{
		"valid_days": 30, "comment": "qa build",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	keyValue := body["key_value"].(string)
	keyID := uint(body["id"].(float64))
	assert.Regexp(t, `^[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}$`, keyValue)

	// fresh key checks as new with a 29/30-day window
	resp, body = ta.request(t, http.MethodPost, "/api/check_key", "", fiber.Map{
		"key": keyValue,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.StatusNew, body["status"])
	assert.Nil(t, body["hwid_matches"])
	assert.Contains(t, []float64{29, 30}, body["remaining_days"].(float64))

	// activation requires both key and hwid
	resp, _ = ta.request(t, http.MethodPost, "/api/activate_key", "", fiber.Map{
		"key": keyValue,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = ta.request(t, http.MethodPost, "/api/activate_key", "", fiber.Map{
		"key": keyValue, "hwid": "DEVICE-1", "comment": "install",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "DEVICE-1", body["hwid"])

	resp, _ = ta.request(t, http.MethodPost, "/api/activate_key", "", fiber.Map{
		"key": keyValue, "hwid": "DEVICE-2",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = ta.request(t, http.MethodPost, "/api/activate_key", "", fiber.Map{
		"key": "ZZZZ-ZZZZ-ZZZZ-ZZZZ", "hwid": "DEVICE-1",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// block, then activation refuses
	resp, _ = ta.request(t, http.MethodPut, fmt.Sprintf("/api/keys/%d/block", keyID), access, fiber.Map{
		"is_blocked": true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = ta.request(t, http.MethodPost, "/api/activate_key", "", fiber.Map{
		"key": keyValue, "hwid": "DEVICE-1",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// history recorded the successful activation only
	resp, _ = ta.request(t, http.MethodGet, fmt.Sprintf("/api/keys/%d/history", keyID), access, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	entries, err := ta.engine.History(keyID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	resp, _ = ta.request(t, http.MethodGet, "/api/get_remaining_days?key="+keyValue, "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = ta.request(t, http.MethodGet, "/api/get_remaining_days", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExtendAndHwidEndpoints(t *testing.T) {
	ta := newTestApp(t)
	ta.seedUser(t, "admin", "s3cret", model.RoleAdmin, true)
	access, _ := ta.login(t, "admin", "s3cret")

	resp, body := ta.request(t, http.MethodPost, "/api/keys/", access, fiber.Map{})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	keyID := uint(body["id"].(float64))

	resp, _ = ta.request(t, http.MethodPut, fmt.Sprintf("/api/keys/%d/extend", keyID), access, fiber.Map{
		"days": 7,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = ta.request(t, http.MethodPut, fmt.Sprintf("/api/keys/%d/extend", keyID), access, fiber.Map{
		"days": -1,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = ta.request(t, http.MethodPut, "/api/keys/9999/extend", access, fiber.Map{
		"days": 7,
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = ta.request(t, http.MethodPut, fmt.Sprintf("/api/keys/%d/hwid", keyID), access, fiber.Map{
		"hwid": "DEVICE-5",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateKeyDuplicateConflict(t *testing.T) {
	ta := newTestApp(t)
	ta.seedUser(t, "admin", "s3cret", model.RoleAdmin, true)
	access, _ := ta.login(t, "admin", "s3cret")

	resp, _ := ta.request(t, http.MethodPost, "/api/keys/", access, fiber.Map{
		"key_value": "AAAA-BBBB-CCCC-DDDD",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = ta.request(t, http.MethodPost, "/api/keys/", access, fiber.Map{
		"key_value": "AAAA-BBBB-CCCC-DDDD",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestUserAdminEndpoints(t *testing.T) {
	ta := newTestApp(t)
	ta.seedUser(t, "admin", "s3cret", model.RoleAdmin, true)
	access, _ := ta.login(t, "admin", "s3cret")

	resp, body := ta.request(t, http.MethodPost, "/api/users/", access, fiber.Map{
		"username": "operator", "password": "pw",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, model.RoleUser, body["role"])
	userID := uint(body["id"].(float64))

	resp, _ = ta.request(t, http.MethodPost, "/api/users/", access, fiber.Map{
		"username": "operator", "password": "pw",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = ta.request(t, http.MethodPost, "/api/users/", access, fiber.Map{
		"username": "weird", "password": "pw", "role": "superuser",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = ta.request(t, http.MethodPut, fmt.Sprintf("/api/users/%d/status", userID), access, fiber.Map{
		"is_active": false,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = ta.request(t, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"username": "operator", "password": "pw",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = ta.request(t, http.MethodGet, fmt.Sprintf("/api/users/%d/keys", userID), access, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestExportUnconfigured(t *testing.T) {
	ta := newTestApp(t)
	ta.seedUser(t, "admin", "s3cret", model.RoleAdmin, true)
	access, _ := ta.login(t, "admin", "s3cret")

	resp, _ := ta.request(t, http.MethodPost, "/api/keys/export", access, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
