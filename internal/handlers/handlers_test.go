package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/agentchat/backend/internal/config"
	"github.com/agentchat/backend/internal/models"
	"github.com/agentchat/backend/internal/services/conversation"
	"github.com/agentchat/backend/internal/services/ledger"
	"github.com/agentchat/backend/internal/services/user"
)

type testEnv struct {
	router    *gin.Engine
	db        *gorm.DB
	ledgerSvc *ledger.Service
	userSvc   *user.Service
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_busy_timeout=5000"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.Migrator().DropTable(&models.User{}, &models.Conversation{}, &models.PointTransaction{}, &models.Referral{}))
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Conversation{}, &models.PointTransaction{}, &models.Referral{}))

	ledgerSvc := ledger.NewService(db, config.PointsConfig{WelcomeBonus: 100, ReferralBonus: 50}, nil)
	userSvc := user.NewService(db, ledgerSvc)
	conversationSvc := conversation.NewService(db)

	router := gin.New()
	api := router.Group("/api")
	{
		api.POST("/users", NewUserHandler(userSvc).Signup)

		points := NewPointsHandler(ledgerSvc)
		api.GET("/points", points.GetPointTransactions)
		api.POST("/points", points.HandlePointsAction)

		referrals := NewReferralHandler(ledgerSvc)
		api.GET("/referrals", referrals.GetReferrals)
		api.POST("/referrals", referrals.HandleReferralAction)

		profile := NewProfileHandler(userSvc)
		api.GET("/profile", profile.GetProfile)
		api.PUT("/profile", profile.UpdateProfile)
		api.GET("/profile/stats", profile.GetProfileStats)

		conversations := NewConversationHandler(conversationSvc)
		api.GET("/conversations", conversations.GetConversations)
		api.POST("/conversations", conversations.LogConversation)
	}

	return &testEnv{router: router, db: db, ledgerSvc: ledgerSvc, userSvc: userSvc}
}

func (e *testEnv) request(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) createUser(t *testing.T, email string) *models.User {
	t.Helper()

	created, err := e.userSvc.CreateUser(context.Background(), user.CreateUserInput{
		Email: email,
		Name:  "Test User",
	})
	require.NoError(t, err)
	return created
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestSignupEndpoint(t *testing.T) {
	env := setupTestEnv(t)

	w := env.request(t, http.MethodPost, "/api/users", gin.H{
		"email": "alice@example.com",
		"name":  "Alice",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	body := decodeJSON(t, w)
	assert.Equal(t, "alice@example.com", body["email"])
	assert.Equal(t, float64(100), body["points"])
	assert.NotEmpty(t, body["referral_code"])

	// Duplicate email is rejected
	w = env.request(t, http.MethodPost, "/api/users", gin.H{
		"email": "alice@example.com",
		"name":  "Alice Again",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Malformed email is rejected by binding
	w = env.request(t, http.MethodPost, "/api/users", gin.H{
		"email": "not-an-email",
		"name":  "Bob",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSignupEndpointWithReferral(t *testing.T) {
	env := setupTestEnv(t)
	referrer := env.createUser(t, "referrer@example.com")

	w := env.request(t, http.MethodPost, "/api/users", gin.H{
		"email":            "referred@example.com",
		"name":             "Referred",
		"referred_by_code": referrer.ReferralCode,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var fresh models.User
	require.NoError(t, env.db.First(&fresh, "id = ?", referrer.ID).Error)
	assert.Equal(t, int64(150), fresh.Points)
	assert.Equal(t, int64(1), fresh.TotalReferrals)
}

func TestGetPointTransactionsEndpoint(t *testing.T) {
	env := setupTestEnv(t)
	u := env.createUser(t, "alice@example.com")

	w := env.request(t, http.MethodGet, "/api/points?user_id="+u.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var transactions []models.PointTransaction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &transactions))
	require.Len(t, transactions, 1)
	assert.Equal(t, models.TransactionTypeSignup, transactions[0].Type)

	// Missing and malformed user ids are rejected
	w = env.request(t, http.MethodGet, "/api/points", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.request(t, http.MethodGet, "/api/points?user_id=not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPointsActionAward(t *testing.T) {
	env := setupTestEnv(t)
	u := env.createUser(t, "alice@example.com")

	w := env.request(t, http.MethodPost, "/api/points", gin.H{
		"action":      "award",
		"user_id":     u.ID.String(),
		"points":      25,
		"description": "Daily streak",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var fresh models.User
	require.NoError(t, env.db.First(&fresh, "id = ?", u.ID).Error)
	assert.Equal(t, int64(125), fresh.Points)

	// The untyped award lands as a bonus entry
	var entry models.PointTransaction
	require.NoError(t, env.db.First(&entry, "user_id = ? AND type = ?", u.ID, models.TransactionTypeBonus).Error)
	assert.Equal(t, int64(25), entry.Points)
}

func TestPointsActionSpend(t *testing.T) {
	env := setupTestEnv(t)
	u := env.createUser(t, "alice@example.com")

	w := env.request(t, http.MethodPost, "/api/points", gin.H{
		"action":      "spend",
		"user_id":     u.ID.String(),
		"points":      40,
		"description": "Premium answer",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var fresh models.User
	require.NoError(t, env.db.First(&fresh, "id = ?", u.ID).Error)
	assert.Equal(t, int64(60), fresh.Points)
}

func TestPointsActionSpendInsufficient(t *testing.T) {
	env := setupTestEnv(t)
	u := env.createUser(t, "alice@example.com")

	w := env.request(t, http.MethodPost, "/api/points", gin.H{
		"action":  "spend",
		"user_id": u.ID.String(),
		"points":  500,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	body := decodeJSON(t, w)
	assert.Equal(t, "insufficient_points", body["code"])

	var fresh models.User
	require.NoError(t, env.db.First(&fresh, "id = ?", u.ID).Error)
	assert.Equal(t, int64(100), fresh.Points)
}

func TestPointsActionErrors(t *testing.T) {
	env := setupTestEnv(t)

	w := env.request(t, http.MethodPost, "/api/points", gin.H{
		"action":  "award",
		"user_id": uuid.New().String(),
		"points":  10,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	u := env.createUser(t, "alice@example.com")
	w = env.request(t, http.MethodPost, "/api/points", gin.H{
		"action":  "transfer",
		"user_id": u.ID.String(),
		"points":  10,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetReferralsEndpoint(t *testing.T) {
	env := setupTestEnv(t)
	referrer := env.createUser(t, "referrer@example.com")

	w := env.request(t, http.MethodPost, "/api/users", gin.H{
		"email":            "referred@example.com",
		"name":             "Referred",
		"referred_by_code": referrer.ReferralCode,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.request(t, http.MethodGet, "/api/referrals?user_id="+referrer.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var records []ledger.ReferralRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "referred@example.com", records[0].ReferredEmail)

	w = env.request(t, http.MethodGet, "/api/referrals?user_id="+referrer.ID.String()+"&action=stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats ledger.ReferralStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.TotalReferrals)
	assert.Equal(t, int64(50), stats.TotalPointsFromReferrals)
}

func TestReferralActionValidate(t *testing.T) {
	env := setupTestEnv(t)
	u := env.createUser(t, "alice@example.com")

	w := env.request(t, http.MethodPost, "/api/referrals", gin.H{
		"action":        "validate",
		"referral_code": u.ReferralCode,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeJSON(t, w)["valid"])

	w = env.request(t, http.MethodPost, "/api/referrals", gin.H{
		"action":        "validate",
		"referral_code": "NOPE9999",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decodeJSON(t, w)["valid"])

	w = env.request(t, http.MethodPost, "/api/referrals", gin.H{
		"action": "revoke",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProfileEndpoints(t *testing.T) {
	env := setupTestEnv(t)
	u := env.createUser(t, "alice@example.com")

	w := env.request(t, http.MethodGet, "/api/profile?user_id="+u.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice@example.com", decodeJSON(t, w)["email"])

	w = env.request(t, http.MethodPut, "/api/profile", gin.H{
		"user_id": u.ID.String(),
		"name":    "Alice Updated",
		"bio":     "Hello there",
	})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeJSON(t, w)
	assert.Equal(t, "Alice Updated", body["name"])
	assert.Equal(t, "Hello there", body["bio"])

	w = env.request(t, http.MethodGet, "/api/profile/stats?user_id="+u.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decodeJSON(t, w)
	assert.Equal(t, float64(100), stats["points"])
	assert.Equal(t, float64(0), stats["total_questions"])

	w = env.request(t, http.MethodGet, "/api/profile?user_id="+uuid.New().String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestConversationEndpoints(t *testing.T) {
	env := setupTestEnv(t)
	u := env.createUser(t, "alice@example.com")

	w := env.request(t, http.MethodPost, "/api/conversations", gin.H{
		"user_id":     u.ID.String(),
		"prompt":      "What is Go?",
		"response":    "A programming language.",
		"tokens_used": 42,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var fresh models.User
	require.NoError(t, env.db.First(&fresh, "id = ?", u.ID).Error)
	assert.Equal(t, int64(42), fresh.TotalTokensUsed)

	w = env.request(t, http.MethodGet, "/api/conversations?user_id="+u.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var conversations []models.Conversation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conversations))
	require.Len(t, conversations, 1)
	assert.Equal(t, "What is Go?", conversations[0].Prompt)

	w = env.request(t, http.MethodPost, "/api/conversations", gin.H{
		"user_id":     uuid.New().String(),
		"prompt":      "hello",
		"response":    "hi",
		"tokens_used": 1,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
