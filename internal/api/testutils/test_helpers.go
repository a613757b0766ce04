package testutils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/nekoneko/seisan-server/internal/api"
	"github.com/nekoneko/seisan-server/internal/config"
	"github.com/nekoneko/seisan-server/internal/models"
	"github.com/nekoneko/seisan-server/internal/repository"
	"github.com/nekoneko/seisan-server/internal/service"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
)

// TestContext holds all dependencies for tests
type TestContext struct {
	Router      *gin.Engine
	Repository  repository.Repository
	Service     service.Service
	JWTSecret   []byte
	DB          *sqlx.DB
	TablePrefix string
	TestUserID  string
	TestUserJWT string
}

// SetupTestContext creates a new test context with initialized dependencies
func SetupTestContext(t *testing.T) *TestContext {
	// Load configuration from environment
	cfg := config.LoadConfig()

	// Override with test-specific config
	if cfg.Database.DBName == "seisan" && cfg.Database.TestDBName != "" {
		cfg.Database.DBName = cfg.Database.TestDBName
	} else if cfg.Database.TestDBName == "" {
		// Fallback to hardcoded test DB if not in environment
		cfg.Database.DBName = "seisan_test"
	}

	// Use a test JWT secret
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = "test-secret-key"
	}

	// Set up database
	db, err := config.SetupDatabase(cfg)
	assert.NoError(t, err, "Failed to set up test database")

	// Create repository
	prefix := cfg.TablePrefix()
	repo := repository.NewPostgresRepository(db, prefix)

	// Create service; notifications stay off in tests
	svc := service.NewDefaultService(repo, nil, cfg.Auth.JWTSecret)

	// Create API handler
	handler := api.NewHandler(svc, cfg.AppEnv)

	// Set up Gin router
	gin.SetMode(gin.TestMode)
	router := gin.Default()

	// Add middleware for JWT secret
	router.Use(func(c *gin.Context) {
		c.Set("jwtSecret", []byte(cfg.Auth.JWTSecret))
		c.Next()
	})

	// Set up routes
	handler.SetupRoutes(router)

	tc := &TestContext{
		Router:      router,
		Repository:  repo,
		Service:     svc,
		JWTSecret:   []byte(cfg.Auth.JWTSecret),
		DB:          db,
		TablePrefix: prefix,
	}

	cleanupTestDatabase(t, tc)

	tc.TestUserID, tc.TestUserJWT = CreateTestUser(t, tc, "testuser@example.com", "Test User")

	return tc
}

// CleanupTestContext cleans up test resources
func CleanupTestContext(tc *TestContext) {
	if tc.DB != nil {
		cleanupTestDatabase(nil, tc)
		tc.DB.Close()
	}
}

// cleanupTestDatabase removes any existing test data, children first
func cleanupTestDatabase(t *testing.T, tc *TestContext) {
	tables := []string{
		"payments",
		"recurring_rules",
		"couple_subscriptions",
		"monthly_invoices",
		"couples",
		"users",
	}
	for _, table := range tables {
		_, err := tc.DB.Exec(fmt.Sprintf("DELETE FROM %s%s", tc.TablePrefix, table))
		if t != nil && err != nil {
			t.Logf("Warning: Failed to clean %s%s: %v", tc.TablePrefix, table, err)
		}
	}
}

// CreateTestUser inserts a user and returns its id with a signed JWT
func CreateTestUser(t *testing.T, tc *TestContext, email, name string) (string, string) {
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("testpassword"), bcrypt.DefaultCost)

	user := &models.User{
		ID:        uuid.New().String(),
		Email:     email,
		Name:      name,
		Password:  string(hashedPassword),
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	err := tc.Repository.CreateUser(context.Background(), user)
	assert.NoError(t, err, "Failed to create test user")

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": user.ID,
		"exp": time.Now().Add(24 * time.Hour).Unix(),
		"iat": time.Now().Unix(),
	})

	tokenString, err := token.SignedString(tc.JWTSecret)
	assert.NoError(t, err, "Failed to generate JWT token")

	return user.ID, tokenString
}

// CreateTestCouple pairs the default test user with a freshly created
// partner and returns the partner's id and JWT. Pairing also opens the
// couple's first invoice.
func CreateTestCouple(t *testing.T, tc *TestContext) (string, string) {
	partnerEmail := fmt.Sprintf("partner-%s@example.com", uuid.New().String()[:8])
	partnerID, partnerJWT := CreateTestUser(t, tc, partnerEmail, "Test Partner")

	w := PerformRequest(tc.Router, "POST", "/api/couples",
		models.CreateCoupleRequest{PartnerEmail: partnerEmail},
		AuthHeaders(tc.TestUserJWT))
	assert.Equal(t, http.StatusCreated, w.Code, "Failed to create test couple: %s", w.Body.String())

	return partnerID, partnerJWT
}

// PerformRequest executes an HTTP request against the router
func PerformRequest(r http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer

	if body != nil {
		jsonBody, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBody)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// AuthHeaders returns headers with Authorization token
func AuthHeaders(token string) map[string]string {
	return map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", token),
	}
}
