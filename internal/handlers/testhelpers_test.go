package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/wizone/it-support-api/internal/auth"
	"github.com/wizone/it-support-api/internal/database"
	"github.com/wizone/it-support-api/internal/events"
	"github.com/wizone/it-support-api/internal/models"
	"github.com/wizone/it-support-api/internal/observability"
	"github.com/wizone/it-support-api/internal/repository"
	"github.com/wizone/it-support-api/internal/services"
)

const testPassword = "supersecret"

type apiTestEnv struct {
	db        *gorm.DB
	router    *gin.Engine
	metrics   *observability.Metrics
	users     *services.UserService
	customers *services.CustomerService
	tasks     *services.TaskService
	customer  *models.Customer
}

// setupAPITestEnv builds the router over an in-memory database. Options may
// replace router dependencies before the router is built.
func setupAPITestEnv(t *testing.T, opts ...func(*RouterDeps)) apiTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Customer{},
		&models.Task{},
		&models.TaskUpdate{},
	))
	database.SetDB(db)

	tokens := auth.NewTokenManager("test-secret", 60)
	userRepo := repository.NewUserRepository(db)
	customerRepo := repository.NewCustomerRepository(db)

	taskService := services.NewTaskService(services.TaskServiceDeps{
		Tasks:      repository.NewTaskRepository(db),
		Updates:    repository.NewTaskUpdateRepository(db),
		Users:      userRepo,
		Customers:  customerRepo,
		Dispatcher: events.NewInMemoryDispatcher(nil),
	})
	userService := services.NewUserService(userRepo, bcrypt.MinCost)
	customerService := services.NewCustomerService(customerRepo, tokens, bcrypt.MinCost)
	metrics := observability.NewMetrics()

	deps := RouterDeps{
		Metrics:           metrics,
		SessionStore:      cookie.NewStore([]byte("secret")),
		Tokens:            tokens,
		AuthService:       services.NewAuthService(userRepo, tokens),
		UserService:       userService,
		CustomerService:   customerService,
		TaskService:       taskService,
		AssignmentService: services.NewAssignmentService(taskService),
		TriageService:     services.NewTriageService(""),
	}
	for _, opt := range opts {
		opt(&deps)
	}
	router := NewRouter(deps)

	customer := &models.Customer{Name: "Acme Corp", ContactPerson: "Ravi", IsActive: true}
	require.NoError(t, db.Create(customer).Error)

	return apiTestEnv{
		db:        db,
		router:    router,
		metrics:   metrics,
		users:     userService,
		customers: customerService,
		tasks:     taskService,
		customer:  customer,
	}
}

func (env apiTestEnv) createUser(t *testing.T, username string, role models.UserRole) *models.User {
	t.Helper()
	user, err := env.users.CreateUser(context.Background(), services.CreateUserInput{
		Username:  username,
		Email:     fmt.Sprintf("%s@wizone.test", username),
		Password:  testPassword,
		FirstName: username,
		LastName:  "Tester",
		Role:      string(role),
	})
	require.NoError(t, err)
	return user
}

// request sends a JSON request through the router, carrying any cookies given.
func (env apiTestEnv) request(t *testing.T, method, url string, payload interface{}, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, url, &body)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func (env apiTestEnv) requestWithToken(t *testing.T, method, url, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, url, nil)
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

// login signs an employee in and returns the session cookies.
func (env apiTestEnv) login(t *testing.T, username string) []*http.Cookie {
	t.Helper()
	w := env.request(t, http.MethodPost, "/api/auth/login", map[string]string{
		"username": username,
		"password": testPassword,
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]interface{}](t, w)["code"].(string)
}
