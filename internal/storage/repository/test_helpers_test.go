package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/festiva/festiva/internal/migrations"
	"github.com/festiva/festiva/internal/models"
)

// TestDataFactory содержит методы для создания тестовых данных
type TestDataFactory struct {
	storage *Storage
}

// NewTestDataFactory создает новую фабрику тестовых данных
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreateProfile создает профиль пользователя
func (f *TestDataFactory) CreateProfile(t *testing.T, userID, fullName, email string) {
	_, err := f.storage.DB.Exec(`INSERT INTO profiles (user_id, full_name, email) VALUES ($1, $2, $3)`,
		userID, fullName, email)
	require.NoError(t, err)
}

// CreateSubscription создает запись подписки с заданным created_at
func (f *TestDataFactory) CreateSubscription(t *testing.T, userID string, plan models.Plan, status models.Status,
	paymentID *string, createdAt time.Time) string {
	var id string
	err := f.storage.DB.QueryRow(`INSERT INTO subscriptions
		(user_id, plan, status, payment_id, payment_provider, price_cents, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'abacatepay', 2990, $5, $5) RETURNING id`,
		userID, plan, status, paymentID, createdAt).Scan(&id)
	require.NoError(t, err)
	return id
}

// TestVerification содержит общие функции для проверки результатов тестов
type TestVerification struct {
	storage *Storage
}

// NewTestVerification создает новый объект для проверки результатов
func NewTestVerification(storage *Storage) *TestVerification {
	return &TestVerification{storage: storage}
}

// VerifySubscriptionStatus проверяет статус записи подписки
func (v *TestVerification) VerifySubscriptionStatus(t *testing.T, id string, expected models.Status) {
	var status string
	err := v.storage.DB.QueryRow("SELECT status FROM subscriptions WHERE id = $1", id).Scan(&status)
	require.NoError(t, err)
	require.Equal(t, string(expected), status)
}

func ptr(s string) *string {
	return &s
}

func newUserID() string {
	return uuid.New().String()
}

// setupTestDatabase создает тестовую БД с контейнером PostgreSQL и накатывает миграции
func setupTestDatabase(t *testing.T) (*Storage, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "testdb",
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		).WithDeadline(3 * time.Minute),
	}

	postgresContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start container")

	host, err := postgresContainer.Host(ctx)
	require.NoError(t, err)
	port, err := postgresContainer.MappedPort(ctx, "5432")
	require.NoError(t, err, "failed to get port")

	connStr := fmt.Sprintf("postgres://testuser:testpass@%s:%s/testdb?sslmode=disable", host, port.Port())

	var storage *Storage
	for range 10 {
		storage, err = New(ctx, connStr)
		if err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	require.NoError(t, err, "failed to create storage after retries")

	migrationsPath, err := filepath.Abs("../../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, migrationsPath), "failed to run migrations")

	cleanup := func() {
		if storage != nil {
			_ = storage.Close()
		}
		_ = postgresContainer.Terminate(ctx)
	}

	return storage, cleanup
}
