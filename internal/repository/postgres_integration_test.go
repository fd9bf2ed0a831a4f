//go:build integration
// +build integration

package repository

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/z26b/storefront/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupPostgresIntegrationDB 初始化 PostgreSQL 集成测试数据库。
func setupPostgresIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("skip postgres integration test: TEST_POSTGRES_DSN is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open postgres failed: %v", err)
	}
	_ = db.Migrator().DropTable(&models.CheckoutAttempt{})
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return db
}

func TestPostgresCheckoutAttemptRoundTrip(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewCheckoutAttemptRepository(db)

	attempt := &models.CheckoutAttempt{
		SubmissionID: "pg-sub-1",
		SessionKey:   "oid:pg",
		Mode:         "cart",
		State:        "submitting",
		StartedAt:    time.Now(),
	}
	if err := repo.Create(attempt); err != nil {
		t.Fatalf("create attempt failed: %v", err)
	}
	attempt.State = "success"
	attempt.OrderID = "order-pg"
	attempt.PaidAmount = models.NewMoneyFromMinor(3500)
	attempt.FinishedAt = time.Now()
	if err := repo.Update(attempt); err != nil {
		t.Fatalf("update attempt failed: %v", err)
	}

	got, err := repo.GetBySubmissionID("pg-sub-1")
	if err != nil || got == nil {
		t.Fatalf("get attempt failed: %v", err)
	}
	if got.State != "success" || got.PaidAmount.Minor() != 3500 {
		t.Fatalf("unexpected attempt: %+v", got)
	}
}
