package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/z26b/storefront/internal/config"
	"github.com/z26b/storefront/internal/logger"
	"github.com/z26b/storefront/internal/models"
	"github.com/z26b/storefront/internal/repository"
)

// 下单流水维护工具：查看最近记录、按保留期清理
func main() {
	var (
		session string
		state   string
		limit   int
		prune   bool
		days    int
	)
	flag.StringVar(&session, "session", "", "只查看指定会话键（如 oid:xxx）")
	flag.StringVar(&state, "state", "", "只查看指定状态（success / failed）")
	flag.IntVar(&limit, "limit", 20, "最多显示条数")
	flag.BoolVar(&prune, "prune", false, "清理超过保留期的已结束流水")
	flag.IntVar(&days, "days", 0, "保留天数，默认读取 checkout.journal_retention_days")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	db, err := models.OpenDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}, false)
	if err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}
	repo := repository.NewCheckoutAttemptRepository(db)

	if prune {
		retention := cfg.JournalRetention()
		if days > 0 {
			retention = time.Duration(days) * 24 * time.Hour
		}
		if retention <= 0 {
			stdLog.Fatalf("保留期未配置，使用 -days 指定")
		}
		removed, err := repo.DeleteFinishedBefore(time.Now().Add(-retention))
		if err != nil {
			stdLog.Fatalf("清理失败: %v", err)
		}
		fmt.Printf("已清理 %d 条流水（保留 %s）\n", removed, retention)
		return
	}

	rows, total, err := repo.List(repository.CheckoutAttemptFilter{
		Page:       1,
		PageSize:   limit,
		SessionKey: session,
		State:      state,
	})
	if err != nil {
		stdLog.Fatalf("查询失败: %v", err)
	}
	fmt.Printf("共 %d 条，显示 %d 条\n", total, len(rows))
	for _, row := range rows {
		fmt.Printf("%s  %-8s %-7s %-36s order=%s paid=%s trace=%s",
			row.StartedAt.Format(time.DateTime),
			row.Mode,
			row.State,
			row.SubmissionID,
			row.OrderID,
			row.PaidAmount.String(),
			row.Trace,
		)
		if row.ErrorKind != "" {
			fmt.Printf(" error=%s(%s)", row.ErrorKind, row.ErrorMessage)
		}
		fmt.Println()
	}
}
