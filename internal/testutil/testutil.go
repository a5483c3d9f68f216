// Package testutil 测试共用的存储夹具
package testutil

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/d60-Lab/chatsync/internal/model"
)

// NewDB 内存 sqlite；单连接，否则每个连接各是一个空库
func NewDB(tb testing.TB) *gorm.DB {
	tb.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		tb.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(model.All()...); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	return db
}

// NewRedis miniredis + 客户端
func NewRedis(tb testing.TB) (*miniredis.Miniredis, *redis.Client) {
	tb.Helper()
	mr := miniredis.RunT(tb)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	tb.Cleanup(func() { _ = client.Close() })
	return mr, client
}

// SeedUsers 以 id 作为用户名批量建用户
func SeedUsers(tb testing.TB, db *gorm.DB, ids ...string) []model.User {
	tb.Helper()
	users := make([]model.User, len(ids))
	for i, id := range ids {
		users[i] = model.User{ID: id, Username: id, DisplayName: id, Email: id + "@example.com"}
	}
	if len(users) > 0 {
		if err := db.Create(&users).Error; err != nil {
			tb.Fatalf("seed users: %v", err)
		}
	}
	return users
}
