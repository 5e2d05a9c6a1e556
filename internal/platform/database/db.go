package database

import (
	"fmt"
	"log"
	"os"

	"github.com/tripvid/video-stats-backend/internal/platform/config"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB 是一个全局的GORM实例，供项目其他部分使用
var DB *gorm.DB

// InitDB 初始化数据库连接
func InitDB(cfg config.SqliteConfig) {
	var err error

	// GORM日志配置
	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: 0,
			LogLevel:      logger.Silent, // 在生产环境中可以设为Silent
			Colorful:      true,
		},
	)

	// busy_timeout让并发写入在锁冲突时等待而不是立刻报错
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", cfg.Path)

	// 连接到SQLite数据库
	// TranslateError让唯一约束冲突映射为gorm.ErrDuplicatedKey，
	// 台账(ledger)的幂等检查依赖这个行为
	DB, err = gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         newLogger,
		TranslateError: true,
	})

	if err != nil {
		fmt.Println("连接数据库失败", err)
		panic(err)
	}

	fmt.Println("数据库连接成功！")
}
