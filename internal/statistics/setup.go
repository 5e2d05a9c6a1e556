package statistics

import (
	"fmt"

	"github.com/tripvid/video-stats-backend/internal/platform/database"
)

// PrimeDB 负责迁移statistics模块的台账表
func PrimeDB() error {
	err := database.DB.AutoMigrate(
		&ViewLedger{},
		&LikeLedger{},
		&ClickLedger{},
	)
	if err != nil {
		return fmt.Errorf("无法迁移台账表: %w", err)
	}
	fmt.Println("Statistics台账表迁移成功。")
	return nil
}
