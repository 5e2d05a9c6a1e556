package video

import (
	"fmt"

	"github.com/tripvid/video-stats-backend/internal/platform/database"
)

// PrimeDB 负责迁移video模块的全部表结构
func PrimeDB() error {
	err := database.DB.AutoMigrate(
		&Video{},
		&Tag{},
		&VideoViewCount{},
		&VideoLikeCount{},
		&TagViewCount{},
		&AdClickCount{},
	)
	if err != nil {
		return fmt.Errorf("无法迁移video相关表: %w", err)
	}
	fmt.Println("Video数据库表迁移成功。")
	return nil
}
