package rank

import (
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/tripvid/video-stats-backend/internal/platform/database"
	"github.com/tripvid/video-stats-backend/internal/video"
	"gorm.io/gorm"
)

// Redis中的排行榜键：每个分组维度一个Sorted Set，member是tagId，
// score是该标签累计的观看次数
const (
	RegionRankingKey = "tag_rank:region"
	ThemeRankingKey  = "tag_rank:theme"
)

// rankingKeyForType 返回标签类型对应的排行榜键，未知类型返回空串
func rankingKeyForType(tagType string) string {
	switch tagType {
	case video.TagTypeRegion:
		return RegionRankingKey
	case video.TagTypeTheme:
		return ThemeRankingKey
	}
	return ""
}

// MirrorVideoTagDeltas 把一个视频名下所有标签的观看增量镜像到排行榜ZSET。
// 镜像是尽力而为的：SQLite中的计数才是事实来源，
// Redis不可用时跳过，等下次WarmupCache重建。
func MirrorVideoTagDeltas(db *gorm.DB, videoID string, delta int64) {
	if !database.IsRedisHealthy() {
		return
	}

	var rows []struct {
		TagID   string
		TagType string
	}
	err := db.Model(&video.TagViewCount{}).
		Select("tag_view_counts.tag_id, tags.tag_type").
		Joins("JOIN tags ON tags.tag_id = tag_view_counts.tag_id").
		Where("tag_view_counts.video_id = ?", videoID).
		Scan(&rows).Error
	if err != nil {
		slog.Warn("无法加载视频的标签用于排行榜镜像", "videoId", videoID, "error", err)
		return
	}

	pipe := database.RDB.Pipeline()
	for _, row := range rows {
		key := rankingKeyForType(row.TagType)
		if key == "" {
			continue
		}
		pipe.ZIncrBy(database.Ctx, key, float64(delta), row.TagID)
	}
	if _, err := pipe.Exec(database.Ctx); err != nil {
		slog.Warn("排行榜镜像写入失败", "videoId", videoID, "error", err)
	}
}

// ApplyTagDelta 对单个标签的排行榜分数施加增量。
// reconciler在删除标签计数行时用负增量冲销其累计分数。
func ApplyTagDelta(db *gorm.DB, tagID string, delta int64) {
	if delta == 0 || !database.IsRedisHealthy() {
		return
	}

	var tag video.Tag
	if err := db.Where("tag_id = ?", tagID).First(&tag).Error; err != nil {
		slog.Warn("无法加载标签用于排行榜镜像", "tagId", tagID, "error", err)
		return
	}
	key := rankingKeyForType(tag.TagType)
	if key == "" {
		return
	}
	if err := database.RDB.ZIncrBy(database.Ctx, key, float64(delta), tagID).Err(); err != nil {
		slog.Warn("排行榜镜像写入失败", "tagId", tagID, "error", err)
	}
}

// WarmupCache 从SQLite聚合标签观看总量，重建Redis中的排行榜ZSET。
// 应在启动时调用一次；Redis故障恢复后也可以再次调用。
func WarmupCache() error {
	totals, err := aggregateTagTotals(database.DB)
	if err != nil {
		return fmt.Errorf("无法从SQLite聚合标签观看数据: %w", err)
	}

	pipe := database.RDB.Pipeline()
	pipe.Del(database.Ctx, RegionRankingKey, ThemeRankingKey)
	for _, t := range totals {
		key := rankingKeyForType(t.TagType)
		if key == "" {
			continue
		}
		pipe.ZAdd(database.Ctx, key, redis.Z{Score: float64(t.ViewCount), Member: t.TagID})
	}
	if _, err := pipe.Exec(database.Ctx); err != nil {
		return fmt.Errorf("预热排行榜数据到Redis失败: %w", err)
	}

	fmt.Printf("成功预热 %d 个标签的排行榜数据到Redis。\n", len(totals))
	return nil
}
