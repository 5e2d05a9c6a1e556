package rank

import (
	"fmt"

	"github.com/tripvid/video-stats-backend/internal/platform/database"
	"github.com/tripvid/video-stats-backend/internal/video"
	"gorm.io/gorm"
)

// rankLimit 限制排行榜返回的标签数量
const rankLimit = 50

// TagRankEntry 是排行榜中的一项
type TagRankEntry struct {
	TagID     string `json:"tagId"`
	TagName   string `json:"tagName"`
	ViewCount int64  `json:"viewCount"`
}

// tagTotal 是DB聚合查询的一行
type tagTotal struct {
	TagID     string
	TagName   string
	TagType   string
	ViewCount int64
}

// GetTagRank 返回指定分组维度下按观看总量降序排列的标签列表。
// 优先从Redis的ZSET读取，Redis不可用时回退到SQLite聚合，
// 两条路径读到的都是已提交的计数。
func GetTagRank(tagType string) ([]TagRankEntry, error) {
	if tagType != video.TagTypeRegion && tagType != video.TagTypeTheme {
		return nil, fmt.Errorf("未知的标签分组维度: %s", tagType)
	}

	if database.IsRedisHealthy() {
		entries, err := rankFromRedis(tagType)
		if err == nil {
			return entries, nil
		}
		// 读取失败时走DB兜底，不向调用方暴露Redis故障
	}

	return rankFromDB(database.DB, tagType)
}

// rankFromRedis 从排行榜ZSET读取，并用SQLite中的标签镜像补全名称
func rankFromRedis(tagType string) ([]TagRankEntry, error) {
	key := rankingKeyForType(tagType)

	zs, err := database.RDB.ZRevRangeWithScores(database.Ctx, key, 0, rankLimit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("无法从Redis读取排行榜: %w", err)
	}

	tagIDs := make([]string, 0, len(zs))
	for _, z := range zs {
		tagIDs = append(tagIDs, z.Member.(string))
	}

	names := make(map[string]string, len(tagIDs))
	if len(tagIDs) > 0 {
		var tags []video.Tag
		if err := database.DB.Where("tag_id IN ?", tagIDs).Find(&tags).Error; err != nil {
			return nil, fmt.Errorf("无法加载标签名称: %w", err)
		}
		for _, t := range tags {
			names[t.TagID] = t.TagName
		}
	}

	entries := make([]TagRankEntry, 0, len(zs))
	for _, z := range zs {
		tagID := z.Member.(string)
		entries = append(entries, TagRankEntry{
			TagID:     tagID,
			TagName:   names[tagID],
			ViewCount: int64(z.Score),
		})
	}
	return entries, nil
}

// rankFromDB 直接在SQLite上对标签观看计数做聚合排序
func rankFromDB(db *gorm.DB, tagType string) ([]TagRankEntry, error) {
	var totals []tagTotal
	err := db.Model(&video.TagViewCount{}).
		Select("tags.tag_id, tags.tag_name, tags.tag_type, SUM(tag_view_counts.view_count) AS view_count").
		Joins("JOIN tags ON tags.tag_id = tag_view_counts.tag_id").
		Where("tags.tag_type = ?", tagType).
		Group("tags.tag_id").
		Order("view_count DESC").
		Limit(rankLimit).
		Scan(&totals).Error
	if err != nil {
		return nil, fmt.Errorf("排行榜聚合查询失败: %w", err)
	}

	entries := make([]TagRankEntry, 0, len(totals))
	for _, t := range totals {
		entries = append(entries, TagRankEntry{
			TagID:     t.TagID,
			TagName:   t.TagName,
			ViewCount: t.ViewCount,
		})
	}
	return entries, nil
}

// aggregateTagTotals 聚合所有标签的观看总量，供WarmupCache重建ZSET
func aggregateTagTotals(db *gorm.DB) ([]tagTotal, error) {
	var totals []tagTotal
	err := db.Model(&video.TagViewCount{}).
		Select("tags.tag_id, tags.tag_name, tags.tag_type, SUM(tag_view_counts.view_count) AS view_count").
		Joins("JOIN tags ON tags.tag_id = tag_view_counts.tag_id").
		Group("tags.tag_id").
		Scan(&totals).Error
	if err != nil {
		return nil, err
	}
	return totals, nil
}
