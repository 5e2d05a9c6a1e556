package rank

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripvid/video-stats-backend/internal/platform/database"
	"github.com/tripvid/video-stats-backend/internal/video"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB 打开测试库。RDB保持为nil，读取路径会走SQLite聚合兜底。
func setupTestDB(t *testing.T) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s/rank_test.db?_busy_timeout=5000", t.TempDir())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	database.DB = db
	database.RDB = nil
	require.NoError(t, video.PrimeDB())
}

func seedTagViews(t *testing.T, tagID, tagName, tagType string, views map[string]int64) {
	t.Helper()
	require.NoError(t, video.UpsertTag(database.DB, tagID, tagName, tagType))
	for videoID, count := range views {
		require.NoError(t, database.DB.Create(&video.TagViewCount{
			VideoID:   videoID,
			TagID:     tagID,
			ViewCount: count,
		}).Error)
	}
}

func TestGetTagRankByRegionAggregatesAcrossVideos(t *testing.T) {
	setupTestDB(t)

	seedTagViews(t, "r1", "济州岛", video.TagTypeRegion, map[string]int64{"v1": 3, "v2": 4})
	seedTagViews(t, "r2", "釜山", video.TagTypeRegion, map[string]int64{"v1": 5})
	seedTagViews(t, "th1", "美食", video.TagTypeTheme, map[string]int64{"v1": 100})

	entries, err := GetTagRank(video.TagTypeRegion)
	require.NoError(t, err)

	// 跨视频求和后降序排列，theme标签不掺进来
	require.Len(t, entries, 2)
	assert.Equal(t, TagRankEntry{TagID: "r1", TagName: "济州岛", ViewCount: 7}, entries[0])
	assert.Equal(t, TagRankEntry{TagID: "r2", TagName: "釜山", ViewCount: 5}, entries[1])
}

func TestGetTagRankByTheme(t *testing.T) {
	setupTestDB(t)

	seedTagViews(t, "th1", "美食", video.TagTypeTheme, map[string]int64{"v1": 2})
	seedTagViews(t, "th2", "购物", video.TagTypeTheme, map[string]int64{"v1": 9})

	entries, err := GetTagRank(video.TagTypeTheme)
	require.NoError(t, err)

	require.Len(t, entries, 2)
	assert.Equal(t, "th2", entries[0].TagID)
	assert.Equal(t, int64(9), entries[0].ViewCount)
}

func TestGetTagRankUnknownType(t *testing.T) {
	setupTestDB(t)

	_, err := GetTagRank("genre")
	require.Error(t, err)
}

func TestGetTagRankEmpty(t *testing.T) {
	setupTestDB(t)

	entries, err := GetTagRank(video.TagTypeRegion)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
