package statistics

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripvid/video-stats-backend/internal/platform/database"
	"github.com/tripvid/video-stats-backend/internal/video"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB 打开一个测试专用的SQLite库并完成迁移
func setupTestDB(t *testing.T) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s/statistics_test.db?_busy_timeout=5000", t.TempDir())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	// SQLite同一时刻只允许一个写入者，测试里收紧连接池让并发走排队
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	database.DB = db
	require.NoError(t, video.PrimeDB())
	require.NoError(t, PrimeDB())
}

// seedVideo 直接落库一个带零值计数行的视频
func seedVideo(t *testing.T, videoID string, tagIDs ...string) {
	t.Helper()
	require.NoError(t, database.DB.Create(&video.Video{VideoID: videoID, VideoName: "视频" + videoID, SellerID: "s1"}).Error)
	require.NoError(t, database.DB.Create(&video.VideoViewCount{VideoID: videoID}).Error)
	require.NoError(t, database.DB.Create(&video.VideoLikeCount{VideoID: videoID}).Error)
	for _, tagID := range tagIDs {
		require.NoError(t, video.UpsertTag(database.DB, tagID, "标签"+tagID, video.TagTypeTheme))
		require.NoError(t, database.DB.Create(&video.TagViewCount{VideoID: videoID, TagID: tagID}).Error)
	}
}

func seedAd(t *testing.T, adID, videoID string) {
	t.Helper()
	require.NoError(t, database.DB.Create(&video.AdClickCount{AdID: adID, VideoID: videoID}).Error)
}

func TestRecordViewIdempotent(t *testing.T) {
	setupTestDB(t)
	seedVideo(t, "v1")

	info, err := RecordView("v1", "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), info.ViewCount)

	// 同一用户的第二次观看是安全忽略的空操作
	_, err = RecordView("v1", "u1")
	require.ErrorIs(t, err, ErrAlreadyActed)

	var row video.VideoViewCount
	require.NoError(t, database.DB.Where("video_id = ?", "v1").First(&row).Error)
	assert.Equal(t, int64(1), row.ViewCount)
}

func TestRecordViewIncrementsTagCounts(t *testing.T) {
	setupTestDB(t)
	seedVideo(t, "v1", "t1", "t2")

	_, err := RecordView("v1", "u1")
	require.NoError(t, err)

	var rows []video.TagViewCount
	require.NoError(t, database.DB.Where("video_id = ?", "v1").Find(&rows).Error)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, int64(1), row.ViewCount)
	}
}

func TestRecordViewUnknownVideo(t *testing.T) {
	setupTestDB(t)

	_, err := RecordView("missing", "u1")
	require.ErrorIs(t, err, ErrTargetNotFound)
}

func TestRecordViewConcurrentDistinctUsers(t *testing.T) {
	setupTestDB(t)
	seedVideo(t, "v1")

	const users = 8
	var wg sync.WaitGroup
	errCh := make(chan error, users)
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if _, err := RecordView("v1", fmt.Sprintf("u%d", n)); err != nil {
				errCh <- err
			}
		}(i)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		require.NoError(t, err)
	}

	var row video.VideoViewCount
	require.NoError(t, database.DB.Where("video_id = ?", "v1").First(&row).Error)
	assert.Equal(t, int64(users), row.ViewCount)
}

func TestRecordLikeToggle(t *testing.T) {
	setupTestDB(t)
	seedVideo(t, "v1")

	info, err := RecordLike("v1", "u1", ActionLike)
	require.NoError(t, err)
	assert.Equal(t, int64(1), info.LikeCount)

	// 重复like是空操作
	_, err = RecordLike("v1", "u1", ActionLike)
	require.ErrorIs(t, err, ErrAlreadyActed)

	// dislike撤销之前的like，计数回到原值
	info, err = RecordLike("v1", "u1", ActionDislike)
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.LikeCount)

	// 没有可撤销的like时dislike是空操作，计数不会变成负数
	_, err = RecordLike("v1", "u1", ActionDislike)
	require.ErrorIs(t, err, ErrNotYetActed)

	var row video.VideoLikeCount
	require.NoError(t, database.DB.Where("video_id = ?", "v1").First(&row).Error)
	assert.Equal(t, int64(0), row.LikeCount)
}

func TestRecordLikeInvalidAction(t *testing.T) {
	setupTestDB(t)
	seedVideo(t, "v1")

	_, err := RecordLike("v1", "u1", "favorite")
	require.ErrorIs(t, err, ErrInvalidAction)
}

func TestRecordLikeUnknownVideo(t *testing.T) {
	setupTestDB(t)

	_, err := RecordLike("missing", "u1", ActionLike)
	require.ErrorIs(t, err, ErrTargetNotFound)
}

func TestRecordAdClickIdempotent(t *testing.T) {
	setupTestDB(t)
	seedVideo(t, "v1")
	seedAd(t, "a1", "v1")

	info, err := RecordAdClick("a1", "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), info.ClickCount)
	assert.Equal(t, "v1", info.VideoID)

	_, err = RecordAdClick("a1", "u1")
	require.ErrorIs(t, err, ErrAlreadyActed)

	var row video.AdClickCount
	require.NoError(t, database.DB.Where("ad_id = ?", "a1").First(&row).Error)
	assert.Equal(t, int64(1), row.ClickCount)
}

func TestRecordAdClickUnknownAd(t *testing.T) {
	setupTestDB(t)

	_, err := RecordAdClick("missing", "u1")
	require.ErrorIs(t, err, ErrTargetNotFound)
}

func TestLedgersAreIndependentPerAction(t *testing.T) {
	setupTestDB(t)
	seedVideo(t, "v1")
	seedAd(t, "a1", "v1")

	// 同一个用户对同一目标的不同动作互不干扰
	_, err := RecordView("v1", "u1")
	require.NoError(t, err)
	_, err = RecordLike("v1", "u1", ActionLike)
	require.NoError(t, err)
	_, err = RecordAdClick("a1", "u1")
	require.NoError(t, err)

	var viewCount, likeCount int64
	require.NoError(t, database.DB.Model(&ViewLedger{}).Count(&viewCount).Error)
	require.NoError(t, database.DB.Model(&LikeLedger{}).Count(&likeCount).Error)
	assert.Equal(t, int64(1), viewCount)
	assert.Equal(t, int64(1), likeCount)
}

func TestPropagateSnapshotSwallowsPublishErrors(t *testing.T) {
	original := publishSnapshot
	defer func() { publishSnapshot = original }()

	publishSnapshot = func(info *VideoCountInfo) error {
		return errors.New("broker unavailable")
	}

	// 广播失败不应该panic或影响调用方
	PropagateSnapshot(&VideoCountInfo{VideoID: "v1", ViewCount: 1})
}
