package catalog

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripvid/video-stats-backend/internal/platform/database"
	"github.com/tripvid/video-stats-backend/internal/statistics"
	"github.com/tripvid/video-stats-backend/internal/video"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB 打开一个测试专用的SQLite库并完成迁移。
// 死信发送被替换为本地记录器，测试可以断言哪些消息被放弃了。
func setupTestDB(t *testing.T) *[]string {
	t.Helper()

	dsn := fmt.Sprintf("file:%s/catalog_test.db?_busy_timeout=5000", t.TempDir())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	database.DB = db
	require.NoError(t, video.PrimeDB())
	require.NoError(t, statistics.PrimeDB())

	var deadLetters []string
	original := deadLetter
	deadLetter = func(reason string, payload []byte) {
		deadLetters = append(deadLetters, reason)
	}
	t.Cleanup(func() { deadLetter = original })

	return &deadLetters
}

func createVideoV1(t *testing.T) {
	t.Helper()
	HandleVideoCreate([]byte(`{
		"videoId": "v1",
		"videoName": "海岛民宿巡礼",
		"sellerId": "s1",
		"videoTags": [
			{"tagId": "t1", "tagName": "济州岛", "tagType": "region"},
			{"tagId": "t2", "tagName": "美食", "tagType": "theme"}
		],
		"videoAds": [{"adId": "a1"}]
	}`))
}

func TestHandleVideoCreateInitializesCounters(t *testing.T) {
	setupTestDB(t)
	createVideoV1(t)

	v, err := video.GetVideoByID(database.DB, "v1")
	require.NoError(t, err)
	assert.Equal(t, "海岛民宿巡礼", v.VideoName)
	assert.Equal(t, "s1", v.SellerID)

	var viewRow video.VideoViewCount
	require.NoError(t, database.DB.Where("video_id = ?", "v1").First(&viewRow).Error)
	assert.Equal(t, int64(0), viewRow.ViewCount)

	var likeRow video.VideoLikeCount
	require.NoError(t, database.DB.Where("video_id = ?", "v1").First(&likeRow).Error)
	assert.Equal(t, int64(0), likeRow.LikeCount)

	tagIDs, err := video.ListTagIDsOfVideo(database.DB, "v1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"t1", "t2"}, tagIDs)

	var adRow video.AdClickCount
	require.NoError(t, database.DB.Where("ad_id = ?", "a1").First(&adRow).Error)
	assert.Equal(t, "v1", adRow.VideoID)
	assert.Equal(t, int64(0), adRow.ClickCount)

	// 事件内嵌的标签信息被落成本地镜像
	var tag video.Tag
	require.NoError(t, database.DB.Where("tag_id = ?", "t1").First(&tag).Error)
	assert.Equal(t, "济州岛", tag.TagName)
	assert.Equal(t, video.TagTypeRegion, tag.TagType)
}

func TestHandleVideoCreateThenView(t *testing.T) {
	setupTestDB(t)
	createVideoV1(t)

	info, err := statistics.RecordView("v1", "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), info.ViewCount)

	// 同一用户再次观看：安全忽略，计数不变
	_, err = statistics.RecordView("v1", "u1")
	require.ErrorIs(t, err, statistics.ErrAlreadyActed)

	var viewRow video.VideoViewCount
	require.NoError(t, database.DB.Where("video_id = ?", "v1").First(&viewRow).Error)
	assert.Equal(t, int64(1), viewRow.ViewCount)
}

func TestHandleVideoCreateMalformedPayload(t *testing.T) {
	deadLetters := setupTestDB(t)

	HandleVideoCreate([]byte(`{not json`))

	var count int64
	require.NoError(t, database.DB.Model(&video.Video{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
	assert.Len(t, *deadLetters, 1)
}

func TestHandleVideoUpdateTagReconciliation(t *testing.T) {
	setupTestDB(t)
	createVideoV1(t)

	// 给t1积累一些观看量，对账后交集行的计数必须原样保留
	require.NoError(t, database.DB.Model(&video.TagViewCount{}).
		Where("video_id = ? AND tag_id = ?", "v1", "t1").
		UpdateColumn("view_count", 5).Error)

	// 目标集合 [t1, t3]：t2被删除，t3以0值新建，t1保持不动
	HandleVideoUpdate([]byte(`{
		"videoId": "v1",
		"videoTags": [
			{"tagId": "t1", "tagName": "济州岛", "tagType": "region"},
			{"tagId": "t3", "tagName": "购物", "tagType": "theme"}
		]
	}`))

	var rows []video.TagViewCount
	require.NoError(t, database.DB.Where("video_id = ?", "v1").Find(&rows).Error)
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.TagID] = row.ViewCount
	}
	assert.Equal(t, map[string]int64{"t1": 5, "t3": 0}, counts)
}

func TestHandleVideoUpdateAdReconciliation(t *testing.T) {
	setupTestDB(t)
	createVideoV1(t)

	// a1被移除（累计点击一并丢弃），a2以0值新建
	HandleVideoUpdate([]byte(`{
		"videoId": "v1",
		"videoAds": [{"adId": "a2"}]
	}`))

	adIDs, err := video.ListAdIDsOfVideo(database.DB, "v1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a2"}, adIDs)
}

func TestHandleVideoUpdateOmittedListsUntouched(t *testing.T) {
	setupTestDB(t)
	createVideoV1(t)

	// 缺失的字段表示"不要求变更"，标签和广告都不能动
	HandleVideoUpdate([]byte(`{"videoId": "v1", "videoName": "新标题"}`))

	tagIDs, err := video.ListTagIDsOfVideo(database.DB, "v1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"t1", "t2"}, tagIDs)

	adIDs, err := video.ListAdIDsOfVideo(database.DB, "v1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a1"}, adIDs)

	v, err := video.GetVideoByID(database.DB, "v1")
	require.NoError(t, err)
	assert.Equal(t, "新标题", v.VideoName)
}

func TestHandleVideoUpdateEmptyListDeletesAll(t *testing.T) {
	setupTestDB(t)
	createVideoV1(t)

	// 显式空列表和缺失不同：它要求删光
	HandleVideoUpdate([]byte(`{"videoId": "v1", "videoTags": []}`))

	tagIDs, err := video.ListTagIDsOfVideo(database.DB, "v1")
	require.NoError(t, err)
	assert.Empty(t, tagIDs)
}

func TestHandleVideoUpdateUnknownVideo(t *testing.T) {
	deadLetters := setupTestDB(t)

	HandleVideoUpdate([]byte(`{"videoId": "ghost", "videoName": "x"}`))

	assert.Len(t, *deadLetters, 1)
}

func TestHandleVideoDeleteCascades(t *testing.T) {
	setupTestDB(t)
	createVideoV1(t)

	HandleVideoDelete([]byte(`v1`))

	_, err := video.GetVideoByID(database.DB, "v1")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var count int64
	require.NoError(t, database.DB.Model(&video.TagViewCount{}).Where("video_id = ?", "v1").Count(&count).Error)
	assert.Equal(t, int64(0), count)
	require.NoError(t, database.DB.Model(&video.AdClickCount{}).Where("video_id = ?", "v1").Count(&count).Error)
	assert.Equal(t, int64(0), count)
	require.NoError(t, database.DB.Model(&video.VideoViewCount{}).Where("video_id = ?", "v1").Count(&count).Error)
	assert.Equal(t, int64(0), count)
	require.NoError(t, database.DB.Model(&video.VideoLikeCount{}).Where("video_id = ?", "v1").Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestHandleVideoDeleteUnknownVideoIsQuiet(t *testing.T) {
	deadLetters := setupTestDB(t)

	// 删除不存在的视频不报错也不进死信
	HandleVideoDelete([]byte(`ghost`))

	assert.Empty(t, *deadLetters)
}

func TestHandleVideoDeleteJSONStringPayload(t *testing.T) {
	setupTestDB(t)
	createVideoV1(t)

	HandleVideoDelete([]byte(`"v1"`))

	_, err := video.GetVideoByID(database.DB, "v1")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestVideoCanBeRecreatedAfterDelete(t *testing.T) {
	setupTestDB(t)
	createVideoV1(t)

	HandleVideoDelete([]byte(`v1`))
	createVideoV1(t)

	v, err := video.GetVideoByID(database.DB, "v1")
	require.NoError(t, err)
	assert.Equal(t, "海岛民宿巡礼", v.VideoName)

	// 台账在删除后保留，旧用户不能对重建的同ID视频重复计数
	_, err = statistics.RecordView("v1", "u1")
	require.NoError(t, err)
	_, err = statistics.RecordView("v1", "u1")
	require.ErrorIs(t, err, statistics.ErrAlreadyActed)
}
