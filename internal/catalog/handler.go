package catalog

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tripvid/video-stats-backend/internal/platform/database"
	"github.com/tripvid/video-stats-backend/internal/platform/messaging"
	"github.com/tripvid/video-stats-backend/internal/rank"
	"github.com/tripvid/video-stats-backend/internal/video"
	"gorm.io/gorm"
)

// 三个事件处理器共享同一套容错约定：
//   - 载荷解析失败或顶层步骤失败：记日志、送死信、放弃这条消息
//   - 内部子步骤失败：记日志后继续执行兄弟步骤（尽力而为收敛）
// 无论内部结果如何，消息最终都会被确认，消费不会因单条消息停摆。

// deadLetter 把无法处理的消息转发到死信主题，测试中可以替换。
// 死信发送本身失败时只记日志，仍然不会阻塞消费。
var deadLetter = func(reason string, payload []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := messaging.Publish(ctx, messaging.SubjectDeadLetter, payload); err != nil {
		slog.Error("死信投递失败", "reason", reason, "error", err)
		return
	}
	slog.Warn("消息已转入死信", "reason", reason)
}

// HandleVideoCreate 处理video-create事件。
// 先创建Video记录，然后执行四个彼此隔离的初始化步骤：
// 观看计数、点赞计数、每个标签一行、每条广告一行。
// 某个步骤失败不阻止其余步骤——部分统计好过丢掉整个视频记录。
func HandleVideoCreate(payload []byte) {
	p, err := parseCreatePayload(payload)
	if err != nil {
		slog.Error("丢弃无法解析的video-create消息", "error", err)
		deadLetter("malformed video-create", payload)
		return
	}

	db := database.DB

	v := video.Video{VideoID: p.VideoID, VideoName: p.VideoName, SellerID: p.SellerID}
	if err := db.Create(&v).Error; err != nil {
		slog.Error("创建视频记录失败", "videoId", p.VideoID, "error", err)
		deadLetter("video create failed", payload)
		return
	}

	if err := db.Create(&video.VideoViewCount{VideoID: p.VideoID}).Error; err != nil {
		slog.Error("创建观看计数行失败", "videoId", p.VideoID, "error", err)
	}

	if err := db.Create(&video.VideoLikeCount{VideoID: p.VideoID}).Error; err != nil {
		slog.Error("创建点赞计数行失败", "videoId", p.VideoID, "error", err)
	}

	if err := createTagRows(db, p.VideoID, p.VideoTags); err != nil {
		slog.Error("创建标签计数行失败", "videoId", p.VideoID, "error", err)
	}

	if err := createAdRows(db, p.VideoID, p.VideoAds); err != nil {
		slog.Error("创建广告计数行失败", "videoId", p.VideoID, "error", err)
	}
}

// HandleVideoUpdate 处理video-update事件。
// 视频不存在对这条消息是致命的（无法更新不存在的东西）；
// 之后的三个对账步骤各自吞掉自己的失败。
func HandleVideoUpdate(payload []byte) {
	p, err := parseUpdatePayload(payload)
	if err != nil {
		slog.Error("丢弃无法解析的video-update消息", "error", err)
		deadLetter("malformed video-update", payload)
		return
	}

	db := database.DB

	v, err := video.GetVideoByID(db, p.VideoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			slog.Error("收到未知视频的video-update消息", "videoId", p.VideoID)
		} else {
			slog.Error("加载视频失败", "videoId", p.VideoID, "error", err)
		}
		deadLetter("video-update target missing", payload)
		return
	}

	if err := reconcileAds(db, p.VideoID, p.VideoAds); err != nil {
		slog.Error("广告对账失败", "videoId", p.VideoID, "error", err)
	}

	if err := reconcileTags(db, p.VideoID, p.VideoTags); err != nil {
		slog.Error("标签对账失败", "videoId", p.VideoID, "error", err)
	}

	if err := updateVideoName(db, v, p.VideoName); err != nil {
		slog.Error("更新视频名称失败", "videoId", p.VideoID, "error", err)
	}
}

// HandleVideoDelete 处理video-delete事件。
// 删除视频及其全部计数行；删除不存在的视频不算失败，不值得重投。
func HandleVideoDelete(payload []byte) {
	videoID, err := parseDeletePayload(payload)
	if err != nil {
		slog.Error("丢弃无法解析的video-delete消息", "error", err)
		deadLetter("malformed video-delete", payload)
		return
	}

	db := database.DB

	// 删除前先把该视频贡献的标签观看量从排行榜中冲销
	var tagRows []video.TagViewCount
	if err := db.Where("video_id = ?", videoID).Find(&tagRows).Error; err == nil {
		for _, row := range tagRows {
			rank.ApplyTagDelta(db, row.TagID, -row.ViewCount)
		}
	}

	if err := video.DeleteVideoCascade(db, videoID); err != nil {
		slog.Error("删除视频失败", "videoId", videoID, "error", err)
	}
}

// createTagRows 为视频的每个标签补建本地标签镜像并创建零值计数行
func createTagRows(db *gorm.DB, videoID string, tags []TagInfo) error {
	for _, t := range tags {
		if t.TagID == "" {
			continue
		}
		if err := video.UpsertTag(db, t.TagID, t.TagName, t.TagType); err != nil {
			return err
		}
		if err := db.Create(&video.TagViewCount{VideoID: videoID, TagID: t.TagID}).Error; err != nil {
			return err
		}
	}
	return nil
}

// createAdRows 为视频的每条广告创建零值点击计数行
func createAdRows(db *gorm.DB, videoID string, ads []AdInfo) error {
	for _, a := range ads {
		if a.AdID == "" {
			continue
		}
		if err := db.Create(&video.AdClickCount{VideoID: videoID, AdID: a.AdID}).Error; err != nil {
			return err
		}
	}
	return nil
}

// reconcileAds 让视频的AdClickCount行集合与事件声明的广告集合一致。
// 算法是纯粹的集合对账：对当前集合与目标集合求对称差，先删后增。
// 被删除的行连同其累计点击数一起丢弃——广告从目录中移除即不复存在。
// 列表缺失(nil)时完全跳过，缺失绝不等于空列表。
func reconcileAds(db *gorm.DB, videoID string, ads []AdInfo) error {
	if ads == nil {
		return nil
	}

	incoming := make(map[string]bool, len(ads))
	for _, a := range ads {
		if a.AdID != "" {
			incoming[a.AdID] = true
		}
	}

	current, err := video.ListAdIDsOfVideo(db, videoID)
	if err != nil {
		return err
	}
	existing := make(map[string]bool, len(current))
	for _, id := range current {
		existing[id] = true
	}

	for _, id := range current {
		if !incoming[id] {
			if err := db.Where("ad_id = ?", id).Delete(&video.AdClickCount{}).Error; err != nil {
				return err
			}
		}
	}

	for _, a := range ads {
		if a.AdID == "" || existing[a.AdID] {
			continue
		}
		if err := db.Create(&video.AdClickCount{VideoID: videoID, AdID: a.AdID}).Error; err != nil {
			return err
		}
	}
	return nil
}

// reconcileTags 对(videoId,tagId)粒度的TagViewCount行执行与广告相同的集合对账。
// 保留交集行的累计计数；删除行时把它的贡献从排行榜中冲销。
func reconcileTags(db *gorm.DB, videoID string, tags []TagInfo) error {
	if tags == nil {
		return nil
	}

	incoming := make(map[string]bool, len(tags))
	for _, t := range tags {
		if t.TagID != "" {
			incoming[t.TagID] = true
		}
	}

	var currentRows []video.TagViewCount
	if err := db.Where("video_id = ?", videoID).Find(&currentRows).Error; err != nil {
		return err
	}
	existing := make(map[string]bool, len(currentRows))
	for _, row := range currentRows {
		existing[row.TagID] = true
	}

	for _, row := range currentRows {
		if !incoming[row.TagID] {
			err := db.Where("video_id = ? AND tag_id = ?", videoID, row.TagID).
				Delete(&video.TagViewCount{}).Error
			if err != nil {
				return err
			}
			rank.ApplyTagDelta(db, row.TagID, -row.ViewCount)
		}
	}

	for _, t := range tags {
		if t.TagID == "" || existing[t.TagID] {
			continue
		}
		if err := video.UpsertTag(db, t.TagID, t.TagName, t.TagType); err != nil {
			return err
		}
		if err := db.Create(&video.TagViewCount{VideoID: videoID, TagID: t.TagID}).Error; err != nil {
			return err
		}
	}
	return nil
}

// updateVideoName 在事件携带了新名称且与当前不同时更新视频名称
func updateVideoName(db *gorm.DB, v *video.Video, name *string) error {
	if name == nil || *name == v.VideoName {
		return nil
	}
	return db.Model(v).Update("video_name", *name).Error
}
