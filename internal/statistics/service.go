package statistics

import (
	"errors"
	"fmt"

	"github.com/tripvid/video-stats-backend/internal/platform/database"
	"github.com/tripvid/video-stats-backend/internal/rank"
	"github.com/tripvid/video-stats-backend/internal/video"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 点赞动作的合法取值
const (
	ActionLike    = "like"
	ActionDislike = "dislike"
)

// RecordView 为一个(用户,视频)对记录一次观看。
// 台账写入和计数自增在同一个事务中完成：要么都生效，要么都不生效，
// 这是防止重复计数的根本保证。
func RecordView(videoID, userID string) (*VideoCountInfo, error) {
	var info *VideoCountInfo

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		// 锁定视频行，串行化同一视频上的并发计数操作
		if _, err := video.GetVideoByID(tx.Clauses(clause.Locking{Strength: "UPDATE"}), videoID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTargetNotFound
			}
			return fmt.Errorf("无法加载视频 %s: %w", videoID, err)
		}

		// 台账行是幂等检查的唯一事实来源：
		// 唯一索引冲突意味着该用户已经看过，此次请求安全忽略
		if err := tx.Create(&ViewLedger{UserID: userID, VideoID: videoID}).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyActed
			}
			return fmt.Errorf("写入观看台账失败: %w", err)
		}

		// 计数自增必须是SQL表达式级别的读改写，不能先读后写
		if err := incrementVideoViews(tx, videoID); err != nil {
			return err
		}

		// 视频的观看同时计入它名下所有标签的观看计数
		err := tx.Model(&video.TagViewCount{}).
			Where("video_id = ?", videoID).
			UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
		if err != nil {
			return fmt.Errorf("更新标签观看计数失败: %w", err)
		}

		snapshot, err := loadVideoSnapshot(tx, videoID)
		if err != nil {
			return err
		}
		info = snapshot
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 事务提交后把标签增量镜像到排行榜ZSET，尽力而为
	rank.MirrorVideoTagDeltas(database.DB, videoID, 1)

	return info, nil
}

// RecordLike 处理点赞(like)和取消点赞(dislike)。
// like在台账中插入一行并自增计数；dislike要求行已存在，删除它并自减计数。
func RecordLike(videoID, userID, action string) (*VideoCountInfo, error) {
	if action != ActionLike && action != ActionDislike {
		return nil, ErrInvalidAction
	}

	var info *VideoCountInfo

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := video.GetVideoByID(tx.Clauses(clause.Locking{Strength: "UPDATE"}), videoID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTargetNotFound
			}
			return fmt.Errorf("无法加载视频 %s: %w", videoID, err)
		}

		switch action {
		case ActionLike:
			if err := tx.Create(&LikeLedger{UserID: userID, VideoID: videoID}).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return ErrAlreadyActed
				}
				return fmt.Errorf("写入点赞台账失败: %w", err)
			}
			err := tx.Model(&video.VideoLikeCount{}).
				Where("video_id = ?", videoID).
				UpdateColumn("like_count", gorm.Expr("like_count + 1")).Error
			if err != nil {
				return fmt.Errorf("更新点赞计数失败: %w", err)
			}

		case ActionDislike:
			res := tx.Where("user_id = ? AND video_id = ?", userID, videoID).Delete(&LikeLedger{})
			if res.Error != nil {
				return fmt.Errorf("删除点赞台账失败: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return ErrNotYetActed
			}
			// MAX(...)保证计数永远不会降到0以下
			err := tx.Model(&video.VideoLikeCount{}).
				Where("video_id = ?", videoID).
				UpdateColumn("like_count", gorm.Expr("MAX(like_count - 1, 0)")).Error
			if err != nil {
				return fmt.Errorf("更新点赞计数失败: %w", err)
			}
		}

		snapshot, err := loadVideoSnapshot(tx, videoID)
		if err != nil {
			return err
		}
		info = snapshot
		return nil
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// RecordAdClick 为一个(用户,广告)对记录一次点击。
// 目标按广告ID定位，而不是按视频定位。
func RecordAdClick(adID, userID string) (*VideoCountInfo, error) {
	var info *VideoCountInfo

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		ad, err := video.GetAdClickCountByAdID(tx.Clauses(clause.Locking{Strength: "UPDATE"}), adID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTargetNotFound
			}
			return fmt.Errorf("无法加载广告 %s: %w", adID, err)
		}

		if err := tx.Create(&ClickLedger{UserID: userID, AdID: adID}).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyActed
			}
			return fmt.Errorf("写入点击台账失败: %w", err)
		}

		err = tx.Model(&video.AdClickCount{}).
			Where("ad_id = ?", adID).
			UpdateColumn("click_count", gorm.Expr("click_count + 1")).Error
		if err != nil {
			return fmt.Errorf("更新广告点击计数失败: %w", err)
		}

		var updated video.AdClickCount
		if err := tx.Where("ad_id = ?", adID).First(&updated).Error; err != nil {
			return fmt.Errorf("无法读取更新后的广告计数: %w", err)
		}

		info = &VideoCountInfo{
			AdID:       adID,
			VideoID:    ad.VideoID,
			ClickCount: updated.ClickCount,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// incrementVideoViews 对视频观看计数做原子自增。
// 计数行理论上随视频创建而存在，但创建事件的子步骤是尽力而为的，
// 行缺失时在这里补建，部分统计好过丢失统计。
func incrementVideoViews(tx *gorm.DB, videoID string) error {
	res := tx.Model(&video.VideoViewCount{}).
		Where("video_id = ?", videoID).
		UpdateColumn("view_count", gorm.Expr("view_count + 1"))
	if res.Error != nil {
		return fmt.Errorf("更新观看计数失败: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		if err := tx.Create(&video.VideoViewCount{VideoID: videoID, ViewCount: 1}).Error; err != nil {
			return fmt.Errorf("补建观看计数行失败: %w", err)
		}
	}
	return nil
}

// loadVideoSnapshot 在事务内读取视频的最新计数快照
func loadVideoSnapshot(tx *gorm.DB, videoID string) (*VideoCountInfo, error) {
	var viewRow video.VideoViewCount
	if err := tx.Where("video_id = ?", videoID).First(&viewRow).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("无法读取观看计数: %w", err)
		}
	}

	var likeRow video.VideoLikeCount
	if err := tx.Where("video_id = ?", videoID).First(&likeRow).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("无法读取点赞计数: %w", err)
		}
	}

	return &VideoCountInfo{
		VideoID:   videoID,
		ViewCount: viewRow.ViewCount,
		LikeCount: likeRow.LikeCount,
	}, nil
}
