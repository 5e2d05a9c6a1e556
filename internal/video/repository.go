package video

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// 本文件提供video模块的数据访问辅助函数。
// 所有函数都显式接收一个*gorm.DB，这样调用方可以传入事务句柄，
// 也可以直接传入全局的database.DB。

// GetVideoByID 按目录ID加载视频，找不到时返回gorm.ErrRecordNotFound
func GetVideoByID(db *gorm.DB, videoID string) (*Video, error) {
	var v Video
	if err := db.Where("video_id = ?", videoID).First(&v).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

// GetAdClickCountByAdID 按广告ID加载点击计数行
func GetAdClickCountByAdID(db *gorm.DB, adID string) (*AdClickCount, error) {
	var a AdClickCount
	if err := db.Where("ad_id = ?", adID).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// ListTagIDsOfVideo 返回一个视频当前持有的TagViewCount行的标签ID集合
func ListTagIDsOfVideo(db *gorm.DB, videoID string) ([]string, error) {
	var tagIDs []string
	err := db.Model(&TagViewCount{}).Where("video_id = ?", videoID).Pluck("tag_id", &tagIDs).Error
	if err != nil {
		return nil, err
	}
	return tagIDs, nil
}

// ListAdIDsOfVideo 返回一个视频当前持有的AdClickCount行的广告ID集合
func ListAdIDsOfVideo(db *gorm.DB, videoID string) ([]string, error) {
	var adIDs []string
	err := db.Model(&AdClickCount{}).Where("video_id = ?", videoID).Pluck("ad_id", &adIDs).Error
	if err != nil {
		return nil, err
	}
	return adIDs, nil
}

// UpsertTag 确保标签的本地镜像存在，已存在时刷新名称和类型。
// 目录事件内嵌了标签信息，未知标签按需落库而不是拒绝整个事件。
func UpsertTag(db *gorm.DB, tagID, tagName, tagType string) error {
	var existing Tag
	err := db.Where("tag_id = ?", tagID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.Create(&Tag{TagID: tagID, TagName: tagName, TagType: tagType}).Error
	}
	if err != nil {
		return err
	}

	if tagName != "" && (existing.TagName != tagName || existing.TagType != tagType) {
		existing.TagName = tagName
		existing.TagType = tagType
		return db.Save(&existing).Error
	}
	return nil
}

// DeleteVideoCascade 在一个事务中删除视频及其全部计数行。
// SQLite默认不开启外键级联，这里显式删除所有归属行。
// 视频不存在时静默返回nil：删除一个已经不存在的东西不算错误。
func DeleteVideoCascade(db *gorm.DB, videoID string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var v Video
		if err := tx.Where("video_id = ?", videoID).First(&v).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("无法加载待删除的视频 %s: %w", videoID, err)
		}

		if err := tx.Where("video_id = ?", videoID).Delete(&TagViewCount{}).Error; err != nil {
			return err
		}
		if err := tx.Where("video_id = ?", videoID).Delete(&AdClickCount{}).Error; err != nil {
			return err
		}
		if err := tx.Where("video_id = ?", videoID).Delete(&VideoViewCount{}).Error; err != nil {
			return err
		}
		if err := tx.Where("video_id = ?", videoID).Delete(&VideoLikeCount{}).Error; err != nil {
			return err
		}

		// 硬删除，保证同一VideoID之后可以被重新创建
		return tx.Unscoped().Delete(&v).Error
	})
}
