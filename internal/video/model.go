package video

import (
	"time"

	"gorm.io/gorm"
)

// TagType 区分标签的归类维度，排行榜按它分组
const (
	TagTypeRegion = "region"
	TagTypeTheme  = "theme"
)

// Video 定义了本地维护的视频镜像记录。
// 它由上游目录服务的生命周期事件创建和删除，本服务不拥有视频的权威数据。
type Video struct {
	gorm.Model

	// VideoID 是目录服务分配的视频唯一字符串ID，业务逻辑中的主键
	VideoID string `gorm:"uniqueIndex;not null" json:"videoId"`

	// VideoName 是视频的展示名称
	VideoName string `json:"videoName"`

	// SellerID 是视频所属卖家的ID
	SellerID string `json:"sellerId"`
}

// Tag 定义了标签的本地镜像。
// 标签信息内嵌在目录事件中，遇到未知标签时按需落库。
type Tag struct {
	gorm.Model

	TagID   string `gorm:"uniqueIndex;not null" json:"tagId"`
	TagName string `json:"tagName"`
	// TagType 是"region"或"theme"
	TagType string `gorm:"index" json:"tagType"`
}

// VideoViewCount 是每个视频唯一的观看计数行，随视频创建时初始化为0
type VideoViewCount struct {
	ID        uint   `gorm:"primarykey"`
	VideoID   string `gorm:"uniqueIndex;not null"`
	ViewCount int64  `gorm:"not null;default:0"`
	UpdatedAt time.Time
}

// VideoLikeCount 是每个视频唯一的点赞计数行，永远不会低于0
type VideoLikeCount struct {
	ID        uint   `gorm:"primarykey"`
	VideoID   string `gorm:"uniqueIndex;not null"`
	LikeCount int64  `gorm:"not null;default:0"`
	UpdatedAt time.Time
}

// TagViewCount 是(视频,标签)粒度的观看计数行。
// 某个视频名下的行集合必须与目录声明的标签集合保持一致，由reconciler维护。
type TagViewCount struct {
	ID        uint   `gorm:"primarykey"`
	VideoID   string `gorm:"index:idx_tag_view_video_tag,unique;not null"`
	TagID     string `gorm:"index:idx_tag_view_video_tag,unique;not null"`
	ViewCount int64  `gorm:"not null;default:0"`
	UpdatedAt time.Time
}

// AdClickCount 是广告粒度的点击计数行，每条广告归属于唯一一个视频
type AdClickCount struct {
	ID         uint   `gorm:"primarykey"`
	AdID       string `gorm:"uniqueIndex;not null"`
	VideoID    string `gorm:"index;not null"`
	ClickCount int64  `gorm:"not null;default:0"`
	UpdatedAt  time.Time
}
