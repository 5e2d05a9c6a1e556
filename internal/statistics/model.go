package statistics

import "time"

// 台账(ledger)表：每行是一个(用户,目标)对，行的存在本身就是
// "该用户已对该目标执行过此动作"的唯一事实来源。
// 三张表结构相同但语义独立，各自携带自己的唯一约束，
// 不合并成一张多态的动作表。

// ViewLedger 记录用户观看过的视频，只写入、不撤销
type ViewLedger struct {
	ID        uint   `gorm:"primarykey"`
	UserID    string `gorm:"index:idx_view_ledger_user_video,unique;not null"`
	VideoID   string `gorm:"index:idx_view_ledger_user_video,unique;not null"`
	CreatedAt time.Time
}

// LikeLedger 记录用户点赞过的视频。
// 与另外两张表不同，它是可逆的：dislike会删除对应的行。
type LikeLedger struct {
	ID        uint   `gorm:"primarykey"`
	UserID    string `gorm:"index:idx_like_ledger_user_video,unique;not null"`
	VideoID   string `gorm:"index:idx_like_ledger_user_video,unique;not null"`
	CreatedAt time.Time
}

// ClickLedger 记录用户点击过的广告，只写入、不撤销
type ClickLedger struct {
	ID        uint   `gorm:"primarykey"`
	UserID    string `gorm:"index:idx_click_ledger_user_ad,unique;not null"`
	AdID      string `gorm:"index:idx_click_ledger_user_ad,unique;not null"`
	CreatedAt time.Time
}

// VideoCountInfo 是每次成功的计数变更后返回的统一快照，
// 也是向下游广播的消息体
type VideoCountInfo struct {
	VideoID    string `json:"videoId,omitempty"`
	AdID       string `json:"adId,omitempty"`
	ViewCount  int64  `json:"viewCount"`
	LikeCount  int64  `json:"likeCount"`
	ClickCount int64  `json:"clickCount,omitempty"`
}
