package statistics

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/tripvid/video-stats-backend/internal/platform/messaging"
)

// publishSnapshot 是实际的消息发送函数，测试中可以替换
var publishSnapshot = func(info *VideoCountInfo) error {
	payload, err := json.Marshal(info)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return messaging.Publish(ctx, messaging.SubjectStatisticsUpdated, payload)
}

// PropagateSnapshot 在每次成功的计数变更后向下游广播最新快照。
// 发送是fire-and-forget的：投递保证属于消息传输层，
// 失败只记日志，不影响已经提交的计数变更。
func PropagateSnapshot(info *VideoCountInfo) {
	if info == nil {
		return
	}
	if err := publishSnapshot(info); err != nil {
		slog.Warn("统计快照广播失败",
			"videoId", info.VideoID,
			"adId", info.AdID,
			"error", err)
	}
}
