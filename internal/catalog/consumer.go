package catalog

import (
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/tripvid/video-stats-backend/internal/platform/messaging"
	"github.com/tripvid/video-stats-backend/pkg/lifecycle"
)

// StartConsumer 订阅三类目录生命周期事件并启动消费。
// 每类事件一个durable consumer，同一Queue Group内的多个实例
// 按videoId无冲突地并行消费（对账的作用域就是单个视频）。
//
// 确认策略：处理函数跑完整个工作单元后无条件ACK。
// 内部步骤的失败大多不是瞬时的（坏载荷、未知视频），
// 无限重投只会卡住消费者，可观测性靠日志和死信主题保证。
func StartConsumer(handle *lifecycle.Handle, queue string) error {
	bindings := []struct {
		subject string
		durable string
		handler func([]byte)
	}{
		{messaging.SubjectVideoCreate, "catalog-video-create", HandleVideoCreate},
		{messaging.SubjectVideoUpdate, "catalog-video-update", HandleVideoUpdate},
		{messaging.SubjectVideoDelete, "catalog-video-delete", HandleVideoDelete},
	}

	subs := make([]*nats.Subscription, 0, len(bindings))
	for _, b := range bindings {
		handler := b.handler
		sub, err := messaging.QueueSubscribe(b.subject, b.durable, queue, func(msg *nats.Msg) {
			handler(msg.Data)
			if err := msg.Ack(); err != nil {
				slog.Warn("消息确认失败", "subject", msg.Subject, "error", err)
			}
		})
		if err != nil {
			// 已建立的订阅一并撤销，保持启动失败的干净现场
			for _, s := range subs {
				_ = s.Unsubscribe()
			}
			return fmt.Errorf("启动目录事件消费者失败: %w", err)
		}
		subs = append(subs, sub)
	}

	go func() {
		defer handle.Close()
		<-handle.Done()
		// 停机时先排空在途消息再退订
		for _, s := range subs {
			if err := s.Drain(); err != nil {
				slog.Warn("消费者排空失败", "error", err)
			}
		}
		slog.Info("目录事件消费者已停止")
	}()

	fmt.Println("目录事件消费者已启动。")
	return nil
}
