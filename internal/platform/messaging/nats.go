package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/tripvid/video-stats-backend/internal/platform/config"
)

// 流和主题的命名约定：
//   - CATALOG流承载上游目录服务的视频生命周期事件和死信
//   - STATISTICS流承载本服务对外广播的统计快照
const (
	CatalogStreamName    = "CATALOG"
	StatisticsStreamName = "STATISTICS"

	SubjectVideoCreate = "catalog.video.create"
	SubjectVideoUpdate = "catalog.video.update"
	SubjectVideoDelete = "catalog.video.delete"
	SubjectDeadLetter  = "catalog.deadletter"

	SubjectStatisticsUpdated = "statistics.video.updated"
)

// maxDeliver 限制单条消息的最大投递次数，防止毒消息无限重投
const maxDeliver = 5

// Conn 是全局的NATS连接
var Conn *nats.Conn

// JS 是全局的JetStream上下文
var JS nats.JetStreamContext

// InitNats 连接NATS并初始化JetStream流。
// 流的创建是幂等的：已存在则更新配置。
func InitNats(cfg config.NatsConfig) error {
	conn, err := nats.Connect(
		cfg.URL,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.PingInterval(20*time.Second),
	)
	if err != nil {
		return fmt.Errorf("连接NATS失败: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return fmt.Errorf("创建JetStream上下文失败: %w", err)
	}

	streams := []*nats.StreamConfig{
		{
			Name:     CatalogStreamName,
			Subjects: []string{"catalog.>"},
			Storage:  nats.FileStorage,
			MaxAge:   7 * 24 * time.Hour,
		},
		{
			Name:     StatisticsStreamName,
			Subjects: []string{"statistics.>"},
			Storage:  nats.FileStorage,
			MaxAge:   24 * time.Hour,
		},
	}
	for _, sc := range streams {
		if err := ensureStream(js, sc); err != nil {
			conn.Close()
			return err
		}
	}

	Conn = conn
	JS = js
	fmt.Println("NATS JetStream 连接成功！")
	return nil
}

// ensureStream 创建或更新一个Stream
func ensureStream(js nats.JetStreamContext, cfg *nats.StreamConfig) error {
	_, err := js.StreamInfo(cfg.Name)
	if err == nats.ErrStreamNotFound {
		if _, err := js.AddStream(cfg); err != nil {
			return fmt.Errorf("创建Stream %s 失败: %w", cfg.Name, err)
		}
		return nil
	} else if err != nil {
		return fmt.Errorf("查询Stream %s 失败: %w", cfg.Name, err)
	}

	if _, err := js.UpdateStream(cfg); err != nil {
		return fmt.Errorf("更新Stream %s 失败: %w", cfg.Name, err)
	}
	return nil
}

// Publish 同步发送一条消息并等待PubAck。
// 每条消息携带一个随机的Msg-Id，JetStream可以据此去重。
func Publish(ctx context.Context, subject string, data []byte) error {
	if JS == nil {
		return fmt.Errorf("JetStream未初始化")
	}
	_, err := JS.Publish(subject, data, nats.Context(ctx), nats.MsgId(uuid.NewString()))
	if err != nil {
		return fmt.Errorf("发送消息到 %s 失败: %w", subject, err)
	}
	return nil
}

// QueueSubscribe 以Queue Group模式订阅一个主题。
// 手动ACK + 有限的MaxDeliver：消费回调自行决定何时确认。
func QueueSubscribe(subject, durable, queue string, handler nats.MsgHandler) (*nats.Subscription, error) {
	if JS == nil {
		return nil, fmt.Errorf("JetStream未初始化")
	}
	sub, err := JS.QueueSubscribe(
		subject,
		queue,
		handler,
		nats.Durable(durable),
		nats.ManualAck(),
		nats.AckWait(30*time.Second),
		nats.MaxDeliver(maxDeliver),
	)
	if err != nil {
		return nil, fmt.Errorf("订阅 %s 失败: %w", subject, err)
	}
	return sub, nil
}

// Close 断开NATS连接，先尽力把缓冲区中的消息送出去
func Close() {
	if Conn == nil {
		return
	}
	_ = Conn.Drain()
	Conn = nil
	JS = nil
}
