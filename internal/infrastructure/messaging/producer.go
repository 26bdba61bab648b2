// Package messaging 提供消息队列实现
package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("messaging")

// Producer 消息生产者
type Producer struct {
	client *redis.Client
	maxLen int64
}

// NewProducer 创建消息生产者
func NewProducer(client *redis.Client, maxLen int64) *Producer {
	if maxLen <= 0 {
		maxLen = 100000
	}
	return &Producer{
		client: client,
		maxLen: maxLen,
	}
}

// Publish 发布消息到指定流
func (p *Producer) Publish(ctx context.Context, stream Stream, msg *Message) (string, error) {
	ctx, span := tracer.Start(ctx, "producer.Publish",
		trace.WithAttributes(
			attribute.String("stream", string(stream)),
			attribute.String("message.id", msg.ID),
			attribute.String("message.type", msg.Type),
		))
	defer span.End()

	data, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	result, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: string(stream),
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()

	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to publish message: %w", err)
	}

	span.SetAttributes(attribute.String("stream.message_id", result))
	return result, nil
}

// PublishRunEvent 发布连续创作运行事件
func (p *Producer) PublishRunEvent(ctx context.Context, ev *RunEventMessage) (string, error) {
	msg, err := NewMessage(ev.RunID, ev.Event, ev.ProjectID, ev)
	if err != nil {
		return "", err
	}

	if ev.ChapterNumber > 0 {
		msg.SetMetadata("chapter_number", fmt.Sprintf("%d", ev.ChapterNumber))
	}
	return p.Publish(ctx, StreamRunEvents, msg)
}

// PublishChapterIngest 发布章节向量摄取通知
func (p *Producer) PublishChapterIngest(ctx context.Context, ingest *ChapterIngestMessage) (string, error) {
	msg, err := NewMessage(ingest.ChapterID, "chapter_ingest", ingest.ProjectID, ingest)
	if err != nil {
		return "", err
	}

	msg.SetMetadata("chapter_number", fmt.Sprintf("%d", ingest.ChapterNumber))
	return p.Publish(ctx, StreamChapterIngest, msg)
}

// RunEventMessage 连续创作运行事件消息
type RunEventMessage struct {
	RunID         string                 `json:"run_id"`
	ProjectID     string                 `json:"project_id"`
	Event         string                 `json:"event"`
	ChapterNumber int                    `json:"chapter_number,omitempty"`
	Stage         string                 `json:"stage,omitempty"`
	Detail        map[string]interface{} `json:"detail,omitempty"`
}

// ChapterIngestMessage 章节向量摄取消息
type ChapterIngestMessage struct {
	ProjectID     string `json:"project_id"`
	ChapterID     string `json:"chapter_id"`
	ChapterNumber int    `json:"chapter_number"`
	Content       string `json:"content"`
	Summary       string `json:"summary,omitempty"`
}
