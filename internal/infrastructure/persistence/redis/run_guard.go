package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RunMode 创作运行模式
type RunMode string

const (
	RunModeManual RunMode = "manual"
	RunModeAuto   RunMode = "auto"
)

// RunLock 项目创作锁的持有信息
type RunLock struct {
	RunID     string    `json:"run_id"`
	Mode      RunMode   `json:"mode"`
	StartedAt time.Time `json:"started_at"`
}

// RunGuard 管理项目级创作互斥锁与停止标记
// 手动生成与自动连载互斥: 同一项目同一时刻最多一个运行
type RunGuard struct {
	client *Client
	ttl    time.Duration
}

// NewRunGuard 创建创作运行守卫
func NewRunGuard(client *Client, ttl time.Duration) *RunGuard {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RunGuard{client: client, ttl: ttl}
}

func runLockKey(projectID string) string {
	return fmt.Sprintf("writer:run:lock:%s", projectID)
}

func runStopKey(projectID string) string {
	return fmt.Sprintf("writer:run:stop:%s", projectID)
}

// acquireRetries SetNX 失败后锁又恰好过期时的重抢次数
const acquireRetries = 3

// Acquire 尝试获取项目创作锁, 已被占用时返回持有者信息和 false
// 锁在 SetNX 与读取持有者之间过期时重新抢占; 重试仍拿不到时持有者可能为 nil
func (g *RunGuard) Acquire(ctx context.Context, projectID, runID string, mode RunMode) (*RunLock, bool, error) {
	ctx, span := tracer.Start(ctx, "redis.RunGuard.Acquire",
		trace.WithAttributes(
			attribute.String("project_id", projectID),
			attribute.String("run.mode", string(mode)),
		))
	defer span.End()

	lock := RunLock{RunID: runID, Mode: mode, StartedAt: time.Now()}
	payload, err := json.Marshal(lock)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal run lock: %w", err)
	}

	for attempt := 0; attempt < acquireRetries; attempt++ {
		ok, err := g.client.rdb.SetNX(ctx, runLockKey(projectID), payload, g.ttl).Result()
		if err != nil {
			span.RecordError(err)
			return nil, false, fmt.Errorf("failed to acquire run lock: %w", err)
		}
		if ok {
			// 新的运行清掉残留的停止标记
			if err := g.client.rdb.Del(ctx, runStopKey(projectID)).Err(); err != nil {
				span.RecordError(err)
			}
			return &lock, true, nil
		}

		holder, err := g.Current(ctx, projectID)
		if err != nil {
			return nil, false, err
		}
		if holder != nil {
			return holder, false, nil
		}
	}
	return nil, false, nil
}

// Current 获取当前锁持有者, 无锁时返回 nil
func (g *RunGuard) Current(ctx context.Context, projectID string) (*RunLock, error) {
	ctx, span := tracer.Start(ctx, "redis.RunGuard.Current")
	defer span.End()

	raw, err := g.client.rdb.Get(ctx, runLockKey(projectID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read run lock: %w", err)
	}

	var lock RunLock
	if err := json.Unmarshal([]byte(raw), &lock); err != nil {
		return nil, fmt.Errorf("failed to parse run lock: %w", err)
	}
	return &lock, nil
}

// Refresh 续期锁, 仅当仍由 runID 持有时生效
func (g *RunGuard) Refresh(ctx context.Context, projectID, runID string) error {
	ctx, span := tracer.Start(ctx, "redis.RunGuard.Refresh")
	defer span.End()

	holder, err := g.Current(ctx, projectID)
	if err != nil {
		return err
	}
	if holder == nil || holder.RunID != runID {
		return nil
	}
	if err := g.client.rdb.Expire(ctx, runLockKey(projectID), g.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to refresh run lock: %w", err)
	}
	return nil
}

// Release 释放锁, 仅当仍由 runID 持有时生效
func (g *RunGuard) Release(ctx context.Context, projectID, runID string) error {
	ctx, span := tracer.Start(ctx, "redis.RunGuard.Release",
		trace.WithAttributes(attribute.String("project_id", projectID)))
	defer span.End()

	holder, err := g.Current(ctx, projectID)
	if err != nil {
		return err
	}
	if holder == nil || holder.RunID != runID {
		return nil
	}

	if err := g.client.rdb.Del(ctx, runLockKey(projectID), runStopKey(projectID)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to release run lock: %w", err)
	}
	return nil
}

// RequestStop 标记停止请求, 运行在章节边界检查并退出
func (g *RunGuard) RequestStop(ctx context.Context, projectID string) error {
	ctx, span := tracer.Start(ctx, "redis.RunGuard.RequestStop",
		trace.WithAttributes(attribute.String("project_id", projectID)))
	defer span.End()

	if err := g.client.rdb.Set(ctx, runStopKey(projectID), "1", g.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to set stop flag: %w", err)
	}
	return nil
}

// StopRequested 检查是否有停止请求
func (g *RunGuard) StopRequested(ctx context.Context, projectID string) (bool, error) {
	ctx, span := tracer.Start(ctx, "redis.RunGuard.StopRequested")
	defer span.End()

	n, err := g.client.rdb.Exists(ctx, runStopKey(projectID)).Result()
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("failed to check stop flag: %w", err)
	}
	return n > 0, nil
}
