// Package main 初始化数据库结构与默认系统配置
package main

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/joho/godotenv"

	"inkflow-ai-api/internal/config"
	"inkflow-ai-api/internal/domain/entity"
	"inkflow-ai-api/internal/infrastructure/persistence/postgres"
)

func main() {
	_ = godotenv.Load()

	fmt.Println("Starting system bootstrap...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	pgClient, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		log.Fatalf("failed to init postgres: %v", err)
	}
	defer func() { _ = pgClient.Close() }()

	fmt.Println("Migrating database schema...")
	if err := pgClient.DB().WithContext(ctx).AutoMigrate(
		&entity.Project{},
		&entity.ChapterOutline{},
		&entity.Chapter{},
		&entity.ChapterVersion{},
		&entity.ChapterEvaluation{},
		&entity.SystemSetting{},
		&entity.LLMUsageEvent{},
	); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}

	// 默认分数线写入配置表, 已存在的键不覆盖
	settingRepo := postgres.NewSettingRepository(pgClient)
	defaults := map[string]int{
		entity.SettingScoreThresholdEarly:  cfg.Writer.ScoreThresholdEarly,
		entity.SettingScoreThresholdNormal: cfg.Writer.ScoreThresholdNormal,
		entity.SettingMaxRewriteAttempts:   cfg.Writer.MaxRewriteAttempts,
	}
	for key, value := range defaults {
		if _, err := settingRepo.Get(ctx, key); err == nil {
			fmt.Printf("Setting %s already exists, skipping.\n", key)
			continue
		}
		if err := settingRepo.Set(ctx, key, strconv.Itoa(value)); err != nil {
			log.Fatalf("failed to seed setting %s: %v", key, err)
		}
		fmt.Printf("Seeded setting %s = %d\n", key, value)
	}

	fmt.Println("Bootstrap completed successfully.")
}
