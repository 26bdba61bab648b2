package writer

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkflow-ai-api/internal/domain/entity"
)

// memContextCache 内存版读穿缓存
type memContextCache struct {
	entries map[string][]byte
	loads   int
}

func newMemContextCache() *memContextCache {
	return &memContextCache{entries: make(map[string][]byte)}
}

func (c *memContextCache) GetOrLoadSafe(_ context.Context, key string, _ time.Duration, loader func() (interface{}, error)) ([]byte, error) {
	if raw, ok := c.entries[key]; ok {
		return raw, nil
	}
	c.loads++
	data, err := loader()
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	c.entries[key] = raw
	return raw, nil
}

func (c *memContextCache) InvalidateProject(_ context.Context, projectID string) error {
	for key := range c.entries {
		if strings.Contains(key, projectID) {
			delete(c.entries, key)
		}
	}
	return nil
}

func TestRenderBlueprint(t *testing.T) {
	project := &entity.Project{
		Title:       "星辰之主",
		Description: "一个少年的成长故事",
		Blueprint: &entity.Blueprint{
			Genre:         "玄幻",
			Synopsis:      "少年获得神秘传承",
			MainCharacter: "林凡",
			Characters:    []string{"林凡", "苏瑶"},
			StyleGuide:    "热血爽文",
		},
	}

	out := RenderBlueprint(project)
	assert.Contains(t, out, "作品: 星辰之主")
	assert.Contains(t, out, "题材: 玄幻")
	assert.Contains(t, out, "主角: 林凡")
	assert.Contains(t, out, "林凡、苏瑶")
}

func TestRenderBlueprintNilBlueprint(t *testing.T) {
	project := &entity.Project{Title: "无蓝图"}
	assert.Equal(t, "作品: 无蓝图", RenderBlueprint(project))
}

func TestAssembleContext(t *testing.T) {
	repo := newMemChapterRepo()
	for n := 1; n <= 3; n++ {
		ch := entity.NewChapter("project-1", n)
		ch.Status = entity.ChapterStatusSuccessful
		ch.Title = "旧章"
		ch.Summary = "前情概述"
		ch.ContentText = "上一章的完整正文内容"
		require.NoError(t, repo.Create(context.Background(), ch))
	}

	assembler := NewContextAssembler(repo, nil, nil, nil)
	pctx, err := assembler.Assemble(context.Background(), &entity.Project{ID: "project-1", Title: "测试"}, 4, "大纲")
	require.NoError(t, err)

	assert.Contains(t, pctx.PreviousSummaries, "第1章")
	assert.Contains(t, pctx.PreviousSummaries, "第3章")
	assert.Contains(t, pctx.PreviousSummaries, "前情概述")
	assert.NotEmpty(t, pctx.LastChapterTail)
	// 向量检索未配置时降级为空
	assert.Empty(t, pctx.RetrievedContext)
}

func TestAssembleContextReadThroughCache(t *testing.T) {
	repo := newMemChapterRepo()
	ch := entity.NewChapter("project-1", 1)
	ch.Status = entity.ChapterStatusSuccessful
	ch.Summary = "前情概述"
	ch.ContentText = "第一章正文"
	require.NoError(t, repo.Create(context.Background(), ch))

	cache := newMemContextCache()
	assembler := NewContextAssembler(repo, nil, nil, cache)
	project := &entity.Project{ID: "project-1", Title: "测试"}

	first, err := assembler.Assemble(context.Background(), project, 2, "大纲")
	require.NoError(t, err)
	require.Equal(t, 1, cache.loads)

	// 命中缓存, 不重新组装
	second, err := assembler.Assemble(context.Background(), project, 2, "大纲")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.loads)
	assert.Equal(t, first.PreviousSummaries, second.PreviousSummaries)

	// 大纲变化后键值不同
	_, err = assembler.Assemble(context.Background(), project, 2, "改过的大纲")
	require.NoError(t, err)
	assert.Equal(t, 2, cache.loads)

	// 定稿失效后重新组装
	assembler.Invalidate(context.Background(), "project-1")
	_, err = assembler.Assemble(context.Background(), project, 2, "大纲")
	require.NoError(t, err)
	assert.Equal(t, 3, cache.loads)
}

func TestRenderVersionsForReview(t *testing.T) {
	versions := []*entity.ChapterVersion{
		{VersionIndex: 1, Provider: "openai", ContentText: "版本一正文"},
		{VersionIndex: 2, Provider: "deepseek", GenerateError: "timeout"},
		{VersionIndex: 3, Provider: "qwen", ContentText: "版本三正文"},
	}

	out := RenderVersionsForReview(versions)
	assert.Contains(t, out, "===== 版本 1 (openai) =====")
	assert.Contains(t, out, "===== 版本 3 (qwen) =====")
	// 失败版本不参与评审
	assert.NotContains(t, out, "deepseek")
}

func TestChunkByRunes(t *testing.T) {
	text := "一二三四五六七八九十"
	chunks := chunkByRunes(text, 4, 1)
	require.NotEmpty(t, chunks)
	assert.Equal(t, "一二三四", chunks[0])
	assert.Equal(t, "四五六七", chunks[1])

	assert.Equal(t, []string{text}, chunkByRunes(text, 20, 2))
	assert.Nil(t, chunkByRunes("  ", 4, 1))
}
