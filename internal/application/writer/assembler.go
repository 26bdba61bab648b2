package writer

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/embedding"

	"inkflow-ai-api/internal/domain/entity"
	"inkflow-ai-api/internal/domain/repository"
	"inkflow-ai-api/internal/infrastructure/persistence/milvus"
	"inkflow-ai-api/internal/workflow/node"
	"inkflow-ai-api/pkg/logger"
)

const (
	// recentSummaryCount 注入提示词的前文摘要章数
	recentSummaryCount = 5
	// lastChapterTailRunes 上一章结尾节选长度
	lastChapterTailRunes = 800
	// retrievalTopK 向量召回条数
	retrievalTopK = 5
	// contextCacheTTL 组装结果缓存时长
	contextCacheTTL = 10 * time.Minute
)

// ContextAssembler 组装写作与评审提示词的上下文素材
// 向量检索是尽力而为的增强, 失败时降级为无召回
type ContextAssembler struct {
	chapterRepo repository.ChapterRepository
	vector      VectorStore
	embedder    embedding.Embedder
	cache       ContextCache
}

// NewContextAssembler 创建上下文组装器
func NewContextAssembler(chapterRepo repository.ChapterRepository, vector VectorStore, embedder embedding.Embedder, cache ContextCache) *ContextAssembler {
	return &ContextAssembler{
		chapterRepo: chapterRepo,
		vector:      vector,
		embedder:    embedder,
		cache:       cache,
	}
}

// Assemble 组装指定章节的上下文
// 生成与补评在短时间内会重复组装同一章, 结果走读穿缓存
func (a *ContextAssembler) Assemble(ctx context.Context, project *entity.Project, chapterNumber int, outline string) (*PromptContext, error) {
	if a.cache == nil {
		return a.build(ctx, project, chapterNumber, outline)
	}

	key := contextCacheKey(project.ID, chapterNumber, outline)
	raw, err := a.cache.GetOrLoadSafe(ctx, key, contextCacheTTL, func() (interface{}, error) {
		return a.build(ctx, project, chapterNumber, outline)
	})
	if err != nil {
		return nil, err
	}

	var pctx PromptContext
	if err := json.Unmarshal(raw, &pctx); err != nil {
		// 缓存内容损坏时降级为直接组装
		logger.Warn(ctx, "corrupt cached context, rebuilding",
			"project_id", project.ID,
			"chapter_number", chapterNumber,
			"error", err.Error(),
		)
		return a.build(ctx, project, chapterNumber, outline)
	}
	return &pctx, nil
}

// build 实际组装上下文素材
func (a *ContextAssembler) build(ctx context.Context, project *entity.Project, chapterNumber int, outline string) (*PromptContext, error) {
	pctx := &PromptContext{
		Blueprint: RenderBlueprint(project),
	}

	recents, err := a.chapterRepo.GetRecentSummaries(ctx, project.ID, chapterNumber, recentSummaryCount)
	if err != nil {
		return nil, err
	}
	pctx.PreviousSummaries = renderSummaries(recents)

	if last, err := a.chapterRepo.GetLatestSuccessful(ctx, project.ID); err == nil && last != nil {
		pctx.LastChapterTail = node.TailExcerpt(last.ContentText, lastChapterTailRunes)
	}

	pctx.RetrievedContext = a.retrieve(ctx, project.ID, chapterNumber, outline)
	return pctx, nil
}

// Invalidate 章节定稿后前文素材已变化, 清掉项目下全部缓存
func (a *ContextAssembler) Invalidate(ctx context.Context, projectID string) {
	if a.cache == nil {
		return
	}
	if err := a.cache.InvalidateProject(ctx, projectID); err != nil {
		logger.Warn(ctx, "failed to invalidate context cache",
			"project_id", projectID,
			"error", err.Error(),
		)
	}
}

// contextCacheKey 大纲内容参与键值, 大纲或写作提示变化时自然失效
func contextCacheKey(projectID string, chapterNumber int, outline string) string {
	h := fnv.New32a()
	h.Write([]byte(outline))
	return fmt.Sprintf("writer:ctx:%s:%d:%x", projectID, chapterNumber, h.Sum32())
}

// retrieve 按大纲内容做向量召回, 只召回本章之前的已定稿片段
func (a *ContextAssembler) retrieve(ctx context.Context, projectID string, chapterNumber int, outline string) string {
	if a.vector == nil || a.embedder == nil {
		return ""
	}
	query := strings.TrimSpace(outline)
	if query == "" {
		return ""
	}

	vectors, err := a.embedder.EmbedStrings(ctx, []string{query})
	if err != nil || len(vectors) == 0 {
		logger.Warn(ctx, "context retrieval embedding failed, skipping",
			"project_id", projectID,
			"chapter_number", chapterNumber,
			"error", errString(err),
		)
		return ""
	}

	results, err := a.vector.SearchChunks(ctx, &milvus.SearchParams{
		ProjectID:     projectID,
		QueryVector:   toFloat32(vectors[0]),
		TopK:          retrievalTopK,
		BeforeChapter: chapterNumber,
	})
	if err != nil {
		logger.Warn(ctx, "context retrieval search failed, skipping",
			"project_id", projectID,
			"chapter_number", chapterNumber,
			"error", err.Error(),
		)
		return ""
	}

	var b strings.Builder
	for _, r := range results {
		text := strings.TrimSpace(r.TextContent)
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "- (第%d章) %s\n", r.ChapterNumber, text)
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderBlueprint 把项目蓝图渲染为提示词素材
func RenderBlueprint(project *entity.Project) string {
	var b strings.Builder
	fmt.Fprintf(&b, "作品: %s\n", project.Title)
	if desc := strings.TrimSpace(project.Description); desc != "" {
		fmt.Fprintf(&b, "简介: %s\n", desc)
	}

	bp := project.Blueprint
	if bp == nil {
		return strings.TrimRight(b.String(), "\n")
	}
	if bp.Genre != "" {
		fmt.Fprintf(&b, "题材: %s\n", bp.Genre)
	}
	if bp.Synopsis != "" {
		fmt.Fprintf(&b, "故事梗概: %s\n", bp.Synopsis)
	}
	if bp.WorldSetting != "" {
		fmt.Fprintf(&b, "世界观设定: %s\n", bp.WorldSetting)
	}
	if bp.MainCharacter != "" {
		fmt.Fprintf(&b, "主角: %s\n", bp.MainCharacter)
	}
	if len(bp.Characters) > 0 {
		fmt.Fprintf(&b, "主要角色: %s\n", strings.Join(bp.Characters, "、"))
	}
	if bp.StyleGuide != "" {
		fmt.Fprintf(&b, "文风要求: %s\n", bp.StyleGuide)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderSummaries(chapters []*entity.Chapter) string {
	if len(chapters) == 0 {
		return ""
	}
	// 仓储按章节号倒序返回, 提示词按正序呈现
	var b strings.Builder
	for i := len(chapters) - 1; i >= 0; i-- {
		ch := chapters[i]
		summary := strings.TrimSpace(ch.Summary)
		if summary == "" {
			continue
		}
		title := strings.TrimSpace(ch.Title)
		if title != "" {
			fmt.Fprintf(&b, "第%d章《%s》: %s\n", ch.ChapterNumber, title, summary)
		} else {
			fmt.Fprintf(&b, "第%d章: %s\n", ch.ChapterNumber, summary)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}

func errString(err error) string {
	if err == nil {
		return "empty embedding result"
	}
	return err.Error()
}
