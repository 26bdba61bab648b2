package writer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkflow-ai-api/internal/domain/entity"
	"inkflow-ai-api/internal/infrastructure/llm"
	wfmodel "inkflow-ai-api/internal/workflow/model"
	apperrors "inkflow-ai-api/pkg/errors"
)

type fakeDrafter struct {
	draft  func(wm llm.WritingModel, in *wfmodel.ChapterWriteInput) (string, error)
	revise func(wm llm.WritingModel, in *wfmodel.ChapterReviseInput) (string, error)
}

func (f *fakeDrafter) Draft(_ context.Context, wm llm.WritingModel, in *wfmodel.ChapterWriteInput) (string, error) {
	return f.draft(wm, in)
}

func (f *fakeDrafter) Revise(_ context.Context, wm llm.WritingModel, in *wfmodel.ChapterReviseInput) (string, error) {
	if f.revise == nil {
		return "", errors.New("unexpected revise call")
	}
	return f.revise(wm, in)
}

func testModels() []llm.WritingModel {
	return []llm.WritingModel{
		{Provider: "openai", Model: "gpt-5"},
		{Provider: "deepseek", Model: "deepseek-chat"},
		{Provider: "qwen", Model: "qwen-max"},
	}
}

func testRequest() *FanOutRequest {
	return &FanOutRequest{
		ChapterNumber: 1,
		Outline:       "第一章大纲",
		Context:       &PromptContext{Blueprint: "蓝图"},
		MinWords:      100,
		MaxWords:      200,
		Attempt:       1,
	}
}

func TestFanOutSlotOrderIndependentOfCompletion(t *testing.T) {
	// 第一个槽位最慢, 槽位顺序仍须与模型清单一致
	delays := map[string]time.Duration{"openai": 30 * time.Millisecond, "deepseek": 10 * time.Millisecond, "qwen": 1 * time.Millisecond}
	fo := NewFanOut(&fakeDrafter{
		draft: func(wm llm.WritingModel, _ *wfmodel.ChapterWriteInput) (string, error) {
			time.Sleep(delays[wm.Provider])
			return "content-" + wm.Provider, nil
		},
	})

	versions, err := fo.Generate(context.Background(), testModels(), testRequest())
	require.NoError(t, err)
	require.Len(t, versions, 3)

	assert.Equal(t, "openai", versions[0].Provider)
	assert.Equal(t, "deepseek", versions[1].Provider)
	assert.Equal(t, "qwen", versions[2].Provider)
	// 版本编号从 1 开始, 与模型清单的槽位一一对应
	for i, v := range versions {
		assert.Equal(t, i+1, v.VersionIndex)
		assert.Equal(t, "content-"+v.Provider, v.ContentText)
		assert.True(t, v.Succeeded())
	}
}

func TestFanOutPartialFailureTolerated(t *testing.T) {
	fo := NewFanOut(&fakeDrafter{
		draft: func(wm llm.WritingModel, _ *wfmodel.ChapterWriteInput) (string, error) {
			if wm.Provider == "deepseek" {
				return "", errors.New("timeout")
			}
			return "ok", nil
		},
	})

	versions, err := fo.Generate(context.Background(), testModels(), testRequest())
	require.NoError(t, err)
	require.Len(t, versions, 3)

	assert.True(t, versions[0].Succeeded())
	assert.False(t, versions[1].Succeeded())
	assert.Equal(t, "timeout", versions[1].GenerateError)
	assert.True(t, versions[2].Succeeded())
}

func TestFanOutAllFailed(t *testing.T) {
	fo := NewFanOut(&fakeDrafter{
		draft: func(wm llm.WritingModel, _ *wfmodel.ChapterWriteInput) (string, error) {
			return "", errors.New(wm.Provider + " down")
		},
	})

	versions, err := fo.Generate(context.Background(), testModels(), testRequest())
	require.Error(t, err)
	require.Len(t, versions, 3)

	appErr := apperrors.AsAppError(err)
	assert.Equal(t, apperrors.CodeGenerationFailed, appErr.Code)
	// 错误详情带有各提供商的失败摘要
	assert.Contains(t, appErr.Detail, "openai")
	assert.Contains(t, appErr.Detail, "deepseek")
	assert.Contains(t, appErr.Detail, "qwen")
}

func TestFanOutReviseUsesOwnPreviousVersion(t *testing.T) {
	fb := NewRewriteFeedback()
	fb.add(1, "节奏拖沓")
	fb.add(2, "结尾仓促")

	var revised []string
	fo := NewFanOut(&fakeDrafter{
		draft: func(wm llm.WritingModel, _ *wfmodel.ChapterWriteInput) (string, error) {
			// 上一轮失败的槽位重写初稿
			return "fresh-" + wm.Provider, nil
		},
		revise: func(wm llm.WritingModel, in *wfmodel.ChapterReviseInput) (string, error) {
			revised = append(revised, wm.Provider)
			assert.NotEmpty(t, in.Weaknesses)
			assert.NotEmpty(t, in.LastContentTail)
			return "revised-" + wm.Provider, nil
		},
	})

	req := testRequest()
	req.Attempt = 2
	req.Feedback = fb
	req.PrevVersions = []*entity.ChapterVersion{
		{VersionIndex: 1, Provider: "openai", ContentText: "第一稿结尾"},
		{VersionIndex: 2, Provider: "deepseek", ContentText: "另一稿结尾"},
		{VersionIndex: 3, Provider: "qwen", GenerateError: "timeout"},
	}

	versions, err := fo.Generate(context.Background(), testModels(), req)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"openai", "deepseek"}, revised)
	assert.Equal(t, "revised-openai", versions[0].ContentText)
	assert.Equal(t, "revised-deepseek", versions[1].ContentText)
	assert.Equal(t, "fresh-qwen", versions[2].ContentText)
}

func TestFanOutNoModels(t *testing.T) {
	fo := NewFanOut(&fakeDrafter{})
	_, err := fo.Generate(context.Background(), nil, testRequest())
	assert.Error(t, err)
}
