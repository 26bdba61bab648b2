package model

// ChapterWriteInput 章节初稿生成输入
type ChapterWriteInput struct {
	Provider      string
	Model         string
	Temperature   *float32
	MaxTokens     *int
	ChapterNumber int
	Blueprint     string
	Outline       string

	// PreviousSummaries 前文章节摘要, 按章节号升序拼接
	PreviousSummaries string
	// LastChapterTail 上一章结尾节选
	LastChapterTail string
	// RetrievedContext 向量检索召回的相关情节
	RetrievedContext string

	MinWords int
	MaxWords int
}

// ChapterReviseInput 章节重写输入
// Weaknesses 为跨轮累积去重后的问题清单
type ChapterReviseInput struct {
	Provider      string
	Model         string
	Temperature   *float32
	MaxTokens     *int
	ChapterNumber int
	Blueprint     string
	Outline       string

	PreviousSummaries string
	// LastContentTail 本槽位上一稿的结尾节选
	LastContentTail string
	// Weaknesses 针对本槽位的问题清单文本
	Weaknesses string
	// Pros 针对本槽位需保留的优点文本
	Pros string

	MinWords int
	MaxWords int
}

// ChapterEvaluateInput 多版本评审输入
type ChapterEvaluateInput struct {
	Provider      string
	Model         string
	ChapterNumber int
	Blueprint     string
	Outline       string

	PreviousSummaries string
	// Versions 已编号拼接的候选版本文本
	Versions string
}

// ChapterSummaryInput 章节摘要输入
type ChapterSummaryInput struct {
	Provider      string
	ChapterNumber int
	Content       string
}
