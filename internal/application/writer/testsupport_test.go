package writer

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"inkflow-ai-api/internal/config"
	"inkflow-ai-api/internal/domain/entity"
	"inkflow-ai-api/internal/domain/repository"
	"inkflow-ai-api/internal/infrastructure/llm"
	redisinfra "inkflow-ai-api/internal/infrastructure/persistence/redis"
	wfmodel "inkflow-ai-api/internal/workflow/model"
)

// --- 内存仓储 ---

type memChapterRepo struct {
	mu       sync.Mutex
	chapters map[string]*entity.Chapter // key: projectID/number
	nextID   int
}

func newMemChapterRepo() *memChapterRepo {
	return &memChapterRepo{chapters: make(map[string]*entity.Chapter)}
}

func chapterKey(projectID string, number int) string {
	return fmt.Sprintf("%s/%d", projectID, number)
}

func (r *memChapterRepo) Create(_ context.Context, chapter *entity.Chapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	if chapter.ID == "" {
		chapter.ID = fmt.Sprintf("chapter-%d", r.nextID)
	}
	r.chapters[chapterKey(chapter.ProjectID, chapter.ChapterNumber)] = chapter
	return nil
}

func (r *memChapterRepo) GetByID(_ context.Context, id string) (*entity.Chapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ch := range r.chapters {
		if ch.ID == id {
			return ch, nil
		}
	}
	return nil, nil
}

func (r *memChapterRepo) GetByNumber(_ context.Context, projectID string, number int) (*entity.Chapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.chapters[chapterKey(projectID, number)], nil
}

func (r *memChapterRepo) Update(_ context.Context, chapter *entity.Chapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chapters[chapterKey(chapter.ProjectID, chapter.ChapterNumber)] = chapter
	return nil
}

func (r *memChapterRepo) Delete(_ context.Context, id string) error { return nil }

func (r *memChapterRepo) ListByProject(_ context.Context, projectID string, _ *repository.ChapterFilter, _ repository.Pagination) (*repository.PagedResult[*entity.Chapter], error) {
	return &repository.PagedResult[*entity.Chapter]{}, nil
}

func (r *memChapterRepo) UpdateStatus(_ context.Context, id string, status entity.ChapterStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ch := range r.chapters {
		if ch.ID == id {
			ch.Status = status
		}
	}
	return nil
}

func (r *memChapterRepo) GetLatestSuccessful(_ context.Context, projectID string) (*entity.Chapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *entity.Chapter
	for _, ch := range r.chapters {
		if ch.ProjectID != projectID || ch.Status != entity.ChapterStatusSuccessful {
			continue
		}
		if latest == nil || ch.ChapterNumber > latest.ChapterNumber {
			latest = ch
		}
	}
	return latest, nil
}

func (r *memChapterRepo) GetRecentSummaries(_ context.Context, projectID string, beforeChapter, limit int) ([]*entity.Chapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Chapter
	for _, ch := range r.chapters {
		if ch.ProjectID == projectID && ch.ChapterNumber < beforeChapter && ch.Status == entity.ChapterStatusSuccessful {
			out = append(out, ch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChapterNumber > out[j].ChapterNumber })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memChapterRepo) NextChapterNumber(_ context.Context, projectID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	max := 0
	for _, ch := range r.chapters {
		if ch.ProjectID == projectID && ch.Status == entity.ChapterStatusSuccessful && ch.ChapterNumber > max {
			max = ch.ChapterNumber
		}
	}
	return max + 1, nil
}

type memVersionRepo struct {
	mu       sync.Mutex
	versions map[string][]*entity.ChapterVersion
	replaces int
}

func newMemVersionRepo() *memVersionRepo {
	return &memVersionRepo{versions: make(map[string][]*entity.ChapterVersion)}
}

func (r *memVersionRepo) ReplaceForAttempt(_ context.Context, chapterID string, attempt int, versions []*entity.ChapterVersion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replaces++
	stored := make([]*entity.ChapterVersion, len(versions))
	for i, v := range versions {
		c := *v
		c.ChapterID = chapterID
		c.Attempt = attempt
		stored[i] = &c
	}
	r.versions[chapterID] = stored
	return nil
}

func (r *memVersionRepo) ListByChapter(_ context.Context, chapterID string) ([]*entity.ChapterVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.versions[chapterID], nil
}

func (r *memVersionRepo) GetByIndex(_ context.Context, chapterID string, versionIndex int) (*entity.ChapterVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.versions[chapterID] {
		if v.VersionIndex == versionIndex {
			return v, nil
		}
	}
	return nil, nil
}

func (r *memVersionRepo) DeleteByChapter(_ context.Context, chapterID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.versions, chapterID)
	return nil
}

type memEvalRepo struct {
	mu    sync.Mutex
	evals map[string][]*entity.ChapterEvaluation
}

func newMemEvalRepo() *memEvalRepo {
	return &memEvalRepo{evals: make(map[string][]*entity.ChapterEvaluation)}
}

func (r *memEvalRepo) Create(_ context.Context, eval *entity.ChapterEvaluation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evals[eval.ChapterID] = append(r.evals[eval.ChapterID], eval)
	return nil
}

func (r *memEvalRepo) ListByChapter(_ context.Context, chapterID string) ([]*entity.ChapterEvaluation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.evals[chapterID], nil
}

func (r *memEvalRepo) GetLatest(_ context.Context, chapterID string) (*entity.ChapterEvaluation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	evals := r.evals[chapterID]
	if len(evals) == 0 {
		return nil, nil
	}
	return evals[len(evals)-1], nil
}

func (r *memEvalRepo) DeleteByChapter(_ context.Context, chapterID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.evals, chapterID)
	return nil
}

type memOutlineRepo struct {
	mu       sync.Mutex
	outlines map[string]*entity.ChapterOutline
}

func newMemOutlineRepo() *memOutlineRepo {
	return &memOutlineRepo{outlines: make(map[string]*entity.ChapterOutline)}
}

func (r *memOutlineRepo) put(projectID string, number int, content string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outlines[chapterKey(projectID, number)] = &entity.ChapterOutline{
		ID:            fmt.Sprintf("outline-%d", number),
		ProjectID:     projectID,
		ChapterNumber: number,
		Title:         fmt.Sprintf("第%d章", number),
		Content:       content,
	}
}

func (r *memOutlineRepo) Create(_ context.Context, outline *entity.ChapterOutline) error {
	r.put(outline.ProjectID, outline.ChapterNumber, outline.Content)
	return nil
}

func (r *memOutlineRepo) GetByNumber(_ context.Context, projectID string, number int) (*entity.ChapterOutline, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outlines[chapterKey(projectID, number)], nil
}

func (r *memOutlineRepo) Update(_ context.Context, outline *entity.ChapterOutline) error { return nil }
func (r *memOutlineRepo) Delete(_ context.Context, id string) error                      { return nil }

func (r *memOutlineRepo) ListByProject(_ context.Context, projectID string) ([]*entity.ChapterOutline, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.ChapterOutline
	for _, o := range r.outlines {
		if o.ProjectID == projectID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChapterNumber < out[j].ChapterNumber })
	return out, nil
}

func (r *memOutlineRepo) MaxChapterNumber(_ context.Context, projectID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	max := 0
	for _, o := range r.outlines {
		if o.ProjectID == projectID && o.ChapterNumber > max {
			max = o.ChapterNumber
		}
	}
	return max, nil
}

type memProjectRepo struct {
	mu       sync.Mutex
	projects map[string]*entity.Project
	words    int
}

func newMemProjectRepo(projects ...*entity.Project) *memProjectRepo {
	r := &memProjectRepo{projects: make(map[string]*entity.Project)}
	for _, p := range projects {
		r.projects[p.ID] = p
	}
	return r
}

func (r *memProjectRepo) Create(_ context.Context, project *entity.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.projects[project.ID] = project
	return nil
}

func (r *memProjectRepo) GetByID(_ context.Context, id string) (*entity.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.projects[id], nil
}

func (r *memProjectRepo) Update(_ context.Context, project *entity.Project) error { return nil }
func (r *memProjectRepo) Delete(_ context.Context, id string) error               { return nil }

func (r *memProjectRepo) List(_ context.Context, _ *repository.ProjectFilter, _ repository.Pagination) (*repository.PagedResult[*entity.Project], error) {
	return &repository.PagedResult[*entity.Project]{}, nil
}

func (r *memProjectRepo) UpdateStatus(_ context.Context, id string, status entity.ProjectStatus) error {
	return nil
}

func (r *memProjectRepo) AddWordCount(_ context.Context, id string, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.words += delta
	return nil
}

type memSettingRepo struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemSettingRepo() *memSettingRepo {
	return &memSettingRepo{values: make(map[string]string)}
}

func (r *memSettingRepo) Get(_ context.Context, key string) (*entity.SystemSetting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.values[key]; ok {
		return &entity.SystemSetting{Key: key, Value: v}, nil
	}
	return nil, fmt.Errorf("setting %s not found", key)
}

func (r *memSettingRepo) GetInt(_ context.Context, key string, fallback int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.values[key]; ok {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n, nil
		}
	}
	return fallback, nil
}

func (r *memSettingRepo) Set(_ context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = value
	return nil
}

func (r *memSettingRepo) List(_ context.Context, prefix string) ([]*entity.SystemSetting, error) {
	return nil, nil
}

// --- 运行锁与停止信号 ---

type fakeGuard struct {
	mu      sync.Mutex
	lock    *redisinfra.RunLock
	stopped bool
	// expireHolder 模拟抢锁失败且读取持有者时锁恰好过期
	expireHolder bool
}

func (g *fakeGuard) Acquire(_ context.Context, projectID, runID string, mode redisinfra.RunMode) (*redisinfra.RunLock, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.expireHolder {
		return nil, false, nil
	}
	if g.lock != nil {
		return g.lock, false, nil
	}
	g.lock = &redisinfra.RunLock{RunID: runID, Mode: mode}
	g.stopped = false
	return g.lock, true, nil
}

func (g *fakeGuard) Refresh(_ context.Context, projectID, runID string) error { return nil }

func (g *fakeGuard) Release(_ context.Context, projectID, runID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lock = nil
	return nil
}

func (g *fakeGuard) RequestStop(_ context.Context, projectID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopped = true
	return nil
}

func (g *fakeGuard) StopRequested(_ context.Context, projectID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stopped, nil
}

func (g *fakeGuard) Current(_ context.Context, projectID string) (*redisinfra.RunLock, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lock, nil
}

// --- 评审与摘要 ---

// scriptedJudge 按预定脚本给分, 分数指向 1 号版本
type scriptedJudge struct {
	mu     sync.Mutex
	scores []int
	calls  int
}

func (j *scriptedJudge) Evaluate(_ context.Context, in *wfmodel.ChapterEvaluateInput) (*entity.ChapterReviewResult, string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	in.Provider = "judge-prov"
	in.Model = "judge-model"
	idx := j.calls
	if idx >= len(j.scores) {
		idx = len(j.scores) - 1
	}
	j.calls++
	score := j.scores[idx]
	return &entity.ChapterReviewResult{
		BestChoice:      1,
		ReasonForChoice: "scripted",
		Versions: []entity.VersionReview{
			{VersionIndex: 1, Score: score, Cons: []string{fmt.Sprintf("第%d轮问题", j.calls)}},
			{VersionIndex: 2, Score: score - 10, Cons: []string{"次优"}},
		},
	}, "{}", nil
}

type fakeSummarizer struct{}

func (fakeSummarizer) Summarize(_ context.Context, chapterNumber int, _ string) (string, error) {
	return fmt.Sprintf("第%d章摘要", chapterNumber), nil
}

type fixedModels struct{ models []llm.WritingModel }

func (m fixedModels) WritingModels() ([]llm.WritingModel, error) { return m.models, nil }

// --- 服务组装 ---

type testEnv struct {
	service  *Service
	project  *entity.Project
	chapters *memChapterRepo
	versions *memVersionRepo
	evals    *memEvalRepo
	outlines *memOutlineRepo
	projects *memProjectRepo
	settings *memSettingRepo
	guard    *fakeGuard
	judge    *scriptedJudge
	drafter  *fakeDrafter
	cfg      *config.Config
}

func newTestEnv(scores ...int) *testEnv {
	project := &entity.Project{ID: "project-1", Title: "测试小说", Blueprint: &entity.Blueprint{Genre: "玄幻"}}

	env := &testEnv{
		project:  project,
		chapters: newMemChapterRepo(),
		versions: newMemVersionRepo(),
		evals:    newMemEvalRepo(),
		outlines: newMemOutlineRepo(),
		projects: newMemProjectRepo(project),
		settings: newMemSettingRepo(),
		guard:    &fakeGuard{},
		judge:    &scriptedJudge{scores: scores},
		drafter: &fakeDrafter{
			draft: func(wm llm.WritingModel, _ *wfmodel.ChapterWriteInput) (string, error) {
				return "初稿-" + wm.Provider, nil
			},
			revise: func(wm llm.WritingModel, _ *wfmodel.ChapterReviseInput) (string, error) {
				return "重写稿-" + wm.Provider, nil
			},
		},
		cfg: &config.Config{},
	}
	env.cfg.Writer.MinWords = 100
	env.cfg.Writer.MaxWords = 200
	env.cfg.Writer.ScoreThresholdEarly = 95
	env.cfg.Writer.ScoreThresholdNormal = 90
	env.cfg.Writer.MaxRewriteAttempts = 3
	env.cfg.Writer.OutlineGapPolicy = GapPolicyAbort

	env.service = NewService(ServiceDeps{
		Config:      env.cfg,
		ProjectRepo: env.projects,
		ChapterRepo: env.chapters,
		VersionRepo: env.versions,
		EvalRepo:    env.evals,
		OutlineRepo: env.outlines,
		SettingRepo: env.settings,
		Models:      fixedModels{models: testModels()},
		Drafter:     env.drafter,
		Judge:       env.judge,
		Summarizer:  fakeSummarizer{},
		Assembler:   NewContextAssembler(env.chapters, nil, nil, nil),
		Ingester:    NewIngester(nil, nil, nil),
		Guard:       env.guard,
	})
	return env
}

func (e *testEnv) newDriver() *Driver {
	return NewDriver(e.cfg, e.service, e.guard, e.outlines, e.projects, nil)
}

// seedCommitted 预置 1..upTo 章为已定稿, 供后续章节的前置校验通过
func (e *testEnv) seedCommitted(upTo int) {
	for n := 1; n <= upTo; n++ {
		sel := 1
		ch := entity.NewChapter(e.project.ID, n)
		ch.Title = fmt.Sprintf("第%d章", n)
		ch.SetContent(fmt.Sprintf("第%d章定稿内容", n))
		ch.Status = entity.ChapterStatusSuccessful
		ch.SelectedIndex = &sel
		_ = e.chapters.Create(context.Background(), ch)
	}
}
