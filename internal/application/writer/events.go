package writer

// EventType 连续创作进度事件类型, 闭集
type EventType string

const (
	EventStart        EventType = "start"
	EventProgress     EventType = "progress"
	EventChapterDone  EventType = "chapter_done"
	EventChapterError EventType = "chapter_error"
	EventComplete     EventType = "complete"
	EventStopped      EventType = "stopped"
	EventError        EventType = "error"
)

// 进度事件的阶段标识
const (
	StageGenerating = "generating"
	StageEvaluating = "evaluating"
	StageRewriting  = "rewriting"
	StageSelecting  = "selecting"
	StageIngesting  = "ingesting"
)

// RunEvent 连续创作进度事件
type RunEvent struct {
	Type          EventType      `json:"type"`
	RunID         string         `json:"run_id"`
	ProjectID     string         `json:"project_id"`
	ChapterNumber int            `json:"chapter_number,omitempty"`
	Stage         string         `json:"stage,omitempty"`
	Score         int            `json:"score,omitempty"`
	Attempt       int            `json:"attempt,omitempty"`
	Completed     int            `json:"completed,omitempty"`
	Total         int            `json:"total,omitempty"`
	Message       string         `json:"message,omitempty"`
	Detail        map[string]any `json:"detail,omitempty"`
}

// EventSink 事件消费回调, 由 SSE 响应协程实现
// 回调必须非阻塞或自行缓冲, 驱动协程不等待慢消费者
type EventSink func(ev *RunEvent)

func nopSink(*RunEvent) {}
