package dispatcher

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"foreman/internal/tools"
)

// Artifacts collects the side effects a handler produced, in the order
// they happened.
type Artifacts struct {
	FilesCreated     []string `json:"files_created,omitempty"`
	FilesModified    []string `json:"files_modified,omitempty"`
	CommandsExecuted []string `json:"commands_executed,omitempty"`
	Errors           []string `json:"errors,omitempty"`
}

// CodeChange records one file-level edit made while handling a task.
type CodeChange struct {
	File   string `json:"file"`
	Action string `json:"action"`
	Lines  int    `json:"lines"`
}

// Issue is one flagged line found during analysis.
type Issue struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// Analysis aggregates a workspace scan. Issues holds at most the first
// ten flagged lines even when IssueCount is larger.
type Analysis struct {
	FileCount  int     `json:"file_count"`
	TotalLines int     `json:"total_lines"`
	IssueCount int     `json:"issue_count"`
	Issues     []Issue `json:"issues"`
}

// Fix is one candidate repair with a heuristic confidence score.
type Fix struct {
	File        string  `json:"file"`
	Line        int     `json:"line"`
	Original    string  `json:"original"`
	Fixed       string  `json:"fixed"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
}

// TaskResult is the uniform contract every handler returns. Context, when
// present, is merged into the session context by the caller.
type TaskResult struct {
	Success     bool              `json:"success"`
	Summary     string            `json:"summary,omitempty"`
	Context     map[string]any    `json:"context,omitempty"`
	Artifacts   *Artifacts        `json:"artifacts,omitempty"`
	CodeChanges []CodeChange      `json:"code_changes,omitempty"`
	TestOutput  *tools.TestResult `json:"test_results,omitempty"`
	Analysis    *Analysis         `json:"analysis,omitempty"`
	Fixes       []Fix             `json:"fixes,omitempty"`
	Error       string            `json:"error,omitempty"`
	Task        string            `json:"task,omitempty"`
}

// FileStore is the filesystem surface handlers need.
type FileStore interface {
	Read(path string) (string, error)
	Write(path, content string) error
	Search(pattern string) ([]string, error)
}

// Validator checks generated source for syntax errors.
type Validator interface {
	Validate(source string) tools.Validation
}

// Runner executes the test suite for one file path.
type Runner interface {
	Run(ctx context.Context, path string) tools.TestResult
}

type handlerFunc func(ctx context.Context, task string, taskCtx map[string]any) (TaskResult, error)

type route struct {
	name  string
	match func(string) bool
	run   handlerFunc
}

// Dispatcher routes a task description to one of five handlers by
// case-insensitive keyword match, first route wins. The route order is a
// fixed contract: test beats implement, implement beats analyze, analyze
// beats fix, and anything unmatched falls through to the generic handler.
type Dispatcher struct {
	files     FileStore
	validator Validator
	runner    Runner
	log       zerolog.Logger
	routes    []route
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger replaces the default no-op logger.
func WithLogger(log zerolog.Logger) Option {
	return func(d *Dispatcher) { d.log = log }
}

func New(files FileStore, validator Validator, runner Runner, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		files:     files,
		validator: validator,
		runner:    runner,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.routes = []route{
		{name: "test", match: anyKeyword("test"), run: d.runTest},
		{name: "implementation", match: anyKeyword("implement", "write"), run: d.runImplementation},
		{name: "analyze", match: anyKeyword("analyze"), run: d.runAnalyze},
		{name: "debug", match: anyKeyword("fix", "debug"), run: d.runDebug},
		{name: "generic", match: func(string) bool { return true }, run: d.runGeneric},
	}
	return d
}

func anyKeyword(keywords ...string) func(string) bool {
	return func(task string) bool {
		lower := strings.ToLower(task)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
		return false
	}
}

// Run dispatches one task. Handler errors and panics become failure
// results rather than propagating, so a bad task never aborts the plan.
func (d *Dispatcher) Run(ctx context.Context, task string, taskCtx map[string]any) (result TaskResult) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().Str("task", task).Interface("panic", r).Msg("handler panicked")
			result = TaskResult{Success: false, Error: fmt.Sprint(r), Task: task}
		}
	}()

	for _, rt := range d.routes {
		if !rt.match(task) {
			continue
		}
		d.log.Debug().Str("task", task).Str("handler", rt.name).Msg("dispatching")
		res, err := rt.run(ctx, task, taskCtx)
		if err != nil {
			d.log.Error().Err(err).Str("task", task).Str("handler", rt.name).Msg("handler failed")
			return TaskResult{Success: false, Error: err.Error(), Task: task}
		}
		return res
	}
	// unreachable, the generic route matches everything
	return TaskResult{Success: false, Error: "no handler matched", Task: task}
}

// HandlerFor reports which handler would receive the task.
func (d *Dispatcher) HandlerFor(task string) string {
	for _, rt := range d.routes {
		if rt.match(task) {
			return rt.name
		}
	}
	return "generic"
}
