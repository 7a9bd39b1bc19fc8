package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"foreman/internal/dispatcher"
	"foreman/internal/memory"
	"foreman/internal/planner"
	"foreman/internal/tools"
)

// Phase tracks where a request is in its lifecycle. Failed is terminal
// for the request only; session state accumulated before the failure is
// preserved.
type Phase string

const (
	Idle         Phase = "idle"
	Planning     Phase = "planning"
	Executing    Phase = "executing"
	Synthesizing Phase = "synthesizing"
	Completed    Phase = "completed"
	Failed       Phase = "failed"
)

// SessionState is the mutable per-session record. It has no internal
// locking: the design assumes at most one in-flight Handle call per
// engine instance.
type SessionState struct {
	CurrentTask    string
	CompletedTasks []string
	PendingTasks   []string
	Context        map[string]any
}

func newSessionState() *SessionState {
	return &SessionState{Context: map[string]any{}}
}

// Response is the synthesized per-request summary.
type Response struct {
	Summary         string                  `json:"summary"`
	CodeChanges     []dispatcher.CodeChange `json:"code_changes"`
	TotalTasks      int                     `json:"total_tasks"`
	SuccessfulTasks int                     `json:"successful_tasks"`
}

// Result is what Handle returns. On failure Response is nil and
// TasksCompleted still reflects every task finished before the error.
type Result struct {
	Success        bool                 `json:"success"`
	Response       *Response            `json:"response,omitempty"`
	TasksCompleted []string             `json:"tasks_completed"`
	Artifacts      dispatcher.Artifacts `json:"artifacts"`
	Error          string               `json:"error,omitempty"`
}

// StateView is a read-only projection of the session.
type StateView struct {
	Phase          Phase          `json:"phase"`
	CurrentTask    string         `json:"current_task,omitempty"`
	CompletedTasks []string       `json:"completed_tasks"`
	PendingTasks   []string       `json:"pending_tasks"`
	MemorySize     int            `json:"memory_size"`
	Context        map[string]any `json:"context"`
}

// TaskPlanner produces an ordered task plan for a request.
type TaskPlanner interface {
	CreatePlan(ctx context.Context, request string, planCtx map[string]any) (planner.Plan, error)
}

// TaskRunner executes one task against the workspace collaborators.
type TaskRunner interface {
	Run(ctx context.Context, task string, taskCtx map[string]any) dispatcher.TaskResult
}

// Engine drives request handling: plan, execute each task in plan order,
// synthesize. Tasks run strictly sequentially; plan dependency edges and
// parallel markers are informational only.
type Engine struct {
	planner TaskPlanner
	runner  TaskRunner
	mem     *memory.Store
	reg     *tools.Registry
	state   *SessionState
	phase   Phase
	log     zerolog.Logger
}

type Option func(*Engine)

func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithRegistry attaches a tool registry for the ListTools/ExecuteTool
// surface.
func WithRegistry(reg *tools.Registry) Option {
	return func(e *Engine) { e.reg = reg }
}

func New(p TaskPlanner, r TaskRunner, mem *memory.Store, opts ...Option) *Engine {
	e := &Engine{
		planner: p,
		runner:  r,
		mem:     mem,
		state:   newSessionState(),
		phase:   Idle,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Handle processes one request end to end. A failing task does not abort
// the remaining plan; an error escaping the loop aborts the request but
// keeps the tasks already completed. Side effects of completed tasks are
// never rolled back.
func (e *Engine) Handle(ctx context.Context, request string) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			e.phase = Failed
			e.log.Error().Interface("panic", r).Msg("request failed")
			result = Result{
				Success:        false,
				Error:          fmt.Sprint(r),
				TasksCompleted: e.state.CompletedTasks,
			}
		}
	}()

	e.log.Info().Str("request", truncate(request, 100)).Msg("handling request")
	e.mem.AddInteraction("user", request, nil)

	e.phase = Planning
	plan, err := e.planner.CreatePlan(ctx, request, e.state.Context)
	if err != nil {
		e.phase = Failed
		e.log.Error().Err(err).Msg("planning failed")
		return Result{
			Success:        false,
			Error:          err.Error(),
			TasksCompleted: e.state.CompletedTasks,
		}
	}
	plan = planner.Optimize(plan)

	e.state.PendingTasks = append([]string{}, plan.Tasks...)

	e.phase = Executing
	results := make([]dispatcher.TaskResult, 0, len(plan.Tasks))
	for _, task := range plan.Tasks {
		e.state.CurrentTask = task
		e.log.Info().Str("task", task).Msg("executing task")

		res := e.runner.Run(ctx, task, e.state.Context)

		e.state.CompletedTasks = append(e.state.CompletedTasks, task)
		e.state.PendingTasks = removeFirst(e.state.PendingTasks, task)
		for k, v := range res.Context {
			e.state.Context[k] = v
		}

		results = append(results, res)
		e.mem.AddInteraction("assistant", "Completed: "+task, nil)
	}

	e.phase = Synthesizing
	response := synthesize(results)
	e.mem.AddInteraction("assistant", response.Summary, nil)

	e.phase = Completed
	return Result{
		Success:        true,
		Response:       &response,
		TasksCompleted: e.state.CompletedTasks,
		Artifacts:      collectArtifacts(results),
	}
}

// synthesize joins the summaries of successful results in task order and
// concatenates every change record without deduplication.
func synthesize(results []dispatcher.TaskResult) Response {
	resp := Response{TotalTasks: len(results)}
	summaries := []string{}
	for _, res := range results {
		if !res.Success {
			continue
		}
		resp.SuccessfulTasks++
		summary := res.Summary
		if summary == "" {
			summary = "Task completed"
		}
		summaries = append(summaries, summary)
		resp.CodeChanges = append(resp.CodeChanges, res.CodeChanges...)
	}
	resp.Summary = strings.Join(summaries, "\n")
	return resp
}

func collectArtifacts(results []dispatcher.TaskResult) dispatcher.Artifacts {
	var out dispatcher.Artifacts
	for _, res := range results {
		if res.Artifacts == nil {
			continue
		}
		out.FilesCreated = append(out.FilesCreated, res.Artifacts.FilesCreated...)
		out.FilesModified = append(out.FilesModified, res.Artifacts.FilesModified...)
		out.CommandsExecuted = append(out.CommandsExecuted, res.Artifacts.CommandsExecuted...)
		out.Errors = append(out.Errors, res.Artifacts.Errors...)
	}
	return out
}

// Reset replaces the session state and wipes memory entirely.
func (e *Engine) Reset() {
	e.state = newSessionState()
	e.phase = Idle
	e.mem.Clear()
	e.log.Info().Msg("session reset")
}

// State returns a read-only projection of the session.
func (e *Engine) State() StateView {
	ctxCopy := make(map[string]any, len(e.state.Context))
	for k, v := range e.state.Context {
		ctxCopy[k] = v
	}
	return StateView{
		Phase:          e.phase,
		CurrentTask:    e.state.CurrentTask,
		CompletedTasks: append([]string{}, e.state.CompletedTasks...),
		PendingTasks:   append([]string{}, e.state.PendingTasks...),
		MemorySize:     e.mem.InteractionCount(),
		Context:        ctxCopy,
	}
}

func (e *Engine) MemorySummary() memory.Summary {
	return e.mem.SummarizeSession()
}

func (e *Engine) SearchMemory(query, scope string) []memory.SearchResult {
	return e.mem.Search(query, scope)
}

func (e *Engine) ListTools() []tools.Info {
	if e.reg == nil {
		return nil
	}
	return e.reg.List()
}

func (e *Engine) ExecuteTool(ctx context.Context, name string, params json.RawMessage) (string, error) {
	if e.reg == nil {
		return "", fmt.Errorf("no tool registry configured")
	}
	return e.reg.Execute(ctx, name, params)
}

func (e *Engine) SaveMemory() error {
	return e.mem.Save()
}

func (e *Engine) LoadMemory() error {
	return e.mem.Load()
}

func removeFirst(tasks []string, task string) []string {
	for i, t := range tasks {
		if t == task {
			return append(tasks[:i], tasks[i+1:]...)
		}
	}
	return tasks
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
