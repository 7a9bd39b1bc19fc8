package repl

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"foreman/internal/engine"
)

// ErrInterrupted is returned by an Input when the user cancels the
// current line without ending the session.
var ErrInterrupted = errors.New("interrupted")

// Input reads one line at a time. io.EOF ends the session.
type Input interface {
	ReadLine(prompt string) (string, error)
	Close() error
}

// BasicInput is the fallback reader used when no line editor is
// available.
type BasicInput struct {
	reader *bufio.Reader
	out    io.Writer
}

func NewBasicInput(in io.Reader, out io.Writer) *BasicInput {
	return &BasicInput{reader: bufio.NewReader(in), out: out}
}

func (b *BasicInput) ReadLine(prompt string) (string, error) {
	if b.out != nil {
		fmt.Fprint(b.out, prompt)
	}
	line, err := b.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (b *BasicInput) Close() error { return nil }

var commands = []string{
	"/state    show session state",
	"/memory   show memory summary",
	"/search <query> [recent|facts|all]",
	"/tools    list registered tools",
	"/tool <name> <json-params>",
	"/save     snapshot memory to storage",
	"/load     restore memory from storage",
	"/reset    reset session and memory",
	"/help     show this list",
	"/exit     quit",
}

// REPL drives the interactive session against one engine.
type REPL struct {
	engine *engine.Engine
	input  Input
	out    io.Writer
	theme  Theme
	width  int
}

func New(e *engine.Engine, in Input, out io.Writer) *REPL {
	return &REPL{
		engine: e,
		input:  in,
		out:    out,
		theme:  DefaultTheme(),
		width:  100,
	}
}

// Run loops until EOF or /exit.
func (r *REPL) Run(ctx context.Context) error {
	r.printCommands()
	for {
		line, err := r.input.ReadLine("> ")
		if err != nil {
			if errors.Is(err, ErrInterrupted) {
				fmt.Fprintln(r.out)
				continue
			}
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(r.out, "exit")
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if exit := r.handleCommand(ctx, input); exit {
				return nil
			}
			continue
		}

		result := r.engine.Handle(ctx, input)
		r.printResult(result)
	}
}

// handleCommand returns true when the session should end.
func (r *REPL) handleCommand(ctx context.Context, input string) bool {
	fields := strings.Fields(input)
	switch fields[0] {
	case "/exit", "/quit":
		return true
	case "/help":
		r.printCommands()
	case "/state":
		r.printState()
	case "/memory":
		r.printMemorySummary()
	case "/search":
		if len(fields) < 2 {
			fmt.Fprintln(r.out, r.theme.Error.Render("usage: /search <query> [recent|facts|all]"))
			break
		}
		scope := "all"
		query := strings.Join(fields[1:], " ")
		if last := fields[len(fields)-1]; last == "recent" || last == "facts" || last == "all" {
			scope = last
			query = strings.Join(fields[1:len(fields)-1], " ")
		}
		r.printSearch(query, scope)
	case "/tools":
		r.printTools()
	case "/tool":
		if len(fields) < 2 {
			fmt.Fprintln(r.out, r.theme.Error.Render("usage: /tool <name> <json-params>"))
			break
		}
		params := "{}"
		if len(fields) > 2 {
			params = strings.Join(fields[2:], " ")
		}
		out, err := r.engine.ExecuteTool(ctx, fields[1], json.RawMessage(params))
		if err != nil {
			fmt.Fprintln(r.out, r.theme.Error.Render(fmt.Sprintf("tool failed: %v", err)))
			break
		}
		fmt.Fprintln(r.out, out)
	case "/save":
		if err := r.engine.SaveMemory(); err != nil {
			fmt.Fprintln(r.out, r.theme.Error.Render(fmt.Sprintf("save failed: %v", err)))
			break
		}
		fmt.Fprintln(r.out, r.theme.Success.Render("memory saved"))
	case "/load":
		if err := r.engine.LoadMemory(); err != nil {
			fmt.Fprintln(r.out, r.theme.Error.Render(fmt.Sprintf("load failed: %v", err)))
			break
		}
		fmt.Fprintln(r.out, r.theme.Success.Render("memory loaded"))
	case "/reset":
		r.engine.Reset()
		fmt.Fprintln(r.out, r.theme.Success.Render("session reset"))
	default:
		fmt.Fprintln(r.out, r.theme.Error.Render("unknown command: "+fields[0]))
	}
	return false
}

func (r *REPL) printCommands() {
	fmt.Fprintln(r.out, "commands:")
	for _, cmd := range commands {
		fmt.Fprintf(r.out, "  %s\n", cmd)
	}
}

func (r *REPL) printResult(result engine.Result) {
	if !result.Success {
		fmt.Fprintln(r.out, r.theme.Error.Render("request failed: "+result.Error))
		if len(result.TasksCompleted) > 0 {
			fmt.Fprintln(r.out, r.theme.Muted.Render(
				fmt.Sprintf("completed before failure: %s", strings.Join(result.TasksCompleted, ", "))))
		}
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Result (%d/%d tasks succeeded)\n\n", result.Response.SuccessfulTasks, result.Response.TotalTasks)
	if result.Response.Summary != "" {
		b.WriteString(result.Response.Summary)
		b.WriteString("\n")
	}
	if len(result.Response.CodeChanges) > 0 {
		b.WriteString("\n### Code changes\n\n")
		for _, change := range result.Response.CodeChanges {
			fmt.Fprintf(&b, "- `%s` (%s, %d lines)\n", change.File, change.Action, change.Lines)
		}
	}
	fmt.Fprintln(r.out, RenderMarkdown(b.String(), r.width))
}

func (r *REPL) printState() {
	state := r.engine.State()
	var b strings.Builder
	fmt.Fprintf(&b, "phase: %s\n", state.Phase)
	if state.CurrentTask != "" {
		fmt.Fprintf(&b, "current task: %s\n", state.CurrentTask)
	}
	fmt.Fprintf(&b, "completed: %d  pending: %d  memory: %d interactions\n",
		len(state.CompletedTasks), len(state.PendingTasks), state.MemorySize)
	for _, task := range state.CompletedTasks {
		fmt.Fprintf(&b, "  done  %s\n", task)
	}
	for _, task := range state.PendingTasks {
		fmt.Fprintf(&b, "  todo  %s\n", task)
	}
	fmt.Fprint(r.out, b.String())
}

func (r *REPL) printMemorySummary() {
	summary := r.engine.MemorySummary()
	fmt.Fprintf(r.out, "interactions: %d  files: %d  functions: %d  classes: %d  errors: %d\n",
		summary.TotalInteractions, summary.FilesMentioned, summary.FunctionsDefined,
		summary.ClassesDefined, summary.ErrorsEncountered)
	if summary.SessionStart != "" {
		fmt.Fprintln(r.out, r.theme.Muted.Render(
			fmt.Sprintf("from %s to %s", summary.SessionStart, summary.LastInteraction)))
	}
}

func (r *REPL) printSearch(query, scope string) {
	results := r.engine.SearchMemory(query, scope)
	if len(results) == 0 {
		fmt.Fprintln(r.out, r.theme.Muted.Render("no matches"))
		return
	}
	for _, res := range results {
		switch res.Origin {
		case "recent":
			fmt.Fprintf(r.out, "[recent] %s: %s\n", res.Interaction.Role, res.Interaction.Content)
		default:
			fmt.Fprintf(r.out, "[fact] %s\n", res.Key)
		}
	}
}

func (r *REPL) printTools() {
	infos := r.engine.ListTools()
	if len(infos) == 0 {
		fmt.Fprintln(r.out, r.theme.Muted.Render("no tools registered"))
		return
	}
	for _, info := range infos {
		fmt.Fprintf(r.out, "  %-12s %s\n", info.Name, info.Description)
	}
}
