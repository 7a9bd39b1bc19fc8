package dispatcher

import (
	"context"
	"fmt"
	"strings"
)

func (d *Dispatcher) runImplementation(_ context.Context, task string, _ map[string]any) (TaskResult, error) {
	code := templateFor(task)
	path := pathFor(task)

	if err := d.files.Write(path, code); err != nil {
		return TaskResult{}, fmt.Errorf("write %s: %w", path, err)
	}

	validation := d.validator.Validate(code)
	res := TaskResult{
		Success: validation.Valid,
		Summary: "Implemented " + path,
		CodeChanges: []CodeChange{{
			File:   path,
			Action: "created",
			Lines:  len(strings.Split(code, "\n")),
		}},
		Artifacts: &Artifacts{FilesCreated: []string{path}},
		Context: map[string]any{
			"last_file":   path,
			"last_action": "implement",
		},
	}
	if !validation.Valid {
		res.Error = strings.Join(validation.Errors, "; ")
	}
	return res, nil
}

func (d *Dispatcher) runTest(ctx context.Context, _ string, _ map[string]any) (TaskResult, error) {
	if err := d.files.Write(generatedTestPath, testTemplate); err != nil {
		return TaskResult{}, fmt.Errorf("write %s: %w", generatedTestPath, err)
	}

	out := d.runner.Run(ctx, generatedTestPath)

	summary := "Tests failed"
	if out.Passed {
		summary = "Tests passed"
	}
	return TaskResult{
		Success:    out.Passed,
		Summary:    summary,
		TestOutput: &out,
		Artifacts: &Artifacts{
			FilesCreated:     []string{generatedTestPath},
			CommandsExecuted: []string{out.Command},
		},
	}, nil
}

func (d *Dispatcher) runAnalyze(_ context.Context, _ string, _ map[string]any) (TaskResult, error) {
	paths, err := d.files.Search("*.go")
	if err != nil {
		return TaskResult{}, fmt.Errorf("search sources: %w", err)
	}

	analysis := &Analysis{FileCount: len(paths), Issues: []Issue{}}
	for _, path := range paths {
		content, err := d.files.Read(path)
		if err != nil {
			d.log.Warn().Err(err).Str("file", path).Msg("skipping unreadable file")
			continue
		}
		lines := strings.Split(content, "\n")
		analysis.TotalLines += len(lines)
		for i, line := range lines {
			if strings.Contains(line, "TODO") {
				analysis.IssueCount++
				if len(analysis.Issues) < 10 {
					analysis.Issues = append(analysis.Issues, Issue{
						File:    path,
						Line:    i + 1,
						Message: strings.TrimSpace(line),
					})
				}
			}
		}
	}

	return TaskResult{
		Success:  true,
		Summary:  "Code analysis completed",
		Analysis: analysis,
		Context: map[string]any{
			"files_analyzed": analysis.FileCount,
			"issues_found":   analysis.IssueCount,
		},
	}, nil
}

// discardMarker is the pattern the debug handler hunts for: an error
// value silently thrown away.
const (
	discardMarker = "_ = err"
	discardFix    = "return err"
)

type bugSite struct {
	file        string
	line        int
	description string
}

func (d *Dispatcher) runDebug(_ context.Context, _ string, taskCtx map[string]any) (TaskResult, error) {
	sites := d.findBugSites(taskCtx)

	fixes := make([]Fix, 0, len(sites))
	modified := []string{}
	for _, site := range sites {
		fix := Fix{
			File:        site.file,
			Line:        site.line,
			Original:    discardMarker,
			Fixed:       discardFix,
			Description: "Return the error instead of discarding it",
			Confidence:  0.8,
		}
		fixes = append(fixes, fix)
		if fix.Confidence > 0.7 {
			if d.applyFix(fix) {
				modified = append(modified, fix.File)
			}
		}
	}

	return TaskResult{
		Success:   len(fixes) > 0,
		Summary:   fmt.Sprintf("Found and fixed %d potential issues", len(fixes)),
		Fixes:     fixes,
		Artifacts: &Artifacts{FilesModified: modified},
	}, nil
}

func (d *Dispatcher) findBugSites(taskCtx map[string]any) []bugSite {
	var sites []bugSite

	if last, ok := taskCtx["last_file"].(string); ok && last != "" {
		sites = append(sites, bugSite{file: last, line: 1, description: "Recent modification site"})
	}

	paths, err := d.files.Search("*.go")
	if err != nil {
		d.log.Warn().Err(err).Msg("bug site scan failed")
		return sites
	}
	if len(paths) > 5 {
		paths = paths[:5]
	}
	for _, path := range paths {
		content, err := d.files.Read(path)
		if err != nil {
			continue
		}
		for i, line := range strings.Split(content, "\n") {
			if strings.Contains(line, discardMarker) {
				sites = append(sites, bugSite{file: path, line: i + 1, description: "Discarded error value"})
			}
		}
	}
	return sites
}

// applyFix rewrites one line in place. A fix whose marker is absent from
// the target line rewrites the file unchanged, which still counts as a
// modification attempt only when the file could be read and written.
func (d *Dispatcher) applyFix(fix Fix) bool {
	content, err := d.files.Read(fix.File)
	if err != nil {
		return false
	}
	lines := strings.Split(content, "\n")
	if fix.Line < 1 || fix.Line > len(lines) {
		return false
	}
	lines[fix.Line-1] = strings.Replace(lines[fix.Line-1], fix.Original, fix.Fixed, 1)
	if err := d.files.Write(fix.File, strings.Join(lines, "\n")); err != nil {
		d.log.Warn().Err(err).Str("file", fix.File).Msg("apply fix failed")
		return false
	}
	d.log.Info().Str("file", fix.File).Int("line", fix.Line).Msg("applied fix")
	return true
}

func (d *Dispatcher) runGeneric(_ context.Context, task string, _ map[string]any) (TaskResult, error) {
	return TaskResult{
		Success: true,
		Summary: "Completed: " + task,
		Context: map[string]any{"last_task": task},
	}, nil
}
