package planner

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// ModelConfig configures the optional model-backed policy.
type ModelConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	TimeoutMS int
}

// ModelPolicy asks a chat model for the task list instead of using the fixed
// templates. It satisfies the same Policy contract; plan-creation errors
// surface as request-level failures. Never selected by default.
type ModelPolicy struct {
	client *openai.Client
	model  string
}

func NewModelPolicy(cfg ModelConfig) *ModelPolicy {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	httpClient := &http.Client{}
	if cfg.TimeoutMS > 0 {
		httpClient.Timeout = time.Duration(cfg.TimeoutMS) * time.Millisecond
	}
	config.HTTPClient = httpClient

	return &ModelPolicy{
		client: openai.NewClientWithConfig(config),
		model:  cfg.Model,
	}
}

const planSystemPrompt = "You are a task planner. Given a request, reply with an ordered list of short task descriptions, one per line. No numbering, no commentary."

func (p *ModelPolicy) Tasks(ctx context.Context, request string, _ map[string]any, strategy Strategy) ([]string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: planSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("Strategy: %s\nRequest: %s", strategy, request)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("plan completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("plan completion returned no choices")
	}

	tasks := parseTaskLines(resp.Choices[0].Message.Content)
	if len(tasks) == 0 {
		return nil, fmt.Errorf("plan completion returned no tasks")
	}
	return tasks, nil
}

func parseTaskLines(content string) []string {
	var tasks []string
	for _, line := range strings.Split(content, "\n") {
		task := strings.TrimSpace(line)
		task = strings.TrimPrefix(task, "- ")
		task = strings.TrimPrefix(task, "* ")
		if task == "" {
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks
}
