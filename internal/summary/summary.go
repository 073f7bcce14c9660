// Package summary turns a day's task list into short prose.
//
// The provider is a black box behind the Summarizer interface. The default
// implementation calls the Anthropic Messages API; SummarizeOrFallback
// degrades to a deterministic locally-built summary when the provider
// fails, so the caller always gets usable text.
package summary

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/daybookhq/daybook/internal/model"
)

// DefaultModel is used when the config does not name one.
const DefaultModel = "claude-3-5-haiku-latest"

const maxTokens = 1024

// Summarizer produces a prose summary for a set of tasks.
type Summarizer interface {
	Summarize(ctx context.Context, tasks []*model.Task) (string, error)
}

// Client summarizes via the Anthropic Messages API.
type Client struct {
	api    anthropic.Client
	model  anthropic.Model
	logger *log.Logger
}

// NewClient builds an Anthropic-backed summarizer. apiKey may be empty, in
// which case the SDK falls back to ANTHROPIC_API_KEY from the environment.
func NewClient(apiKey, modelName string, logger *log.Logger) *Client {
	if modelName == "" {
		modelName = DefaultModel
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[summary] ", log.LstdFlags)
	}
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	return &Client{
		api:    anthropic.NewClient(opts...),
		model:  anthropic.Model(modelName),
		logger: logger,
	}
}

// Summarize sends the task list to the provider and returns its prose.
func (c *Client) Summarize(ctx context.Context, tasks []*model.Task) (string, error) {
	if len(tasks) == 0 {
		return "Nothing logged for this day.", nil
	}

	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildPrompt(tasks))),
		},
	})
	if err != nil {
		return "", fmt.Errorf("summary request: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Text != "" {
			sb.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", errors.New("summary request: empty response")
	}
	return text, nil
}

// SummarizeOrFallback never fails. On any provider error it logs a warning
// and returns the deterministic fallback built from the same tasks.
func SummarizeOrFallback(ctx context.Context, s Summarizer, tasks []*model.Task, logger *log.Logger) string {
	text, err := s.Summarize(ctx, tasks)
	if err == nil {
		return text
	}
	if logger != nil {
		logger.Printf("WARNING: summary provider failed, using fallback: %v", err)
	}
	return Fallback(tasks)
}

// Fallback builds a plain summary without any provider.
func Fallback(tasks []*model.Task) string {
	if len(tasks) == 0 {
		return "Nothing logged for this day."
	}

	var done, open []*model.Task
	var hours float64
	for _, t := range tasks {
		if t.Status == model.StatusDone {
			done = append(done, t)
		} else {
			open = append(open, t)
		}
		if t.DurationHours != nil {
			hours += *t.DurationHours
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d task%s logged", len(tasks), plural(len(tasks)))
	if len(done) > 0 {
		fmt.Fprintf(&sb, ", %d completed", len(done))
	}
	if hours > 0 {
		fmt.Fprintf(&sb, " (%.1f hours tracked)", hours)
	}
	sb.WriteString(".")
	if len(done) > 0 {
		sb.WriteString(" Completed: ")
		sb.WriteString(joinTitles(done))
		sb.WriteString(".")
	}
	if len(open) > 0 {
		sb.WriteString(" Still open: ")
		sb.WriteString(joinTitles(open))
		sb.WriteString(".")
	}
	return sb.String()
}

func buildPrompt(tasks []*model.Task) string {
	var sb strings.Builder
	sb.WriteString("Summarize this work diary in two or three sentences of plain prose. ")
	sb.WriteString("Mention what was completed, what is still open, and any tracked time.\n\n")
	for _, t := range tasks {
		fmt.Fprintf(&sb, "- [%s] %s", t.Status, t.Title)
		if t.Assignee != "" && t.Assignee != model.Self {
			fmt.Fprintf(&sb, " (assigned to %s)", t.Assignee)
		}
		if t.DurationHours != nil {
			fmt.Fprintf(&sb, " (%.1fh)", *t.DurationHours)
		}
		if t.PostponeReason != "" {
			fmt.Fprintf(&sb, " (postponed: %s)", t.PostponeReason)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func joinTitles(tasks []*model.Task) string {
	titles := make([]string, len(tasks))
	for i, t := range tasks {
		titles[i] = t.Title
	}
	return strings.Join(titles, "; ")
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
