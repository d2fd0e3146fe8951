package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrGenerationFailed wraps every failure returned by Agents.
var ErrGenerationFailed = errors.New("generation failed")

// Role names one of the three prompt roles.
type Role string

const (
	RoleResearch Role = "research"
	RoleRefine   Role = "refine"
	RolePostify  Role = "postify"
)

const (
	researchSystemPrompt = `You are a senior research analyst. Produce a thorough, well-structured report in Markdown.
Cover background, current state, key players, data points, open debates and practical implications.
Use headings and bullet lists. Do not invent citations.`

	refineSystemPrompt = `You are an exacting editor. Revise the report you are given so that it addresses the reviewer feedback.
Keep facts that were not challenged, keep Markdown structure, and return only the revised report.`

	postifySystemPrompt = `You are a professional writer who turns research into a single LinkedIn post.
Open with a strong hook, keep paragraphs short, end with a question or call to action, and add at most three hashtags.
Return only the post text.`
)

// Observer is notified after every generation call.
type Observer func(role Role, elapsed time.Duration, err error)

// Agents runs the research, refine and post prompt roles on one generator.
type Agents struct {
	gen      TextGenerator
	observer Observer
}

// NewAgents wraps gen. observer may be nil.
func NewAgents(gen TextGenerator, observer Observer) *Agents {
	return &Agents{gen: gen, observer: observer}
}

// Research produces the raw report for topic.
func (a *Agents) Research(ctx context.Context, topic string) (string, error) {
	return a.run(ctx, RoleResearch, researchSystemPrompt, "Conduct deep research on: "+topic)
}

// Refine rewrites source according to feedback.
func (a *Agents) Refine(ctx context.Context, source, feedback string) (string, error) {
	prompt := fmt.Sprintf("Report:\n%s\n\nFeedback:\n%s", source, feedback)
	return a.run(ctx, RoleRefine, refineSystemPrompt, prompt)
}

// Postify turns source into a social post. Empty requirements are allowed.
func (a *Agents) Postify(ctx context.Context, source, requirements string) (string, error) {
	if strings.TrimSpace(requirements) == "" {
		requirements = "none"
	}
	prompt := fmt.Sprintf("Source report:\n%s\n\nAdditional requirements:\n%s", source, requirements)
	return a.run(ctx, RolePostify, postifySystemPrompt, prompt)
}

func (a *Agents) run(ctx context.Context, role Role, systemPrompt, userPrompt string) (string, error) {
	start := time.Now()
	text, err := a.gen.GenerateText(ctx, systemPrompt, userPrompt)
	if err == nil && strings.TrimSpace(text) == "" {
		err = ErrEmptyGeneration
	}
	if a.observer != nil {
		a.observer(role, time.Since(start), err)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrGenerationFailed, role, err)
	}
	return text, nil
}
