package resource

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// agentFrontmatter mirrors *.agent.md's YAML frontmatter block (spec §6).
type agentFrontmatter struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Tools       []string       `yaml:"tools"`
	Infer       bool           `yaml:"infer"`
	Handoffs    []AgentHandoff `yaml:"handoffs"`
}

var frontmatterDelim = regexp.MustCompile(`(?s)\A---\r?\n(.*?)\r?\n---\r?\n?`)

var whitespaceRun = regexp.MustCompile(`\s+`)

// ParseAgentFile parses the YAML frontmatter + Markdown body of an
// *.agent.md file (spec §6). The body becomes SystemPrompt; handoff
// prompts have runs of whitespace collapsed to a single space.
func ParseAgentFile(data []byte) (*Agent, error) {
	match := frontmatterDelim.FindSubmatch(data)
	if match == nil {
		return nil, fmt.Errorf("resource: agent file missing YAML frontmatter block")
	}

	var fm agentFrontmatter
	if err := yaml.Unmarshal(match[1], &fm); err != nil {
		return nil, fmt.Errorf("resource: parse agent frontmatter: %w", err)
	}

	body := strings.TrimSpace(string(data[len(match[0]):]))

	handoffs := make([]AgentHandoff, len(fm.Handoffs))
	for i, h := range fm.Handoffs {
		h.Prompt = flattenWhitespace(h.Prompt)
		handoffs[i] = h
	}

	return &Agent{
		Name:         fm.Name,
		SystemPrompt: body,
		Tools:        fm.Tools,
		Infer:        fm.Infer,
		Handoffs:     handoffs,
	}, nil
}

func flattenWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}
