// Package llm writes short investment narratives for gem profile pages.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// Generator produces text from a prompt. *VertexAIClient implements it.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// NarrativeInput is what the model is told about a gem
type NarrativeInput struct {
	Name         string
	MineralGroup string
	Rarity       string
	Availability string
	Investment   string
	Hardness     string
	PriceRange   string
	Score        float64
	Tier         string
}

// VertexNarrator turns a gem's ranking into a short paragraph
type VertexNarrator struct {
	gen Generator
}

// NewNarrator creates a narrator on top of gen
func NewNarrator(gen Generator) *VertexNarrator {
	return &VertexNarrator{gen: gen}
}

// Narrate returns the model's paragraph, trimmed
func (n *VertexNarrator) Narrate(ctx context.Context, in NarrativeInput) (string, error) {
	text, err := n.gen.GenerateContent(ctx, BuildPrompt(in))
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("empty narrative for %s", in.Name)
	}
	return text, nil
}

// BuildPrompt creates the prompt for one gem
func BuildPrompt(in NarrativeInput) string {
	var sb strings.Builder
	sb.WriteString("You are a gemstone market analyst writing for collectors.\n")
	sb.WriteString("Write one paragraph (at most 120 words) explaining the investment outlook of the gem below.\n")
	sb.WriteString("Use only the facts given. Do not quote prices that are not listed. Do not give financial advice.\n\n")

	fmt.Fprintf(&sb, "Gem: %s\n", in.Name)
	field := func(label, value string) {
		if value = strings.TrimSpace(value); value != "" {
			fmt.Fprintf(&sb, "%s: %s\n", label, value)
		}
	}
	field("Mineral group", in.MineralGroup)
	field("Geological rarity", in.Rarity)
	field("Market availability", in.Availability)
	field("Investment category", in.Investment)
	field("Mohs hardness", in.Hardness)
	field("Price range", in.PriceRange)
	fmt.Fprintf(&sb, "Investment ranking: %.2f / 100 (%s)\n", in.Score, in.Tier)

	return sb.String()
}
