package mcpserver

import (
	"fmt"
	"strings"
	"time"

	"github.com/chronicle-ai/chronicle/store"
)

// itemSummary is the JSON shape tools return for an item.
type itemSummary struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Summary    string  `json:"summary"`
	MemoryType string  `json:"memory_type,omitempty"`
	Salience   float64 `json:"salience"`
}

// semanticResult is an itemSummary plus its similarity score.
type semanticResult struct {
	itemSummary
	Score float64 `json:"score"`
}

func summarise(item *store.Item) itemSummary {
	summary := itemSummary{
		ID:       item.ID,
		Title:    item.Title,
		Summary:  item.Summary,
		Salience: item.Salience,
	}
	if item.MemoryType != nil {
		summary.MemoryType = string(*item.MemoryType)
	}
	return summary
}

func itemSummaries(items []*store.Item) []itemSummary {
	summaries := make([]itemSummary, 0, len(items))
	for _, item := range items {
		summaries = append(summaries, summarise(item))
	}
	return summaries
}

// RenderItemMarkdown produces the markdown document served for an item
// resource.
func RenderItemMarkdown(item *store.Item) string {
	memoryType := ""
	if item.MemoryType != nil {
		memoryType = string(*item.MemoryType)
	}
	date := time.UnixMilli(item.CreatedAt).Local().Format("January 2, 2006")

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", item.Title)
	fmt.Fprintf(&b, "**Date:** %s\n", date)
	fmt.Fprintf(&b, "**Source:** %s\n", item.Source)
	fmt.Fprintf(&b, "**Tags:** %s\n", strings.Join(item.Tags, ", "))
	fmt.Fprintf(&b, "**Memory Type:** %s\n", memoryType)
	fmt.Fprintf(&b, "**Salience:** %.2f\n", item.Salience)
	fmt.Fprintf(&b, "\n## Summary\n%s\n", item.Summary)
	fmt.Fprintf(&b, "\n## Transcript\n%s\n", item.Content)
	return b.String()
}
