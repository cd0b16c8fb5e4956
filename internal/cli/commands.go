// Package cli provides the interactive shell over the memory store.
package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/engramdb/engram/internal/memory"
)

const defaultResultLimit = 10

// Commands dispatches slash commands against a memory system.
type Commands struct {
	sys *memory.System
}

// NewCommands creates a command handler bound to the given system.
func NewCommands(sys *memory.System) *Commands {
	return &Commands{sys: sys}
}

// HandleCommand handles a slash command.
// Returns: (whether the command was handled, output text)
func (c *Commands) HandleCommand(cmd string) (bool, string) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return false, ""
	}

	command := strings.ToLower(parts[0])

	switch command {
	case "/remember":
		return true, c.remember(parts[1:])
	case "/recall", "/search":
		return true, c.recall(strings.Join(parts[1:], " "))
	case "/tags":
		return true, c.byTags(parts[1:])
	case "/important":
		return true, c.byImportance(parts[1:])
	case "/list":
		return true, c.list(parts[1:])
	case "/show":
		return true, c.show(parts[1:])
	case "/code":
		return true, c.code(parts[1:])
	case "/stats":
		return true, c.stats()
	case "/verify":
		return true, c.verify()
	case "/reindex":
		return true, c.reindex()
	case "/help":
		return true, c.help()
	default:
		return false, ""
	}
}

// remember saves a new memory. An optional leading [tag1,tag2] token
// attaches tags.
func (c *Commands) remember(args []string) string {
	if len(args) == 0 {
		return "❌ Usage: /remember [tag1,tag2] <content>"
	}

	var tags []string
	if strings.HasPrefix(args[0], "[") && strings.HasSuffix(args[0], "]") {
		tags = splitTags(strings.TrimSuffix(strings.TrimPrefix(args[0], "["), "]"))
		args = args[1:]
	}

	content := strings.TrimSpace(strings.Join(args, " "))
	if content == "" {
		return "❌ Content cannot be empty"
	}

	id, err := c.sys.Save(content, tags, "repl")
	if err != nil {
		return fmt.Sprintf("❌ Save failed: %v", err)
	}

	m, err := c.sys.Store().Get(id)
	if err != nil {
		return fmt.Sprintf("✅ Memory saved\n   ID: %s", id)
	}

	out := fmt.Sprintf("✅ Memory saved\n   ID: %s\n   Importance: %d\n   Type: %s",
		m.ID, m.Importance, m.ContentType)
	if m.Importance >= memory.HighlightThreshold {
		out += "\n   ⭐ Mirrored to highlights"
	}
	return out
}

// recall runs a free-text search.
func (c *Commands) recall(text string) string {
	if strings.TrimSpace(text) == "" {
		return "❌ Usage: /recall <text>"
	}

	results, err := c.sys.RetrieveRelevant(text, defaultResultLimit)
	if err != nil {
		return fmt.Sprintf("❌ Search failed: %v", err)
	}
	if len(results) == 0 {
		return fmt.Sprintf("🔍 No memories matching \"%s\"", text)
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("🔍 Search results (query: %s)\n\n", text))
	writeResults(&builder, results)
	return builder.String()
}

// byTags retrieves records carrying every given tag.
func (c *Commands) byTags(args []string) string {
	if len(args) == 0 {
		return "❌ Usage: /tags <tag[,tag...]>"
	}

	tags := splitTags(strings.Join(args, ","))
	results, err := c.sys.Retrieve(memory.Query{Tags: tags, Limit: defaultResultLimit})
	if err != nil {
		return fmt.Sprintf("❌ Query failed: %v", err)
	}
	if len(results) == 0 {
		return fmt.Sprintf("🔍 No memories tagged %s", strings.Join(tags, ", "))
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("🏷️  Memories tagged %s\n\n", strings.Join(tags, ", ")))
	writeResults(&builder, results)
	return builder.String()
}

// byImportance retrieves records at or above an importance floor.
func (c *Commands) byImportance(args []string) string {
	if len(args) == 0 {
		return "❌ Usage: /important <min-score>"
	}

	threshold, err := strconv.Atoi(args[0])
	if err != nil || threshold < 1 || threshold > 100 {
		return "❌ Score must be a number between 1 and 100"
	}

	results, err := c.sys.Retrieve(memory.Query{MinImportance: threshold, Limit: defaultResultLimit})
	if err != nil {
		return fmt.Sprintf("❌ Query failed: %v", err)
	}
	if len(results) == 0 {
		return fmt.Sprintf("🔍 No memories with importance >= %d", threshold)
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("⭐ Memories with importance >= %d\n\n", threshold))
	writeResults(&builder, results)
	return builder.String()
}

// list shows the newest records. It prefers the catalog so browsing does
// not disturb access statistics.
func (c *Commands) list(args []string) string {
	limit := defaultResultLimit
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			limit = n
		}
	}

	if cat, err := c.sys.Catalog(); err == nil {
		entries, err := cat.List(limit)
		if err == nil {
			return formatCatalogEntries(entries)
		}
	}

	// Catalog disabled or unreadable; fall back to the query engine.
	results, err := c.sys.Retrieve(memory.Query{
		SortBy:        memory.SortByDate,
		SortDirection: memory.SortDescending,
		Limit:         limit,
	})
	if err != nil {
		return fmt.Sprintf("❌ List failed: %v", err)
	}
	if len(results) == 0 {
		return "📋 No memories stored yet"
	}

	var builder strings.Builder
	builder.WriteString("📋 Recent memories\n\n")
	writeResults(&builder, results)
	return builder.String()
}

// show prints one full record.
func (c *Commands) show(args []string) string {
	if len(args) == 0 {
		return "❌ Usage: /show <id>"
	}

	m, err := c.sys.Store().Get(args[0])
	if err != nil {
		return fmt.Sprintf("❌ %v", err)
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("%s %s\n\n", contentTypeIcon(m.ContentType), m.ID))
	builder.WriteString(fmt.Sprintf("Importance: %d\n", m.Importance))
	builder.WriteString(fmt.Sprintf("Type: %s\n", m.ContentType))
	if len(m.Tags) > 0 {
		builder.WriteString(fmt.Sprintf("Tags: %s\n", strings.Join(m.Tags, ", ")))
	}
	if m.Context != "" {
		builder.WriteString(fmt.Sprintf("Context: %s\n", m.Context))
	}
	builder.WriteString(fmt.Sprintf("Created: %s\n", m.CreatedAt.Format("2006-01-02 15:04:05")))
	builder.WriteString(fmt.Sprintf("Accessed: %d times, last %s\n",
		m.AccessCount, m.LastAccessedAt.Format("2006-01-02 15:04:05")))
	builder.WriteString(fmt.Sprintf("\n%s\n", m.Content))
	return builder.String()
}

// code extracts the fenced code blocks of one record.
func (c *Commands) code(args []string) string {
	if len(args) == 0 {
		return "❌ Usage: /code <id>"
	}

	m, err := c.sys.Store().Get(args[0])
	if err != nil {
		return fmt.Sprintf("❌ %v", err)
	}

	blocks := memory.ExtractCodeBlocks(m.Content)
	if blocks == memory.NoCodeBlocksFound {
		return fmt.Sprintf("📄 %s contains no code blocks", m.ID)
	}
	return fmt.Sprintf("💻 Code blocks in %s\n\n%s", m.ID, blocks)
}

// stats prints the aggregate statistics snapshot.
func (c *Commands) stats() string {
	stats := c.sys.Maintenance().Stats()

	var builder strings.Builder
	builder.WriteString("📊 Memory store statistics\n\n")
	builder.WriteString(fmt.Sprintf("Total memories: %d\n", stats.TotalMemories))
	builder.WriteString(fmt.Sprintf("Highlights: %d\n", stats.TotalHighlights))
	builder.WriteString(fmt.Sprintf("Average importance: %.1f\n", stats.AverageImportance))
	builder.WriteString(fmt.Sprintf("Total content size: %d bytes\n", stats.TotalSizeBytes))

	if len(stats.ByContentType) > 0 {
		builder.WriteString("\nBy content type:\n")
		for ct, count := range stats.ByContentType {
			builder.WriteString(fmt.Sprintf("   %s %s: %d\n", contentTypeIcon(ct), ct, count))
		}
	}

	if len(stats.ByImportance) > 0 {
		builder.WriteString("\nBy importance:\n")
		for bucket, count := range stats.ByImportance {
			builder.WriteString(fmt.Sprintf("   %s: %d\n", bucket, count))
		}
	}

	if len(stats.ByTag) > 0 {
		builder.WriteString("\nBy tag:\n")
		for tag, count := range stats.ByTag {
			builder.WriteString(fmt.Sprintf("   #%s: %d\n", tag, count))
		}
	}

	builder.WriteString(fmt.Sprintf("\nComputed: %s\n", stats.ComputedAt.Format("2006-01-02 15:04:05")))
	return builder.String()
}

// verify runs a full consistency pass and reports every finding.
func (c *Commands) verify() string {
	report, err := c.sys.Maintenance().VerifyConsistency()
	if err != nil {
		return fmt.Sprintf("❌ Verification failed: %v", err)
	}

	var builder strings.Builder
	builder.WriteString("🔧 Consistency check\n\n")
	builder.WriteString(fmt.Sprintf("Cached records: %d\n", report.TotalCached))
	builder.WriteString(fmt.Sprintf("Record files: %d\n", report.TotalFiles))

	if report.IsConsistent() {
		builder.WriteString("\n✅ Store is consistent\n")
		return builder.String()
	}

	builder.WriteString(fmt.Sprintf("\n⚠️  %d finding(s):\n", len(report.Findings)))
	for _, f := range report.Findings {
		builder.WriteString(fmt.Sprintf("   🚨 %s: %s\n", f.ID, f.Problem))
	}
	return builder.String()
}

// reindex rebuilds every secondary index from the cache.
func (c *Commands) reindex() string {
	c.sys.Indexer().ForceDrain()
	c.sys.Indexes().RebuildAll()
	return fmt.Sprintf("✅ Indices rebuilt over %d record(s)", c.sys.Store().Len())
}

// help prints command usage.
func (c *Commands) help() string {
	return `📖 Commands

/remember [tags] <content>  - Save a memory; optional [tag1,tag2] prefix
/recall <text>              - Full-text search (also: /search)
/tags <tag[,tag...]>        - Find memories carrying every tag
/important <min-score>      - Find memories at or above a score
/list [n]                   - Show the n newest memories
/show <id>                  - Print one memory in full
/code <id>                  - Extract a memory's fenced code blocks
/stats                      - Show store statistics
/verify                     - Check cache/disk consistency
/reindex                    - Rebuild the secondary indices
/help                       - Show this help message
/exit                       - Exit

Plain text (no leading slash) is treated as /recall.`
}

// writeResults appends a numbered result list to the builder.
func writeResults(builder *strings.Builder, results []*memory.Memory) {
	for i, m := range results {
		builder.WriteString(fmt.Sprintf("%d. %s [%d] %s\n",
			i+1, contentTypeIcon(m.ContentType), m.Importance, m.ID))
		builder.WriteString(fmt.Sprintf("   %s\n", truncateForDisplay(m.Content, 100)))
		if len(m.Tags) > 0 {
			builder.WriteString(fmt.Sprintf("   🏷️  %s\n", strings.Join(m.Tags, ", ")))
		}
		builder.WriteString("\n")
	}
}

// formatCatalogEntries renders a catalog listing.
func formatCatalogEntries(entries []*memory.CatalogEntry) string {
	if len(entries) == 0 {
		return "📋 No memories stored yet"
	}

	var builder strings.Builder
	builder.WriteString("📋 Recent memories\n\n")
	for i, e := range entries {
		builder.WriteString(fmt.Sprintf("%d. %s [%d] %s\n",
			i+1, contentTypeIcon(e.ContentType), e.Importance, e.ID))
		builder.WriteString(fmt.Sprintf("   Created: %s, accessed %d times\n",
			e.CreatedAt.Format("01-02 15:04"), e.AccessCount))
		if len(e.Tags) > 0 {
			builder.WriteString(fmt.Sprintf("   🏷️  %s\n", strings.Join(e.Tags, ", ")))
		}
		builder.WriteString("\n")
	}
	return builder.String()
}

// contentTypeIcon maps a content type to its display icon.
func contentTypeIcon(contentType string) string {
	switch contentType {
	case memory.ContentTypeCode:
		return "💻"
	case memory.ContentTypeArchitecture:
		return "🏛️"
	default:
		return "📄"
	}
}

// splitTags splits a comma-separated tag list, dropping empties.
func splitTags(raw string) []string {
	var tags []string
	for _, tag := range strings.Split(raw, ",") {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// truncateForDisplay flattens and truncates text for list output.
func truncateForDisplay(text string, maxLen int) string {
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.ReplaceAll(text, "\r", "")
	text = strings.TrimSpace(text)

	if len(text) <= maxLen {
		return text
	}
	return text[:maxLen] + "..."
}
