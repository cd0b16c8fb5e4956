package memory

import (
	"regexp"
	"strings"
)

// NoCodeBlocksFound is returned by ExtractCodeBlocks when the content
// contains no fenced blocks.
const NoCodeBlocksFound = "no code blocks found"

// Language-specific fence patterns are tried before the generic fallback
// so labeled blocks keep their original grouping.
var (
	languageBlockPatterns = []*regexp.Regexp{
		regexp.MustCompile("(?s)```rust\\s*\\n(.*?)```"),
		regexp.MustCompile("(?s)```python\\s*\\n(.*?)```"),
		regexp.MustCompile("(?s)```javascript\\s*\\n(.*?)```"),
		regexp.MustCompile("(?s)```bash\\s*\\n(.*?)```"),
	}
	genericBlockPattern = regexp.MustCompile("(?s)```[a-zA-Z0-9_+-]*\\s*\\n(.*?)```")
)

// ExtractCodeBlocks returns every fenced code block in content joined by
// blank lines, or NoCodeBlocksFound when there are none.
func ExtractCodeBlocks(content string) string {
	var blocks []string
	for _, pattern := range languageBlockPatterns {
		for _, match := range pattern.FindAllStringSubmatch(content, -1) {
			blocks = append(blocks, strings.TrimRight(match[1], "\n"))
		}
	}

	if len(blocks) == 0 {
		for _, match := range genericBlockPattern.FindAllStringSubmatch(content, -1) {
			blocks = append(blocks, strings.TrimRight(match[1], "\n"))
		}
	}

	if len(blocks) == 0 {
		return NoCodeBlocksFound
	}
	return strings.Join(blocks, "\n\n")
}

// DetectContentType infers a record's content type from its content and
// tags: fenced block means code, an "architecture" tag means
// architecture, everything else is plain text.
func DetectContentType(content string, tags []string) string {
	if strings.Contains(content, "```") {
		return ContentTypeCode
	}
	for _, tag := range tags {
		if strings.EqualFold(tag, "architecture") {
			return ContentTypeArchitecture
		}
	}
	return ContentTypeText
}
