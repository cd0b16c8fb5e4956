package memory

import (
	"strings"
	"testing"
)

func TestScoreImportance_PlainShortText(t *testing.T) {
	if got := ScoreImportance("hello", nil); got != 50 {
		t.Errorf("Expected base score 50, got %d", got)
	}
}

func TestScoreImportance_Bounds(t *testing.T) {
	contents := []string{
		"x",
		"hello world",
		strings.Repeat("critical architecture design security ", 200),
		"```rust\n" + strings.Repeat("fn f() {}\n", 100) + "```",
	}
	tagSets := [][]string{
		nil,
		{"architecture", "critical", "security", "performance"},
		{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"},
	}

	for _, content := range contents {
		for _, tags := range tagSets {
			score := ScoreImportance(content, tags)
			if score < 1 || score > 100 {
				t.Errorf("Score %d out of [1,100] for %d tags", score, len(tags))
			}
		}
	}
}

func TestScoreImportance_TagBonuses(t *testing.T) {
	tests := []struct {
		tags     []string
		expected int
	}{
		{[]string{"architecture"}, 80},
		{[]string{"critical"}, 80},
		{[]string{"security"}, 75},
		{[]string{"optimization"}, 70},
		{[]string{"documentation"}, 55},
		{[]string{"unknowntag"}, 52},
		{[]string{"Architecture"}, 80}, // tag matching is case-insensitive
	}

	for _, tt := range tests {
		if got := ScoreImportance("x", tt.tags); got != tt.expected {
			t.Errorf("ScoreImportance(x, %v) = %d, want %d", tt.tags, got, tt.expected)
		}
	}
}

func TestScoreImportance_KeywordFamilyCountsOnce(t *testing.T) {
	// Two members of the same family grant the bonus a single time.
	single := ScoreImportance("critical", nil)
	double := ScoreImportance("critical urgent", nil)

	if single != 70 {
		t.Errorf("Expected 70 for one urgency keyword, got %d", single)
	}
	if double != single {
		t.Errorf("Second family member should not add: got %d vs %d", double, single)
	}
}

func TestScoreImportance_KeywordFamiliesStack(t *testing.T) {
	// Distinct families each contribute.
	got := ScoreImportance("critical error", nil)
	if got != 80 { // 50 + 20 urgency + 10 problem
		t.Errorf("Expected 80 for two families, got %d", got)
	}
}

func TestScoreImportance_CodeFences(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected int
	}{
		{"rust fence", "```rust\nlet x = 1;\n```", 65},
		{"python fence", "```python\nx = 1\n```", 62},
		{"bash fence", "```bash\nls\n```", 60},
		{"unlabeled fence", "```\nx\n```", 58},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScoreImportance(tt.content, nil); got != tt.expected {
				t.Errorf("ScoreImportance() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestCodeFenceBonus_Priority(t *testing.T) {
	// Rust outranks python even when python appears first.
	content := strings.ToLower("```python\nb\n```\n```rust\na\n```")
	if got := codeFenceBonus(content); got != 15 {
		t.Errorf("Expected rust bonus 15, got %d", got)
	}

	if got := codeFenceBonus("no fences"); got != 0 {
		t.Errorf("Expected 0 without fences, got %d", got)
	}
}

func TestScoreImportance_HighTailCompression(t *testing.T) {
	// Stacked bonuses push the raw score far past 100; the compressed
	// result still clamps to 100.
	content := "critical design ```rust\n``` performance error"
	got := ScoreImportance(content, []string{"architecture", "critical"})
	if got != 100 {
		t.Errorf("Expected clamped 100, got %d", got)
	}
}

func TestScoreImportance_LengthAndLineBonuses(t *testing.T) {
	// 10000 chars: sqrt = 100, /10 = 10.
	long := strings.Repeat("z", 10000)
	if got := ScoreImportance(long, nil); got != 60 {
		t.Errorf("Expected 60 for long content, got %d", got)
	}

	// 24 lines of one char: line bonus (24)/5 = 4 (23 newlines + 1).
	lines := strings.Repeat("z\n", 23) + "z"
	if got := ScoreImportance(lines, nil); got != 54 {
		t.Errorf("Expected 54 for multi-line content, got %d", got)
	}
}

func TestScoreImportance_Monotonic(t *testing.T) {
	contents := []string{"x", "hello world", "```python\npass\n```"}
	for _, content := range contents {
		base := ScoreImportance(content, nil)
		tagged := ScoreImportance(content, []string{"security"})
		if tagged < base {
			t.Errorf("Adding a tag lowered the score: %d -> %d", base, tagged)
		}
	}
}
