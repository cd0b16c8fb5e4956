package memory

import (
	"math"
	"strings"
)

// tagBonuses maps lowercase tags to their importance contribution.
// Unrecognized tags still add a small constant.
var tagBonuses = map[string]int{
	"architecture":  30,
	"critical":      30,
	"security":      25,
	"optimization":  20,
	"performance":   20,
	"code":          15,
	"algorithm":     15,
	"pattern":       15,
	"design":        15,
	"bug":           10,
	"fix":           10,
	"manual":        8,
	"documentation": 5,
	"test":          5,
}

const unknownTagBonus = 2

// keywordFamily is a group of content keywords granting a single bonus
// no matter how many members occur.
type keywordFamily struct {
	words []string
	bonus int
}

var keywordFamilies = []keywordFamily{
	{[]string{"critical", "urgent", "high-priority", "important"}, 20},
	{[]string{"performance", "optimize", "efficiency", "bottleneck"}, 15},
	{[]string{"error", "bug", "fix", "issue", "crash", "failure"}, 10},
	{[]string{"design", "architecture", "pattern", "framework", "structure"}, 18},
}

// codeFenceBonuses lists fence language tags in priority order: only the
// first match counts.
var codeFenceBonuses = []struct {
	lang  string
	bonus int
}{
	{"rust", 15},
	{"python", 12},
	{"javascript", 12},
	{"bash", 10},
}

const unlabeledFenceBonus = 8

// ScoreImportance rates content and tags on a 1..100 scale. The score is
// computed once at creation and never revised.
func ScoreImportance(content string, tags []string) int {
	score := 50

	for _, tag := range tags {
		if bonus, ok := tagBonuses[strings.ToLower(tag)]; ok {
			score += bonus
		} else {
			score += unknownTagBonus
		}
	}

	lower := strings.ToLower(content)
	for _, family := range keywordFamilies {
		for _, word := range family.words {
			if strings.Contains(lower, word) {
				score += family.bonus
				break
			}
		}
	}

	score += codeFenceBonus(lower)

	lengthBonus := int(math.Sqrt(float64(len(content)))) / 10
	if lengthBonus > 15 {
		lengthBonus = 15
	}
	score += lengthBonus

	lineBonus := (strings.Count(content, "\n") + 1) / 5
	if lineBonus > 10 {
		lineBonus = 10
	}
	score += lineBonus

	// Compress both tails so scores cluster in a usable band.
	if score < 20 {
		score = 20 + score/5
	} else if score > 90 {
		score = 90 + (score-90)/5
	}

	if score > 100 {
		score = 100
	}
	if score < 1 {
		score = 1
	}
	return score
}

// codeFenceBonus returns the bonus for the highest-priority fenced code
// block language present in the lowercased content.
func codeFenceBonus(lower string) int {
	for _, fb := range codeFenceBonuses {
		if strings.Contains(lower, "```"+fb.lang) {
			return fb.bonus
		}
	}
	if strings.Contains(lower, "```") {
		return unlabeledFenceBonus
	}
	return 0
}
