package memory

import (
	"sort"
	"testing"
)

// rec is a content/tags pair for test fixtures.
type rec struct {
	content string
	tags    []string
}

// indexedStore saves the given records and rebuilds the indices.
func indexedStore(t *testing.T, records ...rec) (*Store, *IndexManager, []string) {
	t.Helper()

	store := newTestStore(t)
	var ids []string
	for _, r := range records {
		id, err := store.Save(r.content, r.tags, "")
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}

	im := NewIndexManager(store)
	im.RebuildAll()
	return store, im, ids
}

func TestIndexManager_TagLookup(t *testing.T) {
	_, im, ids := indexedStore(t,
		rec{"first", []string{"Alpha"}},
		rec{"second", []string{"alpha", "beta"}},
		rec{"third", []string{"gamma"}},
	)

	// Tag matching is case-insensitive both ways.
	got := im.IDsWithTag("ALPHA")
	if len(got) != 2 {
		t.Fatalf("Expected 2 ids for alpha, got %d", len(got))
	}

	sort.Strings(got)
	want := []string{ids[0], ids[1]}
	sort.Strings(want)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Tag lookup mismatch: got %v, want %v", got, want)
			break
		}
	}

	if len(im.IDsWithTag("missing")) != 0 {
		t.Error("Unknown tag should match nothing")
	}
}

func TestIndexManager_AllTagsIntersection(t *testing.T) {
	_, im, ids := indexedStore(t,
		rec{"both", []string{"alpha", "beta"}},
		rec{"only alpha", []string{"alpha"}},
	)

	got := im.IDsWithAllTags([]string{"alpha", "beta"})
	if len(got) != 1 || got[0] != ids[0] {
		t.Errorf("Expected only the doubly-tagged id, got %v", got)
	}

	if got := im.IDsWithAllTags(nil); got != nil {
		t.Errorf("Empty tag list should select nothing, got %v", got)
	}
}

func TestIndexManager_ImportanceFloor(t *testing.T) {
	// Scores: plain 50, architecture+critical 94, security 75.
	store, im, _ := indexedStore(t,
		rec{"plain note", nil},
		rec{"tagged", []string{"architecture", "critical"}},
		rec{"secure", []string{"security"}},
	)

	got := im.IDsWithMinImportance(75)
	if len(got) != 2 {
		t.Fatalf("Expected 2 ids at floor 75, got %d", len(got))
	}
	for _, id := range got {
		m, err := store.Get(id)
		if err != nil {
			t.Fatal(err)
		}
		if m.Importance < 75 {
			t.Errorf("Id %s scored %d, below the floor", id, m.Importance)
		}
	}

	if len(im.IDsWithMinImportance(1)) != 3 {
		t.Error("Floor 1 should select everything")
	}
	if len(im.IDsWithMinImportance(100)) != 0 {
		t.Error("Floor 100 should select nothing here")
	}
}

func TestIndexManager_ContentType(t *testing.T) {
	_, im, ids := indexedStore(t,
		rec{"```python\npass\n```", nil},
		rec{"plain note", nil},
	)

	got := im.IDsWithContentType(ContentTypeCode)
	if len(got) != 1 || got[0] != ids[0] {
		t.Errorf("Expected the fenced record, got %v", got)
	}
	got = im.IDsWithContentType(ContentTypeText)
	if len(got) != 1 || got[0] != ids[1] {
		t.Errorf("Expected the plain record, got %v", got)
	}
}

func TestSearchText_ExactTokens(t *testing.T) {
	_, im, ids := indexedStore(t,
		rec{"the deployment pipeline uses canary releases", nil},
		rec{"the deployment window opens friday", nil},
	)

	// Multi-token queries require every token.
	got := im.SearchText("deployment pipeline")
	if len(got) != 1 || got[0] != ids[0] {
		t.Errorf("Expected only the pipeline record, got %v", got)
	}

	got = im.SearchText("DEPLOYMENT")
	if len(got) != 2 {
		t.Errorf("Search should be case-insensitive, got %v", got)
	}
}

func TestSearchText_TrigramFallback(t *testing.T) {
	_, im, ids := indexedStore(t,
		rec{"configure the scheduler backoff", nil},
	)

	// No exact token matches the misspelled query; the trigram overlap
	// still finds the record.
	got := im.SearchText("schedulerz")
	if len(got) != 1 || got[0] != ids[0] {
		t.Errorf("Expected trigram fallback hit, got %v", got)
	}

	if got := im.SearchText("qqqq"); len(got) != 0 {
		t.Errorf("Unrelated query should match nothing, got %v", got)
	}
}

func TestRebuildAll_ResetsIndices(t *testing.T) {
	store, im, _ := indexedStore(t,
		rec{"note one", []string{"alpha"}},
	)

	id2, err := store.Save("note two", []string{"beta"}, "")
	if err != nil {
		t.Fatal(err)
	}

	// Not yet indexed.
	if len(im.IDsWithTag("beta")) != 0 {
		t.Error("Unindexed record should not be visible")
	}

	im.RebuildAll()
	got := im.IDsWithTag("beta")
	if len(got) != 1 || got[0] != id2 {
		t.Errorf("Rebuild should pick up the new record, got %v", got)
	}
	if len(im.IDsWithTag("alpha")) != 1 {
		t.Error("Rebuild should keep existing records indexed")
	}
}

func TestTokenize(t *testing.T) {
	tokens := tokenize("Go is a Fast language go")
	if _, ok := tokens["go"]; ok {
		t.Error("Two-char tokens should be dropped")
	}
	if _, ok := tokens["fast"]; !ok {
		t.Error("Expected lowercased token fast")
	}
	if _, ok := tokens["language"]; !ok {
		t.Error("Expected token language")
	}
}

func TestTrigrams(t *testing.T) {
	grams := trigrams("ABCD")
	if len(grams) != 2 {
		t.Fatalf("Expected 2 trigrams, got %d", len(grams))
	}
	for _, g := range []string{"abc", "bcd"} {
		if _, ok := grams[g]; !ok {
			t.Errorf("Missing trigram %s", g)
		}
	}

	if len(trigrams("ab")) != 0 {
		t.Error("Too-short input should yield no trigrams")
	}
}
