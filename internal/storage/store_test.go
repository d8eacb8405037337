package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/vampirenirmal/storyweave/internal/core"
	"github.com/vampirenirmal/storyweave/internal/model"
)

// backends the Store contract is exercised against.
func testStores(t *testing.T) map[string]Store {
	t.Helper()

	db, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite(:memory:) = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return map[string]Store{
		"memory":     NewMemory(),
		"filesystem": NewFileSystem(t.TempDir()),
		"sqlite":     db,
	}
}

func testStory(id string) *model.Story {
	return &model.Story{
		ID:             id,
		Title:          "The Cartographer's Debt",
		Summary:        "A mapmaker charts a coastline that refuses to stay still.",
		Genre:          model.GenreFantasy,
		Tone:           model.ToneBittersweet,
		MoralFramework: "honesty against convenient fictions",
		Status:         model.StatusWriting,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			story := testStory("story-1")

			if err := store.Insert(ctx, story); err != nil {
				t.Fatalf("Insert() = %v", err)
			}

			got, err := store.Get(ctx, model.TypeStory, "story-1")
			if err != nil {
				t.Fatalf("Get() = %v", err)
			}
			loaded, ok := got.(*model.Story)
			if !ok {
				t.Fatalf("Get() returned %T, want *model.Story", got)
			}
			if loaded.Title != story.Title || loaded.Genre != story.Genre {
				t.Errorf("loaded story = %+v, want %+v", loaded, story)
			}
		})
	}
}

func TestStoreGetMissing(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(context.Background(), model.TypeStory, "nope")
			if !errors.Is(err, core.ErrNotFound) {
				t.Fatalf("Get(missing) = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStoreInsertDuplicate(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := store.Insert(ctx, testStory("story-1")); err != nil {
				t.Fatalf("Insert() = %v", err)
			}
			if err := store.Insert(ctx, testStory("story-1")); err == nil {
				t.Fatal("second Insert() = nil, want duplicate error")
			}
		})
	}
}

func TestStoreInsertRequiresID(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Insert(context.Background(), testStory("")); err == nil {
				t.Fatal("Insert() with empty id = nil, want error")
			}
		})
	}
}

func TestStoreListByParentOrdering(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			// Parts carry explicit order indexes; insert out of order.
			for _, idx := range []int{3, 1, 2} {
				part := &model.Part{
					ID:         "part-" + string(rune('0'+idx)),
					StoryID:    "story-1",
					OrderIndex: idx,
					Title:      "Part",
					Summary:    "summary",
					CharacterArcs: []model.ArcCycle{{
						CharacterID: "char-1",
						Adversity:   model.AdversityPair{Internal: "doubt", External: "storm"},
						Virtue:      "courage", Consequence: "safe harbor", NewAdversity: "debt",
					}},
					SettingIDs: []string{"set-1", "set-2"},
				}
				if err := store.Insert(ctx, part); err != nil {
					t.Fatalf("Insert(part %d) = %v", idx, err)
				}
			}

			parts, err := store.ListByParent(ctx, model.TypePart, "story-1")
			if err != nil {
				t.Fatalf("ListByParent() = %v", err)
			}
			if len(parts) != 3 {
				t.Fatalf("ListByParent() returned %d parts, want 3", len(parts))
			}
			for i, e := range parts {
				if e.Order() != i+1 {
					t.Errorf("parts[%d].Order() = %d, want %d", i, e.Order(), i+1)
				}
			}
		})
	}
}

func TestStoreListByParentInsertionOrder(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			// Characters have no order index; insertion order is the tiebreak.
			names := []string{"Mara", "Tollen", "Isbet"}
			for i, n := range names {
				c := &model.Character{ID: "char-" + string(rune('a'+i)), StoryID: "story-1", Name: n}
				if err := store.Insert(ctx, c); err != nil {
					t.Fatalf("Insert(%s) = %v", n, err)
				}
			}

			chars, err := store.ListByParent(ctx, model.TypeCharacter, "story-1")
			if err != nil {
				t.Fatalf("ListByParent() = %v", err)
			}
			if len(chars) != len(names) {
				t.Fatalf("ListByParent() returned %d characters, want %d", len(chars), len(names))
			}
			for i, e := range chars {
				if got := e.(*model.Character).Name; got != names[i] {
					t.Errorf("chars[%d].Name = %s, want %s", i, got, names[i])
				}
			}
		})
	}
}

func TestStoreUpdate(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			content := &model.SceneContent{
				ID: "sc-1", SceneSummaryID: "ss-1", StoryID: "story-1",
				OrderIndex: 1, Text: "first draft", WordCount: 2,
			}
			if err := store.Insert(ctx, content); err != nil {
				t.Fatalf("Insert() = %v", err)
			}

			content.Text = "second draft with more words"
			content.WordCount = 5
			content.Evaluation = &model.Evaluation{Overall: 3.2, Iterations: 1}
			if err := store.Update(ctx, content); err != nil {
				t.Fatalf("Update() = %v", err)
			}

			got, err := store.Get(ctx, model.TypeSceneContent, "sc-1")
			if err != nil {
				t.Fatalf("Get() = %v", err)
			}
			loaded := got.(*model.SceneContent)
			if loaded.Text != content.Text || loaded.Evaluation == nil || loaded.Evaluation.Overall != 3.2 {
				t.Errorf("loaded content = %+v, want updated draft with evaluation", loaded)
			}

			// Updating an entity that was never inserted reports not found.
			missing := &model.SceneContent{ID: "sc-404", SceneSummaryID: "ss-1", StoryID: "story-1", OrderIndex: 2, Text: "x", WordCount: 1}
			if err := store.Update(ctx, missing); !errors.Is(err, core.ErrNotFound) {
				t.Errorf("Update(missing) = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStoreDeleteStory(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if err := store.Insert(ctx, testStory("story-1")); err != nil {
				t.Fatalf("Insert(story-1) = %v", err)
			}
			if err := store.Insert(ctx, testStory("story-2")); err != nil {
				t.Fatalf("Insert(story-2) = %v", err)
			}
			for _, c := range []*model.Character{
				{ID: "char-1", StoryID: "story-1", Name: "Mara"},
				{ID: "char-2", StoryID: "story-2", Name: "Tollen"},
			} {
				if err := store.Insert(ctx, c); err != nil {
					t.Fatalf("Insert(%s) = %v", c.ID, err)
				}
			}

			if err := store.DeleteStory(ctx, "story-1"); err != nil {
				t.Fatalf("DeleteStory() = %v", err)
			}

			if _, err := store.Get(ctx, model.TypeStory, "story-1"); !errors.Is(err, core.ErrNotFound) {
				t.Errorf("story-1 still present after delete: %v", err)
			}
			if _, err := store.Get(ctx, model.TypeCharacter, "char-1"); !errors.Is(err, core.ErrNotFound) {
				t.Errorf("char-1 still present after delete: %v", err)
			}

			// The sibling story is untouched.
			if _, err := store.Get(ctx, model.TypeStory, "story-2"); err != nil {
				t.Errorf("story-2 lost by delete of story-1: %v", err)
			}
			if _, err := store.Get(ctx, model.TypeCharacter, "char-2"); err != nil {
				t.Errorf("char-2 lost by delete of story-1: %v", err)
			}
		})
	}
}

func TestFileSystemInsertionOrderAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first := NewFileSystem(dir)
	names := []string{"Mara", "Tollen", "Isbet"}
	for i, n := range names {
		c := &model.Character{ID: "char-" + string(rune('a'+i)), StoryID: "story-1", Name: n}
		if err := first.Insert(ctx, c); err != nil {
			t.Fatalf("Insert(%s) = %v", n, err)
		}
	}

	// A fresh store over the same directory must append after the
	// already-persisted siblings, not interleave among them.
	reopened := NewFileSystem(dir)
	late := &model.Character{ID: "char-d", StoryID: "story-1", Name: "Vesper"}
	if err := reopened.Insert(ctx, late); err != nil {
		t.Fatalf("Insert(Vesper) = %v", err)
	}

	chars, err := reopened.ListByParent(ctx, model.TypeCharacter, "story-1")
	if err != nil {
		t.Fatalf("ListByParent() = %v", err)
	}
	want := append(names, "Vesper")
	if len(chars) != len(want) {
		t.Fatalf("ListByParent() returned %d characters, want %d", len(chars), len(want))
	}
	for i, e := range chars {
		if got := e.(*model.Character).Name; got != want[i] {
			t.Errorf("chars[%d].Name = %s, want %s", i, got, want[i])
		}
	}
}

func TestFileSystemSanitizePath(t *testing.T) {
	fs := NewFileSystem(t.TempDir())

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"plain relative path", "story/abc.json", false},
		{"parent traversal", "../escape.json", true},
		{"nested traversal", "story/../../escape.json", true},
		{"absolute path", "/etc/passwd", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fs.sanitizePath(tt.path)
			if tt.wantErr && err == nil {
				t.Errorf("sanitizePath(%q) = nil, want error", tt.path)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("sanitizePath(%q) = %v, want nil", tt.path, err)
			}
		})
	}
}
