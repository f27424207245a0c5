package storage

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/matsen/arxivterm/internal/paper"
)

var baseTime = time.Date(2023, 1, 1, 9, 30, 0, 0, time.UTC)

// testPapers returns three papers: two published 2023-01-01, one 2023-01-02.
func testPapers() []paper.Paper {
	return []paper.Paper{
		{
			EntryID:    "http://arxiv.org/abs/2301.00002v1",
			Updated:    baseTime.Add(2 * time.Hour),
			Published:  baseTime.Add(2 * time.Hour),
			Title:      "Test Paper 2",
			Summary:    "This is another test paper about Reinforcement Learning.",
			Authors:    []string{"John Doe", "Jane Smith"},
			Categories: []string{"cs.AI", "cs.CL"},
		},
		{
			EntryID:    "http://arxiv.org/abs/2301.00001v1",
			Updated:    baseTime,
			Published:  baseTime,
			Title:      "Test Paper 1",
			Summary:    "This is a test paper.",
			Authors:    []string{"John Doe", "Jane Smith"},
			Categories: []string{"cs.AI"},
		},
		{
			EntryID:    "http://arxiv.org/abs/2301.00003v1",
			Updated:    baseTime.Add(24 * time.Hour),
			Published:  baseTime.Add(24 * time.Hour),
			Title:      "Graph Neural Networks at 100% Scale",
			Summary:    "We scale message_passing networks.",
			Authors:    []string{"Alice Jones"},
			Categories: []string{"cs.LG"},
		},
	}
}

// setupTestDB creates a test database populated with testPapers.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := OpenDB(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("Failed to open test DB: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.UpsertMany(testPapers()); err != nil {
		t.Fatalf("UpsertMany() error = %v", err)
	}
	return db
}

func entryIDs(papers []paper.Paper) []string {
	ids := make([]string, len(papers))
	for i, p := range papers {
		ids[i] = p.EntryID
	}
	return ids
}

func TestOpenDB_CreatesSchema(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := OpenDB(dbPath, nil)
	if err != nil {
		t.Fatalf("OpenDB() error = %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("OpenDB() did not create database file")
	}

	count, err := db.Count()
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 0 {
		t.Errorf("Count() = %d, want 0", count)
	}
}

func TestOpenDB_Unavailable(t *testing.T) {
	// A directory path cannot be opened as a database file.
	_, err := OpenDB(t.TempDir(), nil)
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("OpenDB(dir) error = %v, want ErrStoreUnavailable", err)
	}
}

func TestDB_UpsertMany_RoundTrip(t *testing.T) {
	db := setupTestDB(t)

	got, err := db.Get("http://arxiv.org/abs/2301.00002v1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	want := testPapers()[0]
	if got.Title != want.Title || got.Summary != want.Summary {
		t.Errorf("Get() = %q/%q, want %q/%q", got.Title, got.Summary, want.Title, want.Summary)
	}
	if !reflect.DeepEqual(got.Authors, want.Authors) {
		t.Errorf("Authors = %v, want %v", got.Authors, want.Authors)
	}
	if !reflect.DeepEqual(got.Categories, want.Categories) {
		t.Errorf("Categories = %v, want %v", got.Categories, want.Categories)
	}
	if !got.Published.Equal(want.Published) {
		t.Errorf("Published = %v, want %v", got.Published, want.Published)
	}
	if got.Viewed {
		t.Error("new paper should not be viewed")
	}
}

func TestDB_UpsertMany_Idempotent(t *testing.T) {
	db := setupTestDB(t)

	p := testPapers()[:1]
	stats, err := db.UpsertMany(p)
	if err != nil {
		t.Fatalf("UpsertMany() error = %v", err)
	}
	if stats.Inserted != 0 || stats.Updated != 1 {
		t.Errorf("UpsertMany() = %+v, want 0 inserted / 1 updated", stats)
	}

	count, _ := db.Count()
	if count != 3 {
		t.Errorf("Count() = %d, want 3", count)
	}
}

func TestDB_UpsertMany_OverwritesFieldsPreservesViewed(t *testing.T) {
	db := setupTestDB(t)

	id := "http://arxiv.org/abs/2301.00001v1"
	if err := db.MarkViewed(id); err != nil {
		t.Fatalf("MarkViewed() error = %v", err)
	}

	p := testPapers()[1]
	p.Title = "Test Paper 1 (revised)"
	p.Authors = []string{"John Doe"}
	if _, err := db.UpsertMany([]paper.Paper{p}); err != nil {
		t.Fatalf("UpsertMany() error = %v", err)
	}

	got, err := db.Get(id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Title != "Test Paper 1 (revised)" {
		t.Errorf("Title = %q, want revised title", got.Title)
	}
	if !reflect.DeepEqual(got.Authors, []string{"John Doe"}) {
		t.Errorf("Authors = %v, want [John Doe]", got.Authors)
	}
	if !got.Viewed {
		t.Error("re-ingestion should not reset viewed")
	}
}

func TestDB_UpsertMany_DuplicateInBatch(t *testing.T) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("OpenDB() error = %v", err)
	}
	defer db.Close()

	p := testPapers()[0]
	stats, err := db.UpsertMany([]paper.Paper{p, p})
	if err != nil {
		t.Fatalf("UpsertMany() error = %v", err)
	}
	if stats.Inserted != 1 || stats.Updated != 1 {
		t.Errorf("UpsertMany() = %+v, want 1 inserted / 1 updated", stats)
	}
}

func TestDB_UpsertMany_EmptyEntryID(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.UpsertMany([]paper.Paper{{Title: "No ID"}})
	if !errors.Is(err, ErrEmptyEntryID) {
		t.Errorf("UpsertMany() error = %v, want ErrEmptyEntryID", err)
	}

	count, _ := db.Count()
	if count != 3 {
		t.Errorf("Count() = %d, want 3 (nothing written)", count)
	}
}

func TestDB_PublishedAfter(t *testing.T) {
	db := setupTestDB(t)

	tests := []struct {
		name      string
		threshold time.Time
		want      []string
	}{
		{
			name:      "all",
			threshold: baseTime.Add(-10 * 24 * time.Hour),
			want: []string{
				"http://arxiv.org/abs/2301.00001v1",
				"http://arxiv.org/abs/2301.00002v1",
				"http://arxiv.org/abs/2301.00003v1",
			},
		},
		{
			name:      "inclusive bound",
			threshold: baseTime.Add(2 * time.Hour),
			want: []string{
				"http://arxiv.org/abs/2301.00002v1",
				"http://arxiv.org/abs/2301.00003v1",
			},
		},
		{
			name:      "non-UTC threshold",
			threshold: baseTime.Add(3 * time.Hour).In(time.FixedZone("EST", -5*3600)),
			want:      []string{"http://arxiv.org/abs/2301.00003v1"},
		},
		{
			name:      "future",
			threshold: baseTime.Add(365 * 24 * time.Hour),
			want:      []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			papers, err := db.PublishedAfter(tt.threshold)
			if err != nil {
				t.Fatalf("PublishedAfter() error = %v", err)
			}
			got := entryIDs(papers)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("PublishedAfter() = %v, want %v", got, tt.want)
			}
			for _, p := range papers {
				if p.Published.Before(tt.threshold) {
					t.Errorf("paper %s published %v before threshold %v", p.EntryID, p.Published, tt.threshold)
				}
			}
		})
	}
}

func TestDB_ListAll(t *testing.T) {
	db := setupTestDB(t)

	papers, err := db.ListAll()
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(papers) != 3 {
		t.Fatalf("ListAll() returned %d papers, want 3", len(papers))
	}
	for i := 1; i < len(papers); i++ {
		if papers[i].Published.Before(papers[i-1].Published) {
			t.Errorf("ListAll() not ascending at %d", i)
		}
	}
}

func TestDB_SearchText(t *testing.T) {
	db := setupTestDB(t)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"summary match", "another", []string{"http://arxiv.org/abs/2301.00002v1"}},
		{"title match", "Test Paper 1", []string{"http://arxiv.org/abs/2301.00001v1"}},
		{"case insensitive", "REINFORCEMENT learning", []string{"http://arxiv.org/abs/2301.00002v1"}},
		{"title or summary", "test paper", []string{
			"http://arxiv.org/abs/2301.00001v1",
			"http://arxiv.org/abs/2301.00002v1",
		}},
		{"no match", "quantum chromodynamics", []string{}},
		{"literal percent", "100%", []string{"http://arxiv.org/abs/2301.00003v1"}},
		{"percent is not a wildcard", "Test%Paper", []string{}},
		{"literal underscore", "message_passing", []string{"http://arxiv.org/abs/2301.00003v1"}},
		{"underscore is not a wildcard", "Test_Paper", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			papers, err := db.SearchText(tt.query)
			if err != nil {
				t.Fatalf("SearchText() error = %v", err)
			}
			got := entryIDs(papers)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SearchText(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestDB_SearchText_Unicode(t *testing.T) {
	db := setupTestDB(t)
	if _, err := db.UpsertMany([]paper.Paper{{
		EntryID:   "http://arxiv.org/abs/2301.00004v1",
		Published: baseTime,
		Title:     "Über Bäume",
		Summary:   "Résumé of the ÉCOLE results.",
	}}); err != nil {
		t.Fatal(err)
	}

	for _, query := range []string{"über", "ÜBER bäume", "école", "RÉSUMÉ"} {
		papers, err := db.SearchText(query)
		if err != nil {
			t.Fatalf("SearchText(%q) error = %v", query, err)
		}
		if got := entryIDs(papers); !reflect.DeepEqual(got, []string{"http://arxiv.org/abs/2301.00004v1"}) {
			t.Errorf("SearchText(%q) = %v, want the Über paper", query, got)
		}
	}
}

func TestDB_ImportPapers_RestoresViewed(t *testing.T) {
	db := setupTestDB(t)
	if err := db.MarkViewed("http://arxiv.org/abs/2301.00003v1"); err != nil {
		t.Fatal(err)
	}

	imported := testPapers()
	imported[0].Viewed = true  // existing 00002
	imported[2].Viewed = false // existing 00003, already viewed
	imported = append(imported, paper.Paper{EntryID: "http://arxiv.org/abs/2301.00005v1", Published: baseTime, Viewed: true})

	stats, err := db.ImportPapers(imported)
	if err != nil {
		t.Fatalf("ImportPapers() error = %v", err)
	}
	if stats.Inserted != 1 || stats.Updated != 3 {
		t.Errorf("ImportPapers() = %+v, want 1 inserted and 3 updated", stats)
	}

	for id, want := range map[string]bool{
		"http://arxiv.org/abs/2301.00001v1": false,
		"http://arxiv.org/abs/2301.00002v1": true,
		"http://arxiv.org/abs/2301.00003v1": true,
		"http://arxiv.org/abs/2301.00005v1": true,
	} {
		p, err := db.Get(id)
		if err != nil {
			t.Fatalf("Get(%s) error = %v", id, err)
		}
		if p.Viewed != want {
			t.Errorf("%s viewed = %v, want %v", id, p.Viewed, want)
		}
	}
}

func TestDB_ImportPapers_AllOrNothing(t *testing.T) {
	db := setupTestDB(t)

	// Make restoring the viewed flag of one stored paper fail inside the import.
	if _, err := db.db.Exec(`
		CREATE TRIGGER reject_viewed BEFORE UPDATE OF viewed ON papers
		WHEN NEW.entry_id = 'http://arxiv.org/abs/2301.00001v1'
		BEGIN SELECT RAISE(ABORT, 'rejected'); END
	`); err != nil {
		t.Fatal(err)
	}

	imported := []paper.Paper{
		{EntryID: "http://arxiv.org/abs/2301.00009v1", Published: baseTime, Title: "New", Viewed: true},
		{EntryID: "http://arxiv.org/abs/2301.00002v1", Published: baseTime, Title: "Changed title"},
		{EntryID: "http://arxiv.org/abs/2301.00001v1", Published: baseTime, Title: "Test Paper 1", Viewed: true},
	}
	if _, err := db.ImportPapers(imported); err == nil {
		t.Fatal("ImportPapers() succeeded, want the trigger error")
	}

	if n, _ := db.Count(); n != 3 {
		t.Errorf("Count() = %d after failed import, want 3", n)
	}
	if _, err := db.Get("http://arxiv.org/abs/2301.00009v1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("new paper from failed import was stored: err = %v", err)
	}
	p, err := db.Get("http://arxiv.org/abs/2301.00002v1")
	if err != nil {
		t.Fatal(err)
	}
	if p.Title != "Test Paper 2" {
		t.Errorf("title = %q after failed import, want it unchanged", p.Title)
	}
}

func TestDB_StatsByDate(t *testing.T) {
	db := setupTestDB(t)

	stats, err := db.StatsByDate()
	if err != nil {
		t.Fatalf("StatsByDate() error = %v", err)
	}

	want := []paper.DateCount{
		{Date: "2023-01-01", Count: 2},
		{Date: "2023-01-02", Count: 1},
	}
	if !reflect.DeepEqual(stats, want) {
		t.Errorf("StatsByDate() = %v, want %v", stats, want)
	}

	count, _ := db.Count()
	if paper.TotalCount(stats) != count {
		t.Errorf("stats total = %d, want %d", paper.TotalCount(stats), count)
	}
}

func TestDB_DeleteAll(t *testing.T) {
	db := setupTestDB(t)

	if err := db.DeleteAll(); err != nil {
		t.Fatalf("DeleteAll() error = %v", err)
	}

	papers, err := db.PublishedAfter(time.Time{})
	if err != nil {
		t.Fatalf("PublishedAfter() error = %v", err)
	}
	if len(papers) != 0 {
		t.Errorf("PublishedAfter() after delete = %d papers, want 0", len(papers))
	}

	found, _ := db.SearchText("test")
	if len(found) != 0 {
		t.Errorf("SearchText() after delete = %d papers, want 0", len(found))
	}

	stats, err := db.StatsByDate()
	if err != nil {
		t.Fatalf("StatsByDate() error = %v", err)
	}
	if len(stats) != 0 {
		t.Errorf("StatsByDate() after delete = %v, want empty", stats)
	}
}

func TestDB_MarkViewed(t *testing.T) {
	db := setupTestDB(t)

	id := "http://arxiv.org/abs/2301.00003v1"
	before, _ := db.Get(id)

	if err := db.MarkViewed(id); err != nil {
		t.Fatalf("MarkViewed() error = %v", err)
	}

	after, err := db.Get(id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !after.Viewed {
		t.Error("MarkViewed() did not set viewed")
	}

	after.Viewed = false
	if !reflect.DeepEqual(*before, *after) {
		t.Errorf("MarkViewed() changed other fields: before %+v, after %+v", before, after)
	}

	others, _ := db.ListAll()
	for _, p := range others {
		if p.EntryID != id && p.Viewed {
			t.Errorf("MarkViewed() also marked %s", p.EntryID)
		}
	}
}

func TestDB_MarkViewed_NotFound(t *testing.T) {
	db := setupTestDB(t)

	err := db.MarkViewed("http://arxiv.org/abs/9999.99999v1")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("MarkViewed() error = %v, want ErrNotFound", err)
	}
}

func TestDB_Get_NotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.Get("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestDB_PersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := OpenDB(dbPath, nil)
	if err != nil {
		t.Fatalf("OpenDB() error = %v", err)
	}
	if _, err := db.UpsertMany(testPapers()); err != nil {
		t.Fatalf("UpsertMany() error = %v", err)
	}
	db.Close()

	db, err = OpenDB(dbPath, nil)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer db.Close()

	count, _ := db.Count()
	if count != 3 {
		t.Errorf("Count() after reopen = %d, want 3", count)
	}
}

func TestEscapeLike(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"100%", `100\%`},
		{"a_b", `a\_b`},
		{`back\slash`, `back\\slash`},
	}
	for _, tt := range tests {
		if got := escapeLike(tt.in); got != tt.want {
			t.Errorf("escapeLike(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
