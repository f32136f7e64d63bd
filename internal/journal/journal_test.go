package journal

import (
	"testing"
	"time"

	"github.com/spf13/afero"
)

const journalPath = "/home/u/.unpin/journal.json"

func sampleEntries() []Entry {
	return []Entry{
		{
			Root:         "/srv/app.zip",
			Path:         "cfg.json",
			Kind:         "archive",
			BeforeSHA256: HashText(`{"v":1}`),
			AfterSHA256:  HashText(`{"v":2}`),
			BeforeBytes:  7,
			AfterBytes:   7,
			At:           time.Date(2024, 12, 15, 10, 0, 0, 0, time.UTC),
		},
		{
			Root:        "/srv/extracted",
			Path:        "a/new.txt",
			Kind:        "directory",
			AfterSHA256: HashText("hi"),
			AfterBytes:  2,
			Created:     true,
			At:          time.Date(2024, 12, 16, 10, 0, 0, 0, time.UTC),
		},
	}
}

func TestJournalSerializationRoundTrip(t *testing.T) {
	fsys := afero.NewMemMapFs()
	original := &Journal{Entries: sampleEntries()}

	if err := original.Save(fsys, journalPath); err != nil {
		t.Fatalf("Failed to save journal: %v", err)
	}

	loaded, err := Load(fsys, journalPath)
	if err != nil {
		t.Fatalf("Failed to load journal: %v", err)
	}

	if len(loaded.Entries) != len(original.Entries) {
		t.Fatalf("Entries count = %d, expected %d", len(loaded.Entries), len(original.Entries))
	}
	for i, e := range loaded.Entries {
		orig := original.Entries[i]
		if e.Root != orig.Root || e.Path != orig.Path || e.Kind != orig.Kind {
			t.Errorf("Entry[%d] = %+v, expected %+v", i, e, orig)
		}
		if e.BeforeSHA256 != orig.BeforeSHA256 || e.AfterSHA256 != orig.AfterSHA256 {
			t.Errorf("Entry[%d] hashes differ", i)
		}
		if e.Created != orig.Created {
			t.Errorf("Entry[%d].Created = %v, expected %v", i, e.Created, orig.Created)
		}
		if !e.At.Equal(orig.At) {
			t.Errorf("Entry[%d].At = %v, expected %v", i, e.At, orig.At)
		}
	}
}

func TestLoadMissingJournal(t *testing.T) {
	j, err := Load(afero.NewMemMapFs(), journalPath)
	if err != nil {
		t.Fatalf("Load should not error for missing journal: %v", err)
	}
	if j.Entries == nil || len(j.Entries) != 0 {
		t.Errorf("Entries should be empty and non-nil, got %#v", j.Entries)
	}
}

func TestLoadMalformedJournal(t *testing.T) {
	fsys := afero.NewMemMapFs()
	if err := afero.WriteFile(fsys, journalPath, []byte("this is not valid json {{{"), 0644); err != nil {
		t.Fatalf("Failed to write journal: %v", err)
	}

	if _, err := Load(fsys, journalPath); err == nil {
		t.Error("Load should fail for malformed JSON")
	}
}

func TestLoadNullEntries(t *testing.T) {
	fsys := afero.NewMemMapFs()
	if err := afero.WriteFile(fsys, journalPath, []byte(`{"entries":null}`), 0644); err != nil {
		t.Fatalf("Failed to write journal: %v", err)
	}

	j, err := Load(fsys, journalPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if j.Entries == nil {
		t.Error("Entries should be non-nil")
	}
}

func TestLatest(t *testing.T) {
	j := &Journal{}
	if j.Latest() != nil {
		t.Error("Latest should be nil for empty journal")
	}

	for _, e := range sampleEntries() {
		j.Add(e)
	}
	latest := j.Latest()
	if latest == nil || latest.Path != "a/new.txt" {
		t.Errorf("Latest = %+v, expected a/new.txt", latest)
	}
}

func TestForRoot(t *testing.T) {
	j := &Journal{Entries: sampleEntries()}
	j.Add(Entry{Root: "/srv/app.zip", Path: "README"})

	got := j.ForRoot("/srv/app.zip")
	if len(got) != 2 {
		t.Fatalf("ForRoot returned %d entries, expected 2", len(got))
	}
	if got[0].Path != "cfg.json" || got[1].Path != "README" {
		t.Errorf("ForRoot order = %q, %q", got[0].Path, got[1].Path)
	}
	if len(j.ForRoot("/elsewhere")) != 0 {
		t.Error("ForRoot should be empty for unknown root")
	}
}

func TestAddAssignsID(t *testing.T) {
	j := &Journal{}
	j.Add(Entry{Path: "a"})
	j.Add(Entry{ID: "fixed", Path: "b"})

	if j.Entries[0].ID == "" {
		t.Error("Add should assign an ID")
	}
	if j.Entries[1].ID != "fixed" {
		t.Errorf("ID = %q, expected existing ID kept", j.Entries[1].ID)
	}
}

func TestPrune(t *testing.T) {
	tests := []struct {
		name        string
		entries     int
		keepLast    int
		wantRemoved int
		wantFirst   string
	}{
		{"under limit", 3, 5, 0, "p0"},
		{"exactly at limit", 3, 3, 0, "p0"},
		{"over limit", 5, 2, 3, "p3"},
		{"zero keeps all", 4, 0, 0, "p0"},
		{"negative keeps all", 4, -1, 0, "p0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := &Journal{}
			for i := 0; i < tt.entries; i++ {
				j.Add(Entry{Path: "p" + string(rune('0'+i))})
			}

			removed := j.Prune(tt.keepLast)
			if removed != tt.wantRemoved {
				t.Errorf("Prune removed %d, expected %d", removed, tt.wantRemoved)
			}
			if len(j.Entries) != tt.entries-tt.wantRemoved {
				t.Errorf("len = %d, expected %d", len(j.Entries), tt.entries-tt.wantRemoved)
			}
			if j.Entries[0].Path != tt.wantFirst {
				t.Errorf("first = %q, expected %q", j.Entries[0].Path, tt.wantFirst)
			}
		})
	}
}

func TestHashText(t *testing.T) {
	// echo -n hello | sha256sum
	want := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if got := HashText("hello"); got != want {
		t.Errorf("HashText(hello) = %s, expected %s", got, want)
	}
	if HashText("") == HashText(" ") {
		t.Error("distinct inputs must hash differently")
	}
}
