// Package journal records every write-back in a JSON file so a patched
// target can be audited later.
package journal

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

type Entry struct {
	ID           string    `json:"id"`
	Root         string    `json:"root"`
	Path         string    `json:"path"`
	Kind         string    `json:"kind"`
	BeforeSHA256 string    `json:"before_sha256,omitempty"`
	AfterSHA256  string    `json:"after_sha256"`
	BeforeBytes  int       `json:"before_bytes"`
	AfterBytes   int       `json:"after_bytes"`
	Created      bool      `json:"created,omitempty"`
	At           time.Time `json:"at"`
}

type Journal struct {
	Entries []Entry `json:"entries"`
}

// Load reads the journal at path. A missing file yields an empty journal.
func Load(fsys afero.Fs, path string) (*Journal, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Journal{Entries: []Entry{}}, nil
		}
		return nil, err
	}

	var j Journal
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parsing journal %s: %w", path, err)
	}
	if j.Entries == nil {
		j.Entries = []Entry{}
	}

	return &j, nil
}

func (j *Journal) Save(fsys afero.Fs, path string) error {
	// Ensure directory exists
	if err := fsys.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(j, "", "  ")
	if err != nil {
		return err
	}

	return afero.WriteFile(fsys, path, data, 0644)
}

// Add appends entry, assigning it an ID if it has none.
func (j *Journal) Add(entry Entry) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	j.Entries = append(j.Entries, entry)
}

func (j *Journal) Latest() *Entry {
	if len(j.Entries) == 0 {
		return nil
	}
	return &j.Entries[len(j.Entries)-1]
}

// ForRoot returns the entries recorded against root, oldest first.
func (j *Journal) ForRoot(root string) []Entry {
	var out []Entry
	for _, e := range j.Entries {
		if e.Root == root {
			out = append(out, e)
		}
	}
	return out
}

// Prune drops the oldest entries beyond keepLast and returns how many were
// removed. keepLast <= 0 keeps everything.
func (j *Journal) Prune(keepLast int) int {
	if keepLast <= 0 || len(j.Entries) <= keepLast {
		return 0
	}

	// Entries are ordered oldest to newest
	toRemove := len(j.Entries) - keepLast
	j.Entries = append([]Entry(nil), j.Entries[toRemove:]...)
	return toRemove
}

// HashText returns the hex SHA-256 of text.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
