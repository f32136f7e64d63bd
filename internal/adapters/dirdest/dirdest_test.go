package dirdest

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/jmcdonald/unpin/internal/ports"
	"github.com/spf13/afero"
)

func newTree(t *testing.T, files map[string]string) (afero.Fs, string) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	root := "/srv/app"
	if err := fsys.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	for name, content := range files {
		full := filepath.Join(root, filepath.FromSlash(name))
		if err := fsys.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := afero.WriteFile(fsys, full, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return fsys, root
}

func collect(t *testing.T, d *DirDestination, root string) []string {
	t.Helper()
	var paths []string
	for p, err := range d.IterPaths(root) {
		if err != nil {
			t.Fatalf("IterPaths failed: %v", err)
		}
		paths = append(paths, p)
	}
	return paths
}

func readText(t *testing.T, d *DirDestination, pp ports.PathsPair) string {
	t.Helper()
	text, err := d.GetFileText(pp)
	if err != nil {
		t.Fatalf("GetFileText(%s) failed: %v", pp, err)
	}
	return text
}

func TestIterPathsYieldsLeavesOnly(t *testing.T) {
	fsys, root := newTree(t, map[string]string{
		"a/b.txt":          "hello",
		"a/c/d.txt":        "deep",
		"top.json":         "{}",
		"deep/nested/f.md": "# f",
	})
	if err := fsys.MkdirAll(filepath.Join(root, "empty"), 0o755); err != nil {
		t.Fatal(err)
	}

	paths := collect(t, New(fsys), root)
	slices.Sort(paths)

	want := []string{"a/b.txt", "a/c/d.txt", "deep/nested/f.md", "top.json"}
	if !slices.Equal(paths, want) {
		t.Errorf("paths = %v, expected %v", paths, want)
	}
}

func TestIterPathsRestartable(t *testing.T) {
	fsys, root := newTree(t, map[string]string{"x.txt": "1", "y/z.txt": "2"})
	d := New(fsys)

	first := collect(t, d, root)
	second := collect(t, d, root)
	if !slices.Equal(first, second) {
		t.Errorf("second walk = %v, expected %v", second, first)
	}
	if len(first) != 2 {
		t.Errorf("paths = %v, expected 2", first)
	}
}

func TestIterPathsEarlyStop(t *testing.T) {
	fsys, root := newTree(t, map[string]string{"a.txt": "1", "b.txt": "2", "c/d.txt": "3"})

	count := 0
	for range New(fsys).IterPaths(root) {
		count++
		break
	}
	if count != 1 {
		t.Errorf("count = %d, expected 1", count)
	}
}

func TestIterPathsMissingRoot(t *testing.T) {
	d := New(afero.NewMemMapFs())

	var gotErr error
	n := 0
	for _, err := range d.IterPaths("/nope") {
		n++
		gotErr = err
	}
	if n != 1 {
		t.Errorf("yields = %d, expected exactly one error", n)
	}
	if !errors.Is(gotErr, ports.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", gotErr)
	}
}

func TestIterPathsFollowsSymlinks(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "tree")
	shared := filepath.Join(base, "shared")
	for _, dir := range []string{root, shared} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(shared, "lib.js"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "main.js"), []byte("y"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(shared, filepath.Join(root, "vendor")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if err := os.Symlink(filepath.Join(base, "gone"), filepath.Join(root, "dangling")); err != nil {
		t.Fatal(err)
	}

	d := New(afero.NewOsFs())
	paths := collect(t, d, root)
	slices.Sort(paths)

	want := []string{"dangling", "main.js", "vendor/lib.js"}
	if !slices.Equal(paths, want) {
		t.Errorf("paths = %v, expected %v", paths, want)
	}
	if got := readText(t, d, ports.PathsPair{Root: root, Internal: "vendor/lib.js"}); got != "x" {
		t.Errorf("vendor/lib.js = %q", got)
	}
}

func TestScenarioReadWriteRoundTrip(t *testing.T) {
	fsys, root := newTree(t, map[string]string{"a/b.txt": "hello"})
	d := New(fsys)

	if paths := collect(t, d, root); !slices.Equal(paths, []string{"a/b.txt"}) {
		t.Errorf("paths = %v", paths)
	}

	pp := ports.PathsPair{Root: root, Internal: "a/b.txt"}
	if got := readText(t, d, pp); got != "hello" {
		t.Errorf("text = %q, expected hello", got)
	}

	// Repeated identical writes settle on the same content
	for i := 0; i < 2; i++ {
		if err := d.WriteBack(pp, "world"); err != nil {
			t.Fatalf("WriteBack failed: %v", err)
		}
		if got := readText(t, d, pp); got != "world" {
			t.Errorf("text after write %d = %q, expected world", i+1, got)
		}
	}
}

func TestWriteBackShorterTextTruncates(t *testing.T) {
	fsys, root := newTree(t, map[string]string{"f.txt": "a long original line"})
	d := New(fsys)
	pp := ports.PathsPair{Root: root, Internal: "f.txt"}

	if err := d.WriteBack(pp, "short"); err != nil {
		t.Fatalf("WriteBack failed: %v", err)
	}
	if got := readText(t, d, pp); got != "short" {
		t.Errorf("text = %q, expected short", got)
	}
}

func TestWriteBackCreatesFileInExistingDir(t *testing.T) {
	fsys, root := newTree(t, map[string]string{"a/b.txt": "hello"})
	d := New(fsys)

	pp := ports.PathsPair{Root: root, Internal: "a/new.txt"}
	if err := d.WriteBack(pp, "fresh"); err != nil {
		t.Fatalf("WriteBack failed: %v", err)
	}
	if got := readText(t, d, pp); got != "fresh" {
		t.Errorf("text = %q, expected fresh", got)
	}
}

func TestWriteBackMissingParent(t *testing.T) {
	fsys, root := newTree(t, map[string]string{"a/b.txt": "hello"})
	d := New(fsys)

	err := d.WriteBack(ports.PathsPair{Root: root, Internal: "missing/dir/f.txt"}, "x")
	if !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	exists, err := afero.DirExists(fsys, filepath.Join(root, "missing"))
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Error("WriteBack must not create parent directories")
	}
}

func TestWriteBackParentIsFile(t *testing.T) {
	fsys, root := newTree(t, map[string]string{"a.txt": "hello"})
	err := New(fsys).WriteBack(ports.PathsPair{Root: root, Internal: "a.txt/child"}, "x")
	if !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestWriteBackReadOnly(t *testing.T) {
	fsys, root := newTree(t, map[string]string{"a.txt": "hello"})
	d := New(afero.NewReadOnlyFs(fsys))

	err := d.WriteBack(ports.PathsPair{Root: root, Internal: "a.txt"}, "x")
	if !errors.Is(err, ports.ErrPermission) {
		t.Errorf("expected ErrPermission, got %v", err)
	}
}

func TestGetFileTextMissing(t *testing.T) {
	fsys, root := newTree(t, map[string]string{"a.txt": "hello"})

	_, err := New(fsys).GetFileText(ports.PathsPair{Root: root, Internal: "nope.txt"})
	if !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	var pe *ports.PathError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ports.PathError, got %T", err)
	}
	if pe.Op != "read" {
		t.Errorf("Op = %q, expected read", pe.Op)
	}
}

func TestGetFileTextInvalidUTF8(t *testing.T) {
	fsys, root := newTree(t, map[string]string{"bin.dat": "ok\xff\xfe"})

	_, err := New(fsys).GetFileText(ports.PathsPair{Root: root, Internal: "bin.dat"})
	if !errors.Is(err, ports.ErrDecode) {
		t.Errorf("expected ErrDecode, got %v", err)
	}
}

func TestOnDiskScenario(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "a", "b.txt")
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(file, []byte("hello"), 0o600); err != nil {
		t.Fatal(err)
	}

	d := New(afero.NewOsFs())
	if paths := collect(t, d, root); !slices.Equal(paths, []string{"a/b.txt"}) {
		t.Errorf("paths = %v", paths)
	}

	if err := d.WriteBack(ports.PathsPair{Root: root, Internal: "a/b.txt"}, "world"); err != nil {
		t.Fatalf("WriteBack failed: %v", err)
	}

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "world" {
		t.Errorf("content = %q, expected world", data)
	}

	info, err := os.Stat(file)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, existing mode must be kept", info.Mode().Perm())
	}
}
