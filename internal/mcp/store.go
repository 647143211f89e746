package mcp

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DocStore is the file-backed document repository behind the provider. Roots
// map logical names (requirements, architecture) to directories; every access
// is restricted to a root and an extension allowlist.
type DocStore struct {
	roots map[string]string
	exts  map[string]bool
	now   func() time.Time
}

func NewDocStore(roots map[string]string) *DocStore {
	return &DocStore{
		roots: roots,
		exts:  map[string]bool{".md": true, ".mmd": true},
		now:   time.Now,
	}
}

func (s *DocStore) rootDir(root string) (string, error) {
	dir, ok := s.roots[root]
	if !ok {
		return "", fmt.Errorf("unknown root: %s", root)
	}
	return dir, nil
}

func (s *DocStore) safePath(root, name string) (string, error) {
	dir, err := s.rootDir(root)
	if err != nil {
		return "", err
	}
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", fmt.Errorf("unsafe document name: %q", name)
	}
	if !s.exts[strings.ToLower(filepath.Ext(name))] {
		return "", fmt.Errorf("extension not allowed: %s", name)
	}
	return filepath.Join(dir, name), nil
}

// List returns the sorted document names under root, optionally filtered to
// the given extensions.
func (s *DocStore) List(root string, exts []string) ([]string, error) {
	dir, err := s.rootDir(root)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", root, err)
	}
	want := map[string]bool{}
	for _, e := range exts {
		want[strings.ToLower(e)] = true
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !s.exts[ext] {
			continue
		}
		if len(want) > 0 && !want[ext] {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (s *DocStore) ReadText(root, name string) (string, error) {
	path, err := s.safePath(root, name)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s/%s: %w", root, name, err)
	}
	return string(data), nil
}

func (s *DocStore) WriteText(root, name, content string) error {
	path, err := s.safePath(root, name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0644)
}

func (s *DocStore) Count(root string) (int, error) {
	names, err := s.List(root, nil)
	if err != nil {
		return 0, err
	}
	return len(names), nil
}

// NextID allocates the next requirement identifier by scanning existing names
// for the highest numeric suffix and ensuring the result is unused.
func (s *DocStore) NextID() (string, error) {
	names, err := s.List(RootRequirements, nil)
	if err != nil {
		return "", err
	}
	max := 0
	for _, n := range names {
		base := strings.TrimSuffix(n, filepath.Ext(n))
		if !strings.HasPrefix(strings.ToUpper(base), "REQ-") {
			continue
		}
		digits := keepDigits(base)
		if digits == "" {
			continue
		}
		v := 0
		fmt.Sscanf(digits, "%d", &v)
		if v > max {
			max = v
		}
	}
	next := max + 1
	for taken(names, next) {
		next++
	}
	return fmt.Sprintf("REQ-%03d", next), nil
}

func taken(names []string, n int) bool {
	id := fmt.Sprintf("REQ-%03d", n)
	for _, name := range names {
		base := strings.TrimSuffix(name, filepath.Ext(name))
		if strings.EqualFold(base, id) {
			return true
		}
	}
	return false
}

func keepDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PreviewCreate allocates the next id and returns the stub document that a
// create operation would write, without writing it.
func (s *DocStore) PreviewCreate(title string) (name, content string, err error) {
	id, err := s.NextID()
	if err != nil {
		return "", "", err
	}
	if strings.TrimSpace(title) == "" {
		title = "New Requirement"
	}
	name = id + ".md"
	content = fmt.Sprintf("---\nid: %s\ntitle: %s\nstatus: draft\ncreated: %s\n---\n\nShort description.\n",
		id, title, s.now().Format("2006-01-02"))
	return name, content, nil
}

// Diff renders a line diff between the current document (empty if absent) and
// the proposed content. The rendered text doubles as the expected-state
// fingerprint for ApplyWrite.
func (s *DocStore) Diff(root, name, proposed string) (string, error) {
	path, err := s.safePath(root, name)
	if err != nil {
		return "", err
	}
	current := ""
	if data, err := os.ReadFile(path); err == nil {
		current = string(data)
	}
	return renderDiff(name, current, proposed), nil
}

// ApplyWrite commits a previously previewed write. The diff is recomputed
// against the repository as it is now; if it no longer matches expectedDiff
// the document changed since preview time and the write is refused.
func (s *DocStore) ApplyWrite(root, name, content, expectedDiff string) error {
	fresh, err := s.Diff(root, name, content)
	if err != nil {
		return err
	}
	if fresh != expectedDiff {
		return &RPCError{Code: CodeDiffConflict, Message: "diff conflict: document changed since preview"}
	}
	return s.WriteText(root, name, content)
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func renderDiff(name, current, proposed string) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(current, proposed)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var sb strings.Builder
	fmt.Fprintf(&sb, "--- %s (current)\n+++ %s (proposed)\n", name, name)
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		}
		for _, line := range splitLines(d.Text) {
			sb.WriteString(prefix)
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
