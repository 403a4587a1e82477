package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/natefinch/atomic"
)

const (
	filePerms = 0o644
	dirPerms  = 0o755
)

// FileStore keeps the collection as a JSON array in a single file.
//
// Load treats a missing, empty, or malformed file as an empty collection.
// Malformed content is logged at WARN so it does not disappear silently; the
// next Save overwrites it. Other read failures are returned to the caller.
type FileStore struct {
	path string

	mu      sync.Mutex
	written []byte // bytes of the last successful Save
}

// NewFile returns a FileStore backed by path. The file does not need to exist.
func NewFile(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (f *FileStore) Path() string { return f.path }

// Load reads and decodes the backing file.
func (f *FileStore) Load(ctx context.Context) (Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Collection{}, nil
		}
		return nil, fmt.Errorf("store: read %q: %w", f.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return Collection{}, nil
	}

	var c Collection
	if err := json.Unmarshal(data, &c); err != nil {
		slog.Warn("store: unreadable task file, treating as empty",
			"path", f.path, "err", err)
		return Collection{}, nil
	}
	if c == nil {
		c = Collection{}
	}
	return c, nil
}

// Save encodes c with two-space indentation and atomically replaces the
// backing file. Missing parent directories are created.
func (f *FileStore) Save(ctx context.Context, c Collection) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := encode(c)
	if err != nil {
		return fmt.Errorf("store: encode: %w", err)
	}

	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, dirPerms); err != nil {
			return fmt.Errorf("store: create dir %q: %w", dir, err)
		}
	}

	_, statErr := os.Stat(f.path)
	created := errors.Is(statErr, fs.ErrNotExist)

	// Recorded before the write so a watcher event racing the rename still
	// recognises the new content.
	f.mu.Lock()
	f.written = data
	f.mu.Unlock()

	if err := atomic.WriteFile(f.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("store: write %q: %w", f.path, err)
	}
	// atomic.WriteFile leaves new files with temp-file permissions.
	if created {
		if err := os.Chmod(f.path, filePerms); err != nil {
			return fmt.Errorf("store: chmod %q: %w", f.path, err)
		}
	}
	return nil
}

// holdsOwnWrite reports whether the file currently contains exactly what the
// last Save wrote.
func (f *FileStore) holdsOwnWrite() bool {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.written != nil && bytes.Equal(data, f.written)
}

// encode returns the on-disk representation of c: a JSON array indented with
// two spaces and no trailing newline. A nil collection encodes as [].
//
// The output matches JavaScript's JSON.stringify(c, null, 2) so files written
// by other tools survive a load and save unchanged: & < > U+2028 and U+2029
// stay literal, and backspace and form feed use their short escapes.
func encode(c Collection) ([]byte, error) {
	if c == nil {
		c = Collection{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	return relaxEscapes(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

// relaxEscapes rewrites the escapes encoding/json emits regardless of
// SetEscapeHTML into the forms JSON.stringify uses. Escapes are consumed in
// pairs so an escaped backslash followed by "u2028" is left alone.
func relaxEscapes(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] != '\\' || i+1 >= len(b) {
			out = append(out, b[i])
			continue
		}
		if b[i+1] == 'u' && i+6 <= len(b) {
			switch string(b[i+2 : i+6]) {
			case "2028":
				out = append(out, "\u2028"...)
				i += 5
				continue
			case "2029":
				out = append(out, "\u2029"...)
				i += 5
				continue
			case "0008":
				out = append(out, '\\', 'b')
				i += 5
				continue
			case "000c":
				out = append(out, '\\', 'f')
				i += 5
				continue
			}
		}
		out = append(out, b[i], b[i+1])
		i++
	}
	return out
}
