package store

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"spotforge/server/spot"
)

// File keeps spots in one file: a JSON array when the name ends in .json,
// one record per line otherwise. Writes go to a temp file that is renamed
// over the original.
type File struct {
	path string
	log  *zap.Logger
	mu   sync.Mutex
}

func OpenFile(path string, log *zap.Logger) *File {
	if log == nil {
		log = zap.NewNop()
	}
	return &File{path: path, log: log}
}

func (f *File) Path() string { return f.path }

func (f *File) array() bool { return strings.EqualFold(filepath.Ext(f.path), ".json") }

func (f *File) List(ctx context.Context) ([]*spot.Spot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	spots, _, err := f.read()
	return spots, err
}

func (f *File) Get(ctx context.Context, id string) (*spot.Spot, error) {
	spots, err := f.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range spots {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, ErrNotFound
}

func (f *File) Replace(ctx context.Context, spots []*spot.Spot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	repl, err := byID(spots)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, bad, err := f.read()
	if err != nil {
		return err
	}
	if len(bad) > 0 {
		return fmt.Errorf("store: %s:%d: %w", f.path, bad[0], ErrUnreadable)
	}
	for i, s := range cur {
		if r, ok := repl[s.ID]; ok {
			cur[i] = r
			delete(repl, s.ID)
		}
	}
	for _, s := range spots {
		if s != nil && repl[s.ID] == s {
			cur = append(cur, s)
			delete(repl, s.ID)
		}
	}
	if err := f.write(cur); err != nil {
		return err
	}
	f.log.Debug("spots written", zap.String("path", f.path), zap.Int("replaced", len(spots)), zap.Int("total", len(cur)))
	return nil
}

func (f *File) Close() error { return nil }

// read decodes every record. A JSONL line that is not JSON at all comes
// back as a spot whose only content is the decode error, and its line
// number is returned in bad.
func (f *File) read() (spots []*spot.Spot, bad []int, err error) {
	b, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []*spot.Spot{}, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("store: read %s: %w", f.path, err)
	}
	if f.array() {
		var out []*spot.Spot
		if len(bytes.TrimSpace(b)) == 0 {
			return []*spot.Spot{}, nil, nil
		}
		if err := json.Unmarshal(b, &out); err != nil {
			return nil, nil, fmt.Errorf("store: decode %s: %w", f.path, err)
		}
		for i, s := range out {
			if s == nil {
				out[i] = &spot.Spot{Defects: []string{fmt.Sprintf("record %d: null", i+1)}}
				bad = append(bad, i+1)
			}
		}
		return out, bad, nil
	}
	out := []*spot.Spot{}
	sc := bufio.NewScanner(bytes.NewReader(b))
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var s spot.Spot
		if err := json.Unmarshal(raw, &s); err != nil {
			f.log.Warn("undecodable record", zap.String("path", f.path), zap.Int("line", line), zap.Error(err))
			s = spot.Spot{Defects: []string{fmt.Sprintf("line %d: undecodable record: %v", line, err)}}
			bad = append(bad, line)
		}
		out = append(out, &s)
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("store: scan %s: %w", f.path, err)
	}
	return out, bad, nil
}

func (f *File) write(spots []*spot.Spot) error {
	var buf bytes.Buffer
	if f.array() {
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(spots); err != nil {
			return fmt.Errorf("store: encode: %w", err)
		}
	} else {
		enc := json.NewEncoder(&buf)
		for _, s := range spots {
			if err := enc.Encode(s); err != nil {
				return fmt.Errorf("store: encode %s: %w", s.ID, err)
			}
		}
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".*")
	if err != nil {
		return fmt.Errorf("store: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("store: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("store: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("store: rename: %w", err)
	}
	return nil
}
