package evals

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"
)

const maxLineBytes = 16 * 1024 * 1024

// JSONLSource reads records from *.jsonl files, one JSON record per line.
type JSONLSource struct {
	// Dir is read when ReadRecords is called without a directory.
	Dir    string
	Logger *slog.Logger
}

// NewJSONLSource creates a source rooted at dir. An empty dir means DefaultDir.
func NewJSONLSource(dir string) *JSONLSource {
	if dir == "" {
		dir = DefaultDir
	}
	return &JSONLSource{Dir: dir}
}

// ReadRecords reads every *.jsonl file in dir, or dir itself when it is a file.
// Files are read concurrently and merged in lexical filename order. Blank,
// malformed and invalid lines are skipped.
func (s *JSONLSource) ReadRecords(ctx context.Context, dir string) ([]Record, error) {
	if dir == "" {
		dir = s.Dir
	}
	if dir == "" {
		dir = DefaultDir
	}

	files, err := recordFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return []Record{}, nil
	}

	perFile := make([][]Record, len(files))
	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			records, err := s.readFile(ctx, path)
			if err != nil {
				return err
			}
			perFile[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	records := []Record{}
	for _, batch := range perFile {
		records = append(records, batch...)
	}
	return records, nil
}

func recordFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return []string{dir}, nil
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.jsonl"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func (s *JSONLSource) readFile(ctx context.Context, path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	logger := s.logger()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var records []Record
	line := 0
	for scanner.Scan() {
		line++
		if line%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		raw := scanner.Bytes()
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}

		var record Record
		if err := json.Unmarshal(raw, &record); err != nil {
			logger.Debug("skipping malformed eval record", "file", path, "line", line, "error", err)
			continue
		}
		if !valid(record) {
			logger.Debug("skipping invalid eval record", "file", path, "line", line, "model", record.ModelID)
			continue
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return records, nil
}

func (s *JSONLSource) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
