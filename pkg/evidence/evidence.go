// Package evidence keeps a log of routing decisions on disk so they can be
// attached to the eval records of the runs they started.
package evidence

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zen-systems/flowroute/pkg/adapter"
	"github.com/zen-systems/flowroute/pkg/router"
)

// DefaultDir is where decision records are written, relative to the repository root.
const DefaultDir = ".flowroute/decisions"

// DecisionRecord captures one routing decision.
type DecisionRecord struct {
	ID             string                      `json:"id"`
	Timestamp      time.Time                   `json:"timestamp"`
	PromptHash     string                      `json:"prompt_hash"`
	PromptRef      string                      `json:"prompt_ref,omitempty"`
	Recommendation *router.ModelRecommendation `json:"recommendation"`
	Call           *adapter.CallReport         `json:"call,omitempty"`
}

// Writer writes decision records under a directory.
type Writer struct {
	dir string
}

// NewWriter creates a writer rooted at dir.
func NewWriter(dir string) (*Writer, error) {
	if dir == "" {
		return nil, fmt.Errorf("decision directory is required")
	}
	if err := os.MkdirAll(filepath.Join(dir, "blobs"), 0700); err != nil {
		return nil, err
	}
	if err := os.Chmod(dir, 0700); err != nil {
		return nil, err
	}
	return &Writer{dir: dir}, nil
}

// Dir returns the decision directory path.
func (w *Writer) Dir() string {
	return w.dir
}

// Record stores the prompt as a blob and writes a decision record for rec.
func (w *Writer) Record(prompt string, rec *router.ModelRecommendation, call *adapter.CallReport) (DecisionRecord, error) {
	ref, sha, err := w.WriteBlob("prompt", []byte(prompt))
	if err != nil {
		return DecisionRecord{}, fmt.Errorf("write prompt blob: %w", err)
	}
	record := DecisionRecord{
		PromptHash:     sha,
		PromptRef:      ref,
		Recommendation: rec,
		Call:           call,
	}
	if _, err := w.Write(&record); err != nil {
		return DecisionRecord{}, err
	}
	return record, nil
}

// Write stores record as <id>.json, assigning an ID and timestamp when unset,
// and returns the file path.
func (w *Writer) Write(record *DecisionRecord) (string, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	} else if _, err := uuid.Parse(record.ID); err != nil {
		return "", fmt.Errorf("invalid decision id %q: %w", record.ID, err)
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	path := filepath.Join(w.dir, record.ID+".json")
	if err := writeJSON(path, record); err != nil {
		return "", fmt.Errorf("write decision %s: %w", record.ID, err)
	}
	return path, nil
}

// Read loads the decision record with the given ID.
func (w *Writer) Read(id string) (*DecisionRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid decision id %q: %w", id, err)
	}
	return readRecord(filepath.Join(w.dir, id+".json"))
}

// List returns every decision record, oldest first.
func (w *Writer) List() ([]DecisionRecord, error) {
	paths, err := filepath.Glob(filepath.Join(w.dir, "*.json"))
	if err != nil {
		return nil, err
	}

	records := make([]DecisionRecord, 0, len(paths))
	for _, path := range paths {
		record, err := readRecord(path)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].Timestamp.Equal(records[j].Timestamp) {
			return records[i].Timestamp.Before(records[j].Timestamp)
		}
		return records[i].ID < records[j].ID
	})
	return records, nil
}

// WriteBlob stores content under blobs/, addressed by its SHA-256, and returns
// the path relative to the decision directory along with the hex digest.
func (w *Writer) WriteBlob(kind string, content []byte) (string, string, error) {
	sum := sha256.Sum256(content)
	sha := hex.EncodeToString(sum[:])
	ref := filepath.ToSlash(filepath.Join("blobs", fmt.Sprintf("%s-%s.txt", sanitizeKind(kind), sha)))
	path := filepath.Join(w.dir, filepath.FromSlash(ref))

	if _, err := os.Stat(path); err == nil {
		return ref, sha, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", "", err
	}
	if err := os.WriteFile(path, content, 0600); err != nil {
		return "", "", err
	}
	return ref, sha, nil
}

// HashPrompt returns the hex SHA-256 of prompt, as stored in PromptHash.
func HashPrompt(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}

func sanitizeKind(kind string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(kind) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "blob"
	}
	return b.String()
}

func readRecord(path string) (*DecisionRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var record DecisionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &record, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
