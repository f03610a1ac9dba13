package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"insightbot/pkg/logx"
)

const (
	processedFile  = "processed.json"
	checkpointFile = "checkpoint.json"
)

// fileStore keeps each document as pretty-printed JSON so operators can
// read and, in a pinch, hand-edit the state.
//
// Writes go through a temp file + rename, so a reader never observes a
// half-written document under normal operation.
type fileStore struct {
	dir string
	log logx.Logger

	mu sync.Mutex
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	dir := strings.TrimSpace(cfg.Dir)
	if dir == "" {
		return nil, errors.New("state.dir is required for file driver")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &fileStore{dir: dir, log: log}, nil
}

func (s *fileStore) Close() error { return nil }

func (s *fileStore) LoadProcessed(ctx context.Context) ProcessedSet {
	_ = ctx
	var set ProcessedSet
	if !s.loadDoc(processedFile, &set) {
		return ProcessedSet{}
	}
	return set
}

func (s *fileStore) SaveProcessed(ctx context.Context, set ProcessedSet) error {
	_ = ctx
	return s.saveDoc(processedFile, set)
}

func (s *fileStore) LoadCheckpoint(ctx context.Context) Checkpoint {
	_ = ctx
	var cp Checkpoint
	if !s.loadDoc(checkpointFile, &cp) {
		return Checkpoint{}
	}
	return cp
}

func (s *fileStore) SaveCheckpoint(ctx context.Context, cp Checkpoint) error {
	_ = ctx
	return s.saveDoc(checkpointFile, cp)
}

// loadDoc fills out from the named document and reports whether out is
// usable. On false the caller must discard out: json.Unmarshal can fill
// part of the target before hitting a type error, and a half-decoded
// document must read as empty. Corruption is a warn, absence is normal on
// first run.
func (s *fileStore) loadDoc(name string, out any) bool {
	path := filepath.Join(s.dir, name)

	s.mu.Lock()
	data, err := os.ReadFile(path)
	s.mu.Unlock()

	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("state read failed, starting empty", logx.String("file", name), logx.Err(err))
		}
		return os.IsNotExist(err)
	}
	if len(data) == 0 {
		return true
	}
	if err := json.Unmarshal(data, out); err != nil {
		s.log.Warn("state unreadable, starting empty", logx.String("file", name), logx.Err(err))
		return false
	}
	return true
}

func (s *fileStore) saveDoc(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
