package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// FileScoreStore keeps every ledger in one JSON document keyed by game mode.
// Writes are serialized in-process and land on disk via temp file + rename,
// so a reader never observes a half-written document.
type FileScoreStore struct {
	path string
	mu   sync.Mutex
}

func NewFileScoreStore(path string) *FileScoreStore {
	return &FileScoreStore{path: path}
}

func (s *FileScoreStore) Path() string {
	return s.path
}

func (s *FileScoreStore) Ledger(ctx context.Context, gameMode string) ([]ScoreRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := s.readDocument()
	if err != nil {
		return nil, err
	}
	return ledgerFromDocument(doc, gameMode)
}

func (s *FileScoreStore) UpdateLedger(ctx context.Context, gameMode string, fn LedgerFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readDocument()
	if err != nil {
		return err
	}
	current, err := ledgerFromDocument(doc, gameMode)
	if err != nil {
		return err
	}

	next, err := fn(current)
	if err != nil {
		return err
	}
	raw, err := encodeLedger(next)
	if err != nil {
		return fmt.Errorf("encoding ledger: %w", err)
	}

	doc, err = sjson.SetRawBytes(doc, gjson.Escape(gameMode), raw)
	if err != nil {
		return fmt.Errorf("patching document: %w", err)
	}
	return s.writeDocument(pretty.Pretty(doc))
}

func (s *FileScoreStore) readDocument() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []byte("{}"), nil
		}
		return nil, fmt.Errorf("reading score file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []byte("{}"), nil
	}
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		return nil, ErrCorruptDocument
	}
	return data, nil
}

func ledgerFromDocument(doc []byte, gameMode string) ([]ScoreRecord, error) {
	res := gjson.GetBytes(doc, gjson.Escape(gameMode))
	if !res.Exists() {
		return nil, nil
	}
	if !res.IsArray() {
		return nil, fmt.Errorf("%w: ledger %q is not an array", ErrCorruptDocument, gameMode)
	}
	return decodeLedger([]byte(res.Raw))
}

func (s *FileScoreStore) writeDocument(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "scores-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
