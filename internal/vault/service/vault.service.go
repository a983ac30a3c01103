package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"unicode/utf8"

	"teamvault/internal/vault/model"
	"teamvault/internal/vault/repository"
	"teamvault/pkg/logger"
)

// Publisher receives every successfully written document together with its
// write version. Versions increase by one per write, so a receiver can order
// publications that arrive out of order.
type Publisher interface {
	Publish(doc json.RawMessage, version uint64)
}

type VaultService struct {
	Repo repository.Repository
	Feed Publisher

	// mu serializes writes; reads take the shared side.
	mu      sync.RWMutex
	version uint64
}

func NewVaultService(repo repository.Repository, feed Publisher) *VaultService {
	return &VaultService{Repo: repo, Feed: feed}
}

// Read returns the stored document in compact form, or the default document
// when nothing has been written yet.
func (s *VaultService) Read(ctx context.Context) (json.RawMessage, error) {
	doc, _, err := s.Snapshot(ctx)
	return doc, err
}

// Snapshot is Read plus the number of writes this process has completed.
func (s *VaultService) Snapshot(ctx context.Context) (json.RawMessage, uint64, error) {
	s.mu.RLock()
	data, err := s.Repo.Load(ctx)
	version := s.version
	s.mu.RUnlock()

	if errors.Is(err, model.ErrNotFound) {
		return append(json.RawMessage(nil), model.DefaultDocument...), version, nil
	}
	if err != nil {
		return nil, version, fmt.Errorf("load document: %w", err)
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		logger.Sugar.Errorf("Stored document is not valid JSON: %v", err)
		return nil, version, fmt.Errorf("%w: %v", model.ErrCorruptDocument, err)
	}
	return buf.Bytes(), version, nil
}

// Write replaces the whole document. The stored form is indented with two
// spaces. Nothing is stored or published when body is not valid UTF-8 JSON.
func (s *VaultService) Write(ctx context.Context, body []byte) error {
	compact, pretty, err := Normalize(body)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if err := s.Repo.Save(ctx, pretty); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("save document: %w", err)
	}
	s.version++
	version := s.version
	s.mu.Unlock()

	logger.Sugar.Infof("Document replaced (version %d, %d bytes)", version, len(pretty))
	if s.Feed != nil {
		s.Feed.Publish(compact, version)
	}
	return nil
}

// Normalize validates body and returns its compact and indented encodings.
func Normalize(body []byte) (compact, pretty []byte, err error) {
	if !utf8.Valid(body) {
		return nil, nil, fmt.Errorf("%w: body is not valid UTF-8", model.ErrInvalidDocument)
	}

	var c bytes.Buffer
	if err := json.Compact(&c, body); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", model.ErrInvalidDocument, err)
	}

	var p bytes.Buffer
	if err := json.Indent(&p, c.Bytes(), "", "  "); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", model.ErrInvalidDocument, err)
	}
	return c.Bytes(), p.Bytes(), nil
}
