// Package store owns the single-file JSON document that holds every
// collection in the system. Each operation performs its own
// load-mutate-save cycle against a full snapshot; the file, not memory,
// is the source of truth between requests. Save replaces the file
// atomically, but there is no locking between Load and Save: overlapping
// cycles race, and the last Save wins. That is the store's contract.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/NgumtsaB/web-programming-project/pkg/domain"
)

// Document is the root of the persisted state. Its JSON shape is the
// on-disk format and is inspected by external tooling, so field names
// and layout must stay stable.
type Document struct {
	Users      []domain.User     `json:"users"`
	Categories []domain.Category `json:"categories"`
	Catalogue  []domain.Product  `json:"catalogue"`
	Comments   []domain.Comment  `json:"comments"`
	Likes      []domain.Like     `json:"likes"`
	Orders     []domain.Order    `json:"orders"`
	Stats      domain.Stats      `json:"stats"`
	Sessions   []domain.Session  `json:"sessions"`
}

// NewDocument returns an empty document with every collection present,
// so the first save already has the full top-level shape.
func NewDocument() *Document {
	return &Document{
		Users:      []domain.User{},
		Categories: []domain.Category{},
		Catalogue:  []domain.Product{},
		Comments:   []domain.Comment{},
		Likes:      []domain.Like{},
		Orders:     []domain.Order{},
		Stats: domain.Stats{
			BestSellers: []int{},
			NewArrivals: []int{},
			Featured:    []int{},
		},
		Sessions: []domain.Session{},
	}
}

// Store reads and writes the document file. It keeps no in-memory state.
type Store struct {
	path string
}

// New binds a store to the document file path.
func New(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("store: document path is required")
	}
	return &Store{path: path}, nil
}

// Path returns the document file path.
func (s *Store) Path() string {
	return s.path
}

// Load returns the full document. A missing file is initialized with the
// empty template and persisted before returning; any other read or parse
// failure is an error and the caller should not continue.
func (s *Store) Load() (*Document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		doc := NewDocument()
		if err := s.Save(doc); err != nil {
			return nil, fmt.Errorf("initialize document: %w", err)
		}
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	doc := &Document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("parse document %s: %w", s.path, err)
	}
	return doc, nil
}

// Save persists the full document atomically: serialize to a temp file in
// the target directory, then rename over the target. A reader never sees
// a partial file, and a failed save leaves the previous file intact.
func (s *Store) Save(doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp document: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp document: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace document: %w", err)
	}
	return nil
}

// NextID allocates the next identifier for a collection: 1 when empty,
// otherwise max+1. Deleting the highest id frees it for reuse; external
// tooling relies on ids being derived from the document, not a counter.
func NextID[T any](items []T, id func(T) int) int {
	next := 1
	for _, item := range items {
		if v := id(item); v >= next {
			next = v + 1
		}
	}
	return next
}
