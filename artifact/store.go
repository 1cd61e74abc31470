// Package artifact persists the per-concept records of an inference run:
// the group record and the in/out likelihood tables.
//
// Records are write-once. Recomputing a concept overwrites its records; there
// is no versioning. Keys follow a fixed convention:
//
//	<prefix>_<nid>_group   partition.Group
//	<prefix>_<nid>_df_in   likelihood.Table of the in-group
//	<prefix>_<nid>_df_out  likelihood.Table of the out-group
package artifact

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/ontoinfer/blobstore"
	"github.com/hupe1980/ontoinfer/codec"
	"github.com/hupe1980/ontoinfer/likelihood"
	"github.com/hupe1980/ontoinfer/partition"
	"github.com/hupe1980/ontoinfer/resource"
)

// DefaultPrefix is used when no prefix is configured.
const DefaultPrefix = "concept"

const (
	suffixGroup = "_group"
	suffixIn    = "_df_in"
	suffixOut   = "_df_out"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("artifact not found")

// Store reads and writes records through a BlobStore.
type Store struct {
	blobs  blobstore.BlobStore
	codec  codec.Codec
	prefix string
	rc     *resource.Controller
}

// Option configures a Store.
type Option func(*Store)

// WithCodec sets the record codec. Readers must use the writer's codec.
func WithCodec(c codec.Codec) Option {
	return func(s *Store) { s.codec = c }
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// WithController throttles record IO through rc.
func WithController(rc *resource.Controller) Option {
	return func(s *Store) { s.rc = rc }
}

// New returns a Store over blobs.
func New(blobs blobstore.BlobStore, opts ...Option) *Store {
	s := &Store{
		blobs:  blobs,
		codec:  codec.Default,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.prefix == "" {
		s.prefix = DefaultPrefix
	}
	return s
}

// Prefix returns the key prefix.
func (s *Store) Prefix() string { return s.prefix }

// GroupKey returns the key of the group record of nid.
func (s *Store) GroupKey(nid string) string { return s.prefix + "_" + nid + suffixGroup }

// InKey returns the key of the in-group likelihood table of nid.
func (s *Store) InKey(nid string) string { return s.prefix + "_" + nid + suffixIn }

// OutKey returns the key of the out-group likelihood table of nid.
func (s *Store) OutKey(nid string) string { return s.prefix + "_" + nid + suffixOut }

// PutGroup writes the group record of g.ConceptID.
func (s *Store) PutGroup(ctx context.Context, g *partition.Group) error {
	return s.put(ctx, s.GroupKey(g.ConceptID), g)
}

// GetGroup reads the group record of nid.
func (s *Store) GetGroup(ctx context.Context, nid string) (*partition.Group, error) {
	var g partition.Group
	if err := s.get(ctx, s.GroupKey(nid), &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// PutLikelihood writes the in/out likelihood pair of nid.
func (s *Store) PutLikelihood(ctx context.Context, nid string, in, out *likelihood.Table) error {
	if err := in.SameShape(out); err != nil {
		return err
	}
	if err := s.put(ctx, s.InKey(nid), in); err != nil {
		return err
	}
	return s.put(ctx, s.OutKey(nid), out)
}

// GetLikelihood reads the in/out likelihood pair of nid.
func (s *Store) GetLikelihood(ctx context.Context, nid string) (in, out *likelihood.Table, err error) {
	in, out = &likelihood.Table{}, &likelihood.Table{}
	if err := s.get(ctx, s.InKey(nid), in); err != nil {
		return nil, nil, err
	}
	if err := s.get(ctx, s.OutKey(nid), out); err != nil {
		return nil, nil, err
	}
	return in, out, nil
}

// Delete removes every record of nid.
func (s *Store) Delete(ctx context.Context, nid string) error {
	for _, key := range []string{s.GroupKey(nid), s.InKey(nid), s.OutKey(nid)} {
		if err := s.blobs.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	return nil
}

// ListConcepts returns the ids of every concept with a group record, in key
// order.
func (s *Store) ListConcepts(ctx context.Context) ([]string, error) {
	head := s.prefix + "_"
	keys, err := s.blobs.List(ctx, head)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, key := range keys {
		if nid, ok := strings.CutSuffix(strings.TrimPrefix(key, head), suffixGroup); ok && nid != "" {
			ids = append(ids, nid)
		}
	}
	return ids, nil
}

func (s *Store) put(ctx context.Context, key string, v any) error {
	data, err := s.codec.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.rc.AcquireIO(ctx, len(data)); err != nil {
		return err
	}
	if err := s.blobs.Put(ctx, key, data); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, key string, v any) error {
	data, err := blobstore.ReadAll(ctx, s.blobs, key)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return fmt.Errorf("read %s: %w", key, err)
	}
	if err := s.rc.AcquireIO(ctx, len(data)); err != nil {
		return err
	}
	if err := s.codec.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}
