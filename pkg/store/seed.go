package store

import (
	_ "embed"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
	"gopkg.in/yaml.v3"
	"src.mwls.dev/pkg/trie"
)

// SeedRecord describes a magic word or parser function in a seed file.
type SeedRecord struct {
	Name            string             `json:"name" yaml:"name"`
	Aliases         []string           `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	RedirectTarget  string             `json:"redirectTarget,omitempty" yaml:"redirectTarget,omitempty"`
	Summary         string             `json:"summary,omitempty" yaml:"summary,omitempty"`
	Remarks         string             `json:"remarks,omitempty" yaml:"remarks,omitempty"`
	IsCaseSensitive bool               `json:"isCaseSensitive,omitempty" yaml:"isCaseSensitive,omitempty"`
	Signatures      [][]ArgumentRecord `json:"signatures,omitempty" yaml:"signatures,omitempty"`
}

// Record converts the seed record to a PageRecord.
func (sr SeedRecord) Record() *PageRecord {
	rec := &PageRecord{
		FullName:         sr.Name,
		TransclusionName: sr.Name,
		RedirectTarget:   sr.RedirectTarget,
		Summary:          sr.Summary,
		Remarks:          sr.Remarks,
		Signatures:       sr.Signatures,
		Kind:             MagicWord,
		CaseSensitive:    sr.IsCaseSensitive,
	}
	if len(sr.Signatures) > 0 {
		rec.Arguments = sr.Signatures[0]
	}
	return rec
}

// LoadSeed adds seed records as magic words, each under its name and its
// aliases. Names that are already present are skipped and reported in the
// returned error, which joins one error per problem.
func (s *Store) LoadSeed(records []SeedRecord) error {
	var errs []error
	for _, sr := range records {
		rec := sr.Record()
		ix := s.transclusion
		if rec.CaseSensitive {
			ix = s.magic
		}
		ix.mu.Lock()
		for _, name := range append([]string{sr.Name}, sr.Aliases...) {
			if err := ix.trie.Add([]rune(name), rec); err != nil {
				errs = append(errs, fmt.Errorf("seed record %q: %w", name, err))
			}
		}
		ix.mu.Unlock()
	}
	s.cache.invalidate()
	return errors.Join(errs...)
}

//go:embed builtin.yaml
var builtinSeed []byte

// BuiltinSeed returns the seed records of the built-in magic words and
// parser functions.
func BuiltinSeed() ([]SeedRecord, error) {
	return ParseSeed(builtinSeed)
}

// ParseSeed parses seed records from YAML. Since YAML is a superset of JSON,
// JSON arrays are accepted as well.
func ParseSeed(data []byte) ([]SeedRecord, error) {
	var records []SeedRecord
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	return records, nil
}

// ReadSeedFile reads seed records from a file. Files with a .db or .bolt
// extension are read as seed databases; other files are parsed as YAML.
func ReadSeedFile(path string) ([]SeedRecord, error) {
	switch filepath.Ext(path) {
	case ".db", ".bolt":
		return ReadSeedDB(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSeed(data)
}

const bucketSeed = "seed"

func openDB(path string) (*bolt.DB, error) {
	return bolt.Open(path, 0644, &bolt.Options{Timeout: time.Second})
}

// ReadSeedDB reads seed records from a bbolt database written by WriteSeedDB.
func ReadSeedDB(path string) ([]SeedRecord, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	var records []SeedRecord
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketSeed))
		if b == nil {
			return fmt.Errorf("%s: no %q bucket", path, bucketSeed)
		}
		return b.ForEach(func(k, v []byte) error {
			var sr SeedRecord
			if err := json.Unmarshal(v, &sr); err != nil {
				return fmt.Errorf("%s: record %d: %w", path, unmarshalSeq(k), err)
			}
			records = append(records, sr)
			return nil
		})
	})
	return records, err
}

// WriteSeedDB writes seed records to a bbolt database, replacing any records
// already in it. Records keep their order.
func WriteSeedDB(path string, records []SeedRecord) error {
	db, err := openDB(path)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(bucketSeed)) != nil {
			if err := tx.DeleteBucket([]byte(bucketSeed)); err != nil {
				return err
			}
		}
		b, err := tx.CreateBucket([]byte(bucketSeed))
		if err != nil {
			return err
		}
		for _, sr := range records {
			if sr.Name == "" {
				return fmt.Errorf("seed record without name: %w", trie.ErrEmptyKey)
			}
			v, err := json.Marshal(sr)
			if err != nil {
				return err
			}
			seq, err := b.NextSequence()
			if err != nil {
				return err
			}
			if err := b.Put(marshalSeq(seq), v); err != nil {
				return err
			}
		}
		return nil
	})
}

func marshalSeq(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}

func unmarshalSeq(key []byte) uint64 {
	return binary.BigEndian.Uint64(key)
}
