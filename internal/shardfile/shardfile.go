// Package shardfile persists a shard set to disk and loads it back. Each
// shard set gets a manifest (manifest.json, carrying a fresh UUID) that
// describes its shape, an optional
// snappy-compressed on-disk encoding, and a per-shard blake2b digest so a
// loader can detect silent corruption before handing shards to the codec.
package shardfile

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang/snappy"
	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// manifestName is the fixed filename of the JSON manifest within a shard
// set's directory.
const manifestName = "manifest.json"

// Manifest describes a saved shard set: its shape, whether shard bodies
// are snappy-compressed on disk, and a blake2b-256 digest per shard for
// integrity checking on load.
type Manifest struct {
	ID         uuid.UUID `json:"id"`
	K          int       `json:"k"`
	M          int       `json:"m"`
	ShardLen   int       `json:"shard_len"`
	Compressed bool      `json:"compressed"`
	Digests    []string  `json:"digests"`
}

// Save writes K+M shards into dir as one file per shard plus a manifest.
// It returns the shard set's freshly generated ID. If compress is true,
// each shard body is snappy-encoded before being written.
func Save(dir string, shards [][]byte, k, m int, compress bool) (uuid.UUID, error) {
	if len(shards) != k+m {
		return uuid.Nil, fmt.Errorf("shardfile: shard count %d does not match k+m=%d", len(shards), k+m)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return uuid.Nil, fmt.Errorf("shardfile: create dir: %w", err)
	}

	id := uuid.New()
	shardLen := 0
	if len(shards) > 0 {
		shardLen = len(shards[0])
	}

	digests := make([]string, len(shards))
	for i, shard := range shards {
		sum := blake2b.Sum256(shard)
		digests[i] = hex.EncodeToString(sum[:])

		body := shard
		if compress {
			body = snappy.Encode(nil, shard)
		}
		if err := os.WriteFile(shardPath(dir, i), body, 0o644); err != nil {
			return uuid.Nil, fmt.Errorf("shardfile: write shard %d: %w", i, err)
		}
	}

	manifest := Manifest{
		ID:         id,
		K:          k,
		M:          m,
		ShardLen:   shardLen,
		Compressed: compress,
		Digests:    digests,
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return uuid.Nil, fmt.Errorf("shardfile: marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, manifestName), data, 0o644); err != nil {
		return uuid.Nil, fmt.Errorf("shardfile: write manifest: %w", err)
	}
	return id, nil
}

// Load reads a manifest and its shard bodies back from dir, verifying
// each shard's blake2b digest against the manifest. It returns an error
// naming the first shard whose digest does not match.
func Load(dir string) ([][]byte, Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestName))
	if err != nil {
		return nil, Manifest{}, fmt.Errorf("shardfile: read manifest: %w", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, Manifest{}, fmt.Errorf("shardfile: unmarshal manifest: %w", err)
	}

	total := manifest.K + manifest.M
	shards := make([][]byte, total)
	for i := 0; i < total; i++ {
		body, err := os.ReadFile(shardPath(dir, i))
		if err != nil {
			return nil, Manifest{}, fmt.Errorf("shardfile: read shard %d: %w", i, err)
		}
		if manifest.Compressed {
			body, err = snappy.Decode(nil, body)
			if err != nil {
				return nil, Manifest{}, fmt.Errorf("shardfile: decompress shard %d: %w", i, err)
			}
		}

		sum := blake2b.Sum256(body)
		want := hex.EncodeToString(sum[:])
		if i >= len(manifest.Digests) || want != manifest.Digests[i] {
			return nil, Manifest{}, fmt.Errorf("shardfile: shard %d failed digest check", i)
		}
		shards[i] = body
	}
	return shards, manifest, nil
}

func shardPath(dir string, index int) string {
	return filepath.Join(dir, fmt.Sprintf("shard-%03d.bin", index))
}
