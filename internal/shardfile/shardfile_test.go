package shardfile

import (
	"bytes"
	"math/rand"
	"os"
	"testing"
)

func corruptShard(dir string, index int) error {
	path := shardPath(dir, index)
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if len(data) > 0 {
		data[0] ^= 0xFF
	}
	return os.WriteFile(path, data, 0o644)
}

func sampleShards(k, m, size int, seed int64) [][]byte {
	r := rand.New(rand.NewSource(seed))
	shards := make([][]byte, k+m)
	for i := range shards {
		shards[i] = make([]byte, size)
		r.Read(shards[i])
	}
	return shards
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	shards := sampleShards(3, 2, 128, 1)

	id, err := Save(dir, shards, 3, 2, false)
	if err != nil {
		t.Fatal(err)
	}
	if id.String() == "" {
		t.Fatal("expected a non-empty shard set ID")
	}

	loaded, manifest, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if manifest.K != 3 || manifest.M != 2 {
		t.Fatalf("manifest shape mismatch: k=%d m=%d", manifest.K, manifest.M)
	}
	for i := range shards {
		if !bytes.Equal(shards[i], loaded[i]) {
			t.Fatalf("shard %d mismatch after round trip", i)
		}
	}
}

func TestSaveLoadCompressed(t *testing.T) {
	dir := t.TempDir()
	shards := sampleShards(2, 2, 256, 2)

	if _, err := Save(dir, shards, 2, 2, true); err != nil {
		t.Fatal(err)
	}
	loaded, manifest, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !manifest.Compressed {
		t.Fatal("expected manifest to record compression")
	}
	for i := range shards {
		if !bytes.Equal(shards[i], loaded[i]) {
			t.Fatalf("shard %d mismatch after compressed round trip", i)
		}
	}
}

func TestLoadDetectsCorruption(t *testing.T) {
	dir := t.TempDir()
	shards := sampleShards(2, 1, 64, 3)
	if _, err := Save(dir, shards, 2, 1, false); err != nil {
		t.Fatal(err)
	}

	if err := corruptShard(dir, 1); err != nil {
		t.Fatal(err)
	}
	if _, _, err := Load(dir); err == nil {
		t.Fatal("expected digest mismatch error after corrupting a shard on disk")
	}
}
