package policy

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// checkpoint is the on-disk envelope of every policy: zstd-compressed JSON.
type checkpoint struct {
	Kind    string          `json:"kind"`
	Version int             `json:"version"`
	Body    json.RawMessage `json:"body"`
}

const checkpointVersion = 1

func writeCheckpoint(path, kind string, body any) (err error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s checkpoint: %w", kind, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	if err := json.NewEncoder(enc).Encode(checkpoint{Kind: kind, Version: checkpointVersion, Body: raw}); err != nil {
		enc.Close()
		return fmt.Errorf("write %s checkpoint: %w", kind, err)
	}
	return enc.Close()
}

func readCheckpoint(path, kind string, body any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	var cp checkpoint
	if err := json.NewDecoder(dec).Decode(&cp); err != nil {
		return fmt.Errorf("decode checkpoint %s: %w", path, err)
	}
	if cp.Kind != kind {
		return fmt.Errorf("checkpoint %s holds a %q policy, want %q", path, cp.Kind, kind)
	}
	if cp.Version != checkpointVersion {
		return fmt.Errorf("checkpoint %s has version %d, want %d", path, cp.Version, checkpointVersion)
	}
	return json.Unmarshal(cp.Body, body)
}
