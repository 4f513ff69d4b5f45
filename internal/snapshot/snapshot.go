// Package snapshot dumps the durable store to a passphrase-encrypted blob
// and restores it.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dukerupert/precrastine/internal/store"
)

const formatVersion = 1

// ErrEmptyPassphrase is returned when no passphrase is given.
var ErrEmptyPassphrase = errors.New("snapshot: passphrase required")

// document is the plaintext inside a snapshot.
type document struct {
	Version   int               `json:"version"`
	CreatedAt time.Time         `json:"createdAt"`
	Entries   map[string]string `json:"entries"`
}

// Export writes every key of kv to w, encrypted under passphrase, and returns
// the number of keys written.
func Export(kv store.KV, w io.Writer, passphrase string) (int, error) {
	if passphrase == "" {
		return 0, ErrEmptyPassphrase
	}

	keys, err := kv.Keys()
	if err != nil {
		return 0, fmt.Errorf("list keys: %w", err)
	}

	doc := document{
		Version:   formatVersion,
		CreatedAt: time.Now().UTC(),
		Entries:   make(map[string]string, len(keys)),
	}
	for _, k := range keys {
		v, err := kv.Get(k)
		if err != nil {
			return 0, fmt.Errorf("read %q: %w", k, err)
		}
		if v == nil {
			continue
		}
		doc.Entries[k] = string(v)
	}

	plaintext, err := json.Marshal(doc)
	if err != nil {
		return 0, fmt.Errorf("encode snapshot: %w", err)
	}
	sealed, err := seal(plaintext, passphrase)
	if err != nil {
		return 0, err
	}
	if _, err := w.Write(sealed); err != nil {
		return 0, fmt.Errorf("write snapshot: %w", err)
	}
	return len(doc.Entries), nil
}

// Import replaces the contents of kv with the snapshot read from r. Every
// entry is validated first and the swap is atomic, so a bad snapshot or a
// failed write leaves kv as it was.
func Import(kv store.KV, r io.Reader, passphrase string) (int, error) {
	if passphrase == "" {
		return 0, ErrEmptyPassphrase
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("read snapshot: %w", err)
	}
	plaintext, err := open(data, passphrase)
	if err != nil {
		return 0, err
	}

	var doc document
	if err := json.Unmarshal(plaintext, &doc); err != nil {
		return 0, fmt.Errorf("decode snapshot: %w", err)
	}
	if doc.Version != formatVersion {
		return 0, fmt.Errorf("unsupported snapshot version %d", doc.Version)
	}

	entries := make(map[string][]byte, len(doc.Entries))
	for k, v := range doc.Entries {
		if err := store.ValidateEntry(k, []byte(v)); err != nil {
			return 0, fmt.Errorf("invalid snapshot: %w", err)
		}
		entries[k] = []byte(v)
	}
	if err := kv.Replace(entries); err != nil {
		return 0, fmt.Errorf("restore snapshot: %w", err)
	}
	return len(entries), nil
}

// ExportFile writes a snapshot to path with owner-only permissions.
func ExportFile(kv store.KV, path, passphrase string) (int, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return 0, fmt.Errorf("create snapshot file: %w", err)
	}
	n, err := Export(kv, f, passphrase)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close snapshot file: %w", cerr)
	}
	return n, err
}

func ImportFile(kv store.KV, path, passphrase string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open snapshot file: %w", err)
	}
	defer f.Close()
	return Import(kv, f, passphrase)
}
