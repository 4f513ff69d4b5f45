package store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dukerupert/precrastine/internal/database"
)

func setupSQLiteKV(t *testing.T) *SQLiteKV {
	t.Helper()
	db, err := database.Open(context.Background(), ":memory:", slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSQLiteKV(db)
}

func kvImplementations(t *testing.T) map[string]KV {
	t.Helper()
	return map[string]KV{
		"memory": NewMemoryKV(),
		"sqlite": setupSQLiteKV(t),
	}
}

func TestKVGetMissing(t *testing.T) {
	for name, kv := range kvImplementations(t) {
		t.Run(name, func(t *testing.T) {
			v, err := kv.Get("nope")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if v != nil {
				t.Errorf("value = %q, want nil", v)
			}
		})
	}
}

func TestKVSetOverwriteDelete(t *testing.T) {
	for name, kv := range kvImplementations(t) {
		t.Run(name, func(t *testing.T) {
			if err := kv.Set("k", []byte(`"one"`)); err != nil {
				t.Fatalf("set: %v", err)
			}
			if err := kv.Set("k", []byte(`"two"`)); err != nil {
				t.Fatalf("overwrite: %v", err)
			}
			v, err := kv.Get("k")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if !bytes.Equal(v, []byte(`"two"`)) {
				t.Errorf("value = %q, want %q", v, `"two"`)
			}

			if err := kv.Delete("k"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			v, _ = kv.Get("k")
			if v != nil {
				t.Errorf("value after delete = %q, want nil", v)
			}

			// Should not error
			if err := kv.Delete("k"); err != nil {
				t.Errorf("delete missing: %v", err)
			}
		})
	}
}

func TestKVKeysSorted(t *testing.T) {
	for name, kv := range kvImplementations(t) {
		t.Run(name, func(t *testing.T) {
			for _, k := range []string{"tasks:b", "current-identity", "tasks:a"} {
				if err := kv.Set(k, []byte("null")); err != nil {
					t.Fatalf("set %s: %v", k, err)
				}
			}
			keys, err := kv.Keys()
			if err != nil {
				t.Fatalf("keys: %v", err)
			}
			want := []string{"current-identity", "tasks:a", "tasks:b"}
			if len(keys) != len(want) {
				t.Fatalf("keys = %v, want %v", keys, want)
			}
			for i := range want {
				if keys[i] != want[i] {
					t.Errorf("keys[%d] = %q, want %q", i, keys[i], want[i])
				}
			}
		})
	}
}

func TestMemoryKVCopiesValues(t *testing.T) {
	kv := NewMemoryKV()
	buf := []byte("abc")
	kv.Set("k", buf)
	buf[0] = 'x'

	v, _ := kv.Get("k")
	if string(v) != "abc" {
		t.Errorf("value = %q, want %q", v, "abc")
	}
}

func TestReadJSONMalformed(t *testing.T) {
	kv := NewMemoryKV()
	kv.Set("k", []byte("{not json"))

	var v []string
	found, err := readJSON(kv, "k", &v)
	if !found {
		t.Error("expected found = true")
	}
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("err = %v, want ErrMalformed", err)
	}
}

func TestKeysForIdentity(t *testing.T) {
	if got := TasksKey("u1"); got != "tasks:u1" {
		t.Errorf("TasksKey = %q, want %q", got, "tasks:u1")
	}
	if got := LifeAreasKey("u1"); got != "life-areas:u1" {
		t.Errorf("LifeAreasKey = %q, want %q", got, "life-areas:u1")
	}
}

func TestKVReplace(t *testing.T) {
	for name, kv := range kvImplementations(t) {
		t.Run(name, func(t *testing.T) {
			kv.Set("old", []byte(`1`))
			kv.Set("kept", []byte(`"before"`))

			err := kv.Replace(map[string][]byte{
				"kept":  []byte(`"after"`),
				"added": []byte(`2`),
			})
			if err != nil {
				t.Fatalf("replace: %v", err)
			}

			keys, _ := kv.Keys()
			if len(keys) != 2 || keys[0] != "added" || keys[1] != "kept" {
				t.Errorf("keys = %v, want [added kept]", keys)
			}
			if v, _ := kv.Get("kept"); string(v) != `"after"` {
				t.Errorf("kept = %q, want %q", v, `"after"`)
			}
		})
	}
}

func TestValidateEntry(t *testing.T) {
	valid := map[string]string{
		KeyRegisteredIdentities: `[{"id":"u1","email":"a@example.com","name":"A","password":"pw"}]`,
		KeyCurrentIdentity:      `{"id":"u1","email":"a@example.com","name":"A"}`,
		TasksKey("u1"):          `[{"id":"t1","title":"x","priority":"low"}]`,
		LifeAreasKey("u1"):      `[{"id":"health","score":10}]`,
	}
	for k, v := range valid {
		if err := ValidateEntry(k, []byte(v)); err != nil {
			t.Errorf("%s: unexpected error %v", k, err)
		}
	}

	invalid := map[string]string{
		KeyRegisteredIdentities: `[{"id":"u1","email":"a@x"},{"id":"u2","email":"a@x"}]`,
		KeyCurrentIdentity:      `"u1"`,
		TasksKey("u1"):          `[{"id":"t1","priority":"someday"}]`,
		LifeAreasKey("u1"):      `[{"id":"health","score":0}]`,
		"tasks:":                `[]`,
	}
	for k, v := range invalid {
		if err := ValidateEntry(k, []byte(v)); err == nil {
			t.Errorf("%s = %s: expected error", k, v)
		}
	}
	if err := ValidateEntry(TasksKey("u1"), []byte("nope")); !errors.Is(err, ErrMalformed) {
		t.Errorf("err = %v, want ErrMalformed", err)
	}
}

func TestSQLiteKVUsage(t *testing.T) {
	kv := setupSQLiteKV(t)
	ctx := context.Background()

	n, last, err := kv.Usage(ctx)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if n != 0 || !last.IsZero() {
		t.Errorf("empty usage = %d, %v, want 0 and zero time", n, last)
	}

	before := time.Now().Add(-time.Second)
	kv.Set("a", []byte(`1`))
	kv.Set("b", []byte(`2`))

	n, last, err = kv.Usage(ctx)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if n != 2 {
		t.Errorf("keys = %d, want 2", n)
	}
	if last.Before(before) {
		t.Errorf("last write = %v, want after %v", last, before)
	}
}
