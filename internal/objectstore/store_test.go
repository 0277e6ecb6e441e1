package objectstore

import (
	"context"
	"errors"
	"testing"
)

func newStores(t *testing.T) map[string]Store {
	t.Helper()
	local, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	return map[string]Store{
		"local":  local,
		"memory": NewMemoryStore(),
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Put(ctx, "a/b.json", []byte(`{"x":1}`)); err != nil {
				t.Fatalf("Put: %v", err)
			}
			got, err := store.Get(ctx, "a/b.json")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if string(got) != `{"x":1}` {
				t.Errorf("Get = %q", got)
			}
		})
	}
}

func TestGetMissingReturnsErrNotExist(t *testing.T) {
	ctx := context.Background()
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(ctx, "missing.json")
			var notExist *ErrNotExist
			if !errors.As(err, &notExist) {
				t.Fatalf("Get error = %v, want *ErrNotExist", err)
			}
		})
	}
}

func TestAppendJoinsWithNewlines(t *testing.T) {
	ctx := context.Background()
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Append(ctx, "log.jsonl", `{"n":1}`); err != nil {
				t.Fatalf("Append: %v", err)
			}
			if err := store.Append(ctx, "log.jsonl", `{"n":2}`); err != nil {
				t.Fatalf("Append: %v", err)
			}
			got, err := store.Get(ctx, "log.jsonl")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			want := "{\"n\":1}\n{\"n\":2}\n"
			if string(got) != want {
				t.Errorf("Get = %q, want %q", got, want)
			}
		})
	}
}

func TestGetParsedJSONL(t *testing.T) {
	ctx := context.Background()
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			store.Append(ctx, "records.jsonl", `{"id":"a"}`)
			store.Append(ctx, "records.jsonl", `{"id":"b"}`)
			parsed, err := store.GetParsed(ctx, "records.jsonl")
			if err != nil {
				t.Fatalf("GetParsed: %v", err)
			}
			rows, ok := parsed.([]map[string]any)
			if !ok {
				t.Fatalf("GetParsed type = %T", parsed)
			}
			if len(rows) != 2 {
				t.Fatalf("len(rows) = %d, want 2", len(rows))
			}
			if rows[0]["id"] != "a" || rows[1]["id"] != "b" {
				t.Errorf("rows = %+v", rows)
			}
		})
	}
}

func TestGetParsedMissingJSONLReturnsEmptySlice(t *testing.T) {
	ctx := context.Background()
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			parsed, err := store.GetParsed(ctx, "absent.jsonl")
			if err != nil {
				t.Fatalf("GetParsed: %v", err)
			}
			rows, ok := parsed.([]map[string]any)
			if !ok || len(rows) != 0 {
				t.Errorf("GetParsed = %#v, want empty slice", parsed)
			}
		})
	}
}

func TestGetParsedMissingJSONReturnsEmptyMap(t *testing.T) {
	ctx := context.Background()
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			parsed, err := store.GetParsed(ctx, "absent.json")
			if err != nil {
				t.Fatalf("GetParsed: %v", err)
			}
			m, ok := parsed.(map[string]any)
			if !ok || len(m) != 0 {
				t.Errorf("GetParsed = %#v, want empty map", parsed)
			}
		})
	}
}

func TestDeleteThenExists(t *testing.T) {
	ctx := context.Background()
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			store.Put(ctx, "gone.json", []byte("{}"))
			if err := store.Delete(ctx, "gone.json"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			ok, err := store.Exists(ctx, "gone.json")
			if err != nil {
				t.Fatalf("Exists: %v", err)
			}
			if ok {
				t.Error("Exists = true after Delete")
			}
			if err := store.Delete(ctx, "gone.json"); err != nil {
				t.Errorf("Delete of missing key returned error: %v", err)
			}
		})
	}
}

func TestListOrderedByWriteOrder(t *testing.T) {
	ctx := context.Background()
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			store.Put(ctx, "c.json", []byte("{}"))
			store.Put(ctx, "a.json", []byte("{}"))
			store.Put(ctx, "b.json", []byte("{}"))
			keys, err := store.List(ctx)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			want := []string{"c.json", "a.json", "b.json"}
			if len(keys) != len(want) {
				t.Fatalf("List = %v, want %v", keys, want)
			}
			for i := range want {
				if keys[i] != want[i] {
					t.Errorf("List[%d] = %q, want %q", i, keys[i], want[i])
				}
			}
		})
	}
}

func TestFindByPrefixAndExtension(t *testing.T) {
	ctx := context.Background()
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			store.Put(ctx, "agents/a.json", []byte("{}"))
			store.Put(ctx, "agents/b.jsonl", []byte(""))
			store.Put(ctx, "convos/c.json", []byte("{}"))

			byPrefix, err := store.FindByPrefix(ctx, "agents/")
			if err != nil {
				t.Fatalf("FindByPrefix: %v", err)
			}
			if len(byPrefix) != 2 {
				t.Errorf("FindByPrefix = %v, want 2 entries", byPrefix)
			}

			byExt, err := store.FindByExtension(ctx, ".jsonl")
			if err != nil {
				t.Fatalf("FindByExtension: %v", err)
			}
			if len(byExt) != 1 || byExt[0] != "agents/b.jsonl" {
				t.Errorf("FindByExtension = %v", byExt)
			}
		})
	}
}

func TestGetManyOmitsMissingKeys(t *testing.T) {
	ctx := context.Background()
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			store.Put(ctx, "present.json", []byte("{}"))
			got, err := store.GetMany(ctx, []string{"present.json", "missing.json"})
			if err != nil {
				t.Fatalf("GetMany: %v", err)
			}
			if _, ok := got["missing.json"]; ok {
				t.Error("GetMany included missing key")
			}
			if _, ok := got["present.json"]; !ok {
				t.Error("GetMany omitted present key")
			}
		})
	}
}

func TestEnsureBucketIsHealthy(t *testing.T) {
	ctx := context.Background()
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.EnsureBucket(ctx); err != nil {
				t.Fatalf("EnsureBucket: %v", err)
			}
			ok, err := store.BucketExists(ctx)
			if err != nil || !ok {
				t.Errorf("BucketExists = %v, %v", ok, err)
			}
			if !store.IsHealthy(ctx) {
				t.Error("IsHealthy = false")
			}
		})
	}
}

func TestNewSelectsBackendByStorageType(t *testing.T) {
	ctx := context.Background()
	local, err := New(ctx, "local", t.TempDir(), nil)
	if err != nil {
		t.Fatalf("New(local): %v", err)
	}
	if _, ok := local.(*LocalStore); !ok {
		t.Errorf("New(local) = %T, want *LocalStore", local)
	}

	if _, err := New(ctx, "bogus", t.TempDir(), nil); err == nil {
		t.Error("New(bogus) did not error")
	}
}
