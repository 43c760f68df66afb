package archive

import (
	"context"
	"testing"

	"archie/internal/tester"
)

func TestMemoryStorePutGetList(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	tester.NoErr(t, s.Put(ctx, "s1", BlueprintFile, []byte(`{"a":1}`)))
	tester.NoErr(t, s.Put(ctx, "s1", "/notes.txt", []byte("x")))
	tester.NoErr(t, s.Put(ctx, "s2", BlueprintFile, []byte(`{}`)))

	got, err := s.Get(ctx, "s1", BlueprintFile)
	tester.NoErr(t, err)
	tester.Eq(t, string(got), `{"a":1}`)

	names, err := s.List(ctx, "s1")
	tester.NoErr(t, err)
	tester.Eq(t, names, []string{"blueprint.json", "notes.txt"})

	_, err = s.Get(ctx, "s1", "missing.json")
	tester.ErrIs(t, err, ErrNotFound)
}

func TestMemoryStoreRejectsEmptyArgs(t *testing.T) {
	s := NewMemoryStore()
	tester.True(t, s.Put(context.Background(), " ", "x", nil) != nil)
	tester.True(t, s.Put(context.Background(), "s", "", nil) != nil)
	_, err := s.List(context.Background(), "")
	tester.True(t, err != nil)
}

func TestSaveJSONDoesNotEscapeHTML(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	tester.NoErr(t, SaveJSON(ctx, s, "s1", BlueprintFile, map[string]string{"diagram": "a --> b"}))
	got, err := s.Get(ctx, "s1", BlueprintFile)
	tester.NoErr(t, err)
	tester.Eq(t, string(got), "{\n  \"diagram\": \"a --> b\"\n}")
}

func TestSaveJSONNilStore(t *testing.T) {
	tester.NoErr(t, SaveJSON(context.Background(), nil, "s1", BlueprintFile, 1))
}

func TestObjectKey(t *testing.T) {
	tester.Eq(t, objectKey("abc", "/blueprint.json"), "sessions/abc/blueprint.json")
}

func TestNewS3StoreValidatesConfig(t *testing.T) {
	_, err := NewS3Store(S3Config{})
	tester.True(t, err != nil)
	_, err = NewS3Store(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"})
	tester.True(t, err != nil)
	s, err := NewS3Store(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "archie"})
	tester.NoErr(t, err)
	tester.Eq(t, s.region, "us-east-1")
}
