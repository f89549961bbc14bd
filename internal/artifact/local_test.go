package artifact

import (
	"context"
	"image"
	"image/color"
	"reflect"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	return s
}

func TestLocalPutGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	want := []byte("payload")
	if err := s.Put(ctx, "sess1/extracted/page_001.png", want, "image/png"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get(ctx, "sess1/extracted/page_001.png")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(want) {
		t.Errorf("Get = %q, want %q", got, want)
	}
}

func TestLocalGetMissing(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Get(context.Background(), "nope/missing.png"); err == nil {
		t.Error("Get of missing key succeeded, want error")
	}
}

func TestLocalListAndDeletePrefix(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	keys := []string{
		"a/extracted/page_001.png",
		"a/extracted/page_002.png",
		"a/preview/clustered_preview.png",
		"b/extracted/page_001.png",
	}
	for _, k := range keys {
		if err := s.Put(ctx, k, []byte(k), "image/png"); err != nil {
			t.Fatalf("Put(%s): %v", k, err)
		}
	}

	got, err := s.List(ctx, "a/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"a/extracted/page_001.png", "a/extracted/page_002.png", "a/preview/clustered_preview.png"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("List = %v, want %v", got, want)
	}

	if err := s.DeletePrefix(ctx, "a/"); err != nil {
		t.Fatalf("DeletePrefix: %v", err)
	}
	got, err = s.List(ctx, "")
	if err != nil {
		t.Fatalf("List after delete: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"b/extracted/page_001.png"}) {
		t.Errorf("List after delete = %v, want only b's key", got)
	}
}

func TestLocalRejectsTraversal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, key := range []string{"../escape.png", "a/../../escape.png"} {
		if err := s.Put(ctx, key, []byte("x"), "image/png"); err == nil {
			t.Errorf("Put(%q) succeeded, want traversal rejection", key)
		}
	}
}

func TestLocalUploadTarget(t *testing.T) {
	s := newTestStore(t)
	url, ref, err := s.UploadTarget(context.Background(), "uploads/doc.pdf", 15*time.Minute)
	if err != nil {
		t.Fatalf("UploadTarget: %v", err)
	}
	if !strings.HasPrefix(url, "file://") || url != ref {
		t.Errorf("UploadTarget = (%q, %q), want matching file:// pair", url, ref)
	}
}

func TestEncodeDecodePNG(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 10, G: 20, B: 30, A: 255})

	data, err := EncodePNG(img)
	if err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	back, err := DecodePNG(data)
	if err != nil {
		t.Fatalf("DecodePNG: %v", err)
	}
	if back.Bounds().Dx() != 4 || back.Bounds().Dy() != 3 {
		t.Errorf("decoded bounds = %v, want 4x3", back.Bounds())
	}
	r, g, b, _ := back.At(1, 1).RGBA()
	if r>>8 != 10 || g>>8 != 20 || b>>8 != 30 {
		t.Errorf("decoded pixel = (%d,%d,%d), want (10,20,30)", r>>8, g>>8, b>>8)
	}
}

func TestEncryptDecryptRoundtrip(t *testing.T) {
	plain := []byte("some artifact bytes")
	enc, err := encryptCBC(plain, "hunter2")
	if err != nil {
		t.Fatalf("encryptCBC: %v", err)
	}
	if string(enc[:8]) != encMagic {
		t.Fatalf("missing magic prefix: %q", enc[:8])
	}
	back, err := decryptCBC(enc, "hunter2")
	if err != nil {
		t.Fatalf("decryptCBC: %v", err)
	}
	if string(back) != string(plain) {
		t.Errorf("roundtrip = %q, want %q", back, plain)
	}
	enc[len(enc)-1] ^= 0xFF
	if _, err := decryptCBC(enc, "hunter2"); err == nil {
		t.Error("decrypt of tampered data succeeded")
	}
}
