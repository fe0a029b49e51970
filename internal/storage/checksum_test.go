package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestComputeChecksum(t *testing.T) {
	data := []byte("hello")
	expected := sha256.Sum256(data)
	want := ChecksumPrefix + hex.EncodeToString(expected[:])

	if got := ComputeChecksum(data); string(got) != want {
		t.Errorf("ComputeChecksum(%q) = %s, want %s", data, got, want)
	}
}

func TestComputeChecksum_Empty(t *testing.T) {
	expected := sha256.Sum256(nil)
	want := ChecksumPrefix + hex.EncodeToString(expected[:])

	if got := ComputeChecksum(nil); string(got) != want {
		t.Errorf("ComputeChecksum(nil) = %s, want %s", got, want)
	}
}

func TestComputeFileChecksum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	data := []byte(strings.Repeat("[100,0,{},{},{},{}]", 4096))
	if err := os.WriteFile(path, data, FilePerm); err != nil {
		t.Fatal(err)
	}

	got, err := ComputeFileChecksum(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := ComputeChecksum(data); got != want {
		t.Errorf("ComputeFileChecksum = %s, want %s", got, want)
	}
}

func TestComputeFileChecksum_NotExists(t *testing.T) {
	if _, err := ComputeFileChecksum("/nonexistent/path/file"); err == nil {
		t.Error("expected error for non-existent file")
	}
}

func TestVerifyChecksum(t *testing.T) {
	data := []byte("verify me")

	if err := VerifyChecksum(data, ComputeChecksum(data)); err != nil {
		t.Errorf("VerifyChecksum should succeed: %v", err)
	}

	err := VerifyChecksum(data, ComputeChecksum([]byte("different")))
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("expected ErrChecksumMismatch, got %v", err)
	}

	err = VerifyChecksum(data, "md5:abc")
	if !errors.Is(err, ErrInvalidChecksum) {
		t.Errorf("expected ErrInvalidChecksum, got %v", err)
	}
}

func TestParseChecksum(t *testing.T) {
	valid := ComputeChecksum([]byte("x"))
	hexStr, err := ParseChecksum(valid)
	if err != nil {
		t.Fatalf("ParseChecksum(%s): %v", valid, err)
	}
	if len(hexStr) != 64 {
		t.Errorf("hex length = %d, want 64", len(hexStr))
	}
	if _, err := ParseChecksum(valid + "\n"); err != nil {
		t.Errorf("trailing newline should be tolerated: %v", err)
	}

	invalid := []Checksum{
		"",
		Checksum(strings.Repeat("a", 64)),
		ChecksumPrefix + "abcd",
		Checksum(ChecksumPrefix + strings.Repeat("z", 64)),
	}
	for _, c := range invalid {
		if _, err := ParseChecksum(c); !errors.Is(err, ErrInvalidChecksum) {
			t.Errorf("ParseChecksum(%q) = %v, want ErrInvalidChecksum", c, err)
		}
	}
}
