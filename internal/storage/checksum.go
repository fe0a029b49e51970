package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

const (
	// ChecksumPrefix is the prefix for SHA-256 checksums.
	ChecksumPrefix = "sha256:"

	checksumBufSize = 32 * 1024
)

// Checksum represents a hex-encoded SHA-256 hash with the "sha256:" prefix.
type Checksum string

var (
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrInvalidChecksum  = errors.New("invalid checksum format")
)

var bufPool = sync.Pool{
	New: func() any {
		buf := make([]byte, checksumBufSize)
		return &buf
	},
}

// ComputeChecksum computes SHA-256 over a byte slice.
func ComputeChecksum(data []byte) Checksum {
	sum := sha256.Sum256(data)
	return FormatChecksum(sum[:])
}

// ComputeFileChecksum streams a file through SHA-256.
func ComputeFileChecksum(path string) (Checksum, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "checksum %s", path)
	}
	defer f.Close()

	bufPtr := bufPool.Get().(*[]byte)
	defer bufPool.Put(bufPtr)

	h := sha256.New()
	if _, err := io.CopyBuffer(h, f, *bufPtr); err != nil {
		return "", errors.Wrapf(err, "checksum %s", path)
	}
	return FormatChecksum(h.Sum(nil)), nil
}

// VerifyChecksum reports ErrChecksumMismatch when data does not hash to
// expected. expected must be well formed.
func VerifyChecksum(data []byte, expected Checksum) error {
	if _, err := ParseChecksum(expected); err != nil {
		return err
	}
	if actual := ComputeChecksum(data); actual != expected {
		return errors.Wrapf(ErrChecksumMismatch, "expected %s got %s", expected, actual)
	}
	return nil
}

// FormatChecksum formats raw hash bytes into a Checksum with the "sha256:" prefix.
func FormatChecksum(sum []byte) Checksum {
	return Checksum(ChecksumPrefix + hex.EncodeToString(sum))
}

// ParseChecksum strips the "sha256:" prefix and returns the raw hex string.
func ParseChecksum(c Checksum) (string, error) {
	s := strings.TrimSpace(string(c))
	if !strings.HasPrefix(s, ChecksumPrefix) {
		return "", errors.Wrapf(ErrInvalidChecksum, "missing prefix %q", ChecksumPrefix)
	}
	hexStr := s[len(ChecksumPrefix):]
	if len(hexStr) != 2*sha256.Size {
		return "", errors.Wrapf(ErrInvalidChecksum, "expected %d hex chars, got %d", 2*sha256.Size, len(hexStr))
	}
	if _, err := hex.DecodeString(hexStr); err != nil {
		return "", errors.Wrapf(ErrInvalidChecksum, "invalid hex: %v", err)
	}
	return hexStr, nil
}
