// Package hash computes content digests used for integrity verification and
// advisory deduplication of stored attachments.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
)

// EmptyDigest is the digest of zero-length input.
const EmptyDigest = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

// Digest returns the lowercase hex SHA-256 digest of b.
func Digest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Writer accumulates a SHA-256 digest and a byte count over everything written
// to it. It lets callers hash and measure a stream in a single pass, typically
// via io.MultiWriter while spooling an upload to scan staging.
type Writer struct {
	h hash.Hash
	n int64
}

var _ io.Writer = (*Writer)(nil)

// NewWriter returns a Writer with an empty digest state.
func NewWriter() *Writer {
	return &Writer{h: sha256.New()}
}

// Write never returns an error; a well-formed byte sequence always hashes.
func (w *Writer) Write(p []byte) (int, error) {
	w.h.Write(p)
	w.n += int64(len(p))
	return len(p), nil
}

// Size returns the number of bytes written so far.
func (w *Writer) Size() int64 {
	return w.n
}

// Digest returns the hex digest of the bytes written so far. It does not
// reset the state; further writes continue the same stream.
func (w *Writer) Digest() string {
	return hex.EncodeToString(w.h.Sum(nil))
}
