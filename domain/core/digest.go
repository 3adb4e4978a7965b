package core

import (
	"crypto/md5"
	"encoding/hex"
)

// Digest is the opaque verification code handed to a participant. It is the
// hex form of a 128-bit one-way hash over the canonical assignment cleartext;
// validity is decided by rainbow-table membership, never by decoding.
type Digest string

// DigestLength is the length of the hex-encoded digest string.
const DigestLength = md5.Size * 2

// NewDigest hashes data into a Digest
func NewDigest(data []byte) Digest {
	sum := md5.Sum(data)
	return Digest(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (d Digest) String() string {
	return string(d)
}

// IsEmpty checks if the digest is empty
func (d Digest) IsEmpty() bool {
	return d == ""
}

// Equals checks if two digests are equal
func (d Digest) Equals(other Digest) bool {
	return d == other
}

// WellFormed reports whether the string even has the shape of a digest.
// Membership in the rainbow table is the real validity check; this only
// rejects obvious garbage before the table lookup.
func (d Digest) WellFormed() bool {
	if len(d) != DigestLength {
		return false
	}
	_, err := hex.DecodeString(string(d))
	return err == nil
}
