package domain

import (
	"encoding/binary"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// base62Alphabet matches the original implementation's digit ordering:
// digits, then lowercase, then uppercase.
const base62Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// contentAddressLen is the fixed width of every content address in the
// wire format (prompt_id, tools_id, responses_ids, ensemble id).
const contentAddressLen = 22

// Hash128 computes a 128-bit content hash of data. xxhash/v2 only exposes
// a 64-bit digest, so the 128-bit value the spec calls for (standing in
// for the original's XxHash3_128) is built from two independent 64-bit
// digests, both unseeded: one over data directly, and a second over an
// 8-byte big-endian length salt written before data, so the two halves
// are not trivially related.
func Hash128(data []byte) (hi, lo uint64) {
	d1 := xxhash.New()
	_, _ = d1.Write(data)
	hi = d1.Sum64()

	d2 := xxhash.New()
	var salt [8]byte
	binary.BigEndian.PutUint64(salt[:], uint64(len(data)))
	_, _ = d2.Write(salt[:])
	_, _ = d2.Write(data)
	lo = d2.Sum64()
	return hi, lo
}

// Hash128Seeded is Hash128 but seeded, used by the ensemble id algorithm
// which folds the seed into the hashed bytes of each (full_id, count)
// pair rather than relying on a seeded digest constructor (xxhash/v2's
// public API does not expose one; folding the seed into the input is
// equivalent for our purposes and keeps the dependency surface small).
func Hash128Seeded(seed uint64, data []byte) (hi, lo uint64) {
	var seedBytes [8]byte
	binary.BigEndian.PutUint64(seedBytes[:], seed)
	buf := make([]byte, 0, len(seedBytes)+len(data))
	buf = append(buf, seedBytes[:]...)
	buf = append(buf, data...)
	return Hash128(buf)
}

// EncodeBase62 encodes a 128-bit value (hi, lo big-endian halves) as a
// zero-padded base62 string of length contentAddressLen.
func EncodeBase62(hi, lo uint64) string {
	// Treat (hi, lo) as a 128-bit big-endian integer and repeatedly divide
	// by 62, collecting remainders, using simple big-integer arithmetic
	// over two uint64 limbs.
	var digits []byte
	h, l := hi, lo
	for h != 0 || l != 0 {
		var rem uint64
		h, l, rem = divmod62(h, l)
		digits = append(digits, base62Alphabet[rem])
	}
	if len(digits) == 0 {
		digits = append(digits, base62Alphabet[0])
	}
	// digits were collected least-significant first; reverse.
	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}
	s := string(digits)
	if len(s) < contentAddressLen {
		s = strings.Repeat(string(base62Alphabet[0]), contentAddressLen-len(s)) + s
	}
	if len(s) > contentAddressLen {
		// 128 bits never produces more than 22 base62 digits
		// (62^22 > 2^128), so this only guards against programmer error.
		s = s[len(s)-contentAddressLen:]
	}
	return s
}

// divmod62 divides the 128-bit value (hi:lo) by 62, returning the
// quotient as (hi, lo) and the remainder.
func divmod62(hi, lo uint64) (qhi, qlo, rem uint64) {
	const base = 62
	// Binary long division, one bit at a time, so the running remainder
	// never exceeds 2*62 and no intermediate product can overflow.
	rem = 0
	qhi = 0
	for i := 63; i >= 0; i-- {
		rem = (rem << 1) | ((hi >> uint(i)) & 1)
		bit := uint64(0)
		if rem >= base {
			rem -= base
			bit = 1
		}
		qhi = (qhi << 1) | bit
	}
	qlo = 0
	for i := 63; i >= 0; i-- {
		rem = (rem << 1) | ((lo >> uint(i)) & 1)
		bit := uint64(0)
		if rem >= base {
			rem -= base
			bit = 1
		}
		qlo = (qlo << 1) | bit
	}
	return qhi, qlo, rem
}

// ContentAddress returns the 22-character base62 content address of the
// canonical JSON form of in.
func ContentAddress(in Input) string {
	hi, lo := Hash128([]byte(in.CanonicalJSON()))
	return EncodeBase62(hi, lo)
}

// ContentAddressString is ContentAddress for a raw string payload (used
// for message/ensemble content addressing where the canonical form is
// already a string).
func ContentAddressString(s string) string {
	hi, lo := Hash128([]byte(s))
	return EncodeBase62(hi, lo)
}
