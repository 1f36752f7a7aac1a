// Package masking derives de-identified display values from raw patient
// identifiers. Values are computed once, at write time, and persisted next to
// the raw data they came from.
package masking

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/zeebo/blake3"

	dErrors "medgate/pkg/domain-errors"
)

const (
	// KeySize is the length in bytes of a pseudonym key.
	KeySize = 32

	namePrefix    = "ANON_"
	contactPrefix = "XXX-XXX-"
	nameModulus   = 10000
	contactSuffix = 4
)

// Masker produces pseudonyms with a keyed BLAKE3 hash. A Masker built from the
// same key yields the same pseudonyms in every process.
type Masker struct {
	key []byte
}

// NewMasker copies key so later mutation by the caller has no effect.
func NewMasker(key []byte) (*Masker, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("pseudonym key must be %d bytes, got %d", KeySize, len(key))
	}
	k := make([]byte, KeySize)
	copy(k, key)
	return &Masker{key: k}, nil
}

// MaskName returns "ANON_<n>" where n is the keyed hash of raw reduced modulo 10000.
func (m *Masker) MaskName(raw string) string {
	// key length is checked in NewMasker, NewKeyed cannot fail here
	h, _ := blake3.NewKeyed(m.key)
	_, _ = h.Write([]byte(raw))
	sum := h.Sum(nil)
	n := binary.BigEndian.Uint64(sum[:8]) % nameModulus
	return namePrefix + strconv.FormatUint(n, 10)
}

// MaskContact keeps the last four characters of raw. Shorter input is rejected
// rather than padded.
func (m *Masker) MaskContact(raw string) (string, error) {
	runes := []rune(raw)
	if len(runes) < contactSuffix {
		return "", dErrors.New(dErrors.CodeValidation, "contact must have at least 4 characters")
	}
	return contactPrefix + string(runes[len(runes)-contactSuffix:]), nil
}
