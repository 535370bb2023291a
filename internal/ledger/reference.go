package ledger

import (
	"strings"

	"github.com/google/uuid"
)

// ReferenceKind prefixes a transaction reference with the entity it settles.
type ReferenceKind string

const (
	BookingReference    ReferenceKind = "BKG"
	InvestmentReference ReferenceKind = "INV"
)

// NewReference returns a globally unique transaction reference such as
// "BKG-6f1c...". The random part makes references unique across kinds.
func NewReference(kind ReferenceKind) string {
	return string(kind) + "-" + uuid.NewString()
}

// KindOf reports the kind encoded in ref, if any.
func KindOf(ref string) (ReferenceKind, bool) {
	prefix, _, ok := strings.Cut(ref, "-")
	if !ok {
		return "", false
	}
	switch ReferenceKind(prefix) {
	case BookingReference, InvestmentReference:
		return ReferenceKind(prefix), true
	}
	return "", false
}
