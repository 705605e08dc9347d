package auth

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// maxSuffix bounds the number of suffixed candidates tried for one uid.
const maxSuffix = 1000

// uidStripped are the characters that are significant in document references.
const uidStripped = `.:@,/\^*?"`

// Claim tells how a candidate document name relates to a directory entry.
type Claim int

const (
	// ClaimFree means no document exists under the name.
	ClaimFree Claim = iota
	// ClaimOwned means the document is a profile of this entry or an unlinked profile it may adopt.
	ClaimOwned
	// ClaimTaken means the document belongs to something else.
	ClaimTaken
)

func (c Claim) String() string {
	switch c {
	case ClaimFree:
		return "free"
	case ClaimOwned:
		return "owned"
	default:
		return "taken"
	}
}

// ClaimFunc reports the claim of the document named name.
type ClaimFunc func(ctx context.Context, name string) (Claim, error)

// CleanUID removes every character of raw that would break a document reference.
// Case is preserved.
func CleanUID(raw string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || strings.ContainsRune(uidStripped, r) {
			return -1
		}

		return r
	}, raw)
}

// UIDNormalizer turns a directory uid into a local uid that is free or owned.
type UIDNormalizer struct {
	maxSuffix int
}

// NewUIDNormalizer returns a normalizer trying base, base_1 ... base_1000.
func NewUIDNormalizer() UIDNormalizer {
	return UIDNormalizer{maxSuffix: maxSuffix}
}

// Normalize cleans raw and walks base, base_1, base_2 ... returning the first
// candidate claim reports as free or owned. The walk is deterministic, so the
// same entry lands on the same candidate as long as earlier ones stay taken.
func (n UIDNormalizer) Normalize(ctx context.Context, raw string, claim ClaimFunc) (string, error) {
	base := CleanUID(raw)
	if base == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidUID, raw)
	}

	limit := n.maxSuffix
	if limit <= 0 {
		limit = maxSuffix
	}

	for i := 0; i <= limit; i++ {
		candidate := suffixed(base, i)

		c, err := claim(ctx, candidate)
		if err != nil {
			return "", err
		}

		if c != ClaimTaken {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrNoFreeUID, base)
}

func suffixed(base string, i int) string {
	if i == 0 {
		return base
	}

	return base + "_" + strconv.Itoa(i)
}
