package entity

import "regexp"

// Kind distinguishes entities backed by the remote store from entities that
// only exist in the bundled seed dataset.
type Kind string

const (
	// KindRemote marks identifiers in the canonical 8-4-4-4-12 hex format.
	KindRemote Kind = "remote"
	// KindSeed marks every other identifier.
	KindSeed Kind = "seed"
)

var canonicalIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// Ref is a classified entity reference. Call sites branch on Kind instead of
// re-checking the identifier format.
type Ref struct {
	Kind Kind
	ID   string
}

// IsCanonical reports whether the identifier matches the canonical format
// used by the remote store, case-insensitively.
func IsCanonical(id string) bool {
	return canonicalIDPattern.MatchString(id)
}

// Classify tags an identifier as remote-backed or seed-backed.
func Classify(id string) Ref {
	if IsCanonical(id) {
		return Ref{Kind: KindRemote, ID: id}
	}
	return Ref{Kind: KindSeed, ID: id}
}

// IsRemote reports whether the reference points at the remote store.
func (r Ref) IsRemote() bool {
	return r.Kind == KindRemote
}

// IsSeed reports whether the reference points at the seed dataset.
func (r Ref) IsSeed() bool {
	return r.Kind == KindSeed
}
