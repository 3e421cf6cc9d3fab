// Package docid encodes and decodes the composite document identifier.
//
// A document identifier packs the owner id, a random uniqueness token and the
// original filename into one string that is used both as the storage object
// name and as the record's document id. Business code passes Identifier values
// around; the raw key only appears at the storage boundary.
package docid

import (
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// Delimiter separates the fields of a key. Field values never contain it
// because every '_' inside a field is escaped.
const Delimiter = "_____"

// UnknownOwner is the owner id reported when a key carries no recoverable owner.
const UnknownOwner = "unknown"

// Identifier is the decoded form of a document key.
type Identifier struct {
	OwnerID  string
	Token    string
	Filename string // empty for legacy or malformed keys
	Key      string
}

// Encode builds a fresh identifier for an upload. Every call produces a new
// token, so identical (owner, filename) pairs never share a key.
func Encode(ownerID, filename string) Identifier {
	token := uuid.NewString()
	key := escape(ownerID) + Delimiter + token + Delimiter + escape(filename)
	return Identifier{
		OwnerID:  ownerID,
		Token:    token,
		Filename: filename,
		Key:      key,
	}
}

// Decode parses a key. It never fails: keys that do not follow the current
// layout degrade to the legacy two-field form or to UnknownOwner.
func Decode(key string) Identifier {
	parts := strings.Split(key, Delimiter)
	switch {
	case len(parts) >= 3:
		return Identifier{
			OwnerID:  ownerOrUnknown(unescape(parts[0])),
			Token:    parts[1],
			Filename: unescape(strings.Join(parts[2:], Delimiter)),
			Key:      key,
		}
	case len(parts) == 2:
		// Legacy uploads: owner_____<uuid>.<ext>
		return Identifier{
			OwnerID: ownerOrUnknown(unescape(parts[0])),
			Token:   parts[1],
			Key:     key,
		}
	default:
		return Identifier{
			OwnerID:  UnknownOwner,
			Filename: key,
			Key:      key,
		}
	}
}

// Resolved reports whether the owner could be recovered from the key.
func (id Identifier) Resolved() bool {
	return id.OwnerID != "" && id.OwnerID != UnknownOwner
}

// DisplayName is the name shown to users: the original filename when the key
// carries one, otherwise the key itself.
func (id Identifier) DisplayName() string {
	if id.Filename != "" {
		return id.Filename
	}
	return id.Key
}

func (id Identifier) String() string {
	return id.Key
}

func escape(s string) string {
	return strings.ReplaceAll(url.PathEscape(s), "_", "%5F")
}

func unescape(s string) string {
	decoded, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}

func ownerOrUnknown(owner string) string {
	if owner == "" {
		return UnknownOwner
	}
	return owner
}
