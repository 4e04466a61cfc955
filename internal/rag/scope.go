package rag

import (
	"context"
	"fmt"
	"strings"
)

// MetadataExternalFileID is the chunk metadata key filters match on.
const MetadataExternalFileID = "externalFileId"

// Filter is a disjunction of externalFileId equality predicates. The zero
// value matches nothing.
type Filter struct {
	ExternalFileIDs []string
}

func ExactMatch(externalFileID string) Filter {
	return Filter{ExternalFileIDs: []string{externalFileID}}
}

func (f Filter) Empty() bool {
	return len(f.ExternalFileIDs) == 0
}

func (f Filter) Allows(externalFileID string) bool {
	for _, id := range f.ExternalFileIDs {
		if id == externalFileID {
			return true
		}
	}
	return false
}

func (f Filter) String() string {
	parts := make([]string, 0, len(f.ExternalFileIDs))
	for _, id := range f.ExternalFileIDs {
		parts = append(parts, fmt.Sprintf("%s == %q", MetadataExternalFileID, id))
	}
	return strings.Join(parts, " OR ")
}

// Scope is the authorised subset of a request's document ids.
type Scope struct {
	ExternalFileIDs []string
	Filter          Filter
}

type OwnedDocuments interface {
	ListExternalIDsByUserID(ctx context.Context, userID uint) ([]string, error)
}

type ScopeResolver struct {
	docs OwnedDocuments
}

func NewScopeResolver(docs OwnedDocuments) *ScopeResolver {
	return &ScopeResolver{docs: docs}
}

// Resolve intersects the requested ids with the user's documents, keeping
// request order. It only reads the document table.
func (r *ScopeResolver) Resolve(ctx context.Context, userID uint, requested []string) (*Scope, error) {
	owned, err := r.docs.ListExternalIDsByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(owned) == 0 {
		return nil, ErrNoDocuments
	}

	ownedSet := make(map[string]struct{}, len(owned))
	for _, id := range owned {
		ownedSet[id] = struct{}{}
	}

	seen := make(map[string]struct{}, len(requested))
	authorized := make([]string, 0, len(requested))
	for _, id := range requested {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := ownedSet[id]; ok {
			authorized = append(authorized, id)
		}
	}
	if len(authorized) == 0 {
		return nil, ErrNotAuthorized
	}

	return &Scope{
		ExternalFileIDs: authorized,
		Filter:          Filter{ExternalFileIDs: authorized},
	}, nil
}
