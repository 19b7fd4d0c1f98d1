package tenant

import (
	"errors"
	"fmt"
	"strings"
)

// ContentClass is the top-level storage class for tenant content.
type ContentClass string

const (
	// ClassUploads holds content the tenant uploaded directly.
	ClassUploads ContentClass = "uploads"
	// ClassGenerated holds content the platform derived from uploads.
	ClassGenerated ContentClass = "generated"
)

// ContentKind is the storage subclass within a content class.
type ContentKind string

const (
	KindPhotos     ContentKind = "photos"
	KindVideos     ContentKind = "videos"
	KindChunks     ContentKind = "chunks"
	KindMontages   ContentKind = "montages"
	KindSlideshows ContentKind = "slideshows"
)

// Path resolution errors. These indicate caller programming errors, not
// runtime conditions: the upload pipeline must only pass authenticated
// tenant ids and enum values it owns.
var (
	ErrInvalidClass    = errors.New("invalid content class")
	ErrInvalidKind     = errors.New("invalid content kind")
	ErrInvalidFilename = errors.New("invalid filename")
)

// kindsByClass enumerates which subclasses are valid under each class.
// Derived content kinds (chunks, montages, slideshows) only exist under
// the generated class.
var kindsByClass = map[ContentClass]map[ContentKind]bool{
	ClassUploads: {
		KindPhotos: true,
		KindVideos: true,
	},
	ClassGenerated: {
		KindPhotos:     true,
		KindVideos:     true,
		KindChunks:     true,
		KindMontages:   true,
		KindSlideshows: true,
	},
}

// ResolveStorageKey maps (tenant id, class, kind, filename) to the canonical
// storage key: tenants/{tenant_id}/{class}/{kind}/{filename}.
//
// The returned key is always prefixed by the tenant's own id, which is the
// isolation guarantee every storage write relies on. The resolver trusts its
// tenant id input completely - it is not an authorization boundary; the
// boundary lives in the authentication collaborator.
func ResolveStorageKey(tenantID string, class ContentClass, kind ContentKind, filename string) (string, error) {
	if !ValidID(tenantID) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTenant, tenantID)
	}
	kinds, ok := kindsByClass[class]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidClass, class)
	}
	if !kinds[kind] {
		return "", fmt.Errorf("%w: %q under class %q", ErrInvalidKind, kind, class)
	}
	if err := validateFilename(filename); err != nil {
		return "", err
	}
	return fmt.Sprintf("tenants/%s/%s/%s/%s", tenantID, class, kind, filename), nil
}

// validateFilename rejects names that could escape the tenant prefix.
func validateFilename(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidFilename)
	}
	if strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidFilename, name)
	}
	if name == "." || name == ".." || strings.HasPrefix(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}
	return nil
}
