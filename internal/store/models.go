package store

import (
	"strings"
	"time"
)

// MediaRecord is one catalog entry for a stored photo or video.
type MediaRecord struct {
	// ID is the media UUID, shared with the vector index entry.
	ID string `gorm:"primaryKey;size:36"`

	// TenantID scopes the record. Indexed for tenant-wide scans.
	TenantID string `gorm:"size:64;index:idx_tenant_kind,priority:1;not null"`

	// Class is "uploads" or "generated".
	Class string `gorm:"size:16;not null"`

	// Kind is the content kind (photos, videos, chunks, montages,
	// slideshows).
	Kind string `gorm:"size:16;index:idx_tenant_kind,priority:2;not null"`

	// Filename is the original file name, searchable.
	Filename string `gorm:"size:255;not null"`

	// Title is an optional display title, searchable for videos.
	Title string `gorm:"size:255"`

	// Tags is a comma-separated lowercase tag list, searchable.
	Tags string `gorm:"size:1024"`

	// Album optionally groups records.
	Album string `gorm:"size:255;index"`

	// StorageKey is the object storage location, derived from the
	// tenant path convention.
	StorageKey string `gorm:"size:512;not null"`

	SizeBytes   int64
	ContentType string `gorm:"size:128"`

	// DurationSeconds is set for videos, zero for photos.
	DurationSeconds float64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName pins the table name regardless of gorm pluralization.
func (MediaRecord) TableName() string { return "media_records" }

// TagList splits the stored tag string into individual tags.
func (m *MediaRecord) TagList() []string {
	if m.Tags == "" {
		return nil
	}
	parts := strings.Split(m.Tags, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

// JoinTags normalizes a tag slice into the stored comma-separated form.
func JoinTags(tags []string) string {
	cleaned := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			cleaned = append(cleaned, t)
		}
	}
	return strings.Join(cleaned, ",")
}
