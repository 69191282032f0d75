package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ImageRole is one of the six canonical image slots of a book.
type ImageRole string

// Canonical image roles.
const (
	ImageRoleBookDetail ImageRole = "book-detail"
	ImageRoleBackground ImageRole = "background"
	ImageRoleHero       ImageRole = "hero"
	ImageRoleBookCard   ImageRole = "book-card"
	ImageRoleGridItem   ImageRole = "grid-item"
	ImageRoleMini       ImageRole = "mini"
)

// ImageRoles lists every role in canonical order.
var ImageRoles = []ImageRole{
	ImageRoleBookDetail,
	ImageRoleBackground,
	ImageRoleHero,
	ImageRoleBookCard,
	ImageRoleGridItem,
	ImageRoleMini,
}

// ParseImageRole converts a wire value into an ImageRole. Case-sensitive.
func ParseImageRole(s string) (ImageRole, error) {
	for _, r := range ImageRoles {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown image role %q", s)
}

// ImageAsset is a stored image tied to one (book, role) slot.
type ImageAsset struct {
	BookID    int64     `json:"book_id"`
	Role      ImageRole `json:"role"`
	URL       string    `json:"url"`
	ObjectKey string    `json:"object_key"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	SizeKB    int       `json:"size_kb"`
	BlurHash  string    `json:"blur_hash,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Blob is an uploaded image payload or a reference to a remote one.
// Exactly one of Data or URL is expected to be set.
type Blob struct {
	Data        []byte `json:"data,omitempty"`
	URL         string `json:"url,omitempty"`
	Filename    string `json:"filename,omitempty"`
	ContentType string `json:"contentType,omitempty"`
}

// IsRemote reports whether the blob must be fetched before it can be stored.
func (b Blob) IsRemote() bool {
	return len(b.Data) == 0 && IsRemoteRef(b.URL)
}

// IsEmpty reports whether the blob carries neither bytes nor a URL.
func (b Blob) IsEmpty() bool {
	return len(b.Data) == 0 && b.URL == ""
}

// IsRemoteRef reports whether a reference string is an http(s) URL.
func IsRemoteRef(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// BlobKey builds the request-level blob key for a record index and role,
// e.g. "book_3_hero".
func BlobKey(index int, role ImageRole) string {
	return fmt.Sprintf("book_%d_%s", index, role)
}

// ParseBlobKey splits a "book_<index>_<role>" key. The role part is returned raw
// so callers can decide how to report unknown roles.
func ParseBlobKey(key string) (index int, role string, err error) {
	rest, ok := strings.CutPrefix(key, "book_")
	if !ok {
		return 0, "", fmt.Errorf("blob key %q must start with book_", key)
	}
	idx, role, ok := strings.Cut(rest, "_")
	if !ok || idx == "" || role == "" {
		return 0, "", fmt.Errorf("blob key %q must look like book_<index>_<role>", key)
	}
	index, err = strconv.Atoi(idx)
	if err != nil || index < 0 || strconv.Itoa(index) != idx {
		return 0, "", fmt.Errorf("blob key %q has invalid record index", key)
	}
	return index, role, nil
}
