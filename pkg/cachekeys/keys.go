package cachekeys

import (
	"fmt"
	"net/url"

	"gitlab.com/timkado/api/daisi-gateway-service/pkg/crypto"
)

// PostKey generates the cache key for a single composed post.
func PostKey(postID int64) string {
	return fmt.Sprintf("post:%d", postID)
}

// TopicKey generates the cache key for a single composed topic.
func TopicKey(topicID int64) string {
	return fmt.Sprintf("topic:%d", topicID)
}

// GalleryKey generates the cache key for a single composed gallery.
func GalleryKey(galleryID int64) string {
	return fmt.Sprintf("gallery:%d", galleryID)
}

// ProfileKey generates the cache key for a resolved profile.
func ProfileKey(userID int64) string {
	return fmt.Sprintf("profile:%d", userID)
}

// ListKey generates the cache key for a paginated collection. Every filter,
// sort and pagination parameter participates in the key so that distinct
// parameter sets never collide. The parameter set is reduced to a hash of its
// canonical (sorted) encoding to keep keys short and deterministic.
func ListKey(resource string, params url.Values) string {
	// url.Values.Encode sorts by key, so the encoding is canonical.
	return fmt.Sprintf("%s:list:%s", resource, crypto.Sha256Hex(params.Encode()))
}
