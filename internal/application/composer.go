package application

import (
	"gitlab.com/timkado/api/daisi-gateway-service/internal/domain"
)

// The composer is a pure merge layer: it places resolved-or-placeholder
// identities into the structural slots of a primary entity and preserves the
// original sub-resource ordering. It performs no I/O and is idempotent:
// composing the same inputs twice yields identical output.

// identityOrPlaceholder returns the resolved identity for userID, or a
// placeholder carrying the original ID when the lookup did not resolve.
func identityOrPlaceholder(userID int64, resolved map[int64]*domain.Identity) *domain.Identity {
	if identity, ok := resolved[userID]; ok && identity != nil {
		return identity
	}
	return domain.NewPlaceholderIdentity(userID)
}

// ComposePost fills the author slots of a post, its quoted post and its
// embedded comments and likes. Sub-resource ordering matches the input
// regardless of which identity lookups resolved.
func ComposePost(post domain.Post, resolved map[int64]*domain.Identity) domain.Post {
	post.Author = identityOrPlaceholder(post.AuthorID, resolved)
	if post.QuotedAuthorID != 0 {
		post.QuotedAuthor = identityOrPlaceholder(post.QuotedAuthorID, resolved)
	}

	comments := make([]domain.Comment, len(post.Comments))
	for i, comment := range post.Comments {
		comment.Author = identityOrPlaceholder(comment.AuthorID, resolved)
		comments[i] = comment
	}
	post.Comments = comments

	likes := make([]domain.Like, len(post.Likes))
	for i, like := range post.Likes {
		like.Author = identityOrPlaceholder(like.UserID, resolved)
		likes[i] = like
	}
	post.Likes = likes

	return post
}

// ComposeTopic fills the author and last-post-author slots of a topic.
func ComposeTopic(topic domain.Topic, resolved map[int64]*domain.Identity) domain.Topic {
	topic.Author = identityOrPlaceholder(topic.AuthorID, resolved)
	if topic.LastPostAuthorID != 0 {
		topic.LastPostAuthor = identityOrPlaceholder(topic.LastPostAuthorID, resolved)
	}
	return topic
}

// ComposeGallery fills the author slots of a gallery and its comments.
func ComposeGallery(gallery domain.Gallery, resolved map[int64]*domain.Identity) domain.Gallery {
	gallery.Author = identityOrPlaceholder(gallery.AuthorID, resolved)

	comments := make([]domain.Comment, len(gallery.Comments))
	for i, comment := range gallery.Comments {
		comment.Author = identityOrPlaceholder(comment.AuthorID, resolved)
		comments[i] = comment
	}
	gallery.Comments = comments

	return gallery
}

// CollectPostIdentityIDs returns every identity reference a post needs
// resolved: the author, the quoted-post author when present, each comment
// author and each like author. Order follows the structural order of the
// post; duplicates are kept (the resolver deduplicates).
func CollectPostIdentityIDs(post domain.Post) []int64 {
	ids := make([]int64, 0, 2+len(post.Comments)+len(post.Likes))
	ids = append(ids, post.AuthorID)
	if post.QuotedAuthorID != 0 {
		ids = append(ids, post.QuotedAuthorID)
	}
	for _, comment := range post.Comments {
		ids = append(ids, comment.AuthorID)
	}
	for _, like := range post.Likes {
		ids = append(ids, like.UserID)
	}
	return ids
}

// CollectTopicIdentityIDs returns the identity references of a topic.
func CollectTopicIdentityIDs(topic domain.Topic) []int64 {
	ids := []int64{topic.AuthorID}
	if topic.LastPostAuthorID != 0 {
		ids = append(ids, topic.LastPostAuthorID)
	}
	return ids
}

// CollectGalleryIdentityIDs returns the identity references of a gallery.
func CollectGalleryIdentityIDs(gallery domain.Gallery) []int64 {
	ids := make([]int64, 0, 1+len(gallery.Comments))
	ids = append(ids, gallery.AuthorID)
	for _, comment := range gallery.Comments {
		ids = append(ids, comment.AuthorID)
	}
	return ids
}
