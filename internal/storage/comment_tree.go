package storage

import "yumetv/internal/models"

// The reply tree has unbounded depth but globally unique comment ids, so a
// mutation targets exactly one node in the whole forest. updateReply walks
// depth-first, applies the callback to the first node matching id, and stops.
// The callback returns the replacement node and whether to keep it; returning
// keep=false removes the node together with its entire reply subtree, and the
// children are not reparented. Sibling order is preserved either way, and
// untouched branches are shared structurally with the input.
func updateReply(comments []models.ForumComment, id int, fn func(models.ForumComment) (models.ForumComment, bool)) ([]models.ForumComment, bool) {
	for i, comment := range comments {
		if comment.ID == id {
			out := make([]models.ForumComment, 0, len(comments))
			out = append(out, comments[:i]...)
			if updated, keep := fn(comment); keep {
				out = append(out, updated)
			}
			out = append(out, comments[i+1:]...)
			return out, true
		}
		if len(comment.Replies) == 0 {
			continue
		}
		if replies, ok := updateReply(comment.Replies, id, fn); ok {
			out := append([]models.ForumComment(nil), comments...)
			updated := comment
			updated.Replies = replies
			out[i] = updated
			return out, true
		}
	}
	return comments, false
}

// findReply locates a comment by id anywhere in the tree.
func findReply(comments []models.ForumComment, id int) (models.ForumComment, bool) {
	for _, comment := range comments {
		if comment.ID == id {
			return comment, true
		}
		if found, ok := findReply(comment.Replies, id); ok {
			return found, true
		}
	}
	return models.ForumComment{}, false
}

func maxReplyID(comments []models.ForumComment) int {
	max := 0
	for _, comment := range comments {
		if comment.ID > max {
			max = comment.ID
		}
		if nested := maxReplyID(comment.Replies); nested > max {
			max = nested
		}
	}
	return max
}

// nextCommentID assigns ids that are unique across every post and nesting
// depth: one more than the largest id found anywhere in the forest.
func nextCommentID(posts []models.ForumPost) int {
	max := 0
	for _, post := range posts {
		if nested := maxReplyID(post.Comments); nested > max {
			max = nested
		}
	}
	return max + 1
}
