package storage

import (
	"strings"
	"time"

	"yumetv/internal/models"
)

// VoteDirection selects which side of a post vote or comment reaction the
// user is toggling.
type VoteDirection string

const (
	VoteUp   VoteDirection = "up"
	VoteDown VoteDirection = "down"
)

// PostParams carries the author-editable fields of a forum post.
type PostParams struct {
	Title    string
	Content  string
	Category string
}

func (p PostParams) validate() error {
	if strings.TrimSpace(p.Title) == "" || strings.TrimSpace(p.Content) == "" {
		return ErrNoChanges
	}
	if !models.ValidPostCategory(p.Category) {
		return ErrInvalidCategory
	}
	return nil
}

// ListPosts returns every post, newest-first as inserted.
func (s *Store) ListPosts() []models.ForumPost {
	return s.sync.Read().Posts
}

// GetPost looks up a post by id.
func (s *Store) GetPost(id int) (models.ForumPost, bool) {
	for _, post := range s.sync.Read().Posts {
		if post.ID == id {
			return post, true
		}
	}
	return models.ForumPost{}, false
}

// AddPost prepends a new post. The author starts it with their own upvote.
func (s *Store) AddPost(params PostParams, author models.User) (models.ForumPost, error) {
	if err := params.validate(); err != nil {
		return models.ForumPost{}, err
	}
	var created models.ForumPost
	err := s.sync.Update(func(doc Document) (Document, error) {
		created = models.ForumPost{
			ID:                      nextPostID(doc.Posts),
			Title:                   params.Title,
			Content:                 params.Content,
			Category:                params.Category,
			AuthorID:                author.ID,
			AuthorUsername:          author.Username,
			AuthorProfilePictureURL: author.ProfilePictureURL,
			AuthorRole:              author.Role,
			CreatedAt:               s.now(),
			IsPinned:                false,
			Upvotes:                 1,
			Downvotes:               0,
			UpvotedBy:               []int{author.ID},
			DownvotedBy:             []int{},
			Comments:                []models.ForumComment{},
		}
		next := doc
		next.Posts = append([]models.ForumPost{created}, doc.Posts...)
		return next, nil
	})
	if err != nil {
		return models.ForumPost{}, err
	}
	return created, nil
}

// UpdatePost replaces the title, content, and category of a post.
func (s *Store) UpdatePost(id int, params PostParams) (models.ForumPost, error) {
	if err := params.validate(); err != nil {
		return models.ForumPost{}, err
	}
	return s.mutatePost(id, func(post models.ForumPost) (models.ForumPost, error) {
		post.Title = params.Title
		post.Content = params.Content
		post.Category = params.Category
		return post, nil
	})
}

// DeletePost removes a post together with its comment tree.
func (s *Store) DeletePost(id int) error {
	return s.sync.Update(func(doc Document) (Document, error) {
		index := postIndex(doc.Posts, id)
		if index < 0 {
			return doc, ErrPostNotFound
		}
		next := doc
		posts := make([]models.ForumPost, 0, len(doc.Posts)-1)
		posts = append(posts, doc.Posts[:index]...)
		posts = append(posts, doc.Posts[index+1:]...)
		next.Posts = posts
		return next, nil
	})
}

// TogglePin flips the pinned flag on a post.
func (s *Store) TogglePin(id int) (models.ForumPost, error) {
	return s.mutatePost(id, func(post models.ForumPost) (models.ForumPost, error) {
		post.IsPinned = !post.IsPinned
		return post, nil
	})
}

// VotePost toggles the user's vote on a post. A user holds at most one of
// {up, down}: voting one way withdraws the other, and repeating a vote
// removes it. The derived counts are recomputed from the sets.
func (s *Store) VotePost(postID, userID int, direction VoteDirection) (models.ForumPost, error) {
	return s.mutatePost(postID, func(post models.ForumPost) (models.ForumPost, error) {
		switch direction {
		case VoteUp:
			post.UpvotedBy, post.DownvotedBy = toggleVote(post.UpvotedBy, post.DownvotedBy, userID)
		case VoteDown:
			post.DownvotedBy, post.UpvotedBy = toggleVote(post.DownvotedBy, post.UpvotedBy, userID)
		default:
			return post, ErrNoChanges
		}
		post.Upvotes = len(post.UpvotedBy)
		post.Downvotes = len(post.DownvotedBy)
		return post, nil
	})
}

// AddComment prepends a top-level comment to a post. Comments start liked by
// their author, matching the self-upvote on new posts.
func (s *Store) AddComment(postID int, author models.User, text string) (models.ForumComment, error) {
	var created models.ForumComment
	_, err := s.mutatePostInDoc(postID, func(doc Document, post models.ForumPost) (models.ForumPost, error) {
		created = newForumComment(nextCommentID(doc.Posts), author, text, s.now())
		post.Comments = append([]models.ForumComment{created}, post.Comments...)
		return post, nil
	})
	if err != nil {
		return models.ForumComment{}, err
	}
	return created, nil
}

// AddReply prepends a reply under the identified parent comment, anywhere in
// the tree.
func (s *Store) AddReply(postID, parentID int, author models.User, text string) (models.ForumComment, error) {
	var created models.ForumComment
	_, err := s.mutatePostInDoc(postID, func(doc Document, post models.ForumPost) (models.ForumPost, error) {
		created = newForumComment(nextCommentID(doc.Posts), author, text, s.now())
		comments, ok := updateReply(post.Comments, parentID, func(parent models.ForumComment) (models.ForumComment, bool) {
			parent.Replies = append([]models.ForumComment{created}, parent.Replies...)
			return parent, true
		})
		if !ok {
			return post, ErrCommentNotFound
		}
		post.Comments = comments
		return post, nil
	})
	if err != nil {
		return models.ForumComment{}, err
	}
	return created, nil
}

// EditComment replaces the text of the identified comment.
func (s *Store) EditComment(postID, commentID int, text string) (models.ForumComment, error) {
	var updated models.ForumComment
	_, err := s.mutatePost(postID, func(post models.ForumPost) (models.ForumPost, error) {
		comments, ok := updateReply(post.Comments, commentID, func(comment models.ForumComment) (models.ForumComment, bool) {
			comment.Text = text
			updated = comment
			return comment, true
		})
		if !ok {
			return post, ErrCommentNotFound
		}
		post.Comments = comments
		return post, nil
	})
	if err != nil {
		return models.ForumComment{}, err
	}
	return updated, nil
}

// DeleteComment removes the identified comment and its whole reply subtree.
func (s *Store) DeleteComment(postID, commentID int) error {
	_, err := s.mutatePost(postID, func(post models.ForumPost) (models.ForumPost, error) {
		comments, ok := updateReply(post.Comments, commentID, func(models.ForumComment) (models.ForumComment, bool) {
			return models.ForumComment{}, false
		})
		if !ok {
			return post, ErrCommentNotFound
		}
		post.Comments = comments
		return post, nil
	})
	return err
}

// VoteComment toggles a like or dislike on the identified comment with the
// same mutual exclusion as post votes.
func (s *Store) VoteComment(postID, commentID, userID int, direction VoteDirection) (models.ForumComment, error) {
	var updated models.ForumComment
	_, err := s.mutatePost(postID, func(post models.ForumPost) (models.ForumPost, error) {
		comments, ok := updateReply(post.Comments, commentID, func(comment models.ForumComment) (models.ForumComment, bool) {
			switch direction {
			case VoteUp:
				comment.LikedBy, comment.DislikedBy = toggleVote(comment.LikedBy, comment.DislikedBy, userID)
			case VoteDown:
				comment.DislikedBy, comment.LikedBy = toggleVote(comment.DislikedBy, comment.LikedBy, userID)
			}
			comment.Likes = len(comment.LikedBy)
			comment.Dislikes = len(comment.DislikedBy)
			updated = comment
			return comment, true
		})
		if !ok {
			return post, ErrCommentNotFound
		}
		post.Comments = comments
		return post, nil
	})
	if err != nil {
		return models.ForumComment{}, err
	}
	return updated, nil
}

// FindComment locates a comment anywhere under a post.
func (s *Store) FindComment(postID, commentID int) (models.ForumComment, bool) {
	post, ok := s.GetPost(postID)
	if !ok {
		return models.ForumComment{}, false
	}
	return findReply(post.Comments, commentID)
}

func newForumComment(id int, author models.User, text string, createdAt time.Time) models.ForumComment {
	return models.ForumComment{
		ID:                      id,
		AuthorID:                author.ID,
		AuthorUsername:          author.Username,
		AuthorProfilePictureURL: author.ProfilePictureURL,
		Text:                    text,
		CreatedAt:               createdAt,
		Likes:                   1,
		Dislikes:                0,
		LikedBy:                 []int{author.ID},
		DislikedBy:              []int{},
		Replies:                 []models.ForumComment{},
	}
}

// mutatePost rewrites one post through fn, leaving siblings untouched.
func (s *Store) mutatePost(id int, fn func(models.ForumPost) (models.ForumPost, error)) (models.ForumPost, error) {
	return s.mutatePostInDoc(id, func(_ Document, post models.ForumPost) (models.ForumPost, error) {
		return fn(post)
	})
}

// mutatePostInDoc is mutatePost with document context, for operations that
// need forest-wide information such as comment id assignment.
func (s *Store) mutatePostInDoc(id int, fn func(Document, models.ForumPost) (models.ForumPost, error)) (models.ForumPost, error) {
	var result models.ForumPost
	err := s.sync.Update(func(doc Document) (Document, error) {
		index := postIndex(doc.Posts, id)
		if index < 0 {
			return doc, ErrPostNotFound
		}
		updated, err := fn(doc, doc.Posts[index])
		if err != nil {
			return doc, err
		}
		result = updated

		next := doc
		posts := append([]models.ForumPost{}, doc.Posts...)
		posts[index] = updated
		next.Posts = posts
		return next, nil
	})
	if err != nil {
		return models.ForumPost{}, err
	}
	return result, nil
}

func postIndex(posts []models.ForumPost, id int) int {
	for i, post := range posts {
		if post.ID == id {
			return i
		}
	}
	return -1
}

func nextPostID(posts []models.ForumPost) int {
	max := 0
	for _, post := range posts {
		if post.ID > max {
			max = post.ID
		}
	}
	return max + 1
}
