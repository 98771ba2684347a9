package storage

import "yumetv/internal/models"

// Repository exposes the datastore operations required by the API handlers
// and the operator tools.
type Repository interface {
	Document() Document
	Settings() models.Settings

	Register(params RegisterParams) (models.PendingUser, error)
	VerifyEmail(token string) (models.User, error)
	ResendVerification(email string) (models.PendingUser, error)
	Authenticate(username, password string) (models.User, error)
	ListUsers() []models.User
	GetUser(id int) (models.User, bool)
	FindUserByUsername(username string) (models.User, bool)
	UpdateUserRole(id int, role models.Role) (models.User, error)
	UpdateUserProfile(id int, update ProfileUpdate) (models.User, error)
	DeleteUser(id int) error
	TrackProgress(userID int, update WatchedUpdate) (models.User, error)
	WatchedProgress(userID, mediaID int, season, episode *int) (models.WatchedItem, bool)

	ListMedia() []models.Media
	GetMedia(id int) (models.Media, bool)
	AddMedia(params MediaParams) (models.Media, error)
	UpdateMedia(id int, params MediaParams) (models.Media, error)
	DeleteMedia(id int) error
	AddMediaComment(mediaID int, username, text string) (models.MediaComment, error)
	EditMediaComment(mediaID, commentID int, text string) (models.MediaComment, error)
	DeleteMediaComment(mediaID, commentID int) error
	RateMedia(mediaID, userID, score int) (models.Media, error)
	Genres() []string
	AudioLanguages() []string
	SubtitleLanguages() []string

	ListPosts() []models.ForumPost
	GetPost(id int) (models.ForumPost, bool)
	AddPost(params PostParams, author models.User) (models.ForumPost, error)
	UpdatePost(id int, params PostParams) (models.ForumPost, error)
	DeletePost(id int) error
	TogglePin(id int) (models.ForumPost, error)
	VotePost(postID, userID int, direction VoteDirection) (models.ForumPost, error)
	AddComment(postID int, author models.User, text string) (models.ForumComment, error)
	AddReply(postID, parentID int, author models.User, text string) (models.ForumComment, error)
	EditComment(postID, commentID int, text string) (models.ForumComment, error)
	DeleteComment(postID, commentID int) error
	VoteComment(postID, commentID, userID int, direction VoteDirection) (models.ForumComment, error)
	FindComment(postID, commentID int) (models.ForumComment, bool)

	SetMaintenanceMode(mode models.MaintenanceMode) (models.Settings, error)
	UpdatePlayerSettings(update PlayerSettingsUpdate) (models.Settings, error)
	SetSiteName(name string) (models.Settings, error)
}

var _ Repository = (*Store)(nil)
