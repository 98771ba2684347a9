package storage

import (
	"sort"
	"strings"

	"yumetv/internal/models"
)

// MediaParams carries the admin-editable fields of a catalogue entry.
// Comments and ratings are managed through their own operations.
type MediaParams struct {
	Title             string
	Description       string
	PosterURL         string
	ThumbnailURL      string
	ReleaseYear       int
	Genre             []string
	Type              models.MediaType
	AudioLanguages    []string
	SubtitleLanguages []string
	IsProtected       bool
	LicenseServerURL  string
	AgeRating         string
	SourceURL         string
	Seasons           []models.Season
	Tags              []string
}

func (p MediaParams) apply(media models.Media) models.Media {
	media.Title = p.Title
	media.Description = p.Description
	media.PosterURL = p.PosterURL
	media.ThumbnailURL = p.ThumbnailURL
	media.ReleaseYear = p.ReleaseYear
	media.Genre = append([]string{}, p.Genre...)
	media.Type = p.Type
	media.AudioLanguages = append([]string{}, p.AudioLanguages...)
	media.SubtitleLanguages = append([]string{}, p.SubtitleLanguages...)
	media.IsProtected = p.IsProtected
	media.LicenseServerURL = p.LicenseServerURL
	media.AgeRating = p.AgeRating
	media.SourceURL = p.SourceURL
	media.Seasons = append([]models.Season{}, p.Seasons...)
	media.Tags = append([]string{}, p.Tags...)
	return media
}

// ListMedia returns the whole catalogue.
func (s *Store) ListMedia() []models.Media {
	return s.sync.Read().Media
}

// GetMedia looks up a catalogue entry by id.
func (s *Store) GetMedia(id int) (models.Media, bool) {
	for _, media := range s.sync.Read().Media {
		if media.ID == id {
			return media, true
		}
	}
	return models.Media{}, false
}

// AddMedia inserts a new catalogue entry with the next free id.
func (s *Store) AddMedia(params MediaParams) (models.Media, error) {
	var created models.Media
	err := s.sync.Update(func(doc Document) (Document, error) {
		created = params.apply(models.Media{Comments: []models.MediaComment{}})
		created.ID = nextMediaID(doc.Media)

		next := doc
		next.Media = append(append([]models.Media{}, doc.Media...), created)
		return next, nil
	})
	if err != nil {
		return models.Media{}, err
	}
	return created, nil
}

// UpdateMedia replaces the editable fields of an existing entry; comments
// and ratings survive the edit.
func (s *Store) UpdateMedia(id int, params MediaParams) (models.Media, error) {
	var updated models.Media
	err := s.sync.Update(func(doc Document) (Document, error) {
		index := mediaIndex(doc.Media, id)
		if index < 0 {
			return doc, ErrMediaNotFound
		}
		updated = params.apply(doc.Media[index])

		next := doc
		items := append([]models.Media{}, doc.Media...)
		items[index] = updated
		next.Media = items
		return next, nil
	})
	if err != nil {
		return models.Media{}, err
	}
	return updated, nil
}

// DeleteMedia removes a catalogue entry.
func (s *Store) DeleteMedia(id int) error {
	return s.sync.Update(func(doc Document) (Document, error) {
		index := mediaIndex(doc.Media, id)
		if index < 0 {
			return doc, ErrMediaNotFound
		}
		next := doc
		items := make([]models.Media, 0, len(doc.Media)-1)
		items = append(items, doc.Media[:index]...)
		items = append(items, doc.Media[index+1:]...)
		next.Media = items
		return next, nil
	})
}

// AddMediaComment prepends a flat comment to the media item. Comments get a
// per-media id so edits and deletes never key off the timestamp, which two
// comments could share.
func (s *Store) AddMediaComment(mediaID int, username, text string) (models.MediaComment, error) {
	var created models.MediaComment
	err := s.sync.Update(func(doc Document) (Document, error) {
		index := mediaIndex(doc.Media, mediaID)
		if index < 0 {
			return doc, ErrMediaNotFound
		}
		media := doc.Media[index]
		created = models.MediaComment{
			ID:        nextMediaCommentID(media.Comments),
			Username:  username,
			Text:      text,
			Timestamp: s.now(),
		}
		media.Comments = append([]models.MediaComment{created}, media.Comments...)

		next := doc
		items := append([]models.Media{}, doc.Media...)
		items[index] = media
		next.Media = items
		return next, nil
	})
	if err != nil {
		return models.MediaComment{}, err
	}
	return created, nil
}

// EditMediaComment replaces the text of an existing media comment.
func (s *Store) EditMediaComment(mediaID, commentID int, text string) (models.MediaComment, error) {
	var updated models.MediaComment
	err := s.sync.Update(func(doc Document) (Document, error) {
		index := mediaIndex(doc.Media, mediaID)
		if index < 0 {
			return doc, ErrMediaNotFound
		}
		media := doc.Media[index]
		commentIdx := -1
		for i, comment := range media.Comments {
			if comment.ID == commentID {
				commentIdx = i
				break
			}
		}
		if commentIdx < 0 {
			return doc, ErrCommentNotFound
		}
		comments := append([]models.MediaComment{}, media.Comments...)
		comments[commentIdx].Text = text
		updated = comments[commentIdx]
		media.Comments = comments

		next := doc
		items := append([]models.Media{}, doc.Media...)
		items[index] = media
		next.Media = items
		return next, nil
	})
	if err != nil {
		return models.MediaComment{}, err
	}
	return updated, nil
}

// DeleteMediaComment removes a media comment.
func (s *Store) DeleteMediaComment(mediaID, commentID int) error {
	return s.sync.Update(func(doc Document) (Document, error) {
		index := mediaIndex(doc.Media, mediaID)
		if index < 0 {
			return doc, ErrMediaNotFound
		}
		media := doc.Media[index]
		comments := make([]models.MediaComment, 0, len(media.Comments))
		found := false
		for _, comment := range media.Comments {
			if comment.ID == commentID {
				found = true
				continue
			}
			comments = append(comments, comment)
		}
		if !found {
			return doc, ErrCommentNotFound
		}
		media.Comments = comments

		next := doc
		items := append([]models.Media{}, doc.Media...)
		items[index] = media
		next.Media = items
		return next, nil
	})
}

// RateMedia upserts the user's rating: one rating per (media, user), a
// repeat replaces rather than appends.
func (s *Store) RateMedia(mediaID, userID, score int) (models.Media, error) {
	if score < 1 || score > 5 {
		return models.Media{}, ErrInvalidRating
	}
	var updated models.Media
	err := s.sync.Update(func(doc Document) (Document, error) {
		index := mediaIndex(doc.Media, mediaID)
		if index < 0 {
			return doc, ErrMediaNotFound
		}
		media := doc.Media[index]

		ratings := make([]models.Rating, 0, len(media.Ratings)+1)
		for _, rating := range media.Ratings {
			if rating.UserID != userID {
				ratings = append(ratings, rating)
			}
		}
		ratings = append(ratings, models.Rating{UserID: userID, Rating: score})
		media.Ratings = ratings
		updated = media

		next := doc
		items := append([]models.Media{}, doc.Media...)
		items[index] = media
		next.Media = items
		return next, nil
	})
	if err != nil {
		return models.Media{}, err
	}
	return updated, nil
}

// Genres returns the deduplicated, sorted set of genres across the catalogue.
func (s *Store) Genres() []string {
	return collectFacet(s.sync.Read().Media, func(m models.Media) []string { return m.Genre })
}

// AudioLanguages returns the deduplicated, sorted audio languages on offer.
func (s *Store) AudioLanguages() []string {
	return collectFacet(s.sync.Read().Media, func(m models.Media) []string { return m.AudioLanguages })
}

// SubtitleLanguages returns the deduplicated, sorted subtitle languages.
func (s *Store) SubtitleLanguages() []string {
	return collectFacet(s.sync.Read().Media, func(m models.Media) []string { return m.SubtitleLanguages })
}

func collectFacet(items []models.Media, pick func(models.Media) []string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, media := range items {
		for _, value := range pick(media) {
			value = strings.TrimSpace(value)
			if value == "" {
				continue
			}
			if _, ok := seen[value]; ok {
				continue
			}
			seen[value] = struct{}{}
			out = append(out, value)
		}
	}
	sort.Strings(out)
	return out
}

func mediaIndex(items []models.Media, id int) int {
	for i, media := range items {
		if media.ID == id {
			return i
		}
	}
	return -1
}

func nextMediaID(items []models.Media) int {
	max := 0
	for _, media := range items {
		if media.ID > max {
			max = media.ID
		}
	}
	return max + 1
}

func nextMediaCommentID(comments []models.MediaComment) int {
	max := 0
	for _, comment := range comments {
		if comment.ID > max {
			max = comment.ID
		}
	}
	return max + 1
}
