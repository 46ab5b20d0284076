package archive

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"
)

// tweetsPrefix is the JavaScript assignment the archive prepends to the JSON
// payload of data/tweets.js.
const tweetsPrefix = "window.YTD.tweets.part0 = "

// twitterTimestamp is the layout of created_at values in the archive.
const twitterTimestamp = "Mon Jan 02 15:04:05 -0700 2006"

// Archive reads tweets out of an extracted Twitter archive directory.
type Archive struct {
	dir string
}

// Open returns an Archive rooted at the extracted archive directory.
func Open(dir string) *Archive {
	return &Archive{dir: dir}
}

// Dir returns the archive root directory.
func (a *Archive) Dir() string {
	return a.dir
}

// MediaDir returns the directory holding the archive's bundled media copies.
func (a *Archive) MediaDir() string {
	return filepath.Join(a.dir, "data", "tweets_media")
}

// LoadTweets parses data/tweets.js and returns every tweet sorted
// chronologically ascending, id descending as the tie-break.
func (a *Archive) LoadTweets() ([]Tweet, error) {
	tweetsPath := filepath.Join(a.dir, "data", "tweets.js")
	data, err := os.ReadFile(tweetsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", tweetsPath, err)
	}

	if !bytes.HasPrefix(data, []byte(tweetsPrefix)) {
		return nil, fmt.Errorf("%s did not start with %q", tweetsPath, tweetsPrefix)
	}
	data = data[len(tweetsPrefix):]

	var entries []rawEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", tweetsPath, err)
	}

	tweets := make([]Tweet, 0, len(entries))
	for _, entry := range entries {
		tweet, err := entry.Tweet.toTweet()
		if err != nil {
			return nil, err
		}
		tweets = append(tweets, tweet)
	}

	SortTweets(tweets)
	return tweets, nil
}

// rawEntry mirrors the archive JSON: each array element wraps the tweet in a
// single-key object.
type rawEntry struct {
	Tweet rawTweet `json:"tweet"`
}

type rawTweet struct {
	ID               string       `json:"id"`
	InReplyToID      string       `json:"in_reply_to_status_id"`
	CreatedAt        string       `json:"created_at"`
	Language         string       `json:"lang"`
	FullText         string       `json:"full_text"`
	Entities         rawEntities  `json:"entities"`
	ExtendedEntities *rawEntities `json:"extended_entities"`
}

type rawEntities struct {
	URLs         []rawURLEntity     `json:"urls"`
	UserMentions []rawMentionEntity `json:"user_mentions"`
	Media        []rawMediaEntity   `json:"media"`
}

type rawURLEntity struct {
	ExpandedURL string  `json:"expanded_url"`
	Indices     rawSpan `json:"indices"`
}

type rawMentionEntity struct {
	ID         string  `json:"id"`
	ScreenName string  `json:"screen_name"`
	Indices    rawSpan `json:"indices"`
}

type rawMediaEntity struct {
	ID            string  `json:"id"`
	MediaURLHTTPS string  `json:"media_url_https"`
	Indices       rawSpan `json:"indices"`
}

// rawSpan decodes the archive's two-string-array index representation into a
// half-open Span.
type rawSpan Span

func (s *rawSpan) UnmarshalJSON(data []byte) error {
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	if len(items) != 2 {
		return fmt.Errorf("expected two indices, got %d", len(items))
	}
	start, err := strconv.Atoi(items[0])
	if err != nil {
		return fmt.Errorf("invalid index %q: %w", items[0], err)
	}
	end, err := strconv.Atoi(items[1])
	if err != nil {
		return fmt.Errorf("invalid index %q: %w", items[1], err)
	}
	s.Start = start
	s.End = end
	return nil
}

func (t rawTweet) toTweet() (Tweet, error) {
	createdAt, err := time.Parse(twitterTimestamp, t.CreatedAt)
	if err != nil {
		return Tweet{}, fmt.Errorf("tweet %s has invalid created_at: %w", t.ID, err)
	}

	var entities []Entity
	for _, e := range t.Entities.URLs {
		entities = append(entities, URLEntity{
			URL:     e.ExpandedURL,
			Indices: Span(e.Indices),
		})
	}
	for _, e := range t.Entities.UserMentions {
		entities = append(entities, MentionEntity{
			UserID:   e.ID,
			Username: e.ScreenName,
			Indices:  Span(e.Indices),
		})
	}

	// extended_entities supersedes entities.media when present: it carries
	// one element per attachment instead of a single representative one.
	media := t.Entities.Media
	if t.ExtendedEntities != nil && len(t.ExtendedEntities.Media) > 0 {
		media = t.ExtendedEntities.Media
	}
	for _, e := range media {
		filename := path.Base(e.MediaURLHTTPS)
		if filename == "." || filename == "/" || path.Ext(filename) == "" {
			return Tweet{}, fmt.Errorf("tweet %s has malformed media url %q", t.ID, e.MediaURLHTTPS)
		}
		entities = append(entities, MediaEntity{
			MediaID:  e.ID,
			Filename: filename,
			Indices:  Span(e.Indices),
		})
	}

	return Tweet{
		ID:          t.ID,
		InReplyToID: t.InReplyToID,
		CreatedAt:   createdAt,
		Language:    t.Language,
		Text:        t.FullText,
		Entities:    entities,
	}, nil
}
