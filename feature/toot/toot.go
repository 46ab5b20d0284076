package toot

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"toot-importer/core/identity"
	"toot-importer/core/oplog"
	"toot-importer/feature/archive"
)

// Toot is the destination-ready content derived from one tweet. It is
// recomputed on every run and never persisted; only the status id it produces
// is written to the operation log.
type Toot struct {
	Text        string
	Posted      time.Time
	Language    string
	InReplyToID string
	Media       []Media
}

// Media is one attachment to upload, in text order.
type Media struct {
	ID       string
	Filename string
}

// ResolutionError reports a reply whose target tweet has no usable operation
// log entry. An absent row and a tombstone row both mean the target was never
// successfully posted, so the reply cannot legally chain to it.
type ResolutionError struct {
	TweetID  string
	TargetID string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("unable to map tweet %s replying to %s without an operation log entry", e.TweetID, e.TargetID)
}

// Build derives a Toot from a tweet. It is a pure function of the tweet, the
// operation log snapshot, and the identity mapping: identical inputs yield an
// identical Toot.
//
// Entities are applied in span-start order regardless of how the archive
// ordered them. URL entities are replaced by their expanded URL, mentions by
// the mapped Mastodon handle, and media entities are elided from the text
// (deleting one immediately preceding separator space) because attachments
// are carried out of band.
func Build(tweet archive.Tweet, store oplog.Store, mapping identity.Mapping) (Toot, error) {
	entities := make([]archive.Entity, len(tweet.Entities))
	copy(entities, tweet.Entities)
	sort.SliceStable(entities, func(i, j int) bool {
		return entities[i].Span().Start < entities[j].Span().Start
	})

	// Spans are character offsets, so walk runes rather than bytes.
	runes := []rune(tweet.Text)
	var out []rune
	index := 0
	for _, entity := range entities {
		span := entity.Span()
		if span.Start > index {
			out = append(out, runes[index:span.Start]...)
		}
		switch e := entity.(type) {
		case archive.URLEntity:
			out = append(out, []rune(e.URL)...)
		case archive.MentionEntity:
			out = append(out, []rune(mapping.Map(e.UserID, e.Username))...)
		case archive.MediaEntity:
			// The text carried a space between the preceding words and the
			// media link. Remove it along with the elided link.
			if len(out) > 0 && out[len(out)-1] == ' ' {
				out = out[:len(out)-1]
			}
		}
		index = span.End
	}
	if index < len(runes) {
		out = append(out, runes[index:]...)
	}

	var media []Media
	for _, entity := range entities {
		if e, ok := entity.(archive.MediaEntity); ok {
			media = append(media, Media{ID: e.MediaID, Filename: e.Filename})
		}
	}

	inReplyToID := ""
	if tweet.InReplyToID != "" {
		statusID, present, err := store.Get(tweet.InReplyToID)
		if err != nil {
			return Toot{}, err
		}
		if !present || statusID == "" {
			return Toot{}, &ResolutionError{TweetID: tweet.ID, TargetID: tweet.InReplyToID}
		}
		inReplyToID = statusID
	}

	return Toot{
		Text:        strings.TrimSpace(string(out)),
		Posted:      tweet.CreatedAt,
		Language:    tweet.Language,
		InReplyToID: inReplyToID,
		Media:       media,
	}, nil
}

// String renders the toot for the interactive review prompt.
func (t Toot) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "  text: %q\n", t.Text)
	fmt.Fprintf(&b, "  posted: %s\n", t.Posted.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "  language: %s\n", t.Language)
	if t.InReplyToID != "" {
		fmt.Fprintf(&b, "  in reply to: %s\n", t.InReplyToID)
	}
	for _, m := range t.Media {
		fmt.Fprintf(&b, "  media: %s (%s)\n", m.Filename, m.ID)
	}
	return b.String()
}
