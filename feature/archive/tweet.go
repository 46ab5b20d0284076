package archive

import (
	"sort"
	"strings"
	"time"
)

// Span is a half-open [Start, End) range of character offsets into a tweet's
// text. Offsets count unicode code points, not bytes.
type Span struct {
	Start int
	End   int
}

// Entity is one positional text entity of a tweet. It is a closed union:
// URLEntity, MentionEntity, and MediaEntity are the only implementations, and
// consumers dispatch with a type switch.
type Entity interface {
	Span() Span
	entity()
}

// URLEntity is a shortened link whose span should be replaced by the expanded
// URL.
type URLEntity struct {
	URL     string
	Indices Span
}

// MentionEntity is an @-mention of another account.
type MentionEntity struct {
	UserID   string
	Username string
	Indices  Span
}

// MediaEntity is an attached photo, video, or GIF. Its span carries the
// media's t.co link, which is elided from the text because the attachment is
// carried out of band.
type MediaEntity struct {
	MediaID  string
	Filename string
	Indices  Span
}

func (e URLEntity) Span() Span     { return e.Indices }
func (e MentionEntity) Span() Span { return e.Indices }
func (e MediaEntity) Span() Span   { return e.Indices }

func (URLEntity) entity()     {}
func (MentionEntity) entity() {}
func (MediaEntity) entity()   {}

// Tweet is a user-friendly model of one tweet massaged from the raw JSON of
// the archive.
type Tweet struct {
	ID          string
	InReplyToID string
	CreatedAt   time.Time
	Language    string
	Text        string
	Entities    []Entity
}

// URL returns a clickable link to the original tweet.
func (t Tweet) URL() string {
	return "https://twitter.com/twitter/status/" + t.ID
}

// IsRetweet reports whether the tweet is a retweet of another author's
// content.
func (t Tweet) IsRetweet() bool {
	return strings.HasPrefix(t.Text, "RT @")
}

// IsMention reports whether the tweet is addressed at an individual account
// rather than being conversational content.
func (t Tweet) IsMention() bool {
	return strings.HasPrefix(t.Text, "@")
}

// SortTweets orders tweets chronologically ascending with descending id as
// the tie-break. This order is load-bearing: reply resolution depends on the
// reply target having been decided in an earlier iteration.
func SortTweets(tweets []Tweet) {
	sort.SliceStable(tweets, func(i, j int) bool {
		if !tweets[i].CreatedAt.Equal(tweets[j].CreatedAt) {
			return tweets[i].CreatedAt.Before(tweets[j].CreatedAt)
		}
		return tweets[i].ID > tweets[j].ID
	})
}
