package migrate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"toot-importer/core/identity"
	"toot-importer/core/mastodon"
	"toot-importer/core/oplog"
	"toot-importer/feature/archive"
	"toot-importer/feature/toot"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// API is the slice of the destination API the runner needs.
type API interface {
	GetStatus(ctx context.Context, id string) (*mastodon.Status, error)
	CreateStatus(ctx context.Context, idempotencyKey string, req mastodon.CreateStatusRequest) (*mastodon.Status, error)
	EditStatus(ctx context.Context, idempotencyKey, id string, status string, mediaIDs []string) (*mastodon.Status, error)
}

// Resolver uploads one media reference and returns the attachment id.
type Resolver interface {
	Upload(ctx context.Context, mediaID, filename string) (string, error)
}

// Options controls one reconciliation run.
type Options struct {
	// Edits enables diffing already-posted tweets against their current
	// status and offering an edit. When false, logged tweets are skipped
	// outright.
	Edits bool

	// IgnoredIDs are tweet ids excluded from review entirely.
	IgnoredIDs []string
}

// Runner walks the archive in order and decides, for each tweet, whether to
// create, edit, skip, or reject it on the destination, committing every
// decision to the operation log.
//
// Exactly one tweet is in flight at a time and exactly one destination
// mutation is outstanding at a time; the operator prompt blocks in between.
// A log row is written only after the destination mutation for it succeeds.
type Runner struct {
	Log      oplog.Store
	API      API
	Resolver Resolver
	Prompter Prompter
	Mapping  identity.Mapping
	Logger   *zap.Logger
	Options  Options

	// NewIdempotencyKey generates the per-attempt token attached to each
	// mutating call. Nil defaults to random UUIDs; tests install a
	// deterministic generator.
	NewIdempotencyKey func() string
}

func (r *Runner) idempotencyKey() string {
	if r.NewIdempotencyKey != nil {
		return r.NewIdempotencyKey()
	}
	return uuid.NewString()
}

// Run processes every tweet in the supplied order. The order is load-bearing:
// reply targets must be decided before their replies. Run returns nil both on
// normal completion and on an operator abort; any error is fatal for the run
// and leaves all previously committed log rows valid to resume from.
func (r *Runner) Run(ctx context.Context, tweets []archive.Tweet) error {
	ignored := make(map[string]struct{}, len(r.Options.IgnoredIDs))
	for _, id := range r.Options.IgnoredIDs {
		ignored[id] = struct{}{}
	}

	for _, tweet := range tweets {
		excluded, err := r.excluded(tweet, ignored)
		if err != nil {
			return err
		}
		if excluded {
			continue
		}

		existing, action, err := r.existingStatus(ctx, tweet)
		if err != nil {
			return err
		}
		switch action {
		case proceed:
		case skipRecord:
			continue
		case abortRun:
			r.Logger.Info("run aborted by operator")
			return nil
		}

		candidate, err := toot.Build(tweet, r.Log, r.Mapping)
		if err != nil {
			return err
		}

		if existing != nil &&
			existing.ContentText() == candidate.Text &&
			len(existing.MediaAttachments) == len(candidate.Media) {
			r.Logger.Debug("tweet already up to date", zap.String("tweet_id", tweet.ID))
			continue
		}

		answer, err := r.Prompter.Prompt(reviewPrompt(tweet, candidate, existing))
		if err != nil {
			return err
		}
		switch answer {
		case inputYes:
			if err := r.post(ctx, tweet, candidate, existing); err != nil {
				return err
			}
		case inputNo:
			if err := r.Log.Set(tweet.ID, ""); err != nil {
				return err
			}
			r.Logger.Info("tweet rejected", zap.String("tweet_id", tweet.ID))
		case inputSkip:
			// No log mutation; the tweet will be offered again next run.
		default:
			return &UnknownInputError{Input: answer}
		}
	}

	return nil
}

// excluded applies the filter rules that run before any log lookup for the
// tweet's own id.
func (r *Runner) excluded(tweet archive.Tweet, ignored map[string]struct{}) (bool, error) {
	switch {
	case tweet.IsRetweet():
		// Do not keep retweets of tweets from other authors.
		return true, nil
	case tweet.IsMention():
		// Do not keep @mentions to individual accounts.
		return true, nil
	}
	if _, ok := ignored[tweet.ID]; ok {
		return true, nil
	}
	if tweet.InReplyToID != "" {
		ok, err := r.Log.Contains(tweet.InReplyToID)
		if err != nil {
			return false, err
		}
		if !ok {
			// The reply target was never reviewed; the reply cannot
			// safely chain to it.
			return true, nil
		}
	}
	return false, nil
}

type reviewAction int

const (
	proceed reviewAction = iota
	skipRecord
	abortRun
)

// existingStatus consults the log for a prior decision on the tweet and, when
// edits are enabled, fetches the current destination state to diff against.
func (r *Runner) existingStatus(ctx context.Context, tweet archive.Tweet) (*mastodon.Status, reviewAction, error) {
	ok, err := r.Log.Contains(tweet.ID)
	if err != nil {
		return nil, proceed, err
	}
	if !ok {
		return nil, proceed, nil
	}

	statusID, _, err := r.Log.Get(tweet.ID)
	if err != nil {
		return nil, proceed, err
	}
	if statusID == "" {
		// Previously reviewed and rejected, permanently.
		return nil, skipRecord, nil
	}
	if !r.Options.Edits {
		return nil, skipRecord, nil
	}

	status, err := r.API.GetStatus(ctx, statusID)
	if errors.Is(err, mastodon.ErrNotFound) {
		answer, promptErr := r.Prompter.Prompt(deletedPrompt(tweet, statusID))
		if promptErr != nil {
			return nil, proceed, promptErr
		}
		switch answer {
		case inputRemove:
			if err := r.Log.Remove(tweet.ID); err != nil {
				return nil, proceed, err
			}
			// The tweet is fresh again: no existing status to diff.
			return nil, proceed, nil
		case inputAbort:
			return nil, abortRun, nil
		case inputSkip:
			return nil, skipRecord, nil
		default:
			return nil, proceed, &UnknownInputError{Input: answer}
		}
	}
	if err != nil {
		return nil, proceed, err
	}
	return status, proceed, nil
}

// post commits a yes decision: attachments first, then the status mutation,
// then the log row.
func (r *Runner) post(ctx context.Context, tweet archive.Tweet, candidate toot.Toot, existing *mastodon.Status) error {
	var mediaIDs []string
	for _, m := range candidate.Media {
		attachmentID, err := r.Resolver.Upload(ctx, m.ID, m.Filename)
		if err != nil {
			return err
		}
		mediaIDs = append(mediaIDs, attachmentID)
	}

	var status *mastodon.Status
	var err error
	if existing != nil {
		status, err = r.API.EditStatus(ctx, r.idempotencyKey(), existing.ID, candidate.Text, mediaIDs)
	} else {
		status, err = r.API.CreateStatus(ctx, r.idempotencyKey(), mastodon.CreateStatusRequest{
			Status:      candidate.Text,
			Language:    candidate.Language,
			CreatedAt:   candidate.Posted,
			InReplyToID: candidate.InReplyToID,
			MediaIDs:    mediaIDs,
		})
	}
	if err != nil {
		return err
	}

	if err := r.Log.Set(tweet.ID, status.ID); err != nil {
		return err
	}
	r.Logger.Info("tweet posted",
		zap.String("tweet_id", tweet.ID),
		zap.String("status_id", status.ID),
		zap.Bool("edit", existing != nil),
	)
	return nil
}

func reviewPrompt(tweet archive.Tweet, candidate toot.Toot, existing *mastodon.Status) string {
	var b strings.Builder
	fmt.Fprintf(&b, "TWEET: %s\n", tweet.URL())
	fmt.Fprintf(&b, "  text: %q\n", tweet.Text)
	fmt.Fprintf(&b, "  posted: %s\n\n", tweet.CreatedAt.UTC().Format(time.RFC3339))
	if existing != nil {
		fmt.Fprintf(&b, "CURRENT STATUS %s:\n", existing.ID)
		fmt.Fprintf(&b, "  text: %q\n\n", existing.ContentText())
	}
	fmt.Fprintf(&b, "TOOT:\n%s\n", candidate)
	fmt.Fprintf(&b, "Post? (%s, %s, %s): ", inputYes, inputNo, inputSkip)
	return b.String()
}

func deletedPrompt(tweet archive.Tweet, statusID string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "TWEET: %s\n", tweet.URL())
	fmt.Fprintf(&b, "Logged status %s no longer exists on the server.\n", statusID)
	fmt.Fprintf(&b, "Remove it from the log and review the tweet again? (%s, %s, %s): ",
		inputRemove, inputAbort, inputSkip)
	return b.String()
}
