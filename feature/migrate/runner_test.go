package migrate_test

import (
	"context"
	"fmt"
	"strconv"
	"testing"
	"time"

	"toot-importer/core/identity"
	"toot-importer/core/mastodon"
	"toot-importer/core/oplog"
	"toot-importer/feature/archive"
	"toot-importer/feature/migrate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type scriptPrompter struct {
	answers []string
	prompts []string
}

func (p *scriptPrompter) Prompt(message string) (string, error) {
	if len(p.answers) == 0 {
		return "", fmt.Errorf("unexpected prompt: %s", message)
	}
	p.prompts = append(p.prompts, message)
	answer := p.answers[0]
	p.answers = p.answers[1:]
	return answer, nil
}

type editCall struct {
	id       string
	status   string
	mediaIDs []string
}

type fakeAPI struct {
	statuses map[string]*mastodon.Status
	created  []mastodon.CreateStatusRequest
	edits    []editCall
	keys     []string
}

func (f *fakeAPI) GetStatus(ctx context.Context, id string) (*mastodon.Status, error) {
	if status, ok := f.statuses[id]; ok {
		return status, nil
	}
	return nil, mastodon.ErrNotFound
}

func (f *fakeAPI) CreateStatus(ctx context.Context, idempotencyKey string, req mastodon.CreateStatusRequest) (*mastodon.Status, error) {
	f.keys = append(f.keys, idempotencyKey)
	f.created = append(f.created, req)
	return &mastodon.Status{ID: strconv.Itoa(900 + len(f.created))}, nil
}

func (f *fakeAPI) EditStatus(ctx context.Context, idempotencyKey, id string, status string, mediaIDs []string) (*mastodon.Status, error) {
	f.keys = append(f.keys, idempotencyKey)
	f.edits = append(f.edits, editCall{id: id, status: status, mediaIDs: mediaIDs})
	return &mastodon.Status{ID: id}, nil
}

type fakeResolver struct {
	uploads []string
}

func (f *fakeResolver) Upload(ctx context.Context, mediaID, filename string) (string, error) {
	f.uploads = append(f.uploads, mediaID)
	return "att-" + mediaID, nil
}

func posted(day int) time.Time {
	return time.Date(2022, time.November, day, 12, 0, 0, 0, time.UTC)
}

func tweet(id, text string) archive.Tweet {
	return archive.Tweet{ID: id, Text: text, CreatedAt: posted(1), Language: "en"}
}

func newRunner(log oplog.Store, api *fakeAPI, prompter *scriptPrompter, opts migrate.Options) (*migrate.Runner, *fakeResolver) {
	resolver := &fakeResolver{}
	keys := 0
	return &migrate.Runner{
		Log:      log,
		API:      api,
		Resolver: resolver,
		Prompter: prompter,
		Mapping:  identity.Empty,
		Logger:   zap.NewNop(),
		Options:  opts,
		NewIdempotencyKey: func() string {
			keys++
			return fmt.Sprintf("key-%d", keys)
		},
	}, resolver
}

func TestRunPostsOnYes(t *testing.T) {
	log := oplog.NewMemory(nil)
	api := &fakeAPI{}
	prompter := &scriptPrompter{answers: []string{"yes"}}
	runner, _ := newRunner(log, api, prompter, migrate.Options{})

	err := runner.Run(context.Background(), []archive.Tweet{tweet("10", "Hello, world!")})
	require.NoError(t, err)

	require.Len(t, api.created, 1)
	assert.Equal(t, "Hello, world!", api.created[0].Status)
	assert.Equal(t, "en", api.created[0].Language)
	assert.Equal(t, posted(1), api.created[0].CreatedAt)
	assert.Equal(t, []string{"key-1"}, api.keys)

	statusID, present, err := log.Get("10")
	require.NoError(t, err)
	assert.True(t, present)
	assert.Equal(t, "901", statusID)
}

func TestRunNoWritesTombstone(t *testing.T) {
	log := oplog.NewMemory(nil)
	api := &fakeAPI{}
	prompter := &scriptPrompter{answers: []string{"no"}}
	runner, _ := newRunner(log, api, prompter, migrate.Options{})

	err := runner.Run(context.Background(), []archive.Tweet{tweet("10", "Hello, world!")})
	require.NoError(t, err)

	assert.Empty(t, api.created)
	statusID, present, err := log.Get("10")
	require.NoError(t, err)
	assert.True(t, present)
	assert.Empty(t, statusID)
}

func TestRunSkipLeavesLogUntouched(t *testing.T) {
	log := oplog.NewMemory(nil)
	api := &fakeAPI{}
	prompter := &scriptPrompter{answers: []string{"skip"}}
	runner, _ := newRunner(log, api, prompter, migrate.Options{})

	err := runner.Run(context.Background(), []archive.Tweet{tweet("10", "Hello, world!")})
	require.NoError(t, err)

	assert.Empty(t, api.created)
	present, err := log.Contains("10")
	require.NoError(t, err)
	assert.False(t, present)
}

func TestRunUnknownInputIsFatal(t *testing.T) {
	log := oplog.NewMemory(nil)
	api := &fakeAPI{}
	prompter := &scriptPrompter{answers: []string{"maybe"}}
	runner, _ := newRunner(log, api, prompter, migrate.Options{})

	err := runner.Run(context.Background(), []archive.Tweet{tweet("10", "Hello, world!")})
	var unknown *migrate.UnknownInputError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "maybe", unknown.Input)

	assert.Empty(t, api.created)
	present, err := log.Contains("10")
	require.NoError(t, err)
	assert.False(t, present)
}

func TestRunExcludesRetweetsAndMentions(t *testing.T) {
	log := oplog.NewMemory(nil)
	api := &fakeAPI{}
	prompter := &scriptPrompter{}
	runner, _ := newRunner(log, api, prompter, migrate.Options{})

	err := runner.Run(context.Background(), []archive.Tweet{
		tweet("10", "RT @someone: their words"),
		tweet("11", "@someone a direct reply"),
	})
	require.NoError(t, err)

	assert.Empty(t, prompter.prompts)
	assert.Empty(t, api.created)
	for _, id := range []string{"10", "11"} {
		present, err := log.Contains(id)
		require.NoError(t, err)
		assert.False(t, present)
	}
}

func TestRunExcludesIgnoredIDs(t *testing.T) {
	log := oplog.NewMemory(nil)
	api := &fakeAPI{}
	prompter := &scriptPrompter{}
	runner, _ := newRunner(log, api, prompter, migrate.Options{IgnoredIDs: []string{"10"}})

	err := runner.Run(context.Background(), []archive.Tweet{tweet("10", "Hello, world!")})
	require.NoError(t, err)

	assert.Empty(t, prompter.prompts)
	assert.Empty(t, api.created)
}

func TestRunExcludesReplyWithUnreviewedTarget(t *testing.T) {
	log := oplog.NewMemory(nil)
	api := &fakeAPI{}
	prompter := &scriptPrompter{}
	runner, _ := newRunner(log, api, prompter, migrate.Options{})

	reply := tweet("10", "Following up on that thought")
	reply.InReplyToID = "99"

	err := runner.Run(context.Background(), []archive.Tweet{reply})
	require.NoError(t, err)

	assert.Empty(t, prompter.prompts)
	assert.Empty(t, api.created)
}

func TestRunReplyChainsThroughLog(t *testing.T) {
	log := oplog.NewMemory(map[string]string{"1": "500"})
	api := &fakeAPI{}
	prompter := &scriptPrompter{answers: []string{"yes"}}
	runner, _ := newRunner(log, api, prompter, migrate.Options{})

	reply := tweet("2", "Following up on that thought")
	reply.InReplyToID = "1"

	err := runner.Run(context.Background(), []archive.Tweet{reply})
	require.NoError(t, err)

	require.Len(t, api.created, 1)
	assert.Equal(t, "500", api.created[0].InReplyToID)
}

func TestRunSkipsLoggedTweetsWithoutEdits(t *testing.T) {
	log := oplog.NewMemory(map[string]string{"10": "900"})
	api := &fakeAPI{}
	prompter := &scriptPrompter{}
	runner, _ := newRunner(log, api, prompter, migrate.Options{})

	err := runner.Run(context.Background(), []archive.Tweet{tweet("10", "Hello, world!")})
	require.NoError(t, err)

	assert.Empty(t, prompter.prompts)
	assert.Empty(t, api.created)
	assert.Empty(t, api.edits)
}

func TestRunSkipsTombstonedTweets(t *testing.T) {
	log := oplog.NewMemory(map[string]string{"10": ""})
	api := &fakeAPI{}
	prompter := &scriptPrompter{}
	runner, _ := newRunner(log, api, prompter, migrate.Options{Edits: true})

	err := runner.Run(context.Background(), []archive.Tweet{tweet("10", "Hello, world!")})
	require.NoError(t, err)

	assert.Empty(t, prompter.prompts)
	assert.Empty(t, api.created)
	assert.Empty(t, api.edits)
}

func TestRunEditsChangedStatus(t *testing.T) {
	log := oplog.NewMemory(map[string]string{"10": "900"})
	api := &fakeAPI{statuses: map[string]*mastodon.Status{
		"900": {ID: "900", Content: "<p>Old words</p>"},
	}}
	prompter := &scriptPrompter{answers: []string{"yes"}}
	runner, _ := newRunner(log, api, prompter, migrate.Options{Edits: true})

	err := runner.Run(context.Background(), []archive.Tweet{tweet("10", "New words")})
	require.NoError(t, err)

	assert.Empty(t, api.created)
	require.Len(t, api.edits, 1)
	assert.Equal(t, "900", api.edits[0].id)
	assert.Equal(t, "New words", api.edits[0].status)

	statusID, _, err := log.Get("10")
	require.NoError(t, err)
	assert.Equal(t, "900", statusID)
}

func TestRunSuppressesNoOpEdit(t *testing.T) {
	log := oplog.NewMemory(map[string]string{"10": "900"})
	api := &fakeAPI{statuses: map[string]*mastodon.Status{
		"900": {ID: "900", Content: "<p>Hello, world!</p>"},
	}}
	prompter := &scriptPrompter{}
	runner, _ := newRunner(log, api, prompter, migrate.Options{Edits: true})

	err := runner.Run(context.Background(), []archive.Tweet{tweet("10", "Hello, world!")})
	require.NoError(t, err)

	assert.Empty(t, prompter.prompts)
	assert.Empty(t, api.edits)
}

func TestRunDeletedStatusRemoveRepostsFresh(t *testing.T) {
	log := oplog.NewMemory(map[string]string{"10": "900"})
	api := &fakeAPI{}
	prompter := &scriptPrompter{answers: []string{"remove", "yes"}}
	runner, _ := newRunner(log, api, prompter, migrate.Options{Edits: true})

	err := runner.Run(context.Background(), []archive.Tweet{tweet("10", "Hello, world!")})
	require.NoError(t, err)

	// A remove means the repost is a brand-new status, not an edit.
	assert.Empty(t, api.edits)
	require.Len(t, api.created, 1)

	statusID, present, err := log.Get("10")
	require.NoError(t, err)
	assert.True(t, present)
	assert.Equal(t, "901", statusID)
}

func TestRunDeletedStatusAbortEndsRunCleanly(t *testing.T) {
	log := oplog.NewMemory(map[string]string{"10": "900"})
	api := &fakeAPI{}
	prompter := &scriptPrompter{answers: []string{"abort"}}
	runner, _ := newRunner(log, api, prompter, migrate.Options{Edits: true})

	err := runner.Run(context.Background(), []archive.Tweet{
		tweet("10", "Hello, world!"),
		tweet("11", "Never reached"),
	})
	require.NoError(t, err)

	// The log row stays so the question is asked again next run.
	statusID, present, err := log.Get("10")
	require.NoError(t, err)
	assert.True(t, present)
	assert.Equal(t, "900", statusID)
	assert.Len(t, prompter.prompts, 1)
}

func TestRunDeletedStatusSkipMovesOn(t *testing.T) {
	log := oplog.NewMemory(map[string]string{"10": "900"})
	api := &fakeAPI{}
	prompter := &scriptPrompter{answers: []string{"skip", "yes"}}
	runner, _ := newRunner(log, api, prompter, migrate.Options{Edits: true})

	err := runner.Run(context.Background(), []archive.Tweet{
		tweet("10", "Hello, world!"),
		tweet("11", "The next tweet"),
	})
	require.NoError(t, err)

	require.Len(t, api.created, 1)
	assert.Equal(t, "The next tweet", api.created[0].Status)

	statusID, _, err := log.Get("10")
	require.NoError(t, err)
	assert.Equal(t, "900", statusID)
}

func TestRunDeletedStatusUnknownInputIsFatal(t *testing.T) {
	log := oplog.NewMemory(map[string]string{"10": "900"})
	api := &fakeAPI{}
	prompter := &scriptPrompter{answers: []string{"delete"}}
	runner, _ := newRunner(log, api, prompter, migrate.Options{Edits: true})

	err := runner.Run(context.Background(), []archive.Tweet{tweet("10", "Hello, world!")})
	var unknown *migrate.UnknownInputError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "delete", unknown.Input)
}

func TestRunUploadsMediaInTextOrder(t *testing.T) {
	log := oplog.NewMemory(nil)
	api := &fakeAPI{}
	prompter := &scriptPrompter{answers: []string{"yes"}}
	runner, resolver := newRunner(log, api, prompter, migrate.Options{})

	withMedia := tweet("10", "Some text goes here! https://t.co/a https://t.co/b")
	withMedia.Entities = []archive.Entity{
		archive.MediaEntity{MediaID: "124", Filename: "first.png", Indices: archive.Span{Start: 21, End: 35}},
		archive.MediaEntity{MediaID: "125", Filename: "second.png", Indices: archive.Span{Start: 36, End: 50}},
	}

	err := runner.Run(context.Background(), []archive.Tweet{withMedia})
	require.NoError(t, err)

	assert.Equal(t, []string{"124", "125"}, resolver.uploads)
	require.Len(t, api.created, 1)
	assert.Equal(t, "Some text goes here!", api.created[0].Status)
	assert.Equal(t, []string{"att-124", "att-125"}, api.created[0].MediaIDs)
}

func TestRunFreshIdempotencyKeyPerMutation(t *testing.T) {
	log := oplog.NewMemory(nil)
	api := &fakeAPI{}
	prompter := &scriptPrompter{answers: []string{"yes", "yes"}}
	runner, _ := newRunner(log, api, prompter, migrate.Options{})

	err := runner.Run(context.Background(), []archive.Tweet{
		tweet("10", "First tweet"),
		tweet("11", "Second tweet"),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"key-1", "key-2"}, api.keys)
}
