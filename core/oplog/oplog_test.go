package oplog_test

import (
	"os"
	"path/filepath"
	"testing"

	"toot-importer/core/oplog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLog(t *testing.T) (*oplog.Log, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "import_log.txt")
	return oplog.New(path), path
}

func TestSetAndGetRoundTrip(t *testing.T) {
	log, _ := newLog(t)

	require.NoError(t, log.Set("2", "1234"))

	ok, err := log.Contains("2")
	require.NoError(t, err)
	assert.True(t, ok)

	value, present, err := log.Get("2")
	require.NoError(t, err)
	assert.True(t, present)
	assert.Equal(t, "1234", value)
}

func TestTombstoneDistinctFromAbsent(t *testing.T) {
	log, _ := newLog(t)

	require.NoError(t, log.Set("1", ""))

	ok, err := log.Contains("1")
	require.NoError(t, err)
	assert.True(t, ok, "tombstone row must exist")

	value, present, err := log.Get("1")
	require.NoError(t, err)
	assert.True(t, present)
	assert.Empty(t, value)

	ok, err = log.Contains("9")
	require.NoError(t, err)
	assert.False(t, ok, "absent row must not exist")
}

func TestMissingFileIsEmpty(t *testing.T) {
	log, _ := newLog(t)

	ok, err := log.Contains("1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, present, err := log.Get("1")
	require.NoError(t, err)
	assert.False(t, present)
}

func TestRemoveMakesIDEligibleAgain(t *testing.T) {
	log, _ := newLog(t)

	require.NoError(t, log.Set("1", "100"))
	require.NoError(t, log.Set("2", "200"))
	require.NoError(t, log.Remove("1"))

	ok, err := log.Contains("1")
	require.NoError(t, err)
	assert.False(t, ok)

	value, present, err := log.Get("2")
	require.NoError(t, err)
	assert.True(t, present)
	assert.Equal(t, "200", value)
}

func TestFreshInstanceSeesDurableState(t *testing.T) {
	log, path := newLog(t)

	require.NoError(t, log.Set("1", "100"))
	require.NoError(t, log.Set("2", ""))

	// A second Log on the same path models a restarted process.
	reopened := oplog.New(path)

	value, present, err := reopened.Get("1")
	require.NoError(t, err)
	assert.True(t, present)
	assert.Equal(t, "100", value)

	value, present, err = reopened.Get("2")
	require.NoError(t, err)
	assert.True(t, present)
	assert.Empty(t, value)
}

func TestWireFormat(t *testing.T) {
	log, path := newLog(t)

	require.NoError(t, log.Set("10", "20"))
	require.NoError(t, log.Set("11", ""))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "10 20\n11\n", string(data))
}

func TestIDPrefixDoesNotMatch(t *testing.T) {
	log, _ := newLog(t)

	require.NoError(t, log.Set("123", "900"))

	ok, err := log.Contains("12")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = log.Contains("1234")
	require.NoError(t, err)
	assert.False(t, ok)
}
