package docindex

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAliceFooScenario(t *testing.T) {
	ix := New()
	ix.Merge("alice", "foo", []ComponentOutcome{
		{Name: "foo-core", Outcome: Documented("https://docs.example.com/alice/foo/ws/foo_core")},
		{Name: "foo-cli", Outcome: Missing},
	})
	ix.Finalize()

	data, err := json.Marshal(ix)
	require.NoError(t, err)
	assert.Equal(t,
		`{"alice":{"foo":{"foo-cli":null,"foo-core":"https://docs.example.com/alice/foo/ws/foo_core"}}}`,
		string(data))
}

func TestFinalizeSortsEveryLevel(t *testing.T) {
	ix := New()
	ix.Merge("zed", "b", []ComponentOutcome{{Name: "z", Outcome: Missing}, {Name: "a", Outcome: Missing}})
	ix.Merge("alice", "zoo", []ComponentOutcome{{Name: "x", Outcome: Documented("u1")}})
	ix.Merge("alice", "bar", []ComponentOutcome{{Name: "y", Outcome: Documented("u2")}})
	ix.Merge("zed", "a", []ComponentOutcome{{Name: "m", Outcome: Missing}})
	assert.False(t, ix.Finalized())

	ix.Finalize()
	assert.True(t, ix.Finalized())
	assert.Equal(t, []string{"alice", "zed"}, ix.Owners())
	assert.Equal(t, []string{"bar", "zoo"}, ix.Repos("alice"))
	assert.Equal(t, []string{"a", "b"}, ix.Repos("zed"))
	assert.Equal(t, []ComponentOutcome{{Name: "a", Outcome: Missing}, {Name: "z", Outcome: Missing}}, ix.Components("zed", "b"))

	data, err := json.Marshal(ix)
	require.NoError(t, err)
	assert.Equal(t,
		`{"alice":{"bar":{"y":"u2"},"zoo":{"x":"u1"}},"zed":{"a":{"m":null},"b":{"a":null,"z":null}}}`,
		string(data))
}

func TestMergeExtendsAndOverwrites(t *testing.T) {
	ix := New()
	ix.Merge("alice", "foo", []ComponentOutcome{{Name: "core", Outcome: Missing}})
	ix.Merge("alice", "foo", []ComponentOutcome{
		{Name: "cli", Outcome: Documented("cli-url")},
		{Name: "core", Outcome: Documented("core-url")},
	})

	got, ok := ix.Lookup("alice", "foo", "core")
	require.True(t, ok)
	assert.Equal(t, Documented("core-url"), got)
	assert.Len(t, ix.Components("alice", "foo"), 2)
	assert.Equal(t, []string{"foo"}, ix.Repos("alice"))
}

func TestMergeAfterFinalizeClearsFlag(t *testing.T) {
	ix := New()
	ix.Merge("a", "b", nil)
	ix.Finalize()
	ix.Merge("a", "c", nil)
	assert.False(t, ix.Finalized())
}

func TestLookupMissingKeys(t *testing.T) {
	ix := New()
	ix.Merge("alice", "foo", []ComponentOutcome{{Name: "core", Outcome: Missing}})

	_, ok := ix.Lookup("bob", "foo", "core")
	assert.False(t, ok)
	_, ok = ix.Lookup("alice", "bar", "core")
	assert.False(t, ok)
	_, ok = ix.Lookup("alice", "foo", "nope")
	assert.False(t, ok)

	got, ok := ix.Lookup("alice", "foo", "core")
	assert.True(t, ok)
	assert.False(t, got.Present)
	assert.Nil(t, ix.Repos("bob"))
	assert.Nil(t, ix.Components("alice", "bar"))
}

func TestStats(t *testing.T) {
	ix := New()
	ix.Merge("alice", "foo", []ComponentOutcome{
		{Name: "a", Outcome: Documented("u")},
		{Name: "b", Outcome: Missing},
	})
	ix.Merge("bob", "bar", []ComponentOutcome{{Name: "c", Outcome: Documented("u")}})

	assert.Equal(t, Stats{Owners: 2, Repositories: 2, Documented: 2, Missing: 1}, ix.Stats())
}

func TestEmptyIndexEncodesAsObject(t *testing.T) {
	ix := New()
	ix.Finalize()
	data, err := json.Marshal(ix)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))
}

func TestRoundTripPreservesNulls(t *testing.T) {
	ix := New()
	ix.Merge("alice", "foo", []ComponentOutcome{
		{Name: "foo-cli", Outcome: Missing},
		{Name: "foo-core", Outcome: Documented("https://docs.example.com/alice/foo/ws/foo_core")},
	})
	ix.Finalize()
	data, err := ix.Encode()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"foo-cli": null`)

	var back Index
	require.NoError(t, json.Unmarshal(data, &back))
	got, ok := back.Lookup("alice", "foo", "foo-cli")
	require.True(t, ok)
	assert.False(t, got.Present)
	assert.Equal(t, ix.Stats(), back.Stats())
}

func TestMarkdown(t *testing.T) {
	ix := New()
	ix.Merge("alice", "foo", []ComponentOutcome{
		{Name: "foo-cli", Outcome: Missing},
		{Name: "foo-core", Outcome: Documented("https://docs.example.com/alice/foo/ws/foo_core")},
	})
	ix.Finalize()

	md := ix.Markdown("Docs")
	assert.Contains(t, md, "# Docs\n")
	assert.Contains(t, md, "## alice\n")
	assert.Contains(t, md, "### alice/foo\n")
	assert.Contains(t, md, "- [foo-core](https://docs.example.com/alice/foo/ws/foo_core)\n")
	assert.Contains(t, md, "- foo-cli *(missing)*\n")
	assert.Contains(t, md, "1 repositories, 1 documented components, 1 missing.")
}
