package identifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docfleet/internal/foundation/errors"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    ID
		wantErr bool
	}{
		{in: "alice/foo", want: ID{Owner: "alice", Name: "foo"}},
		{in: "  os-checker/plugin-cargo ", want: ID{Owner: "os-checker", Name: "plugin-cargo"}},
		{in: "alice", wantErr: true},
		{in: "alice/", wantErr: true},
		{in: "/foo", wantErr: true},
		{in: "a/b/c", wantErr: true},
		{in: "", wantErr: true},
		{in: "../internal", wantErr: true},
		{in: "alice/..", wantErr: true},
		{in: "alice/.", wantErr: true},
		{in: "./foo", wantErr: true},
		{in: `alice\..\foo/bar`, wantErr: true},
		{in: `alice/foo\bar`, wantErr: true},
		{in: "-c/foo", wantErr: true},
		{in: "alice/--upload-pack", wantErr: true},
		{in: "alice/foo.rs", want: ID{Owner: "alice", Name: "foo.rs"}},
		{in: "alice/foo-", want: ID{Owner: "alice", Name: "foo-"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.HasCategory(err, errors.CategoryIdentifier))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromRemoteURL(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{url: "https://github.com/alice/foo.git", want: "alice/foo"},
		{url: "https://github.com/alice/foo", want: "alice/foo"},
		{url: "https://github.com/os-checker/os-checker.git", want: "os-checker/os-checker"},
		{url: "git@github.com:alice/foo.git", wantErr: true},
		{url: "https://gitlab.com/alice/foo.git", wantErr: true},
		{url: "https://github.com/alice.git", wantErr: true},
		{url: "https://github.com/alice/foo/tree/main", wantErr: true},
		{url: "https://github.com/../etc.git", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := FromRemoteURL(tt.url, "")
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.HasCategory(err, errors.CategoryIdentifier))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestFromRemoteURLCustomPrefix(t *testing.T) {
	id, err := FromRemoteURL("https://git.example.org/team/lib.git", "https://git.example.org/")
	require.NoError(t, err)
	assert.Equal(t, ID{Owner: "team", Name: "lib"}, id)
}

func mustParse(t *testing.T, s string) ID {
	t.Helper()
	id, err := Parse(s)
	require.NoError(t, err)
	return id
}

func TestDerivedValues(t *testing.T) {
	id := mustParse(t, "alice/foo")

	assert.Equal(t, "https://github.com/alice/foo.git", id.RemoteURL(""))

	// Round trip through the URL keeps the identifier stable.
	back, err := FromRemoteURL(id.RemoteURL(""), "")
	require.NoError(t, err)
	assert.Equal(t, id, back)
}

func TestParseList(t *testing.T) {
	ids, errs := ParseList([]string{"alice/foo", "bad", "bob/bar", "../internal", "alice/foo"})

	assert.Equal(t, []ID{mustParse(t, "alice/foo"), mustParse(t, "bob/bar")}, ids)
	assert.Len(t, errs, 2)
}
