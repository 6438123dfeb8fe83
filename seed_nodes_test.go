package couchbase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSeedNodes(t *testing.T) {
	seeds := DefaultSeedNodes()
	assert.Equal(t, []string{"127.0.0.1"}, seeds.Hosts())
	assert.Equal(t, 1, seeds.Len())
}

func TestNewSeedNodes(t *testing.T) {
	seeds, err := NewSeedNodes("b.example.com", " A.example.com ", "b.example.com")
	require.NoError(t, err)

	assert.Equal(t, []string{"a.example.com", "b.example.com"}, seeds.Hosts())
	assert.True(t, seeds.Contains("A.EXAMPLE.COM"))
	assert.False(t, seeds.Contains("c.example.com"))
	assert.Equal(t, "a.example.com,b.example.com", seeds.String())
}

func TestNewSeedNodes_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		hosts []string
	}{
		{name: "nil", hosts: nil},
		{name: "empty", hosts: []string{}},
		{name: "blank entry", hosts: []string{"a", "  "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seeds, err := NewSeedNodes(tt.hosts...)
			assert.Nil(t, seeds)
			assert.ErrorIs(t, err, ErrInvalidSeedList)

			var seedErr *SeedListError
			assert.ErrorAs(t, err, &seedErr)
		})
	}
}

func TestSeedNodes_HostsIsACopy(t *testing.T) {
	seeds, err := NewSeedNodes("a")
	require.NoError(t, err)

	hosts := seeds.Hosts()
	hosts[0] = "mutated"
	assert.Equal(t, []string{"a"}, seeds.Hosts())
}

func TestParseConnectionString(t *testing.T) {
	tests := []struct {
		connStr string
		want    []string
	}{
		{connStr: "couchbase://node1", want: []string{"node1"}},
		{connStr: "couchbase://node1,node2:11210", want: []string{"node1", "node2:11210"}},
		{connStr: "COUCHBASE://node1;node2", want: []string{"node1", "node2"}},
		{connStr: "node1,node1", want: []string{"node1"}},
		{connStr: "couchbase://node1/default?network=external", want: []string{"node1"}},
	}

	for _, tt := range tests {
		t.Run(tt.connStr, func(t *testing.T) {
			seeds, err := ParseConnectionString(tt.connStr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, seeds.Hosts())
		})
	}
}

func TestParseConnectionString_Invalid(t *testing.T) {
	_, err := ParseConnectionString("couchbase://")
	assert.ErrorIs(t, err, ErrInvalidSeedList)

	_, err = ParseConnectionString("http://node1")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidSeedList)
}
