package couchbase

import (
	"encoding/binary"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/pior/couchbase/buffer"
	"github.com/pior/couchbase/locate"
	"github.com/pior/couchbase/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contentString(t *testing.T, b buffer.Buffer) string {
	t.Helper()
	data, err := io.ReadAll(buffer.NewReader(b))
	require.NoError(t, err)
	return string(data)
}

func TestNewSubdocRequest_Content(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		fragments  []string
		wantLength int
		wantBody   string
	}{
		{name: "path only", path: "a.b", wantLength: 3, wantBody: "a.b"},
		{name: "path and value", path: "a.b", fragments: []string{`"x"`}, wantLength: 3, wantBody: `a.b"x"`},
		{name: "fragments in order", path: "p", fragments: []string{"1", "2", "3"}, wantLength: 1, wantBody: "p123"},
		{name: "empty path", path: "", fragments: []string{"[1]"}, wantLength: 0, wantBody: "[1]"},
		{name: "utf8 path", path: "é.ü", wantLength: 5, wantBody: "é.ü"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fragments []buffer.Buffer
			for _, f := range tt.fragments {
				fragments = append(fragments, buffer.FromString(f))
			}

			req, err := NewSubdocRequest(wire.OpSubdocDictUpsert, "doc", "default", PathOf(tt.path), fragments...)
			require.NoError(t, err)
			defer req.Release()

			assert.Equal(t, tt.wantLength, req.PathLength())
			assert.Equal(t, len(tt.wantBody), req.Content().Len())
			assert.Equal(t, tt.wantBody, contentString(t, req.Content()))

			path, ok := req.Path()
			assert.True(t, ok)
			assert.Equal(t, tt.path, path)
		})
	}
}

func TestNewSubdocRequest_SingleFragmentWithEmptyPath(t *testing.T) {
	value := buffer.FromString("v")

	req, err := NewSubdocRequest(wire.OpSubdocArrayPushLast, "doc", "default", PathOf(""), value)
	require.NoError(t, err)
	defer req.Release()

	assert.Same(t, value, req.Content())
}

func TestNewSubdocRequest_MissingPathReleasesFragments(t *testing.T) {
	a := buffer.FromString("a")
	b := buffer.FromString("b")

	req, err := NewSubdocRequest(wire.OpSubdocGet, "doc", "default", nil, a, b)
	assert.Nil(t, req)
	require.ErrorIs(t, err, ErrMissingPath)

	var pathErr *PathError
	require.ErrorAs(t, err, &pathErr)
	assert.Equal(t, "doc", pathErr.Key)
	assert.Equal(t, wire.OpSubdocGet, pathErr.Op)

	assert.Equal(t, int32(0), a.RefCount())
	assert.Equal(t, int32(0), b.RefCount())
	assert.True(t, IsInvalidInput(err))
}

func TestNewSubdocRequest_MissingPathWithoutFragments(t *testing.T) {
	_, err := NewSubdocRequest(wire.OpSubdocGet, "doc", "default", nil)
	assert.ErrorIs(t, err, ErrMissingPath)
}

func TestNewMutationRequest_EmptyPath(t *testing.T) {
	t.Run("rejected", func(t *testing.T) {
		value := buffer.FromString("1")
		_, err := NewMutationRequest(wire.OpSubdocDictUpsert, "doc", "default", "", value, MutationOptions{})
		assert.ErrorIs(t, err, ErrEmptyPath)
		assert.Equal(t, int32(0), value.RefCount())
	})

	t.Run("array push accepts root", func(t *testing.T) {
		value := buffer.FromString("1")
		req, err := NewMutationRequest(wire.OpSubdocArrayPushLast, "doc", "default", "", value, MutationOptions{})
		require.NoError(t, err)
		defer req.Release()
		assert.Equal(t, 0, req.PathLength())
	})
}

func TestLookupRequests_RejectEmptyPath(t *testing.T) {
	constructors := map[string]func() (*SubdocRequest, error){
		"get":     func() (*SubdocRequest, error) { return NewGetRequest("doc", "default", "") },
		"exists":  func() (*SubdocRequest, error) { return NewExistsRequest("doc", "default", "") },
		"count":   func() (*SubdocRequest, error) { return NewGetCountRequest("doc", "default", "") },
		"delete":  func() (*SubdocRequest, error) { return NewDeleteRequest("doc", "default", "", MutationOptions{}) },
		"counter": func() (*SubdocRequest, error) { return NewCounterRequest("doc", "default", "", 1, MutationOptions{}) },
	}

	for name, newRequest := range constructors {
		t.Run(name, func(t *testing.T) {
			req, err := newRequest()
			assert.Nil(t, req)
			assert.ErrorIs(t, err, ErrEmptyPath)
		})
	}
}

func TestNewCounterRequest(t *testing.T) {
	req, err := NewCounterRequest("doc", "default", "hits", -5, MutationOptions{})
	require.NoError(t, err)
	defer req.Release()

	assert.Equal(t, wire.OpSubdocCounter, req.Opcode())
	assert.Equal(t, "hits-5", contentString(t, req.Content()))
}

func TestSubdocRequest_Accessors(t *testing.T) {
	req, err := NewGetRequest("doc", "travel", "name")
	require.NoError(t, err)
	defer req.Release()

	assert.Equal(t, "doc", req.Key())
	assert.Equal(t, "travel", req.Bucket())
	assert.Equal(t, locate.KeyValue, req.Service())
	assert.NotNil(t, req.Future())
}

func TestSubdocRequest_ReleaseIsIdempotent(t *testing.T) {
	value := buffer.FromString("v")
	req, err := NewMutationRequest(wire.OpSubdocReplace, "doc", "default", "p", value, MutationOptions{})
	require.NoError(t, err)

	assert.True(t, req.Release())
	assert.False(t, req.Release())
	assert.Equal(t, int32(0), value.RefCount())
}

func TestSubdocRequest_Frame(t *testing.T) {
	req, err := NewMutationRequest(wire.OpSubdocDictUpsert, "doc", "default", "a.b", buffer.FromString("1"), MutationOptions{
		CreatePath: true,
		Expiry:     90 * time.Second,
		CAS:        99,
	})
	require.NoError(t, err)
	defer req.Release()

	frame, err := req.Frame(12, 7)
	require.NoError(t, err)

	assert.Equal(t, wire.OpSubdocDictUpsert, frame.Opcode)
	assert.Equal(t, uint16(12), frame.VBucket)
	assert.Equal(t, uint32(7), frame.Opaque)
	assert.Equal(t, uint64(99), frame.CAS)
	assert.Equal(t, "doc", frame.Key)
	require.Len(t, frame.Extras, 7)
	assert.Equal(t, uint16(3), binary.BigEndian.Uint16(frame.Extras[0:2]))
	assert.Equal(t, byte(wire.PathFlagMkdirP), frame.Extras[2])
	assert.Equal(t, uint32(90), binary.BigEndian.Uint32(frame.Extras[3:7]))
	assert.Equal(t, 7+3+4, frame.BodyLength())
}

func TestSubdocRequest_FrameRejectsInvalidInput(t *testing.T) {
	t.Run("path too long", func(t *testing.T) {
		req, err := NewGetRequest("doc", "default", strings.Repeat("p", wire.MaxPathLength+1))
		require.NoError(t, err)
		defer req.Release()

		_, err = req.Frame(0, 1)
		assert.ErrorIs(t, err, wire.ErrPathTooLong)
		assert.True(t, IsInvalidInput(err))
	})

	t.Run("empty key", func(t *testing.T) {
		req, err := NewGetRequest("", "default", "p")
		require.NoError(t, err)
		defer req.Release()

		_, err = req.Frame(0, 1)
		var keyErr *wire.InvalidKeyError
		assert.ErrorAs(t, err, &keyErr)
		assert.True(t, IsInvalidInput(err))
	})
}

func TestEncodeExpiry(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		expiry  time.Duration
		want    uint32
		wantErr bool
	}{
		{name: "unset", expiry: 0, want: 0},
		{name: "sub-second rounds up", expiry: 500 * time.Millisecond, want: 1},
		{name: "one nanosecond", expiry: time.Nanosecond, want: 1},
		{name: "seconds truncated", expiry: 1500 * time.Millisecond, want: 1},
		{name: "relative", expiry: 90 * time.Second, want: 90},
		{name: "thirty days stays relative", expiry: 30 * 24 * time.Hour, want: 2592000},
		{name: "beyond thirty days is absolute", expiry: 31 * 24 * time.Hour, want: uint32(now.Add(31 * 24 * time.Hour).Unix())},
		{name: "fifty years", expiry: 50 * 365 * 24 * time.Hour, want: uint32(now.Add(50 * 365 * 24 * time.Hour).Unix())},
		{name: "past 2106", expiry: 200 * 365 * 24 * time.Hour, wantErr: true},
		{name: "negative", expiry: -time.Second, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := encodeExpiry(tt.expiry, now)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidExpiry)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewMutationRequest_AbsoluteExpiry(t *testing.T) {
	before := time.Now()
	req, err := NewMutationRequest(wire.OpSubdocDictUpsert, "doc", "default", "p", buffer.FromString("1"), MutationOptions{
		Expiry: 31 * 24 * time.Hour,
	})
	require.NoError(t, err)
	defer req.Release()

	assert.GreaterOrEqual(t, int64(req.Expiry()), before.Add(31*24*time.Hour).Unix())
	assert.LessOrEqual(t, int64(req.Expiry()), time.Now().Add(31*24*time.Hour).Unix())
}

func TestNewMutationRequest_InvalidExpiryReleasesValue(t *testing.T) {
	value := buffer.FromString("1")
	req, err := NewMutationRequest(wire.OpSubdocDictUpsert, "doc", "default", "p", value, MutationOptions{
		Expiry: 200 * 365 * 24 * time.Hour,
	})
	assert.Nil(t, req)
	assert.ErrorIs(t, err, ErrInvalidExpiry)
	assert.True(t, IsInvalidInput(err))
	assert.Equal(t, int32(0), value.RefCount())
}
