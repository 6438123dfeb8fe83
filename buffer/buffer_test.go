package buffer

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBytes_RefCounting(t *testing.T) {
	b := FromString("hello")
	assert.Equal(t, int32(1), b.RefCount())
	assert.Equal(t, 5, b.Len())

	b.Retain()
	assert.Equal(t, int32(2), b.RefCount())

	assert.False(t, b.Release())
	assert.True(t, b.Release())
	assert.Equal(t, int32(0), b.RefCount())
}

func TestBytes_UseAfterRelease(t *testing.T) {
	b := FromString("x")
	b.Release()

	assert.PanicsWithValue(t, ErrReleased, func() { b.Bytes() })
	assert.PanicsWithValue(t, ErrReleased, func() { b.Retain() })
	assert.Panics(t, func() { b.Release() })
}

func TestGet_Pooled(t *testing.T) {
	b := Get(4)
	copy(b.Writable(), "abcd")
	assert.Equal(t, []byte("abcd"), b.Bytes())
	assert.True(t, b.Release())

	c := Copy([]byte("value"))
	assert.Equal(t, "value", string(c.Bytes()))
	assert.True(t, c.Release())
}

func TestEmpty(t *testing.T) {
	e := Empty()
	assert.Equal(t, 0, e.Len())
	assert.False(t, e.Release())
	assert.False(t, e.Release())
	assert.Equal(t, int32(1), e.RefCount())
	assert.Nil(t, e.Segments())
}

func TestNewReader(t *testing.T) {
	c := NewComposite(FromString("ab"), FromString("cd"), FromString("e"))
	defer c.Release()

	got, err := io.ReadAll(NewReader(c))
	require.NoError(t, err)
	assert.Equal(t, "abcde", string(got))

	// Reading does not consume the buffer.
	got, err = io.ReadAll(NewReader(c))
	require.NoError(t, err)
	assert.Equal(t, "abcde", string(got))
}

func TestComposite_WriteTo(t *testing.T) {
	c := NewComposite(FromString("path"), Empty(), FromString("value"))
	defer c.Release()

	var out bytes.Buffer
	n, err := c.WriteTo(&out)
	require.NoError(t, err)
	assert.Equal(t, int64(9), n)
	assert.Equal(t, "pathvalue", out.String())
	assert.Equal(t, "pathvalue", string(c.Bytes()))
}

func TestComposite_ReleasesComponentsOnce(t *testing.T) {
	a := FromString("a")
	b := FromString("b")
	c := NewComposite(a, b)

	c.Retain()
	assert.False(t, c.Release())
	assert.Equal(t, int32(1), a.RefCount())

	assert.True(t, c.Release())
	assert.Equal(t, int32(0), a.RefCount())
	assert.Equal(t, int32(0), b.RefCount())
}

func TestCompose(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		fragments []string
		expected  string
	}{
		{name: "path only", path: "a.b", expected: "a.b"},
		{name: "path and value", path: "a.b", fragments: []string{`"v"`}, expected: `a.b"v"`},
		{name: "path and fragments", path: "x", fragments: []string{"1", "22", "333"}, expected: "x122333"},
		{name: "empty path and fragments", fragments: []string{"1", "2"}, expected: "12"},
		{name: "nothing", expected: ""},
		{name: "utf8 path", path: "café", fragments: []string{"!"}, expected: "café!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frags := make([]Buffer, len(tt.fragments))
			total := len(tt.path)
			for i, f := range tt.fragments {
				frags[i] = FromString(f)
				total += len(f)
			}

			content := Compose(FromString(tt.path), frags...)
			assert.Equal(t, total, content.Len())

			got, err := io.ReadAll(NewReader(content))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(got))

			content.Release()
			for _, f := range frags {
				assert.Equal(t, int32(0), f.RefCount())
			}
		})
	}
}

func TestCompose_SingleComponentReturnedAsIs(t *testing.T) {
	frag := FromString("value")
	content := Compose(Empty(), frag)
	assert.Same(t, frag, content)
	content.Release()

	path := FromString("path")
	content = Compose(path)
	assert.Same(t, path, content)
	content.Release()
}

func TestCompose_NilPath(t *testing.T) {
	content := Compose(nil)
	assert.Equal(t, Empty(), content)

	frag := FromString("v")
	content = Compose(nil, frag, nil)
	assert.Same(t, frag, content)
	content.Release()
}

func TestReleaseAll(t *testing.T) {
	a, b := FromString("a"), FromString("b")
	ReleaseAll(a, nil, b)
	assert.Equal(t, int32(0), a.RefCount())
	assert.Equal(t, int32(0), b.RefCount())
}
