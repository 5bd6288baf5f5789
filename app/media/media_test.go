package media

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// smallGIF is a 1x1 transparent gif.
var smallGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00,
	0x01, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00,
	0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x44,
	0x01, 0x00, 0x3b,
}

func TestInspect(t *testing.T) {
	mime, err := Inspect(smallGIF, 0)
	require.NoError(t, err)
	assert.Equal(t, "image/gif", mime.String())
	assert.Equal(t, ".gif", mime.Extension())

	_, err = Inspect([]byte("plain text, not a picture"), 0)
	assert.ErrorIs(t, err, ErrNotImage)

	_, err = Inspect(nil, 0)
	assert.ErrorIs(t, err, ErrNotImage)

	_, err = Inspect(smallGIF, 10)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestStore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(DefaultMaxUpload), store.MaxBytes())

	ref, err := store.Save(&Upload{Filename: "small.gif", Data: smallGIF})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "posts/"))
	assert.True(t, strings.HasSuffix(ref, ".gif"))

	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(ref)))
	require.NoError(t, err)
	assert.Equal(t, smallGIF, data)

	other, err := store.Save(&Upload{Filename: "small.gif", Data: smallGIF})
	require.NoError(t, err)
	assert.NotEqual(t, ref, other)

	_, err = store.Save(&Upload{Filename: "notes.txt", Data: []byte("hello")})
	assert.ErrorIs(t, err, ErrNotImage)

	require.NoError(t, store.Remove(ref))
	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(ref)))
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, store.Remove(ref))
	assert.NoError(t, store.Remove("../outside"))
}
