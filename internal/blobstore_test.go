package internal

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nocturnecity/image-formatter/pkg"
)

func TestBlobStoreLifecycle(t *testing.T) {
	b := NewBlobStore(NopLog(), time.Hour)
	defer b.Shutdown()

	url := b.Create([]byte("abc"), "image/png")
	assert.True(t, strings.HasPrefix(url, BlobURLPrefix))
	assert.Equal(t, 1, b.Len())

	data, mime, ok := b.Get(url)
	require.True(t, ok)
	assert.Equal(t, []byte("abc"), data)
	assert.Equal(t, "image/png", mime)

	assert.True(t, b.Revoke(url))
	assert.False(t, b.Revoke(url))
	_, _, ok = b.Get(url)
	assert.False(t, ok)
	assert.Zero(t, b.Len())
}

func TestBlobStoreDeleteExpired(t *testing.T) {
	b := NewBlobStore(NopLog(), time.Millisecond)
	defer b.Shutdown()

	b.Create([]byte("a"), "image/png")
	time.Sleep(5 * time.Millisecond)
	b.DeleteExpired()
	assert.Zero(t, b.Len())
}

func TestBlobStoreKeepsPinnedBlobs(t *testing.T) {
	b := NewBlobStore(NopLog(), time.Millisecond)
	defer b.Shutdown()
	slot := NewPreviewSlot(b)

	p := slot.Install(&EncodedResult{Bytes: []byte("preview"), Size: 7, MIME: "image/jpeg", Format: pkg.FormatJPG}, 1)
	plain := b.Create([]byte("a"), "image/png")
	time.Sleep(5 * time.Millisecond)
	b.DeleteExpired()

	_, _, ok := b.Get(p.URL)
	assert.True(t, ok)
	_, _, ok = b.Get(plain)
	assert.False(t, ok)

	slot.Release()
	assert.Zero(t, b.Len())
}

func TestBlobStoreShutdownIsRepeatable(t *testing.T) {
	b := NewBlobStore(NopLog(), time.Hour)
	b.Create([]byte("a"), "image/png")
	b.Shutdown()
	b.Shutdown()
	assert.Zero(t, b.Len())
}

func TestBlobID(t *testing.T) {
	assert.Equal(t, "1234", BlobID("blob:1234"))
	assert.Equal(t, "1234", BlobID("1234"))
}

func TestPreviewSlotKeepsOneLiveReference(t *testing.T) {
	b := NewBlobStore(NopLog(), time.Hour)
	defer b.Shutdown()
	slot := NewPreviewSlot(b)

	_, ok := slot.Current()
	assert.False(t, ok)

	var urls []string
	for seq := uint64(1); seq <= 5; seq++ {
		p := slot.Install(&EncodedResult{Bytes: []byte{byte(seq)}, Size: 1, MIME: "image/jpeg", Format: pkg.FormatJPG}, seq)
		urls = append(urls, p.URL)
		assert.Equal(t, 1, b.Len())
	}

	cur, ok := slot.Current()
	require.True(t, ok)
	assert.Equal(t, uint64(5), cur.Seq)
	assert.Equal(t, urls[4], cur.URL)
	for _, u := range urls[:4] {
		_, _, live := b.Get(u)
		assert.False(t, live, u)
	}

	slot.Release()
	assert.Zero(t, b.Len())
	_, ok = slot.Current()
	assert.False(t, ok)
}

func TestPreviewInfo(t *testing.T) {
	info := Preview{URL: "blob:x", Size: 1536, MIME: "image/png", Width: 3, Height: 4}.Info()
	assert.Equal(t, "1.5 KB", info.FormattedSize)
	assert.Equal(t, "blob:x", info.URL)
	assert.Equal(t, 3, info.Width)
}
