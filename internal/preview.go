package internal

import (
	"sync"

	"github.com/nocturnecity/image-formatter/pkg"
)

type Preview struct {
	URL    string
	Size   int64
	MIME   string
	Format pkg.OutputFormat
	Width  int
	Height int
	Seq    uint64
}

func (p Preview) Info() *pkg.PreviewInfo {
	return &pkg.PreviewInfo{
		URL:           p.URL,
		Size:          p.Size,
		FormattedSize: pkg.FormatSize(p.Size),
		Width:         p.Width,
		Height:        p.Height,
		MIME:          p.MIME,
	}
}

// PreviewSlot owns the one live preview reference of a session.
type PreviewSlot struct {
	mu      sync.Mutex
	blobs   *BlobStore
	current *Preview
}

func NewPreviewSlot(blobs *BlobStore) *PreviewSlot {
	return &PreviewSlot{blobs: blobs}
}

// Install revokes the previous reference before registering res. The new reference is
// pinned so it lives exactly as long as the slot holds it.
func (s *PreviewSlot) Install(res *EncodedResult, seq uint64) Preview {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.blobs.Revoke(s.current.URL)
		s.current = nil
	}
	p := Preview{
		URL:    s.blobs.CreatePinned(res.Bytes, res.MIME),
		Size:   res.Size,
		MIME:   res.MIME,
		Format: res.Format,
		Width:  res.Width,
		Height: res.Height,
		Seq:    seq,
	}
	s.current = &p
	return p
}

func (s *PreviewSlot) Current() (Preview, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Preview{}, false
	}
	return *s.current, true
}

func (s *PreviewSlot) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.blobs.Revoke(s.current.URL)
		s.current = nil
	}
}
