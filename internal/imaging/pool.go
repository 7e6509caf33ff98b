package imaging

import (
	"image"
	"sync"
)

// FramePool recycles NRGBA buffers by size to keep GC pressure down while
// frames wait for the encoder.
type FramePool struct {
	pools map[image.Point]*sync.Pool
	mu    sync.RWMutex
}

// NewFramePool returns an empty pool.
func NewFramePool() *FramePool {
	return &FramePool{pools: make(map[image.Point]*sync.Pool)}
}

// Get returns a w×h buffer. Its contents are undefined.
func (p *FramePool) Get(w, h int) *image.NRGBA {
	key := image.Pt(w, h)
	p.mu.RLock()
	pool, ok := p.pools[key]
	p.mu.RUnlock()

	if !ok {
		p.mu.Lock()
		pool, ok = p.pools[key]
		if !ok {
			pool = &sync.Pool{
				New: func() any {
					return image.NewNRGBA(image.Rect(0, 0, key.X, key.Y))
				},
			}
			p.pools[key] = pool
		}
		p.mu.Unlock()
	}

	return pool.Get().(*image.NRGBA)
}

// Put hands img back for reuse. The caller must not touch img afterwards.
func (p *FramePool) Put(img *image.NRGBA) {
	if img == nil {
		return
	}
	key := img.Bounds().Size()
	p.mu.RLock()
	pool, ok := p.pools[key]
	p.mu.RUnlock()

	if ok {
		pool.Put(img)
	}
}
