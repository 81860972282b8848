package platform

import (
	"io"
	"sync"
)

// BufferSize is the size of pooled copy buffers.
const BufferSize = 1 << 20 // 1 MiB

var bufPool = sync.Pool{
	New: func() any {
		b := make([]byte, BufferSize)
		return &b
	},
}

// CopyBuffered copies from src to dst using a pooled buffer. It reports
// the number of bytes written along with the first error encountered.
func CopyBuffered(dst io.Writer, src io.Reader) (int64, error) {
	bufp := bufPool.Get().(*[]byte) //nolint:errcheck,forcetypeassert // pool only holds *[]byte
	defer bufPool.Put(bufp)
	return io.CopyBuffer(dst, src, *bufp)
}
