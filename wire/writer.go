package wire

import (
	"bytes"
	"io"
	"net"
	"sync"
)

var scratchPool = sync.Pool{
	New: func() any {
		// Header plus the largest sub-document extras plus a typical key.
		return bytes.NewBuffer(make([]byte, 0, 128))
	},
}

func getScratch() *bytes.Buffer {
	return scratchPool.Get().(*bytes.Buffer)
}

func putScratch(buf *bytes.Buffer) {
	if buf.Cap() > 4096 {
		return
	}
	buf.Reset()
	scratchPool.Put(buf)
}

// WriteRequest validates req and writes the frame to w.
//
// Nothing is written when validation fails. The content is written from its
// segments without being copied.
func WriteRequest(w io.Writer, req *Request) error {
	if err := ValidateKey(req.Key); err != nil {
		return err
	}

	scratch := getScratch()
	defer putScratch(scratch)

	var hdr [HeaderLength]byte
	if err := putRequestHeader(hdr[:], req); err != nil {
		return err
	}
	scratch.Write(hdr[:])
	scratch.Write(req.Extras)
	scratch.WriteString(req.Key)

	bufs := net.Buffers{scratch.Bytes()}
	if req.Content != nil {
		bufs = append(bufs, req.Content.Segments()...)
	}

	_, err := bufs.WriteTo(w)
	return err
}

// AppendRequest appends the encoded frame to dst and returns the result.
// It copies the content; use WriteRequest on hot paths.
func AppendRequest(dst []byte, req *Request) ([]byte, error) {
	if err := ValidateKey(req.Key); err != nil {
		return dst, err
	}

	var hdr [HeaderLength]byte
	if err := putRequestHeader(hdr[:], req); err != nil {
		return dst, err
	}
	dst = append(dst, hdr[:]...)
	dst = append(dst, req.Extras...)
	dst = append(dst, req.Key...)
	if req.Content != nil {
		for _, seg := range req.Content.Segments() {
			dst = append(dst, seg...)
		}
	}
	return dst, nil
}
