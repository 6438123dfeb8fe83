package wire

import (
	"encoding/binary"
	"math"

	"github.com/pior/couchbase/buffer"
)

// Request is one binary protocol request frame. It does not own Content:
// whoever built the request keeps the reference and releases it after the
// frame has been written.
type Request struct {
	Opcode   Opcode
	Datatype uint8
	VBucket  uint16
	Opaque   uint32
	CAS      uint64
	Extras   []byte
	Key      string
	Content  buffer.Buffer
}

func (r *Request) contentLen() int {
	if r.Content == nil {
		return 0
	}
	return r.Content.Len()
}

// BodyLength returns extras + key + content length.
func (r *Request) BodyLength() int {
	return len(r.Extras) + len(r.Key) + r.contentLen()
}

// SubdocExtras builds the extras of a sub-document request: path length,
// path flags and, when expiry is non-zero, the expiry in seconds.
func SubdocExtras(pathLength int, flags PathFlags, expiry uint32) ([]byte, error) {
	if pathLength > MaxPathLength {
		return nil, ErrPathTooLong
	}

	size := 3
	if expiry != 0 {
		size = 7
	}
	extras := make([]byte, size)
	binary.BigEndian.PutUint16(extras[0:2], uint16(pathLength))
	extras[2] = byte(flags)
	if expiry != 0 {
		binary.BigEndian.PutUint32(extras[3:7], expiry)
	}
	return extras, nil
}

// ValidateKey checks that key is 1-250 bytes.
func ValidateKey(key string) error {
	if len(key) == 0 {
		return &InvalidKeyError{Message: "key is empty"}
	}
	if len(key) > MaxKeyLength {
		return &InvalidKeyError{Message: "key exceeds maximum length of 250 bytes"}
	}
	return nil
}

func putRequestHeader(hdr []byte, r *Request) error {
	body := r.BodyLength()
	if uint64(body) > math.MaxUint32 || len(r.Extras) > math.MaxUint8 {
		return ErrFrameTooBig
	}

	hdr[0] = MagicRequest
	hdr[1] = byte(r.Opcode)
	binary.BigEndian.PutUint16(hdr[2:4], uint16(len(r.Key)))
	hdr[4] = byte(len(r.Extras))
	hdr[5] = r.Datatype
	binary.BigEndian.PutUint16(hdr[6:8], r.VBucket)
	binary.BigEndian.PutUint32(hdr[8:12], uint32(body))
	binary.BigEndian.PutUint32(hdr[12:16], r.Opaque)
	binary.BigEndian.PutUint64(hdr[16:24], r.CAS)
	return nil
}
