package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxBodyLength bounds the response body accepted by ReadResponse.
const MaxBodyLength = 20 << 20

// Response is a decoded response frame.
type Response struct {
	Opcode   Opcode
	Status   Status
	Datatype uint8
	Opaque   uint32
	CAS      uint64
	Extras   []byte
	Key      []byte
	Value    []byte
}

// IsSuccess reports whether the server accepted the request.
func (r *Response) IsSuccess() bool {
	return r.Status == StatusSuccess
}

// Err returns a *StatusError for non-success responses.
func (r *Response) Err() error {
	if r.IsSuccess() {
		return nil
	}
	return &StatusError{Opcode: r.Opcode, Status: r.Status}
}

// ReadResponse reads one response frame from r.
func ReadResponse(r io.Reader) (*Response, error) {
	var hdr [HeaderLength]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	if hdr[0] != MagicResponse {
		return nil, fmt.Errorf("%w: 0x%02x", ErrBadMagic, hdr[0])
	}

	keyLen := int(binary.BigEndian.Uint16(hdr[2:4]))
	extrasLen := int(hdr[4])
	bodyLen := int(binary.BigEndian.Uint32(hdr[8:12]))
	if bodyLen > MaxBodyLength {
		return nil, ErrFrameTooBig
	}
	if keyLen+extrasLen > bodyLen {
		return nil, ErrMalformedHdr
	}

	resp := &Response{
		Opcode:   Opcode(hdr[1]),
		Datatype: hdr[5],
		Status:   Status(binary.BigEndian.Uint16(hdr[6:8])),
		Opaque:   binary.BigEndian.Uint32(hdr[12:16]),
		CAS:      binary.BigEndian.Uint64(hdr[16:24]),
	}

	if bodyLen == 0 {
		return resp, nil
	}

	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	if extrasLen > 0 {
		resp.Extras = body[:extrasLen]
	}
	if keyLen > 0 {
		resp.Key = body[extrasLen : extrasLen+keyLen]
	}
	if bodyLen > extrasLen+keyLen {
		resp.Value = body[extrasLen+keyLen:]
	}
	return resp, nil
}

// WriteResponse encodes resp. Servers and test doubles use it.
func WriteResponse(w io.Writer, resp *Response) error {
	body := len(resp.Extras) + len(resp.Key) + len(resp.Value)
	frame := make([]byte, HeaderLength, HeaderLength+body)
	frame[0] = MagicResponse
	frame[1] = byte(resp.Opcode)
	binary.BigEndian.PutUint16(frame[2:4], uint16(len(resp.Key)))
	frame[4] = byte(len(resp.Extras))
	frame[5] = resp.Datatype
	binary.BigEndian.PutUint16(frame[6:8], uint16(resp.Status))
	binary.BigEndian.PutUint32(frame[8:12], uint32(body))
	binary.BigEndian.PutUint32(frame[12:16], resp.Opaque)
	binary.BigEndian.PutUint64(frame[16:24], resp.CAS)
	frame = append(frame, resp.Extras...)
	frame = append(frame, resp.Key...)
	frame = append(frame, resp.Value...)

	_, err := w.Write(frame)
	return err
}
