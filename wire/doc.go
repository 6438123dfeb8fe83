// Package wire encodes sub-document requests into memcached binary protocol
// frames and decodes the response header that comes back.
//
// # Frame layout
//
// Every frame starts with a 24-byte header:
//
//	offset  size  request          response
//	0       1     magic 0x80       magic 0x81
//	1       1     opcode           opcode
//	2       2     key length       key length
//	4       1     extras length    extras length
//	5       1     datatype         datatype
//	6       2     vbucket          status
//	8       4     total body length
//	12      4     opaque
//	16      8     CAS
//
// The body follows: extras, key, then the value. For sub-document operations
// the extras carry the 2-byte path length, the 1-byte path flags and, for
// mutations with an expiry, a 4-byte expiry. The value is the request content:
// path bytes followed by zero or more value fragments.
//
// # Writing
//
// WriteRequest never copies the content. The header, extras and key go into a
// pooled scratch buffer and the content segments are appended to a
// net.Buffers, so a net.Conn receives the whole frame in one writev call:
//
//	req := &wire.Request{
//	    Opcode:  wire.OpSubdocGet,
//	    Key:     "user::42",
//	    Extras:  extras,
//	    Content: content,
//	}
//	if err := wire.WriteRequest(conn, req); err != nil {
//	    return err
//	}
//
// # Reading
//
//	resp, err := wire.ReadResponse(bufio.NewReader(conn))
//	if err != nil {
//	    if wire.ShouldCloseConnection(err) {
//	        conn.Close()
//	    }
//	    return err
//	}
//	if err := resp.Err(); err != nil {
//	    return err
//	}
package wire
