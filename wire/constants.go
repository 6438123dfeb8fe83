package wire

import "fmt"

// Opcode identifies a binary protocol command.
type Opcode uint8

// Status is the response status code.
type Status uint16

// PathFlags modify how the server interprets a sub-document path.
type PathFlags uint8

const (
	MagicRequest  = 0x80
	MagicResponse = 0x81

	HeaderLength = 24

	// MaxKeyLength is the longest document key the server accepts.
	MaxKeyLength = 250

	// MaxPathLength is the longest sub-document path the server accepts.
	MaxPathLength = 1024

	DatatypeRaw  = 0x00
	DatatypeJSON = 0x01
)

// Sub-document opcodes.
//
// Lookups (Get, Exists, GetCount) carry no value fragment. Mutations carry the
// value to apply as the fragment after the path; Delete carries none.
const (
	// OpSubdocGet returns the value at the path.
	OpSubdocGet Opcode = 0xc5

	// OpSubdocExists checks that the path exists without returning it.
	OpSubdocExists Opcode = 0xc6

	// OpSubdocDictAdd inserts a dictionary entry; fails if it exists.
	OpSubdocDictAdd Opcode = 0xc7

	// OpSubdocDictUpsert inserts or replaces a dictionary entry.
	OpSubdocDictUpsert Opcode = 0xc8

	// OpSubdocDelete removes the value at the path.
	OpSubdocDelete Opcode = 0xc9

	// OpSubdocReplace replaces an existing value at the path.
	OpSubdocReplace Opcode = 0xca

	// OpSubdocArrayPushLast appends to the array at the path. An empty path
	// targets a root-level array.
	OpSubdocArrayPushLast Opcode = 0xcb

	// OpSubdocArrayPushFirst prepends to the array at the path. An empty
	// path targets a root-level array.
	OpSubdocArrayPushFirst Opcode = 0xcc

	// OpSubdocArrayInsert inserts at the array index named by the path.
	OpSubdocArrayInsert Opcode = 0xcd

	// OpSubdocArrayAddUnique appends unless the value is already present.
	// An empty path targets a root-level array.
	OpSubdocArrayAddUnique Opcode = 0xce

	// OpSubdocCounter adds the signed delta value to the number at the path.
	OpSubdocCounter Opcode = 0xcf

	// OpSubdocGetCount returns the number of elements at the path.
	OpSubdocGetCount Opcode = 0xd2
)

var opcodeNames = map[Opcode]string{
	OpSubdocGet:            "SUBDOC_GET",
	OpSubdocExists:         "SUBDOC_EXISTS",
	OpSubdocDictAdd:        "SUBDOC_DICT_ADD",
	OpSubdocDictUpsert:     "SUBDOC_DICT_UPSERT",
	OpSubdocDelete:         "SUBDOC_DELETE",
	OpSubdocReplace:        "SUBDOC_REPLACE",
	OpSubdocArrayPushLast:  "SUBDOC_ARRAY_PUSH_LAST",
	OpSubdocArrayPushFirst: "SUBDOC_ARRAY_PUSH_FIRST",
	OpSubdocArrayInsert:    "SUBDOC_ARRAY_INSERT",
	OpSubdocArrayAddUnique: "SUBDOC_ARRAY_ADD_UNIQUE",
	OpSubdocCounter:        "SUBDOC_COUNTER",
	OpSubdocGetCount:       "SUBDOC_GET_COUNT",
}

func (o Opcode) String() string {
	if name, ok := opcodeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("opcode(0x%02x)", uint8(o))
}

// IsMutation reports whether the opcode changes the document.
func (o Opcode) IsMutation() bool {
	switch o {
	case OpSubdocGet, OpSubdocExists, OpSubdocGetCount:
		return false
	}
	return true
}

// AllowsEmptyPath reports whether an empty path is meaningful for the opcode.
// Only the array operations can target the document root.
func (o Opcode) AllowsEmptyPath() bool {
	switch o {
	case OpSubdocArrayPushLast, OpSubdocArrayPushFirst, OpSubdocArrayAddUnique:
		return true
	}
	return false
}

const (
	PathFlagMkdirP       PathFlags = 0x01
	PathFlagXattr        PathFlags = 0x04
	PathFlagExpandMacros PathFlags = 0x10
)

const (
	StatusSuccess          Status = 0x0000
	StatusKeyNotFound      Status = 0x0001
	StatusKeyExists        Status = 0x0002
	StatusTooBig           Status = 0x0003
	StatusInvalidArgs      Status = 0x0004
	StatusNotStored        Status = 0x0005
	StatusNotMyVBucket     Status = 0x0007
	StatusUnknownCommand   Status = 0x0081
	StatusOutOfMemory      Status = 0x0082
	StatusBusy             Status = 0x0085
	StatusTemporaryFailure Status = 0x0086

	StatusSubdocPathNotFound    Status = 0x00c0
	StatusSubdocPathMismatch    Status = 0x00c1
	StatusSubdocPathInvalid     Status = 0x00c2
	StatusSubdocPathTooBig      Status = 0x00c3
	StatusSubdocDocTooDeep      Status = 0x00c4
	StatusSubdocValueCantInsert Status = 0x00c5
	StatusSubdocDocNotJSON      Status = 0x00c6
	StatusSubdocNumRange        Status = 0x00c7
	StatusSubdocDeltaRange      Status = 0x00c8
	StatusSubdocPathExists      Status = 0x00c9
	StatusSubdocValueTooDeep    Status = 0x00ca
)

var statusNames = map[Status]string{
	StatusSuccess:               "success",
	StatusKeyNotFound:           "key not found",
	StatusKeyExists:             "key exists",
	StatusTooBig:                "value too big",
	StatusInvalidArgs:           "invalid arguments",
	StatusNotStored:             "not stored",
	StatusNotMyVBucket:          "not my vbucket",
	StatusUnknownCommand:        "unknown command",
	StatusOutOfMemory:           "out of memory",
	StatusBusy:                  "busy",
	StatusTemporaryFailure:      "temporary failure",
	StatusSubdocPathNotFound:    "subdoc path not found",
	StatusSubdocPathMismatch:    "subdoc path mismatch",
	StatusSubdocPathInvalid:     "subdoc path invalid",
	StatusSubdocPathTooBig:      "subdoc path too big",
	StatusSubdocDocTooDeep:      "subdoc document too deep",
	StatusSubdocValueCantInsert: "subdoc value cannot be inserted",
	StatusSubdocDocNotJSON:      "subdoc document is not JSON",
	StatusSubdocNumRange:        "subdoc number out of range",
	StatusSubdocDeltaRange:      "subdoc delta out of range",
	StatusSubdocPathExists:      "subdoc path exists",
	StatusSubdocValueTooDeep:    "subdoc value too deep",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(0x%04x)", uint16(s))
}

// Temporary reports whether the same request may succeed if retried later,
// possibly against another node.
func (s Status) Temporary() bool {
	switch s {
	case StatusNotMyVBucket, StatusOutOfMemory, StatusBusy, StatusTemporaryFailure:
		return true
	}
	return false
}
