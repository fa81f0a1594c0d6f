package snapshot

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"

	"github.com/hupe1980/nested/typedesc"
)

const (
	// MagicNumber identifies snapshot blobs (ASCII: "NSNP").
	MagicNumber = 0x4e534e50
	// Version is the current snapshot format version.
	Version = 1
)

var (
	ErrInvalidMagic       = errors.New("snapshot: invalid magic number")
	ErrInvalidVersion     = errors.New("snapshot: unsupported version")
	ErrUnknownCompression = errors.New("snapshot: unknown compression codec")
	ErrCorrupted          = errors.New("snapshot: corrupted payload")
)

// castagnoli is the CRC-32C table; hardware accelerated on amd64 and arm64.
var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// ChecksumMismatchError is returned when the trailing CRC-32C does not match
// the stored bytes.
type ChecksumMismatchError struct {
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("snapshot: checksum mismatch: expected 0x%08x, got 0x%08x", e.Expected, e.Actual)
}

// Type tree encoding tags.
const (
	tagScalar uint8 = iota + 1
	tagFixedDim
	tagVarDim
	tagTuple
	tagRecord
)

// encodeType appends a self-delimiting binary encoding of t to buf.
func encodeType(buf *bytes.Buffer, t *typedesc.Type) {
	switch t.Kind() {
	case typedesc.KindScalar:
		buf.WriteByte(tagScalar)
		buf.WriteByte(byte(t.DType()))
		if t.Optional() {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}

	case typedesc.KindFixedDim:
		buf.WriteByte(tagFixedDim)
		writeUvarint(buf, uint64(t.Shape()))
		encodeType(buf, t.Elem())

	case typedesc.KindVarDim:
		buf.WriteByte(tagVarDim)
		offsets := t.Offsets()
		writeUvarint(buf, uint64(len(offsets)))
		for _, off := range offsets {
			writeUvarint(buf, uint64(off))
		}
		encodeType(buf, t.Elem())

	case typedesc.KindTuple:
		buf.WriteByte(tagTuple)
		fields := t.Fields()
		writeUvarint(buf, uint64(len(fields)))
		for _, f := range fields {
			encodeType(buf, f.Type)
		}

	case typedesc.KindRecord:
		buf.WriteByte(tagRecord)
		fields := t.Fields()
		writeUvarint(buf, uint64(len(fields)))
		for _, f := range fields {
			writeUvarint(buf, uint64(len(f.Name)))
			buf.WriteString(f.Name)
			encodeType(buf, f.Type)
		}

	default:
		// Non-concrete types are rejected before encoding starts.
		panic(fmt.Sprintf("snapshot: cannot encode %s type", t.Kind()))
	}
}

// decodeType reads one type tree from r. All structural constraints are
// validated here so corrupt input surfaces as ErrCorrupted instead of a
// constructor panic. Counts and lengths are bounded against the remaining
// payload before any allocation: a valid checksum proves integrity, not
// that the encoder was well-behaved.
func decodeType(r *bytes.Reader) (*typedesc.Type, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return nil, ErrCorrupted
	}

	switch tag {
	case tagScalar:
		dt, err := r.ReadByte()
		if err != nil {
			return nil, ErrCorrupted
		}
		if typedesc.DType(dt) > typedesc.Float64 {
			return nil, fmt.Errorf("%w: unknown dtype %d", ErrCorrupted, dt)
		}
		opt, err := r.ReadByte()
		if err != nil {
			return nil, ErrCorrupted
		}
		t := typedesc.Scalar(typedesc.DType(dt))
		if opt != 0 {
			t = typedesc.Optional(t)
		}
		return t, nil

	case tagFixedDim:
		shape, err := binary.ReadUvarint(r)
		if err != nil {
			return nil, ErrCorrupted
		}
		if shape > math.MaxInt64 {
			return nil, fmt.Errorf("%w: fixed dim shape %d overflows", ErrCorrupted, shape)
		}
		elem, err := decodeType(r)
		if err != nil {
			return nil, err
		}
		return typedesc.FixedDim(int64(shape), elem), nil

	case tagVarDim:
		n, err := binary.ReadUvarint(r)
		if err != nil || n == 0 {
			return nil, ErrCorrupted
		}
		// Each offset takes at least one byte on the wire.
		if n > uint64(r.Len()) {
			return nil, fmt.Errorf("%w: var dim offset count %d exceeds payload", ErrCorrupted, n)
		}
		offsets := make([]int64, n)
		for i := range offsets {
			off, err := binary.ReadUvarint(r)
			if err != nil || off > math.MaxInt64 {
				return nil, ErrCorrupted
			}
			offsets[i] = int64(off)
			if i == 0 && offsets[i] != 0 {
				return nil, fmt.Errorf("%w: var dim offsets must start with 0", ErrCorrupted)
			}
			if i > 0 && offsets[i] < offsets[i-1] {
				return nil, fmt.Errorf("%w: decreasing var dim offsets", ErrCorrupted)
			}
		}
		elem, err := decodeType(r)
		if err != nil {
			return nil, err
		}
		return typedesc.VarDim(elem, offsets), nil

	case tagTuple:
		n, err := binary.ReadUvarint(r)
		if err != nil {
			return nil, ErrCorrupted
		}
		// Each field encoding takes at least one byte on the wire.
		if n > uint64(r.Len()) {
			return nil, fmt.Errorf("%w: tuple field count %d exceeds payload", ErrCorrupted, n)
		}
		types := make([]*typedesc.Type, n)
		for i := range types {
			if types[i], err = decodeType(r); err != nil {
				return nil, err
			}
		}
		return typedesc.Tuple(types...), nil

	case tagRecord:
		n, err := binary.ReadUvarint(r)
		if err != nil {
			return nil, ErrCorrupted
		}
		if n > uint64(r.Len()) {
			return nil, fmt.Errorf("%w: record field count %d exceeds payload", ErrCorrupted, n)
		}
		fields := make([]typedesc.Field, n)
		for i := range fields {
			nameLen, err := binary.ReadUvarint(r)
			if err != nil {
				return nil, ErrCorrupted
			}
			if nameLen > uint64(r.Len()) {
				return nil, fmt.Errorf("%w: record field name length %d exceeds payload", ErrCorrupted, nameLen)
			}
			name := make([]byte, nameLen)
			if _, err := io.ReadFull(r, name); err != nil {
				return nil, ErrCorrupted
			}
			if len(name) == 0 {
				return nil, fmt.Errorf("%w: record field without a name", ErrCorrupted)
			}
			fields[i].Name = string(name)
			if fields[i].Type, err = decodeType(r); err != nil {
				return nil, err
			}
		}
		return typedesc.Record(fields...), nil

	default:
		return nil, fmt.Errorf("%w: unknown type tag %d", ErrCorrupted, tag)
	}
}

func writeUvarint(buf *bytes.Buffer, v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	buf.Write(tmp[:n])
}
