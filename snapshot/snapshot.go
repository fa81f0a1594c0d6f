package snapshot

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"hash"
	"hash/crc32"
	"io"

	"github.com/hupe1980/nested/blobstore"
	"github.com/hupe1980/nested/container"
	"github.com/hupe1980/nested/resource"
	"github.com/hupe1980/nested/validity"
)

// Options configures snapshot IO.
type Options struct {
	// Compression is the codec name recorded in the header. Ignored by
	// Read, which follows the header.
	Compression string

	// Controller paces snapshot IO and, on Read, charges the restored
	// container against its memory budget. Nil means unlimited.
	Controller *resource.Controller
}

// DefaultOptions are the options applied when none are given.
var DefaultOptions = Options{
	Compression: "zstd",
}

// Write persists c to store under name.
//
// The blob is framed as header (magic, version, codec name), compressed
// payload (type tree, data buffer, validity leaves in pre-order), and a
// trailing CRC-32C over everything before it. On error the partial blob is
// deleted.
func Write(ctx context.Context, store blobstore.Store, name string, c *container.Container, optFns ...func(o *Options)) error {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	comp, ok := ByName(opts.Compression)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCompression, opts.Compression)
	}

	w, err := store.Create(ctx, name)
	if err != nil {
		return err
	}

	if err := write(ctx, w, c, comp, opts.Controller); err != nil {
		_ = w.Close()
		_ = store.Delete(ctx, name)
		return err
	}
	return w.Close()
}

func write(ctx context.Context, w io.Writer, c *container.Container, comp Compression, rc *resource.Controller) error {
	cw := &checksumWriter{
		w:    resource.NewRateLimitedWriter(ctx, w, rc),
		hash: crc32.New(castagnoli),
	}

	var header bytes.Buffer
	var u32 [4]byte
	binary.BigEndian.PutUint32(u32[:], MagicNumber)
	header.Write(u32[:])
	binary.BigEndian.PutUint32(u32[:], Version)
	header.Write(u32[:])
	header.WriteByte(byte(len(comp.Name())))
	header.WriteString(comp.Name())

	if _, err := cw.Write(header.Bytes()); err != nil {
		return err
	}

	enc, err := comp.NewWriter(cw)
	if err != nil {
		return err
	}

	var payload bytes.Buffer
	encodeType(&payload, c.Type())
	writeUvarint(&payload, uint64(len(c.Bytes())))
	if _, err := enc.Write(payload.Bytes()); err != nil {
		return err
	}
	if _, err := enc.Write(c.Bytes()); err != nil {
		return err
	}

	err = walkLeaves(c.Validity().Root(), func(data []byte) error {
		_, werr := enc.Write(data)
		return werr
	})
	if err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}

	// The trailer covers header and compressed payload; it bypasses the
	// checksum writer so it does not checksum itself.
	binary.BigEndian.PutUint32(u32[:], cw.Sum())
	_, err = w.Write(u32[:])
	return err
}

// Read restores a container from store under name. The restored container
// is charged against the controller in opts; closing it returns the budget.
func Read(ctx context.Context, store blobstore.Store, name string, optFns ...func(o *Options)) (*container.Container, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = blob.Close() }()

	size := blob.Size()
	if size < 13 { // magic + version + name length + trailer
		return nil, ErrCorrupted
	}

	rr, err := blob.ReadRange(ctx, 0, size-4)
	if err != nil {
		return nil, err
	}
	body, err := io.ReadAll(resource.NewRateLimitedReader(ctx, rr, opts.Controller))
	_ = rr.Close()
	if err != nil {
		return nil, err
	}
	if int64(len(body)) != size-4 {
		return nil, ErrCorrupted
	}

	var trailer [4]byte
	if _, err := blob.ReadAt(ctx, trailer[:], size-4); err != nil && err != io.EOF {
		return nil, err
	}
	expected := binary.BigEndian.Uint32(trailer[:])
	if actual := crc32.Checksum(body, castagnoli); actual != expected {
		return nil, &ChecksumMismatchError{Expected: expected, Actual: actual}
	}

	br := bytes.NewReader(body)
	var u32 [4]byte
	if _, err := io.ReadFull(br, u32[:]); err != nil {
		return nil, ErrCorrupted
	}
	if binary.BigEndian.Uint32(u32[:]) != MagicNumber {
		return nil, ErrInvalidMagic
	}
	if _, err := io.ReadFull(br, u32[:]); err != nil {
		return nil, ErrCorrupted
	}
	if v := binary.BigEndian.Uint32(u32[:]); v != Version {
		return nil, fmt.Errorf("%w: %d", ErrInvalidVersion, v)
	}

	nameLen, err := br.ReadByte()
	if err != nil {
		return nil, ErrCorrupted
	}
	codecName := make([]byte, nameLen)
	if _, err := io.ReadFull(br, codecName); err != nil {
		return nil, ErrCorrupted
	}
	comp, ok := ByName(string(codecName))
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCompression, codecName)
	}

	dec, err := comp.NewReader(br)
	if err != nil {
		return nil, err
	}
	payload, err := io.ReadAll(dec)
	_ = dec.Close()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}

	pr := bytes.NewReader(payload)
	typ, err := decodeType(pr)
	if err != nil {
		return nil, err
	}
	dataLen, err := binary.ReadUvarint(pr)
	if err != nil {
		return nil, ErrCorrupted
	}

	c, err := container.New(typ, opts.Controller)
	if err != nil {
		return nil, err
	}
	if dataLen != uint64(len(c.Bytes())) {
		c.Close()
		return nil, fmt.Errorf("%w: data size %d does not match type %s", ErrCorrupted, dataLen, typ)
	}
	if _, err := io.ReadFull(pr, c.Bytes()); err != nil {
		c.Close()
		return nil, ErrCorrupted
	}

	err = walkLeaves(c.Validity().Root(), func(data []byte) error {
		_, rerr := io.ReadFull(pr, data)
		return rerr
	})
	if err != nil {
		c.Close()
		return nil, ErrCorrupted
	}
	if pr.Len() != 0 {
		c.Close()
		return nil, fmt.Errorf("%w: %d trailing payload bytes", ErrCorrupted, pr.Len())
	}

	return c, nil
}

// walkLeaves visits every leaf buffer of a validity tree in pre-order. The
// order is fully determined by the type, so writer and reader agree on it
// without storing per-leaf framing.
func walkLeaves(b *validity.Bitmap, fn func(data []byte) error) error {
	if b.IsLeaf() {
		return fn(b.Data())
	}
	for i := int64(0); i < int64(b.NumChildren()); i++ {
		if err := walkLeaves(b.Child(i), fn); err != nil {
			return err
		}
	}
	return nil
}

// checksumWriter computes a running CRC-32C over everything written.
type checksumWriter struct {
	w    io.Writer
	hash hash.Hash32
}

func (cw *checksumWriter) Write(p []byte) (int, error) {
	_, _ = cw.hash.Write(p) // never fails
	return cw.w.Write(p)
}

func (cw *checksumWriter) Sum() uint32 {
	return cw.hash.Sum32()
}
