package snapshot

import (
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression frames the snapshot payload. Implementations must be
// stateless; writers and readers are created per snapshot.
type Compression interface {
	// Name is the stable identifier stored in the snapshot header.
	Name() string
	NewWriter(w io.Writer) (io.WriteCloser, error)
	NewReader(r io.Reader) (io.ReadCloser, error)
}

// ByName returns a built-in compression codec by its stable name.
//
// Renaming or removing a codec is a breaking change: snapshots record the
// name in their header.
func ByName(name string) (Compression, bool) {
	switch name {
	case "zstd":
		return zstdCompression{}, true
	case "lz4":
		return lz4Compression{}, true
	case "none":
		return noCompression{}, true
	default:
		return nil, false
	}
}

type zstdCompression struct{}

func (zstdCompression) Name() string { return "zstd" }

func (zstdCompression) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return zstd.NewWriter(w)
}

func (zstdCompression) NewReader(r io.Reader) (io.ReadCloser, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return dec.IOReadCloser(), nil
}

type lz4Compression struct{}

func (lz4Compression) Name() string { return "lz4" }

func (lz4Compression) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return lz4.NewWriter(w), nil
}

func (lz4Compression) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(lz4.NewReader(r)), nil
}

type noCompression struct{}

func (noCompression) Name() string { return "none" }

func (noCompression) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return nopWriteCloser{w}, nil
}

func (noCompression) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(r), nil
}

// nopWriteCloser terminates the codec framing without closing the
// underlying blob writer.
type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
