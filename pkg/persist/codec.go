// Package persist writes flattened documents to disk and reads them back,
// compressing targets with the .lz4 extension as LZ4 frames.
package persist

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/pierrec/lz4/v4"
)

// File extensions for supported codecs.
const (
	plainExtension = ""
	lz4Extension   = ".lz4"
)

// Codec defines how a document is stored.
type Codec interface {
	// Encode writes the document to the writer.
	Encode(w io.Writer, document []byte) error
	// Decode reads a whole document from the reader.
	Decode(r io.Reader) ([]byte, error)
	// Extension returns the file extension that selects this codec.
	Extension() string
}

// PlainCodec stores documents unchanged.
type PlainCodec struct{}

// Encode implements Codec.Encode.
func (PlainCodec) Encode(w io.Writer, document []byte) error {
	_, err := w.Write(document)
	if err != nil {
		return fmt.Errorf("write document: %w", err)
	}

	return nil
}

// Decode implements Codec.Decode.
func (PlainCodec) Decode(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	return data, nil
}

// Extension implements Codec.Extension.
func (PlainCodec) Extension() string {
	return plainExtension
}

// LZ4Codec stores documents as LZ4 frames.
type LZ4Codec struct {
	// Level is the compression level. Zero selects the fast compressor.
	Level lz4.CompressionLevel
}

// NewLZ4Codec creates an LZ4 codec with the fast compressor.
func NewLZ4Codec() *LZ4Codec {
	return &LZ4Codec{Level: lz4.Fast}
}

// Encode implements Codec.Encode using an LZ4 frame.
func (c *LZ4Codec) Encode(w io.Writer, document []byte) error {
	zw := lz4.NewWriter(w)

	err := zw.Apply(lz4.CompressionLevelOption(c.Level))
	if err != nil {
		return fmt.Errorf("lz4 options: %w", err)
	}

	_, err = io.Copy(zw, bytes.NewReader(document))
	if err != nil {
		return fmt.Errorf("lz4 encode: %w", err)
	}

	err = zw.Close()
	if err != nil {
		return fmt.Errorf("lz4 flush: %w", err)
	}

	return nil
}

// Decode implements Codec.Decode for LZ4 frames.
func (c *LZ4Codec) Decode(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(lz4.NewReader(r))
	if err != nil {
		return nil, fmt.Errorf("lz4 decode: %w", err)
	}

	return data, nil
}

// Extension implements Codec.Extension for LZ4 files.
func (c *LZ4Codec) Extension() string {
	return lz4Extension
}

// CodecFor picks the codec selected by the path's extension.
func CodecFor(path string) Codec {
	if strings.EqualFold(filepath.Ext(path), lz4Extension) {
		return NewLZ4Codec()
	}

	return PlainCodec{}
}
