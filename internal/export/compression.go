package export

import (
	"compress/gzip"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm identifies a compression algorithm for dump artifacts
type Algorithm string

const (
	AlgorithmNone Algorithm = "none"
	AlgorithmGzip Algorithm = "gzip"
	AlgorithmLZ4  Algorithm = "lz4"
	AlgorithmZstd Algorithm = "zstd"
)

// ParseAlgorithm maps a user-supplied name to an Algorithm
func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(name) {
	case AlgorithmNone, AlgorithmGzip, AlgorithmLZ4, AlgorithmZstd:
		return Algorithm(name), nil
	case "":
		return AlgorithmNone, nil
	default:
		return "", fmt.Errorf("unsupported compression algorithm: %s", name)
	}
}

// Extension returns the conventional file suffix for the algorithm
func (a Algorithm) Extension() string {
	switch a {
	case AlgorithmGzip:
		return ".gz"
	case AlgorithmLZ4:
		return ".lz4"
	case AlgorithmZstd:
		return ".zst"
	default:
		return ""
	}
}

// Compressor wraps an output stream in one compression format
type Compressor interface {
	Algorithm() Algorithm
	// WrapWriter returns a writer that compresses into w. The returned
	// writer must be closed to flush the trailing frame; closing it does
	// not close w.
	WrapWriter(w io.Writer) (io.WriteCloser, error)
	// WrapReader returns a reader that decompresses from r
	WrapReader(r io.Reader) (io.ReadCloser, error)
}

// CompressionManager holds the registered compressors keyed by algorithm
type CompressionManager struct {
	compressors map[Algorithm]Compressor
}

// NewCompressionManager creates a manager with gzip, lz4 and zstd registered
func NewCompressionManager() *CompressionManager {
	cm := &CompressionManager{
		compressors: make(map[Algorithm]Compressor),
	}
	cm.compressors[AlgorithmGzip] = &gzipCompressor{}
	cm.compressors[AlgorithmLZ4] = &lz4Compressor{}
	cm.compressors[AlgorithmZstd] = &zstdCompressor{}
	return cm
}

// WrapWriter returns a compressing writer over w for the algorithm.
// AlgorithmNone returns w behind a no-op closer.
func (cm *CompressionManager) WrapWriter(w io.Writer, algorithm Algorithm) (io.WriteCloser, error) {
	if algorithm == AlgorithmNone {
		return nopWriteCloser{w}, nil
	}
	compressor, exists := cm.compressors[algorithm]
	if !exists {
		return nil, fmt.Errorf("unsupported compression algorithm: %s", algorithm)
	}
	return compressor.WrapWriter(w)
}

// WrapReader returns a decompressing reader over r for the algorithm
func (cm *CompressionManager) WrapReader(r io.Reader, algorithm Algorithm) (io.ReadCloser, error) {
	if algorithm == AlgorithmNone {
		return io.NopCloser(r), nil
	}
	compressor, exists := cm.compressors[algorithm]
	if !exists {
		return nil, fmt.Errorf("unsupported compression algorithm: %s", algorithm)
	}
	return compressor.WrapReader(r)
}

// SupportedAlgorithms returns the registered algorithms plus none
func (cm *CompressionManager) SupportedAlgorithms() []Algorithm {
	algorithms := []Algorithm{AlgorithmNone}
	for algorithm := range cm.compressors {
		algorithms = append(algorithms, algorithm)
	}
	return algorithms
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

type gzipCompressor struct{}

func (gzipCompressor) Algorithm() Algorithm { return AlgorithmGzip }

func (gzipCompressor) WrapWriter(w io.Writer) (io.WriteCloser, error) {
	return gzip.NewWriterLevel(w, gzip.DefaultCompression)
}

func (gzipCompressor) WrapReader(r io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}

type lz4Compressor struct{}

func (lz4Compressor) Algorithm() Algorithm { return AlgorithmLZ4 }

func (lz4Compressor) WrapWriter(w io.Writer) (io.WriteCloser, error) {
	return lz4.NewWriter(w), nil
}

func (lz4Compressor) WrapReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(lz4.NewReader(r)), nil
}

type zstdCompressor struct{}

func (zstdCompressor) Algorithm() Algorithm { return AlgorithmZstd }

func (zstdCompressor) WrapWriter(w io.Writer) (io.WriteCloser, error) {
	encoder, err := zstd.NewWriter(w)
	if err != nil {
		return nil, err
	}
	return encoder, nil
}

func (zstdCompressor) WrapReader(r io.Reader) (io.ReadCloser, error) {
	decoder, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return decoder.IOReadCloser(), nil
}
