package sink

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/fortiblox/regsort/pkg/search"
)

// ErrDecompressionFailed is returned when an archive cannot be decoded.
var ErrDecompressionFailed = errors.New("archive decompression failed")

// Archive appends solutions as JSON lines to a zstd-compressed file.
type Archive struct {
	file *os.File
	enc  *zstd.Encoder
	json *json.Encoder
	n    int
}

// CreateArchive creates (or truncates) the archive at path.
func CreateArchive(path string) (*Archive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create archive: %w", err)
	}
	enc, err := zstd.NewWriter(file, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("create encoder: %w", err)
	}
	return &Archive{file: file, enc: enc, json: json.NewEncoder(enc)}, nil
}

// Emit implements search.Sink.
func (a *Archive) Emit(s search.Solution) error {
	if err := a.json.Encode(s); err != nil {
		return fmt.Errorf("archive solution %d: %w", s.Index, err)
	}
	a.n++
	return nil
}

// Count returns the number of archived solutions.
func (a *Archive) Count() int { return a.n }

// Close finishes the zstd frame and closes the file.
func (a *Archive) Close() error {
	encErr := a.enc.Close()
	fileErr := a.file.Close()
	if encErr != nil {
		return fmt.Errorf("close encoder: %w", encErr)
	}
	return fileErr
}

// ReadArchive decodes every solution in the archive at path.
func ReadArchive(path string) ([]search.Solution, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer file.Close()

	dec, err := zstd.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompressionFailed, err)
	}
	defer dec.Close()

	var out []search.Solution
	jd := json.NewDecoder(bufio.NewReader(dec))
	for {
		var s search.Solution
		err := jd.Decode(&s)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("%w: %v", ErrDecompressionFailed, err)
		}
		out = append(out, s)
	}
}
