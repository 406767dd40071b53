package astdoc

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compressed documents are recognised by extension.
const (
	extGzip = ".gz"
	extZstd = ".zst"
)

// ScriptName derives the default script name from a document path:
// "build/invoice.sorrel.yaml.gz" names the script "invoice.sorrel".
func ScriptName(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, extGzip)
	name = strings.TrimSuffix(name, extZstd)
	for _, ext := range []string{".yaml", ".yml"} {
		name = strings.TrimSuffix(name, ext)
	}
	return name
}

// ReadFile decodes the document at path, decompressing .gz and .zst files.
func ReadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	switch filepath.Ext(path) {
	case extGzip:
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	case extZstd:
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		defer zr.Close()
		r = zr
	}
	return DecodeNamed(r, ScriptName(path))
}

// WriteFile encodes doc to path, compressing by extension.
func WriteFile(path string, doc *Document) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	switch filepath.Ext(path) {
	case extGzip:
		gz := gzip.NewWriter(f)
		if err := Encode(gz, doc); err != nil {
			return err
		}
		return gz.Close()
	case extZstd:
		zw, err := zstd.NewWriter(f)
		if err != nil {
			return err
		}
		if err := Encode(zw, doc); err != nil {
			zw.Close()
			return err
		}
		return zw.Close()
	}
	return Encode(f, doc)
}
