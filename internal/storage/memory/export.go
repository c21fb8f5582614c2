package memory

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	v1 "github.com/OCAP2/combatsim/internal/storage/memory/export/v1"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression names accepted in MemoryConfig.Compression.
const (
	CompressionGzip = "gzip"
	CompressionZstd = "zstd"
)

// exportJSON writes the engagement to OutputDir and returns the file path
func (b *Backend) exportJSON(data *v1.EngagementData) (string, error) {
	export := v1.Build(data)

	name := strings.NewReplacer(" ", "_", ":", "_", "/", "_").Replace(data.Engagement.Name)
	if name == "" {
		name = "engagement"
	}
	timestamp := data.Engagement.StartTime.Format("20060102_150405")
	filename := fmt.Sprintf("%s_%d_%s.json%s", name, data.Engagement.ID, timestamp, b.extension())

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := b.writeFile(outputPath, export); err != nil {
		return "", err
	}
	return outputPath, nil
}

func (b *Backend) extension() string {
	if !b.cfg.CompressOutput {
		return ""
	}
	if b.cfg.Compression == CompressionZstd {
		return ".zst"
	}
	return ".gz"
}

func (b *Backend) writeFile(path string, data v1.Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	var w io.WriteCloser
	switch {
	case !b.cfg.CompressOutput:
		return json.NewEncoder(f).Encode(data)
	case b.cfg.Compression == CompressionZstd:
		w, err = zstd.NewWriter(f)
		if err != nil {
			return fmt.Errorf("failed to create zstd writer: %w", err)
		}
	default:
		w = gzip.NewWriter(f)
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		w.Close()
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return w.Close()
}

// ReadExport decodes an export file written by this backend, detecting compression
// from the file extension.
func ReadExport(path string) (v1.Export, error) {
	var export v1.Export

	f, err := os.Open(path)
	if err != nil {
		return export, err
	}
	defer f.Close()

	var r io.Reader = f
	switch filepath.Ext(path) {
	case ".gz":
		gz, err := gzip.NewReader(f)
		if err != nil {
			return export, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
	case ".zst":
		zr, err := zstd.NewReader(f)
		if err != nil {
			return export, fmt.Errorf("failed to open zstd stream: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return export, fmt.Errorf("failed to decode export: %w", err)
	}
	return export, nil
}
