package generator

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ulikunitz/xz"

	"github.com/jamesainslie/acfgen/pkg/acfgen/appinfo"
)

// writeDiagnostic saves raw as <dir>/<id>.txt, or <id>.txt.xz when compress
// is set, and returns the path.
func writeDiagnostic(dir string, id appinfo.AppID, raw string, compress bool) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating diagnostics directory: %w", err)
	}

	path := filepath.Join(dir, id.String()+".txt")
	if compress {
		path += ".xz"
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating diagnostic file: %w", err)
	}

	var w io.WriteCloser = f
	if compress {
		xw, err := xz.NewWriter(f)
		if err != nil {
			_ = f.Close()
			return "", fmt.Errorf("creating xz writer: %w", err)
		}
		w = xw
	}

	if _, err := io.WriteString(w, raw); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("writing diagnostic file: %w", err)
	}
	if compress {
		if err := w.Close(); err != nil {
			_ = f.Close()
			return "", fmt.Errorf("finishing xz stream: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing diagnostic file: %w", err)
	}
	return path, nil
}

// ReadDiagnostic returns the contents of a capture written by a run.
func ReadDiagnostic(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var r io.Reader = f
	if filepath.Ext(path) == ".xz" {
		xr, err := xz.NewReader(f)
		if err != nil {
			return "", fmt.Errorf("reading xz stream: %w", err)
		}
		r = xr
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
