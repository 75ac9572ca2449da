package manifest

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/jamesainslie/acfgen/pkg/acfgen/appinfo"
	"github.com/jamesainslie/acfgen/pkg/acfgen/vdf"
)

const (
	filePrefix = "appmanifest_"
	fileSuffix = ".acf"
)

// ErrWriteFailed is matched by every *WriteError.
var ErrWriteFailed = errors.New("manifest write failed")

// WriteError reports a manifest that could not be persisted.
type WriteError struct {
	AppID appinfo.AppID
	Path  string
	Op    string
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing manifest for %s (%s %s): %v", e.AppID, e.Op, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Is reports whether target is ErrWriteFailed.
func (e *WriteError) Is(target error) bool { return target == ErrWriteFailed }

// WriteResult describes a persisted manifest.
type WriteResult struct {
	Path string
	// Digest is the hex BLAKE3-256 of the written bytes.
	Digest string
	// Unchanged is set when the previous file had identical content.
	Unchanged bool
}

// Writer persists manifests into a steamapps directory.
type Writer struct {
	dir string
}

// New returns a Writer for dir. The directory is not created until EnsureDir
// is called.
func New(dir string) (*Writer, error) {
	if dir == "" {
		return nil, errors.New("steamapps directory cannot be empty")
	}
	return &Writer{dir: dir}, nil
}

// Dir returns the steamapps directory.
func (w *Writer) Dir() string { return w.dir }

// EnsureDir creates the steamapps directory if it does not exist.
func (w *Writer) EnsureDir() error {
	return os.MkdirAll(w.dir, 0o755)
}

// Path returns the manifest path for id.
func (w *Writer) Path(id appinfo.AppID) string {
	return filepath.Join(w.dir, FileName(id))
}

// FileName returns appmanifest_<id>.acf.
func FileName(id appinfo.AppID) string {
	return filePrefix + id.String() + fileSuffix
}

// ParseFileName returns the app id encoded in a manifest file name.
func ParseFileName(name string) (appinfo.AppID, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return "", false
	}
	id, err := appinfo.ParseAppID(strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix))
	if err != nil {
		return "", false
	}
	return id, true
}

// Write replaces the manifest for id with text. The file is written to a
// temporary sibling and renamed into place, so readers never observe a
// partial manifest. Writes for distinct ids may run concurrently.
func (w *Writer) Write(id appinfo.AppID, text string) (*WriteResult, error) {
	path := w.Path(id)
	data := []byte(text)
	digest := Digest(data)

	unchanged := false
	if prev, err := os.ReadFile(path); err == nil {
		unchanged = Digest(prev) == digest
	}

	tmp, err := os.CreateTemp(w.dir, "."+FileName(id)+".*.tmp")
	if err != nil {
		return nil, &WriteError{AppID: id, Path: path, Op: "create", Err: err}
	}
	tmpPath := tmp.Name()

	fail := func(op string, err error) (*WriteResult, error) {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return nil, &WriteError{AppID: id, Path: path, Op: op, Err: err}
	}

	if _, err := tmp.Write(data); err != nil {
		return fail("write", err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("sync", err)
	}
	if err := tmp.Close(); err != nil {
		return fail("close", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fail("chmod", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return nil, &WriteError{AppID: id, Path: path, Op: "rename", Err: err}
	}

	return &WriteResult{Path: path, Digest: digest, Unchanged: unchanged}, nil
}

// Read parses the existing manifest for id.
func (w *Writer) Read(id appinfo.AppID) (*vdf.Node, error) {
	data, err := os.ReadFile(w.Path(id))
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	node, err := vdf.Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", FileName(id), err)
	}
	return node, nil
}

// List returns the ids of manifests present in the directory, sorted
// numerically. A missing directory yields an empty list.
func (w *Writer) List() ([]appinfo.AppID, error) {
	files, err := os.ReadDir(w.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []appinfo.AppID{}, nil
		}
		return nil, fmt.Errorf("failed to read steamapps directory: %w", err)
	}

	ids := []appinfo.AppID{}
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		if id, ok := ParseFileName(f.Name()); ok {
			ids = append(ids, id)
		}
	}

	appinfo.SortIDs(ids)
	return ids, nil
}

// Digest returns the hex BLAKE3-256 of data.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
