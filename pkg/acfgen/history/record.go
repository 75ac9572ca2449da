// Package history keeps a badger-backed record of generated manifests.
package history

import (
	"bytes"
	"encoding/gob"
	"time"

	"github.com/jamesainslie/acfgen/pkg/acfgen/appinfo"
)

// RecordVersion is incremented when the record format changes.
const RecordVersion = 1

// KeySeparator separates the namespace from the app id in keys.
const KeySeparator = '\x00'

const manifestNamespace = "manifest"

// Record describes the last manifest generated for an app.
type Record struct {
	Version     int
	AppID       appinfo.AppID
	RunID       string
	Path        string
	Digest      string
	BuildID     string
	SizeOnDisk  uint64
	Installed   int
	Shared      int
	GeneratedAt time.Time
}

// Encode serializes the record using gob.
func (r *Record) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode deserializes a gob encoded record.
func (r *Record) Decode(data []byte) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(r)
}

// MakeKey returns manifest\x00<id>.
func MakeKey(id appinfo.AppID) []byte {
	return append(keyPrefix(), id.String()...)
}

// ParseKey returns the app id stored in key.
func ParseKey(key []byte) (appinfo.AppID, bool) {
	prefix := keyPrefix()
	if !bytes.HasPrefix(key, prefix) {
		return "", false
	}
	return appinfo.AppID(key[len(prefix):]), true
}

func keyPrefix() []byte {
	return []byte(manifestNamespace + string(KeySeparator))
}
