package output

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/acfgen/pkg/acfgen/generator"
	"github.com/jamesainslie/acfgen/pkg/acfgen/history"
	"github.com/jamesainslie/acfgen/pkg/acfgen/library"
	"github.com/jamesainslie/acfgen/pkg/acfgen/vdf"
)

func sampleTree() *vdf.Node {
	return vdf.NewMap().Set("7", vdf.NewMap().
		Set("common", vdf.NewMap().SetString("name", "Tool")).
		Set("config", vdf.NewMap().SetString("installdir", "tool")))
}

func TestRegistry_Available(t *testing.T) {
	assert.Equal(t, []string{"json", "vdf", "yaml"}, Available())

	_, err := Get("xml")
	assert.Error(t, err)
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	r.Register("vdf", func() Formatter { return &VDFFormatter{} })

	f, err := r.Get("vdf")
	require.NoError(t, err)
	assert.IsType(t, &VDFFormatter{}, f)
	assert.Equal(t, []string{"vdf"}, r.Available())
}

func TestFormatters(t *testing.T) {
	tests := []struct {
		format string
		want   []string
	}{
		{"vdf", []string{"\"7\"\n{\n", "\t\t\"name\"\t\t\"Tool\"\n"}},
		{"json", []string{`"7": {`, `"name": "Tool"`, `"installdir": "tool"`}},
		{"yaml", []string{`name: "Tool"`, `installdir: "tool"`}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			f, err := Get(tt.format)
			require.NoError(t, err)

			var buf bytes.Buffer
			require.NoError(t, f.Format(&buf, sampleTree()))
			for _, want := range tt.want {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestFormatters_KeepKeyOrder(t *testing.T) {
	for _, name := range Available() {
		t.Run(name, func(t *testing.T) {
			f, err := Get(name)
			require.NoError(t, err)

			var buf bytes.Buffer
			require.NoError(t, f.Format(&buf, sampleTree()))
			out := buf.String()
			assert.Less(t, strings.Index(out, "common"), strings.Index(out, "config"))
		})
	}
}

func TestRenderReport(t *testing.T) {
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	report := &generator.Report{
		RunID:    "run-1",
		Started:  started,
		Finished: started.Add(1500 * time.Millisecond),
		Results: []generator.Result{
			{AppID: "601150", Name: "Devil May Cry 5", BuildID: "14246914", SizeOnDisk: 35 << 30, Installed: 2, Shared: 1},
			{AppID: "8", Name: "Again", BuildID: "1", Unchanged: true},
			{AppID: "9", Err: errors.New("app not present in tool output")},
		},
		Skipped: []error{errors.New("block 3: unterminated string")},
	}

	out := RenderReport(report)
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "1.5s")
	assert.Contains(t, out, "Devil May Cry 5")
	assert.Contains(t, out, "35 GiB")
	assert.Contains(t, out, "2+1")
	assert.Contains(t, out, "unchanged")
	assert.Contains(t, out, "9: app not present in tool output")
	assert.Contains(t, out, "block 3: unterminated string")
	assert.Contains(t, out, "Written:")
}

func TestRenderLibrary(t *testing.T) {
	assert.Contains(t, RenderLibrary(nil), "No app manifests found")

	out := RenderLibrary([]library.Entry{
		{AppID: "70", Name: "Half-Life", InstallDir: "Half-Life", BuildID: "1", SizeOnDisk: 1 << 20},
		{AppID: "71", Path: "/lib/appmanifest_71.acf", Err: errors.New("parse failed")},
	})
	assert.Contains(t, out, "Half-Life")
	assert.Contains(t, out, "1.0 MiB")
	assert.Contains(t, out, "parse failed")
	assert.Contains(t, out, "Apps:")
}

func TestRenderHistory(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Contains(t, RenderHistory(nil, now), "No history entries found")

	out := RenderHistory([]history.Record{
		{AppID: "70", BuildID: "5", Digest: "0123456789abcdef", GeneratedAt: now.Add(-2 * time.Hour)},
	}, now)
	assert.Contains(t, out, "0123456789ab")
	assert.NotContains(t, out, "0123456789abc")
	assert.Contains(t, out, "2 hours ago")
}

func TestRenderRecord(t *testing.T) {
	out := RenderRecord(&history.Record{
		AppID:      "70",
		Path:       "/lib/appmanifest_70.acf",
		SizeOnDisk: 1500,
		Installed:  3,
		Shared:     1,
	})
	assert.Contains(t, out, "Manifest 70")
	assert.Contains(t, out, "/lib/appmanifest_70.acf")
	assert.Contains(t, out, "1,500 bytes")
	assert.Contains(t, out, "3 installed, 1 shared")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "250ms", formatDuration(250*time.Millisecond))
	assert.Equal(t, "2.0s", formatDuration(2*time.Second))
	assert.Equal(t, "1m 5s", formatDuration(65*time.Second))
	assert.Equal(t, "2h 1m", formatDuration(121*time.Minute))
}
