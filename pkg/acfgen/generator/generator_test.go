package generator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/acfgen/pkg/acfgen/appinfo"
	"github.com/jamesainslie/acfgen/pkg/acfgen/extract"
	"github.com/jamesainslie/acfgen/pkg/acfgen/history"
	"github.com/jamesainslie/acfgen/pkg/acfgen/manifest"
	"github.com/jamesainslie/acfgen/pkg/acfgen/steamcmd"
)

const sessionOutput = `Connecting anonymously to Steam Public...OK
"601150"
{
	"common"
	{
		"name"		"Devil May Cry 5"
	}
	"config"
	{
		"installdir"		"Devil May Cry 5"
	}
	"depots"
	{
		"228988"
		{
			"depotfromapp"		"228980"
			"sharedinstall"		"1"
			"manifests"
			{
				"public"		"1"
			}
		}
		"601151"
		{
			"maxsize"		"1000"
			"manifests"
			{
				"public"		"123"
			}
		}
		"branches"
		{
			"public"
			{
				"buildid"		"14246914"
			}
		}
	}
}
"1593500"
{
	"common"
	{
		"name"		"God of War"
	}
	"config"
	{
		"installdir"		"GodOfWar"
	}
}
"70"
{
	"common"
	{
		"name"		"Half-Life"
	}
}
`

type fakeFetcher struct {
	raw   string
	err   error
	calls [][]appinfo.AppID
}

func (f *fakeFetcher) FetchApps(_ context.Context, ids []appinfo.AppID) (*steamcmd.FetchResult, error) {
	f.calls = append(f.calls, ids)
	if f.err != nil {
		return nil, f.err
	}
	apps, skipped, err := extract.Extract(f.raw)
	if err != nil {
		return nil, err
	}
	return &steamcmd.FetchResult{Apps: apps, Raw: f.raw, Skipped: skipped}, nil
}

type memRecorder struct {
	mu      sync.Mutex
	records map[appinfo.AppID]*history.Record
}

func (m *memRecorder) Put(rec *history.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.records == nil {
		m.records = map[appinfo.AppID]*history.Record{}
	}
	m.records[rec.AppID] = rec
	return nil
}

func newWriter(t *testing.T) *manifest.Writer {
	t.Helper()
	w, err := manifest.New(filepath.Join(t.TempDir(), "steamapps"))
	require.NoError(t, err)
	return w
}

func TestRun_WritesManifests(t *testing.T) {
	fetcher := &fakeFetcher{raw: sessionOutput}
	writer := newWriter(t)
	rec := &memRecorder{}

	report, err := New(fetcher, writer, Options{History: rec}).Run(context.Background(), []string{"601150", "1593500", "601150"})
	require.NoError(t, err)

	require.Len(t, fetcher.calls, 1, "one session per run")
	assert.Equal(t, []appinfo.AppID{"601150", "1593500"}, fetcher.calls[0], "ids are deduplicated")

	require.Len(t, report.Results, 2)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 2, report.Succeeded())
	assert.NoError(t, report.Err())

	dmc := report.Results[0]
	assert.Equal(t, "Devil May Cry 5", dmc.Name)
	assert.Equal(t, uint64(1000), dmc.SizeOnDisk)
	assert.Equal(t, 1, dmc.Installed)
	assert.Equal(t, 1, dmc.Shared)
	assert.Equal(t, writer.Path("601150"), dmc.Path)

	node, err := writer.Read("601150")
	require.NoError(t, err)
	from, ok := node.LookupString("AppState", "SharedDepots", "228988")
	require.True(t, ok)
	assert.Equal(t, "228980", from)

	require.Len(t, rec.records, 2)
	assert.Equal(t, report.RunID, rec.records["601150"].RunID)
	assert.Equal(t, dmc.Digest, rec.records["601150"].Digest)
	assert.Equal(t, "0", rec.records["1593500"].BuildID)
}

func TestRun_InvalidIDAbortsBeforeFetch(t *testing.T) {
	fetcher := &fakeFetcher{raw: sessionOutput}
	writer := newWriter(t)

	_, err := New(fetcher, writer, Options{}).Run(context.Background(), []string{"601150", "abc"})
	assert.ErrorIs(t, err, appinfo.ErrInvalidAppID)
	assert.Empty(t, fetcher.calls)

	_, statErr := os.Stat(writer.Dir())
	assert.True(t, os.IsNotExist(statErr), "nothing is written for a rejected batch")
}

func TestRun_FetchFailureIsFatal(t *testing.T) {
	fetcher := &fakeFetcher{raw: "Loading Steam API...OK\n"}

	_, err := New(fetcher, newWriter(t), Options{}).Run(context.Background(), []string{"1"})
	assert.ErrorIs(t, err, extract.ErrUnparseableOutput)

	fetcher = &fakeFetcher{err: &steamcmd.ProcessError{Pass: "fetch", Command: []string{"steamcmd"}, ExitCode: 1}}
	_, err = New(fetcher, newWriter(t), Options{}).Run(context.Background(), []string{"1"})
	assert.ErrorIs(t, err, steamcmd.ErrProcessFailed)
}

func TestRun_PerAppFailuresAreIsolated(t *testing.T) {
	fetcher := &fakeFetcher{raw: sessionOutput}
	writer := newWriter(t)
	require.NoError(t, writer.EnsureDir())
	require.NoError(t, os.Mkdir(writer.Path("1593500"), 0o755))

	report, err := New(fetcher, writer, Options{Workers: 1}).Run(context.Background(), []string{"1593500", "70", "404", "601150"})
	require.NoError(t, err)
	require.Len(t, report.Results, 4)

	assert.ErrorIs(t, report.Results[0].Err, manifest.ErrWriteFailed)
	assert.ErrorIs(t, report.Results[1].Err, appinfo.ErrIncompleteApp)
	assert.ErrorIs(t, report.Results[2].Err, appinfo.ErrAppNotFound)
	assert.NoError(t, report.Results[3].Err)

	assert.Equal(t, 1, report.Succeeded())
	assert.ErrorIs(t, report.Err(), manifest.ErrWriteFailed)

	_, err = os.Stat(writer.Path("601150"))
	assert.NoError(t, err)
}

func TestRun_SecondRunIsUnchanged(t *testing.T) {
	fetcher := &fakeFetcher{raw: sessionOutput}
	writer := newWriter(t)
	gen := New(fetcher, writer, Options{})

	first, err := gen.Run(context.Background(), []string{"601150"})
	require.NoError(t, err)
	assert.False(t, first.Results[0].Unchanged)

	second, err := gen.Run(context.Background(), []string{"601150"})
	require.NoError(t, err)
	assert.True(t, second.Results[0].Unchanged)
	assert.Equal(t, first.Results[0].Digest, second.Results[0].Digest)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestRun_Diagnostics(t *testing.T) {
	for _, compress := range []bool{false, true} {
		name := "plain"
		if compress {
			name = "xz"
		}
		t.Run(name, func(t *testing.T) {
			diag := filepath.Join(t.TempDir(), "diag")
			fetcher := &fakeFetcher{raw: sessionOutput}

			report, err := New(fetcher, newWriter(t), Options{DiagnosticsDir: diag, Compress: compress}).
				Run(context.Background(), []string{"601150"})
			require.NoError(t, err)

			path := report.Results[0].Diagnostic
			want := filepath.Join(diag, "601150.txt")
			if compress {
				want += ".xz"
			}
			assert.Equal(t, want, path)

			got, err := ReadDiagnostic(path)
			require.NoError(t, err)
			assert.Equal(t, sessionOutput, got)
		})
	}
}

func TestRun_WithHistoryStore(t *testing.T) {
	store, err := history.Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	_, err = New(&fakeFetcher{raw: sessionOutput}, newWriter(t), Options{History: store}).
		Run(context.Background(), []string{"601150"})
	require.NoError(t, err)

	rec, err := store.Get("601150")
	require.NoError(t, err)
	assert.Equal(t, "14246914", rec.BuildID)
	assert.Equal(t, 1, rec.Installed)
}

func TestPreview(t *testing.T) {
	apps, _, err := extract.Extract(sessionOutput)
	require.NoError(t, err)

	text, err := Preview("601150", apps, Options{Platform: "windows"})
	require.NoError(t, err)
	assert.Contains(t, text, "\"SizeOnDisk\"\t\t\"1000\"")

	_, err = Preview("70", apps, Options{})
	assert.True(t, errors.Is(err, appinfo.ErrIncompleteApp))
}
