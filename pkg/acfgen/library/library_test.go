package library

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/acfgen/pkg/acfgen/appinfo"
	"github.com/jamesainslie/acfgen/pkg/acfgen/manifest"
)

func writeManifest(t *testing.T, dir string, app *appinfo.AppRecord) {
	t.Helper()
	w, err := manifest.New(dir)
	require.NoError(t, err)
	require.NoError(t, w.EnsureDir())
	_, err = w.Write(app.ID, manifest.Render(app, manifest.Options{}))
	require.NoError(t, err)
}

func TestScan_FindsWrittenManifests(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, &appinfo.AppRecord{
		ID: "601150", Name: "Devil May Cry 5", InstallDir: "Devil May Cry 5", BuildID: "14246914",
		Depots: []appinfo.DepotRecord{{ID: "601151", Manifest: "1", MaxSize: 1000}},
	})
	writeManifest(t, root, &appinfo.AppRecord{ID: "70", Name: "Half-Life", InstallDir: "Half-Life", BuildID: "1"})

	second := filepath.Join(root, "library2", "steamapps")
	writeManifest(t, second, &appinfo.AppRecord{ID: "1593500", Name: "God of War", InstallDir: "GodOfWar", BuildID: "2"})

	entries, err := Scan(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, appinfo.AppID("70"), entries[0].AppID)
	assert.Equal(t, appinfo.AppID("601150"), entries[1].AppID)
	assert.Equal(t, appinfo.AppID("1593500"), entries[2].AppID)

	dmc := entries[1]
	require.NoError(t, dmc.Err)
	assert.Equal(t, "Devil May Cry 5", dmc.Name)
	assert.Equal(t, "14246914", dmc.BuildID)
	assert.Equal(t, uint64(1000), dmc.SizeOnDisk)
	assert.Equal(t, filepath.Join(root, "appmanifest_601150.acf"), dmc.Path)
}

func TestScan_SkipsContentDirs(t *testing.T) {
	root := t.TempDir()
	common := filepath.Join(root, "common", "Game")
	require.NoError(t, os.MkdirAll(common, 0o755))
	writeManifest(t, common, &appinfo.AppRecord{ID: "5", Name: "n", InstallDir: "d", BuildID: "0"})

	entries, err := Scan(context.Background(), root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestScan_ReportsBrokenManifests(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "appmanifest_9.acf"), []byte("\"AppState\"\n{\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "appmanifest_10.acf"), []byte("\"Other\"\t\"x\"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))

	entries, err := Scan(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Error(t, entries[0].Err)
	assert.Error(t, entries[1].Err)
}

func TestScan_InvalidRoot(t *testing.T) {
	_, err := Scan(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = Scan(context.Background(), file)
	assert.Error(t, err)
}

func TestScan_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, &appinfo.AppRecord{ID: "5", Name: "n", InstallDir: "d", BuildID: "0"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Scan(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}
