package manifest

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/acfgen/pkg/acfgen/appinfo"
	"github.com/jamesainslie/acfgen/pkg/acfgen/vdf"
)

func decode(t *testing.T, id appinfo.AppID, text string) *appinfo.AppRecord {
	t.Helper()
	root, err := vdf.Parse(text)
	require.NoError(t, err)
	app, err := appinfo.Decode(id, root, "")
	require.NoError(t, err)
	return app
}

const singleDepotApp = `"601150"
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
`

func TestRender_SingleInstalledDepot(t *testing.T) {
	app := decode(t, "601150", singleDepotApp)

	want := "\"AppState\"\n" +
		"{\n" +
		"\t\"appid\"\t\t\"601150\"\n" +
		"\t\"Universe\"\t\t\"1\"\n" +
		"\t\"LauncherPath\"\t\t\"\"\n" +
		"\t\"name\"\t\t\"Devil May Cry 5\"\n" +
		"\t\"StateFlags\"\t\t\"4\"\n" +
		"\t\"installdir\"\t\t\"Devil May Cry 5\"\n" +
		"\t\"LastUpdated\"\t\t\"0\"\n" +
		"\t\"SizeOnDisk\"\t\t\"1000\"\n" +
		"\t\"StagingSize\"\t\t\"0\"\n" +
		"\t\"buildid\"\t\t\"14246914\"\n" +
		"\t\"LastOwner\"\t\t\"2009\"\n" +
		"\t\"UpdateResult\"\t\t\"0\"\n" +
		"\t\"BytesToDownload\"\t\t\"0\"\n" +
		"\t\"BytesDownloaded\"\t\t\"0\"\n" +
		"\t\"BytesToStage\"\t\t\"0\"\n" +
		"\t\"BytesStaged\"\t\t\"0\"\n" +
		"\t\"TargetBuildID\"\t\t\"0\"\n" +
		"\t\"AutoUpdateBehavior\"\t\t\"0\"\n" +
		"\t\"AllowOtherDownloadsWhileRunning\"\t\t\"0\"\n" +
		"\t\"ScheduledAutoUpdate\"\t\t\"0\"\n" +
		"\t\"InstalledDepots\"\n" +
		"\t{\n" +
		"\t\t\"601151\"\n" +
		"\t\t{\n" +
		"\t\t\t\"manifest\"\t\t\"123\"\n" +
		"\t\t\t\"size\"\t\t\"1000\"\n" +
		"\t\t}\n" +
		"\t}\n" +
		"}\n"

	assert.Equal(t, want, Render(app, Options{}))

	rec := Build(app, Options{})
	assert.Empty(t, rec.Shared)
	assert.Equal(t, uint64(1000), rec.SizeOnDisk)
}

func TestBuild_SharedDepot(t *testing.T) {
	app := &appinfo.AppRecord{
		ID: "1000", Name: "Game", InstallDir: "game", BuildID: "1",
		Depots: []appinfo.DepotRecord{
			{ID: "228988", MaxSize: 5000, Manifest: "9", DepotFromApp: "400", SharedInstall: true},
			{ID: "1001", MaxSize: 700, Manifest: "10"},
		},
	}

	rec := Build(app, Options{})
	assert.Equal(t, []SharedDepot{{ID: "228988", FromApp: "400"}}, rec.Shared)
	require.Len(t, rec.Installed, 1)
	assert.Equal(t, "1001", rec.Installed[0].ID)
	assert.Equal(t, uint64(700), rec.SizeOnDisk, "shared depot must not set SizeOnDisk")

	shared, ok := rec.Node().Lookup("AppState", "SharedDepots")
	require.True(t, ok)
	v, _ := shared.GetString("228988")
	assert.Equal(t, "400", v)

	_, ok = rec.Node().Lookup("AppState", "InstalledDepots", "228988")
	assert.False(t, ok)
}

func TestBuild_SharedDepotWithoutManifest(t *testing.T) {
	app := &appinfo.AppRecord{
		ID: "1000", Name: "Game", InstallDir: "game", BuildID: "1",
		Depots: []appinfo.DepotRecord{
			{ID: "228988", MaxSize: 5000, DepotFromApp: "228980", SharedInstall: true},
			{ID: "1001", MaxSize: 700, Manifest: "10"},
		},
	}

	rec := Build(app, Options{})
	assert.Empty(t, rec.Shared)
	require.Len(t, rec.Installed, 1)
	assert.Equal(t, "1001", rec.Installed[0].ID)
	assert.Equal(t, uint64(700), rec.SizeOnDisk)

	state, _ := rec.Node().Get("AppState")
	_, ok := state.Get("SharedDepots")
	assert.False(t, ok)
}

func TestBuild_PlatformFilter(t *testing.T) {
	app := &appinfo.AppRecord{
		ID: "1000", Name: "Game", InstallDir: "game", BuildID: "1",
		Depots: []appinfo.DepotRecord{
			{ID: "1001", MaxSize: 10, Manifest: "1", OSList: []string{"linux"}},
			{ID: "1002", MaxSize: 20, Manifest: "2", OSList: []string{"linux"}, DepotFromApp: "7"},
		},
	}

	rec := Build(app, Options{})
	assert.Empty(t, rec.Installed)
	assert.Empty(t, rec.Shared)
	assert.Zero(t, rec.SizeOnDisk)

	state, _ := rec.Node().Get("AppState")
	_, ok := state.Get("InstalledDepots")
	assert.False(t, ok, "empty InstalledDepots must be omitted")
	_, ok = state.Get("SharedDepots")
	assert.False(t, ok, "empty SharedDepots must be omitted")

	rec = Build(app, Options{Platform: "linux"})
	require.Len(t, rec.Installed, 1)
	require.Len(t, rec.Shared, 1)
	assert.Equal(t, uint64(10), rec.SizeOnDisk)
}

func TestBuild_FirstInstalledDepotSetsSize(t *testing.T) {
	app := &appinfo.AppRecord{
		ID: "1000", Name: "Game", InstallDir: "game", BuildID: "1",
		Depots: []appinfo.DepotRecord{
			{ID: "1001", MaxSize: 99},
			{ID: "1002", MaxSize: 50, Manifest: "2", DepotFromApp: "3"},
			{ID: "1003", MaxSize: 300, Manifest: "4", DLCAppID: "2000"},
			{ID: "1004", MaxSize: 400, Manifest: "5"},
		},
	}

	rec := Build(app, Options{})
	assert.Equal(t, uint64(300), rec.SizeOnDisk)
	require.Len(t, rec.Installed, 2)
	assert.Equal(t, "2000", rec.Installed[0].DLCAppID)

	dlc, ok := rec.Node().LookupString("AppState", "InstalledDepots", "1003", "dlcappid")
	require.True(t, ok)
	assert.Equal(t, "2000", dlc)
	_, ok = rec.Node().Lookup("AppState", "InstalledDepots", "1004", "dlcappid")
	assert.False(t, ok)
}

func TestBuild_EveryEligibleDepotLandsOnce(t *testing.T) {
	app := &appinfo.AppRecord{ID: "1", Name: "n", InstallDir: "d", BuildID: "0"}
	for i, from := range []string{"", "5", "", "6", ""} {
		app.Depots = append(app.Depots, appinfo.DepotRecord{
			ID:           strconv.Itoa((i + 1) * 10),
			Manifest:     "m",
			DepotFromApp: from,
		})
	}
	app.Depots = append(app.Depots, appinfo.DepotRecord{ID: "99"})

	rec := Build(app, Options{})
	seen := map[string]int{}
	for _, d := range rec.Installed {
		seen[d.ID]++
	}
	for _, d := range rec.Shared {
		seen[d.ID]++
	}

	for _, d := range app.Depots {
		if d.Unused() {
			assert.Zero(t, seen[d.ID], "unused depot %s emitted", d.ID)
			continue
		}
		assert.Equal(t, 1, seen[d.ID], "depot %s", d.ID)
	}
}

func TestRender_UserConfigLanguage(t *testing.T) {
	app := &appinfo.AppRecord{
		ID: "1", Name: "n", InstallDir: "d", BuildID: "0",
		BaseLanguages: []string{"english", "french"},
	}

	lang, ok := Build(app, Options{}).Node().LookupString("AppState", "UserConfig", "language")
	require.True(t, ok)
	assert.Equal(t, "english", lang)

	app.BaseLanguages = nil
	_, ok = Build(app, Options{}).Node().Lookup("AppState", "UserConfig")
	assert.False(t, ok)
}

func TestRender_Deterministic(t *testing.T) {
	root, err := vdf.Parse(singleDepotApp)
	require.NoError(t, err)

	first, err := appinfo.Decode("601150", root, "")
	require.NoError(t, err)
	second, err := appinfo.Decode("601150", root, "")
	require.NoError(t, err)

	assert.Equal(t, Render(first, Options{}), Render(second, Options{}))
}

func TestRender_ParsesBack(t *testing.T) {
	app := decode(t, "601150", singleDepotApp)
	text := Render(app, Options{Indent: "    "})

	node, err := vdf.Parse(text)
	require.NoError(t, err)
	assert.True(t, node.Equal(Build(app, Options{}).Node()))
}
