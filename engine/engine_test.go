package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima/engine/assets"
	"github.com/spaghettifunk/anima/engine/config"
	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/metadata"
	"github.com/spaghettifunk/anima/engine/systems"
	"github.com/spaghettifunk/anima/engine/transport"
)

const testScene = `
objects:
  - kind: Material
    path: /Game/Materials/M_Prop.M_Prop
  - kind: MaterialInstance
    path: /Game/Materials/MI_Wood.MI_Wood
    parent: /Game/Materials/M_Prop.M_Prop
    textures:
      - name: Diffuse
        texture: /Game/Textures/T_Wood.T_Wood
    scalars:
      - name: Roughness
        value: 0.7
  - kind: Texture
    path: /Game/Textures/T_Wood.T_Wood
    srgb: true
    width: 4
    height: 4
    color: "#8b5a2b"
  - kind: StaticMesh
    path: /Game/Props/SM_Crate.SM_Crate
    lods:
      - sections: [/Game/Materials/MI_Wood.MI_Wood]
  - kind: StaticMesh
    path: /Game/Props/SM_Barrel.SM_Barrel
    lods:
      - sections: [/Game/Materials/MI_Wood.MI_Wood]
      - sections: [/Game/Materials/MI_Wood.MI_Wood]
  - kind: SkeletalMesh
    path: /Game/Props/SK_Chest.SK_Chest
    lods:
      - sections: [/Game/Materials/MI_Wood.MI_Wood, /Game/Materials/M_Prop.M_Prop]
selections:
  - asset: /Game/Props/SM_Crate.SM_Crate
    type: Prop
  - asset: /Game/Props/SM_Barrel.SM_Barrel
    type: Prop
  - asset: /Game/Props/SK_Chest.SK_Chest
    type: Prop
    name: Treasure Chest
`

func newTestEngine(t *testing.T, receiverAddr string) (*Engine, []systems.Selection) {
	t.Helper()
	dir := t.TempDir()

	archive, selections, err := LoadScene(writeScene(t))
	require.NoError(t, err)

	settings := config.Default()
	settings.ExportPath = filepath.Join(dir, "Exports")
	settings.ReadTimeout = config.Duration(500 * time.Millisecond)
	settingsPath := filepath.Join(dir, "porter.toml")
	require.NoError(t, settings.Save(settingsPath))

	level := core.WarnLevel
	e, err := New(&ApplicationConfig{
		Name:         "porter-test",
		SettingsPath: settingsPath,
		LogLevel:     &level,
		Receivers:    map[metadata.TargetType]string{metadata.TargetTypeBlender: receiverAddr},
	}, archive, nil)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	t.Cleanup(func() { require.NoError(t, e.Shutdown()) })
	return e, selections
}

func TestEngine_ThreeMeshesOverLoopback(t *testing.T) {
	receiver, err := transport.NewReceiver("127.0.0.1:0", 4)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go receiver.Serve(ctx)

	e, selections := newTestEngine(t, receiver.Addr().String())

	var started, completed []string
	e.hooks.FnOnBatchStarted = func(_ core.BatchID, target string, count int) {
		started = append(started, fmt.Sprintf("%s:%d", target, count))
	}
	e.hooks.FnOnBatchCompleted = func(_ core.BatchID, target string, count int) {
		completed = append(completed, fmt.Sprintf("%s:%d", target, count))
	}

	ok, err := e.Ping(metadata.TargetTypeBlender)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, <-e.ExportAsync(ctx, selections, metadata.TargetTypeBlender))
	require.Equal(t, []string{"Blender:3"}, started)
	require.Equal(t, []string{"Blender:3"}, completed)

	waitCtx, waitCancel := context.WithTimeout(ctx, 5*time.Second)
	defer waitCancel()
	payload, err := receiver.Next(waitCtx)
	require.NoError(t, err)

	var manifest metadata.ExportManifest
	require.NoError(t, json.Unmarshal(payload, &manifest))
	require.Equal(t, e.Settings().ExportPath, manifest.AssetsFolder)
	require.Len(t, manifest.Data, 3)
	require.Equal(t, "Treasure Chest", manifest.Data[2].Name)

	for _, record := range manifest.Data {
		require.FileExists(t, record.Path)
		require.Len(t, record.Meshes, 1)
		for _, m := range record.Meshes[0].Materials {
			for _, tex := range m.Textures {
				rel := strings.TrimPrefix(assets.SubstringBeforeLast(tex.Value, "."), "/") + ".png"
				require.FileExists(t, filepath.Join(manifest.AssetsFolder, filepath.FromSlash(rel)))
			}
		}
	}
	require.Equal(t, 2, manifest.Data[1].Meshes[0].NumLods)
	require.Len(t, manifest.Data[2].Meshes[0].Materials, 2)
	require.Equal(t, "M_Prop", manifest.Data[2].Meshes[0].Materials[1].ParentName)
}

func TestEngine_UnreachableReceiverIsReported(t *testing.T) {
	// a released port has no receiver behind it
	receiver, err := transport.NewReceiver("127.0.0.1:0", 1)
	require.NoError(t, err)
	addr := receiver.Addr().String()
	require.NoError(t, receiver.Close())

	e, selections := newTestEngine(t, addr)

	var titles []string
	e.hooks.FnOnFailure = func(title, message string) { titles = append(titles, title) }

	err = e.Export(context.Background(), selections, metadata.TargetTypeBlender)
	require.ErrorIs(t, err, core.ErrReceiverUnreachable)
	require.Equal(t, []string{"Failed to Connect to Blender Server"}, titles)

	_, statErr := os.Stat(filepath.Join(e.Settings().ExportPath, "Game"))
	require.True(t, os.IsNotExist(statErr))
}

func TestEngine_FolderExport(t *testing.T) {
	e, selections := newTestEngine(t, "127.0.0.1:1")

	require.NoError(t, e.Export(context.Background(), selections, metadata.TargetTypeFolder))

	root := e.Settings().ExportPath
	require.FileExists(t, filepath.Join(root, "Game", "Props", "SM_Crate.uemodel"))
	require.FileExists(t, filepath.Join(root, "Game", "Props", "SK_Chest.uemodel"))
	require.FileExists(t, filepath.Join(root, "Game", "Textures", "T_Wood.png"))
}

func TestEngine_NotInitialized(t *testing.T) {
	archive, _, err := LoadScene(writeScene(t))
	require.NoError(t, err)
	e, err := New(&ApplicationConfig{Name: "idle"}, archive, nil)
	require.NoError(t, err)

	_, err = e.Ping(metadata.TargetTypeBlender)
	require.Error(t, err)
	require.Error(t, <-e.ExportAsync(context.Background(), nil, metadata.TargetTypeFolder))
}

func writeScene(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scene.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testScene), 0o644))
	return path
}
