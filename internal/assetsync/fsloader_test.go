package assetsync

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func writeAssetFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func recvEvent(t *testing.T, loader *FSLoader) Event {
	t.Helper()
	select {
	case ev, ok := <-loader.Events():
		require.True(t, ok, "loader closed before emitting an event")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for asset loader event")
		return Event{}
	}
}

func TestFSLoaderEmitsInitOnStartup(t *testing.T) {
	dir := t.TempDir()
	writeAssetFile(t, dir, "items.json", `{"torch": {"MaxStack": 64, "Flags": 1}}`)

	loader, err := NewFSLoader(dir, logrus.New())
	require.NoError(t, err)
	defer loader.Close()

	ev := recvEvent(t, loader)
	require.Equal(t, EventInit, ev.Kind)
	require.Equal(t, "items", ev.AssetType)
	require.ElementsMatch(t, []string{"torch"}, ev.IDs)
}

func TestFSLoaderEmitsUpdateOnWrite(t *testing.T) {
	dir := t.TempDir()
	writeAssetFile(t, dir, "items.json", `{"torch": {"MaxStack": 64}}`)

	loader, err := NewFSLoader(dir, logrus.New())
	require.NoError(t, err)
	defer loader.Close()

	recvEvent(t, loader) // initial EventInit

	writeAssetFile(t, dir, "items.json", `{"torch": {"MaxStack": 32}, "stone": {"MaxStack": 64}}`)

	ev := recvEvent(t, loader)
	require.Equal(t, EventAddOrUpdate, ev.Kind)
	require.ElementsMatch(t, []string{"torch", "stone"}, ev.IDs)
}
