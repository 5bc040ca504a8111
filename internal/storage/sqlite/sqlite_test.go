package sqlitestorage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/OCAP2/geoanchor/internal/database"
	"github.com/OCAP2/geoanchor/internal/model"
	"github.com/OCAP2/geoanchor/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndSession_DumpsJournal(t *testing.T) {
	dir := t.TempDir()
	dump := filepath.Join(dir, "dump.db")
	b := New(Config{Path: filepath.Join(dir, "work.db"), DumpPath: dump}, nil)
	require.NoError(t, b.Init())
	defer b.Close()

	s := &core.Session{UUID: "1f0e0000-0000-4000-8000-000000000001", Name: "walk", StartTime: time.Now()}
	require.NoError(t, b.StartSession(s))
	require.NoError(t, b.RecordSample(&core.SampleRecord{Tick: 1, State: "active", Accepted: true}))
	require.NoError(t, b.EndSession())

	restored, err := database.OpenSqlite(dump)
	require.NoError(t, err)
	var count int64
	require.NoError(t, restored.Model(&model.DeviceSample{}).Where("session_id = ?", s.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDump_NoPathIsNoop(t *testing.T) {
	b := New(Config{Path: filepath.Join(t.TempDir(), "work.db")}, nil)
	require.NoError(t, b.Init())
	defer b.Close()

	assert.NoError(t, b.Dump())
}

func TestDumpLoop(t *testing.T) {
	dir := t.TempDir()
	dump := filepath.Join(dir, "dump.db")
	b := New(Config{
		Path:         filepath.Join(dir, "work.db"),
		DumpPath:     dump,
		DumpInterval: 20 * time.Millisecond,
	}, nil)
	require.NoError(t, b.Init())

	assert.Eventually(t, func() bool {
		_, err := os.Stat(dump)
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, b.Close())
}
