package render

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/geoanchor/pkg/core"
)

func TestLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/m/robot.glb", nil, 0o644))
	l := NewLogged(NewScene(fs, "/m"), logger)

	h, err := l.Place(core.Placement{AssetID: "r", Name: "Robot", AssetFile: "robot"})
	require.NoError(t, err)
	require.NoError(t, l.Move(h, core.Move{AssetID: "r"}))
	require.NoError(t, l.Remove(h))

	_, err = l.Place(core.Placement{AssetID: "g", Name: "Ghost", AssetFile: "ghost"})
	assert.Error(t, err)
	assert.Error(t, l.Remove(h))

	out := buf.String()
	assert.Contains(t, out, "msg=Place")
	assert.Contains(t, out, "msg=Move")
	assert.Contains(t, out, "msg=Remove")
	assert.Contains(t, out, `msg="Place failed"`)
	assert.Contains(t, out, `msg="Remove failed"`)
	assert.Contains(t, out, "asset=Robot")
}
