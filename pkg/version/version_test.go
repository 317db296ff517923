package version

import (
	"encoding/json"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	info := Get()
	assert.Equal(t, version, info.Version)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
}

func TestInfo_String(t *testing.T) {
	assert.Equal(t, "v1.2.3", Info{Version: "v1.2.3"}.String())
	assert.Equal(t, "v1.2.3-dirty", Info{Version: "v1.2.3", Dirty: true}.String())
}

func TestInfo_Text(t *testing.T) {
	text := Info{Version: "v1.2.3", Commit: "abc123", GoVersion: "go1.24.0", Platform: "linux/amd64"}.Text()
	assert.Contains(t, text, "version: v1.2.3")
	assert.Contains(t, text, "commit: abc123")
	assert.NotContains(t, text, "built:")
}

func TestInfo_JSON(t *testing.T) {
	out, err := Info{Version: "v1.2.3", GoVersion: "go1.24.0"}.JSON()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "v1.2.3", decoded["version"])
	assert.NotContains(t, decoded, "commit")
}
