package knx

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostSystemInfo(t *testing.T) {

	assert := assert.New(t)

	info := NewHostSystemInfo()
	info.dockerFile = filepath.Join(t.TempDir(), ".dockerenv")
	t.Setenv("container", "")

	data, err := info.SystemInfo(context.Background())
	require.NoError(t, err)

	assert.Equal(runtime.GOOS, data["os_name"])
	assert.Equal(runtime.GOARCH, data["arch"])
	assert.Equal(runtime.Version(), data["go_version"])
	assert.Equal(false, data["docker"])
	assert.Equal("native", data["installation_type"])
	assert.NotEmpty(data["version"])
	assert.Contains(data, "hostname")
	assert.Contains(data, "timezone")
}

func TestHostSystemInfoDocker(t *testing.T) {

	info := NewHostSystemInfo()
	info.dockerFile = filepath.Join(t.TempDir(), ".dockerenv")
	require.NoError(t, os.WriteFile(info.dockerFile, nil, 0600))

	data, err := info.SystemInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, true, data["docker"])
	assert.Equal(t, "container", data["installation_type"])
}

func TestHostSystemInfoHostnameError(t *testing.T) {

	info := NewHostSystemInfo()
	info.hostname = func() (string, error) { return "", errors.New("uts namespace unavailable") }

	_, err := info.SystemInfo(context.Background())
	assert.Error(t, err)
}
