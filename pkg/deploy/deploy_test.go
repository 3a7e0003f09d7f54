package deploy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeMountPath(t *testing.T) {
	assert.Equal(t, "nginx.conf", SanitizeMountPath("./nginx.conf"))
	assert.Equal(t, "nginx.conf", SanitizeMountPath("/nginx.conf"))
	assert.Equal(t, "etc_nginx_nginx.conf", SanitizeMountPath("./etc/nginx/nginx.conf"))
	assert.Equal(t, "a_b_c", SanitizeMountPath("a/b/c"))
}

func TestWriteCreatesComposeAndMountFiles(t *testing.T) {
	root := t.TempDir()
	d := NewDriver(root, nil)

	err := d.Write("app1", "services:\n  web:\n    image: nginx\n", []MountFile{
		{SourcePath: "./conf/nginx.conf", Content: []byte("server {}"), Mode: ""},
	})
	require.NoError(t, err)

	composePath := filepath.Join(d.AppDir("app1"), "docker-compose.yml")
	data, err := os.ReadFile(composePath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "image: nginx")

	mountPath := filepath.Join(d.AppDir("app1"), "conf_nginx.conf")
	mountData, err := os.ReadFile(mountPath)
	require.NoError(t, err)
	assert.Equal(t, "server {}", string(mountData))

	info, err := os.Stat(mountPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(defaultMountMode), info.Mode().Perm())
}

func TestWriteAppliesExplicitMode(t *testing.T) {
	root := t.TempDir()
	d := NewDriver(root, nil)
	err := d.Write("app1", "services: {}", []MountFile{
		{SourcePath: "secret.key", Content: []byte("x"), Mode: "0600"},
	})
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(d.AppDir("app1"), "secret.key"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestParseModeFallsBackOnBadOctal(t *testing.T) {
	assert.Equal(t, os.FileMode(defaultMountMode), parseMode("not-octal"))
	assert.Equal(t, os.FileMode(defaultMountMode), parseMode(""))
}

func TestStopRejectsUnknownApp(t *testing.T) {
	root := t.TempDir()
	d := NewDriver(root, nil)
	err := d.Stop(context.Background(), "never-deployed")
	require.Error(t, err)
}

func TestAppDirLayout(t *testing.T) {
	d := NewDriver("/var/lib/tapp", nil)
	assert.Equal(t, "/var/lib/tapp/apps/myapp", d.AppDir("myapp"))
}
