// Copyright 2025 Certen Protocol
//
// Package deploy implements the Deployment Driver: it writes a compose
// manifest and its mount files to a per-app working directory, then
// invokes the container engine as a subprocess and reports its terminal
// status. Grounded on the teacher's exec.CommandContext CLI-invocation
// pattern in pkg/proof/governance_adapter.go, generalized from a
// single-shot cmd.Output() call to concurrent streamed stdout/stderr
// capture.
package deploy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/trustedstack/tapp-core/pkg/apperrors"
)

const defaultMountMode = 0644

// MountFile is a named byte blob with a target POSIX mode, written beneath
// the app's working directory.
type MountFile struct {
	SourcePath string
	Content    []byte
	Mode       string // octal string, e.g. "0644"; empty defaults to 0644
}

// Driver writes deployment bundles beneath Root and drives the container
// engine as a subprocess.
type Driver struct {
	Root   string
	logger *log.Logger
}

// NewDriver returns a Driver rooted at root. An empty root defaults to
// /var/lib/tapp, the platform's documented default.
func NewDriver(root string, logger *log.Logger) *Driver {
	if root == "" {
		root = "/var/lib/tapp"
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[Deploy] ", log.LstdFlags)
	}
	return &Driver{Root: root, logger: logger}
}

// AppDir returns the per-app working directory.
func (d *Driver) AppDir(appID string) string {
	return filepath.Join(d.Root, "apps", appID)
}

// SanitizeMountPath trims a leading "./" or "/" and replaces remaining "/"
// with "_", so every mount file lands as a single flat filename inside the
// app directory regardless of how deeply nested its source_path was.
func SanitizeMountPath(sourcePath string) string {
	p := strings.TrimPrefix(sourcePath, "./")
	p = strings.TrimPrefix(p, "/")
	return strings.ReplaceAll(p, "/", "_")
}

func parseMode(mode string) os.FileMode {
	if mode == "" {
		return defaultMountMode
	}
	parsed, err := strconv.ParseUint(mode, 8, 32)
	if err != nil {
		return defaultMountMode
	}
	return os.FileMode(parsed)
}

// Write lays out the compose file and mount files beneath the app
// directory, creating it if missing. The raw compose content is written
// verbatim, not its canonicalized form.
func (d *Driver) Write(appID, composeContent string, mountFiles []MountFile) error {
	appDir := d.AppDir(appID)
	if err := os.MkdirAll(appDir, 0755); err != nil {
		return apperrors.Wrap(apperrors.Container, "deploy.Write", err)
	}

	composePath := filepath.Join(appDir, "docker-compose.yml")
	if err := os.WriteFile(composePath, []byte(composeContent), 0644); err != nil {
		return apperrors.Wrap(apperrors.Container, "deploy.Write", err)
	}

	for _, mf := range mountFiles {
		name := SanitizeMountPath(mf.SourcePath)
		target := filepath.Join(appDir, name)
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return apperrors.Wrap(apperrors.Container, "deploy.Write", err)
		}
		if err := os.WriteFile(target, mf.Content, parseMode(mf.Mode)); err != nil {
			return apperrors.Wrap(apperrors.Container, "deploy.Write", err)
		}
	}
	return nil
}

// Up runs "docker compose -f docker-compose.yml up -d" in the app
// directory, streaming stdout and stderr through the logger with the
// app_id tag and accumulating both for the final error report on failure.
func (d *Driver) Up(ctx context.Context, appID string) error {
	return d.run(ctx, appID, []string{"compose", "-f", "docker-compose.yml", "up", "-d"}, "docker_compose_up")
}

// Stop runs "docker compose down" in the app directory. Not-deployed (no
// working directory) is a Validation failure on app_id, not a container
// failure.
func (d *Driver) Stop(ctx context.Context, appID string) error {
	if _, err := os.Stat(d.AppDir(appID)); os.IsNotExist(err) {
		return apperrors.InvalidParameter("deploy.Stop", "app_id", "not deployed")
	}
	return d.run(ctx, appID, []string{"compose", "down"}, "docker_compose_down")
}

// Logs runs "docker compose logs --tail <lines> [<service>]" in the app
// directory and returns the combined output. lines <= 0 defaults to 100.
func (d *Driver) Logs(ctx context.Context, appID string, lines int, service string) (string, error) {
	if lines <= 0 {
		lines = 100
	}
	args := []string{"compose", "logs", "--tail", strconv.Itoa(lines)}
	if service != "" {
		args = append(args, service)
	}

	cmd := exec.CommandContext(ctx, "docker", args...)
	cmd.Dir = d.AppDir(appID)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", apperrors.ContainerOperationFailed("docker_compose_logs", string(out)+err.Error())
	}
	return string(out), nil
}

func (d *Driver) run(ctx context.Context, appID string, args []string, operation string) error {
	cmd := exec.CommandContext(ctx, "docker", args...)
	cmd.Dir = d.AppDir(appID)

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return apperrors.Wrap(apperrors.Container, "deploy.run", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return apperrors.Wrap(apperrors.Container, "deploy.run", err)
	}

	if err := cmd.Start(); err != nil {
		return apperrors.ContainerOperationFailed(operation, err.Error())
	}

	var stdout, stderr bytes.Buffer
	var wg sync.WaitGroup
	wg.Add(2)
	go d.streamLines(&wg, appID, "stdout", stdoutPipe, &stdout)
	go d.streamLines(&wg, appID, "stderr", stderrPipe, &stderr)
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		reason := fmt.Sprintf("stderr: %s\nstdout: %s\nexit: %v", stderr.String(), stdout.String(), err)
		return apperrors.ContainerOperationFailed(operation, reason)
	}
	return nil
}

func (d *Driver) streamLines(wg *sync.WaitGroup, appID, streamName string, r io.Reader, acc *bytes.Buffer) {
	defer wg.Done()
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			acc.Write(chunk)
			for _, line := range strings.Split(strings.TrimRight(string(chunk), "\n"), "\n") {
				if line != "" {
					d.logger.Printf("[%s] [%s] %s", appID, streamName, line)
				}
			}
		}
		if err != nil {
			return
		}
	}
}
