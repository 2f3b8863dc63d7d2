package knx

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"runtime"
	"strings"
	"time"

	"github.com/carlmjohnson/versioninfo"
)

const dockerEnvFile = "/.dockerenv"

// HostSystemInfo describes the environment the bridge runs in.
type HostSystemInfo struct {
	started    time.Time
	hostname   func() (string, error)
	dockerFile string
}

func NewHostSystemInfo() *HostSystemInfo {
	return &HostSystemInfo{
		started:    time.Now(),
		hostname:   os.Hostname,
		dockerFile: dockerEnvFile,
	}
}

func (s *HostSystemInfo) SystemInfo(ctx context.Context) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hostname, err := s.hostname()
	if err != nil {
		return nil, fmt.Errorf("system info: hostname: %w", err)
	}
	docker := s.isDocker()
	installationType := "native"
	if docker {
		installationType = "container"
	}
	username := ""
	if u, err := user.Current(); err == nil {
		username = u.Username
	}
	version := versioninfo.Short()
	return map[string]any{
		"installation_type": installationType,
		"version":           version,
		"revision":          versioninfo.Revision,
		"dev":               strings.Contains(version, "devel") || versioninfo.DirtyBuild,
		"docker":            docker,
		"user":              username,
		"go_version":        runtime.Version(),
		"os_name":           runtime.GOOS,
		"arch":              runtime.GOARCH,
		"hostname":          hostname,
		"timezone":          time.Local.String(),
		"uptime_seconds":    int64(time.Since(s.started).Seconds()),
	}, nil
}

func (s *HostSystemInfo) isDocker() bool {
	if _, err := os.Stat(s.dockerFile); err == nil {
		return true
	}
	return os.Getenv("container") != ""
}
