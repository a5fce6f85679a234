package config

import (
	"os"
	"sync"
)

var (
	containerOnce   sync.Once
	containerResult bool
)

// runningInContainer reports whether the process is inside a container.
// Docker creates /.dockerenv, podman creates /run/.containerenv. The check
// hits the filesystem, so the result is cached.
func runningInContainer() bool {
	containerOnce.Do(func() {
		for _, marker := range []string{"/.dockerenv", "/run/.containerenv"} {
			if _, err := os.Stat(marker); err == nil {
				containerResult = true
				return
			}
		}
	})
	return containerResult
}

// ResolveHostForDocker maps loopback hosts to host.docker.internal when
// running inside a container. A target database listening on the developer's
// machine is otherwise unreachable from the container's network namespace.
// Non-loopback hosts pass through unchanged.
func ResolveHostForDocker(host string) string {
	if !runningInContainer() {
		return host
	}
	if host == "localhost" || host == "127.0.0.1" || host == "::1" {
		return "host.docker.internal"
	}
	return host
}
