package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dagger/lilly/internal/dagger"
)

// Build and return directory of lilly binaries
func (l *Lilly) Build(
	ctx context.Context,

	// Linker flags for go build
	// +optional
	// +default="-s -w"
	ldflags string,
) *dagger.Directory {
	gooses := []string{"linux", "darwin"}
	goarches := []string{"amd64", "arm64"}

	outputs := dag.Directory()

	// mattn/go-sqlite3 needs cgo, so cross builds go through zig cc.
	golang := l.goContainer().
		WithExec([]string{"sh", "-c", "curl -sSL https://ziglang.org/download/0.13.0/zig-linux-x86_64-0.13.0.tar.xz | tar -xJ -C /usr/local"}).
		WithEnvVariable("PATH", "/usr/local/zig-linux-x86_64-0.13.0:$PATH", dagger.ContainerWithEnvVariableOpts{Expand: true})

	for _, goos := range gooses {
		for _, goarch := range goarches {
			path := fmt.Sprintf("%s/%s/", goos, goarch)

			build := golang.
				WithEnvVariable("GOOS", goos).
				WithEnvVariable("GOARCH", goarch).
				WithEnvVariable("CC", fmt.Sprintf("zig cc -target %s", zigTarget(goos, goarch))).
				WithExec([]string{"go", "build", "-ldflags", ldflags, "-o", path + "lilly", "./cli/lilly"})

			outputs = outputs.WithDirectory(path, build.Directory(path))
		}
	}

	return outputs
}

// BuildRelease compiles versioned release binaries with embedded version info
func (l *Lilly) BuildRelease(
	ctx context.Context,

	// Version string of build
	version string,

	// Git commit SHA of build
	commit string,
) *dagger.Directory {
	buildtime := time.Now()

	ldflags := []string{
		"-s",
		"-w",
		fmt.Sprintf("-X 'github.com/lillylive/lilly/pkg/utils.Version=%s'", version),
		fmt.Sprintf("-X 'github.com/lillylive/lilly/pkg/utils.Sha=%s'", commit),
		fmt.Sprintf("-X 'github.com/lillylive/lilly/pkg/utils.Buildtime=%s'", buildtime),
	}

	return l.Build(ctx, strings.Join(ldflags, " "))
}

func zigTarget(goos, goarch string) string {
	arch := "x86_64"
	if goarch == "arm64" {
		arch = "aarch64"
	}
	if goos == "darwin" {
		return arch + "-macos"
	}
	return arch + "-linux-gnu"
}
