// Package toolchain drives the external Swift WASM build that produces the
// database engine binary. The engine itself is opaque; this package only
// invokes the build and stages its output.
package toolchain

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/py-swift/wheelsite/internal/config"
	werrors "github.com/py-swift/wheelsite/internal/errors"
	"github.com/py-swift/wheelsite/internal/wheels"
)

// Builder runs the Swift WASM toolchain for one project.
type Builder struct {
	cfg         config.ToolchainConfig
	projectRoot string

	// runCommand is injectable for tests; the default executes the command.
	runCommand func(cmd *exec.Cmd) error
}

// NewBuilder creates a toolchain builder rooted at projectRoot.
func NewBuilder(cfg config.ToolchainConfig, projectRoot string) *Builder {
	return &Builder{
		cfg:         cfg,
		projectRoot: filepath.Clean(projectRoot),
		runCommand:  func(cmd *exec.Cmd) error { return cmd.Run() },
	}
}

// ArtifactPath is where the Swift package manager leaves the built binary.
func (b *Builder) ArtifactPath() string {
	return filepath.Join(b.projectRoot, ".build", "wasm32-unknown-wasip1",
		b.cfg.Configuration, b.cfg.Product+".wasm")
}

// RootArtifactPath is the staged binary at the project root, the copy the
// wheels plugin picks up as an override.
func (b *Builder) RootArtifactPath() string {
	return filepath.Join(b.projectRoot, wheels.WasmName)
}

// Build invokes the Swift toolchain and stages the resulting binary at the
// project root and into the docs assets dir. With skip_build set, an existing
// root binary is reused and only refreshed into the docs tree when stale.
func (b *Builder) Build(ctx context.Context, docsDir string) error {
	if b.cfg.SkipBuild {
		slog.Info("Skipping toolchain build, reusing existing binary", "path", b.RootArtifactPath())
		return b.refreshDocsCopy(docsDir)
	}

	args := []string{
		"build",
		"--swift-sdk", b.cfg.SwiftSDK,
		"--product", b.cfg.Product,
		"-c", b.cfg.Configuration,
		"-Xswiftc", "-Xclang-linker",
		"-Xswiftc", "-mexec-model=reactor",
	}
	cmd := exec.CommandContext(ctx, "swift", args...)
	cmd.Dir = b.projectRoot
	cmd.Env = append(os.Environ(), "TOOLCHAINS="+b.cfg.ToolchainID)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	slog.Info("Building WASM engine", "product", b.cfg.Product, "sdk", b.cfg.SwiftSDK, "configuration", b.cfg.Configuration)
	if err := b.runCommand(cmd); err != nil {
		return werrors.Wrap(err, werrors.CategoryToolchain, werrors.SeverityFatal, "swift build failed")
	}

	src := b.ArtifactPath()
	info, err := os.Stat(src)
	if err != nil {
		return werrors.New(werrors.CategoryToolchain, werrors.SeverityFatal,
			"built binary not found").WithContext("path", src)
	}

	if err := copyFile(src, b.RootArtifactPath()); err != nil {
		return err
	}
	docsDest := filepath.Join(docsDir, wheels.AssetsDirName, wheels.WasmName)
	if err := copyFile(src, docsDest); err != nil {
		return err
	}
	slog.Info("WASM engine built", "bytes", info.Size(), "staged", docsDest)
	return nil
}

// refreshDocsCopy copies the root binary into the docs assets dir when the
// docs copy is missing or older, mirroring the skip-build path of the driver.
func (b *Builder) refreshDocsCopy(docsDir string) error {
	root := b.RootArtifactPath()
	rootInfo, err := os.Stat(root)
	if err != nil {
		return werrors.New(werrors.CategoryToolchain, werrors.SeverityFatal,
			"no existing binary to reuse").WithContext("path", root)
	}

	dest := filepath.Join(docsDir, wheels.AssetsDirName, wheels.WasmName)
	destInfo, err := os.Stat(dest)
	if err == nil && !rootInfo.ModTime().After(destInfo.ModTime()) {
		return nil
	}
	if err := copyFile(root, dest); err != nil {
		return err
	}
	slog.Info("Refreshed docs copy of WASM engine", "path", dest)
	return nil
}

func copyFile(src, dest string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return werrors.Wrap(err, werrors.CategoryFileSystem, werrors.SeverityFatal,
			fmt.Sprintf("read %s", src))
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return werrors.Wrap(err, werrors.CategoryFileSystem, werrors.SeverityFatal,
			fmt.Sprintf("create directory for %s", dest))
	}
	if err := os.WriteFile(dest, data, 0644); err != nil {
		return werrors.Wrap(err, werrors.CategoryFileSystem, werrors.SeverityFatal,
			fmt.Sprintf("write %s", dest))
	}
	return nil
}
