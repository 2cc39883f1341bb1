package wheels

import (
	"io/fs"
	"os"
	"path/filepath"

	werrors "github.com/py-swift/wheelsite/internal/errors"
)

// overrideNames are artifact files that, when present in OverrideDir, replace
// the bundled copies: the engine binary from a toolchain build or release
// fetch, and the raw packages database.
var overrideNames = []string{WasmName, "packages.db"}

// stageAssets copies the immediate asset files into dstDir, creating it if
// absent. Later copies unconditionally overwrite, so staging is idempotent.
func (p *Plugin) stageAssets(dstDir string) error {
	if err := os.MkdirAll(dstDir, 0755); err != nil {
		return werrors.Wrap(err, werrors.CategoryFileSystem, werrors.SeverityFatal, "create assets directory").
			WithContext("dir", dstDir)
	}

	entries, err := fs.ReadDir(assetsFS, "assets")
	if err != nil {
		return werrors.Wrap(err, werrors.CategoryInternal, werrors.SeverityFatal, "read bundled assets")
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := fs.ReadFile(assetsFS, "assets/"+entry.Name())
		if err != nil {
			return werrors.Wrap(err, werrors.CategoryInternal, werrors.SeverityFatal, "read bundled asset").
				WithContext("name", entry.Name())
		}
		if err := os.WriteFile(filepath.Join(dstDir, entry.Name()), data, 0644); err != nil {
			return werrors.Wrap(err, werrors.CategoryFileSystem, werrors.SeverityFatal, "stage asset").
				WithContext("name", entry.Name())
		}
	}

	if p.OverrideDir == "" {
		return nil
	}
	for _, name := range overrideNames {
		src := filepath.Join(p.OverrideDir, name)
		data, err := os.ReadFile(src)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return werrors.Wrap(err, werrors.CategoryFileSystem, werrors.SeverityFatal, "read override artifact").
				WithContext("path", src)
		}
		if err := os.WriteFile(filepath.Join(dstDir, name), data, 0644); err != nil {
			return werrors.Wrap(err, werrors.CategoryFileSystem, werrors.SeverityFatal, "stage override artifact").
				WithContext("name", name)
		}
	}
	return nil
}
