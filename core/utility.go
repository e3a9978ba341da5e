package core

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/devblok/koruasset/asset"
	"github.com/devblok/koruasset/loaders"
	"github.com/devblok/koruasset/utility/kar"
)

// AssetFile is a file found under the assets root.
type AssetFile struct {
	// Name is slash separated and relative to the root
	Name string
	Kind asset.Kind
}

// DiscoverAssets walks dir and lists every file together with the
// kind that loads it. Hidden files and directories are skipped.
// It is important that the suffix of the file tells its kind,
// everything unrecognised is a blob.
func DiscoverAssets(dir string) ([]AssetFile, error) {
	var files []AssetFile
	if err := filepath.Walk(dir, func(path string, f os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if strings.HasPrefix(f.Name(), ".") && path != dir {
			if f.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if f.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		files = append(files, AssetFile{Name: name, Kind: loaders.KindForPath(name)})
		return nil
	}); err != nil {
		return nil, err
	}
	return files, nil
}

// ArchiveAssets lists the entries of a kar archive the same way
// DiscoverAssets lists a directory.
func ArchiveAssets(ar *kar.Archive) []AssetFile {
	var files []AssetFile
	for _, e := range ar.Entries() {
		files = append(files, AssetFile{Name: e.Name, Kind: loaders.KindForPath(e.Name)})
	}
	return files
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// OpenSource opens the configured asset source: the archive
// when one is set, the root directory otherwise. The closer
// releases the archive mapping.
func OpenSource(cfg AssetsConfiguration) (asset.Source, []AssetFile, io.Closer, error) {
	if cfg.Archive != "" {
		ar, err := kar.OpenFile(cfg.Archive)
		if err != nil {
			return nil, nil, nil, err
		}
		return ar, ArchiveAssets(ar), ar, nil
	}

	files, err := DiscoverAssets(cfg.Root)
	if err != nil {
		return nil, nil, nil, err
	}
	return asset.Dir(cfg.Root), files, nopCloser{}, nil
}
