package resolve

import (
	"encoding/json"
	"path/filepath"

	"github.com/spf13/afero"
)

// DescriptorName is the package descriptor file looked up in directories.
const DescriptorName = "package.json"

// IndexName is the fallback entry point of a directory.
const IndexName = "index.js"

// PackageDescriptor holds the fields of package.json the resolver reads.
type PackageDescriptor struct {
	Main string `json:"main"`
}

// readDescriptor loads dir/package.json. A missing file yields (nil, nil).
func readDescriptor(fs afero.Fs, dir string) (*PackageDescriptor, error) {
	path := filepath.Join(dir, DescriptorName)
	if !isFile(fs, path) {
		return nil, nil
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, &PackageDescriptorParseError{Path: path, Err: err}
	}

	var desc PackageDescriptor
	if err := json.Unmarshal(data, &desc); err != nil {
		return nil, &PackageDescriptorParseError{Path: path, Err: err}
	}
	return &desc, nil
}

func isFile(fs afero.Fs, path string) bool {
	info, err := fs.Stat(path)
	return err == nil && !info.IsDir()
}

func isDir(fs afero.Fs, path string) bool {
	ok, err := afero.IsDir(fs, path)
	return err == nil && ok
}
