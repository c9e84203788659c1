package dvid

import (
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
)

const (
	Kilo = 1 << 10
	Mega = 1 << 20
	Giga = 1 << 30
	Tera = 1 << 40
)

// ConvertToAbsolute returns an absolute path for the given path, treating a
// relative path as relative to baseDir.
func ConvertToAbsolute(path, baseDir string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}
	abs, err := filepath.Abs(filepath.Join(baseDir, path))
	if err != nil {
		return "", fmt.Errorf("can't make %q absolute relative to %q: %v", path, baseDir, err)
	}
	return abs, nil
}

// HumanBytes formats a byte count like "48 kB" for log messages and stats.
func HumanBytes(n int) string {
	if n < 0 {
		return "-" + humanize.Bytes(uint64(-n))
	}
	return humanize.Bytes(uint64(n))
}
