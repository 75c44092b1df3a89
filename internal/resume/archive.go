package resume

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spigell/career-twin/internal/interview"
)

var _ interview.ResumeArchive = (*DirArchive)(nil)

// DirArchive keeps original uploads as <candidateID>_<filename> in a directory.
type DirArchive struct {
	dir string
}

func NewDirArchive(dir string) *DirArchive {
	return &DirArchive{dir: dir}
}

func (a *DirArchive) Save(candidateID, filename string, data []byte) (string, error) {
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", fmt.Errorf("create resume directory: %w", err)
	}

	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	path := filepath.Join(a.dir, candidateID+"_"+name)

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write resume: %w", err)
	}

	return path, nil
}
