package repo

import (
	"io"
	"io/fs"
	"os"

	"github.com/holtvcs/holt/pkg/object"
	"github.com/zeebo/xxh3"
	"golang.org/x/exp/mmap"
)

// Files at or above this size are hashed through a memory mapping instead
// of a full read into memory.
const mmapHashThreshold = 8 << 20

// worktreeFileHash computes the blob hash of the file at absPath, plus an
// xxh3 fingerprint used by the status stat cache. Large files are hashed
// via mmap and report a zero fingerprint (status falls back to the content
// hash for them).
func worktreeFileHash(absPath string, size int64) (object.Hash, uint64, error) {
	if size >= mmapHashThreshold {
		rd, err := mmap.Open(absPath)
		if err != nil {
			return "", 0, err
		}
		defer rd.Close()
		h, err := object.HashReader(object.TypeBlob, io.NewSectionReader(rd, 0, size), size)
		if err != nil {
			return "", 0, err
		}
		return h, 0, nil
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return "", 0, err
	}
	return object.HashObject(object.TypeBlob, data), xxh3.Hash(data), nil
}

// modeFromFileInfo maps a file mode to the canonical tree mode string.
func modeFromFileInfo(info fs.FileInfo) string {
	if info.Mode()&0o111 != 0 {
		return object.TreeModeExecutable
	}
	return object.TreeModeFile
}

// filePermFromMode maps a tree mode string back to filesystem permissions.
func filePermFromMode(mode string) os.FileMode {
	if mode == object.TreeModeExecutable {
		return 0o755
	}
	return 0o644
}
