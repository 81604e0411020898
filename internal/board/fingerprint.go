package board

import (
	"os"
	"time"
)

// fileStamp identifies one on-disk version of a file.
type fileStamp struct {
	info    os.FileInfo
	size    int64
	modTime time.Time
}

func stampFile(path string) fileStamp {
	info, err := os.Stat(path)
	if err != nil {
		return fileStamp{}
	}
	return fileStamp{info: info, size: info.Size(), modTime: info.ModTime()}
}

func (s fileStamp) equal(o fileStamp) bool {
	if s.info == nil || o.info == nil {
		return s.info == nil && o.info == nil
	}
	return os.SameFile(s.info, o.info) && s.size == o.size && s.modTime.Equal(o.modTime)
}

// fingerprint covers the main database file and its write-ahead log, which is
// where another process's commits land first.
type fingerprint struct {
	main fileStamp
	wal  fileStamp
}

func takeFingerprint(path string) fingerprint {
	return fingerprint{
		main: stampFile(path),
		wal:  stampFile(path + "-wal"),
	}
}

func (f fingerprint) equal(o fingerprint) bool {
	return f.main.equal(o.main) && f.wal.equal(o.wal)
}
