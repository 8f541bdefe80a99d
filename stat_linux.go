//go:build linux

package webdavd

import (
	"os"
	"syscall"
	"time"
)

// statTimes extracts access time, change time and the inode number from a
// stat result.
func statTimes(fi os.FileInfo) (atime, ctime time.Time, ino uint64) {
	if st, ok := fi.Sys().(*syscall.Stat_t); ok {
		atime = time.Unix(st.Atim.Sec, st.Atim.Nsec)
		ctime = time.Unix(st.Ctim.Sec, st.Ctim.Nsec)
		ino = st.Ino
		return atime, ctime, ino
	}
	return fi.ModTime(), fi.ModTime(), 0
}
