package file

import (
	"io"
	"os"
)

// MmapFile represents an mmapd file and includes both the buffer to the data and the file descriptor.
type MmapFile struct {
	Data []byte
	Fd   *os.File
}

// OpenMmapFile opens (creating if needed) filename with flag, grows it to
// maxSz when it is smaller, and maps the whole file into Data. maxSz <= 0
// maps the file at its current on-disk size, for callers that already know
// the final size (e.g. reopening a sealed SSTable).
func OpenMmapFile(filename string, flag int, maxSz int) (*MmapFile, error) {
	fd, err := os.OpenFile(filename, flag, 0666)
	if err != nil {
		return nil, err
	}

	fi, err := fd.Stat()
	if err != nil {
		fd.Close()
		return nil, err
	}

	fileSize := fi.Size()
	if maxSz > 0 && fileSize < int64(maxSz) {
		if err := fd.Truncate(int64(maxSz)); err != nil {
			fd.Close()
			return nil, err
		}
		fileSize = int64(maxSz)
	}

	data, err := Mmap(fd, flag&(os.O_RDWR|os.O_WRONLY) != 0, fileSize)
	if err != nil {
		fd.Close()
		return nil, err
	}
	return &MmapFile{Data: data, Fd: fd}, nil
}

// Close unmaps Data and closes the underlying file descriptor.
func (m *MmapFile) Close() error {
	if err := Munmap(m.Data); err != nil {
		return err
	}
	return m.Fd.Close()
}

// Sync flushes the mapped pages to persistent storage.
func (m *MmapFile) Sync() error {
	return Msync(m.Data)
}

// Delete closes and removes the backing file entirely, used when an SSTable
// is dropped by compaction.
func (m *MmapFile) Delete() error {
	if err := Munmap(m.Data); err != nil {
		return err
	}
	m.Data = nil
	if err := m.Fd.Truncate(0); err != nil {
		return err
	}
	name := m.Fd.Name()
	if err := m.Fd.Close(); err != nil {
		return err
	}
	return os.Remove(name)
}

// Bytes returns the sz-length slice of Data starting at off. It returns
// io.EOF when off+sz runs past the end of the mapping; the mapping is not
// grown.
func (m *MmapFile) Bytes(off, sz int) ([]byte, error) {
	if off < 0 || sz < 0 || off+sz > len(m.Data) {
		return nil, io.EOF
	}
	return m.Data[off : off+sz], nil
}

// ReadAt satisfies io.ReaderAt (and filterblock.RandomAccessFile) directly
// against the mapped bytes, with no syscall on the read path.
func (m *MmapFile) ReadAt(buf []byte, offset int64) (int, error) {
	if offset < 0 || offset > int64(len(m.Data)) {
		return 0, io.EOF
	}
	n := copy(buf, m.Data[offset:])
	if n < len(buf) {
		return n, io.EOF
	}
	return n, nil
}
