package attachment

import (
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// localFile is a FileHandle for a file on disk.
type localFile struct {
	path     string
	size     int64
	mimeType string
	err      error
}

// LocalFile returns a FileHandle for path. The MIME type is sniffed from the
// file content and falls back to the extension. Stat errors surface when the
// file is opened so they reject only this file.
func LocalFile(path string) FileHandle {
	f := &localFile{path: path}

	info, err := os.Stat(path)
	if err != nil {
		f.err = err
		f.mimeType = mimeFromExtension(path)
		return f
	}
	f.size = info.Size()

	if mtype, err := mimetype.DetectFile(path); err == nil && mtype.String() != "application/octet-stream" {
		f.mimeType = stripParams(mtype.String())
	} else {
		f.mimeType = mimeFromExtension(path)
	}
	return f
}

func (f *localFile) Name() string {
	return filepath.Base(f.path)
}

func (f *localFile) Size() int64 {
	return f.size
}

func (f *localFile) MimeType() string {
	return f.mimeType
}

func (f *localFile) Open() (io.ReadCloser, error) {
	if f.err != nil {
		return nil, f.err
	}
	return os.Open(f.path)
}

func mimeFromExtension(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return stripParams(t)
	}
	return "application/octet-stream"
}

func stripParams(mimeType string) string {
	base, _, _ := strings.Cut(mimeType, ";")
	return strings.TrimSpace(base)
}
