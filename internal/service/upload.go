package service

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"invoxtract/internal/domain"
)

// UploadInput is the DTO for an uploaded invoice document.
type UploadInput struct {
	UserID   string
	FileName string
	Size     int64
	File     io.Reader
}

// spooledFile is a validated upload written to local disk for layout analysis.
type spooledFile struct {
	Path        string
	FileType    domain.FileType
	ContentType string
	Size        int64
}

func (f *spooledFile) remove() {
	if f == nil || f.Path == "" {
		return
	}
	_ = os.Remove(f.Path)
}

// fileTypeFromName validates the extension of name against the accepted types.
func fileTypeFromName(name string) (domain.FileType, string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	ft, ok := domain.AllowedExtensions[ext]
	if !ok {
		return "", "", domain.ErrUnsupportedFileType
	}
	return ft, ext, nil
}

// spool validates an upload (extension, declared size, sniffed content type)
// and copies it to a temp file, enforcing maxBytes on the actual stream.
func spool(input UploadInput, tempDir string, maxBytes int64) (*spooledFile, error) {
	if input.UserID == "" {
		return nil, domain.ErrMissingUserID
	}
	ft, ext, err := fileTypeFromName(input.FileName)
	if err != nil {
		return nil, err
	}
	if maxBytes > 0 && input.Size > maxBytes {
		return nil, domain.ErrFileTooLarge
	}

	br := bufio.NewReaderSize(input.File, 512)
	head, err := br.Peek(512)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("reading file header: %w", err)
	}
	sniffed, ok := domain.AllowedContentTypes[http.DetectContentType(head)]
	if !ok || sniffed != ft {
		return nil, domain.ErrUnsupportedFileType
	}

	tmp, err := os.CreateTemp(tempDir, "invoxtract-*."+ext)
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	out := &spooledFile{Path: tmp.Name(), FileType: ft, ContentType: domain.AllowedFileTypes[ft]}

	var src io.Reader = br
	if maxBytes > 0 {
		src = io.LimitReader(br, maxBytes+1)
	}
	n, err := io.Copy(tmp, src)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		out.remove()
		return nil, fmt.Errorf("writing temp file: %w", err)
	}
	if maxBytes > 0 && n > maxBytes {
		out.remove()
		return nil, domain.ErrFileTooLarge
	}
	out.Size = n
	return out, nil
}

// archiveKey is the object key of a job's source document:
// uploads/{user}/{job}/{file}.
func archiveKey(userID, jobID, fileName string) string {
	base := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	return path.Join("uploads", safeSegment(userID), jobID, safeSegment(base))
}

func safeSegment(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r < 0x20 {
			return '_'
		}
		return r
	}, strings.TrimSpace(s))
	if s == "" || s == "." || s == ".." || s == "/" {
		return "_"
	}
	return s
}
