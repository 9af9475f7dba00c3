package upload

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	nanoid "github.com/jaevor/go-nanoid"
)

const (
	maxExtLen          = 16
	defaultContentType = "application/octet-stream"
)

var (
	ErrEmptyFile = errors.New("file is empty")
	ErrTooLarge  = errors.New("file exceeds upload limit")
	ErrNotImage  = errors.New("only image files are allowed")
	ErrNoFile    = errors.New("file field is required")
)

// File describes a stored upload as handed back to clients.
type File struct {
	URL  string `json:"file_url"`
	Type string `json:"file_type"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Storage keeps uploaded files on local disk under dir and serves them below urlPrefix.
type Storage struct {
	dir       string
	urlPrefix string
	maxBytes  int64
	newID     func() string
}

func NewStorage(dir, urlPrefix string, maxBytes int64) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	newID, err := nanoid.Standard(21)
	if err != nil {
		return nil, err
	}
	return &Storage{
		dir:       dir,
		urlPrefix: strings.TrimSuffix(urlPrefix, "/"),
		maxBytes:  maxBytes,
		newID:     newID,
	}, nil
}

func (s *Storage) Dir() string { return s.dir }

// Save copies src to a freshly named file. Only the extension of the
// declared name is kept on disk.
func (s *Storage) Save(src io.Reader, declaredName, contentType string) (*File, error) {
	ext := cleanExt(declaredName)
	stored := s.newID() + ext

	dst, err := os.OpenFile(filepath.Join(s.dir, stored), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}

	n, err := io.Copy(dst, io.LimitReader(src, s.maxBytes+1))
	closeErr := dst.Close()
	switch {
	case err != nil:
		s.remove(stored)
		return nil, fmt.Errorf("write file: %w", err)
	case closeErr != nil:
		s.remove(stored)
		return nil, fmt.Errorf("close file: %w", closeErr)
	case n == 0:
		s.remove(stored)
		return nil, ErrEmptyFile
	case n > s.maxBytes:
		s.remove(stored)
		return nil, ErrTooLarge
	}

	if contentType == "" {
		contentType = mime.TypeByExtension(ext)
	}
	if contentType == "" {
		contentType = defaultContentType
	}

	return &File{
		URL:  path.Join(s.urlPrefix, stored),
		Type: contentType,
		Name: baseName(declaredName),
		Size: n,
	}, nil
}

// Receive stores the multipart file found under field.
func (s *Storage) Receive(r *http.Request, field string) (*File, error) {
	return s.receive(r, field, false)
}

// ReceiveImage is Receive restricted to image/* uploads.
func (s *Storage) ReceiveImage(r *http.Request, field string) (*File, error) {
	return s.receive(r, field, true)
}

func (s *Storage) receive(r *http.Request, field string, imageOnly bool) (*File, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, ErrNoFile
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, ErrTooLarge
		}
		return nil, err
	}
	defer file.Close()

	if header.Size > s.maxBytes {
		return nil, ErrTooLarge
	}

	contentType := header.Header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mt
	} else {
		contentType = ""
	}
	if imageOnly && !strings.HasPrefix(contentType, "image/") {
		return nil, ErrNotImage
	}

	return s.Save(file, header.Filename, contentType)
}

func (s *Storage) remove(name string) {
	_ = os.Remove(filepath.Join(s.dir, name))
}

func baseName(name string) string {
	base := filepath.Base(strings.TrimSpace(strings.ReplaceAll(name, `\`, "/")))
	if base == "." || base == "/" || base == "" {
		return "file"
	}
	return base
}

func cleanExt(name string) string {
	ext := strings.ToLower(filepath.Ext(baseName(name)))
	if ext == "" || len(ext) > maxExtLen {
		return ""
	}
	for _, c := range ext[1:] {
		if !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9') {
			return ""
		}
	}
	return ext
}
