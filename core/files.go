package core

import (
	"context"
	"io"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// FileCategory is the folder an uploaded document is stored under.
type FileCategory string

const (
	CategoryQuizzes     FileCategory = "quizzes"
	CategorySubmissions FileCategory = "submissions"

	maxFileNameLen = 100
)

var (
	FileCategories = []FileCategory{CategoryQuizzes, CategorySubmissions}

	ErrFileNotFound    = NewNotFoundError("file")
	ErrInvalidFileName = errors.New("invalid file name")
	ErrInvalidFilePath = errors.New("invalid file path")
)

func (c FileCategory) IsValid() bool {
	for _, cat := range FileCategories {
		if c == cat {
			return true
		}
	}
	return false
}

type (
	// StoredFile describes a file held by a FileStore.
	StoredFile struct {
		Path       string // relative: "<category>/<name>"
		ModifiedAt time.Time
	}

	// FileStore is any service that can store uploaded documents.
	FileStore interface {
		// Save stores the content of r under a generated collision-free name and returns its relative path.
		Save(ctx context.Context, r io.Reader, originalName string, category FileCategory) (string, error)
		// Open returns the content stored at relPath, or ErrFileNotFound.
		Open(ctx context.Context, relPath string) (io.ReadCloser, error)
		Delete(ctx context.Context, relPath string) error
		List(ctx context.Context, category FileCategory) ([]StoredFile, error)
	}
)

// SanitizeFileName strips any directory component and unsafe characters from an uploaded file name.
func SanitizeFileName(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(strings.TrimSpace(name))
	if name == "." || name == "/" || name == ".." {
		return "", ErrInvalidFileName
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case isSafeRune(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune('_')
		}
	}
	clean := strings.TrimLeft(b.String(), ".")
	if clean == "" {
		return "", ErrInvalidFileName
	}
	if runes := []rune(clean); len(runes) > maxFileNameLen {
		clean = string(runes[len(runes)-maxFileNameLen:])
	}
	return clean, nil
}

// GenerateFileName returns "<random>_<sanitized original name>".
func GenerateFileName(originalName string) (string, error) {
	name, err := SanitizeFileName(originalName)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(uuid.New().String(), "-", "") + "_" + name, nil
}

// OriginalFileName strips the random prefix added by GenerateFileName.
func OriginalFileName(storedName string) string {
	base := path.Base(storedName)
	if i := strings.IndexByte(base, '_'); i == 32 {
		return base[i+1:]
	}
	return base
}

// FilePath joins a category and a stored name into a relative path.
func FilePath(category FileCategory, name string) string {
	return string(category) + "/" + name
}

// SplitFilePath validates a relative path and returns its category and file name.
func SplitFilePath(relPath string) (FileCategory, string, error) {
	parts := strings.Split(relPath, "/")
	if len(parts) != 2 {
		return "", "", ErrInvalidFilePath
	}
	cat, name := FileCategory(parts[0]), parts[1]
	if !cat.IsValid() {
		return "", "", ErrInvalidFilePath
	}
	if name == "" || strings.HasPrefix(name, ".") || strings.IndexFunc(name, func(r rune) bool { return !isSafeRune(r) }) >= 0 {
		return "", "", ErrInvalidFilePath
	}
	return cat, name, nil
}

func isSafeRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '-' || r == '_'
}
