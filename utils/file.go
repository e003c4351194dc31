package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// CopyFileWithTimestamp archives a source file into destDir under a
// timestamp-suffixed name so repeated ingests of the same filename never
// overwrite each other. Returns the destination path.
func CopyFileWithTimestamp(sourcePath, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("create archive directory: %w", err)
	}

	src, err := os.Open(sourcePath)
	if err != nil {
		return "", fmt.Errorf("open source file: %w", err)
	}
	defer src.Close()

	name := filepath.Base(sourcePath)
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	destPath := filepath.Join(destDir, fmt.Sprintf("%s_%d%s", base, time.Now().Unix(), ext))

	dest, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("create archive file: %w", err)
	}
	defer dest.Close()

	if _, err := io.Copy(dest, src); err != nil {
		return "", fmt.Errorf("copy file: %w", err)
	}

	return destPath, nil
}
