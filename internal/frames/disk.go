package frames

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	apperrors "github.com/GriffinCanCode/framecap/internal/errors"
	"github.com/GriffinCanCode/framecap/internal/imagecodec"
)

// Persist atomically writes PNG data for timestamp ts into dir and returns the path.
// Readers never observe a partially written frame file.
func Persist(dir, ts string, data []byte) (string, error) {
	path := PathFor(dir, ts)

	tmp, err := os.CreateTemp(dir, ".frame-*.tmp")
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodePersistFailed, "create temp file").WithMetadata("path", path)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", apperrors.Wrap(err, apperrors.CodePersistFailed, "write frame").WithMetadata("path", path)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", apperrors.Wrap(err, apperrors.CodePersistFailed, "close frame").WithMetadata("path", path)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", apperrors.Wrap(err, apperrors.CodePersistFailed, "rename frame").WithMetadata("path", path)
	}
	return path, nil
}

// SnapshotFromDisk reads every frame file in dir, newest first.
// A missing directory yields no frames. Unreadable or non-PNG files are skipped.
func SnapshotFromDisk(dir string) ([]Frame, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []Frame{}, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeReadFailed, "list frames directory").WithMetadata("dir", dir)
	}

	out := make([]Frame, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ts, ok := ParseFileName(e.Name())
		if !ok {
			continue
		}

		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Debug("skipping unreadable frame file", "path", path, "error", err)
			continue
		}
		if !imagecodec.ValidPNG(data) {
			slog.Warn("skipping corrupt frame file", "path", path)
			continue
		}
		out = append(out, Frame{Timestamp: ts, Image: imagecodec.Base64(data), Path: path})
	}

	// Fixed-width timestamps sort lexically in time order.
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out, nil
}
