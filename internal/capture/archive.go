package capture

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"
)

const archiveLayout = "2006_01_02_15_04_05"

// ZipArchiver bundles Source into a timestamped zip in DestDir.
type ZipArchiver struct {
	Source  string
	DestDir string
	Now     func() time.Time
}

// ArchiveName is the file name used for an archive made at t.
func ArchiveName(source string, t time.Time) string {
	return filepath.Base(filepath.Clean(source)) + "_" + t.Format(archiveLayout) + ".zip"
}

// Archive writes the zip and returns its path. A missing source produces
// no archive and no error.
func (a ZipArchiver) Archive(ctx context.Context) (string, error) {
	info, err := os.Stat(a.Source)
	if err != nil {
		if os.IsNotExist(err) {
			zap.S().Infow("nothing to archive, no packets were captured", "source", a.Source)
			return "", nil
		}
		return "", fmt.Errorf("stat archive source: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("archive source %s is not a directory", a.Source)
	}

	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	dest := a.DestDir
	if dest == "" {
		dest = "."
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", fmt.Errorf("create archive directory: %w", err)
	}
	path := filepath.Join(dest, ArchiveName(a.Source, now()))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create archive: %w", err)
	}
	zw := zip.NewWriter(f)

	werr := writeTree(ctx, zw, a.Source)
	if cerr := zw.Close(); werr == nil {
		werr = cerr
	}
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("write archive: %w", werr)
	}

	zap.S().Infow("saved capture archive", "path", path)
	return path, nil
}

// writeTree adds every file under root, keeping root's own name as the
// top-level directory inside the archive.
func writeTree(ctx context.Context, zw *zip.Writer, root string) error {
	parent := filepath.Dir(filepath.Clean(root))
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(parent, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		if d.IsDir() {
			header.Name += "/"
			_, err := zw.CreateHeader(header)
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		header.Method = zip.Deflate

		w, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(w, src)
		return err
	})
}
