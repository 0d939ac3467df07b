// Package archive packages a size-bounded subset of a workspace into a
// zip for submission to the scan service.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"scanagent/internal/safeio"
)

// MaxPayloadBytes bounds how much source the truncation may carry.
const MaxPayloadBytes = 200 << 20

// Truncation references the packaged archive representing the subset
// of the workspace included in a scan.
type Truncation struct {
	ArchivePath string
	FileCount   int
	TotalBytes  int64
	Truncated   bool
}

// Directories that never belong in a scan payload.
var skippedDirs = map[string]struct{}{
	".git":         {},
	".hg":          {},
	".svn":         {},
	"node_modules": {},
	"vendor":       {},
	".venv":        {},
	"__pycache__":  {},
}

// PackWorkspace zips regular files under root into outDir, stopping
// once the byte budget is exhausted. Entry names are prefixed with the
// root's base name so findings resolve against the root's parent.
func PackWorkspace(root, outDir string) (*Truncation, error) {
	root = filepath.Clean(strings.TrimSpace(root))
	if root == "" || root == "." {
		return nil, fmt.Errorf("workspace root is required")
	}
	// file reads stay confined to the workspace root
	fsys, err := safeio.NewSafeFS(root)
	if err != nil {
		return nil, fmt.Errorf("open workspace root: %w", err)
	}
	root = fsys.Root()

	out, err := os.CreateTemp(outDir, "truncation-*.zip")
	if err != nil {
		return nil, fmt.Errorf("create archive: %w", err)
	}
	zw := zip.NewWriter(out)

	tr := &Truncation{ArchivePath: out.Name()}
	base := filepath.Base(root)
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if _, skip := skippedDirs[d.Name()]; skip && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if tr.TotalBytes+info.Size() > MaxPayloadBytes {
			tr.Truncated = true
			return filepath.SkipAll
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if err := addEntry(zw, fsys, rel, base+"/"+filepath.ToSlash(rel)); err != nil {
			return err
		}
		tr.FileCount++
		tr.TotalBytes += info.Size()
		return nil
	})
	if walkErr != nil {
		_ = zw.Close()
		_ = out.Close()
		_ = os.Remove(out.Name())
		return nil, fmt.Errorf("pack workspace: %w", walkErr)
	}
	if err := zw.Close(); err != nil {
		_ = out.Close()
		_ = os.Remove(out.Name())
		return nil, fmt.Errorf("finalize archive: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(out.Name())
		return nil, err
	}
	if tr.Truncated {
		log.Printf("truncation: byte budget reached, packaged %d files (%d bytes) from %s", tr.FileCount, tr.TotalBytes, root)
	}
	return tr, nil
}

func addEntry(zw *zip.Writer, fsys *safeio.SafeFS, rel, name string) error {
	f, err := fsys.SafeOpen(rel)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}
