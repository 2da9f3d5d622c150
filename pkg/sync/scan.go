package sync

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/sdejongh/mediasync/pkg/models"
	"github.com/sdejongh/mediasync/pkg/storage"
)

// sourceTree is the enumerated source: directories first-seen in walk order
// (parents before children) and the regular files under them
type sourceTree struct {
	dirs       []string
	files      []*FileTask
	totalBytes int64
	scanErrors []string
}

// scanSource walks the source once. Symlinks, devices and in-flight temp
// files are ignored; excluded directories are pruned with their contents.
func scanSource(ctx context.Context, source storage.Backend, excludes *excludeMatcher) (*sourceTree, error) {
	tree := &sourceTree{}
	pruned := make(map[string]bool)

	for info, err := range source.Walk(ctx, ".") {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err != nil {
			if info.RelativePath == "" || info.RelativePath == "." {
				return nil, fmt.Errorf("%w: %v", models.ErrInvalidSource, err)
			}
			tree.scanErrors = append(tree.scanErrors, fmt.Sprintf("%s: %v", filepath.ToSlash(info.RelativePath), err))
			continue
		}

		rel := info.RelativePath
		if underPruned(rel, pruned) {
			continue
		}

		switch {
		case info.IsDir:
			if excludes.match(rel, true) {
				pruned[filepath.ToSlash(rel)] = true
				continue
			}
			tree.dirs = append(tree.dirs, filepath.ToSlash(rel))

		case info.IsRegular:
			if storage.IsTempFile(rel) || excludes.match(rel, false) {
				continue
			}
			record := models.FileRecord{
				RelativePath: rel,
				SourcePath:   info.Path,
				Size:         info.Size,
			}
			tree.files = append(tree.files, NewFileTask(record, info.ModTime))
			tree.totalBytes += info.Size
		}
	}

	return tree, nil
}

// underPruned reports whether rel lies inside an excluded directory
func underPruned(rel string, pruned map[string]bool) bool {
	if len(pruned) == 0 {
		return false
	}
	for dir := models.DirOf(rel); dir != "." && dir != "/"; dir = models.DirOf(dir) {
		if pruned[dir] {
			return true
		}
	}
	return false
}
