package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/notefold/pkg/core"
)

// ReconcileReport lists the folder IDs touched by Reconcile, by outcome.
type ReconcileReport = core.ReconcileReport

// Reconcile brings the directory tree in line with the desired folder list.
//
// Folders are processed parents first. For each folder the desired path is the
// current path of its parent (as updated earlier in this batch) joined with
// its sanitized name:
//   - unknown ID: the directory is created;
//   - same path: only the sidecar is rewritten;
//   - different path, free target: the directory is renamed;
//   - different path, occupied target: when the occupant is itself waiting to
//     move elsewhere in this batch it is parked under a temporary name first,
//     otherwise contents are merged into the target and the source removed.
//
// Names that are reserved at their level get a " (N)" suffix.
// index is updated in place. A failing folder is recorded and skipped; the
// joined item errors are returned with the report.
func (r *Repository) Reconcile(ctx context.Context, desired []core.Folder, index map[string]string) (ReconcileReport, error) {
	var report ReconcileReport
	var errs []error

	if index == nil {
		index = make(map[string]string)
	}

	ordered := core.OrderParentsFirst(desired)
	st := &reconcileState{
		index:   index,
		pending: make(map[string]core.Folder, len(ordered)),
	}
	for i := range ordered {
		if ordered[i].ID == "" {
			ordered[i].ID = uuid.NewString()
		}
		st.pending[ordered[i].ID] = ordered[i]
	}
	st.resync()

	for _, f := range ordered {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		delete(st.pending, f.ID)
		if err := core.ValidateID(f.ID); err != nil {
			report.Failed = append(report.Failed, f.ID)
			errs = append(errs, fmt.Errorf("folder %q: %w", f.ID, err))
			continue
		}

		outcome, err := r.reconcileOne(f, st)
		if err != nil {
			r.logger.Warn("failed to reconcile folder", "id", f.ID, "name", f.Name, "error", err)
			report.Failed = append(report.Failed, f.ID)
			errs = append(errs, fmt.Errorf("folder %s: %w", f.ID, err))
			continue
		}
		switch outcome {
		case outcomeCreated:
			report.Created = append(report.Created, f.ID)
		case outcomeMoved:
			report.Moved = append(report.Moved, f.ID)
		case outcomeMerged:
			report.Merged = append(report.Merged, f.ID)
		default:
			report.Unchanged = append(report.Unchanged, f.ID)
		}
	}

	if len(report.Merged) > 0 {
		r.logger.Warn("folders merged into existing directories", "ids", report.Merged)
	}
	return report, errors.Join(errs...)
}

type outcome int

const (
	outcomeUnchanged outcome = iota
	outcomeCreated
	outcomeMoved
	outcomeMerged
)

// reconcileState is the working view of one Reconcile batch.
type reconcileState struct {
	index   map[string]string      // folder ID -> current directory
	owners  map[string]string      // current directory -> folder ID
	pending map[string]core.Folder // desired folders not processed yet
}

// resync rebuilds owners from index.
func (st *reconcileState) resync() {
	st.owners = make(map[string]string, len(st.index))
	for id, p := range st.index {
		st.owners[filepath.Clean(p)] = id
	}
}

func (r *Repository) reconcileOne(f core.Folder, st *reconcileState) (outcome, error) {
	target, err := r.desiredPath(f, st.index)
	if err != nil {
		return 0, err
	}
	current, known := st.index[f.ID]

	if !known {
		if err := r.vacate(target, f.ID, st); err != nil {
			return 0, err
		}
		result := outcomeCreated
		if other, ok := st.owners[target]; ok && other != f.ID {
			r.logger.Warn("new folder takes over an existing directory", "id", f.ID, "other", other, "path", target)
			result = outcomeMerged
		}
		if err := os.MkdirAll(target, 0755); err != nil {
			return 0, fmt.Errorf("failed to create directory: %w", err)
		}
		if f.CreatedAt == "" {
			f.CreatedAt = time.Now().UTC().Format(time.RFC3339)
		}
		if err := r.writeSidecar(target, sidecarFromFolder(f)); err != nil {
			return 0, err
		}
		st.index[f.ID] = target
		st.owners[target] = f.ID
		return result, nil
	}

	result := outcomeUnchanged
	if filepath.Clean(current) != target {
		if isWithin(target, current) {
			return 0, fmt.Errorf("cannot move %s into its own subtree %s", current, target)
		}
		if err := r.vacate(target, f.ID, st); err != nil {
			return 0, err
		}
		// Parking may have carried this folder along.
		current = st.index[f.ID]

		merged, err := r.moveDir(current, target)
		if err != nil {
			return 0, err
		}
		rebaseIndex(st.index, current, target)
		st.resync()
		result = outcomeMoved
		if merged {
			result = outcomeMerged
		}
	}

	if f.CreatedAt == "" {
		if old, ok := r.readSidecar(target); ok {
			f.CreatedAt = old.CreatedAt
		}
	}
	if err := r.writeSidecar(target, sidecarFromFolder(f)); err != nil {
		return 0, err
	}
	return result, nil
}

// vacate moves the folder occupying target out of the way when it is still
// waiting in this batch to go somewhere else. It is renamed to a temporary
// sibling and picked up from there when its turn comes. An occupant that
// stays put, or is not part of the batch, is left alone.
func (r *Repository) vacate(target, id string, st *reconcileState) error {
	other, ok := st.owners[target]
	if !ok || other == id {
		return nil
	}
	next, waiting := st.pending[other]
	if !waiting {
		return nil
	}
	if dest, err := r.desiredPath(next, st.index); err == nil && dest == target {
		return nil
	}

	parked := filepath.Join(filepath.Dir(target),
		fmt.Sprintf("%s (moving %s)", filepath.Base(target), uuid.NewString()[:8]))
	if err := os.Rename(target, parked); err != nil {
		return fmt.Errorf("failed to move %s out of the way: %w", target, err)
	}
	r.logger.Debug("parked folder", "id", other, "from", target, "to", parked)

	rebaseIndex(st.index, target, parked)
	st.resync()
	return nil
}

// desiredPath joins the parent's current path with the sanitized name.
// Names reserved at that level get a " (N)" suffix.
func (r *Repository) desiredPath(f core.Folder, index map[string]string) (string, error) {
	parent, ok := index[f.ParentID]
	atRoot := f.ParentID == "" || !ok
	if atRoot {
		if f.ParentID != "" {
			r.logger.Warn("unknown parent folder, placing at root", "id", f.ID, "parent", f.ParentID)
		}
		parent = r.Path
	}
	name, err := r.folderName(core.Sanitize(f.Name), atRoot, nil)
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Clean(parent), name), nil
}

// moveDir relocates src to dst, merging into dst when it already exists.
// The first result reports whether a merge happened.
func (r *Repository) moveDir(src, dst string) (bool, error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return false, fmt.Errorf("failed to create parent directory: %w", err)
	}

	dstInfo, err := os.Stat(dst)
	if os.IsNotExist(err) {
		if err := os.Rename(src, dst); err != nil {
			return false, fmt.Errorf("failed to rename directory: %w", err)
		}
		r.logger.Debug("renamed folder", "from", src, "to", dst)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat target: %w", err)
	}

	// Case-only rename on a case-insensitive filesystem.
	if srcInfo, err := os.Stat(src); err == nil && os.SameFile(srcInfo, dstInfo) {
		if err := os.Rename(src, dst); err != nil {
			return false, fmt.Errorf("failed to rename directory: %w", err)
		}
		return false, nil
	}

	if err := copyTree(src, dst); err != nil {
		return false, fmt.Errorf("failed to merge into %s: %w", dst, err)
	}
	if err := os.RemoveAll(src); err != nil {
		return true, fmt.Errorf("merged but failed to remove %s: %w", src, err)
	}
	r.logger.Info("merged folder into existing directory", "from", src, "to", dst)
	return true, nil
}

// rebaseIndex rewrites every entry located under oldDir to live under newDir.
func rebaseIndex(index map[string]string, oldDir, newDir string) {
	oldDir = filepath.Clean(oldDir)
	prefix := oldDir + string(filepath.Separator)
	for id, p := range index {
		p = filepath.Clean(p)
		switch {
		case p == oldDir:
			index[id] = newDir
		case strings.HasPrefix(p, prefix):
			index[id] = filepath.Join(newDir, strings.TrimPrefix(p, prefix))
		}
	}
}
