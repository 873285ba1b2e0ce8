package output

import (
	"path/filepath"
	"time"

	"github.com/coaly-project/coaly/config"
	"github.com/coaly-project/coaly/diag"
)

// rolloverOnSize checks the size condition after a write. grown is the
// byte count a mapped buffer consumed; plain files track written bytes in
// sinkWrite.
func (r *Resource) rolloverOnSize(now time.Time, grown int64) *diag.Diagnostic {
	if r.rovrPolicy == nil || r.rovrPolicy.Condition.Kind != config.RolloverSizeReached {
		return nil
	}
	r.written += grown
	if r.written < r.rovrPolicy.Condition.Size {
		return nil
	}
	return r.rolloverLocked(now)
}

// RolloverIfDue performs time based rollover when the next elapse moment
// has been reached. Driven by the inventory's external tick.
func (r *Resource) RolloverIfDue(now time.Time) *diag.Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.template || r.rovrPolicy == nil {
		return nil
	}
	if r.rovrPolicy.Condition.Kind != config.RolloverTimeElapsed {
		return nil
	}
	if now.Before(r.nextRovr) {
		return nil
	}
	derr := r.rolloverLocked(now)
	r.nextRovr = r.rovrPolicy.Condition.Interval.NextElapse(now)
	return derr
}

// rolloverLocked archives the active file and opens the new one. A failing
// archival degrades to reusing the old active file.
func (r *Resource) rolloverLocked(now time.Time) *diag.Diagnostic {
	if r.bufPolicy != nil && r.bufPolicy.FlushConditions&config.FlushOnRollover != 0 {
		if derr := r.flushLocked(); derr != nil {
			return derr
		}
	}

	oldPath := r.curPath
	curName := filepath.Base(oldPath)
	newName := r.nameSpec.FileName(now)

	// close the current sink before touching its file
	if r.kind == config.MemoryMappedFile {
		r.buf.Close()
	} else if r.file != nil {
		r.file.Close()
		r.file = nil
	}

	derr := archiveResource(filepath.Dir(oldPath), curName, newName,
		r.findPattern, r.rovrPolicy.KeepCount, r.rovrPolicy.Compression,
		r.nameSpec.IsDateTimeSpecific())
	if derr != nil {
		// recovery: continue with the old active file
		if rerr := r.reopenActive(oldPath); rerr != nil {
			return rerr.WithCause(derr)
		}
		return derr
	}

	newPath := filepath.Join(filepath.Dir(oldPath), newName)
	if r.kind == config.MemoryMappedFile {
		if err := r.buf.Reopen(newPath, true); err != nil {
			return diag.NewError("E-Res-CreateFailed", newPath, err.Error())
		}
	} else {
		if derr := r.createActive(newPath); derr != nil {
			return derr
		}
	}
	r.curPath = newPath
	r.written = 0
	return nil
}

func (r *Resource) reopenActive(path string) *diag.Diagnostic {
	if r.kind == config.MemoryMappedFile {
		if err := r.buf.Reopen(path, false); err != nil {
			return diag.NewError("E-Res-MmapFailed", path, err.Error())
		}
		return nil
	}
	return r.createActive(path)
}

func (r *Resource) createActive(path string) *diag.Diagnostic {
	f, err := openAppend(path)
	if err != nil {
		return diag.NewError("E-Res-CreateFailed", path, err.Error())
	}
	r.file = f
	if fi, err := f.Stat(); err == nil {
		r.written = fi.Size()
	}
	return nil
}
