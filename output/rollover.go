package output

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/coaly-project/coaly/config"
	"github.com/coaly-project/coaly/diag"
)

// assocFile is one file associated with a resource: the active file or a
// rollover archive.
type assocFile struct {
	name   string
	stem   string
	ext    string
	seqNr  int
	active bool
}

// fileName reassembles the on-disk name.
func (f *assocFile) fileName() string {
	n := f.stem
	if f.seqNr > 0 {
		n += "." + strconv.Itoa(f.seqNr)
	}
	return n + f.ext
}

// shiftedFileName is the name after the sequence shift.
func (f *assocFile) shiftedFileName() string {
	return f.stem + "." + strconv.Itoa(f.seqNr+1) + f.ext
}

// partial archive marker; a crash between rename and encode leaves it
// behind and the next rollover discards the fragment
const tmpSuffix = ".tmp"

// archiveResource performs the rollover archival of a resource's active
// file: discover associated files, prune beyond the keep count, shift
// sequence numbers from oldest to newest and archive the active file.
// dtmSpecific marks file name specifications containing date or time
// variables, whose older actives occupy distinct timeline slots.
func archiveResource(dir, curName, newName string, pattern *regexp.Regexp,
	keepCount int, compr config.Compression, dtmSpecific bool) *diag.Diagnostic {

	files, derr := findResourceFiles(dir, curName, pattern)
	if derr != nil {
		return derr
	}
	if derr := removeRolloverFiles(dir, files, keepCount); derr != nil {
		return derr
	}
	if len(files) > keepCount {
		files = files[:keepCount]
	}
	if derr := shiftRolloverFiles(dir, files, dtmSpecific); derr != nil {
		return derr
	}
	if len(files) > 0 && files[0].active {
		return archiveActiveFile(dir, files[0], curName == newName, compr)
	}
	return nil
}

// findResourceFiles scans the directory for associated files and sorts
// them with the active file first and the oldest archive last. Partial
// archives from an interrupted earlier rollover are discarded.
func findResourceFiles(dir, curName string, pattern *regexp.Regexp) ([]*assocFile, *diag.Diagnostic) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, diag.NewError("E-Res-RolloverFailed", dir, curName, err.Error())
	}
	var files []*assocFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, tmpSuffix) {
			if pattern.MatchString(strings.TrimSuffix(name, tmpSuffix)) {
				os.Remove(filepath.Join(dir, name))
			}
			continue
		}
		m := pattern.FindStringSubmatchIndex(name)
		if m == nil {
			continue
		}
		f := &assocFile{name: name, stem: name, active: name == curName}
		// group 1 is the optional ".<seq>", group 2 the compression
		// extension
		if m[2] >= 0 {
			f.seqNr, _ = strconv.Atoi(name[m[2]+1 : m[3]])
			f.stem = name[:m[2]]
		}
		if len(m) > 4 && m[4] >= 0 {
			f.ext = name[m[4]:m[5]]
			if m[2] < 0 {
				f.stem = name[:m[4]]
			}
		}
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool {
		a, b := files[i], files[j]
		if a.active != b.active {
			return a.active
		}
		if a.stem != b.stem {
			return a.stem > b.stem
		}
		return a.seqNr < b.seqNr
	})
	return files, nil
}

// removeRolloverFiles deletes the files ranked beyond the keep count.
func removeRolloverFiles(dir string, files []*assocFile, keepCount int) *diag.Diagnostic {
	for _, f := range files[min(keepCount, len(files)):] {
		if err := os.Remove(filepath.Join(dir, f.name)); err != nil {
			return diag.NewError("E-Res-RolloverFailed", f.name, "", err.Error())
		}
	}
	return nil
}

// shiftRolloverFiles renames the surviving archives from oldest to newest,
// incrementing each sequence number. Date or time specific files whose stem
// differs from their successor's already occupy a distinct timeline slot
// and keep their name.
func shiftRolloverFiles(dir string, files []*assocFile, dtmSpecific bool) *diag.Diagnostic {
	for i := len(files) - 1; i >= 1; i-- {
		f := files[i]
		if dtmSpecific && f.stem != files[i-1].stem {
			continue
		}
		oldPath := filepath.Join(dir, f.name)
		newPath := filepath.Join(dir, f.shiftedFileName())
		if err := os.Rename(oldPath, newPath); err != nil {
			return diag.NewError("E-Res-RolloverFailed", oldPath, newPath, err.Error())
		}
	}
	return nil
}

// archiveActiveFile turns the active file into an archive. For a same-name
// specification the file moves to sequence number one; a date or time
// specific file keeps its stem. The compression algorithm re-encodes the
// renamed file; None is a plain rename.
func archiveActiveFile(dir string, active *assocFile, sameName bool,
	compr config.Compression) *diag.Diagnostic {

	activePath := filepath.Join(dir, active.name)
	var plainPath, target string
	if sameName {
		plainPath = filepath.Join(dir, active.stem+".1")
		target = plainPath + compr.Ext()
		if err := os.Rename(activePath, plainPath); err != nil {
			return diag.NewError("E-Res-RolloverFailed", activePath, plainPath, err.Error())
		}
	} else {
		// the old name is itself a distinct timeline slot
		plainPath = activePath
		target = activePath + compr.Ext()
	}
	if compr == config.CompressionNone {
		return nil
	}
	if err := compressFile(plainPath, target, compr); err != nil {
		// put the plain file back so the caller can reuse it
		if sameName {
			os.Rename(plainPath, activePath)
		}
		return diag.NewError("E-Res-CompressFailed", plainPath, err.Error())
	}
	if err := os.Remove(plainPath); err != nil {
		return diag.NewError("E-Res-RolloverFailed", plainPath, target, err.Error())
	}
	return nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// openAppend opens or creates a file for appending.
func openAppend(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}
