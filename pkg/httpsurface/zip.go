package httpsurface

import (
	"archive/zip"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/mediabus/mediabus-host/pkg/devicestore"
	"github.com/mediabus/mediabus-host/pkg/runtime"
)

// zipEntry is one file or directory destined for a streamed ZIP
// archive: its source path on disk and the name it gets inside the
// archive.
type zipEntry struct {
	src   string
	name  string
	isDir bool
}

// collectDirEntries walks root and returns every descendant as a
// zipEntry, name-sorted case-insensitively so the streamed archive is
// deterministic. Directory entries carry a trailing "/" and no content.
// Hidden entries (and everything beneath a hidden directory) are
// dropped unless showHidden is true.
func collectDirEntries(root string, showHidden bool) ([]zipEntry, error) {
	var out []zipEntry
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		if !showHidden && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		name := filepath.ToSlash(rel)
		if d.IsDir() {
			name += "/"
		}
		out = append(out, zipEntry{src: path, name: name, isDir: d.IsDir()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortEntries(out)
	return out, nil
}

func sortEntries(entries []zipEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return strings.ToLower(entries[i].name) < strings.ToLower(entries[j].name)
	})
}

// uniqueTopName returns name, or name with " (n)" appended/inserted
// before its extension, for the smallest n not already present in used.
// used is mutated to record whichever name is returned.
func uniqueTopName(used map[string]bool, name string) string {
	if !used[name] {
		used[name] = true
		return name
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for n := 1; ; n++ {
		candidate := base + " (" + strconv.Itoa(n) + ")" + ext
		if !used[candidate] {
			used[candidate] = true
			return candidate
		}
	}
}

// buildBatchEntries resolves each requested top-level path and flattens
// it (recursively, if a directory) into a single name-sorted entry
// list, de-duplicating top-level names the way repeated uploads of the
// same filename are de-duplicated.
func buildBatchEntries(settings devicestore.HostSettings, segmentsList [][]string) ([]zipEntry, *runtime.Error) {
	used := map[string]bool{}
	var all []zipEntry
	for _, segments := range segmentsList {
		target, info, rerr := resolveExisting(settings, segments)
		if rerr != nil {
			return nil, rerr
		}
		base := uniqueTopName(used, filepath.Base(target))
		if info.IsDir() {
			nested, err := collectDirEntries(target, settings.ShowHiddenFiles)
			if err != nil {
				return nil, &runtime.Error{Kind: runtime.KindInternal, Message: "failed to read directory"}
			}
			all = append(all, zipEntry{src: target, name: base + "/", isDir: true})
			for _, e := range nested {
				all = append(all, zipEntry{src: e.src, name: base + "/" + e.name, isDir: e.isDir})
			}
		} else {
			all = append(all, zipEntry{src: target, name: base, isDir: false})
		}
	}
	sortEntries(all)
	return all, nil
}

// streamZip writes entries to w as a ZIP archive, checking
// ticket.Cancelled() between every file and between every chunk within
// a file.
func streamZip(w io.Writer, entries []zipEntry, ticket *runtime.TransferTicket) error {
	zw := zip.NewWriter(w)
	for _, e := range entries {
		if ticket.Cancelled() {
			_ = zw.Close()
			return errTransferCancelled
		}
		if e.isDir {
			if _, err := zw.Create(e.name); err != nil {
				_ = zw.Close()
				return err
			}
			continue
		}
		f, err := os.Open(e.src)
		if err != nil {
			// The source vanished between listing and streaming; skip it
			// rather than failing the whole archive.
			continue
		}
		fw, err := zw.Create(e.name)
		if err != nil {
			f.Close()
			_ = zw.Close()
			return err
		}
		copyErr := streamDownload(fw, f, ticket)
		f.Close()
		if copyErr != nil {
			_ = zw.Close()
			return copyErr
		}
	}
	return zw.Close()
}
