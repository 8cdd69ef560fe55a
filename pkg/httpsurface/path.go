package httpsurface

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mediabus/mediabus-host/pkg/devicestore"
	"github.com/mediabus/mediabus-host/pkg/runtime"
)

// splitPath splits a path query parameter on "/" and validates every
// segment. An empty raw path (the shared folder root) is allowed and
// yields a nil slice; any other input with an empty, ".", "..", or
// backslash-containing segment is rejected outright — the handler must
// never touch the filesystem in that case.
func splitPath(raw string) ([]string, *runtime.Error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, "/")
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		seg := strings.TrimSpace(p)
		if seg == "" || seg == "." || seg == ".." || strings.Contains(seg, "\\") {
			return nil, &runtime.Error{Kind: runtime.KindValidation, Message: "invalid path segment"}
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

// validateName checks a single file/directory name supplied via a
// "name" query parameter (upload destination, mkdir, rename target).
// It must not be empty, a path traversal token, or contain a separator.
func validateName(name string) *runtime.Error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\\") {
		return &runtime.Error{Kind: runtime.KindValidation, Message: "invalid name"}
	}
	return nil
}

func checkHiddenSegments(settings devicestore.HostSettings, segments []string) *runtime.Error {
	if settings.ShowHiddenFiles {
		return nil
	}
	for _, seg := range segments {
		if strings.HasPrefix(seg, ".") {
			return &runtime.Error{Kind: runtime.KindPolicyDenied, Message: "hidden files are disabled"}
		}
	}
	return nil
}

func sharedRoot(settings devicestore.HostSettings) (string, *runtime.Error) {
	if settings.SharedFolderPath == "" {
		return "", &runtime.Error{Kind: runtime.KindResourceUnavailable, Message: "no shared folder configured"}
	}
	return settings.SharedFolderPath, nil
}

func joinSegments(root string, segments []string) string {
	target := root
	for _, seg := range segments {
		target = filepath.Join(target, seg)
	}
	return target
}

// resolveExisting walks segments from the shared folder root, requiring
// every segment to already exist. The final segment may name a file or
// a directory.
func resolveExisting(settings devicestore.HostSettings, segments []string) (string, os.FileInfo, *runtime.Error) {
	root, rerr := sharedRoot(settings)
	if rerr != nil {
		return "", nil, rerr
	}
	if rerr := checkHiddenSegments(settings, segments); rerr != nil {
		return "", nil, rerr
	}
	target := joinSegments(root, segments)
	info, err := os.Stat(target)
	if err != nil {
		return "", nil, &runtime.Error{Kind: runtime.KindNotFound, Message: "path not found"}
	}
	return target, info, nil
}

// resolveDirCreating walks segments from the shared folder root,
// creating every missing directory along the way. Used for upload
// destinations, whose parent directory may not exist yet.
func resolveDirCreating(settings devicestore.HostSettings, segments []string) (string, *runtime.Error) {
	root, rerr := sharedRoot(settings)
	if rerr != nil {
		return "", rerr
	}
	if rerr := checkHiddenSegments(settings, segments); rerr != nil {
		return "", rerr
	}
	target := joinSegments(root, segments)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", &runtime.Error{Kind: runtime.KindInternal, Message: "failed to create directory"}
	}
	return target, nil
}

// uniqueName returns name, or name with " (n)" inserted before its
// extension for the smallest n that does not already exist in dir.
func uniqueName(dir, name string) string {
	if _, err := os.Stat(filepath.Join(dir, name)); os.IsNotExist(err) {
		return name
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, n, ext)
		if _, err := os.Stat(filepath.Join(dir, candidate)); os.IsNotExist(err) {
			return candidate
		}
	}
}

func joinPathSegments(segments []string, name string) string {
	all := make([]string, 0, len(segments)+1)
	all = append(all, segments...)
	if name != "" {
		all = append(all, name)
	}
	return strings.Join(all, "/")
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func atoi64Default(s string, def int64) int64 {
	if s == "" {
		return def
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return def
	}
	return n
}
