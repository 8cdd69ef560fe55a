package httpsurface

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mediabus/mediabus-host/pkg/runtime"
)

type fileItem struct {
	Name         string `json:"name"`
	Path         string `json:"path"`
	Directory    bool   `json:"directory"`
	Size         int64  `json:"size"`
	LastModified int64  `json:"lastModified"`
}

func (s *Server) handleFilesList(w http.ResponseWriter, r *http.Request) {
	device, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	settings := s.rt.Settings()

	segments, perr := splitPath(r.URL.Query().Get("path"))
	if perr != nil {
		writeError(w, perr)
		return
	}
	target, info, rerr := resolveExisting(settings, segments)
	if rerr != nil {
		writeError(w, rerr)
		return
	}
	if !info.IsDir() {
		writeError(w, &runtime.Error{Kind: runtime.KindValidation, Message: "path is not a directory"})
		return
	}

	entries, err := os.ReadDir(target)
	if err != nil {
		writeError(w, &runtime.Error{Kind: runtime.KindInternal, Message: "failed to read directory"})
		return
	}

	items := make([]fileItem, 0, len(entries))
	for _, e := range entries {
		if !settings.ShowHiddenFiles && strings.HasPrefix(e.Name(), ".") {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		items = append(items, fileItem{
			Name:         e.Name(),
			Path:         joinPathSegments(segments, e.Name()),
			Directory:    e.IsDir(),
			Size:         fi.Size(),
			LastModified: fi.ModTime().UnixMilli(),
		})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Directory != items[j].Directory {
			return items[i].Directory
		}
		return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"deviceId":        device.DeviceID,
		"path":            r.URL.Query().Get("path"),
		"items":           items,
		"showHiddenFiles": settings.ShowHiddenFiles,
	})
}

func (s *Server) handleFilesDownload(w http.ResponseWriter, r *http.Request) {
	device, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	settings := s.rt.Settings()
	if !settings.AllowDownload {
		writeError(w, &runtime.Error{Kind: runtime.KindPolicyDenied, Message: "downloads are disabled"})
		return
	}

	segments, perr := splitPath(r.URL.Query().Get("path"))
	if perr != nil {
		writeError(w, perr)
		return
	}
	target, info, rerr := resolveExisting(settings, segments)
	if rerr != nil {
		writeError(w, rerr)
		return
	}
	if info.IsDir() {
		writeError(w, &runtime.Error{Kind: runtime.KindValidation, Message: "path is not a file"})
		return
	}

	f, err := os.Open(target)
	if err != nil {
		writeError(w, &runtime.Error{Kind: runtime.KindInternal, Message: "failed to open file"})
		return
	}
	defer f.Close()

	q := r.URL.Query()
	ticket, terr := s.rt.BeginTransfer(device.DeviceID, runtime.Downloading, info.Size(),
		q.Get("batchId"), atoiDefault(q.Get("batchTotalFiles"), 0), atoi64Default(q.Get("batchTotalBytes"), 0), atoiDefault(q.Get("batchCompletedFiles"), 0))
	if terr != nil {
		writeError(w, terr)
		return
	}
	defer ticket.Close()

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", info.Name()))
	w.Header().Set("Content-Type", "application/octet-stream")
	if q.Get("batchId") != "" {
		w.Header().Set("X-MediaBus-Batch-Id", q.Get("batchId"))
		w.Header().Set("X-MediaBus-Batch-Total", q.Get("batchTotalFiles"))
		w.Header().Set("X-MediaBus-Batch-Bytes", q.Get("batchTotalBytes"))
		w.Header().Set("X-MediaBus-Batch-Completed", q.Get("batchCompletedFiles"))
	}
	w.WriteHeader(http.StatusOK)

	if err := streamDownload(w, f, ticket); err != nil {
		s.log.Info("download ended early", "deviceId", device.DeviceID, "path", target, "err", err)
	}
}

func (s *Server) handleFilesDownloadZip(w http.ResponseWriter, r *http.Request) {
	device, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	settings := s.rt.Settings()
	if !settings.AllowDownload {
		writeError(w, &runtime.Error{Kind: runtime.KindPolicyDenied, Message: "downloads are disabled"})
		return
	}

	segments, perr := splitPath(r.URL.Query().Get("path"))
	if perr != nil {
		writeError(w, perr)
		return
	}
	target, info, rerr := resolveExisting(settings, segments)
	if rerr != nil {
		writeError(w, rerr)
		return
	}
	if !info.IsDir() {
		writeError(w, &runtime.Error{Kind: runtime.KindValidation, Message: "path is not a directory"})
		return
	}

	entries, err := collectDirEntries(target, settings.ShowHiddenFiles)
	if err != nil {
		writeError(w, &runtime.Error{Kind: runtime.KindInternal, Message: "failed to read directory"})
		return
	}

	ticket, terr := s.rt.BeginTransfer(device.DeviceID, runtime.Downloading, 0, "", 0, 0, 0)
	if terr != nil {
		writeError(w, terr)
		return
	}
	defer ticket.Close()

	name := filepath.Base(target) + ".zip"
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)

	if err := streamZip(w, entries, ticket); err != nil {
		s.log.Info("zip download ended early", "deviceId", device.DeviceID, "path", target, "err", err)
	}
}

func (s *Server) handleFilesDownloadZipBatch(w http.ResponseWriter, r *http.Request) {
	device, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	settings := s.rt.Settings()
	if !settings.AllowDownload {
		writeError(w, &runtime.Error{Kind: runtime.KindPolicyDenied, Message: "downloads are disabled"})
		return
	}

	rawPaths := r.URL.Query()["path"]
	if len(rawPaths) == 0 {
		writeError(w, &runtime.Error{Kind: runtime.KindValidation, Message: "no paths given"})
		return
	}
	segmentsList := make([][]string, 0, len(rawPaths))
	for _, raw := range rawPaths {
		segments, perr := splitPath(raw)
		if perr != nil {
			writeError(w, perr)
			return
		}
		segmentsList = append(segmentsList, segments)
	}

	entries, berr := buildBatchEntries(settings, segmentsList)
	if berr != nil {
		writeError(w, berr)
		return
	}

	ticket, terr := s.rt.BeginTransfer(device.DeviceID, runtime.Downloading, 0, "", 0, 0, 0)
	if terr != nil {
		writeError(w, terr)
		return
	}
	defer ticket.Close()

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="mediabus.zip"`)
	w.WriteHeader(http.StatusOK)

	if err := streamZip(w, entries, ticket); err != nil {
		s.log.Info("batch zip download ended early", "deviceId", device.DeviceID, "err", err)
	}
}

func (s *Server) handleFilesUpload(w http.ResponseWriter, r *http.Request) {
	device, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	settings := s.rt.Settings()
	if !settings.AllowUpload {
		writeError(w, &runtime.Error{Kind: runtime.KindPolicyDenied, Message: "uploads are disabled"})
		return
	}

	q := r.URL.Query()
	segments, perr := splitPath(q.Get("path"))
	if perr != nil {
		writeError(w, perr)
		return
	}
	name := strings.TrimSpace(q.Get("name"))
	if nerr := validateName(name); nerr != nil {
		writeError(w, nerr)
		return
	}
	if !settings.ShowHiddenFiles && strings.HasPrefix(name, ".") {
		writeError(w, &runtime.Error{Kind: runtime.KindPolicyDenied, Message: "hidden files are disabled"})
		return
	}

	dir, derr := resolveDirCreating(settings, segments)
	if derr != nil {
		writeError(w, derr)
		return
	}
	finalName := uniqueName(dir, name)
	destPath := filepath.Join(dir, finalName)

	contentLength := r.ContentLength

	ticket, terr := s.rt.BeginTransfer(device.DeviceID, runtime.Uploading, contentLength,
		q.Get("batchId"), atoiDefault(q.Get("batchTotalFiles"), 0), atoi64Default(q.Get("batchTotalBytes"), 0), atoiDefault(q.Get("batchCompletedFiles"), 0))
	if terr != nil {
		writeError(w, terr)
		return
	}
	defer ticket.Close()

	f, err := os.Create(destPath)
	if err != nil {
		writeError(w, &runtime.Error{Kind: runtime.KindInternal, Message: "failed to create destination file"})
		return
	}

	uerr := streamUpload(f, r.Body, ticket, contentLength)
	f.Close()
	if uerr != nil {
		os.Remove(destPath)
		if uerr.Kind == runtime.KindClientAborted {
			s.log.Info("upload aborted by client", "deviceId", device.DeviceID, "path", destPath)
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeError(w, uerr)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "name": finalName})
}

func (s *Server) handleFilesDelete(w http.ResponseWriter, r *http.Request) {
	_, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	settings := s.rt.Settings()
	if !settings.AllowDelete {
		writeError(w, &runtime.Error{Kind: runtime.KindPolicyDenied, Message: "deletion is disabled"})
		return
	}

	segments, perr := splitPath(r.URL.Query().Get("path"))
	if perr != nil {
		writeError(w, perr)
		return
	}
	if len(segments) == 0 {
		writeError(w, &runtime.Error{Kind: runtime.KindValidation, Message: "cannot delete the shared folder root"})
		return
	}
	target, info, rerr := resolveExisting(settings, segments)
	if rerr != nil {
		writeError(w, rerr)
		return
	}

	var err error
	if info.IsDir() {
		err = os.RemoveAll(target)
	} else {
		err = os.Remove(target)
	}
	if err != nil {
		writeError(w, &runtime.Error{Kind: runtime.KindInternal, Message: "failed to delete"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleFilesMkdir(w http.ResponseWriter, r *http.Request) {
	_, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	settings := s.rt.Settings()
	if !settings.AllowUpload {
		writeError(w, &runtime.Error{Kind: runtime.KindPolicyDenied, Message: "creating directories is disabled"})
		return
	}

	q := r.URL.Query()
	segments, perr := splitPath(q.Get("path"))
	if perr != nil {
		writeError(w, perr)
		return
	}
	name := strings.TrimSpace(q.Get("name"))
	if nerr := validateName(name); nerr != nil {
		writeError(w, nerr)
		return
	}
	if !settings.ShowHiddenFiles && strings.HasPrefix(name, ".") {
		writeError(w, &runtime.Error{Kind: runtime.KindPolicyDenied, Message: "hidden files are disabled"})
		return
	}

	parent, info, rerr := resolveExisting(settings, segments)
	if rerr != nil {
		writeError(w, rerr)
		return
	}
	if !info.IsDir() {
		writeError(w, &runtime.Error{Kind: runtime.KindValidation, Message: "path is not a directory"})
		return
	}

	fullPath := filepath.Join(parent, name)
	if _, err := os.Stat(fullPath); err == nil {
		writeError(w, &runtime.Error{Kind: runtime.KindConflict, Message: "name already exists"})
		return
	}
	if err := os.Mkdir(fullPath, 0o755); err != nil {
		writeError(w, &runtime.Error{Kind: runtime.KindInternal, Message: "failed to create directory"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"path": joinPathSegments(segments, name)})
}

func (s *Server) handleFilesRename(w http.ResponseWriter, r *http.Request) {
	_, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	settings := s.rt.Settings()
	if !settings.AllowUpload {
		writeError(w, &runtime.Error{Kind: runtime.KindPolicyDenied, Message: "renaming is disabled"})
		return
	}

	q := r.URL.Query()
	segments, perr := splitPath(q.Get("path"))
	if perr != nil {
		writeError(w, perr)
		return
	}
	if len(segments) == 0 {
		writeError(w, &runtime.Error{Kind: runtime.KindValidation, Message: "cannot rename the shared folder root"})
		return
	}
	newName := strings.TrimSpace(q.Get("name"))
	if nerr := validateName(newName); nerr != nil {
		writeError(w, nerr)
		return
	}
	if !settings.ShowHiddenFiles && strings.HasPrefix(newName, ".") {
		writeError(w, &runtime.Error{Kind: runtime.KindPolicyDenied, Message: "hidden files are disabled"})
		return
	}

	target, _, rerr := resolveExisting(settings, segments)
	if rerr != nil {
		writeError(w, rerr)
		return
	}

	parentDir := filepath.Dir(target)
	newPath := filepath.Join(parentDir, newName)
	if _, err := os.Stat(newPath); err == nil {
		writeError(w, &runtime.Error{Kind: runtime.KindConflict, Message: "name already exists"})
		return
	}
	if err := os.Rename(target, newPath); err != nil {
		writeError(w, &runtime.Error{Kind: runtime.KindInternal, Message: "failed to rename"})
		return
	}

	renamed := joinPathSegments(segments[:len(segments)-1], newName)
	writeJSON(w, http.StatusOK, map[string]string{"path": q.Get("path"), "renamed": renamed})
}
