package httpsurface

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func rootDir(t *testing.T, srv *Server) string {
	t.Helper()
	return srv.rt.Settings().SharedFolderPath
}

func TestFilesListSortsDirectoriesFirstAndHidesDotfiles(t *testing.T) {
	srv, rt, _ := newTestServer(t)
	_, cookie := pairDevice(t, rt)
	root := rootDir(t, srv)

	require.NoError(t, os.Mkdir(filepath.Join(root, "zzz-dir"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(root, "aaa-dir"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "readme.txt"), []byte("hi"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".secret"), []byte("hi"), 0o644))

	w := doRequest(srv, http.MethodGet, "/api/files/list", cookie)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Items []fileItem `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 3)
	require.Equal(t, "aaa-dir", resp.Items[0].Name)
	require.True(t, resp.Items[0].Directory)
	require.Equal(t, "zzz-dir", resp.Items[1].Name)
	require.Equal(t, "readme.txt", resp.Items[2].Name)
}

func TestFilesListRequiresSession(t *testing.T) {
	srv, _, _ := newTestServer(t)
	w := doRequest(srv, http.MethodGet, "/api/files/list", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestFilesUploadAndDownloadRoundTrip(t *testing.T) {
	srv, rt, _ := newTestServer(t)
	_, cookie := pairDevice(t, rt)

	body := []byte("hello mediabus")
	req := httptest.NewRequest(http.MethodPut, "/api/files/upload?name=note.txt", bytes.NewReader(body))
	req.ContentLength = int64(len(body))
	req.AddCookie(&http.Cookie{Name: "mb_session", Value: cookie})
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var uploadResp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &uploadResp))
	require.Equal(t, "note.txt", uploadResp["name"])

	dw := doRequest(srv, http.MethodGet, "/api/files/download?path=note.txt", cookie)
	require.Equal(t, http.StatusOK, dw.Code)
	require.Equal(t, body, dw.Body.Bytes())
	require.Contains(t, dw.Header().Get("Content-Disposition"), "note.txt")
}

func TestFilesUploadCollisionRenames(t *testing.T) {
	srv, rt, _ := newTestServer(t)
	_, cookie := pairDevice(t, rt)
	root := rootDir(t, srv)

	require.NoError(t, os.WriteFile(filepath.Join(root, "dup.txt"), []byte("original"), 0o644))

	body := []byte("new content")
	req := httptest.NewRequest(http.MethodPut, "/api/files/upload?name=dup.txt", bytes.NewReader(body))
	req.ContentLength = int64(len(body))
	req.AddCookie(&http.Cookie{Name: "mb_session", Value: cookie})
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "dup (1).txt", resp["name"])

	original, err := os.ReadFile(filepath.Join(root, "dup.txt"))
	require.NoError(t, err)
	require.Equal(t, "original", string(original))
}

func TestFilesUploadDeniedWhenDisabled(t *testing.T) {
	srv, rt, _ := newTestServer(t)
	_, cookie := pairDevice(t, rt)

	settings := rt.Settings()
	settings.AllowUpload = false
	require.NoError(t, rt.UpdateSettings(settings))

	req := httptest.NewRequest(http.MethodPut, "/api/files/upload?name=x.txt", strings.NewReader("x"))
	req.ContentLength = 1
	req.AddCookie(&http.Cookie{Name: "mb_session", Value: cookie})
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestFilesUploadHiddenFileRejected(t *testing.T) {
	srv, rt, _ := newTestServer(t)
	_, cookie := pairDevice(t, rt)

	req := httptest.NewRequest(http.MethodPut, "/api/files/upload?name=.hidden", strings.NewReader("x"))
	req.ContentLength = 1
	req.AddCookie(&http.Cookie{Name: "mb_session", Value: cookie})
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestFilesMkdirAndDelete(t *testing.T) {
	srv, rt, _ := newTestServer(t)
	_, cookie := pairDevice(t, rt)

	w := doRequest(srv, http.MethodPost, "/api/files/mkdir?name=photos", cookie)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "photos", resp["path"])

	// Creating the same directory again is a conflict.
	w2 := doRequest(srv, http.MethodPost, "/api/files/mkdir?name=photos", cookie)
	require.Equal(t, http.StatusConflict, w2.Code)

	dw := doRequest(srv, http.MethodDelete, "/api/files/delete?path=photos", cookie)
	require.Equal(t, http.StatusOK, dw.Code)

	_, err := os.Stat(filepath.Join(rootDir(t, srv), "photos"))
	require.True(t, os.IsNotExist(err))
}

func TestFilesDeleteDeniedWhenDisabled(t *testing.T) {
	srv, rt, _ := newTestServer(t)
	_, cookie := pairDevice(t, rt)
	root := rootDir(t, srv)
	require.NoError(t, os.WriteFile(filepath.Join(root, "keep.txt"), []byte("x"), 0o644))

	settings := rt.Settings()
	settings.AllowDelete = false
	require.NoError(t, rt.UpdateSettings(settings))

	w := doRequest(srv, http.MethodDelete, "/api/files/delete?path=keep.txt", cookie)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestFilesRename(t *testing.T) {
	srv, rt, _ := newTestServer(t)
	_, cookie := pairDevice(t, rt)
	root := rootDir(t, srv)
	require.NoError(t, os.WriteFile(filepath.Join(root, "old.txt"), []byte("x"), 0o644))

	w := doRequest(srv, http.MethodPost, "/api/files/rename?path=old.txt&name=new.txt", cookie)
	require.Equal(t, http.StatusOK, w.Code)

	_, err := os.Stat(filepath.Join(root, "new.txt"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, "old.txt"))
	require.True(t, os.IsNotExist(err))
}

func TestFilesDownloadZipContainsAllEntriesSorted(t *testing.T) {
	srv, rt, _ := newTestServer(t)
	_, cookie := pairDevice(t, rt)
	root := rootDir(t, srv)

	require.NoError(t, os.Mkdir(filepath.Join(root, "dir"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "dir", "b.txt"), []byte("b"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "dir", "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "dir", ".hidden"), []byte("h"), 0o644))

	w := doRequest(srv, http.MethodGet, "/api/files/download-zip?path=dir", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/zip", w.Header().Get("Content-Type"))

	zr, err := zip.NewReader(bytes.NewReader(w.Body.Bytes()), int64(w.Body.Len()))
	require.NoError(t, err)

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	require.Equal(t, []string{"a.txt", "b.txt"}, names)
}

func TestFilesDownloadZipBatch(t *testing.T) {
	srv, rt, _ := newTestServer(t)
	_, cookie := pairDevice(t, rt)
	root := rootDir(t, srv)

	require.NoError(t, os.WriteFile(filepath.Join(root, "one.txt"), []byte("1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "two.txt"), []byte("2"), 0o644))

	w := doRequest(srv, http.MethodGet, "/api/files/download-zip-batch?path=one.txt&path=two.txt", cookie)
	require.Equal(t, http.StatusOK, w.Code)

	zr, err := zip.NewReader(bytes.NewReader(w.Body.Bytes()), int64(w.Body.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
}

func TestFilesDownloadDeniedWhenDisabled(t *testing.T) {
	srv, rt, _ := newTestServer(t)
	_, cookie := pairDevice(t, rt)
	root := rootDir(t, srv)
	require.NoError(t, os.WriteFile(filepath.Join(root, "f.txt"), []byte("x"), 0o644))

	settings := rt.Settings()
	settings.AllowDownload = false
	require.NoError(t, rt.UpdateSettings(settings))

	w := doRequest(srv, http.MethodGet, "/api/files/download?path=f.txt", cookie)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestFilesListRejectsTraversal(t *testing.T) {
	srv, rt, _ := newTestServer(t)
	_, cookie := pairDevice(t, rt)

	w := doRequest(srv, http.MethodGet, "/api/files/list?path=../etc", cookie)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
