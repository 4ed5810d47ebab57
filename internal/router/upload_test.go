package router

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gin-gonic/gin"
)

// doUpload 以 multipart 形式上传一个文件。
func doUpload(t *testing.T, r *gin.Engine, token, filename, contentType string, payload []byte) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(payload); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp map[string]interface{}
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response %q: %v", w.Body.String(), err)
		}
	}
	return w, resp
}

func TestUploadLifecycle(t *testing.T) {
	r, _, _ := newTestRouter(t)
	token, _ := registerAndLogin(t, r, "uploader")

	w, resp := doUpload(t, r, token, "cover.png", "image/png", []byte("fake-png-bytes"))
	if w.Code != http.StatusOK {
		t.Fatalf("upload: status %d body %v", w.Code, resp)
	}
	filename := resp["data"].(map[string]interface{})["filename"].(string)
	if filename == "" {
		t.Fatal("empty filename")
	}

	// 托管目录列表里能看到
	w, resp = doJSON(t, r, http.MethodGet, "/api/images", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("list images: status %d", w.Code)
	}
	images := resp["data"].([]interface{})
	if len(images) != 1 {
		t.Fatalf("expected 1 image, got %d", len(images))
	}
	if images[0].(map[string]interface{})["filename"] != filename {
		t.Errorf("listed filename mismatch: %v", images[0])
	}

	w, _ = doJSON(t, r, http.MethodDelete, "/api/upload/"+filename, nil, token)
	if w.Code != http.StatusOK {
		t.Errorf("delete image: expected 200, got %d", w.Code)
	}
	w, _ = doJSON(t, r, http.MethodDelete, "/api/upload/"+filename, nil, token)
	if w.Code != http.StatusNotFound {
		t.Errorf("delete missing image: expected 404, got %d", w.Code)
	}
}

func TestUploadRejectsNonImage(t *testing.T) {
	r, _, _ := newTestRouter(t)
	token, _ := registerAndLogin(t, r, "uploader")

	w, _ := doUpload(t, r, token, "evil.sh", "application/x-sh", []byte("#!/bin/sh"))
	if w.Code != http.StatusBadRequest {
		t.Errorf("shell script upload: expected 400, got %d", w.Code)
	}
	w, _ = doUpload(t, r, token, "fake.png", "text/plain", []byte("not image"))
	if w.Code != http.StatusBadRequest {
		t.Errorf("wrong content type: expected 400, got %d", w.Code)
	}
	w, _ = doUpload(t, r, "", "cover.png", "image/png", []byte("x"))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("upload without token: expected 401, got %d", w.Code)
	}
}

func TestDeleteImageRejectsTraversal(t *testing.T) {
	r, _, _ := newTestRouter(t)
	token, _ := registerAndLogin(t, r, "uploader")

	for _, name := range []string{".hidden.png", "notes.txt", "..png"} {
		w, _ := doJSON(t, r, http.MethodDelete, "/api/upload/"+name, nil, token)
		if w.Code != http.StatusBadRequest {
			t.Errorf("delete %q: expected 400, got %d", name, w.Code)
		}
	}
}
