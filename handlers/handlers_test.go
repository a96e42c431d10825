package handlers

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rorocorp/uploadcore/status"
	"github.com/rorocorp/uploadcore/upload"
)

func md5Hex(b []byte) string {
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}

func newTestRouter(t *testing.T) (*gin.Engine, *fakeEngine) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	fe := newFakeEngine()

	asm := &upload.Assembler{Store: fe, UploadsDir: dir}
	h := &Handlers{
		Planner:  &upload.Planner{Store: fe},
		Writer:   &upload.Writer{Store: fe, Assembler: asm, UploadsDir: dir},
		Reporter: &status.Reporter{Store: fe},
	}

	r := gin.New()
	r.POST("/submit_metadata", h.SubmitMetadata)
	r.POST("/upload", h.UploadChunk)
	r.GET("/upload_status/:file_id", h.FileStatus)
	r.GET("/uploaded_files", h.ListFiles)
	r.GET("/health", Health)
	return r, fe
}

func TestSubmitMetadataAndUploadChunkEndToEnd(t *testing.T) {
	r, _ := newTestRouter(t)
	content := []byte("hello world")

	body, _ := json.Marshal(submitMetadataRequest{Filename: "hello.txt", TotalSize: int64(len(content)), Checksum: md5Hex(content)})
	req := httptest.NewRequest(http.MethodPost, "/submit_metadata", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var submitResp struct {
		Data struct {
			FileID string `json:"file_id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submitResp))
	require.NotEmpty(t, submitResp.Data.FileID)

	uploadReq := httptest.NewRequest(http.MethodPost, "/upload", bytes.NewReader(content))
	uploadReq.Header.Set("X-File-ID", submitResp.Data.FileID)
	uploadReq.Header.Set("X-Start-Offset", "0")
	uploadReq.ContentLength = int64(len(content))
	uploadRec := httptest.NewRecorder()
	r.ServeHTTP(uploadRec, uploadReq)
	require.Equal(t, http.StatusOK, uploadRec.Code, uploadRec.Body.String())

	var uploadResp struct {
		Data upload.Result `json:"data"`
	}
	require.NoError(t, json.Unmarshal(uploadRec.Body.Bytes(), &uploadResp))
	assert.Equal(t, "success", uploadResp.Data.Status)

	statusReq := httptest.NewRequest(http.MethodGet, "/upload_status/"+submitResp.Data.FileID, nil)
	statusRec := httptest.NewRecorder()
	r.ServeHTTP(statusRec, statusReq)
	require.Equal(t, http.StatusOK, statusRec.Code)

	var statusResp struct {
		StatusLabel string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(statusRec.Body.Bytes(), &statusResp))
	assert.Equal(t, "completed", statusResp.StatusLabel)
}

func TestUploadChunkMissingFileIDHeader(t *testing.T) {
	r, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/upload", bytes.NewReader([]byte("abc")))
	req.Header.Set("X-Start-Offset", "0")
	req.ContentLength = 3
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFileStatusUnknownFileReturns404(t *testing.T) {
	r, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/upload_status/does-not-exist", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}
