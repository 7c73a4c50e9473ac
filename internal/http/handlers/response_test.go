package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestFail_WritesEnvelopeAndRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Writer.Header().Set("X-Request-ID", "rid-1")

	fail(c, http.StatusNotFound, ErrCodeNotFound, "resource not found")

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("json: %v", err)
	}
	if er.RequestID != "rid-1" || er.Code != ErrCodeNotFound || er.Message != "resource not found" {
		t.Fatalf("unexpected envelope: %+v", er)
	}
	if !c.IsAborted() {
		t.Fatalf("fail must abort the context")
	}
}

func TestFail_ServerErrorStillRenders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	// 5xx path logs via the request-scoped logger; no logger in context is fine.
	Fail(c, http.StatusInternalServerError, ErrCodeInternal, "boom")

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("json: %v", err)
	}
	if er.Code != ErrCodeInternal {
		t.Fatalf("code = %q", er.Code)
	}
}

func TestOkAndNoContent(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	ok(c, http.StatusOK, gin.H{"success": true})
	if w.Code != http.StatusOK || w.Body.Len() == 0 {
		t.Fatalf("ok() bad: %d %q", w.Code, w.Body.String())
	}

	w2 := httptest.NewRecorder()
	c2, _ := gin.CreateTestContext(w2)
	noContent(c2)
	c2.Writer.WriteHeaderNow() // Status() is lazy outside an engine-run request
	if w2.Code != http.StatusNoContent || w2.Body.Len() != 0 {
		t.Fatalf("noContent() bad: %d %q", w2.Code, w2.Body.String())
	}
}
