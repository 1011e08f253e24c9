package server

import (
	"bytes"
	"context"
	"encoding/json"
	goimage "image"
	"image/color"
	"image/png"
	"math/rand"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"lightshade/internal/segment"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var (
	trainedOnce sync.Once
	trained     *segment.Service
	trainedErr  error
)

func trainedService(t *testing.T) *segment.Service {
	t.Helper()
	trainedOnce.Do(func() {
		trained = segment.NewService(segment.Options{Rand: rand.New(rand.NewSource(7))})
		trainedErr = trained.Prepare(context.Background())
	})
	require.NoError(t, trainedErr)
	return trained
}

func plotPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := goimage.NewNRGBA(goimage.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 40), G: uint8(y * 60), B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartBody(t *testing.T, field, filename string, data []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if data != nil {
		fw, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

type errorResponse struct {
	Error struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

func postTestModel(t *testing.T, s *Server, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/test-model", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := New(segment.NewService(segment.Options{}), Options{})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, false, body["model_ready"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestTestModelBeforeTraining(t *testing.T) {
	s := New(segment.NewService(segment.Options{}), Options{})
	body, ct := multipartBody(t, "imagen", "plot.png", plotPNG(t, 4, 4), nil)
	rec := postTestModel(t, s, body, ct)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var res errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, string(segment.KindModelNotReady), res.Error.Kind)
	assert.NotEmpty(t, res.Error.Message)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/model", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestTestModelClassifies(t *testing.T) {
	s := New(trainedService(t), Options{})
	body, ct := multipartBody(t, "imagen", "plot.png", plotPNG(t, 6, 5), map[string]string{
		"fundo":  "Norte",
		"hilera": "H2",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/test-model", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("X-Request-ID", "req-1")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res TestModelResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))

	assert.True(t, res.Success)
	assert.Equal(t, 6, res.Width)
	assert.Equal(t, 5, res.Height)
	assert.InDelta(t, 100, res.LightPercentage+res.ShadowPercentage, 0.011)
	assert.Equal(t, res.LightPercentage, round2(res.LightPercentage))
	assert.True(t, strings.HasPrefix(res.ProcessedImage, "data:image/png;base64,"))
	assert.True(t, strings.HasPrefix(res.ImageName, "plot_"))
	assert.Equal(t, "Norte", res.Fundo)
	assert.Equal(t, "H2", res.Hilera)
	assert.Equal(t, "req-1", res.RequestID)

	total := 0
	for _, n := range res.ClassCounts {
		total += n
	}
	assert.Equal(t, 30, total)
}

func TestTestModelAcceptsImageField(t *testing.T) {
	s := New(trainedService(t), Options{})
	body, ct := multipartBody(t, "image", "x.png", plotPNG(t, 2, 2), nil)
	rec := postTestModel(t, s, body, ct)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTestModelRejectsBadUploads(t *testing.T) {
	s := New(trainedService(t), Options{})

	body, ct := multipartBody(t, "imagen", "", nil, map[string]string{"fundo": "x"})
	rec := postTestModel(t, s, body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body, ct = multipartBody(t, "imagen", "notes.txt", []byte("not an image"), nil)
	rec = postTestModel(t, s, body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var res errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, string(segment.KindInvalidImageBuffer), res.Error.Kind)
}

func TestModelHistory(t *testing.T) {
	s := New(trainedService(t), Options{})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/model", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(50), body["epochs"])
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, statusOf(segment.KindModelNotReady))
	assert.Equal(t, http.StatusBadRequest, statusOf(segment.KindInvalidImageBuffer))
	assert.Equal(t, http.StatusInternalServerError, statusOf(segment.KindTrainingFailed))
	assert.Equal(t, 12.35, round2(12.345678))
}
