// Package server exposes the pixel classifier over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"lightshade/internal/image"
	"lightshade/internal/segment"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Options configure the HTTP layer.
type Options struct {
	UploadLimit int64 // Maximum request body in bytes
	MaxDim      int   // Downscale limit applied to uploads, 0 disables
	Release     bool
}

// Server serves a Service it does not own. Training and disposal stay with
// the caller.
type Server struct {
	svc     *segment.Service
	opts    Options
	router  *gin.Engine
	started time.Time
}

// New builds the router for svc.
func New(svc *segment.Service, opts Options) *Server {
	if opts.Release {
		gin.SetMode(gin.ReleaseMode)
	}
	if opts.UploadLimit <= 0 {
		opts.UploadLimit = 32 << 20
	}

	s := &Server{svc: svc, opts: opts, started: time.Now()}

	router := gin.New()
	router.Use(gin.Recovery(), requestID(), accessLog(), cors())
	router.MaxMultipartMemory = opts.UploadLimit

	router.GET("/", s.handleRoot)
	router.GET("/health", s.handleHealth)
	router.GET("/api/model", s.handleModel)
	router.OPTIONS("/api/test-model", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	router.POST("/api/test-model", s.handleTestModel)

	s.router = router
	return s
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("[Server] Listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info("[Server] Shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "lightshade classifier",
		"ready":   s.svc.IsReady(),
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"model_ready": s.svc.IsReady(),
		"uptime":      time.Since(s.started).Round(time.Second).String(),
		"timestamp":   time.Now().UTC(),
	})
}

func (s *Server) handleModel(c *gin.Context) {
	if !s.svc.IsReady() {
		writeError(c, segment.ErrModelNotReady)
		return
	}
	hist := s.svc.History()
	c.JSON(http.StatusOK, gin.H{
		"epochs":   len(hist.Epochs),
		"duration": hist.Duration.Round(time.Millisecond).String(),
		"final":    hist.Last(),
	})
}

// TestModelResponse is the body of a successful /api/test-model call.
type TestModelResponse struct {
	Success          bool    `json:"success"`
	LightPercentage  float64 `json:"porcentaje_luz"`
	ShadowPercentage float64 `json:"porcentaje_sombra"`
	Width            int     `json:"width"`
	Height           int     `json:"height"`
	ClassCounts      [4]int  `json:"class_counts"`
	ProcessedImage   string  `json:"processed_image"`
	ImageName        string  `json:"image_name"`
	Fundo            string  `json:"fundo"`
	Sector           string  `json:"sector"`
	Hilera           string  `json:"hilera"`
	ElapsedMS        int64   `json:"elapsed_ms"`
	RequestID        string  `json:"request_id"`
	Message          string  `json:"mensaje"`
}

func (s *Server) handleTestModel(c *gin.Context) {
	logger := requestLogger(c)

	if !s.svc.IsReady() {
		writeError(c, segment.ErrModelNotReady)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.UploadLimit)
	data, name, err := uploadedImage(c)
	if err != nil {
		logger.Debug("[TestModel] Rejected upload: ", err.Error())
		status := http.StatusBadRequest
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			status = http.StatusRequestEntityTooLarge
		}
		c.JSON(status, errorBody(segment.KindInvalidImageBuffer, err.Error()))
		return
	}

	layer, err := image.DecodeBytes(data, image.LoadOptions{MaxDim: s.opts.MaxDim})
	if err != nil {
		writeError(c, fmt.Errorf("%w: %w", segment.ErrInvalidImageBuffer, err))
		return
	}

	res, err := s.svc.ClassifyImagePixels(layer.Buffer())
	if err != nil {
		writeError(c, err)
		return
	}
	dataURL, err := res.DataURL()
	if err != nil {
		writeError(c, err)
		return
	}

	logger.WithFields(log.Fields{
		"image": name,
		"size":  fmt.Sprintf("%dx%d", res.Width, res.Height),
		"light": round2(res.LightPercentage),
	}).Info("[TestModel] Classified")

	c.JSON(http.StatusOK, TestModelResponse{
		Success:          true,
		LightPercentage:  round2(res.LightPercentage),
		ShadowPercentage: round2(res.ShadowPercentage),
		Width:            res.Width,
		Height:           res.Height,
		ClassCounts:      res.ClassCounts,
		ProcessedImage:   dataURL,
		ImageName:        processedName(name),
		Fundo:            c.PostForm("fundo"),
		Sector:           c.PostForm("sector"),
		Hilera:           c.PostForm("hilera"),
		ElapsedMS:        res.Elapsed.Milliseconds(),
		RequestID:        c.GetString(requestIDKey),
		Message:          "image processed",
	})
}

// uploadedImage reads the "imagen" form file, falling back to "image".
func uploadedImage(c *gin.Context) ([]byte, string, error) {
	header, err := c.FormFile("imagen")
	if errors.Is(err, http.ErrMissingFile) {
		header, err = c.FormFile("image")
	}
	if errors.Is(err, http.ErrMissingFile) {
		return nil, "", errors.New("image is missing")
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to read upload: %w", err)
	}

	f, err := header.Open()
	if err != nil {
		return nil, "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read upload: %w", err)
	}
	return data, header.Filename, nil
}

func processedName(original string) string {
	base := strings.TrimSuffix(filepath.Base(original), filepath.Ext(original))
	if base == "" || base == "." {
		base = "imagen"
	}
	return fmt.Sprintf("%s_%s_procesada.png", base, time.Now().Format("20060102_150405"))
}

// round2 rounds a percentage for presentation.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
