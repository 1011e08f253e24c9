package segment

import (
	"context"
	"fmt"
	"image"
	"math/rand"
	"runtime"
	"strings"
	"sync"
	"time"

	"lightshade/internal/nn"
	"lightshade/internal/pixel"
	"lightshade/internal/render"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// Options configure a Service.
type Options struct {
	// Backend names the numeric backend. Only "cpu" (gonum) is available;
	// empty selects it.
	Backend string

	// Rand seeds weight initialization, dropout, shuffling and the synthetic
	// training data. Nil uses a time-seeded source per model.
	Rand *rand.Rand

	// OnEpoch, if set, receives progress during TrainModel.
	OnEpoch func(nn.EpochStats)
}

// Result is the outcome of classifying one image.
type Result struct {
	Width            int                   `json:"width"`
	Height           int                   `json:"height"`
	LightPercentage  float64               `json:"light_percentage"`
	ShadowPercentage float64               `json:"shadow_percentage"`
	ClassCounts      [pixel.NumClasses]int `json:"class_counts"`
	Map              ClassificationMap     `json:"-"`
	Processed        *image.NRGBA          `json:"-"`
	Elapsed          time.Duration         `json:"elapsed"`
}

// DataURL returns the rendered classification as a PNG data URL.
func (r *Result) DataURL() (string, error) {
	return render.DataURL(r.Processed)
}

// Service owns one pixel classifier through its lifecycle: Initialize,
// CreateModel, TrainModel, then any number of ClassifyImagePixels calls until
// Dispose.
//
// Classifications may run concurrently. TrainModel, CreateModel and Dispose
// are serialized against each other and never overlap a classification.
type Service struct {
	opts Options

	// writeMu serializes operations that replace or mutate the model.
	writeMu sync.Mutex

	mu          sync.RWMutex
	initialized bool
	net         *nn.Network
	trained     bool
	training    bool
	history     nn.History
}

// NewService returns a service that has not prepared its backend yet.
func NewService(opts Options) *Service {
	return &Service{opts: opts}
}

// Initialize prepares the numeric backend.
func (s *Service) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initLocked()
}

func (s *Service) initLocked() error {
	if s.initialized {
		return nil
	}
	switch strings.ToLower(s.opts.Backend) {
	case "", "cpu", "gonum":
	default:
		return fmt.Errorf("%w: backend %q is not available", ErrBackendInitFailed, s.opts.Backend)
	}
	s.initialized = true
	log.Infof("numeric backend ready: cpu (gonum), %d workers", runtime.GOMAXPROCS(0))
	return nil
}

// CreateModel builds a fresh, untrained model, releasing any previous one.
// The backend is initialized first if needed.
func (s *Service) CreateModel() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.initLocked(); err != nil {
		return err
	}
	if s.net != nil {
		log.Debug("replacing existing model")
	}
	s.net = nn.New(s.opts.Rand)
	s.trained = false
	s.history = nn.History{}
	log.Infof("model created: %s", s.net.Summary())
	return nil
}

// TrainModel fits the current model on a freshly generated synthetic set
// using the fixed schedule (50 epochs, batch 32, 20% validation). It fails
// with ErrModelNotReady if CreateModel has not run and with ErrTrainingFailed
// if the run aborts, in which case the model stays not ready.
func (s *Service) TrainModel(ctx context.Context) (nn.History, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	net := s.net
	if net == nil {
		s.mu.Unlock()
		return nn.History{}, fmt.Errorf("%w: create the model before training", ErrModelNotReady)
	}
	s.training = true
	s.trained = false
	s.mu.Unlock()

	hist, err := s.fit(ctx, net)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.training = false
	if err != nil {
		return hist, fmt.Errorf("%w: %w", ErrTrainingFailed, err)
	}
	s.trained = true
	s.history = hist
	last := hist.Last()
	log.Infof("model trained in %v: acc=%.4f val_acc=%.4f", hist.Duration.Round(time.Millisecond), last.Accuracy, last.ValAccuracy)
	return hist, nil
}

func (s *Service) fit(ctx context.Context, net *nn.Network) (nn.History, error) {
	ts := pixel.GenerateTrainingData(s.opts.Rand)
	x := mat.NewDense(ts.Len(), nn.InputSize, nil)
	y := mat.NewDense(ts.Len(), nn.OutputSize, nil)
	for i := range ts.Features {
		x.SetRow(i, ts.Features[i])
		y.SetRow(i, ts.Labels[i])
	}

	cfg := nn.DefaultTrainConfig()
	cfg.OnEpoch = s.opts.OnEpoch
	return nn.Train(ctx, net, x, y, cfg)
}

// TrainModelAsync runs TrainModel on its own goroutine. The returned channel
// receives the result and is then closed.
func (s *Service) TrainModelAsync(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		_, err := s.TrainModel(ctx)
		done <- err
	}()
	return done
}

// Prepare initializes the backend, creates a model and trains it.
func (s *Service) Prepare(ctx context.Context) error {
	if err := s.Initialize(); err != nil {
		return err
	}
	if err := s.CreateModel(); err != nil {
		return err
	}
	_, err := s.TrainModel(ctx)
	return err
}

// IsReady reports whether a model exists and has finished training.
func (s *Service) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readyLocked()
}

func (s *Service) readyLocked() bool {
	return s.net != nil && s.trained && !s.training
}

// History returns the summary of the last successful training run.
func (s *Service) History() nn.History {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history
}

// Dispose releases the model. Later classifications fail with
// ErrModelNotReady until a new model is created and trained.
func (s *Service) Dispose() {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.net != nil {
		log.Debug("model disposed")
	}
	s.net = nil
	s.trained = false
	s.history = nn.History{}
}

// ClassifyImagePixels classifies every pixel of buf with the trained model,
// aggregates light and shadow percentages and renders the color-coded image.
// It never modifies the model.
func (s *Service) ClassifyImagePixels(buf PixelBuffer) (res *Result, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.readyLocked() {
		return nil, ErrModelNotReady
	}
	if err := buf.Validate(); err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("classification aborted: %v", r)
		}
	}()

	start := time.Now()
	probs, err := s.net.Predict(samples(buf))
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}

	res = aggregate(buf.Width, buf.Height, probs)
	res.Processed = render.Render(res.Map)
	res.Elapsed = time.Since(start)

	log.Debugf("classified %dx%d image in %v: light=%.2f%% shadow=%.2f%%",
		buf.Width, buf.Height, res.Elapsed.Round(time.Millisecond), res.LightPercentage, res.ShadowPercentage)
	return res, nil
}

// samples lays out one [r, g, b] row per pixel in row-major order.
func samples(buf PixelBuffer) *mat.Dense {
	n := buf.Len()
	data := make([]float64, n*nn.InputSize)
	for i := 0; i < n; i++ {
		data[i*3+0] = float64(buf.Pix[i*4+0])
		data[i*3+1] = float64(buf.Pix[i*4+1])
		data[i*3+2] = float64(buf.Pix[i*4+2])
	}
	return mat.NewDense(n, nn.InputSize, data)
}

// aggregate takes the argmax of every probability row and counts light and
// shadow pixels.
func aggregate(width, height int, probs *mat.Dense) *Result {
	res := &Result{Width: width, Height: height, Map: make(ClassificationMap, height)}

	var light int
	for y := 0; y < height; y++ {
		row := make([]pixel.Class, width)
		for x := 0; x < width; x++ {
			c := pixel.Class(nn.Argmax(probs.RawRowView(y*width + x)))
			row[x] = c
			res.ClassCounts[c]++
			if c.IsLight() {
				light++
			}
		}
		res.Map[y] = row
	}

	total := float64(width * height)
	res.LightPercentage = float64(light) / total * 100
	res.ShadowPercentage = float64(width*height-light) / total * 100
	return res
}
