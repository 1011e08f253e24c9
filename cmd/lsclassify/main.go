// Command lsclassify trains the pixel classifier, classifies one photograph
// and writes the color-coded result.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"lightshade/internal/backend"
	"lightshade/internal/config"
	"lightshade/internal/geotag"
	lsimage "lightshade/internal/image"
	"lightshade/internal/nn"
	"lightshade/internal/render"
	"lightshade/internal/segment"

	log "github.com/sirupsen/logrus"
)

type report struct {
	Image            string              `json:"image"`
	Width            int                 `json:"width"`
	Height           int                 `json:"height"`
	LightPercentage  float64             `json:"porcentaje_luz"`
	ShadowPercentage float64             `json:"porcentaje_sombra"`
	ClassCounts      [4]int              `json:"class_counts"`
	GPS              *geotag.Coordinates `json:"gps,omitempty"`
	Output           string              `json:"output,omitempty"`
	UploadID         string              `json:"upload_id,omitempty"`
}

func main() {
	cfg := config.Load()

	imagePath := flag.String("image", "", "Path to plot photograph")
	outPath := flag.String("out", "", "Where to write the classification PNG")
	asJSON := flag.Bool("json", false, "Print the result as JSON")
	seed := flag.Int64("seed", 0, "Seed for training (0 = time-based)")
	maxDim := flag.Int("max-dim", cfg.MaxDim, "Downscale images larger than this (0 = off)")
	upload := flag.Bool("upload", false, "Upload the photograph to the processing API")
	empresa := flag.String("empresa", "", "Empresa for the upload")
	fundo := flag.String("fundo", "", "Fundo for the upload")
	sector := flag.String("sector", "", "Sector for the upload")
	lote := flag.String("lote", "", "Lote for the upload")
	hilera := flag.String("hilera", "", "Row (hilera) for the upload")
	planta := flag.String("planta", "", "Plant number for the upload")
	verbose := flag.Bool("v", false, "Log training progress")
	flag.Parse()

	if *imagePath == "" {
		fmt.Println("Usage: lsclassify -image <path> [-out result.png] [-json] [-upload -empresa E -fundo F ...]")
		os.Exit(1)
	}

	cfg.ApplyLogLevel()
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	data, err := os.ReadFile(*imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open image: %v\n", err)
		os.Exit(1)
	}
	layer, err := lsimage.DecodeBytes(data, lsimage.LoadOptions{MaxDim: *maxDim})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to decode image: %v\n", err)
		os.Exit(1)
	}
	if !*asJSON {
		fmt.Printf("Loaded %s image: %dx%d pixels", layer.Format, layer.Width(), layer.Height())
		if layer.Downscaled() {
			fmt.Printf(" (from %dx%d)", layer.SourceWidth, layer.SourceHeight)
		}
		fmt.Println()
	}

	coords, err := geotag.ExtractBytes(data)
	if err != nil {
		log.Warnf("GPS lookup failed: %v", err)
	}

	opts := segment.Options{Backend: cfg.Backend}
	if *seed != 0 {
		opts.Rand = rand.New(rand.NewSource(*seed))
	}
	opts.OnEpoch = func(e nn.EpochStats) {
		log.Debugf("epoch %2d loss=%.4f acc=%.4f val_loss=%.4f val_acc=%.4f",
			e.Epoch, e.Loss, e.Accuracy, e.ValLoss, e.ValAccuracy)
	}
	svc := segment.NewService(opts)
	defer svc.Dispose()

	if !*asJSON {
		fmt.Println("Training classifier...")
	}
	if err := svc.Prepare(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to prepare classifier (%s): %v\n", segment.KindOf(err), err)
		os.Exit(1)
	}

	res, err := svc.ClassifyImagePixels(layer.Buffer())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Classification failed (%s): %v\n", segment.KindOf(err), err)
		os.Exit(1)
	}

	rep := report{
		Image:            filepath.Base(*imagePath),
		Width:            res.Width,
		Height:           res.Height,
		LightPercentage:  round2(res.LightPercentage),
		ShadowPercentage: round2(res.ShadowPercentage),
		ClassCounts:      res.ClassCounts,
		GPS:              coords,
	}

	if *outPath != "" {
		if err := writePNG(*outPath, res); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write output: %v\n", err)
			os.Exit(1)
		}
		rep.Output = *outPath
	}

	if *upload {
		req := backend.ProcessRequest{
			Empresa:      *empresa,
			Fundo:        *fundo,
			Sector:       *sector,
			Lote:         *lote,
			Hilera:       *hilera,
			NumeroPlanta: *planta,
			Filename:     filepath.Base(*imagePath),
			Image:        bytes.NewReader(data),
		}
		if coords != nil {
			req.Latitud, req.Longitud = &coords.Lat, &coords.Lng
		}
		up, err := backend.NewClient(cfg.APIURL).ProcessImage(ctx, req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Upload failed: %v\n", err)
			os.Exit(1)
		}
		rep.UploadID = string(up.ID)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode result: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fmt.Printf("\nLight:  %6.2f%%\n", rep.LightPercentage)
	fmt.Printf("Shadow: %6.2f%%\n", rep.ShadowPercentage)
	fmt.Printf("Classes: soil shadow %d, soil light %d, mesh shadow %d, mesh light %d\n",
		rep.ClassCounts[0], rep.ClassCounts[1], rep.ClassCounts[2], rep.ClassCounts[3])
	if coords != nil {
		fmt.Printf("GPS: %s\n", coords)
	} else {
		fmt.Println("GPS: not found")
	}
	if rep.Output != "" {
		fmt.Printf("Wrote %s\n", rep.Output)
	}
	if rep.UploadID != "" {
		fmt.Printf("Uploaded as %s\n", rep.UploadID)
	}
	fmt.Printf("Classified in %v\n", res.Elapsed)
}

func writePNG(path string, res *segment.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render.EncodePNG(f, res.Processed); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
