// Command lsserver serves the pixel classifier over HTTP. The model trains in
// the background at startup; until it is ready classification requests get
// 503 with kind model_not_ready.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"lightshade/internal/config"
	"lightshade/internal/nn"
	"lightshade/internal/segment"
	"lightshade/internal/server"

	log "github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()

	listen := flag.String("listen", cfg.Listen, "Address to listen on")
	release := flag.Bool("release", cfg.Release, "Run gin in release mode")
	flag.Parse()

	cfg.ApplyLogLevel()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[Main] Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := segment.NewService(segment.Options{
		Backend: cfg.Backend,
		OnEpoch: func(e nn.EpochStats) {
			log.Debugf("[Train] epoch %2d loss=%.4f acc=%.4f val_acc=%.4f", e.Epoch, e.Loss, e.Accuracy, e.ValAccuracy)
		},
	})
	defer svc.Dispose()

	if err := svc.CreateModel(); err != nil {
		log.Fatalf("[Main] Couldn't create model: %v", err)
	}
	go func() {
		log.Info("[Main] Training classifier in the background")
		if err := <-svc.TrainModelAsync(ctx); err != nil {
			log.Errorf("[Main] Training failed (%s): %v", segment.KindOf(err), err)
		}
	}()

	srv := server.New(svc, server.Options{
		UploadLimit: cfg.UploadLimit(),
		MaxDim:      cfg.MaxDim,
		Release:     *release,
	})
	if err := srv.Run(ctx, *listen); err != nil {
		log.Fatalf("[Main] Server error: %v", err)
	}
}
