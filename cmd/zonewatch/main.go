package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gin-gonic/gin"

	"zonewatch/internal/api"
	"zonewatch/internal/config"
	"zonewatch/internal/events"
	"zonewatch/internal/motion"
	"zonewatch/internal/pipeline"
	"zonewatch/internal/recording"
	"zonewatch/internal/schedule"
	"zonewatch/internal/video"
	"zonewatch/internal/ws"
)

func main() {
	var (
		configF = flag.String("config", "zonewatch.toml", "Path to the configuration file")
		dbgF    = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Parse()

	// Setup logger. Replace logger with your own log package of choice.
	var (
		logger *log.Logger
	)
	{
		logger = log.New(os.Stderr, "[zonewatch] ", log.Ltime)
	}
	if !*dbgF {
		gin.SetMode(gin.ReleaseMode)
	}

	cfg, err := config.Load(*configF)
	if err != nil {
		logger.Fatalf("configuration error: %v", err)
	}

	window, err := schedule.NewWindow(cfg.AlertAfterHours[0], cfg.AlertAfterHours[1])
	if err != nil {
		logger.Fatalf("configuration error: %v", err)
	}
	if window.Degenerate() {
		logger.Printf("alert window %s has equal start and end, alerting around the clock", window)
	}

	source, err := video.NewFFmpegSource(cfg.VideoSource, float64(cfg.OutputFPS), logger)
	if err != nil {
		logger.Fatalf("failed to start video source: %v", err)
	}
	defer source.Close()

	model := motion.NewBackgroundModel(cfg.BGFrames)
	proc := motion.NewFrameProcessor(motion.ProcessorConfig{
		Threshold:        uint8(cfg.Threshold),
		BlurSigma:        float32(cfg.BlurSigma),
		DilateIterations: cfg.DilateIterations,
		MinArea:          cfg.MinArea,
		MaxWidth:         cfg.MaxWidth,
	})
	sm := pipeline.NewStateMachine(cfg.TriggerFrames, cfg.MotionWindow)

	// A nil session manager disables recording: motion is still detected
	// and logged, but no clips are written and no recording events fire.
	var sessions *recording.Manager
	if cfg.SaveVideos {
		recorder, err := recording.NewMJPEGRecorder(cfg.RecordingsDir)
		if err != nil {
			logger.Fatalf("failed to prepare recordings directory: %v", err)
		}
		sessions = recording.NewManager(recorder, cfg.RecordingDuration())
	}

	// Event sinks: SQLite store always, plus an optional plain text log.
	var sinks events.Tee
	var store *events.Store
	if cfg.EventsDB != "" {
		store, err = events.NewStore(cfg.EventsDB)
		if err != nil {
			logger.Fatalf("failed to open event store: %v", err)
		}
		defer store.Close()
		sinks = append(sinks, store)
	}
	if cfg.EventLog != "" {
		fileLog, err := events.NewFileLog(cfg.EventLog)
		if err != nil {
			logger.Fatalf("failed to open event log: %v", err)
		}
		defer fileLog.Close()
		sinks = append(sinks, fileLog)
	}

	bus := pipeline.NewBus()
	defer bus.Close()
	hub := ws.NewHub()
	bus.Subscribe(hub)

	runner := pipeline.NewRunner(source, model, proc, window, sm, sessions, sinks, bus, pipeline.RunnerOptions{
		ROI:       cfg.ROIRect(),
		OutputFPS: cfg.OutputFPS,
	})

	// Create channel used by both the signal handler and server goroutines
	// to notify the main goroutine when to stop.
	errc := make(chan error)

	// Setup interrupt handler so SIGINT and SIGTERM stop the service
	// gracefully, and SIGHUP triggers background recalibration.
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
		for sig := range c {
			if sig == syscall.SIGHUP {
				logger.Printf("received SIGHUP, resetting background model")
				runner.Reset()
				continue
			}
			errc <- fmt.Errorf("%s", sig)
			return
		}
	}()

	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(context.Background())

	if cfg.ListenAddr != "" {
		var lister api.EventLister
		if store != nil {
			lister = store
		}
		server := api.NewServer(runner, lister, hub)
		handleHTTPServer(ctx, cfg.ListenAddr, server.Router(), &wg, errc, logger)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		err := runner.Run(ctx)
		select {
		case errc <- err:
		case <-ctx.Done():
		}
	}()

	logger.Printf("exiting (%v)", <-errc)

	// Send cancellation signal to the goroutines.
	cancel()

	wg.Wait()
	logger.Println("exited")
}
