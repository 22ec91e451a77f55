package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/d1nch8g/vocalize/analysis"
	"github.com/d1nch8g/vocalize/audio"
	"github.com/d1nch8g/vocalize/codec"
	"github.com/d1nch8g/vocalize/config"
	"github.com/d1nch8g/vocalize/logger"
	"github.com/d1nch8g/vocalize/metrics"
	"github.com/d1nch8g/vocalize/session"
)

func main() {
	envFile := flag.String("env", ".env", "path to the env file")
	mp3File := flag.String("file", "", "replay an mp3 file instead of recording from the microphone")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfigFrom(*envFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	opts := []logger.Option{logger.Name("vocalize"), logger.Level(cfg.LogLevel)}
	if cfg.LogFile != "" {
		opts = append(opts, logger.File(cfg.LogFile))
	}
	appLog, err := logger.New(opts...)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer appLog.Sync()

	// Setup signal handling
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	codec.Default.SetLogger(appLog)
	if codec.EnsureReady(ctx) == codec.Degraded {
		fmt.Println("Warning: WAV encoder unavailable, recordings will be sent as raw PCM")
	}

	m := metrics.NewMetrics()
	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, m, appLog)
	}

	analyzer := analysis.NewClient(analysis.Config{
		URL:       cfg.Analysis.URL,
		HealthURL: cfg.Analysis.HealthURL,
		Timeout:   cfg.Analysis.Timeout,
	}, appLog)

	healthCtx, healthCancel := context.WithTimeout(ctx, 3*time.Second)
	if err := analyzer.Health(healthCtx); err != nil {
		appLog.Warnw("analysis service health check failed", "url", cfg.Analysis.URL, "error", err)
		fmt.Printf("Warning: analysis service at %s is not responding\n", cfg.Analysis.URL)
	}
	healthCancel()

	var ctrl *session.Controller
	var source audio.Source
	if *mp3File != "" {
		source = audio.NewMP3Source(*mp3File, cfg.Audio.FramesPerBuffer, appLog,
			audio.OnEnd(func() {
				if ctrl != nil {
					ctrl.Stop()
				}
			}))
	} else {
		// Initialize audio capture
		mic := audio.NewPortAudioSource(audio.Config{
			SampleRate:      cfg.Audio.SampleRate,
			FramesPerBuffer: cfg.Audio.FramesPerBuffer,
			InputChannels:   cfg.Audio.InputChannels,
		}, appLog)
		if err := mic.Initialize(); err != nil {
			log.Fatalf("Failed to initialize PortAudio: %v", err)
		}
		defer mic.Terminate()
		source = mic
	}

	ctrl = session.NewController(
		session.Config{
			TickPeriod:      cfg.TickPeriod,
			AnalysisTimeout: cfg.Analysis.Timeout,
		},
		source,
		codec.Default,
		analyzer,
		session.WithLogger(appLog),
		session.WithMetrics(m),
		session.WithObserver(newPrinter().print),
	)
	defer ctrl.Close()

	fmt.Println("Press Enter (or type 'start'/'stop') to record, 'quit' to exit.")

	commands := make(chan string)
	go readCommands(commands)

	for {
		select {
		case <-sig:
			fmt.Println("\nStopping...")
			return
		case cmd, ok := <-commands:
			if !ok {
				finishInput(ctrl, cfg.Analysis.Timeout)
				return
			}
			if quit := handle(ctx, ctrl, cmd); quit {
				return
			}
		}
	}
}

func handle(ctx context.Context, ctrl *session.Controller, cmd string) bool {
	switch strings.ToLower(strings.TrimSpace(cmd)) {
	case "":
		if ctrl.State() == session.Listening {
			ctrl.Stop()
			return false
		}
		startRecording(ctx, ctrl)
	case "start", "s":
		startRecording(ctx, ctrl)
	case "stop", "x":
		ctrl.Stop()
	case "cancel", "c":
		if ctrl.Discard() {
			fmt.Println("Recording discarded.")
		}
	case "quit", "q", "exit":
		return true
	default:
		fmt.Printf("Unknown command %q\n", cmd)
	}
	return false
}

func startRecording(ctx context.Context, ctrl *session.Controller) {
	err := ctrl.Start(ctx)
	switch {
	case err == nil:
	case errors.Is(err, session.ErrBusy):
		fmt.Println("Busy, wait for the current recording to finish.")
	case errors.Is(err, session.ErrAcquisition):
		fmt.Printf("Error: could not access microphone: %v\n", err)
	default:
		fmt.Printf("Error: %v\n", err)
	}
}

func readCommands(out chan<- string) {
	defer close(out)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		out <- scanner.Text()
	}
}

// finishInput submits an active recording when input ends and lets the
// pending analysis finish.
func finishInput(ctrl *session.Controller, timeout time.Duration) {
	ctrl.Stop()
	deadline := time.Now().Add(timeout + time.Second)
	for ctrl.State() != session.Idle && time.Now().Before(deadline) {
		time.Sleep(100 * time.Millisecond)
	}
}

func serveMetrics(addr string, m *metrics.Metrics, appLog logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	appLog.Infow("serving metrics", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		appLog.Errorw("metrics server stopped", "error", err)
	}
}
