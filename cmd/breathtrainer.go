package main

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/rivo/tview"
	"github.com/spf13/pflag"
	"gopkg.in/natefinch/lumberjack.v2"
	"tinygo.org/x/bluetooth"

	"breathtrainer/internal/audio"
	"breathtrainer/internal/coach"
	"breathtrainer/internal/config"
	"breathtrainer/internal/engine"
	"breathtrainer/internal/exercise"
	"breathtrainer/internal/heartrate"
	"breathtrainer/internal/journal"
	"breathtrainer/internal/voice"
)

var adapter = bluetooth.DefaultAdapter

// chanWriter mirrors log lines into the UI log pane without ever
// blocking the logger: when the pane falls behind, lines are dropped
// here while the log file keeps everything.
type chanWriter struct {
	ch chan<- string
}

func (w *chanWriter) Write(p []byte) (int, error) {
	line := strings.TrimRight(string(p), "\n")
	select {
	case w.ch <- line:
	default:
	}
	return len(p), nil
}

func main() {
	configPath := pflag.String("config", "", "path to config.yaml (default ~/.breathtrainer/config.yaml)")
	logFile := pflag.String("log-file", "", "log file path (default from config)")
	debug := pflag.Bool("debug", false, "also log to stderr")
	noSound := pflag.Bool("no-sound", false, "disable audio cues and voice prompts")
	noHR := pflag.Bool("no-hr", false, "disable the BLE heart rate monitor")
	hrSim := pflag.Bool("hr-sim", false, "use a simulated heart rate source")
	pflag.Parse()

	// Config loads before the TUI exists, so early problems go to stderr
	bootLogger := log.New(os.Stderr, "", log.LstdFlags)
	settings, err := config.Load(*configPath, bootLogger)
	must("load config", err)

	// Flags override the loaded settings
	if *noSound {
		settings.Audio = "off"
		settings.VoiceCommand = ""
	}
	if *noHR {
		settings.HeartRate = false
	}
	if *logFile != "" {
		settings.LogFile = *logFile
	}

	// Log to a rotated file and mirror every line into the UI log pane
	uiLogChan := make(chan string, 64)
	writers := []io.Writer{
		&lumberjack.Logger{Filename: settings.LogFile, MaxSize: 5, MaxBackups: 2},
		&chanWriter{ch: uiLogChan},
	}
	if *debug {
		writers = append(writers, os.Stderr)
	}
	logger := log.New(io.MultiWriter(writers...), "", log.LstdFlags)
	logger.Printf("Main: breathtrainer starting")

	// Session journal and custom exercise watcher
	store := journal.NewStore(settings.JournalPath, logger)
	watcher := exercise.NewWatcher(settings.ExerciseDir, logger)
	must("watch custom exercises", watcher.Start())

	// Heart rate source: BLE monitor, simulator, or nothing
	var hr heartrate.Source = heartrate.NullSource{}
	switch {
	case *hrSim:
		hr = heartrate.NewSimulator(logger)
	case settings.HeartRate:
		monitor := heartrate.NewMonitor(adapter, logger)
		if err := monitor.Start(); err != nil {
			logger.Printf("Main: heart rate monitor unavailable: %v", err)
			monitor.Shutdown()
		} else {
			hr = monitor
		}
	}

	suspend := engine.NewSuspendWatcher(nil, settings.SuspendThreshold, logger)
	best := coach.NewPersonalBestStore(filepath.Join(config.Dir(), "state.json"), logger)

	app := tview.NewApplication()
	model := coach.NewUIModel(watcher, hr, store, logger, uiLogChan)
	manager := coach.NewSessionManager(coach.NewSessionManagerArg{
		Model:        model,
		Cues:         buildCuePlayer(settings, logger),
		Announcer:    buildAnnouncer(settings, logger),
		Store:        store,
		HeartRate:    hr,
		Suspend:      suspend,
		PersonalBest: settings.PersonalBest,
		Best:         best,
		Options: engine.Options{
			PollInterval:      settings.PollInterval,
			SpeechRate:        settings.SpeechRate,
			SpeechFloor:       settings.SpeechFloor,
			ContractionWindow: settings.ContractionWindow,
		},
		Logger: logger,
	})
	controller := coach.NewUIController(model, manager, logger)

	cursesView := coach.NewCursesUIView(logger, app)
	baseView := coach.NewBaseUIView(coach.NewBaseUIViewArg{
		UIViewImpl:   cursesView,
		UIModel:      model,
		UIController: controller,
		Logger:       logger,
	})

	must("run UI", baseView.Run())

	// Teardown in reverse dependency order. The controller cascades into
	// the manager, which stops and journals a still-live session and owns
	// the audio and voice backends.
	baseView.Shutdown()
	controller.Shutdown()
	model.Shutdown()
	watcher.Shutdown()
	suspend.Shutdown()
	hr.Shutdown()
	logger.Printf("Main: goodbye")
}

func buildCuePlayer(settings config.Settings, logger *log.Logger) audio.CuePlayer {
	switch settings.Audio {
	case "command":
		if settings.AudioCommand == "" {
			logger.Printf("Main: audio backend 'command' needs audio_command set, cues off")
			return audio.NullPlayer{}
		}
		return audio.NewCommandPlayer(settings.AudioCommand, logger)
	case "off":
		return audio.NullPlayer{}
	default:
		return audio.NewBellPlayer(os.Stdout, logger)
	}
}

func buildAnnouncer(settings config.Settings, logger *log.Logger) voice.Announcer {
	if settings.VoiceCommand == "" {
		return voice.NullAnnouncer{}
	}
	return voice.NewCommandAnnouncer(settings.VoiceCommand, logger)
}

func must(action string, err error) {
	if err != nil {
		panic("failed to " + action + ": " + err.Error())
	}
}
