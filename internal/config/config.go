package config

import (
	"errors"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Settings holds every user-tunable knob. Values come from
// ~/.breathtrainer/config.yaml with defaults for anything unset.
type Settings struct {
	// PersonalBest is the reference breath-hold used to resolve
	// ratio-based table exercises and the max-hold attempt.
	PersonalBest time.Duration

	// PollInterval is the session engine's timing cadence.
	PollInterval time.Duration

	// SpeechRate (chars/sec) and SpeechFloor bound the duration
	// estimate for spoken guided prompts.
	SpeechRate  float64
	SpeechFloor time.Duration

	// ContractionWindow ends an open-ended hold this long after the
	// first logged contraction.
	ContractionWindow time.Duration

	// SuspendThreshold is the clock gap treated as a host suspend.
	SuspendThreshold time.Duration

	// Audio selects the cue backend: "bell", "command" or "off".
	// AudioCommand is the external program for the "command" backend,
	// invoked per cue with the phase kind as its argument.
	Audio        string
	AudioCommand string

	// VoiceCommand is the external text-to-speech program for guided
	// prompts. Empty disables voice; guided phases then run on the
	// estimated duration alone.
	VoiceCommand string

	// HeartRate enables BLE heart rate monitoring.
	HeartRate bool

	JournalPath string
	ExerciseDir string
	LogFile     string
}

// Dir returns the application's dot directory under the user's home.
func Dir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".breathtrainer")
}

// Defaults returns the settings used when no config file exists.
func Defaults() Settings {
	dir := Dir()
	return Settings{
		PersonalBest:      90 * time.Second,
		PollInterval:      100 * time.Millisecond,
		SpeechRate:        15.0,
		SpeechFloor:       2 * time.Second,
		ContractionWindow: 10 * time.Second,
		SuspendThreshold:  5 * time.Second,
		Audio:             "bell",
		AudioCommand:      "",
		VoiceCommand:      "",
		HeartRate:         false,
		JournalPath:       filepath.Join(dir, "journal.json"),
		ExerciseDir:       filepath.Join(dir, "exercises"),
		LogFile:           filepath.Join(dir, "breathtrainer.log"),
	}
}

// Load reads settings from path, or from the default location when path
// is empty. A missing file is not an error; defaults apply.
func Load(path string, logger *log.Logger) (Settings, error) {
	if logger == nil {
		panic("Config: logger cannot be nil")
	}

	defaults := Defaults()

	v := viper.New()
	v.SetDefault("personal_best", defaults.PersonalBest)
	v.SetDefault("poll_interval", defaults.PollInterval)
	v.SetDefault("speech_rate", defaults.SpeechRate)
	v.SetDefault("speech_floor", defaults.SpeechFloor)
	v.SetDefault("contraction_window", defaults.ContractionWindow)
	v.SetDefault("suspend_threshold", defaults.SuspendThreshold)
	v.SetDefault("audio", defaults.Audio)
	v.SetDefault("audio_command", defaults.AudioCommand)
	v.SetDefault("voice_command", defaults.VoiceCommand)
	v.SetDefault("heart_rate", defaults.HeartRate)
	v.SetDefault("journal_path", defaults.JournalPath)
	v.SetDefault("exercise_dir", defaults.ExerciseDir)
	v.SetDefault("log_file", defaults.LogFile)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(Dir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || os.IsNotExist(err) {
			logger.Printf("Config: no config file, using defaults")
		} else {
			return Settings{}, err
		}
	} else {
		logger.Printf("Config: loaded %s", v.ConfigFileUsed())
	}

	s := Settings{
		PersonalBest:      v.GetDuration("personal_best"),
		PollInterval:      v.GetDuration("poll_interval"),
		SpeechRate:        v.GetFloat64("speech_rate"),
		SpeechFloor:       v.GetDuration("speech_floor"),
		ContractionWindow: v.GetDuration("contraction_window"),
		SuspendThreshold:  v.GetDuration("suspend_threshold"),
		Audio:             v.GetString("audio"),
		AudioCommand:      v.GetString("audio_command"),
		VoiceCommand:      v.GetString("voice_command"),
		HeartRate:         v.GetBool("heart_rate"),
		JournalPath:       v.GetString("journal_path"),
		ExerciseDir:       v.GetString("exercise_dir"),
		LogFile:           v.GetString("log_file"),
	}

	if s.PersonalBest <= 0 {
		logger.Printf("Config: invalid personal_best %v, using default %v", s.PersonalBest, defaults.PersonalBest)
		s.PersonalBest = defaults.PersonalBest
	}
	if s.PollInterval <= 0 {
		logger.Printf("Config: invalid poll_interval %v, using default %v", s.PollInterval, defaults.PollInterval)
		s.PollInterval = defaults.PollInterval
	}

	return s, nil
}
