package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ErrConfiguration is returned by Validate for out-of-range settings.
var ErrConfiguration = errors.New("invalid configuration")

type Config struct {
	Paths     PathsConfig     `mapstructure:"paths"`
	Log       LogConfig       `mapstructure:"log"`
	Segment   SegmentConfig   `mapstructure:"segment"`
	Slicer    SlicerConfig    `mapstructure:"slicer"`
	STT       STTConfig       `mapstructure:"stt"`
	Phonemize PhonemizeConfig `mapstructure:"phonemize"`
	Build     BuildConfig     `mapstructure:"build"`
	Repair    RepairConfig    `mapstructure:"repair"`
	Upload    UploadConfig    `mapstructure:"upload"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Server    ServerConfig    `mapstructure:"server"`
}

type PathsConfig struct {
	ProjectsDir string `mapstructure:"projects_dir"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type SegmentConfig struct {
	MultiSentenceShare float64 `mapstructure:"multi_sentence_share"`
	MinDuration        float64 `mapstructure:"min_duration"`
	Seed               int64   `mapstructure:"seed"`
	SpeakerID          string  `mapstructure:"speaker_id"`
	StrictTerminators  bool    `mapstructure:"strict_terminators"`
}

type SlicerConfig struct {
	FFmpegPath string `mapstructure:"ffmpeg_path"`
	Workers    int    `mapstructure:"workers"`
}

type STTConfig struct {
	Command  []string `mapstructure:"command"`
	Language string   `mapstructure:"language"`
}

type PhonemizeConfig struct {
	EspeakPath string `mapstructure:"espeak_path"`
	Language   string `mapstructure:"language"`
}

type BuildConfig struct {
	MaxLen     int     `mapstructure:"max_len"`
	TrainShare float64 `mapstructure:"train_share"`
	SizeLimit  int     `mapstructure:"size_limit"`
	EOSMarker  string  `mapstructure:"eos_marker"`
	Seed       int64   `mapstructure:"seed"`
}

type RepairConfig struct {
	MinMS     int  `mapstructure:"min_ms"`
	Strict    bool `mapstructure:"strict"`
	SilenceMS int  `mapstructure:"silence_ms"`
}

type UploadConfig struct {
	Target string `mapstructure:"target"`
}

type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

type ServerConfig struct {
	ListenAddr      string `mapstructure:"listen_addr"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	return Config{
		Paths: PathsConfig{
			ProjectsDir: "./projects",
		},
		Log: LogConfig{
			Level: "info",
			File:  "",
		},
		Segment: SegmentConfig{
			MultiSentenceShare: 10,
			MinDuration:        1.0,
			Seed:               0,
			SpeakerID:          "default",
			StrictTerminators:  false,
		},
		Slicer: SlicerConfig{
			FFmpegPath: "ffmpeg",
			Workers:    32,
		},
		STT: STTConfig{
			Command:  []string{"make", "stt", "FILE={input}", "OUT_DIR={out_dir}", "LANG={lang}"},
			Language: "en",
		},
		Phonemize: PhonemizeConfig{
			EspeakPath: "espeak-ng",
			Language:   "en-us",
		},
		Build: BuildConfig{
			MaxLen:     400,
			TrainShare: 0.99,
			SizeLimit:  0,
			EOSMarker:  " …",
			Seed:       0,
		},
		Repair: RepairConfig{
			MinMS:     1000,
			Strict:    true,
			SilenceMS: 100,
		},
		Server: ServerConfig{
			ListenAddr:      ":7860",
			ShutdownTimeout: 30,
		},
	}
}

// flagKeys maps each registered flag to its nested config key.
var flagKeys = map[string]string{
	"projects-dir":                 "paths.projects_dir",
	"log-level":                    "log.level",
	"log-file":                     "log.file",
	"segment-multi-sentence-share": "segment.multi_sentence_share",
	"segment-min-duration":         "segment.min_duration",
	"segment-seed":                 "segment.seed",
	"segment-speaker-id":           "segment.speaker_id",
	"segment-strict-terminators":   "segment.strict_terminators",
	"slicer-ffmpeg-path":           "slicer.ffmpeg_path",
	"slicer-workers":               "slicer.workers",
	"stt-command":                  "stt.command",
	"stt-language":                 "stt.language",
	"phonemize-espeak-path":        "phonemize.espeak_path",
	"phonemize-language":           "phonemize.language",
	"build-max-len":                "build.max_len",
	"build-train-share":            "build.train_share",
	"build-size-limit":             "build.size_limit",
	"build-eos-marker":             "build.eos_marker",
	"build-seed":                   "build.seed",
	"repair-min-ms":                "repair.min_ms",
	"repair-strict":                "repair.strict",
	"repair-silence-ms":            "repair.silence_ms",
	"upload-target":                "upload.target",
	"metrics-textfile":             "metrics.textfile",
	"server-listen-addr":           "server.listen_addr",
	"server-shutdown-timeout":      "server.shutdown_timeout",
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("projects-dir", defaults.Paths.ProjectsDir, "Root directory holding project folders")
	fs.String("log-level", defaults.Log.Level, "Log level (debug|info|warn|error)")
	fs.String("log-file", defaults.Log.File, "Optional rotating log file")
	fs.Float64("segment-multi-sentence-share", defaults.Segment.MultiSentenceShare, "Percent chance (0-100) to merge a sentence with the next one")
	fs.Float64("segment-min-duration", defaults.Segment.MinDuration, "Minimum sentence duration in seconds")
	fs.Int64("segment-seed", defaults.Segment.Seed, "Random seed for merge draws (0 = time based)")
	fs.String("segment-speaker-id", defaults.Segment.SpeakerID, "Speaker id assigned to transcribed sentences")
	fs.Bool("segment-strict-terminators", defaults.Segment.StrictTerminators, "Only close on '.', '..', '?' or '!' word endings as emitted by the STT engine")
	fs.String("slicer-ffmpeg-path", defaults.Slicer.FFmpegPath, "Path to ffmpeg executable")
	fs.Int("slicer-workers", defaults.Slicer.Workers, "Max concurrent ffmpeg extractions")
	fs.StringSlice("stt-command", defaults.STT.Command, "STT command template ({input}, {out_dir}, {lang})")
	fs.String("stt-language", defaults.STT.Language, "Language code passed to the STT command")
	fs.String("phonemize-espeak-path", defaults.Phonemize.EspeakPath, "Path to espeak-ng executable")
	fs.String("phonemize-language", defaults.Phonemize.Language, "espeak-ng voice/language")
	fs.Int("build-max-len", defaults.Build.MaxLen, "Maximum text/phoneme length in characters")
	fs.Float64("build-train-share", defaults.Build.TrainShare, "Train partition share in [0,1]")
	fs.Int("build-size-limit", defaults.Build.SizeLimit, "Subsample to at most N sentences (0 = disabled)")
	fs.String("build-eos-marker", defaults.Build.EOSMarker, "Text appended when building with silent endings")
	fs.Int64("build-seed", defaults.Build.Seed, "Random seed for subsampling and split (0 = time based)")
	fs.Int("repair-min-ms", defaults.Repair.MinMS, "Minimum clip length in milliseconds")
	fs.Bool("repair-strict", defaults.Repair.Strict, "Pad one extra millisecond past the minimum")
	fs.Int("repair-silence-ms", defaults.Repair.SilenceMS, "Trailing silence appended by add-silence")
	fs.String("upload-target", defaults.Upload.Target, "s3://bucket/key or command template with % for the archive path")
	fs.String("metrics-textfile", defaults.Metrics.Textfile, "Write prometheus metrics to this file after each stage")
	fs.String("server-listen-addr", defaults.Server.ListenAddr, "HTTP listen address")
	fs.Int("server-shutdown-timeout", defaults.Server.ShutdownTimeout, "Graceful shutdown timeout in seconds")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := bindFlags(v, opts.Cmd.Flags()); err != nil {
			return Config{}, err
		}
	}

	v.SetEnvPrefix("DSWAV")
	replacer := strings.NewReplacer("-", "_", ".", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("dswav")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

// Validate reports settings that would make a pipeline stage misbehave.
func (c Config) Validate() error {
	if c.Build.TrainShare < 0 || c.Build.TrainShare > 1 {
		return fmt.Errorf("%w: build.train_share %v must be between 0 and 1", ErrConfiguration, c.Build.TrainShare)
	}
	if c.Segment.MultiSentenceShare < 0 || c.Segment.MultiSentenceShare > 100 {
		return fmt.Errorf("%w: segment.multi_sentence_share %v must be between 0 and 100", ErrConfiguration, c.Segment.MultiSentenceShare)
	}
	if c.Slicer.Workers < 1 {
		return fmt.Errorf("%w: slicer.workers must be at least 1", ErrConfiguration)
	}
	if len(c.STT.Command) == 0 {
		return fmt.Errorf("%w: stt.command is empty", ErrConfiguration)
	}
	if c.Build.MaxLen < 1 {
		return fmt.Errorf("%w: build.max_len must be positive", ErrConfiguration)
	}
	return nil
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("paths.projects_dir", c.Paths.ProjectsDir)
	v.SetDefault("log.level", c.Log.Level)
	v.SetDefault("log.file", c.Log.File)
	v.SetDefault("segment.multi_sentence_share", c.Segment.MultiSentenceShare)
	v.SetDefault("segment.min_duration", c.Segment.MinDuration)
	v.SetDefault("segment.seed", c.Segment.Seed)
	v.SetDefault("segment.speaker_id", c.Segment.SpeakerID)
	v.SetDefault("segment.strict_terminators", c.Segment.StrictTerminators)
	v.SetDefault("slicer.ffmpeg_path", c.Slicer.FFmpegPath)
	v.SetDefault("slicer.workers", c.Slicer.Workers)
	v.SetDefault("stt.command", c.STT.Command)
	v.SetDefault("stt.language", c.STT.Language)
	v.SetDefault("phonemize.espeak_path", c.Phonemize.EspeakPath)
	v.SetDefault("phonemize.language", c.Phonemize.Language)
	v.SetDefault("build.max_len", c.Build.MaxLen)
	v.SetDefault("build.train_share", c.Build.TrainShare)
	v.SetDefault("build.size_limit", c.Build.SizeLimit)
	v.SetDefault("build.eos_marker", c.Build.EOSMarker)
	v.SetDefault("build.seed", c.Build.Seed)
	v.SetDefault("repair.min_ms", c.Repair.MinMS)
	v.SetDefault("repair.strict", c.Repair.Strict)
	v.SetDefault("repair.silence_ms", c.Repair.SilenceMS)
	v.SetDefault("upload.target", c.Upload.Target)
	v.SetDefault("metrics.textfile", c.Metrics.Textfile)
	v.SetDefault("server.listen_addr", c.Server.ListenAddr)
	v.SetDefault("server.shutdown_timeout", c.Server.ShutdownTimeout)
}
