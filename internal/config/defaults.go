package config

const (
	defaultLibraryDir           = "~/Music"
	defaultDataDir              = "~/.local/share/mediascan"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultBatchSize            = 32
	defaultWorkerTimeoutSeconds = 300
	defaultNice                 = 10
	defaultFFprobeBinary        = "ffprobe"
	defaultFFmpegBinary         = "ffmpeg"
	defaultLoudnessWindowMillis = 500
	defaultLoudnessSampleRate   = 22050
)

var (
	defaultAnalysisKinds = []string{"probe"}
	defaultScanInclude   = []string{"**/*.{mp3,flac,ogg,opus,m4a,aac,wav,aiff,aif,wma,ape,wv}"}
	defaultScanExclude   = []string{"**/.*/**"}
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir: defaultLibraryDir,
			DataDir:    defaultDataDir,
		},
		Analysis: Analysis{
			BatchSize:            defaultBatchSize,
			WorkerTimeoutSeconds: defaultWorkerTimeoutSeconds,
			Kinds:                append([]string(nil), defaultAnalysisKinds...),
			Nice:                 defaultNice,
			FFprobeBinary:        defaultFFprobeBinary,
			FFmpegBinary:         defaultFFmpegBinary,
			LoudnessWindowMillis: defaultLoudnessWindowMillis,
			LoudnessSampleRate:   defaultLoudnessSampleRate,
		},
		Scan: Scan{
			Include: append([]string(nil), defaultScanInclude...),
			Exclude: append([]string(nil), defaultScanExclude...),
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
