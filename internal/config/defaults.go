package config

import "runtime"

const (
	defaultExecutable       = "/usr/bin/rar"
	defaultCompressionLevel = 0
	defaultSplit            = true
	defaultSplitSizeMB      = 42
	defaultGenerateName     = true
	defaultNameLength       = 31
	defaultPrefix           = "RAR_"
	defaultGeneratePassword = true
	defaultPasswordLength   = 21
	defaultSubfolder        = "_rar"
	defaultStateDir         = "~/.local/share/rarpack"
	defaultLogDir           = "~/.local/share/rarpack/logs"
	defaultHistoryFile      = "~/.local/share/rarpack/rarpack_history.csv"
	defaultPerRunDir        = "~/.local/share/rarpack/runs"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultNotifyTimeout    = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Compressor: Compressor{
			Executable: defaultExecutable,
		},
		Archive: Archive{
			CompressionLevel: defaultCompressionLevel,
			Split:            defaultSplit,
			SplitSizeMB:      defaultSplitSizeMB,
		},
		Naming: Naming{
			GenerateName: defaultGenerateName,
			NameLength:   defaultNameLength,
			Prefix:       defaultPrefix,
		},
		Password: Password{
			Generate: defaultGeneratePassword,
			Length:   defaultPasswordLength,
		},
		Output: Output{
			Mode:      OutputDestination,
			Subfolder: defaultSubfolder,
		},
		Workers: Workers{
			Threads: DefaultThreads(),
		},
		Outcome: Outcome{
			Mode:        OutcomeHistory,
			HistoryFile: defaultHistoryFile,
			PerRunDir:   defaultPerRunDir,
		},
		Paths: Paths{
			LogDir:   defaultLogDir,
			StateDir: defaultStateDir,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

// DefaultThreads is half the available CPUs, never less than one.
func DefaultThreads() int {
	return ClampThreads(runtime.NumCPU() / 2)
}

// ClampThreads keeps a worker count inside [1, NumCPU].
func ClampThreads(n int) int {
	if n < 1 {
		return 1
	}
	if max := runtime.NumCPU(); n > max {
		return max
	}
	return n
}
