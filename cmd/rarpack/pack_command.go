package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"rarpack/internal/config"
	"rarpack/internal/history"
	"rarpack/internal/logging"
	"rarpack/internal/packer"
	"rarpack/internal/progress"
)

type packFlags struct {
	inputs         []string
	dstPath        string
	rarFolder      string
	threads        int
	password       string
	volumeSize     int
	recoveryPct    int
	lock           bool
	genName        bool
	genPass        bool
	nameLength     int
	passwordLength int
	compressLevel  int
	logPerRun      bool
	executable     string
	debug          bool
}

func newPackCommand(ctx *commandContext) *cobra.Command {
	var flags packFlags

	cmd := &cobra.Command{
		Use:   "pack [input folder...]",
		Short: "Compress every entry of the input folders",
		Long: "Compress each file and directory found directly inside the input folders into its own\n" +
			"RAR archive. Archives go either to one destination folder (--dst-path) or to a reserved\n" +
			"subfolder inside every input folder (--rar-folder). Entries whose output folder already\n" +
			"exists are skipped, so an interrupted run can simply be restarted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			overrides := flags.overrides(cmd.Flags())
			overrides.Sources = append(append([]string{}, flags.inputs...), args...)

			rc, err := cfg.RunConfig(overrides)
			if err != nil {
				return err
			}
			if err := rc.Validate(); err != nil {
				return err
			}
			return runPack(cmd, ctx, cfg, rc)
		},
	}

	f := cmd.Flags()
	f.StringArrayVarP(&flags.inputs, "input", "i", nil, "Input folder (repeatable)")
	f.StringVarP(&flags.dstPath, "dst-path", "o", "", "Destination folder for all archives")
	f.StringVarP(&flags.rarFolder, "rar-folder", "x", "", "Reserved subfolder created inside each input folder")
	f.IntVarP(&flags.threads, "threads", "t", config.DefaultThreads(), "Number of parallel compressor processes")
	f.StringVarP(&flags.password, "pass", "p", "", "Fixed archive password")
	f.IntVarP(&flags.volumeSize, "vol-size", "s", 0, "Volume size in MB (0 disables volumes)")
	f.IntVarP(&flags.recoveryPct, "rec-pct", "r", 0, "Recovery record percentage (0 disables it)")
	f.BoolVarP(&flags.lock, "lock", "l", false, "Lock archives")
	f.BoolVar(&flags.genName, "gen-name", false, "Generate random archive names")
	f.BoolVar(&flags.genPass, "gen-pass", false, "Generate a random password per archive")
	f.IntVar(&flags.nameLength, "length-name", 0, "Length of generated archive names")
	f.IntVar(&flags.passwordLength, "length-pass", 0, "Length of generated passwords")
	f.IntVar(&flags.compressLevel, "compress-level", 0, "Compression level (0-5)")
	f.BoolVar(&flags.logPerRun, "log-per-run", false, "Write one outcome CSV per run instead of the shared history")
	f.StringVar(&flags.executable, "rar", "", "Path to the rar executable")
	f.BoolVarP(&flags.debug, "debug", "d", false, "Print compressor command lines and skipped entries")
	cmd.MarkFlagsMutuallyExclusive("dst-path", "rar-folder")

	return cmd
}

// overrides keeps only flags given on the command line so config values survive.
func (p packFlags) overrides(set *pflag.FlagSet) config.Overrides {
	o := config.Overrides{Debug: p.debug}
	if set.Changed("dst-path") {
		o.DestinationDir = &p.dstPath
	}
	if set.Changed("rar-folder") {
		o.Subfolder = &p.rarFolder
	}
	if set.Changed("threads") {
		o.Threads = &p.threads
	}
	if set.Changed("pass") {
		o.FixedPassword = &p.password
	}
	if set.Changed("vol-size") {
		o.SplitSizeMB = &p.volumeSize
	}
	if set.Changed("rec-pct") {
		o.RecoveryPct = &p.recoveryPct
	}
	if set.Changed("lock") {
		o.Lock = &p.lock
	}
	if set.Changed("gen-name") {
		o.GenerateName = &p.genName
	}
	if set.Changed("gen-pass") {
		o.GeneratePassword = &p.genPass
	}
	if set.Changed("length-name") {
		o.NameLength = &p.nameLength
	}
	if set.Changed("length-pass") {
		o.PasswordLength = &p.passwordLength
	}
	if set.Changed("compress-level") {
		o.CompressionLevel = &p.compressLevel
	}
	if set.Changed("log-per-run") {
		o.PerRunLog = &p.logPerRun
	}
	if set.Changed("rar") {
		o.Executable = &p.executable
	}
	return o
}

func runPack(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, rc config.RunConfig) error {
	logger := ctx.diagnosticLogger()

	runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []packer.Option{
		packer.WithSink(progress.NewConsole(cmd.OutOrStdout(), cmd.ErrOrStderr())),
	}
	ledger, err := history.Open(cfg.LedgerPath())
	if err != nil {
		logging.WarnWithContext(logger, "run ledger unavailable; run not recorded", "ledger_open_failed",
			"check paths.state_dir permissions", logging.Error(err))
	} else {
		defer ledger.Close()
		opts = append(opts, packer.WithLedger(ledger))
	}

	summary, err := packer.New(cfg, rc, logger, opts...).ProcessFolders(runCtx, rc.Sources)
	if err != nil {
		return err
	}
	if summary.Stopped {
		return context.Canceled
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d entries failed", summary.Failed, summary.Total)
	}
	return nil
}
