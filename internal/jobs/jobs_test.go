package jobs_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"rarpack/internal/config"
	"rarpack/internal/discovery"
	"rarpack/internal/jobs"
)

type fixedGenerator struct {
	values []string
	calls  []int
}

func (g *fixedGenerator) String(length int) (string, error) {
	g.calls = append(g.calls, length)
	if len(g.values) == 0 {
		return "", errors.New("exhausted")
	}
	v := g.values[0]
	g.values = g.values[1:]
	return v, nil
}

func baseRun() config.RunConfig {
	return config.RunConfig{
		Executable:     "/usr/bin/rar",
		Mode:           config.OutputDestination,
		DestinationDir: "/dst",
		Subfolder:      "_rar",
		Prefix:         "RAR_",
		NameLength:     31,
		PasswordLength: 21,
	}
}

func TestBuildUsesBaseNamesWhenGenerationDisabled(t *testing.T) {
	factory := jobs.NewFactory(baseRun(), &fixedGenerator{})

	dirJob, err := factory.Build(discovery.Entry{Path: "/src/movieA", IsDir: true, Source: "/src"})
	require.NoError(t, err)
	require.Equal(t, "movieA", dirJob.ArchiveName)
	require.Equal(t, "/dst/RAR_movieA", dirJob.DestinationFolder)
	require.Equal(t, []string{"a", "-ep1", "-m0", "-r", "/dst/RAR_movieA/movieA.rar", "/src/movieA"}, dirJob.Args)

	fileJob, err := factory.Build(discovery.Entry{Path: "/src/file.txt", Source: "/src"})
	require.NoError(t, err)
	require.Equal(t, "file", fileJob.ArchiveName)
	require.Equal(t, "", fileJob.Password)
	require.Equal(t, []string{"a", "-ep1", "-m0", "/dst/RAR_file/file.rar", "/src/file.txt"}, fileJob.Args)
}

func TestBuildFullArgumentOrder(t *testing.T) {
	cfg := baseRun()
	cfg.Executable = `C:\WinRAR\WinRAR.exe`
	cfg.GUIVariant = true
	cfg.GenerateName = true
	cfg.GeneratePassword = true
	cfg.CompressionLevel = 5
	cfg.Split = true
	cfg.SplitSizeMB = 42
	cfg.Lock = true
	cfg.Recovery = true
	cfg.RecoveryPct = 3

	gen := &fixedGenerator{values: []string{"NAMEabc", "PASSxyz"}}
	job, err := jobs.NewFactory(cfg, gen).Build(discovery.Entry{Path: "/src/movieA", IsDir: true, Source: "/src"})
	require.NoError(t, err)

	require.Equal(t, []int{31, 21}, gen.calls)
	require.Equal(t, []string{
		"a", "-ep1", "-ibck", "-m5", "-hpPASSxyz", "-v42m", "-r", "-k", "-rr3p",
		"/dst/RAR_movieA/NAMEabc.rar", "/src/movieA",
	}, job.Args)
	require.Equal(t, "PASSxyz", job.Password)
}

func TestPasswordPriority(t *testing.T) {
	entry := discovery.Entry{Path: "/src/f.bin", Source: "/src"}

	cfg := baseRun()
	cfg.GeneratePassword = true
	cfg.UseFixedPassword = true
	cfg.FixedPassword = "fixed"
	job, err := jobs.NewFactory(cfg, &fixedGenerator{values: []string{"random"}}).Build(entry)
	require.NoError(t, err)
	require.Equal(t, "random", job.Password)

	cfg.GeneratePassword = false
	job, err = jobs.NewFactory(cfg, &fixedGenerator{}).Build(entry)
	require.NoError(t, err)
	require.Equal(t, "fixed", job.Password)
	require.Contains(t, job.Args, "-hpfixed")

	cfg.FixedPassword = ""
	job, err = jobs.NewFactory(cfg, &fixedGenerator{}).Build(entry)
	require.NoError(t, err)
	require.Empty(t, job.Password)
	for _, arg := range job.Args {
		require.False(t, strings.HasPrefix(arg, "-hp"), "unexpected password flag %q", arg)
	}
}

func TestOptionalFlagsNeedPositiveSizes(t *testing.T) {
	cfg := baseRun()
	cfg.Split = true
	cfg.SplitSizeMB = 0
	cfg.Recovery = true
	cfg.RecoveryPct = 0

	job, err := jobs.NewFactory(cfg, nil).Build(discovery.Entry{Path: "/src/f", Source: "/src"})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "-ep1", "-m0", "/dst/RAR_f/f.rar", "/src/f"}, job.Args)
}

func TestSourceModeLayout(t *testing.T) {
	cfg := baseRun()
	cfg.Mode = config.OutputSource
	layout := jobs.NewLayout(cfg)
	entry := discovery.Entry{Path: "/src/movieA", IsDir: true, Source: "/src"}

	require.Equal(t, "/src/_rar", layout.Root("/src"))
	require.Equal(t, "movieA", layout.FolderName(entry))
	require.Equal(t, "/src/_rar/movieA", layout.DestinationFolder(entry))

	fs := afero.NewMemMapFs()
	require.False(t, layout.Compressed(fs, entry))
	require.NoError(t, fs.MkdirAll("/src/_rar/movieA", 0o755))
	require.True(t, layout.Compressed(fs, entry))
}

func TestGeneratorFailureIsReported(t *testing.T) {
	cfg := baseRun()
	cfg.GenerateName = true
	_, err := jobs.NewFactory(cfg, &fixedGenerator{}).Build(discovery.Entry{Path: "/src/f", Source: "/src"})
	require.Error(t, err)
}

func TestCryptoGeneratorFloorAndAlphabet(t *testing.T) {
	gen := jobs.CryptoGenerator{}

	short, err := gen.String(2)
	require.NoError(t, err)
	require.Len(t, short, jobs.MinRandomLength)

	long, err := gen.String(64)
	require.NoError(t, err)
	require.Len(t, long, 64)
	for _, r := range long {
		ok := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		require.True(t, ok, "unexpected rune %q", r)
	}
}
