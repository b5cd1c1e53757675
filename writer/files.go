package writer

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// Options describes the per-run output layout: where the files go, what they
// are named after, and which optional sinks are wanted.
type Options struct {
	Dir             string
	ModelName       string
	Timestamp       string // defaults to Timestamp() when empty
	NumChains       int
	CommentPrefix   string
	SaveStartParams bool
	SaveDiagnostics bool
	SaveMetric      bool
}

// Timestamp returns the filename-safe timestamp shared by all of one run's
// output files.
func Timestamp() string {
	return time.Now().Format("20060102_150405")
}

// TempOutputDir creates a unique output directory under the system temp dir.
func TempOutputDir() (string, error) {
	name := fmt.Sprintf("hammock_output_%d_%d", time.Now().Unix(), os.Getpid())
	dir := filepath.Join(os.TempDir(), name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "Could not create temp output dir %s", dir)
	}
	return dir, nil
}

// EnsureDir creates the output directory if needed.
func EnsureDir(dir string) error {
	return errors.Wrapf(os.MkdirAll(dir, 0o755), "Could not create output dir %s", dir)
}

// FileName builds the canonical per-chain output path:
// <dir>/<model>_<timestamp>_chain<id>_<kind><ext>
func FileName(dir, modelName, timestamp string, chainID int, kind, ext string) string {
	base := fmt.Sprintf("%s_%s_chain%d_%s%s", modelName, timestamp, chainID, kind, ext)
	return filepath.Join(dir, base)
}

// NewChainSets opens one ChainSet per chain. Every open failure is fatal and
// closes whatever was already opened - a run must not start unless all of its
// outputs are writable.
func NewChainSets(opts Options) ([]ChainSet, error) {
	if opts.NumChains < 1 {
		return nil, errors.Errorf("Invalid chain count %d for output writers", opts.NumChains)
	}
	if opts.Timestamp == "" {
		opts.Timestamp = Timestamp()
	}
	if err := EnsureDir(opts.Dir); err != nil {
		return nil, err
	}

	sets := make([]ChainSet, 0, opts.NumChains)
	closeAll := func() {
		for i := range sets {
			sets[i].Close()
		}
	}

	for chain := 1; chain <= opts.NumChains; chain++ {
		var set ChainSet

		sample, err := NewFile(
			FileName(opts.Dir, opts.ModelName, opts.Timestamp, chain, "sample", ".csv"),
			opts.CommentPrefix)
		if err != nil {
			closeAll()
			return nil, errors.Wrapf(err, "Chain %d sample writer", chain)
		}
		set.Samples = sample

		if opts.SaveStartParams {
			sp, err := NewFile(
				FileName(opts.Dir, opts.ModelName, opts.Timestamp, chain, "start_params", ".csv"),
				opts.CommentPrefix)
			if err != nil {
				set.Close()
				closeAll()
				return nil, errors.Wrapf(err, "Chain %d start-params writer", chain)
			}
			set.StartParams = sp
		}

		if opts.SaveDiagnostics {
			dg, err := NewFile(
				FileName(opts.Dir, opts.ModelName, opts.Timestamp, chain, "param_grads", ".csv"),
				opts.CommentPrefix)
			if err != nil {
				set.Close()
				closeAll()
				return nil, errors.Wrapf(err, "Chain %d diagnostics writer", chain)
			}
			set.Diagnostics = dg
		}

		if opts.SaveMetric {
			mw, err := NewJSON(
				FileName(opts.Dir, opts.ModelName, opts.Timestamp, chain, "metric", ".json"))
			if err != nil {
				set.Close()
				closeAll()
				return nil, errors.Wrapf(err, "Chain %d metric writer", chain)
			}
			set.Metric = mw
		}

		sets = append(sets, set)
	}

	return sets, nil
}
