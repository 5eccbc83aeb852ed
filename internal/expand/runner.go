// Package expand drives the recursive unpacking pipeline: it seeds the
// output directory from the top-level input, then repeatedly rescans the
// growing tree for nested archives until a pass finds nothing new or the
// depth budget runs out.
package expand

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/seemrkz/unnest/internal/archive"
	"github.com/seemrkz/unnest/internal/fsutil"
	"github.com/seemrkz/unnest/internal/state"
)

const (
	// DefaultMaxDepth bounds the number of scan passes, and with it the
	// nesting depth that gets expanded.
	DefaultMaxDepth = 8

	// TopDirName is the fixed subdirectory of the output root that receives
	// the top-level input's content.
	TopDirName = "top.extracted"

	// LedgerFileName is the hidden append-only state file inside the output
	// root.
	LedgerFileName = ".unnest.done"

	extractedSuffix = ".extracted"
	gunzippedSuffix = ".gunzipped"
)

var (
	ErrInputMissing     = errors.New("input archive not found")
	ErrUnsupportedInput = errors.New("unsupported top-level archive type")
)

// Options configures one pipeline run.
type Options struct {
	Input     string
	OutputDir string
	MaxDepth  int                // 0 means DefaultMaxDepth
	Tool      archive.Tool       // nil means the native implementation
	Ledger    *state.Ledger      // nil means the ledger file inside OutputDir
	Log       logrus.FieldLogger // nil discards output
}

// Summary reports what one run did.
type Summary struct {
	Passes    int
	Extracted int
	Gunzipped int
	Rejected  int
	Failed    int
	Skipped   int
}

type runner struct {
	tool    archive.Tool
	ledger  *state.Ledger
	log     logrus.FieldLogger
	summary Summary
}

// Run executes the whole pipeline: top-level seed extraction, then up to
// MaxDepth breadth-first passes over the output tree. Each discovered
// archive is fully resolved (extracted, gunzipped, or rejected) and marked
// done before the next is considered; marking always happens after the work
// completed. Top-level failures are returned as errors; failures during
// recursion are logged, counted, and do not stop the run.
func Run(opts Options) (Summary, error) {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	log := opts.Log
	if log == nil {
		silenced := logrus.New()
		silenced.SetOutput(io.Discard)
		log = silenced
	}

	info, err := os.Stat(opts.Input)
	if err != nil || !info.Mode().IsRegular() {
		return Summary{}, pkgerrors.Wrap(ErrInputMissing, opts.Input)
	}

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return Summary{}, err
	}
	outRoot, err := state.Resolve(opts.OutputDir)
	if err != nil {
		return Summary{}, err
	}
	input, err := state.Resolve(opts.Input)
	if err != nil {
		return Summary{}, err
	}

	if err := acquireLock(outRoot, time.Now(), os.Getpid()); err != nil {
		return Summary{}, err
	}
	defer releaseLock(outRoot)

	ledger := opts.Ledger
	if ledger == nil {
		ledger, err = state.Open(filepath.Join(outRoot, LedgerFileName))
		if err != nil {
			return Summary{}, err
		}
	}

	tool := opts.Tool
	if tool == nil {
		tool = archive.NewTool()
	}

	r := &runner{tool: tool, ledger: ledger, log: log}

	if err := r.processTop(input, outRoot); err != nil {
		return r.summary, err
	}

	for pass := 1; pass <= maxDepth; pass++ {
		r.summary.Passes = pass
		log.WithFields(logrus.Fields{"pass": pass, "max_depth": maxDepth}).Info("scanning for nested archives")

		candidates, err := scanTree(outRoot)
		if err != nil {
			return r.summary, err
		}

		newWork := false
		for _, candidate := range candidates {
			resolved, err := state.Resolve(candidate)
			if err != nil {
				// The file vanished between scan and dispatch.
				log.WithField("path", candidate).WithError(err).Warn("skipping unresolvable candidate")
				continue
			}
			if r.ledger.IsDone(resolved) {
				continue
			}
			r.processNested(resolved)
			newWork = true
		}

		if !newWork {
			log.WithField("pass", pass).Info("no new archives found, stopping")
			break
		}
	}

	log.WithFields(logrus.Fields{
		"passes":    r.summary.Passes,
		"extracted": r.summary.Extracted,
		"gunzipped": r.summary.Gunzipped,
		"rejected":  r.summary.Rejected,
		"failed":    r.summary.Failed,
	}).Info("expansion complete")
	return r.summary, nil
}

// processTop handles the seed input. Every failure here is fatal: there is
// no surrounding scan to fall back to. The input is only marked done after
// its extraction fully completed.
func (r *runner) processTop(input, outRoot string) error {
	if r.ledger.IsDone(input) {
		r.log.WithField("path", input).Info("top-level input already processed")
		return nil
	}

	topDir := filepath.Join(outRoot, TopDirName)
	log := r.log.WithFields(logrus.Fields{"path": input, "dest": topDir})

	switch archive.Classify(input) {
	case archive.KindTar, archive.KindCompressedTar:
		if err := archive.ValidateArchive(r.tool, input, topDir); err != nil {
			return err
		}
		stats, err := r.tool.ExtractTar(input, topDir)
		if err != nil {
			return err
		}
		r.summary.Extracted++
		log.WithFields(logrus.Fields{
			"files":   stats.Files,
			"skipped": stats.Skipped,
			"size":    humanize.Bytes(uint64(stats.Bytes)),
		}).Info("extracted top-level archive")
	case archive.KindPlainCompressed:
		out, err := r.tool.Gunzip(input, topDir)
		if err != nil {
			return err
		}
		r.summary.Gunzipped++
		log.WithField("output", out).Info("gunzipped top-level input")
	default:
		return pkgerrors.Wrap(ErrUnsupportedInput, input)
	}

	return r.ledger.MarkDone(input)
}

// processNested resolves one discovered archive. Rejections and failures are
// terminal for the archive but not for the run; either way the path is
// marked done so no later pass reconsiders it.
func (r *runner) processNested(path string) {
	log := r.log.WithField("path", path)

	switch archive.Classify(path) {
	case archive.KindTar, archive.KindCompressedTar:
		dest := fsutil.UniquePath(path + extractedSuffix)
		if err := archive.ValidateArchive(r.tool, path, dest); err != nil {
			// Validation runs before dest exists, so a rejected archive
			// leaves no trace on disk.
			r.summary.Rejected++
			log.WithField("reason", rejectReason(err)).WithError(err).Error("archive rejected")
			break
		}
		stats, err := r.tool.ExtractTar(path, dest)
		if err != nil {
			r.summary.Failed++
			log.WithError(err).Error("extraction failed, archive skipped")
			break
		}
		r.summary.Extracted++
		log.WithFields(logrus.Fields{
			"dest":    dest,
			"files":   stats.Files,
			"skipped": stats.Skipped,
			"size":    humanize.Bytes(uint64(stats.Bytes)),
		}).Info("extracted nested archive")
	case archive.KindPlainCompressed:
		dest := fsutil.UniquePath(path + gunzippedSuffix)
		out, err := r.tool.Gunzip(path, dest)
		if err != nil {
			r.summary.Failed++
			// Gunzip removed any partial output; drop the empty directory
			// it created too.
			_ = os.Remove(dest)
			log.WithError(err).Error("gunzip failed, file skipped")
			break
		}
		r.summary.Gunzipped++
		log.WithField("output", out).Info("gunzipped nested file")
	default:
		// Matched the broad scan filter but classifies as unsupported; mark
		// it done so it is never rescanned.
		r.summary.Skipped++
		log.Debug("unsupported archive type, skipping")
	}

	if err := r.ledger.MarkDone(path); err != nil {
		r.log.WithField("path", path).WithError(err).Error("failed to record progress")
	}
}

// scanTree lists every regular file under root whose name matches the broad
// archive suffix filter, sorted for deterministic processing order.
func scanTree(root string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if archive.MatchesScanSuffix(d.Name()) {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

func rejectReason(err error) string {
	var rej *archive.RejectionError
	if errors.As(err, &rej) {
		return string(rej.Reason)
	}
	return "unknown"
}
