package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"example.com/edmdat/internal/common"
	"example.com/edmdat/internal/edm"
)

// rewriteName returns the downgraded file name for in. The extension is
// always .DAT so vendor tools find the file.
func rewriteName(in, outDir string) string {
	name := common.WithSuffix(filepath.Base(in), "-HACK", ".DAT")
	if outDir == "" {
		outDir = filepath.Dir(in)
	}
	return filepath.Join(outDir, name)
}

func rewriteCmd(args []string, stdout io.Writer) error {
	fs := newFlagSet("rewrite")
	var cf commonFlags
	cf.register(fs)
	in := fs.StringSlice("in", nil, "input .DAT/.JPI files or glob patterns")
	outDir := fs.String("out-dir", "", "output directory (default: next to each input)")
	audit := fs.String("audit", "", "JSONL audit log of rewritten bytes")
	keepGoing := fs.Bool("continue-on-error", false, "log failures and continue with the next file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, closeLog, err := cf.setup()
	if err != nil {
		return err
	}
	defer closeLog()
	if fs.Changed("out-dir") {
		cfg.OutDir = *outDir
	}
	if fs.Changed("audit") {
		cfg.Audit = *audit
	}
	abort := cfg.abortOnError() && !*keepGoing

	inputs, err := expandInputs(append(*in, fs.Args()...))
	if err != nil {
		return err
	}

	patchLog := common.NewPatchLog(cfg.Audit)
	runID := uuid.NewString()
	return runBatch(inputs, abort, func(path string) error {
		fmt.Fprintln(stdout, path)
		f, err := edm.ReadFile(path)
		if err != nil {
			return err
		}
		res, err := f.Rewrite()
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if res.Skipped {
			fmt.Fprintln(stdout, "  file already uses the older checksum scheme; nothing written")
			return nil
		}
		out := rewriteName(path, cfg.OutDir)
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(out, res.Data, 0o644); err != nil {
			return fmt.Errorf("unable to write %s: %w", out, err)
		}
		now := time.Now().UTC()
		entries := make([]common.PatchEntry, 0, len(res.Edits))
		for _, e := range res.Edits {
			entries = append(entries, common.NewPatchEntry(runID, filepath.Base(out), e.Note, e.Offset, e.Before, e.Data, now))
		}
		if err := patchLog.Append(entries...); err != nil {
			return fmt.Errorf("audit: %w", err)
		}
		fmt.Fprintf(stdout, "  wrote %s (%d edits)\n", out, len(res.Edits))
		return nil
	})
}
