package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"example.com/edmdat/internal/common"
	"example.com/edmdat/internal/edm"
)

func undoCmd(args []string, stdout io.Writer) error {
	fs := newFlagSet("undo")
	var cf commonFlags
	cf.register(fs)
	in := fs.String("in", "", "rewritten file")
	audit := fs.String("audit", "", "audit log (jsonl)")
	out := fs.String("out", "", "restored output file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, closeLog, err := cf.setup()
	if err != nil {
		return err
	}
	defer closeLog()
	if *audit == "" {
		*audit = cfg.Audit
	}
	if *in == "" || *out == "" {
		fmt.Fprintln(stdout, "required: --in, --out")
		return errUsage
	}

	entries, err := common.ReadPatchLog(*audit)
	if err != nil {
		return fmt.Errorf("read audit: %w", err)
	}
	entries = common.LastRun(entries, filepath.Base(*in))
	if len(entries) == 0 {
		return fmt.Errorf("audit log has no entries for %s", filepath.Base(*in))
	}

	current, err := os.ReadFile(*in)
	if err != nil {
		return err
	}
	patchedHash := common.Sha256OfBytes(current)

	var edits []edm.PatchEdit
	mismatches := 0
	for i, entry := range entries {
		before, after, err := entry.Bytes()
		if err != nil {
			fmt.Fprintf(stdout, "skip entry %d: %v\n", i, err)
			continue
		}
		if entry.Offset < 0 || len(before) != len(after) {
			fmt.Fprintf(stdout, "skip entry %d: invalid edit at offset %d\n", i, entry.Offset)
			continue
		}
		end := entry.Offset + int64(len(after))
		if end > int64(len(current)) || !bytes.Equal(current[entry.Offset:end], after) {
			mismatches++
		}
		edits = append(edits, edm.PatchEdit{Offset: entry.Offset, Data: after, Before: before, Note: entry.Note}.Revert())
	}

	if err := common.CopyFile(*in, *out); err != nil {
		return fmt.Errorf("copy input: %w", err)
	}
	if err := edm.ApplyPatch(*out, edits); err != nil {
		return fmt.Errorf("restore: %w", err)
	}

	restoredHash, _, err := common.Sha256OfFile(*out)
	if err != nil {
		return fmt.Errorf("hash restored: %w", err)
	}
	fmt.Fprintf(stdout, "Restored %d edit(s) to %s\n", len(edits), *out)
	fmt.Fprintf(stdout, "Patched SHA256: %s\n", patchedHash)
	fmt.Fprintf(stdout, "Restored SHA256: %s\n", restoredHash)
	if mismatches > 0 {
		fmt.Fprintf(stdout, "Warning: %d edit(s) did not match the rewritten bytes; original bytes reapplied regardless.\n", mismatches)
	}
	return nil
}
