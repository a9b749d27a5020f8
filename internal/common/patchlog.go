package common

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// PatchEntry records one byte range changed by a checksum rewrite. File is
// the base name of the rewritten output.
type PatchEntry struct {
	RunID     string    `json:"runId"`
	File      string    `json:"file"`
	Note      string    `json:"note,omitempty"`
	Offset    int64     `json:"offset"`
	BeforeHex string    `json:"beforeHex"`
	AfterHex  string    `json:"afterHex"`
	Ts        time.Time `json:"ts"`
}

// NewPatchEntry hex-encodes an edit for the audit log.
func NewPatchEntry(runID, file, note string, offset int64, before, after []byte, ts time.Time) PatchEntry {
	return PatchEntry{
		RunID:     runID,
		File:      file,
		Note:      note,
		Offset:    offset,
		BeforeHex: hex.EncodeToString(before),
		AfterHex:  hex.EncodeToString(after),
		Ts:        ts,
	}
}

// Bytes decodes the original and rewritten bytes of the entry.
func (p PatchEntry) Bytes() (before, after []byte, err error) {
	if before, err = hex.DecodeString(p.BeforeHex); err != nil {
		return nil, nil, fmt.Errorf("beforeHex: %w", err)
	}
	if after, err = hex.DecodeString(p.AfterHex); err != nil {
		return nil, nil, fmt.Errorf("afterHex: %w", err)
	}
	return before, after, nil
}

func (p PatchEntry) validate() error {
	switch {
	case p.RunID == "":
		return errors.New("patch entry missing runId")
	case p.File == "":
		return errors.New("patch entry missing file")
	case p.Offset < 0:
		return fmt.Errorf("patch entry has negative offset %d", p.Offset)
	}
	return nil
}

// PatchLog is an append-only JSONL audit of rewritten bytes.
type PatchLog struct {
	path string
	mu   sync.Mutex
}

func NewPatchLog(path string) *PatchLog {
	return &PatchLog{path: path}
}

func (p *PatchLog) Path() string {
	if p == nil {
		return ""
	}
	return p.path
}

// Append writes entries as one batch, one JSON object per line. Nothing is
// written unless every entry is complete.
func (p *PatchLog) Append(entries ...PatchEntry) error {
	if p == nil {
		return errors.New("nil patch log")
	}
	now := time.Now().UTC()
	for i := range entries {
		if err := entries[i].validate(); err != nil {
			return err
		}
		if entries[i].Ts.IsZero() {
			entries[i].Ts = now
		}
	}
	if len(entries) == 0 {
		return nil
	}
	if dir := filepath.Dir(p.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	f, err := os.OpenFile(p.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Sync()
}

// ReadPatchLog loads every entry of a JSONL audit log.
func ReadPatchLog(path string) ([]PatchEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec := json.NewDecoder(bufio.NewReader(f))
	var entries []PatchEntry
	for {
		var e PatchEntry
		err := dec.Decode(&e)
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decode patch entry %d: %w", len(entries), err)
		}
		entries = append(entries, e)
	}
}

// LastRun returns the entries for file written by the most recent run that
// touched it, in log order.
func LastRun(entries []PatchEntry, file string) []PatchEntry {
	run := ""
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].File == file {
			run = entries[i].RunID
			break
		}
	}
	if run == "" {
		return nil
	}
	var out []PatchEntry
	for _, e := range entries {
		if e.File == file && e.RunID == run {
			out = append(out, e)
		}
	}
	return out
}
