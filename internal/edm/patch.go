package edm

import (
	"fmt"
	"os"
	"sort"
)

// PatchEdit is a same-length overwrite of bytes at Offset.
type PatchEdit struct {
	Offset int64
	Data   []byte
	// Before holds the bytes Data replaces, kept so edits can be undone.
	Before []byte
	Note   string
}

func newPatchEdit(offset int64, before, after []byte, note string) PatchEdit {
	return PatchEdit{
		Offset: offset,
		Data:   append([]byte(nil), after...),
		Before: append([]byte(nil), before...),
		Note:   note,
	}
}

// Revert returns the edit that restores the original bytes.
func (e PatchEdit) Revert() PatchEdit {
	return PatchEdit{Offset: e.Offset, Data: e.Before, Before: e.Data, Note: e.Note}
}

func (e PatchEdit) end() int64 { return e.Offset + int64(len(e.Data)) }

// plan drops empty edits, orders the rest by offset and checks every one
// against size before anything is written.
func plan(edits []PatchEdit, size int64) ([]PatchEdit, error) {
	var out []PatchEdit
	for _, e := range edits {
		if len(e.Data) == 0 {
			continue
		}
		if e.Offset < 0 || e.end() > size {
			return nil, fmt.Errorf("patch at %d with length %d exceeds %d bytes", e.Offset, len(e.Data), size)
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Offset < out[j].Offset })
	return out, nil
}

// ApplyEdits overwrites buf in place. Nothing changes unless every edit fits.
func ApplyEdits(buf []byte, edits []PatchEdit) error {
	ordered, err := plan(edits, int64(len(buf)))
	if err != nil {
		return err
	}
	for _, e := range ordered {
		copy(buf[e.Offset:], e.Data)
	}
	return nil
}

// ApplyPatch overwrites the edited ranges of the file at path without
// changing its length. Nothing is written unless every edit fits.
func ApplyPatch(path string, edits []PatchEdit) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}
	ordered, err := plan(edits, info.Size())
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if len(ordered) == 0 {
		return nil
	}
	for _, e := range ordered {
		if _, err := f.WriteAt(e.Data, e.Offset); err != nil {
			return err
		}
	}
	return f.Sync()
}
