package edm

import (
	"fmt"

	"example.com/edmdat/internal/common"
)

// RewriteResult is the outcome of Rewrite.
type RewriteResult struct {
	// Skipped is set when the file already uses legacy checksums.
	Skipped bool
	// Data is the downgraded file; nil when Skipped.
	Data []byte
	// Edits lists every byte range that changed, with the original bytes.
	Edits []PatchEdit
}

// Rewrite re-signs every flight header and data record with the legacy
// checksum and downgrades the $C firmware text, leaving all other bytes
// untouched. Each record must first validate under either scheme. The
// receiver's buffer is not modified.
func (f *File) Rewrite() (*RewriteResult, error) {
	cfg := f.Header.Config
	if !cfg.CurrentChecksums() {
		common.Logf("%s: firmware %d already uses legacy checksums; nothing to change", f.Path, cfg.Firmware)
		return &RewriteResult{Skipped: true}, nil
	}

	out := make([]byte, len(f.buf))
	copy(out, f.buf)
	res := &RewriteResult{Data: out}

	resign := func(off int, body []byte, want byte, what string) error {
		if !cfg.ValidChecksum(body, want) {
			return checksumErrorf("%s at offset %d", what, off)
		}
		sum := LegacyChecksum(body)
		at := off + len(body)
		if out[at] != sum {
			res.Edits = append(res.Edits, newPatchEdit(int64(at), out[at:at+1], []byte{sum}, what))
			out[at] = sum
		}
		return nil
	}

	cursor := f.Header.DataOffset
	for _, entry := range f.Header.Flights {
		end, err := flightRange(out, cursor, entry)
		if err != nil {
			return nil, err
		}
		data := out[cursor:end]
		what := fmt.Sprintf("flight %d header", entry.Number)
		if err := resign(cursor, data[:FlightHeaderSize], data[FlightHeaderSize], what); err != nil {
			return nil, err
		}

		pos := FlightHeaderSize + 1
		for len(data)-pos >= minRecordBytes {
			r, err := walkRecord(data[pos:])
			if err != nil {
				return nil, fmt.Errorf("flight %d record at offset %d: %w", entry.Number, cursor+pos, err)
			}
			what := fmt.Sprintf("flight %d data record", entry.Number)
			if err := resign(cursor+pos, r.body, r.checksum, what); err != nil {
				return nil, err
			}
			if f.metrics != nil {
				f.metrics.AddRecord(int64(r.size()))
			}
			pos += r.size()
		}
		if f.metrics != nil {
			f.metrics.AddFlight()
		}
		cursor = end
	}

	for _, e := range f.Header.VersionPatch {
		if err := ApplyEdits(out, []PatchEdit{e}); err != nil {
			return nil, err
		}
		res.Edits = append(res.Edits, e)
	}
	return res, nil
}
