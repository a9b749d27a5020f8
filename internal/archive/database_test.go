package archive

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/edmdat/internal/common"
	"example.com/edmdat/internal/edm"
	"example.com/edmdat/internal/samples"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func importSample(t *testing.T, db *DB, sample samples.File, opts edm.DecodeOptions) (*Import, *edm.File) {
	t.Helper()
	buf, err := samples.Build(sample)
	require.NoError(t, err)
	f, err := edm.Open("sample.DAT", buf)
	require.NoError(t, err)
	imp, err := db.BeginImport(f.Path, common.Sha256OfBytes(buf), f.Header)
	require.NoError(t, err)
	opts.Location = time.UTC
	require.NoError(t, f.Decode(opts, imp.Sinks()))
	return imp, f
}

func TestArchiveFlights(t *testing.T) {
	db := setupTestDB(t)
	imp, _ := importSample(t, db, samples.SingleEngine(), edm.DecodeOptions{})

	flights, err := db.Flights(imp.ID)
	require.NoError(t, err)
	require.Len(t, flights, 2)

	first := flights[0]
	assert.Equal(t, uint16(101), first.Number)
	assert.True(t, first.Start.Equal(samples.SampleStart))
	assert.Equal(t, 6, first.IntervalSecs)
	assert.Equal(t, 6, first.Rows)
	assert.Equal(t, 30*time.Second, first.Duration)
	assert.Equal(t, samples.SingleEngineFlags, first.Flags&samples.SingleEngineFlags)

	assert.Equal(t, uint16(102), flights[1].Number)
}

func TestArchiveSamples(t *testing.T) {
	db := setupTestDB(t)
	imp, _ := importSample(t, db, samples.SingleEngine(), edm.DecodeOptions{Flight: 101})

	e1, err := db.Samples(imp.ID, 101, "E1")
	require.NoError(t, err)
	require.Len(t, e1, 6)
	want := []float64{245, 245, 245, 247, 247, 247}
	for i, s := range e1 {
		assert.Equal(t, i, s.Seq)
		require.NotNil(t, s.Value)
		assert.Equal(t, want[i], *s.Value)
		assert.True(t, s.Time.Equal(samples.SampleStart.Add(time.Duration(i)*6*time.Second)))
	}
	assert.True(t, e1[4].Mark)
	assert.False(t, e1[3].Mark)

	e6, err := db.Samples(imp.ID, 101, "E6")
	require.NoError(t, err)
	require.Len(t, e6, 6)
	assert.NotNil(t, e6[3].Value)
	assert.Nil(t, e6[4].Value)
	assert.Nil(t, e6[5].Value)

	mark, err := db.Samples(imp.ID, 101, "MARK")
	require.NoError(t, err)
	assert.Empty(t, mark)

	none, err := db.Flights(imp.ID)
	require.NoError(t, err)
	assert.Len(t, none, 1)
}

func TestFindImports(t *testing.T) {
	db := setupTestDB(t)
	first, f := importSample(t, db, samples.TwinEngine(), edm.DecodeOptions{})
	second, _ := importSample(t, db, samples.TwinEngine(), edm.DecodeOptions{})
	assert.NotEqual(t, first.ID, second.ID)

	ids, err := db.FindImports(common.Sha256OfBytes(f.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID, second.ID}, ids)

	ids, err = db.FindImports("missing")
	require.NoError(t, err)
	assert.Empty(t, ids)

	le1, err := db.Samples(first.ID, 7, "LE1")
	require.NoError(t, err)
	require.Len(t, le1, 2)
	assert.Equal(t, 250.0, *le1[0].Value)
}
