package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/edmdat/internal/edm"
	"example.com/edmdat/internal/samples"
)

func TestFormatScaled(t *testing.T) {
	tests := []struct {
		v     int16
		scale int
		want  string
	}{
		{v: 245, scale: 1, want: "245"},
		{v: -12, scale: 1, want: "-12"},
		{v: 140, scale: 10, want: "14"},
		{v: 255, scale: 10, want: "25.5"},
		{v: 5, scale: 10, want: "0.5"},
		{v: -15, scale: 10, want: "-1.5"},
		{v: -5, scale: 10, want: "-0.5"},
		{v: 0, scale: 10, want: "0"},
	}
	for _, tc := range tests {
		if got := FormatScaled(tc.v, tc.scale); got != tc.want {
			t.Fatalf("FormatScaled(%d, %d) = %q, want %q", tc.v, tc.scale, got, tc.want)
		}
	}
}

func TestCSVName(t *testing.T) {
	assert.Equal(t, "F00101-HACK.CSV", CSVName(101, false))
	assert.Equal(t, "F00007.CSV", CSVName(7, true))
}

func TestTitleRowSingleEngine(t *testing.T) {
	got := TitleRow(Columns(samples.SingleEngineFlags, 1))
	want := `"TIME","E1","E2","E3","E4","E5","E6","C1","C2","C3","C4","C5","C6","OIL","DIF","OAT","BAT","FF","USD","RPM","MAP","HP","MARK",` + "\n"
	assert.Equal(t, want, got)
}

func TestTitleRowTwinEngine(t *testing.T) {
	got := TitleRow(Columns(samples.TwinEngineFlags, 2))
	want := `"TIME","LE1","LE2","LE3","LE4","LC1","LC2","LC3","LC4","LOIL","LDIF","LFF","LUSD",` +
		`"RE1","RE2","RE3","RE4","RC1","RC2","RC3","RC4","ROIL","RDIF","OAT","RFF","RUSD","BAT","MARK",` + "\n"
	assert.Equal(t, want, got)
}

func TestTitleRowOmitsUnsetFeatures(t *testing.T) {
	got := TitleRow(Columns(edm.FeatE1|edm.FeatE2, 1))
	assert.Equal(t, `"TIME","E1","E2","DIF",`+"\n", got)
}

func TestFormatRowNAAndMark(t *testing.T) {
	flags := edm.FeatBAT | edm.FeatC1 | edm.FeatC2 | edm.FeatE1 | edm.FeatE2
	cols := Columns(flags, 1)
	// E2 not available, MARK -15, BAT +10.
	rec := []byte{0x05, 0x05, 0x00, 0x02, 0x11, 0x00, 0x01, 0x00, 0x0f, 0x0a}
	s := edm.NewSnapshot(1)
	_, _, err := edm.ApplyRecord(s, flags, append(rec, edm.LegacyChecksum(rec)))
	require.NoError(t, err)

	ts := time.Date(2021, 6, 12, 9, 5, 4, 0, time.UTC)
	assert.Equal(t, `"TIME","E1","E2","C1","C2","DIF","BAT","MARK",`+"\n", TitleRow(cols))
	assert.Equal(t, `"9:5:4",240,"NA",240,240,0,25,"S"`+"\n", FormatRow(ts, s, cols))
}

func TestDurationText(t *testing.T) {
	assert.Equal(t, `"Duration  0.01`, DurationText(30*time.Second))
	assert.Equal(t, `"Duration  1.50`, DurationText(90*time.Minute))
	assert.Equal(t, `"Duration 99.99`, DurationText(200*time.Hour))
	assert.Len(t, DurationText(200*time.Hour), len(`"Duration  0.00`))
}

func TestCSVSinksWriteFlight(t *testing.T) {
	buf, err := samples.Build(samples.SingleEngine())
	require.NoError(t, err)
	f, err := edm.Open("sample.DAT", buf)
	require.NoError(t, err)

	dir := t.TempDir()
	var created []string
	open := CSVSinks(CSVOptions{
		Dir: dir,
		Now: func() time.Time { return time.Date(2021, 6, 13, 8, 0, 0, 0, time.UTC) },
		Created: func(p string) {
			created = append(created, p)
		},
	})
	require.NoError(t, f.Decode(edm.DecodeOptions{Flight: 101, Location: time.UTC}, open))
	require.Equal(t, []string{filepath.Join(dir, "F00101-HACK.CSV")}, created)

	got, err := os.ReadFile(created[0])
	require.NoError(t, err)

	vals := "240,240,300,240,240,240,240,240,190,23,20,14,25.5,24,2400,24.5,240,"
	want := strings.Join([]string{
		`"EZSave     06/13/21"`,
		`"EDM- 830 V 310 J.P.Instruments  (C) 1998"`,
		`"Aircraft Number N12345"`,
		`"Flight #101 6/12/21 14:30:0"`,
		`"Eng Deg F     OAT Deg F     F/F GPH"`,
		`"Duration  0.01Hours   Interval 6 seconds    "`,
		`"TIME","E1","E2","E3","E4","E5","E6","C1","C2","C3","C4","C5","C6","OIL","DIF","OAT","BAT","FF","USD","RPM","MAP","HP","MARK",`,
		`"14:30:0",245,250,237,260,` + vals,
		`"14:30:6",245,250,237,260,` + vals,
		`"14:30:12",245,250,237,260,` + vals,
		`"14:30:18",247,250,237,260,` + vals,
		`"14:30:24",247,250,237,260,240,"NA",300,240,240,240,240,240,190,23,20,14,25.5,24,2400,24.5,240,"S"`,
		`"14:30:30",247,1274,237,260,200,"NA",300,240,240,240,240,240,190,1074,20,14,25.5,24,2400,24.5,240,`,
	}, "\n") + "\n"
	assert.Equal(t, want, string(got))
}

func TestCSVSinksNoSuffix(t *testing.T) {
	buf, err := samples.Build(samples.TwinEngine())
	require.NoError(t, err)
	f, err := edm.Open("twin.DAT", buf)
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, f.Decode(edm.DecodeOptions{Location: time.UTC}, CSVSinks(CSVOptions{Dir: dir, NoSuffix: true})))
	got, err := os.ReadFile(filepath.Join(dir, "F00007.CSV"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(got), "\n"), "\n")
	require.Len(t, lines, 9)
	assert.Equal(t, `"Eng Deg F     OAT Deg C     F/F GPH"`, lines[4])
	assert.Equal(t, `"Duration  0.00Hours   Interval 2 seconds    "`, lines[5])
	assert.True(t, strings.HasPrefix(lines[6], `"TIME","LE1",`))
	assert.Equal(t, `"7:15:30",250,260,270,280,240,240,240,240,240,30,24,24,230,220,210,200,240,240,240,240,240,30,240,24.5,24,24,`, lines[7])
}

func TestTwinColumnsSkipHighCylinders(t *testing.T) {
	flags := samples.TwinEngineFlags | edm.FeatC5 | edm.FeatC6 | edm.FeatC7 | edm.FeatE5 | edm.FeatE6 | edm.FeatE7
	cols := Columns(flags, 2)
	for _, c := range cols {
		assert.NotContains(t, []string{"LE7", "RE7", "LC7", "RC7"}, c.Title)
	}
	assert.Contains(t, TitleRow(cols), `"RE6","RC1"`)

	snap := edm.NewSnapshot(2)
	require.NotPanics(t, func() {
		FormatRow(samples.SampleStart, snap, cols)
	})
}
