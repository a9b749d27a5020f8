package main

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"example.com/edmdat/internal/archive"
	"example.com/edmdat/internal/common"
	"example.com/edmdat/internal/edm"
	"example.com/edmdat/internal/report"
)

func decodeCmd(args []string, stdout io.Writer) error {
	fs := newFlagSet("decode")
	var cf commonFlags
	cf.register(fs)
	in := fs.StringSlice("in", nil, "input .DAT/.JPI files or glob patterns")
	flight := fs.Uint16("flight", 0, "decode only this flight number")
	noSuffix := fs.Bool("no-suffix", false, "name reports FNNNNN.CSV instead of FNNNNN-HACK.CSV")
	outDir := fs.String("out-dir", "", "report directory (default: next to each input)")
	dbPath := fs.String("db", "", "SQLite archive receiving decoded samples")
	tz := fs.String("tz", "", "time zone of the recorded clock (default: local)")
	keepGoing := fs.Bool("continue-on-error", false, "log failures and continue with the next file")
	metricsFlag := fs.Bool("metrics", false, "print decode metrics")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, closeLog, err := cf.setup()
	if err != nil {
		return err
	}
	defer closeLog()
	if fs.Changed("no-suffix") {
		cfg.NoSuffix = *noSuffix
	}
	if fs.Changed("out-dir") {
		cfg.OutDir = *outDir
	}
	if fs.Changed("db") {
		cfg.Archive = *dbPath
	}
	if fs.Changed("tz") {
		cfg.Timezone = *tz
	}
	abort := cfg.abortOnError()
	if *keepGoing {
		abort = false
	}
	loc, err := cfg.location()
	if err != nil {
		return fmt.Errorf("time zone: %w", err)
	}

	inputs, err := expandInputs(append(*in, fs.Args()...))
	if err != nil {
		return err
	}

	var db *archive.DB
	if cfg.Archive != "" {
		db, err = archive.New(cfg.Archive)
		if err != nil {
			return err
		}
		defer db.Close()
	}

	var metrics *common.Metrics
	if *metricsFlag {
		metrics = common.NewMetrics()
		metrics.Start()
	}

	err = runBatch(inputs, abort, func(path string) error {
		fmt.Fprintln(stdout, path)
		return decodeFile(path, cfg, db, metrics, edm.DecodeOptions{Flight: *flight, Location: loc}, stdout)
	})

	if metrics != nil {
		metrics.Stop()
		fmt.Fprintf(stdout, "Metrics: %s\n", metrics.Snapshot())
	}
	return err
}

func decodeFile(path string, cfg config, db *archive.DB, metrics *common.Metrics, opts edm.DecodeOptions, stdout io.Writer) error {
	f, err := edm.ReadFile(path)
	if err != nil {
		return err
	}
	f.SetMetrics(metrics)

	dir := cfg.OutDir
	if dir == "" {
		dir = filepath.Dir(path)
	}
	sinks := []edm.SinkFactory{report.CSVSinks(report.CSVOptions{
		Dir:      dir,
		NoSuffix: cfg.NoSuffix,
		Now:      time.Now,
		Created: func(p string) {
			fmt.Fprintf(stdout, "  wrote %s\n", p)
		},
	})}
	if db != nil {
		imp, err := db.BeginImport(path, common.Sha256OfBytes(f.Bytes()), f.Header)
		if err != nil {
			return err
		}
		common.Logf("archiving %s as import %s", path, imp.ID)
		sinks = append(sinks, imp.Sinks())
	}

	if err := f.Decode(opts, report.Tee(sinks...)); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
