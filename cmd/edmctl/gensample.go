package main

import (
	"fmt"
	"io"

	"example.com/edmdat/internal/samples"
)

func gensampleCmd(args []string, stdout io.Writer) error {
	fs := newFlagSet("gensample")
	outDir := fs.String("out", ".", "output directory for generated sample files")
	if err := fs.Parse(args); err != nil {
		return err
	}
	paths, err := samples.WriteFiles(*outDir)
	if err != nil {
		return fmt.Errorf("generate samples: %w", err)
	}
	for _, p := range paths {
		fmt.Fprintf(stdout, "wrote %s\n", p)
	}
	return nil
}
