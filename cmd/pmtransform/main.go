// Command pmtransform applies the entity source transform described in
// spec §4.4 to a directory tree: it rewrites each entity's source file
// in place, writes a generated per-entity dispatch file alongside it,
// and then rewrites every other call site in the tree that needs the
// newly-added ctx argument threaded through (step 6, caller rewriting).
//
// Usage:
//
//	pmtransform -dir ./path/to/module [-check]
//
// -check applies the transform to a scratch copy of the tree and
// re-runs discovery and rewrite over that copy, failing if the second
// pass finds anything left to rewrite, instead of writing anything to
// -dir (spec §8 property 5, idempotence).
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hellblazer/primemover/transform"
)

func main() {
	dir := flag.String("dir", ".", "root of the module tree to scan for +primemover:entity types")
	check := flag.Bool("check", false, "re-run the transform and fail if it is not idempotent, without writing")
	flag.Parse()

	if err := run(*dir, *check); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(dir string, check bool) error {
	if check {
		ok, mismatch, err := transform.CheckIdempotent(dir)
		if err != nil {
			return fmt.Errorf("pmtransform: %w", err)
		}
		if !ok {
			return fmt.Errorf("pmtransform: -check: %s is not idempotent under re-transformation", mismatch)
		}
		return nil
	}

	entities, err := transform.Discover(dir)
	if err != nil {
		return fmt.Errorf("pmtransform: %w", err)
	}

	for _, info := range entities {
		out, err := transform.Rewrite(info)
		if err != nil {
			return fmt.Errorf("pmtransform: %w", err)
		}
		if out == nil {
			continue // already @Transformed; skip is logged by Rewrite itself
		}

		filename := info.Pkg.Fset.Position(info.Decl.Pos()).Filename
		if err := os.WriteFile(filename, out, 0o644); err != nil {
			return fmt.Errorf("pmtransform: writing %s: %w", filename, err)
		}

		pkgName := info.Pkg.Name
		dispatchOut, err := transform.GenerateDispatch(info, pkgName)
		if err != nil {
			return fmt.Errorf("pmtransform: %w", err)
		}
		dispatchPath := filepath.Join(filepath.Dir(filename), strings.ToLower(info.Name)+"_dispatch.go")
		if err := os.WriteFile(dispatchPath, dispatchOut, 0o644); err != nil {
			return fmt.Errorf("pmtransform: writing %s: %w", dispatchPath, err)
		}
	}

	callerFiles, err := transform.RewriteCallers(dir, entities)
	if err != nil {
		return fmt.Errorf("pmtransform: %w", err)
	}
	for filename, out := range callerFiles {
		if err := os.WriteFile(filename, out, 0o644); err != nil {
			return fmt.Errorf("pmtransform: writing %s: %w", filename, err)
		}
	}
	return nil
}
