package bundle

import (
	"archive/zip"
	"context"
	"fmt"
	"path"

	"github.com/rs/zerolog/log"

	"github.com/local/paintscheme/internal/artifact"
)

// Write streams a zip archive of the named artifacts to w, in the order
// given. Entry names are the artifacts' base filenames, nested under
// folder when one is supplied. When refs from different stages share a
// base filename, colliding entries are prefixed with their stage segment
// so no entry name repeats.
func Write(ctx context.Context, w *zip.Writer, store artifact.Store, refs []string, folder string) error {
	baseCount := make(map[string]int, len(refs))
	for _, ref := range refs {
		baseCount[path.Base(ref)]++
	}

	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := store.Get(ctx, ref)
		if err != nil {
			return fmt.Errorf("bundle: fetch %s: %w", ref, err)
		}

		name := entryName(ref, baseCount)
		if folder != "" {
			name = path.Join(folder, name)
		}
		f, err := w.Create(name)
		if err != nil {
			return fmt.Errorf("bundle: create entry %s: %w", name, err)
		}
		if _, err := f.Write(data); err != nil {
			return fmt.Errorf("bundle: write entry %s: %w", name, err)
		}
	}
	log.Debug().Int("entries", len(refs)).Str("folder", folder).Msg("bundle written")
	return nil
}

// entryName picks the archive name for one ref. Unique base filenames keep
// just the base; a base shared by several refs gets the ref's stage segment
// (the parent directory) prepended to keep names distinct.
func entryName(ref string, baseCount map[string]int) string {
	base := path.Base(ref)
	if baseCount[base] <= 1 {
		return base
	}
	stage := path.Base(path.Dir(ref))
	if stage == "." || stage == "/" {
		return base
	}
	return stage + "_" + base
}
