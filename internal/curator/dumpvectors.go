package curator

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
)

// DumpVectors exports every currently-stored non-image product's geometry
// as CSV rows of (type, unique_name, element_index, wkt), the "dump-vectors"
// CLI operation (spec §6 CLI surface). This is the minimal concrete
// implementation needed to exercise the operation; full GeoJSON/shapefile
// export is out of scope (spec §1 Non-goals "exporters").
func (c *Curator) DumpVectors(ctx context.Context, w io.Writer) error {
	all, err := c.db.All(ctx)
	if err != nil {
		return fmt.Errorf("curator: dump-vectors: list: %w", err)
	}

	cw := csv.NewWriter(w)
	defer cw.Flush()
	if err := cw.Write([]string{"type", "unique_name", "element_index", "wkt"}); err != nil {
		return err
	}

	for _, p := range all {
		if p.Block != nil {
			continue // image rasters have no vector geometry to dump
		}
		for i, el := range p.Geometry {
			wkt, err := el.WKT()
			if err != nil {
				continue
			}
			if err := cw.Write([]string{string(p.Type), p.UniqueName, fmt.Sprint(i), wkt}); err != nil {
				return err
			}
		}
	}
	return cw.Error()
}
