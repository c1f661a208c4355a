package pdfdoc

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

func init() {
	// Keep pdfcpu from creating a config dir under the user's home.
	model.ConfigPath = "disable"
}

// annotation flag 4: print.
const printFlag = 4

func writeAnnotated(src, dst string, anns []annotation) error {
	ctx, err := api.ReadContextFile(src)
	if err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return fmt.Errorf("page count: %w", err)
	}

	for _, a := range anns {
		pageDict, pageRef, _, err := ctx.PageDict(a.page+1, false)
		if err != nil {
			return fmt.Errorf("page %d: %w", a.page, err)
		}
		if pageDict == nil {
			return fmt.Errorf("page %d: missing page dict", a.page)
		}

		annot := highlightDict(a)
		if pageRef != nil {
			annot["P"] = *pageRef
		}
		ref, err := ctx.IndRefForNewObject(annot)
		if err != nil {
			return fmt.Errorf("page %d: add annotation: %w", a.page, err)
		}

		var annots types.Array
		if obj, ok := pageDict.Find("Annots"); ok && obj != nil {
			annots, err = ctx.DereferenceArray(obj)
			if err != nil {
				return fmt.Errorf("page %d: annots: %w", a.page, err)
			}
		}
		pageDict["Annots"] = append(annots, *ref)
	}

	if err := api.WriteContextFile(ctx, dst); err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}
	return nil
}

func highlightDict(a annotation) types.Dict {
	b := a.box
	return types.Dict{
		"Type":    types.Name("Annot"),
		"Subtype": types.Name("Highlight"),
		"Rect":    types.NewNumberArray(b.X0, b.Y0, b.X1, b.Y1),
		// Upper-left, upper-right, lower-left, lower-right.
		"QuadPoints": types.NewNumberArray(b.X0, b.Y1, b.X1, b.Y1, b.X0, b.Y0, b.X1, b.Y0),
		"C":          types.NewNumberArray(a.color.R, a.color.G, a.color.B),
		"CA":         types.Float(a.opacity),
		"F":          types.Integer(printFlag),
	}
}

// Highlights counts the Highlight annotations on each page (0-based) of the
// PDF at path. Pages without any are omitted.
func Highlights(path string) (pages int, counts map[int]int, err error) {
	ctx, err := api.ReadContextFile(path)
	if err != nil {
		return 0, nil, err
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return 0, nil, err
	}

	counts = make(map[int]int)
	for nr := 1; nr <= ctx.PageCount; nr++ {
		pageDict, _, _, err := ctx.PageDict(nr, false)
		if err != nil {
			return 0, nil, err
		}
		obj, ok := pageDict.Find("Annots")
		if !ok || obj == nil {
			continue
		}
		annots, err := ctx.DereferenceArray(obj)
		if err != nil {
			return 0, nil, err
		}
		for _, o := range annots {
			d, err := ctx.DereferenceDict(o)
			if err != nil || d == nil {
				continue
			}
			if st := d.NameEntry("Subtype"); st != nil && *st == "Highlight" {
				counts[nr-1]++
			}
		}
	}
	return ctx.PageCount, counts, nil
}
