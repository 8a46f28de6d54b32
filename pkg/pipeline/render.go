package pipeline

import (
	"context"
	"fmt"

	"github.com/matzehuels/archflow/pkg/diagram"
	"github.com/matzehuels/archflow/pkg/render"
	"github.com/matzehuels/archflow/pkg/render/nodelink"
)

// RenderFromLayout generates output artifacts in the requested formats.
// DOT and SVG are produced at most once and shared by the formats that
// derive from them.
func RenderFromLayout(ctx context.Context, l diagram.Layout, opts Options) (map[string][]byte, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, err
	}

	var (
		dot string
		svg []byte
	)
	getDOT := func() string {
		if dot == "" {
			dot = nodelink.ToDOT(l, nodelink.Options{Detailed: opts.Detailed})
		}
		return dot
	}
	getSVG := func() ([]byte, error) {
		if svg != nil {
			return svg, nil
		}
		var err error
		svg, err = nodelink.RenderSVG(ctx, getDOT())
		return svg, err
	}

	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		var data []byte
		var err error

		switch format {
		case FormatJSON:
			data, err = diagram.MarshalLayout(l)
		case FormatDOT:
			data = []byte(getDOT())
		case FormatSVG:
			data, err = getSVG()
		case FormatPDF:
			if data, err = getSVG(); err == nil {
				data, err = render.ToPDF(ctx, data)
			}
		case FormatPNG:
			if data, err = getSVG(); err == nil {
				data, err = render.ToPNG(ctx, data, PNGScale)
			}
		default:
			return nil, ValidateFormat(format)
		}

		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}

	return artifacts, nil
}
