// Command tilecheck runs the deterministic seamless transforms over a local
// image so seams can be inspected without calling any provider. It writes the
// transformed image plus a 2x2 tiled preview next to it.
package main

import (
	"flag"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"tileforge/internal/canvas"
	"tileforge/internal/seamless"
)

func main() {
	var (
		input   = flag.String("in", "", "input image (png, jpeg or gif)")
		output  = flag.String("out", "", "output png path (default: <in>_seamless.png)")
		blend   = flag.Bool("blend", false, "apply edge blending before the mirror extraction")
		score   = flag.Bool("score", false, "print the seam score instead of writing files")
		preview = flag.Bool("preview", true, "also write a 2x2 tiled preview")
	)
	flag.Parse()

	if *input == "" {
		flag.Usage()
		os.Exit(2)
	}
	if err := run(*input, *output, *blend, *score, *preview); err != nil {
		fmt.Fprintln(os.Stderr, "tilecheck:", err)
		os.Exit(1)
	}
}

func run(input, output string, blend, scoreOnly, preview bool) error {
	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}
	img, err := canvas.Decode(data)
	if err != nil {
		return err
	}

	if scoreOnly {
		score, err := seamless.SeamScore(img)
		if err != nil {
			return err
		}
		fmt.Printf("seam score: %d\n", score)
		return nil
	}

	result, err := seamless.MirrorTile(img)
	if err != nil {
		return err
	}
	if blend {
		result, err = seamless.BlendSeams(result)
		if err != nil {
			return err
		}
	}

	if output == "" {
		ext := filepath.Ext(input)
		output = strings.TrimSuffix(input, ext) + "_seamless.png"
	}
	if err := writePNG(output, result); err != nil {
		return err
	}
	fmt.Println("wrote", output)

	score, err := seamless.SeamScore(result)
	if err != nil {
		return err
	}
	fmt.Printf("seam score: %d\n", score)

	if preview {
		tiled, err := seamless.Tile2x2(result)
		if err != nil {
			return err
		}
		previewPath := strings.TrimSuffix(output, ".png") + "_2x2.png"
		if err := writePNG(previewPath, tiled); err != nil {
			return err
		}
		fmt.Println("wrote", previewPath)
	}
	return nil
}

func writePNG(path string, img image.Image) error {
	data, err := canvas.EncodePNG(img)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
