// Command lzmaviz decodes an LZMA file and renders it as a heat map of
// its information density: each byte is coloured by the number of bits
// the compressed stream spent on it.
//
// Usage:
//
//	lzmaviz [--raw] [--jet] [--lits] [--info] <file.lzma>
//
// Use "-" to read from stdin. When stdout is not a terminal (or --raw is
// given) the normalised heat values are printed one per line instead of
// the coloured view.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"

	"github.com/deepteams/lzmaviz"
	"github.com/deepteams/lzmaviz/render"
)

func main() {
	app := &cli.App{
		Name:            "lzmaviz",
		Usage:           "visualise where an LZMA stream spends its bits",
		ArgsUsage:       "<file.lzma>",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "raw",
				Usage: "print normalised heat values, one per line",
			},
			&cli.BoolFlag{
				Name:  "jet",
				Usage: "use the jet gradient instead of viridis",
			},
			&cli.BoolFlag{
				Name:  "lits",
				Usage: "colour bytes by literal vs match instead of heat",
			},
			&cli.BoolFlag{
				Name:  "info",
				Usage: "print the stream header and exit",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "lzmaviz: %v\n", err)
		os.Exit(1)
	}
}

// openInput returns a reader for the given path, stdin for "-".
func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

func run(c *cli.Context) error {
	if c.NArg() != 1 {
		cli.ShowAppHelp(c)
		return cli.Exit("lzmaviz: expected exactly one input file", 1)
	}
	path := c.Args().First()

	in, err := openInput(path)
	if err != nil {
		return err
	}
	defer in.Close()

	if c.Bool("info") {
		return printInfo(path, in)
	}

	res, err := lzmaviz.Decode(in)
	if err != nil {
		return cli.Exit(fmt.Sprintf("lzmaviz: %v", err), 2)
	}
	if res.Corrupted {
		fmt.Fprintln(os.Stderr, "Warning: LZMA stream is corrupted")
	}

	pretty := !c.Bool("raw") &&
		(isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()))
	if !pretty {
		return render.WriteRaw(os.Stdout, res.Heat)
	}

	rn := render.New(colorable.NewColorableStdout(), &render.Options{
		Jet:      c.Bool("jet"),
		Literals: c.Bool("lits"),
	})
	return rn.Render(res.Data, res.Heat, res.Literals)
}

// printInfo dumps the parsed header, without decoding the payload.
func printInfo(path string, in io.Reader) error {
	feat, err := lzmaviz.GetFeatures(in)
	if err != nil {
		return cli.Exit(fmt.Sprintf("lzmaviz: %v", err), 2)
	}

	name := path
	if path == "-" {
		name = "<stdin>"
	}
	fmt.Printf("File:        %s\n", name)
	fmt.Printf("lc/lp/pb:    %d/%d/%d\n", feat.LC, feat.LP, feat.PB)
	fmt.Printf("Dictionary:  %d bytes", feat.DictSize)
	if feat.DictSize != feat.DeclaredDictSize {
		fmt.Printf(" (declared %d)", feat.DeclaredDictSize)
	}
	fmt.Println()
	if feat.UnpackSizeDefined {
		fmt.Printf("Unpacked:    %d bytes\n", feat.UnpackSize)
	} else {
		fmt.Printf("Unpacked:    unknown (end marker mandatory)\n")
	}
	return nil
}
