// Command qrgen renders a feedback link into a code image on local disk.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/AnshRaj112/talkback-backend/internal/codeimage"
	"github.com/jessevdk/go-flags"
)

type options struct {
	URL     string `long:"url" description:"Link to encode"`
	Slug    string `long:"slug" description:"Item slug; encoded as <site>/f/<slug>"`
	Site    string `long:"site" env:"PUBLIC_SITE_URL" default:"http://localhost:5173" description:"Public site base for --slug"`
	Size    int    `long:"size" default:"1024" description:"Image side in pixels"`
	Format  string `long:"format" default:"png" description:"png, jpeg or svg"`
	Caption string `long:"caption" description:"Text printed under the code"`
	Out     string `long:"out" short:"o" description:"Output file; - writes to stdout (default qr.<ext>)"`
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return
		}
		fmt.Fprintln(os.Stderr, "qrgen:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		return err
	}

	content, err := opts.content()
	if err != nil {
		return err
	}
	code, err := codeimage.Render(content)
	if err != nil {
		return err
	}

	if strings.EqualFold(opts.Format, "svg") {
		return writeOut(opts.out("svg"), stdout, []byte(code.SVG(opts.Size)))
	}

	format, err := codeimage.ParseFormat(opts.Format)
	if err != nil {
		return err
	}
	img, err := codeimage.Rasterize(code, codeimage.RasterOptions{Size: opts.Size, Caption: opts.Caption})
	if err != nil {
		return err
	}

	path := opts.out(format.Ext())
	if path == "-" {
		return codeimage.Encode(stdout, img, format)
	}
	if err := codeimage.Save(path, img, format); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s (%dx%d %s)\n", path, img.Bounds().Dx(), img.Bounds().Dy(), format)
	return nil
}

func (o options) content() (string, error) {
	switch {
	case o.URL != "" && o.Slug != "":
		return "", errors.New("use either --url or --slug")
	case o.URL != "":
		return o.URL, nil
	case o.Slug != "":
		return strings.TrimRight(o.Site, "/") + "/f/" + o.Slug, nil
	}
	return "", errors.New("--url or --slug is required")
}

func (o options) out(ext string) string {
	if o.Out != "" {
		return o.Out
	}
	return "qr." + ext
}

func writeOut(path string, stdout io.Writer, data []byte) error {
	if path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s (%d bytes)\n", path, len(data))
	return nil
}
