package cli

import (
	"path/filepath"

	"github.com/dgallion1/docbridge/internal/docx2md"
	"github.com/spf13/cobra"
)

// NewDocx2MdCommand returns the docx2md command.
func NewDocx2MdCommand(version string) *cobra.Command {
	var (
		c        common
		imageDir string
		noImages bool
	)
	cmd := newRoot("docx2md <input.docx>", "Convert a Word document to Markdown",
		`Convert a .docx package to Markdown.

Images are extracted next to the output file unless --image-dir is set.

Examples:
  docx2md report.docx
  docx2md report.docx -o report.md
  docx2md report.docx -o - --no-images`,
		version, "output.md", &c,
		func(cmd *cobra.Command, input string) error {
			log := c.logger(cmd)
			opts := []docx2md.Option{docx2md.WithLogger(log), docx2md.WithSkipImages(noImages)}
			if imageDir != "" {
				opts = append(opts, docx2md.WithImageDir(imageDir))
			}

			if c.output == Stdout {
				if imageDir == "" {
					opts = append(opts, docx2md.WithImageDir(docx2md.DefaultImageDir("")))
				} else {
					opts = append(opts, docx2md.WithImageLinkBase(filepath.ToSlash(imageDir)))
				}
				md, err := docx2md.New(opts...).ConvertFile(input)
				if err != nil {
					return err
				}
				return writeOutput(cmd, Stdout, []byte(md))
			}
			if err := docx2md.New(opts...).ConvertFileToFile(input, c.output); err != nil {
				return err
			}
			log.Info("converted", "input", input, "output", c.output)
			return nil
		})
	cmd.Flags().StringVar(&imageDir, "image-dir", "", "directory for extracted images")
	cmd.Flags().BoolVar(&noImages, "no-images", false, "do not extract images")
	return cmd
}
