package cli

import (
	"github.com/dgallion1/docbridge/internal/doctxt"
	"github.com/spf13/cobra"
)

// NewDoctxtCommand returns the doctxt command.
func NewDoctxtCommand(version string) *cobra.Command {
	var (
		c    common
		opts doctxt.Options
	)
	cmd := newRoot("doctxt <input.docx|input.pdf>", "Extract plain text from a document",
		`Extract plain text from a .docx or .pdf file.

Paragraphs are written one per line and table rows as tab-separated
cells. With --comments only the review comments are written, one
"[author]: text" line each.

Examples:
  doctxt report.docx -o -
  doctxt report.docx -c -o comments.txt
  doctxt scan.pdf --pdftotext`,
		version, "out.txt", &c,
		func(cmd *cobra.Command, input string) error {
			log := c.logger(cmd)
			text, err := doctxt.ExtractFile(input, opts)
			if err != nil {
				return err
			}
			if err := writeOutput(cmd, c.output, []byte(text)); err != nil {
				return err
			}
			log.Debug("extracted", "input", input, "output", c.output, "bytes", len(text))
			return nil
		})
	cmd.Flags().BoolVarP(&opts.Comments, "comments", "c", false, "extract review comments instead of body text")
	cmd.Flags().BoolVar(&opts.PDFFallback, "pdftotext", false, "fall back to the pdftotext binary for PDFs")
	return cmd
}
