package cli

import (
	"fmt"
	"strings"

	"github.com/dgallion1/docbridge/internal/md2docx"
	"github.com/spf13/cobra"
)

// NewMd2DocxCommand returns the md2docx command.
func NewMd2DocxCommand(version string) *cobra.Command {
	var (
		c        common
		baseDir  string
		noImages bool
		noExt    []string
	)
	cmd := newRoot("md2docx <input.md>", "Convert Markdown to a Word document",
		`Convert a Markdown file to a .docx package.

Local images are embedded, resolved against the input's directory
unless --base-dir is set. Remote images are written as their alt text.

Examples:
  md2docx notes.md
  md2docx notes.md -o notes.docx
  md2docx notes.md --disable underline`,
		version, "output.docx", &c,
		func(cmd *cobra.Command, input string) error {
			log := c.logger(cmd)
			ext, err := extensionsWithout(noExt)
			if err != nil {
				return err
			}
			conv := md2docx.New(
				md2docx.WithBaseDir(baseDir),
				md2docx.WithExtensions(ext),
				md2docx.WithSkipImages(noImages),
				md2docx.WithLogger(log),
			)
			if c.output == Stdout {
				data, err := conv.ConvertFile(input)
				if err != nil {
					return err
				}
				return writeOutput(cmd, Stdout, data)
			}
			if err := conv.ConvertFileToFile(input, c.output); err != nil {
				return err
			}
			log.Info("converted", "input", input, "output", c.output)
			return nil
		})
	cmd.Flags().StringVar(&baseDir, "base-dir", "", "directory relative image paths are resolved against")
	cmd.Flags().BoolVar(&noImages, "no-images", false, "write images as alt text instead of embedding them")
	cmd.Flags().StringSliceVar(&noExt, "disable", nil, "Markdown extensions to turn off (tables, strikethrough, tasklists, autolinks, underline)")
	return cmd
}

func extensionsWithout(names []string) (md2docx.Extensions, error) {
	ext := md2docx.AllExtensions()
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "tables":
			ext.Tables = false
		case "strikethrough":
			ext.Strikethrough = false
		case "tasklists":
			ext.TaskLists = false
		case "autolinks":
			ext.Autolinks = false
		case "underline":
			ext.Underline = false
		default:
			return ext, fmt.Errorf("unknown extension %q", name)
		}
	}
	return ext, nil
}
