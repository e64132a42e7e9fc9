package habits

import (
	"bytes"
	"fmt"
	"os"

	"github.com/julianstephens/habitkeep/internal/cli"
	"github.com/julianstephens/habitkeep/internal/transfer"
)

type ImportCmd struct {
	File string `arg:"" type:"existingfile" help:"JSON export to import."`
	Yes  bool   `short:"y" help:"Skip the confirmation prompt."`
}

func (c *ImportCmd) Run(ctx *cli.Context) error {
	data, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", c.File, err)
	}
	incoming, err := transfer.ParseImportBytes(data)
	if err != nil {
		return err
	}

	if !c.Yes {
		ok, err := ctx.Confirm(
			fmt.Sprintf("Import %d habits for %s?", incoming.Len(), ctx.User().Email),
			"Habits are merged into your list; nothing is removed. Current data is backed up first.",
		)
		if err != nil {
			return err
		}
		if !ok {
			ctx.Println("Import cancelled.")
			return nil
		}
	}

	svc, err := ctx.Service()
	if err != nil {
		return err
	}
	merged, err := svc.Import(ctx.Ctx, ctx.User(), bytes.NewReader(data))
	if err != nil {
		return err
	}
	ctx.Printf("✓ Imported %d habits (%d total)\n", incoming.Len(), merged.Len())
	return nil
}

type ExportCmd struct {
	Out string `short:"o" help:"Output file; '-' writes to stdout (default: habits_<unix time>.json)."`
}

func (c *ExportCmd) Run(ctx *cli.Context) error {
	svc, err := ctx.Service()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	name, err := svc.Export(ctx.Ctx, ctx.User(), &buf)
	if err != nil {
		return err
	}

	switch c.Out {
	case "-":
		_, err := ctx.Out.Write(buf.Bytes())
		return err
	case "":
		c.Out = name
	}
	if err := os.WriteFile(c.Out, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	ctx.Printf("✓ Exported habits to %s\n", c.Out)
	return nil
}
