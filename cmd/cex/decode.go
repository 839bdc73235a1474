package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/benbjohnson/cex"
	"github.com/benbjohnson/cex/cfa"
	"github.com/benbjohnson/cex/fixture"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DecodeCommand represents a command for decoding the values along an error
// path described by a fixture.
type DecodeCommand struct {
	Machine       string
	Linear        bool
	AllowMulConst bool
	AllowDivConst bool
	JSON          bool
	Check         bool
	Verbose       bool
	NoColor       bool
}

// NewDecodeCommand returns a new instance of DecodeCommand.
func NewDecodeCommand() *DecodeCommand {
	return &DecodeCommand{}
}

// Command returns the cobra command bound to the receiver's fields.
func (c *DecodeCommand) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode PATH...",
		Short: "Print the assumptions along the error path of each fixture",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Run(cmd, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&c.Machine, "machine", "", "target machine (linux32, linux64)")
	flags.BoolVar(&c.Linear, "linear", false, "restrict evaluation to linear arithmetic")
	flags.BoolVar(&c.AllowMulConst, "allow-mul-const", false, "allow multiplication by a constant in linear mode")
	flags.BoolVar(&c.AllowDivConst, "allow-div-const", false, "allow division and modulo by a constant in linear mode")
	flags.BoolVar(&c.JSON, "json", false, "print one record per edge as JSON")
	flags.BoolVar(&c.Check, "check", false, "compare against the expected assumptions of the fixture")
	flags.BoolVarP(&c.Verbose, "verbose", "v", false, "enable debug logging")
	flags.BoolVar(&c.NoColor, "no-color", false, "disable colored output")
	return cmd
}

// Run decodes each fixture named in args.
func (c *DecodeCommand) Run(cmd *cobra.Command, args []string) error {
	if c.NoColor {
		color.NoColor = true
	}

	logger := zap.NewNop()
	if c.Verbose {
		logger = newLogger(cmd.ErrOrStderr())
	}
	defer func() { _ = logger.Sync() }()

	out := cmd.OutOrStdout()
	var failed int
	for _, path := range args {
		f, err := fixture.Load(path)
		if err != nil {
			return err
		}

		pa, err := c.decode(cmd, f, logger.With(zap.String("fixture", f.String())))
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		switch {
		case c.Check:
			failed += c.check(out, f, pa)
		case c.JSON:
			if err := c.printJSON(out, pa); err != nil {
				return err
			}
		default:
			c.print(out, f, pa)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d edge(s) did not match", failed)
	}
	return nil
}

func (c *DecodeCommand) decode(cmd *cobra.Command, f *fixture.Fixture, logger *zap.Logger) (*cex.PathAssumptions, error) {
	machine := f.Machine
	if c.Machine != "" {
		m, ok := cfa.MachineByName(c.Machine)
		if !ok {
			return nil, fmt.Errorf("unknown machine %q", c.Machine)
		}
		machine = m
	}

	config := f.Config
	if c.Linear {
		config.AssumeLinearArithmetics = true
	}
	if c.AllowMulConst {
		config.AllowMultiplicationWithConstants = true
	}
	if c.AllowDivConst {
		config.AllowDivisionAndModuloByConstants = true
	}

	builder := cex.NewAssumptionBuilder(machine, config)
	builder.Logger = logger

	composer := cex.NewPathComposer(builder)
	composer.Logger = logger

	return composer.Compose(cmd.Context(), f.Path())
}

func (c *DecodeCommand) print(w io.Writer, f *fixture.Fixture, pa *cex.PathAssumptions) {
	header := color.New(color.FgCyan, color.Bold)
	comment := color.New(color.FgHiBlack)

	if f.Name != "" {
		header.Fprintf(w, "# %s\n", f.Name)
	}
	for _, i := range pa.Indices() {
		ea := pa.At(i)
		header.Fprintf(w, "Line %d: ", ea.Edge.Info().LineNumber)
		fmt.Fprintln(w, ea.Edge)
		for _, s := range ea.Statements() {
			fmt.Fprintf(w, "\t%s\n", s)
		}
		if ea.Comment != "" {
			for _, line := range strings.Split(ea.Comment, "\n") {
				comment.Fprintf(w, "\t// %s\n", line)
			}
		}
	}
}

func (c *DecodeCommand) printJSON(w io.Writer, pa *cex.PathAssumptions) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(pa.Records())
}

// check reports every edge whose assumptions differ from the fixture's
// expectations and returns the number of differing edges. Statements and
// comment are only compared when the fixture declares them.
func (c *DecodeCommand) check(w io.Writer, f *fixture.Fixture, pa *cex.PathAssumptions) int {
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)

	var failed int
	for i, p := range f.Points {
		if p.Expect == nil && p.ExpectComment == "" {
			continue
		}
		ea := pa.At(i)
		got, want := ea.Statements(), p.Expect
		mismatch := p.Expect != nil && strings.Join(got, "\n") != strings.Join(want, "\n")
		if p.ExpectComment != "" && ea.Comment != p.ExpectComment {
			mismatch = true
		}
		if mismatch {
			failed++
			red.Fprintf(w, "FAIL %s: path[%d] %s\n", f, i, ea.Edge)
			fmt.Fprintf(w, "\twant: %q %q\n\tgot:  %q %q\n", want, p.ExpectComment, got, ea.Comment)
		}
	}
	if failed == 0 {
		green.Fprintf(w, "ok   %s\n", f)
	}
	return failed
}

// newLogger returns a development logger writing to w.
func newLogger(w io.Writer) *zap.Logger {
	enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	core := zapcore.NewCore(enc, zapcore.AddSync(w), zap.DebugLevel)
	return zap.New(core, zap.Development())
}
