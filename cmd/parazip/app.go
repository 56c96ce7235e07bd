// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/gochunk/parazip"
)

const (
	// ExitCodeSuccess is successful error code.
	ExitCodeSuccess int = iota

	// ExitCodeFlagParseError is the exit code for a flag parsing error.
	ExitCodeFlagParseError

	// ExitCodeUnknownError is the exit code for an unknown error.
	ExitCodeUnknownError
)

// ErrFlagParse is a flag parsing error.
var ErrFlagParse = errors.New("parsing flags")

// ErrParazip wraps every error surfaced by a parazip subcommand.
var ErrParazip = errors.New("parazip")

func init() {
	// Set the HelpFlag to a random name so that it isn't used by any
	// subcommand's own flag parsing. See: github.com/urfave/cli/issues/1809
	cli.HelpFlag = &cli.BoolFlag{
		Name:               "d41d8cd98f00b204e980",
		DisableDefaultText: true,
	}
}

// must checks the error and panics if not nil. It is used only for writes
// to the CLI's own stdout/stderr, which are not expected to fail in normal
// operation.
func must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

// formatFlag is shared across compress/decompress/list; allFormats lists
// every value it accepts.
var allFormats = []parazip.Format{
	parazip.Gzip, parazip.Zlib, parazip.RawDeflate,
	parazip.Snappy, parazip.Mgzip, parazip.BGZF,
}

func formatNames() []string {
	names := make([]string, len(allFormats))
	for i, f := range allFormats {
		names[i] = f.String()
	}
	return names
}

func parseFormat(s string) (parazip.Format, error) {
	f := parazip.Format(strings.ToLower(s))
	for _, want := range allFormats {
		if f == want {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: unknown format %q, want one of %s", ErrFlagParse, s, strings.Join(formatNames(), ", "))
}

func newParazipApp() *cli.App {
	formatFlag := &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"F"},
		Usage:   fmt.Sprintf("compression format (%s)", strings.Join(formatNames(), ", ")),
		Value:   parazip.Gzip.String(),
	}
	levelFlag := &cli.IntFlag{
		Name:    "level",
		Aliases: []string{"l"},
		Usage:   "compression level; 0 selects the format default",
	}
	threadsFlag := &cli.IntFlag{
		Name:    "threads",
		Aliases: []string{"j"},
		Usage:   "worker pool size; 0 or 1 runs sequentially",
		Value:   1,
	}
	forceFlag := &cli.BoolFlag{
		Name:               "force",
		Aliases:            []string{"f"},
		Usage:              "force overwrite of output file",
		DisableDefaultText: true,
	}

	return &cli.App{
		Name:  filepath.Base(os.Args[0]),
		Usage: "Parallel, order-preserving stream compression.",
		Description: strings.Join([]string{
			"parazip(1) compresses and decompresses streams across a worker",
			"pool while preserving block order, for gzip, zlib, raw deflate,",
			"snappy, mgzip, and bgzf.",
		}, "\n"),
		HideHelp:        true,
		HideHelpCommand: true,
		Commands: []*cli.Command{
			{
				Name:      "compress",
				Usage:     "compress a file",
				ArgsUsage: "PATH",
				Flags:     []cli.Flag{formatFlag, levelFlag, threadsFlag, forceFlag},
				Action: func(c *cli.Context) error {
					format, err := parseFormat(c.String("format"))
					if err != nil {
						return err
					}
					cmd := compressCmd{
						path:    c.Args().First(),
						format:  format,
						level:   c.Int("level"),
						threads: c.Int("threads"),
						force:   c.Bool("force"),
					}
					return cmd.Run(c.App.Writer)
				},
			},
			{
				Name:      "decompress",
				Usage:     "decompress a file",
				ArgsUsage: "PATH",
				Flags:     []cli.Flag{formatFlag, threadsFlag, forceFlag},
				Action: func(c *cli.Context) error {
					format, err := parseFormat(c.String("format"))
					if err != nil {
						return err
					}
					cmd := decompressCmd{
						path:    c.Args().First(),
						format:  format,
						threads: c.Int("threads"),
						force:   c.Bool("force"),
					}
					return cmd.Run()
				},
			},
			{
				Name:      "list",
				Usage:     "list per-block sizes of a bgzf or mgzip file",
				ArgsUsage: "PATH",
				Flags:     []cli.Flag{formatFlag},
				Action: func(c *cli.Context) error {
					format, err := parseFormat(c.String("format"))
					if err != nil {
						return err
					}
					cmd := listCmd{path: c.Args().First(), format: format}
					return cmd.Run(c.App.Writer)
				},
			},
			{
				Name:  "license",
				Usage: "print license information and exit",
				Action: func(c *cli.Context) error {
					return printLicense(c)
				},
			},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:               "help",
				Usage:              "print this help text and exit",
				Aliases:            []string{"h"},
				DisableDefaultText: true,
			},
			&cli.BoolFlag{
				Name:               "version",
				Usage:              "print version information and exit",
				Aliases:            []string{"v"},
				DisableDefaultText: true,
			},
		},
		Copyright: "Google LLC",
		Action: func(c *cli.Context) error {
			if c.Bool("version") {
				return printVersion(c)
			}
			return cli.ShowAppHelp(c)
		},
		ExitErrHandler: func(c *cli.Context, err error) {
			if err == nil {
				return
			}
			_ = must(fmt.Fprintf(c.App.ErrWriter, "%s: %v\n", c.App.Name, err))
			if errors.Is(err, ErrFlagParse) {
				cli.OsExiter(ExitCodeFlagParseError)
				return
			}
			cli.OsExiter(ExitCodeUnknownError)
		},
	}
}
