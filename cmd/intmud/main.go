// Command intmud is the CLI entry point: parses and compiles a script
// source tree per a `.int` project file, then runs the event loop, drops
// into an interactive shell, or just validates the tree (spec §6 "CLI and
// configuration (external collaborator)"; SPEC_FULL §1 ambient CLI stack).
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/magoolation/intmud/internal/config"
	"github.com/magoolation/intmud/internal/logging"
	"github.com/magoolation/intmud/internal/scheduler"
	"github.com/magoolation/intmud/internal/vm"
)

func main() {
	app := &cli.Command{
		Name:  "intmud",
		Usage: "execution core for a multi-user text-world scripting language",
		Commands: []*cli.Command{
			runCommand,
			replCommand,
			serveCommand,
			checkCommand,
			fmtCommand,
			configCommand,
		},
	}
	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "intmud: %v\n", err)
		os.Exit(1)
	}
}

func loadFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "config",
		Aliases:  []string{"c"},
		Usage:    "path to the .int project configuration file",
		Required: true,
	}
}

func loadConfig(cmd *cli.Command) (config.Config, error) {
	return config.ParseIntFile(cmd.String("config"))
}

var runCommand = &cli.Command{
	Name:  "run",
	Usage: "compile the configured source tree and run the event loop",
	Flags: []cli.Flag{
		loadFlag(),
		&cli.IntFlag{Name: "ticks", Usage: "stop after N ticks (0 = run forever)", Value: 0},
	},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		reg, errs := loadRegistry(cfg)
		if len(errs) > 0 {
			return errs
		}
		m := vm.New(reg)
		main, ok := m.CreateObject(cfg.MainFile)
		if ok {
			m.SetGlobal(main)
		}
		log := logging.New(logging.Level(cfg.Log))
		sch := scheduler.New(m, time.Duration(cfg.TickInterval)*time.Millisecond, cfg.Exec, log)

		n := cmd.Int("ticks")
		if n > 0 {
			for i := int64(0); i < n; i++ {
				sch.Tick()
			}
			return nil
		}
		stop := make(chan struct{})
		sch.Run(stop)
		return nil
	},
}

var checkCommand = &cli.Command{
	Name:  "check",
	Usage: "parse and compile the configured source tree without running it",
	Flags: []cli.Flag{loadFlag()},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		_, errs := loadRegistry(cfg)
		if len(errs) > 0 {
			for _, e := range errs {
				fmt.Fprintln(os.Stderr, e)
			}
			return fmt.Errorf("%d error(s)", len(errs))
		}
		fmt.Println("ok")
		return nil
	},
}

var fmtCommand = &cli.Command{
	Name:  "fmt",
	Usage: "verify a file lexes (no source formatting is performed)",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Required: true},
	},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		return checkLexes(cmd.String("file"))
	},
}

var configCommand = &cli.Command{
	Name:  "config",
	Usage: "inspect a .int project configuration file",
	Commands: []*cli.Command{
		{
			Name:  "dump",
			Usage: "re-serialise the parsed configuration as YAML",
			Flags: []cli.Flag{loadFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				out, err := cfg.DumpYAML()
				if err != nil {
					return err
				}
				fmt.Print(out)
				return nil
			},
		},
		{
			Name:  "check",
			Usage: "parse a .int file and report any errors",
			Flags: []cli.Flag{loadFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				_, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				fmt.Println("ok")
				return nil
			},
		},
	},
}
