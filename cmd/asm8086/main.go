package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/oisee/asm8086/pkg/batch"
	"github.com/oisee/asm8086/pkg/cpu"
	"github.com/oisee/asm8086/pkg/decode"
	"github.com/oisee/asm8086/pkg/encode"
	"github.com/oisee/asm8086/pkg/inst"
	"github.com/oisee/asm8086/pkg/interp"
)

func main() {
	var verbose bool
	var formatStr string

	rootCmd := &cobra.Command{
		Use:   "asm8086",
		Short: "8086 machine-code decoder, NASM re-assembler, and interpreter",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := zerolog.InfoLevel
			if verbose {
				level = zerolog.DebugLevel
			}
			log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
				Level(level).With().Timestamp().Logger()
			return nil
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&formatStr, "format", "signed", "immediate format: signed, unsigned, hex")

	decodeCmd := &cobra.Command{
		Use:   "decode [file]",
		Short: "Decode a byte stream and print one line per instruction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseFormat(formatStr)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			ctx := inst.NewDecodingContext(format)
			if err := decode.Decode(data, ctx); err != nil {
				return err
			}
			for _, ii := range ctx.Instructions {
				fmt.Printf("%04x  %-24s %d bytes\n", ii.Offset, ii.Type.Mnemonic(), ii.ByteCount)
			}
			log.Debug().Int("instructions", len(ctx.Instructions)).Int("bytes", len(data)).Msg("decode complete")
			return nil
		},
	}

	disasmCmd := &cobra.Command{
		Use:   "disasm [file]",
		Short: "Decode a byte stream and print NASM-compatible assembly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseFormat(formatStr)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			ctx := inst.NewDecodingContext(format)
			if err := decode.Decode(data, ctx); err != nil {
				return err
			}
			fmt.Print(encode.Encode(ctx))
			return nil
		},
	}

	var dumpMem string
	var dumpOut string
	runCmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Decode and execute a byte stream against a fresh CPU state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseFormat(formatStr)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			ctx := inst.NewDecodingContext(format)
			if err := decode.Decode(data, ctx); err != nil {
				return err
			}

			program := interp.NewProgram(ctx.Instructions)
			state := cpu.NewState()
			runErr := interp.Run(state, program)

			printRegisters(state)
			if dumpMem != "" {
				if err := dumpMemoryRange(state, dumpMem, dumpOut); err != nil {
					return err
				}
			}
			if runErr != nil {
				return runErr
			}
			return nil
		},
	}
	runCmd.Flags().StringVar(&dumpMem, "dump-mem", "", "memory range to dump, start:end with end exclusive (decimal or 0x-prefixed hex)")
	runCmd.Flags().StringVar(&dumpOut, "dump-out", "", "file to write the memory dump to (default: stdout)")

	var batchWorkers int
	var batchRun bool
	batchCmd := &cobra.Command{
		Use:   "batch [files...]",
		Short: "Decode (and optionally run) many files concurrently",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseFormat(formatStr)
			if err != nil {
				return err
			}
			jobs := make([]batch.Job, 0, len(args))
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				jobs = append(jobs, batch.Job{Path: path, Data: data})
			}

			results := batch.Run(context.Background(), jobs, batch.Options{
				Format:  format,
				Run:     batchRun,
				Workers: batchWorkers,
				Logger:  log.Logger,
			})

			failures := 0
			for _, r := range results {
				if r.Err != nil {
					failures++
					fmt.Printf("%s: FAIL: %v\n", r.Path, r.Err)
					continue
				}
				fmt.Printf("%s: %d instructions\n", r.Path, r.Instructions)
			}
			if failures > 0 {
				return fmt.Errorf("%d of %d files failed", failures, len(results))
			}
			return nil
		},
	}
	batchCmd.Flags().IntVar(&batchWorkers, "workers", 0, "concurrent workers (0 = NumCPU)")
	batchCmd.Flags().BoolVar(&batchRun, "run", false, "also interpret each file after decoding it")

	rootCmd.AddCommand(decodeCmd, disasmCmd, runCmd, batchCmd)
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("asm8086 failed")
		os.Exit(exitCode(err))
	}
}

func parseFormat(s string) (inst.ImmFormat, error) {
	switch strings.ToLower(s) {
	case "signed", "default", "":
		return inst.ImmDefault, nil
	case "unsigned":
		return inst.ImmUnsigned, nil
	case "hex":
		return inst.ImmHex, nil
	default:
		return 0, fmt.Errorf("invalid --format value %q: use signed, unsigned, or hex", s)
	}
}

func printRegisters(s *cpu.State) {
	names := []struct {
		label string
		reg   cpu.Reg
	}{
		{"ax", cpu.AX}, {"cx", cpu.CX}, {"dx", cpu.DX}, {"bx", cpu.BX},
		{"sp", cpu.SP}, {"bp", cpu.BP}, {"si", cpu.SI}, {"di", cpu.DI},
		{"es", cpu.ES}, {"cs", cpu.CS}, {"ss", cpu.SS}, {"ds", cpu.DS},
		{"ip", cpu.IP},
	}
	for _, n := range names {
		fmt.Printf("%s=%04x ", n.label, s.Reg16(n.reg))
	}
	fmt.Printf("flags=%04x\n", s.Reg16(cpu.FLAGS))
}

func dumpMemoryRange(s *cpu.State, spec string, outPath string) error {
	parts := strings.SplitN(spec, ":", 2)
	if len(parts) != 2 {
		return fmt.Errorf("invalid --dump-mem %q: want start:end", spec)
	}
	start, err := strconv.ParseInt(parts[0], 0, 64)
	if err != nil {
		return fmt.Errorf("invalid --dump-mem start %q: %w", parts[0], err)
	}
	end, err := strconv.ParseInt(parts[1], 0, 64)
	if err != nil {
		return fmt.Errorf("invalid --dump-mem end %q: %w", parts[1], err)
	}
	if start < 0 || start >= end || end > cpu.MemorySize {
		return fmt.Errorf("--dump-mem range out of bounds: %s", spec)
	}

	data := s.Memory[start:end]
	if outPath == "" {
		os.Stdout.Write(data)
		return nil
	}
	return os.WriteFile(outPath, data, 0o644)
}

func exitCode(err error) int {
	switch err.(type) {
	case *decode.Error:
		return 1
	case *interp.Error:
		return 2
	default:
		return 1
	}
}
