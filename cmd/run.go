package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	finity "github.com/finity-lang/finity"
	"github.com/finity-lang/finity/internal/fsm"
	"github.com/finity-lang/finity/internal/lang"
)

var runInputs []string

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Compile a program and replay its machine",
	Long: `Compile a program and replay the resulting machine. With --input,
only the matching initial environment is replayed; otherwise every
declared input is replayed in canonical order.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		// replay the unminimized machine: its start states carry the
		// initial environments used for --input matching
		m, err := compileFile(ctx, args[0], false, false)
		if err != nil {
			reportReject(err)
			os.Exit(1)
		}

		keys, err := selectStarts(m, runInputs)
		if err != nil {
			reportReject(err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		for _, key := range keys {
			out, err := finity.Run(m, key)
			if err != nil {
				reportReject(err)
				os.Exit(1)
			}
			id, _ := m.Start(key)
			env := m.State(id).Env
			switch out.Class {
			case fsm.Halted:
				fmt.Printf("%s  %s -> %s\n", green("halt"), env, out.Output)
			case fsm.Looping:
				fmt.Printf("%s  %s\n", yellow("loop"), env)
			}
		}
	},
}

func init() {
	runCmd.Flags().StringArrayVar(&runInputs, "input", nil, "Input assignment var=value (repeatable)")
}

// selectStarts resolves --input assignments against the machine's
// start states. Without assignments every start key is returned.
func selectStarts(m *finity.Machine, inputs []string) ([]string, error) {
	if len(inputs) == 0 {
		return m.StartKeys(), nil
	}

	want := make(map[string]string, len(inputs))
	for _, in := range inputs {
		name, val, ok := strings.Cut(in, "=")
		if !ok {
			return nil, fmt.Errorf("bad input %q, want var=value", in)
		}
		want[strings.TrimSpace(name)] = strings.TrimSpace(val)
	}

	var keys []string
	for _, key := range m.StartKeys() {
		id, _ := m.Start(key)
		env := m.State(id).Env
		if envMatches(env, want) {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("no declared input matches %v", inputs)
	}
	return keys, nil
}

func envMatches(env *lang.Env, want map[string]string) bool {
	for name, raw := range want {
		val := env.Get(name)
		if val == nil {
			return false
		}
		if !renderedEqual(val, raw) {
			return false
		}
	}
	return true
}

func renderedEqual(val lang.Value, raw string) bool {
	switch v := val.(type) {
	case lang.IntValue:
		return v.String() == raw
	case lang.StringValue:
		return v.Val == raw
	default:
		return val.String() == raw
	}
}
