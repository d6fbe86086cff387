package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	finity "github.com/finity-lang/finity"
	"github.com/finity-lang/finity/internal/fsm"
)

var (
	compileOptimise bool
	compileParallel bool
	compileDump     bool
)

var compileCmd = &cobra.Command{
	Use:   "compile <file>",
	Short: "Compile a program into its finite-state machine",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		m, err := compileFile(ctx, args[0], compileOptimise, compileParallel)
		if err != nil {
			reportReject(err)
			os.Exit(1)
		}

		summary, err := fsm.Summarize(m)
		if err != nil {
			logger.Error("Failed to summarize machine", zap.Error(err))
			os.Exit(1)
		}
		out, err := yaml.Marshal(summary)
		if err != nil {
			logger.Error("Failed to marshal summary", zap.Error(err))
			os.Exit(1)
		}
		fmt.Print(string(out))

		if compileDump {
			fmt.Println()
			fmt.Print(m.String())
		}
	},
}

func init() {
	compileCmd.Flags().BoolVar(&compileOptimise, "optimise", false, "Minimize the machine after compilation")
	compileCmd.Flags().BoolVar(&compileParallel, "parallel", false, "Explore initial environments in parallel")
	compileCmd.Flags().BoolVar(&compileDump, "dump", false, "Dump every state and transition")
}

func compileFile(ctx context.Context, path string, optimise, parallel bool) (*finity.Machine, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg, err := finity.LoadConfig(cfgFile)
	if err != nil && cfgFile != "" {
		return nil, err
	}
	cfg.Logger = logger
	cfg.Parallel = parallel

	var bar *progressbar.ProgressBar
	cfg.Progress = func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription(path),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
			)
		}
		_ = bar.Set(done)
	}

	m, err := finity.CompileContext(ctx, string(source), cfg)
	if err != nil {
		return nil, err
	}
	if bar != nil {
		fmt.Println()
	}
	if optimise {
		m = finity.Optimise(m)
	}
	return m, nil
}

func reportReject(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(os.Stderr, "%s %v\n", red("rejected:"), err)
}
