package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	finity "github.com/finity-lang/finity"
)

var equivParallel bool

var equivCmd = &cobra.Command{
	Use:   "equiv <file-a> <file-b>",
	Short: "Decide whether two programs are behaviorally equivalent",
	Long: `Compile and minimize both programs, then compare them in lockstep
over every shared input. The verdict is exact: either the machines
agree on all inputs, or a distinguishing input is printed.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		ma, err := compileFile(ctx, args[0], true, equivParallel)
		if err != nil {
			reportReject(err)
			os.Exit(1)
		}
		mb, err := compileFile(ctx, args[1], true, equivParallel)
		if err != nil {
			reportReject(err)
			os.Exit(1)
		}

		res, err := finity.Equivalent(ma, mb)
		if err != nil {
			reportReject(err)
			os.Exit(1)
		}

		if res.Equivalent {
			green := color.New(color.FgGreen).SprintFunc()
			fmt.Printf("%s %s == %s\n", green("equivalent:"), args[0], args[1])
			return
		}

		red := color.New(color.FgRed).SprintFunc()
		fmt.Printf("%s %s\n", red("distinguished:"), res.Reason)
		if res.InputEnv != nil {
			fmt.Printf("  input: %s\n", res.InputEnv)
		}
		os.Exit(1)
	},
}

func init() {
	equivCmd.Flags().BoolVar(&equivParallel, "parallel", false, "Explore state spaces concurrently")
}
