package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/haricheung/stripsbridge/internal/convert"
	"github.com/haricheung/stripsbridge/internal/problemfile"
)

func newConvertCmd(a *app) *cobra.Command {
	var domainOut, problemOut string
	cmd := &cobra.Command{
		Use:   "convert <problem.yaml>",
		Short: "Print the generated STRIPS domain and problem as PDDL",
		Long: `Convert a problem file to typed STRIPS and print the PDDL domain followed
by the PDDL problem. With --domain-out and --problem-out the two parts are
written to files instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := problemfile.Load(args[0])
			if err != nil {
				return err
			}
			conv := convert.NewConverter()
			d, err := conv.Domain(p)
			if err != nil {
				return err
			}
			sp, err := conv.Problem(d, p)
			if err != nil {
				return err
			}
			if err := emit(cmd.OutOrStdout(), domainOut, d.PDDL()); err != nil {
				return err
			}
			return emit(cmd.OutOrStdout(), problemOut, sp.PDDL())
		},
	}
	cmd.Flags().StringVar(&domainOut, "domain-out", "", "Write the domain PDDL to this file")
	cmd.Flags().StringVar(&problemOut, "problem-out", "", "Write the problem PDDL to this file")
	return cmd
}

// emit writes text to path, or to w when path is empty.
func emit(w io.Writer, path, text string) error {
	if path == "" {
		_, err := io.WriteString(w, text)
		return err
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
