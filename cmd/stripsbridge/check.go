package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haricheung/stripsbridge/internal/convert"
	"github.com/haricheung/stripsbridge/internal/problemfile"
	"github.com/haricheung/stripsbridge/internal/solver"
)

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check <problem.yaml>",
		Short: "Report the problem's features and whether the planner supports them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := problemfile.Load(args[0])
			if err != nil {
				return err
			}
			s := solver.New()
			kind := p.Kind()
			supported := s.Supports(kind)
			var reason error
			if !supported {
				if reason = convert.Screen(p); reason == nil {
					reason = fmt.Errorf("features %s exceed flat typing", kind)
				}
			}
			a.display(cmd).Kind(p.Name(), kind, supported, reason)
			if !supported {
				return fmt.Errorf("%s is not supported by %s", p.Name(), s.Name())
			}
			return nil
		},
	}
}
