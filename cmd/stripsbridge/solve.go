package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/haricheung/stripsbridge/internal/problemfile"
	"github.com/haricheung/stripsbridge/internal/search"
	"github.com/haricheung/stripsbridge/internal/solver"
)

// solveReport is the machine-readable solve output.
type solveReport struct {
	Problem  string   `json:"problem" yaml:"problem"`
	Planner  string   `json:"planner" yaml:"planner"`
	Found    bool     `json:"found" yaml:"found"`
	CacheHit bool     `json:"cache_hit" yaml:"cache_hit"`
	RunID    string   `json:"run_id" yaml:"run_id"`
	Plan     []string `json:"plan" yaml:"plan"`
	// StagesMs maps pipeline stage to wall-clock milliseconds
	StagesMs map[string]int64 `json:"stages_ms,omitempty" yaml:"stages_ms,omitempty"`
}

func newSolveCmd(a *app) *cobra.Command {
	var (
		output   string
		strategy string
		options  map[string]string
	)
	cmd := &cobra.Command{
		Use:   "solve <problem.yaml>",
		Short: "Solve a problem file and print the plan",
		Long: `Load a problem file, convert it to typed STRIPS, search for a plan
and print the plan in terms of the original actions and objects.

Exits non-zero when the problem uses features the planner does not
support. A problem without a solution prints "no plan found" and exits 0.

Examples:
  stripsbridge solve blocks.yaml
  stripsbridge solve blocks.yaml --output yaml
  stripsbridge solve blocks.yaml --strategy gbf --timeout 30s`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []solver.Option
			switch strategy {
			case "bfs":
			case "gbf":
				opts = append(opts, solver.WithStrategy(search.GreedyBestFirst, search.GoalCount{}))
			default:
				return fmt.Errorf("invalid strategy %q (want bfs or gbf)", strategy)
			}
			if output != "text" && output != "json" && output != "yaml" {
				return fmt.Errorf("invalid output format %q (want text, json or yaml)", output)
			}

			p, err := problemfile.Load(args[0])
			if err != nil {
				return err
			}
			wired, release := a.solverOptions()
			defer release()
			s, err := solver.FromOptions(options, append(wired, opts...)...)
			if err != nil {
				return err
			}
			defer s.Destroy()

			res, err := s.SolveResult(cmd.Context(), p)
			if err != nil {
				return err
			}

			if output == "text" {
				a.display(cmd).Plan(p.Name(), res.Plan)
				return nil
			}
			report := solveReport{
				Problem:  p.Name(),
				Planner:  s.Name(),
				Found:    res.Found,
				CacheHit: res.CacheHit,
				RunID:    res.RunID,
				Plan:     []string{},
			}
			for _, st := range res.Stages {
				if report.StagesMs == nil {
					report.StagesMs = make(map[string]int64)
				}
				report.StagesMs[st.Stage] = st.ElapsedMs
			}
			if res.Plan != nil {
				for _, step := range res.Plan.Actions() {
					report.Plan = append(report.Plan, step.String())
				}
			}
			out := cmd.OutOrStdout()
			if output == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			enc := yaml.NewEncoder(out)
			defer enc.Close()
			return enc.Encode(report)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format: text, json, yaml")
	cmd.Flags().StringVar(&strategy, "strategy", "bfs", "Search strategy: bfs or gbf (greedy best-first, goal count)")
	cmd.Flags().StringToStringVar(&options, "option", nil, "Planner option key=value (Pyperplan accepts none)")
	return cmd
}
