package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	msx "github.com/wippyai/msx-toolkit"
	"github.com/wippyai/msx-toolkit/toolkit"
)

var inspectYAML bool

var inspectCmd = &cobra.Command{
	Use:   "inspect [input.msx]",
	Short: "Describe the objects of an MSX input file",
	Long: `Open an MSX input file and list its object counts, species,
constants, parameters and patterns. Network elements and terms are
counted only: the engine has no ID lookup for them. No simulation is run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectYAML, "yaml", false, "Print the summary as YAML")
}

type speciesInfo struct {
	ID       string  `yaml:"id"`
	Location string  `yaml:"location"`
	Units    string  `yaml:"units"`
	ATol     float64 `yaml:"atol"`
	RTol     float64 `yaml:"rtol"`
}

type constantInfo struct {
	ID    string  `yaml:"id"`
	Value float64 `yaml:"value"`
}

type patternInfo struct {
	ID          string    `yaml:"id"`
	Multipliers []float64 `yaml:"multipliers"`
}

type inspection struct {
	Input     string         `yaml:"input"`
	Counts    map[string]int `yaml:"counts"`
	Species   []speciesInfo  `yaml:"species,omitempty"`
	Constants []constantInfo `yaml:"constants,omitempty"`
	Patterns  []patternInfo  `yaml:"patterns,omitempty"`
	Params    []string       `yaml:"parameters,omitempty"`
}

var objectTypes = []msx.ObjectType{
	msx.Node, msx.Link, msx.Tank, msx.Species,
	msx.Term, msx.Parameter, msx.Constant, msx.Pattern,
}

func runInspect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(inputArg(args), nil)
	if err != nil {
		return err
	}

	s, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	var ins *inspection
	err = s.tk.WithProject(ctx, cfg.Project.Input, func(p *toolkit.Project) error {
		var err error
		ins, err = inspect(ctx, p)
		return err
	})
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if inspectYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(ins); err != nil {
			return err
		}
		return enc.Close()
	}
	printInspection(w, ins)
	return nil
}

func inspect(ctx context.Context, p *toolkit.Project) (*inspection, error) {
	ins := &inspection{Input: p.Path(), Counts: make(map[string]int, len(objectTypes))}
	for _, t := range objectTypes {
		n, err := p.GetCount(ctx, t)
		if err != nil {
			return nil, err
		}
		ins.Counts[typeName(t)] = n
	}

	ids, err := p.IDs(ctx, msx.Species)
	if err != nil {
		return nil, err
	}
	for i, id := range ids {
		sp, err := p.GetSpecies(ctx, i+1)
		if err != nil {
			return nil, err
		}
		ins.Species = append(ins.Species, speciesInfo{
			ID:       id,
			Location: strings.TrimPrefix(sp.Location.String(), "MSX_"),
			Units:    sp.Units,
			ATol:     sp.ATol,
			RTol:     sp.RTol,
		})
	}

	if ids, err = p.IDs(ctx, msx.Constant); err != nil {
		return nil, err
	}
	for i, id := range ids {
		v, err := p.GetConstant(ctx, i+1)
		if err != nil {
			return nil, err
		}
		ins.Constants = append(ins.Constants, constantInfo{ID: id, Value: v})
	}

	if ids, err = p.IDs(ctx, msx.Pattern); err != nil {
		return nil, err
	}
	for i, id := range ids {
		n, err := p.GetPatternLen(ctx, i+1)
		if err != nil {
			return nil, err
		}
		pat := patternInfo{ID: id, Multipliers: make([]float64, n)}
		for j := range n {
			if pat.Multipliers[j], err = p.GetPatternValue(ctx, i+1, j+1); err != nil {
				return nil, err
			}
		}
		ins.Patterns = append(ins.Patterns, pat)
	}

	if ins.Params, err = p.IDs(ctx, msx.Parameter); err != nil {
		return nil, err
	}
	return ins, nil
}

func typeName(t msx.ObjectType) string {
	return strings.ToLower(strings.TrimPrefix(t.String(), "MSX_"))
}

func printInspection(w io.Writer, ins *inspection) {
	fmt.Fprintf(w, "%s %s\n\n", titleStyle.Render("MSX project"), ins.Input)

	fmt.Fprintln(w, headerStyle.Render("Objects"))
	for _, t := range objectTypes {
		name := typeName(t)
		fmt.Fprintf(w, "  %-10s %s\n", labelStyle.Render(name), valueStyle.Render(fmt.Sprint(ins.Counts[name])))
	}

	if len(ins.Species) > 0 {
		fmt.Fprintf(w, "\n%s\n", headerStyle.Render("Species"))
		for _, sp := range ins.Species {
			fmt.Fprintf(w, "  %-12s %-5s %-6s atol=%g rtol=%g\n", sp.ID, sp.Location, sp.Units, sp.ATol, sp.RTol)
		}
	}
	if len(ins.Constants) > 0 {
		fmt.Fprintf(w, "\n%s\n", headerStyle.Render("Constants"))
		for _, c := range ins.Constants {
			fmt.Fprintf(w, "  %-12s %g\n", c.ID, c.Value)
		}
	}
	if len(ins.Patterns) > 0 {
		fmt.Fprintf(w, "\n%s\n", headerStyle.Render("Patterns"))
		for _, p := range ins.Patterns {
			vals := make([]string, len(p.Multipliers))
			for i, v := range p.Multipliers {
				vals[i] = fmt.Sprintf("%g", v)
			}
			fmt.Fprintf(w, "  %-12s [%s]\n", p.ID, strings.Join(vals, " "))
		}
	}
	if len(ins.Params) > 0 {
		fmt.Fprintf(w, "\n%s %s\n", headerStyle.Render("Parameters:"), strings.Join(ins.Params, ", "))
	}
}

