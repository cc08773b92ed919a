package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/xraph/depot"
	"github.com/xraph/go-utils/di"
	"gopkg.in/yaml.v3"
)

var graphFormat string

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the component graph in construction order",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, _, _, err := setup(cmd.Context(), false)
		if err != nil {
			return err
		}

		order, err := r.Graph().TopologicalSort()
		if err != nil {
			return err
		}

		infos := make(map[string]depot.ComponentInfo)
		for _, info := range r.Inspect() {
			infos[info.Key()] = info
		}

		switch graphFormat {
		case "yaml":
			return writeYAML(cmd.OutOrStdout(), order, infos)
		case "text":
			writeText(cmd.OutOrStdout(), order, infos)
			return nil
		default:
			return fmt.Errorf("unknown format %q (want text or yaml)", graphFormat)
		}
	},
}

func init() {
	graphCmd.Flags().StringVarP(&graphFormat, "format", "f", "text", "output format: text or yaml")
}

type componentDoc struct {
	Key          string   `yaml:"key"`
	Class        string   `yaml:"class"`
	AutoCreate   bool     `yaml:"auto_create,omitempty"`
	Priority     int      `yaml:"priority,omitempty"`
	Instantiated bool     `yaml:"instantiated"`
	Requires     []string `yaml:"requires,omitempty"`
	Optional     []string `yaml:"optional,omitempty"`
}

func writeYAML(w io.Writer, order []string, infos map[string]depot.ComponentInfo) error {
	docs := make([]componentDoc, 0, len(order))

	for _, key := range order {
		info := infos[key]
		doc := componentDoc{
			Key:          key,
			Class:        info.ID,
			AutoCreate:   info.AutoCreate,
			Instantiated: info.Instantiated,
		}

		if info.AutoCreate {
			doc.Priority = info.Priority
		}

		for _, dep := range info.Deps {
			if dep.Mode == di.DepOptional {
				doc.Optional = append(doc.Optional, dep.Name)
			} else {
				doc.Requires = append(doc.Requires, dep.Name)
			}
		}

		docs = append(docs, doc)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(docs); err != nil {
		return err
	}

	return enc.Close()
}

func writeText(w io.Writer, order []string, infos map[string]depot.ComponentInfo) {
	for _, key := range order {
		info := infos[key]

		state := yellow("lazy")
		if info.Instantiated {
			state = green("ready")
		}

		fmt.Fprintf(w, "%s %s %s\n", cyan(key), gray("<- "+info.ID), state)

		for _, dep := range info.Deps {
			marker := "  requires"
			if dep.Mode == di.DepOptional {
				marker = "  optional"
			}

			fmt.Fprintf(w, "%s %s\n", gray(marker), dep.Name)
		}
	}
}
