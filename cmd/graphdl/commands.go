package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/syssam/graphdl"
	"github.com/syssam/graphdl/compiler"
	"github.com/syssam/graphdl/compiler/gen"
	"github.com/syssam/graphdl/compiler/load"
	"github.com/syssam/graphdl/graph"

	"github.com/spf13/cobra"
)

func (a *app) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Compile the schema and report warnings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.schema()
			if err != nil {
				return err
			}
			printSchema(cmd.OutOrStdout(), s)
			return nil
		},
	}
}

func printSchema(w io.Writer, s *compiler.Schema) {
	for _, e := range s.Entities() {
		fmt.Fprintf(w, "%s: %d fields, %d relations\n", e.Name, len(e.Fields()), len(e.Relations()))
	}
	for _, warn := range s.Warnings {
		fmt.Fprintf(w, "warning: %s: %s\n", warn.Path, warn.Message)
	}
}

func (a *app) genCmd() *cobra.Command {
	var (
		out      string
		pkg      string
		noTags   bool
		noHeader bool
	)
	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate Go types for the schema entities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.schema()
			if err != nil {
				return err
			}
			opts := []gen.Option{gen.WithPackage(pkg)}
			if noTags {
				opts = append(opts, gen.WithoutTags())
			}
			if noHeader {
				opts = append(opts, gen.WithHeader(""))
			}
			if out == "" || out == "-" {
				return gen.Render(cmd.OutOrStdout(), s, opts...)
			}
			if err := gen.WriteFile(out, s, opts...); err != nil {
				return err
			}
			a.logger.Info("generated entity types", "path", out, "entities", len(s.Entities()))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "-", "output file, - for stdout")
	cmd.Flags().StringVarP(&pkg, "package", "p", "model", "package name of the generated file")
	cmd.Flags().BoolVar(&noTags, "no-tags", false, "omit json struct tags")
	cmd.Flags().BoolVar(&noHeader, "no-header", false, "omit the generated-code header")
	return cmd
}

func (a *app) createCmd() *cobra.Command {
	var (
		data   string
		prompt string
		draft  bool
		skip   bool
	)
	cmd := &cobra.Command{
		Use:   "create <Type>",
		Short: "Create an entity, generating its missing fields and relations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rec, err := parseRecord(data)
			if err != nil {
				return err
			}
			e, closer, err := a.engine(ctx)
			if err != nil {
				return err
			}
			defer closer.Close()

			if draft {
				d, err := e.Draft(ctx, args[0], rec)
				if err != nil {
					return err
				}
				opts := graph.ResolveOptions{}
				if skip {
					opts.OnError = graph.OnErrorSkip
				}
				r, err := e.Resolve(ctx, d, opts)
				if err != nil {
					return err
				}
				if err := r.Err(); err != nil {
					a.logger.Warn("fields not resolved", "count", len(r.Errors), "error", err)
				}
				n, err := e.Commit(ctx, r)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), n.Record)
			}
			var n *graph.Node
			if prompt != "" {
				n, err = e.Generate(ctx, args[0], prompt, rec)
			} else {
				n, err = e.Create(ctx, args[0], rec)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), n.Record)
		},
	}
	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON object of field values")
	cmd.Flags().StringVar(&prompt, "prompt", "", "generate every field from this prompt")
	cmd.Flags().BoolVar(&draft, "draft", false, "create through the draft and resolve phases")
	cmd.Flags().BoolVar(&skip, "skip-errors", false, "with --draft, keep going when a relation fails to resolve")
	return cmd
}

func parseRecord(s string) (graphdl.Record, error) {
	rec := graphdl.Record{}
	if strings.TrimSpace(s) == "" {
		return rec, nil
	}
	if err := json.Unmarshal([]byte(s), &rec); err != nil {
		return nil, graphdl.NewValidationError("--data", err)
	}
	return rec, nil
}

func (a *app) getCmd() *cobra.Command {
	var expand []string
	cmd := &cobra.Command{
		Use:   "get <Type> <id>",
		Short: "Print an entity, optionally with related entities",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, closer, err := a.engine(ctx)
			if err != nil {
				return err
			}
			defer closer.Close()

			n, err := e.Get(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			out := n.Record.Clone()
			for _, field := range expand {
				if ref, ok := n.Ref(field); ok {
					rn, err := ref.Resolve(ctx)
					if err != nil {
						return err
					}
					if rn != nil {
						out[field] = rn.Record
					}
					continue
				}
				if refs, ok := n.Refs(field); ok {
					nodes, err := refs.Resolve(ctx)
					if err != nil {
						return err
					}
					recs := make([]graphdl.Record, len(nodes))
					for i, rn := range nodes {
						recs[i] = rn.Record
					}
					out[field] = recs
					continue
				}
				return fmt.Errorf("%s has no relation field %q", args[0], field)
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringSliceVarP(&expand, "expand", "e", nil, "relation fields to resolve")
	return cmd
}

func (a *app) seedCmd() *cobra.Command {
	var (
		file   string
		format string
	)
	cmd := &cobra.Command{
		Use:   "seed <Type>",
		Short: "Upsert rows of a CSV or TSV source into an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, closer, err := a.engine(ctx)
			if err != nil {
				return err
			}
			defer closer.Close()

			ent, ok := e.Schema().Entity(args[0])
			if !ok {
				return graphdl.NewUnknownTypeError(args[0])
			}
			path, f := file, format
			if path == "" {
				if ent.Meta.Seed == nil {
					return fmt.Errorf("%s declares no $seed source; pass --file", args[0])
				}
				path = ent.Meta.Seed.Source
				if !filepath.IsAbs(path) {
					path = filepath.Join(schemaDir(a.cfg.Schema), path)
				}
				if f == "" {
					f = ent.Meta.Seed.Format
				}
			}
			if f == "" {
				f = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
			}
			src, err := os.Open(path)
			if err != nil {
				return err
			}
			defer src.Close()
			rows, err := graph.ReadRows(src, f)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			res, err := e.Seed(ctx, args[0], rows)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d created, %d updated, %d skipped\n", args[0], res.Created, res.Updated, res.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "source file, defaults to the entity's $seed")
	cmd.Flags().StringVar(&format, "format", "", "csv or tsv, defaults to the file extension")
	return cmd
}

// schemaDir is the directory $seed sources are relative to.
func schemaDir(path string) string {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return path
	}
	return filepath.Dir(path)
}

func (a *app) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Recompile the schema whenever it changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			err := load.Watch(cmd.Context(), a.cfg.Schema, func(raw *load.Schema, err error) {
				if err == nil {
					var s *compiler.Schema
					if s, err = compiler.Compile(raw, compiler.WithLogger(a.logger)); err == nil {
						printSchema(w, s)
						return
					}
				}
				fmt.Fprintf(w, "error: %v\n", err)
			}, load.WithWatchLogger(a.logger))
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
