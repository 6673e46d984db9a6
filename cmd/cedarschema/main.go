// Command cedarschema validates Cedar schema fragments and checks entity
// data against them.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/cedar-policy/cedar-schema-go/entities"
	"github.com/cedar-policy/cedar-schema-go/schema"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cedarschema",
		Short:         "Inspect and validate Cedar schemas and entity data",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(validateCmd(), checkEntitiesCmd(), actionsCmd())
	return root
}

func loadSchema(paths []string, permitAttrs bool) (*schema.Schema, error) {
	frags := make([]*schema.Fragment, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		frag, err := schema.ParseFragment(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		frags = append(frags, frag)
	}
	var opts []schema.Option
	if permitAttrs {
		opts = append(opts, schema.WithActionAttributes())
	}
	return schema.FromFragments(frags, opts...)
}

func validateCmd() *cobra.Command {
	var permitAttrs bool
	cmd := &cobra.Command{
		Use:   "validate <schema.json>...",
		Short: "Merge schema fragments and report construction errors",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSchema(args, permitAttrs)
			if err != nil {
				color.Red("invalid: %v", err)
				return err
			}
			color.Green("ok: %d entity types, %d actions", len(s.EntityTypeNames()), len(s.ActionUIDs()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&permitAttrs, "action-attributes", false, "permit literal attributes on action declarations")
	return cmd
}

func checkEntitiesCmd() *cobra.Command {
	var schemaPaths []string
	var permitAttrs bool
	cmd := &cobra.Command{
		Use:   "check-entities <entities.json>",
		Short: "Decode entities JSON, checking it against a schema when given one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parser := entities.NewParser(nil)
			if len(schemaPaths) > 0 {
				s, err := loadSchema(schemaPaths, permitAttrs)
				if err != nil {
					color.Red("invalid schema: %v", err)
					return err
				}
				parser = entities.NewParser(s)
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				color.Red("%v", err)
				return err
			}
			em, err := parser.ParseEntities(data)
			if err != nil {
				color.Red("invalid: %v", err)
				return err
			}
			color.Green("ok: %d entities", len(em))
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&schemaPaths, "schema", nil, "schema fragment file (repeatable)")
	cmd.Flags().BoolVar(&permitAttrs, "action-attributes", false, "permit literal attributes on action declarations")
	return cmd
}

func actionsCmd() *cobra.Command {
	var permitAttrs bool
	cmd := &cobra.Command{
		Use:   "actions <schema.json>...",
		Short: "Print the schema's action entities as entities JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSchema(args, permitAttrs)
			if err != nil {
				color.Red("invalid: %v", err)
				return err
			}
			b, err := entities.MarshalEntities(s.ActionEntities())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		},
	}
	cmd.Flags().BoolVar(&permitAttrs, "action-attributes", false, "permit literal attributes on action declarations")
	return cmd
}
