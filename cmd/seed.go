package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizadapt/internal/catalog"
	"github.com/abhisek/quizadapt/internal/graph"
	"github.com/abhisek/quizadapt/internal/logger"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load subjects, concepts, templates and questions from a catalog file",
	Long: `Seed the database from a YAML catalog. Without --file the built-in
sample catalog is used. Seeding is idempotent. When neo4j.uri is
configured the prerequisite edges are mirrored into the graph.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		path, _ := cmd.Flags().GetString("file")

		f, err := readCatalog(path)
		if err != nil {
			return err
		}
		if err := catalog.Validate(f); err != nil {
			return err
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		log, err := logger.New(cfg.Log)
		if err != nil {
			return err
		}
		defer log.Sync()

		s, err := openStore(cmd, cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		res, err := catalog.Seed(ctx, s.Catalog(), s.Questions(), f, log)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}

		gc, err := graph.Open(ctx, cfg.Neo4j, log)
		if err != nil {
			return err
		}
		if gc != nil {
			defer gc.Close(ctx)
			if err := gc.SyncPrerequisites(ctx, res.Concepts, res.Edges); err != nil {
				return fmt.Errorf("sync prerequisite graph: %w", err)
			}
		}

		fmt.Printf("Seeded %d subjects, %d topics, %d concepts, %d templates, %d questions, %d prerequisites.\n",
			res.Subjects, res.Topics, len(res.Concepts), res.Templates, res.Questions, len(res.Edges))
		return nil
	},
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect catalog files",
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a catalog file without touching the database",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var path string
		if len(args) == 1 {
			path = args[0]
		}
		f, err := readCatalog(path)
		if err != nil {
			return err
		}
		if err := catalog.Validate(f); err != nil {
			return err
		}
		var templates int
		concepts := f.Concepts()
		for _, c := range concepts {
			templates += len(c.Templates)
		}
		fmt.Printf("OK: %d concepts, %d templates.\n", len(concepts), templates)
		return nil
	},
}

var catalogListCmd = &cobra.Command{
	Use:   "list [file]",
	Short: "List concepts and templates in a catalog",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var path string
		if len(args) == 1 {
			path = args[0]
		}
		f, err := readCatalog(path)
		if err != nil {
			return err
		}
		for _, s := range f.Subjects {
			fmt.Println(s.Name)
			for _, t := range s.Topics {
				fmt.Printf("  %s\n", t.Name)
				for _, c := range t.Concepts {
					fmt.Printf("    %-20s %s\n", c.Key, c.Name)
					for _, tm := range c.Templates {
						fmt.Printf("      - %-24s d=%.2f  %d stored\n", tm.Slug, tm.Difficulty, len(tm.Questions))
					}
				}
			}
		}
		return nil
	},
}

func readCatalog(path string) (*catalog.File, error) {
	if path == "" {
		return catalog.Sample()
	}
	return catalog.Load(path)
}

func init() {
	seedCmd.Flags().StringP("file", "f", "", "Catalog YAML file (default: built-in sample)")

	catalogCmd.AddCommand(catalogValidateCmd)
	catalogCmd.AddCommand(catalogListCmd)
}
