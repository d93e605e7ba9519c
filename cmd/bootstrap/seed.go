package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"manuscript-editor-api/internal/application/catalog"
	"manuscript-editor-api/internal/domain/repository"
	"manuscript-editor-api/internal/wire"
)

var (
	seedName  string
	seedGenre string
	seedBooks int
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create a demo project with its first book",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		data, cleanup, err := wire.InitializePostgresOnly(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize data layer: %w", err)
		}
		defer cleanup()

		svc := catalog.NewService(data.ProjectRepo, data.BookRepo, data.TxManager, nil)

		// 同名项目已存在时不重复创建
		existing, err := svc.ListProjects(ctx, repository.ProjectQuery{Name: seedName})
		if err != nil {
			return err
		}
		if len(existing.Items) > 0 {
			p := existing.Items[0]
			fmt.Fprintf(cmd.OutOrStdout(), "Project %q already exists with ID: %s\n", p.Name, p.ID)
			return nil
		}

		in := catalog.CreateProjectInput{
			Name:           seedName,
			Description:    "Demo project created by bootstrap",
			Genre:          seedGenre,
			FirstBookTitle: "Book 1",
		}
		if seedBooks > 1 {
			in.TotalBooks = &seedBooks
		}
		project, err := svc.CreateProject(ctx, in)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Project created with ID: %s\n", project.ID)
		for _, b := range project.Books {
			fmt.Fprintf(cmd.OutOrStdout(), "  Book %d: %s\n", b.Number, b.ID)
		}
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedName, "name", "Demo Manuscript", "project name")
	seedCmd.Flags().StringVar(&seedGenre, "genre", "fantasy", "project genre")
	seedCmd.Flags().IntVar(&seedBooks, "total-books", 0, "planned number of books in the series")
}
