package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Kshitiz-Mhto/streampipes/pkg/models"
)

func (a *app) categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "categories",
		Aliases: []string{"category"},
		Short:   "Manage pipeline categories",
	}

	var name, description, id string
	add := &cobra.Command{
		Use:   "add",
		Short: "Create or overwrite a category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if name == "" {
				return fmt.Errorf("--name is required")
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			raw, err := c.StorePipelineCategory(cmd.Context(), &models.PipelineCategory{
				ID:                  id,
				CategoryName:        name,
				CategoryDescription: description,
			})
			if err != nil {
				return err
			}
			return writeRaw(a.out, a.cfg.Output, raw)
		},
	}
	add.Flags().StringVar(&name, "name", "", "category name")
	add.Flags().StringVar(&description, "description", "", "category description")
	add.Flags().StringVar(&id, "id", "", "category id (generated when empty)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List categories",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				c, err := a.client()
				if err != nil {
					return err
				}
				categories, err := c.GetPipelineCategories(cmd.Context())
				if err != nil {
					return err
				}
				return a.print(categories)
			},
		},
		add,
		&cobra.Command{
			Use:   "delete <category-id>",
			Short: "Delete a category",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := a.client()
				if err != nil {
					return err
				}
				raw, err := c.DeletePipelineCategory(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return writeRaw(a.out, a.cfg.Output, raw)
			},
		},
	)

	return cmd
}
