package cli

import (
	"github.com/spf13/cobra"

	"github.com/Kshitiz-Mhto/streampipes/internal/schemaloader"
	"github.com/Kshitiz-Mhto/streampipes/pkg/models"
)

func (a *app) schemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Adapter event schemas",
	}

	var (
		file  string
		apply bool
	)
	guess := &cobra.Command{
		Use:   "guess",
		Short: "Guess the event schema of an adapter from its sample events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var adapter models.AdapterDescription
			if err := readDocument(file, cmd.InOrStdin(), &adapter); err != nil {
				return err
			}

			c, err := a.client()
			if err != nil {
				return err
			}
			loader := schemaloader.New(c, a.logger())

			if apply {
				if err := loader.GuessAndApply(cmd.Context(), &adapter); err != nil {
					return err
				}
				return a.print(&adapter)
			}

			schema, err := loader.Guess(cmd.Context(), &adapter)
			if err != nil {
				return err
			}
			return a.print(schema)
		},
	}
	guess.Flags().StringVarP(&file, "file", "f", "", "adapter description (json or yaml, - for stdin)")
	guess.Flags().BoolVar(&apply, "apply", false, "print the adapter with the guessed schema applied")
	_ = guess.MarkFlagRequired("file")

	cmd.AddCommand(guess)
	return cmd
}
