package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Kshitiz-Mhto/streampipes/internal/editor"
	"github.com/Kshitiz-Mhto/streampipes/pkg/models"
)

func (a *app) editCmd() *cobra.Command {
	var (
		kind        string
		dom         string
		sets        []string
		reconfigure bool
	)

	cmd := &cobra.Command{
		Use:   "edit <pipeline-id>",
		Short: "Change static properties of one pipeline element",
		Long: "edit selects one element of a stored pipeline by its dom token, applies --set values " +
			"and sends the pipeline back, either as a full update or as a live reconfiguration.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var elementKind models.ElementKind
			if err := elementKind.UnmarshalText([]byte(kind)); err != nil || elementKind == "" {
				return fmt.Errorf("invalid --kind %q (processor or sink)", kind)
			}

			values := make([][2]string, 0, len(sets))
			for _, s := range sets {
				name, value, ok := strings.Cut(s, "=")
				if !ok || name == "" {
					return fmt.Errorf("invalid --set %q (expected name=value)", s)
				}
				values = append(values, [2]string{name, value})
			}

			c, err := a.client()
			if err != nil {
				return err
			}
			p, err := c.GetPipelineByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			ed := editor.New(p, c, editor.Options{
				Presenter: NewTerminalPresenter(a.out),
				Logger:    a.logger(),
			})
			if err := ed.SelectByDom(elementKind, dom); err != nil {
				return err
			}
			for _, v := range values {
				if err := ed.SetStaticProperty(v[0], v[1]); err != nil {
					return fmt.Errorf("%s: %w", v[0], err)
				}
			}

			if reconfigure {
				_, err := ed.Reconfigure(cmd.Context())
				if errors.Is(err, editor.ErrOperationFailed) {
					return fmt.Errorf("reconfiguration rejected")
				}
				return err
			}

			msg, err := ed.Update(cmd.Context())
			if err != nil {
				return err
			}
			return a.printMessage(msg)
		},
	}

	cmd.Flags().StringVar(&kind, "kind", string(models.ElementKindProcessor), "element kind (processor or sink)")
	cmd.Flags().StringVar(&dom, "dom", "", "dom token of the element")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "static property value as name=value (repeatable)")
	cmd.Flags().BoolVar(&reconfigure, "reconfigure", false, "reconfigure the running pipeline instead of updating it")
	_ = cmd.MarkFlagRequired("dom")

	return cmd
}
