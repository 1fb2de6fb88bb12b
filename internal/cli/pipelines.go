package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Kshitiz-Mhto/streampipes/pkg/models"
)

func (a *app) pipelinesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "pipelines",
		Aliases: []string{"pipeline", "pl"},
		Short:   "Manage pipelines",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "own",
			Short: "List pipelines owned by the user",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				c, err := a.client()
				if err != nil {
					return err
				}
				pipelines, err := c.GetOwnPipelines(cmd.Context())
				if err != nil {
					return err
				}
				return a.print(pipelines)
			},
		},
		&cobra.Command{
			Use:   "system",
			Short: "List system pipelines",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				c, err := a.client()
				if err != nil {
					return err
				}
				pipelines, err := c.GetSystemPipelines(cmd.Context())
				if err != nil {
					return err
				}
				return a.print(pipelines)
			},
		},
		&cobra.Command{
			Use:   "get <pipeline-id>",
			Short: "Show a pipeline",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := a.client()
				if err != nil {
					return err
				}
				p, err := c.GetPipelineByID(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return a.print(p)
			},
		},
		a.lifecycleCmd("start", "Start a pipeline"),
		a.lifecycleCmd("stop", "Stop a pipeline"),
		&cobra.Command{
			Use:   "status <pipeline-id>",
			Short: "Show the status history of a pipeline",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := a.client()
				if err != nil {
					return err
				}
				messages, err := c.GetPipelineStatusByID(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return a.print(messages)
			},
		},
		&cobra.Command{
			Use:   "delete <pipeline-id>",
			Short: "Delete a pipeline",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := a.client()
				if err != nil {
					return err
				}
				raw, err := c.DeleteOwnPipeline(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return writeRaw(a.out, a.cfg.Output, raw)
			},
		},
		a.documentCmd("store", "Store a new pipeline from a file", func(cmd *cobra.Command, p *models.Pipeline) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			msg, err := c.StorePipeline(cmd.Context(), p)
			if err != nil {
				return err
			}
			return a.printMessage(msg)
		}),
		a.documentCmd("update", "Replace a stored pipeline from a file", func(cmd *cobra.Command, p *models.Pipeline) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			msg, err := c.UpdatePipeline(cmd.Context(), p)
			if err != nil {
				return err
			}
			return a.printMessage(msg)
		}),
		a.documentCmd("migrate", "Migrate pipeline elements to the deployment targets in a file", func(cmd *cobra.Command, p *models.Pipeline) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			status, err := c.MigratePipeline(cmd.Context(), p)
			if err != nil {
				return err
			}
			return a.showStatus(status)
		}),
	)

	return cmd
}

// lifecycleCmd start/stop 명령
func (a *app) lifecycleCmd(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <pipeline-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}

			var status *models.PipelineOperationStatus
			if action == "start" {
				status, err = c.StartPipeline(cmd.Context(), args[0])
			} else {
				status, err = c.StopPipeline(cmd.Context(), args[0])
			}
			if err != nil {
				NewTerminalPresenter(a.errOut).Show(nil)
				return err
			}
			return a.showStatus(status)
		},
	}
}

// documentCmd 파이프라인 문서 파일을 받는 명령
func (a *app) documentCmd(use, short string, run func(cmd *cobra.Command, p *models.Pipeline) error) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := readPipeline(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return run(cmd, p)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "pipeline document (json or yaml, - for stdin)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func readPipeline(path string, stdin io.Reader) (*models.Pipeline, error) {
	var p models.Pipeline
	if err := readDocument(path, stdin, &p); err != nil {
		return nil, err
	}
	p.NormalizeKinds()
	return &p, nil
}

// showStatus 상태 표시 후 실패면 에러 반환
func (a *app) showStatus(status *models.PipelineOperationStatus) error {
	NewTerminalPresenter(a.out).Show(status)
	if status == nil || !status.Success {
		return errOperationFailed(status)
	}
	return nil
}

func (a *app) printMessage(msg *models.Message) error {
	if err := a.print(msg); err != nil {
		return err
	}
	if msg != nil && !msg.Success {
		return fmt.Errorf("request was rejected by the backend")
	}
	return nil
}

func errOperationFailed(status *models.PipelineOperationStatus) error {
	if status == nil {
		return fmt.Errorf("no response from backend")
	}
	return fmt.Errorf("%s failed for pipeline %s", status.Title, status.PipelineID)
}
