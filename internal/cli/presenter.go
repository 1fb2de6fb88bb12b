package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/Kshitiz-Mhto/streampipes/pkg/models"
)

// TerminalPresenter 동작 결과를 터미널에 표시
type TerminalPresenter struct {
	out io.Writer
}

// NewTerminalPresenter 새 Presenter 생성
func NewTerminalPresenter(out io.Writer) *TerminalPresenter {
	return &TerminalPresenter{out: out}
}

// Show 상태 다이얼로그 출력 (status가 nil이면 응답 없음 표시)
func (p *TerminalPresenter) Show(status *models.PipelineOperationStatus) {
	ok := color.New(color.FgGreen)
	fail := color.New(color.FgRed)

	if status == nil {
		fail.Fprintln(p.out, "✗ No response from backend")
		return
	}

	header := fmt.Sprintf("%s (%s)", status.Title, status.PipelineName)
	if status.Success {
		ok.Fprintln(p.out, "✓ "+header)
	} else {
		fail.Fprintln(p.out, "✗ "+header)
	}

	for _, es := range status.ElementStatus {
		mark, c := "✓", ok
		if !es.Success {
			mark, c = "✗", fail
		}
		line := fmt.Sprintf("  %s %s", mark, es.ElementName)
		if es.OptionalMessage != "" {
			line += ": " + es.OptionalMessage
		}
		c.Fprintln(p.out, line)
	}
}
