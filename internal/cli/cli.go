// Package cli spctl 명령 구현
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/Kshitiz-Mhto/streampipes/pkg/client"
)

// Config CLI 설정 (환경변수 기본값, 플래그로 덮어씀)
type Config struct {
	URL     string        `env:"SP_URL" envDefault:"http://localhost:8030"`
	User    string        `env:"SP_USER"`
	Token   string        `env:"SP_TOKEN"`
	Timeout time.Duration `env:"SP_TIMEOUT" envDefault:"30s"`
	Output  string        `env:"SP_OUTPUT" envDefault:"json"`
	Debug   bool          `env:"SP_DEBUG" envDefault:"false"`
}

type app struct {
	cfg    *Config
	out    io.Writer
	errOut io.Writer
}

// RootCommand spctl 루트 명령 생성
func RootCommand(cfg *Config, out, errOut io.Writer) *cobra.Command {
	a := &app{cfg: cfg, out: out, errOut: errOut}

	rootCmd := &cobra.Command{
		Use:           "spctl",
		Short:         "StreamPipes pipeline console",
		Long:          "spctl manages StreamPipes pipelines: lifecycle, element configuration, categories and adapter schemas.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfg.URL, "url", cfg.URL, "backend base URL")
	flags.StringVar(&cfg.User, "user", cfg.User, "user name")
	flags.StringVar(&cfg.Token, "token", cfg.Token, "bearer token")
	flags.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "request timeout")
	flags.StringVarP(&cfg.Output, "output", "o", cfg.Output, "output format (json, yaml)")
	flags.BoolVar(&cfg.Debug, "debug", cfg.Debug, "log requests to stderr")

	rootCmd.AddCommand(
		a.pipelinesCmd(),
		a.categoriesCmd(),
		a.editCmd(),
		a.schemaCmd(),
	)

	return rootCmd
}

// logger 디버그 플래그에 따른 텍스트 로거
func (a *app) logger() *slog.Logger {
	level := slog.LevelWarn
	if a.cfg.Debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(a.errOut, &slog.HandlerOptions{Level: level}))
}

func (a *app) client() (*client.Client, error) {
	c, err := client.New(&client.Config{
		BaseURL:  a.cfg.URL,
		Username: a.cfg.User,
		Token:    a.cfg.Token,
		Timeout:  a.cfg.Timeout,
		Logger:   a.logger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return c, nil
}

func (a *app) print(v any) error {
	return writeDocument(a.out, a.cfg.Output, v)
}
