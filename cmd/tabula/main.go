// Tabula — клиент сервиса анализа: загрузка двух входных файлов,
// запуск вычисления и вывод табличного результата.
//
// Использование:
//
//	tabula [--service-url URL] [--timeout D] [--json] <command> [flags]
//
// Команды:
//
//	analyze  Один цикл: загрузка, запуск, таблица результата
//	decode   Разбор локального файла результата
//	watch    analyze по cron-расписанию
//	history  Журнал анализов (DB_URL)
//	events   Поток событий сессий (RABBITMQ_URL)
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/Tabula/internal/cli"
	"github.com/shaiso/Tabula/internal/config"
	"github.com/shaiso/Tabula/internal/telemetry"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var (
		serviceURL string
		timeout    time.Duration
		jsonOutput bool
		logLevel   string
	)

	rootCmd := &cobra.Command{
		Use:           "tabula",
		Short:         "Tabula — upload two inputs, run the remote analysis, view the result table",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&serviceURL, "service-url", "", "Analysis service URL (env "+config.EnvServiceURL+")")
	flags.DurationVar(&timeout, "timeout", 0, "Per-request timeout (env "+config.EnvRequestTimeout+")")
	flags.BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	flags.StringVar(&logLevel, "log-level", "", "DEBUG, INFO, WARN or ERROR (env "+config.EnvLogLevel+")")

	// Env собирается лениво, после разбора флагов
	envFn := func() (*cli.Env, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		if flags.Changed("service-url") {
			cfg.ServiceURL = serviceURL
		}
		if flags.Changed("timeout") {
			cfg.RequestTimeout = timeout
		}
		if flags.Changed("log-level") {
			cfg.Log.Level = logLevel
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}

		logger := telemetry.SetupLogger(cfg.Log)
		return cli.NewEnv(cfg, logger, cli.NewOutput(jsonOutput)), nil
	}

	rootCmd.AddCommand(
		cli.NewAnalyzeCmd(envFn),
		cli.NewDecodeCmd(envFn),
		cli.NewWatchCmd(envFn),
		cli.NewHistoryCmd(envFn),
		cli.NewEventsCmd(envFn),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cancel()
		os.Exit(1)
	}
}
