package sync

import (
	"context"
	"errors"
	"fmt"

	"stockaudit/cmd/client/cmd/types"
	"stockaudit/internal/app/client"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	syncStatus bool
	syncWatch  bool
)

var SyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Синхронизация с сервером",
	Long: `Отправляет локальную очередь на сервер: записи сбора, операции
конференции объёмов, затем чистит устаревшие синхронизированные
записи. Явный запуск повторяет и записи, припаркованные с ошибкой.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, _ := cmd.Context().Value(types.ClientAppKey).(*client.App)
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		if syncStatus {
			return showSyncStatus(cmd.Context(), app)
		}

		if syncWatch {
			app.StartAutoSync()
			fmt.Println("Фоновая синхронизация запущена, Ctrl+C для остановки")
			<-cmd.Context().Done()
			app.Shutdown()
			return nil
		}

		return runSync(cmd.Context(), app)
	},
}

func runSync(ctx context.Context, app *client.App) error {
	fmt.Println("=== Синхронизация данных ===")

	if !app.IsAuthenticated() {
		return fmt.Errorf("требуется аутентификация. Выполните: stockaudit auth login")
	}

	fmt.Println("Начало синхронизации...")

	result, err := app.Sync(ctx)
	if err != nil {
		if errors.Is(err, client.ErrAuthExpired) {
			return fmt.Errorf("сессия истекла, выполните вход заново: stockaudit auth login")
		}
		if errors.Is(err, client.ErrSyncInProgress) {
			return fmt.Errorf("синхронизация уже выполняется")
		}
		return fmt.Errorf("ошибка синхронизации: %w", err)
	}

	fmt.Println()
	fmt.Println("✅ Синхронизация завершена!")
	fmt.Printf("Время выполнения: %v\n", result.Duration)
	fmt.Printf("Обработано: %d\n", result.Processed)
	fmt.Printf("Отправлено: %d\n", result.Synced)

	if result.Failed > 0 {
		color.Red("С ошибкой: %d", result.Failed)
	}
	if result.Pending > 0 {
		fmt.Printf("Осталось в очереди: %d\n", result.Pending)
	}
	if result.Evicted > 0 {
		fmt.Printf("Удалено устаревших: %d\n", result.Evicted)
	}

	for _, notice := range result.Notices {
		color.Yellow("  • %s", notice.Message)
	}

	return nil
}

func showSyncStatus(ctx context.Context, app *client.App) error {
	fmt.Println("=== Статус синхронизации ===")

	stats := app.GetSyncService().Stats()

	fmt.Println("📊 Статистика:")
	fmt.Printf("  Всего прогонов: %d\n", stats.TotalRuns)
	fmt.Printf("  Отправлено записей: %d\n", stats.TotalSynced)
	fmt.Printf("  Ошибок: %d\n", stats.TotalErrors)

	if !stats.LastSuccessful.IsZero() {
		fmt.Printf("  Последняя успешная: %s\n",
			stats.LastSuccessful.Format("2006-01-02 15:04:05"))
	}
	if !stats.LastFailed.IsZero() {
		fmt.Printf("  Последняя неудачная: %s\n",
			stats.LastFailed.Format("2006-01-02 15:04:05"))
	}

	summary, err := app.PendingSummary()
	if err == nil {
		fmt.Printf("\n📦 Очередь: %d записей, %d с ошибкой\n",
			summary.PendingCount, summary.ErrorCount)
	}

	// Проверяем соединение с сервером
	fmt.Printf("\n🌐 Соединение с сервером: ")
	if err := app.CheckConnection(ctx); err != nil {
		fmt.Printf("❌ Ошибка: %v\n", err)
	} else {
		fmt.Printf("✅ OK\n")
	}

	// Проверяем аутентификацию
	fmt.Printf("🔐 Аутентификация: ")
	if app.IsAuthenticated() {
		fmt.Printf("✅ Выполнена\n")
	} else {
		fmt.Printf("❌ Требуется вход\n")
	}

	return nil
}

func init() {
	SyncCmd.Flags().BoolVar(&syncStatus, "status", false, "показать статус синхронизации")
	SyncCmd.Flags().BoolVar(&syncWatch, "watch", false, "фоновая синхронизация по таймеру")
}
