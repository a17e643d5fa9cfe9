// cmd/client/cmd/auth/logout.go
package auth

import (
	"fmt"

	"stockaudit/cmd/client/cmd/types"
	"stockaudit/internal/app/client"

	"github.com/spf13/cobra"
)

var LogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Выйти из системы",
	Long: `Удаляет локальный токен. Очередь несинхронизированных записей
сохраняется и будет отправлена после следующего входа того же аудитора.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, _ := cmd.Context().Value(types.ClientAppKey).(*client.App)
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		if !app.IsAuthenticated() {
			fmt.Println("Вход не выполнен.")
			return nil
		}

		if err := app.Logout(); err != nil {
			return fmt.Errorf("ошибка выхода: %w", err)
		}

		summary, err := app.PendingSummary()
		if err == nil && summary.PendingCount > 0 {
			fmt.Printf("В очереди осталось %d записей, они уйдут после следующего входа.\n",
				summary.PendingCount)
		}

		fmt.Println("✅ Выход выполнен")
		return nil
	},
}
