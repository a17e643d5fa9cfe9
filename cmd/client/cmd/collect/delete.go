// cmd/client/cmd/collect/delete.go
package collect

import (
	"fmt"
	"strings"

	"stockaudit/cmd/client/cmd/types"
	"stockaudit/internal/app/client"

	"github.com/spf13/cobra"
)

var deleteYes bool

var DeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Удалить запись сбора",
	Long: `Помечает запись на удаление. Если запись ещё не была отправлена
на сервер, она удаляется сразу; иначе удаление уходит на сервер
при следующей синхронизации.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, _ := cmd.Context().Value(types.ClientAppKey).(*client.App)
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		if !deleteYes {
			fmt.Printf("Удалить запись %s? [y/N]: ", args[0])
			var answer string
			_, _ = fmt.Scanln(&answer)
			if !strings.EqualFold(answer, "y") {
				fmt.Println("Отменено")
				return nil
			}
		}

		if err := app.DeleteRecord(args[0]); err != nil {
			return fmt.Errorf("ошибка удаления записи: %w", err)
		}

		fmt.Println("✅ Запись помечена на удаление")
		return nil
	},
}

func init() {
	DeleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "не спрашивать подтверждение")
}
