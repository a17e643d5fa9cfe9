// cmd/client/cmd/volume/cancel.go
package volume

import (
	"errors"
	"fmt"
	"strings"

	"stockaudit/cmd/client/cmd/types"
	"stockaudit/internal/app/client"
	domain "stockaudit/internal/domain/volume"

	"github.com/spf13/cobra"
)

var cancelYes bool

var CancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Отменить активный объём",
	Long: `Отменяет активный объём. Отмена перекрывает отложенные снимок
и финализацию: на сервер уйдёт только отмена. Объём, не известный
серверу, отменяется без обращения к сети.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, _ := cmd.Context().Value(types.ClientAppKey).(*client.App)
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		if !cancelYes {
			fmt.Print("Отменить активный объём? Отсканированные позиции будут потеряны. [y/N]: ")
			var answer string
			_, _ = fmt.Scanln(&answer)
			if !strings.EqualFold(answer, "y") {
				fmt.Println("Отменено")
				return nil
			}
		}

		v, err := app.CancelVolume()
		if err != nil {
			if errors.Is(err, domain.ErrNoActiveVolume) {
				return fmt.Errorf("нет активного объёма")
			}
			return fmt.Errorf("ошибка отмены объёма: %w", err)
		}

		fmt.Println("✅ Объём отменён")
		printVolume(v)
		return nil
	},
}

func init() {
	CancelCmd.Flags().BoolVarP(&cancelYes, "yes", "y", false, "не спрашивать подтверждение")
}
