// cmd/client/cmd/volume/scan.go
package volume

import (
	"errors"
	"fmt"
	"strconv"

	"stockaudit/cmd/client/cmd/types"
	"stockaudit/internal/app/client"
	domain "stockaudit/internal/domain/volume"

	"github.com/spf13/cobra"
)

var ScanCmd = &cobra.Command{
	Use:   "scan <штрихкод> [количество]",
	Short: "Сканировать позицию в активный объём",
	Long: `Добавляет позицию в активный объём. Повтор штрихкода суммирует
количество. Каждый скан помечает объём на отправку снимка позиций.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, _ := cmd.Context().Value(types.ClientAppKey).(*client.App)
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		qty := 1
		if len(args) == 2 {
			var err error
			qty, err = strconv.Atoi(args[1])
			if err != nil || qty <= 0 {
				return fmt.Errorf("некорректное количество: %q", args[1])
			}
		}

		v, err := app.ScanVolumeItem(args[0], qty)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrNoActiveVolume):
				return fmt.Errorf("нет активного объёма, откройте его: stockaudit volume open")
			case errors.Is(err, domain.ErrVolumeReadOnly):
				return fmt.Errorf("объём закрыт для изменений")
			}
			return fmt.Errorf("ошибка сканирования: %w", err)
		}

		fmt.Printf("✅ Позиций: %d, суммарно: %d\n", len(v.Items), v.TotalQty())
		return nil
	},
}
