// cmd/client/cmd/volume/finalize.go
package volume

import (
	"errors"
	"fmt"

	"stockaudit/cmd/client/cmd/types"
	"stockaudit/internal/app/client"
	domain "stockaudit/internal/domain/volume"

	"github.com/spf13/cobra"
)

var finalizeReason string

var FinalizeCmd = &cobra.Command{
	Use:   "finalize",
	Short: "Финализировать активный объём",
	Long: `Помечает активный объём на финализацию и закрывает его для
сканирования. Пустой объём финализируется только с указанием
причины отсутствия через --reason.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, _ := cmd.Context().Value(types.ClientAppKey).(*client.App)
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		v, err := app.FinalizeVolume(finalizeReason)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrNoActiveVolume):
				return fmt.Errorf("нет активного объёма")
			case errors.Is(err, domain.ErrEmptyVolume):
				return fmt.Errorf("объём пуст, укажите причину отсутствия через --reason")
			}
			return fmt.Errorf("ошибка финализации: %w", err)
		}

		fmt.Println("✅ Объём помечен на финализацию")
		printVolume(v)
		return nil
	},
}

func init() {
	FinalizeCmd.Flags().StringVarP(&finalizeReason, "reason", "r", "", "причина отсутствия товара")
}
