// cmd/client/cmd/manifest/lookup.go
package manifest

import (
	"fmt"

	"stockaudit/cmd/client/cmd/types"
	"stockaudit/internal/app/client"

	"github.com/spf13/cobra"
)

var LookupCmd = &cobra.Command{
	Use:   "lookup <штрихкод>",
	Short: "Найти товар по штрихкоду",
	Long: `Ищет штрихкод в локальном кэше. При промахе и доступном сервере
строка запрашивается удалённо и дописывается в кэш.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, _ := cmd.Context().Value(types.ClientAppKey).(*client.App)
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		row, err := app.LookupBarcode(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("штрихкод не найден: %w", err)
		}

		fmt.Printf("Штрихкод:  %s\n", row.Barcode)
		fmt.Printf("Код:       %d\n", row.ProductCode)
		fmt.Printf("Описание:  %s\n", row.Description)
		fmt.Printf("Кратность: %d\n", row.Multiplier)

		return nil
	},
}
