// cmd/client/cmd/collect/edit.go
package collect

import (
	"fmt"

	"stockaudit/cmd/client/cmd/types"
	"stockaudit/internal/app/client"
	"stockaudit/internal/domain/audit"

	"github.com/spf13/cobra"
)

var (
	editQty        int
	editOccurrence string
	editLot        string
	editValidity   string
)

var EditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Изменить запись сбора",
	Long: `Правит запись локально. Синхронизированная запись становится
ожидающей обновления, запись с ошибкой возвращается в очередь.
Запись, помеченную на удаление, править нельзя.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, _ := cmd.Context().Value(types.ClientAppKey).(*client.App)
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		if editQty <= 0 {
			return fmt.Errorf("укажите новое количество через --qty")
		}

		rec, err := app.EditRecord(args[0], client.EditRecordInput{
			Qty:        editQty,
			Occurrence: audit.Occurrence(editOccurrence),
			Lot:        editLot,
			Validity:   editValidity,
		})
		if err != nil {
			return fmt.Errorf("ошибка изменения записи: %w", err)
		}

		fmt.Printf("✅ Запись изменена: %s x%d (%s)\n",
			rec.Barcode, rec.Qty, string(rec.SyncStatus))

		return nil
	},
}

func init() {
	EditCmd.Flags().IntVarP(&editQty, "qty", "q", 0, "новое количество")
	EditCmd.Flags().StringVarP(&editOccurrence, "occurrence", "o", "", "происшествие")
	EditCmd.Flags().StringVar(&editLot, "lot", "", "номер партии")
	EditCmd.Flags().StringVar(&editValidity, "validity", "", "срок годности (MMYY)")
}
