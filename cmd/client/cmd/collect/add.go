// cmd/client/cmd/collect/add.go
package collect

import (
	"fmt"
	"strconv"

	"stockaudit/cmd/client/cmd/types"
	"stockaudit/internal/app/client"
	"stockaudit/internal/domain/audit"

	"github.com/spf13/cobra"
)

var (
	addLabel      string
	addQty        int
	addOccurrence string
	addLot        string
	addValidity   string
)

var AddCmd = &cobra.Command{
	Use:   "add <штрихкод> [количество]",
	Short: "Добавить запись сбора",
	Long: `Ставит запись сбора в локальную очередь. Сеть не требуется:
запись уйдёт на сервер при следующей синхронизации.

Если штрихкод есть в локальном кэше, код товара и описание
подставляются автоматически. Количество по умолчанию берётся
из кратности товара или настроек аудитора.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, _ := cmd.Context().Value(types.ClientAppKey).(*client.App)
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		barcode := args[0]

		// Сканер может передать количество вторым аргументом
		if len(args) == 2 {
			qty, err := parseQty(args[1])
			if err != nil {
				return err
			}
			addQty = qty
		}

		// Этикетку можно не указывать, если в настройках задана фиксированная
		label := addLabel
		if label == "" {
			prefs, err := app.Preferences()
			if err == nil && prefs.FixedLabel != "" {
				label = prefs.FixedLabel
			}
		}
		if label == "" {
			fmt.Print("Этикетка: ")
			_, _ = fmt.Scanln(&label)
		}

		rec, err := app.AddRecord(client.AddRecordInput{
			Label:      label,
			Barcode:    barcode,
			Qty:        addQty,
			Occurrence: audit.Occurrence(addOccurrence),
			Lot:        addLot,
			Validity:   addValidity,
		})
		if err != nil {
			return fmt.Errorf("ошибка добавления записи: %w", err)
		}

		fmt.Printf("✅ Запись добавлена в очередь\n")
		fmt.Printf("   ID: %s\n", rec.LocalID)
		if rec.Description != "" {
			fmt.Printf("   Товар: %d - %s\n", rec.ProductCode, rec.Description)
		}
		fmt.Printf("   Количество: %d\n", rec.Qty)
		if rec.Occurrence != "" {
			fmt.Printf("   Происшествие: %s\n", rec.Occurrence)
		}

		summary, err := app.PendingSummary()
		if err == nil {
			fmt.Printf("В очереди: %d, с ошибкой: %d\n", summary.PendingCount, summary.ErrorCount)
		}

		return nil
	},
}

func init() {
	AddCmd.Flags().StringVarP(&addLabel, "label", "l", "", "этикетка адреса")
	AddCmd.Flags().IntVarP(&addQty, "qty", "q", 0, "количество (0 = кратность товара)")
	AddCmd.Flags().StringVarP(&addOccurrence, "occurrence", "o", "",
		"происшествие ("+string(audit.OccurrenceDamaged)+", "+string(audit.OccurrenceExpired)+")")
	AddCmd.Flags().StringVar(&addLot, "lot", "", "номер партии")
	AddCmd.Flags().StringVar(&addValidity, "validity", "", "срок годности (MMYY)")
}

// parseQty принимает количество как аргумент сканера, когда терминал
// передает его одной строкой со штрихкодом.
func parseQty(s string) (int, error) {
	qty, err := strconv.Atoi(s)
	if err != nil || qty <= 0 {
		return 0, fmt.Errorf("некорректное количество: %q", s)
	}
	return qty, nil
}
