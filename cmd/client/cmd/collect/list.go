// cmd/client/cmd/collect/list.go
package collect

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"stockaudit/cmd/client/cmd/types"
	"stockaudit/internal/app/client"
	"stockaudit/internal/domain/audit"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	listFormat string
	listLocal  bool
)

var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "Список записей за сегодня",
	Long: `Просмотр сегодняшних записей сбора. По умолчанию список
объединяется с серверным: локальные правки перекрывают серверные
копии, удалённые записи скрываются. Флаг --local показывает только
локальную очередь без обращения к серверу.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, _ := cmd.Context().Value(types.ClientAppKey).(*client.App)
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		var (
			records []*audit.Record
			err     error
		)
		if listLocal {
			records, err = app.ListLocalRecords()
		} else {
			records, err = app.ListRecords(cmd.Context())
		}
		if err != nil {
			return fmt.Errorf("ошибка получения списка записей: %w", err)
		}

		switch listFormat {
		case "json":
			return printRecordsJSON(records)
		case "table":
			return printRecordsTable(records)
		default:
			return printRecordsSimple(records)
		}
	},
}

func printRecordsSimple(records []*audit.Record) error {
	if len(records) == 0 {
		fmt.Println("Записи не найдены")
		return nil
	}

	fmt.Printf("Найдено записей: %d\n\n", len(records))

	for i, rec := range records {
		fmt.Printf("%d. [%s] %s x%d\n", i+1, statusMark(rec.SyncStatus), rec.Barcode, rec.Qty)
		if rec.Description != "" {
			fmt.Printf("   %d - %s\n", rec.ProductCode, rec.Description)
		}
		fmt.Printf("   Этикетка: %s | Время: %s\n",
			rec.Label, rec.EventAt.Format("15:04:05"))
		if rec.SyncError != "" {
			color.Red("   Ошибка: %s", rec.SyncError)
		}
		fmt.Println()
	}

	return nil
}

func printRecordsTable(records []*audit.Record) error {
	if len(records) == 0 {
		fmt.Println("Записи не найдены")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Штрихкод\tТовар\tКол-во\tЭтикетка\tСтатус\tВремя\t\n")
	fmt.Fprintf(w, "---\t---\t---\t---\t---\t---\t\n")

	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\t\n",
			rec.Barcode,
			truncate(rec.Description, 30),
			rec.Qty,
			rec.Label,
			string(rec.SyncStatus),
			rec.EventAt.Format("15:04:05"),
		)
	}

	w.Flush()
	fmt.Printf("\nВсего записей: %d\n", len(records))
	return nil
}

func printRecordsJSON(records []*audit.Record) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(records)
}

func statusMark(s audit.SyncStatus) string {
	switch s {
	case audit.StatusSynced:
		return "✓"
	case audit.StatusError:
		return "!"
	default:
		return "…"
	}
}

func truncate(s string, length int) string {
	r := []rune(s)
	if len(r) <= length {
		return s
	}
	return string(r[:length-3]) + "..."
}

func init() {
	ListCmd.Flags().StringVarP(&listFormat, "format", "f", "simple", "формат вывода (simple, table, json)")
	ListCmd.Flags().BoolVar(&listLocal, "local", false, "только локальная очередь, без запроса к серверу")
}
