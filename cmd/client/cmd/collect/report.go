// cmd/client/cmd/collect/report.go
package collect

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"stockaudit/cmd/client/cmd/types"
	"stockaudit/internal/app/client"
	"stockaudit/internal/domain/audit"

	"github.com/spf13/cobra"
)

var (
	reportFrom    string
	reportTo      string
	reportAuditor string
	reportFormat  string
)

var ReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Отчёт по сбору",
	Long: `Запрашивает с сервера сводный отчёт по записям сбора
активного ЦД. Требуется соединение с сервером.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, _ := cmd.Context().Value(types.ClientAppKey).(*client.App)
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		rows, err := app.CollectReport(cmd.Context(), audit.ReportFilters{
			DateFrom: reportFrom,
			DateTo:   reportTo,
			Auditor:  reportAuditor,
		})
		if err != nil {
			return fmt.Errorf("ошибка получения отчёта: %w", err)
		}

		if len(rows) == 0 {
			fmt.Println("Нет данных за выбранный период")
			return nil
		}

		if reportFormat == "json" {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(rows)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "ЦД\tТовар\tОписание\tКол-во\tПроисшествие\tАудитор\tВремя\t\n")
		total := 0
		for _, row := range rows {
			fmt.Fprintf(w, "%d\t%d\t%s\t%d\t%s\t%s\t%s\t\n",
				row.Location,
				row.ProductCode,
				truncate(row.Description, 30),
				row.Qty,
				row.Occurrence,
				row.Auditor,
				row.EventAt,
			)
			total += row.Qty
		}
		w.Flush()

		fmt.Printf("\nСтрок: %d, суммарное количество: %d\n", len(rows), total)
		return nil
	},
}

func init() {
	ReportCmd.Flags().StringVar(&reportFrom, "from", "", "начало периода (ГГГГ-ММ-ДД)")
	ReportCmd.Flags().StringVar(&reportTo, "to", "", "конец периода (ГГГГ-ММ-ДД)")
	ReportCmd.Flags().StringVar(&reportAuditor, "auditor", "", "фильтр по матрикуле аудитора")
	ReportCmd.Flags().StringVarP(&reportFormat, "format", "f", "table", "формат вывода (table, json)")
}
