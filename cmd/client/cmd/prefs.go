// cmd/client/cmd/prefs.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	prefsLabel      string
	prefsMultiplier int
	prefsLocation   int
	prefsOffline    bool
	prefsSet        bool
)

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Настройки аудитора",
	Long: `Просмотр и изменение локальных настроек: фиксированная этикетка,
кратность по умолчанию, активный ЦД, предпочтение офлайн-режима.
Настройки хранятся только на устройстве.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		prefs, err := app.Preferences()
		if err != nil {
			return fmt.Errorf("ошибка чтения настроек: %w", err)
		}

		if !prefsSet {
			fmt.Printf("Фиксированная этикетка: %q\n", prefs.FixedLabel)
			fmt.Printf("Кратность по умолчанию: %d\n", prefs.DefaultMultiplier)
			fmt.Printf("Активный ЦД: %d\n", prefs.ActiveLocation)
			fmt.Printf("Предпочитать офлайн: %v\n", prefs.PreferOffline)
			return nil
		}

		if cmd.Flags().Changed("label") {
			prefs.FixedLabel = prefsLabel
		}
		if cmd.Flags().Changed("multiplier") {
			if prefsMultiplier <= 0 {
				return fmt.Errorf("кратность должна быть положительной")
			}
			prefs.DefaultMultiplier = prefsMultiplier
		}
		if cmd.Flags().Changed("cd") {
			if err := app.SetActiveLocation(prefsLocation); err != nil {
				return fmt.Errorf("ошибка смены ЦД: %w", err)
			}
			prefs.ActiveLocation = prefsLocation
		}
		if cmd.Flags().Changed("offline") {
			prefs.PreferOffline = prefsOffline
		}

		if err := app.SavePreferences(prefs); err != nil {
			return fmt.Errorf("ошибка сохранения настроек: %w", err)
		}

		fmt.Println("✅ Настройки сохранены")
		return nil
	},
}

var locationsCmd = &cobra.Command{
	Use:   "locations",
	Short: "Список доступных ЦД",
	RunE: func(cmd *cobra.Command, _ []string) error {
		options, err := app.LocationOptions(cmd.Context())
		if err != nil {
			return fmt.Errorf("ошибка получения списка ЦД: %w", err)
		}

		for _, opt := range options {
			marker := " "
			if opt.Location == app.ActiveLocation() {
				marker = "*"
			}
			fmt.Printf("%s %d - %s\n", marker, opt.Location, opt.Name)
		}
		return nil
	},
}

func init() {
	prefsCmd.Flags().BoolVar(&prefsSet, "set", false, "применить переданные значения")
	prefsCmd.Flags().StringVar(&prefsLabel, "label", "", "фиксированная этикетка")
	prefsCmd.Flags().IntVar(&prefsMultiplier, "multiplier", 0, "кратность по умолчанию")
	prefsCmd.Flags().IntVar(&prefsLocation, "cd", 0, "активный ЦД")
	prefsCmd.Flags().BoolVar(&prefsOffline, "offline", false, "предпочитать офлайн-режим")

	prefsCmd.AddCommand(locationsCmd)
}
