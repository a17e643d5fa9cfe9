// cmd/client/cmd/auth/login.go
package auth

import (
	"context"
	"fmt"
	"os"
	"time"

	"stockaudit/cmd/client/cmd/types"
	"stockaudit/internal/app/client"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	loginMat string
)

var LoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Войти на сервер склада",
	Long: `Аутентификация аудитора на сервере склада.

После входа токен сохраняется локально для последующих операций.
Смена аудитора очищает локальные данные предыдущего владельца.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, _ := cmd.Context().Value(types.ClientAppKey).(*client.App)
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		fmt.Println("=== Вход в систему ===")
		fmt.Println()

		// Запрашиваем матрикулу, если не передана флагом
		mat := loginMat
		if mat == "" {
			fmt.Print("Матрикула: ")
			_, _ = fmt.Scanln(&mat)
		}
		if mat == "" {
			return fmt.Errorf("матрикула не указана")
		}

		// Запрашиваем пароль
		fmt.Print("Пароль: ")
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("ошибка чтения пароля: %w", err)
		}
		fmt.Println()

		// Выполняем вход
		fmt.Println("Аутентификация...")
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		session, err := app.Login(ctx, mat, string(password))
		if err != nil {
			return fmt.Errorf("ошибка аутентификации: %w", err)
		}

		fmt.Println()
		fmt.Printf("✅ Вход выполнен: %s (%s)\n", session.AuditorName, session.AuditorMat)
		if len(session.Locations) > 0 {
			fmt.Println("Доступные ЦД:")
			for _, loc := range session.Locations {
				marker := " "
				if loc.Location == app.ActiveLocation() {
					marker = "*"
				}
				fmt.Printf("  %s %d - %s\n", marker, loc.Location, loc.Name)
			}
		}

		// Отправляем накопленную очередь
		fmt.Println("Синхронизация данных...")
		result, err := app.Sync(ctx)
		if err != nil {
			fmt.Printf("⚠️  Предупреждение: ошибка синхронизации: %v\n", err)
			fmt.Println("Вы можете продолжить работу в офлайн-режиме")
		} else if result.Failed > 0 {
			fmt.Printf("⚠️  Синхронизация завершена с ошибками (%d)\n", result.Failed)
		} else {
			fmt.Printf("✓ Данные синхронизированы (%d записей)\n", result.Synced)
		}

		return nil
	},
}

func init() {
	LoginCmd.Flags().StringVarP(&loginMat, "mat", "m", "", "матрикула аудитора")
}
