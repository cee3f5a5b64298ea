package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/examdrive/examdrive-backend/internal/config"
	"github.com/examdrive/examdrive-backend/internal/database"
	"github.com/examdrive/examdrive-backend/internal/logger"
	"github.com/examdrive/examdrive-backend/internal/model"
	"github.com/examdrive/examdrive-backend/internal/repository"
	"github.com/examdrive/examdrive-backend/internal/service"
	"golang.org/x/term"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// Student logins are not touched here, so no Redis client is needed.
	authService := service.NewAuthService(cfg, nil, repository.NewStudentRepository(pool),
		repository.NewOperatorRepository(pool), service.SystemClock)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Create New Operator ===")

	name := prompt(reader, "Enter Name: ")
	if name == "" {
		fmt.Println("Error: Name is required")
		return
	}

	email := prompt(reader, "Enter Email: ")
	if email == "" {
		fmt.Println("Error: Email is required")
		return
	}

	fmt.Print("Enter Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Println("Error reading password")
		return
	}
	password := string(bytePassword)
	if len(password) < 6 {
		fmt.Println("Error: Password must be at least 6 characters")
		return
	}

	role := model.OperatorRole(strings.ToLower(prompt(reader, "Enter Role [admin|company] (default company): ")))
	switch role {
	case "":
		role = model.OperatorRoleCompany
	case model.OperatorRoleAdmin, model.OperatorRoleCompany:
	default:
		fmt.Println("Error: Role must be admin or company")
		return
	}

	// ─── Logic ─────────────────────────────────────────────────────────
	op, err := authService.CreateOperator(ctx, name, email, password, role)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			fmt.Printf("Error: an operator with email %s already exists\n", email)
			return
		}
		log.Fatal().Err(err).Msg("Failed to create operator")
	}

	fmt.Printf("\nSuccess! Operator '%s' (%s, %s) created with ID: %d\n", op.Name, op.Email, op.Role, op.ID)
}

func prompt(reader *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}
