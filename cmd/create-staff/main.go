package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5"
	"github.com/stemsi/abroad-backend/internal/config"
	"github.com/stemsi/abroad-backend/internal/database"
	"github.com/stemsi/abroad-backend/internal/logger"
	"github.com/stemsi/abroad-backend/internal/model"
	"github.com/stemsi/abroad-backend/internal/repository"
	"github.com/stemsi/abroad-backend/internal/service"
	"golang.org/x/term"
)

func main() {
	resetPassword := flag.Bool("reset-password", false, "Reset the password of an existing staff member instead of creating one")
	flag.Parse()

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

	// ─── Initialize Service ────────────────────────────────────────────
	staffRepo := repository.NewStaffRepository(pool)
	authService := service.NewAuthService(cfg, nil, staffRepo)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	if *resetPassword {
		fmt.Println("=== Reset Staff Password ===")
		email := prompt(reader, "Enter Email: ")
		staff, err := staffRepo.GetByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				fmt.Printf("Error: no staff member with email %s\n", email)
				return
			}
			log.Fatal().Err(err).Msg("Failed to look up staff member")
		}

		password, ok := readPassword()
		if !ok {
			return
		}
		hash, err := authService.HashPassword(password)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to hash password")
		}
		if err := staffRepo.UpdatePassword(ctx, staff.ID, hash); err != nil {
			log.Fatal().Err(err).Msg("Failed to update password")
		}
		fmt.Printf("\nSuccess! Password for '%s' updated. Existing sessions stay valid until logout or expiry.\n", staff.Email)
		return
	}

	fmt.Println("=== Create New Staff Member ===")

	firstName := prompt(reader, "Enter First Name: ")
	if firstName == "" {
		fmt.Println("Error: First name is required")
		return
	}
	lastName := prompt(reader, "Enter Last Name: ")

	email := prompt(reader, "Enter Email: ")
	if email == "" {
		fmt.Println("Error: Email is required")
		return
	}

	password, ok := readPassword()
	if !ok {
		return
	}

	roles := make([]string, len(model.AllRoles))
	for i, r := range model.AllRoles {
		roles[i] = string(r)
	}
	role := model.Role(strings.ToUpper(prompt(reader, fmt.Sprintf("Enter Role (%s, default COUNSELOR): ", strings.Join(roles, ", ")))))
	if role == "" {
		role = model.RoleCounselor
	}
	if !role.Valid() {
		fmt.Printf("Error: Unknown role %q\n", role)
		return
	}

	accountID := 1
	if raw := prompt(reader, "Enter Account ID (default 1): "); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			fmt.Println("Error: Account ID must be a positive number")
			return
		}
		accountID = n
	}

	// ─── Logic ─────────────────────────────────────────────────────────
	hash, err := authService.HashPassword(password)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash password")
	}

	staff := &model.Staff{
		AccountID:    accountID,
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: hash,
		Role:         role,
	}
	if err := staffRepo.Create(ctx, staff); err != nil {
		if errors.Is(err, repository.ErrDuplicateStaffEmail) {
			fmt.Printf("Error: %s is already registered. Use -reset-password to change its password.\n", email)
			return
		}
		log.Fatal().Err(err).Msg("Failed to create staff member")
	}

	fmt.Printf("\nSuccess! %s '%s %s' (%s) created with ID: %d\n",
		staff.Role, staff.FirstName, staff.LastName, staff.Email, staff.ID)
	fmt.Printf("Permissions: %s\n", strings.Join(model.PermissionsFor(staff.Role), ", "))
}

func prompt(reader *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

func readPassword() (string, bool) {
	fmt.Print("Enter Password: ")
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println() // Newline after password input
	if err != nil {
		fmt.Println("Error reading password")
		return "", false
	}
	if len(raw) < 6 {
		fmt.Println("Error: Password must be at least 6 characters")
		return "", false
	}
	return string(raw), true
}
