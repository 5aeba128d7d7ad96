package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"finance-portal/internal/config"
	"finance-portal/internal/database"
	"finance-portal/internal/models"
	"finance-portal/internal/service"
	"finance-portal/internal/util"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
	"gorm.io/gorm"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("provision-admin", flag.ContinueOnError)
	fs.SetOutput(stderr)

	email := fs.String("email", "", "Admin email (login name)")
	name := fs.String("name", "", "Display name")
	role := fs.String("role", "", "Role (default admin)")
	passwordFlag := fs.String("password", "", "Password (optional, will prompt if omitted)")
	configPath := fs.String("config", "", "Path to config.yaml (database settings)")
	dbPath := fs.String("db", "", "SQLite file; overrides the configured database")
	cost := fs.Int("cost", 0, "bcrypt cost (default from config, 12)")
	generate := fs.Bool("generate", false, "Generate a random password and print it")
	deactivate := fs.Bool("deactivate", false, "Deactivate the admin instead of creating/updating it")

	if err := fs.Parse(args); err != nil {
		return err
	}

	*email = service.NormalizeEmail(*email)
	if *email == "" {
		fmt.Fprintln(stdout, "Usage: provision-admin -email <email> [-name <name>] [-role <role>] [-password <password> | -generate] [-config <file> | -db <sqlite file>] [-deactivate]")
		fs.PrintDefaults()
		return fmt.Errorf("missing required flags: email")
	}

	dbCfg, bcryptCost, err := resolveSettings(*configPath, *dbPath)
	if err != nil {
		return err
	}
	if *cost > 0 {
		bcryptCost = *cost
	}

	db, err := database.Init(dbCfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close(db)
	if err := database.AutoMigrate(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	if *deactivate {
		res := db.Model(&models.Admin{}).Where("email = ?", *email).Update("is_active", false)
		if res.Error != nil {
			return fmt.Errorf("failed to deactivate: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("admin %s not found", *email)
		}
		fmt.Fprintf(stdout, "Admin %s deactivated\n", *email)
		return nil
	}

	password := *passwordFlag
	if password == "" && *generate {
		password, err = util.RandomString(20)
		if err != nil {
			return fmt.Errorf("failed to generate password: %w", err)
		}
		fmt.Fprintf(stdout, "Generated password: %s\n", password)
	}
	if password == "" {
		fmt.Fprint(stdout, "Password: ")
		password, err = readPassword(stdin)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(stdout)
	}
	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("password cannot be empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	admin, created, err := upsertAdmin(db, *email, *name, *role, string(hash))
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(stdout, "Admin %s created with ID %d\n", admin.Email, admin.ID)
	} else {
		fmt.Fprintf(stdout, "Admin %s updated and active (ID %d)\n", admin.Email, admin.ID)
	}
	return nil
}

// resolveSettings picks the database: an explicit -db file wins, otherwise
// the application config is loaded.
func resolveSettings(configPath, dbPath string) (config.DatabaseConfig, int, error) {
	if dbPath != "" {
		return config.DatabaseConfig{Driver: config.DriverSQLite, Path: dbPath}, bcrypt.DefaultCost + 2, nil
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.DatabaseConfig{}, 0, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg.Database, cfg.Security.BcryptCost, nil
}

// upsertAdmin creates the admin or refreshes password, name and role of an
// existing one, reactivating it.
func upsertAdmin(db *gorm.DB, email, name, role, hash string) (models.Admin, bool, error) {
	var admin models.Admin
	err := db.Where("email = ?", email).First(&admin).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		admin = models.Admin{Email: email, Name: name, Role: role, PasswordHash: hash, IsActive: true}
		if admin.Role == "" {
			admin.Role = "admin"
		}
		if err := db.Create(&admin).Error; err != nil {
			return models.Admin{}, false, fmt.Errorf("failed to create admin: %w", err)
		}
		return admin, true, nil
	case err != nil:
		return models.Admin{}, false, fmt.Errorf("failed to look up admin: %w", err)
	}

	updates := map[string]any{"password_hash": hash, "is_active": true}
	if name != "" {
		updates["name"] = name
	}
	if role != "" {
		updates["role"] = role
	}
	if err := db.Model(&admin).Updates(updates).Error; err != nil {
		return models.Admin{}, false, fmt.Errorf("failed to update admin: %w", err)
	}
	return admin, false, nil
}

func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	// pipes and tests
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
