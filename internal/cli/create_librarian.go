package cli

import (
	"flag"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/term"

	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/config"
	"github.com/openshelf/openshelf/internal/database"
	"github.com/openshelf/openshelf/internal/entities"
)

// CreateLibrarianCommand creates a librarian account from the terminal.
// Useful for bootstrapping an install without going through self-registration.
type CreateLibrarianCommand struct {
	Username     string
	Email        string
	Password     string
	DatabasePath string
}

// NewCreateLibrarianCommand creates a new CreateLibrarianCommand.
func NewCreateLibrarianCommand() *CreateLibrarianCommand {
	return &CreateLibrarianCommand{}
}

// ParseFlags parses command line flags.
func (cmd *CreateLibrarianCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("create-librarian", flag.ExitOnError)

	fs.StringVar(&cmd.Username, "username", "", "Username for the librarian account (required)")
	fs.StringVar(&cmd.Email, "email", "", "Email for the librarian account (required)")
	fs.StringVar(&cmd.Password, "password", "", "Password (prompted interactively if not provided)")
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the library database file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s create-librarian -username <name> -email <email> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Create a librarian account with catalog and dashboard access.\n\n")
		fmt.Fprintf(os.Stderr, "When -password is omitted the password is read from the terminal\n")
		fmt.Fprintf(os.Stderr, "without echo, which keeps it out of the shell history.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s create-librarian -username head -email head@library.org\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s create-librarian -username head -email head@library.org -db ./openshelf.db\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.Username == "" {
		fs.Usage()
		return fmt.Errorf("username is required")
	}
	if cmd.Email == "" {
		fs.Usage()
		return fmt.Errorf("email is required")
	}

	return nil
}

// Run executes the command.
func (cmd *CreateLibrarianCommand) Run() error {
	if cmd.Password == "" {
		password, err := promptPassword()
		if err != nil {
			return err
		}
		cmd.Password = password
	}

	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	cfg := config.NewConfig()
	service := auth.NewService(db.DB, cfg.Auth)
	user, err := service.CreateUser(cmd.Username, cmd.Email, cmd.Password, entities.UserRoleLibrarian)
	if err != nil {
		return fmt.Errorf("failed to create librarian: %w", err)
	}

	fmt.Printf("Librarian account created: %s (%s)\n", user.Username, user.Email)
	return nil
}

// promptPassword reads the password twice from the terminal without echo.
func promptPassword() (string, error) {
	fmt.Print("Password: ")
	first, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	fmt.Print("Confirm password: ")
	second, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password confirmation: %w", err)
	}

	if string(first) != string(second) {
		return "", fmt.Errorf("passwords do not match")
	}

	return string(first), nil
}
