package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/stemsi/tugas-backend/internal/config"
	"github.com/stemsi/tugas-backend/internal/logger"
	"github.com/stemsi/tugas-backend/internal/model"
	"github.com/stemsi/tugas-backend/internal/service"
	"golang.org/x/term"
)

// issue-token mints a bearer token for a user, for operators and local testing.
func main() {
	var (
		userID string
		name   string
		role   string
		ttl    time.Duration
	)
	flag.StringVar(&userID, "user", "", "User ID (token subject)")
	flag.StringVar(&name, "name", "", "Display name, recorded as studentName on submissions")
	flag.StringVar(&role, "role", "", "Role: admin, teacher or student")
	flag.DurationVar(&ttl, "ttl", 0, "Token lifetime (default JWT_EXPIRY_HOURS)")
	flag.Parse()

	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	interactive := term.IsTerminal(int(syscall.Stdin))
	reader := bufio.NewReader(os.Stdin)

	// ─── CLI Input ─────────────────────────────────────────────────────
	if interactive {
		userID = promptIfEmpty(reader, userID, "Enter User ID: ")
		name = promptIfEmpty(reader, name, "Enter Name: ")
		role = promptIfEmpty(reader, role, "Enter Role (admin/teacher/student): ")
	}

	// Signing secret: JWT_SECRET wins; otherwise ask without echo.
	if os.Getenv("JWT_SECRET") == "" && interactive {
		fmt.Print("Enter JWT Secret: ")
		secret, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println() // Newline after secret input
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read secret")
		}
		if len(secret) > 0 {
			cfg.JWTSecret = string(secret)
		}
	}

	identity := model.Identity{
		UserID: strings.TrimSpace(userID),
		Name:   strings.TrimSpace(name),
		Role:   model.Role(strings.ToLower(strings.TrimSpace(role))),
	}
	if identity.UserID == "" || !identity.Role.Valid() {
		fmt.Fprintln(os.Stderr, "Error: -user and a valid -role are required")
		flag.Usage()
		os.Exit(2)
	}

	// ─── Logic ─────────────────────────────────────────────────────────
	token, err := service.NewIdentityService(cfg).IssueToken(identity, ttl)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to issue token")
	}

	fmt.Println(token)
}

func promptIfEmpty(reader *bufio.Reader, current, prompt string) string {
	if current != "" {
		return current
	}
	fmt.Print(prompt)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}
