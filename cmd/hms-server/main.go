package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hms/hms/internal/config"
	"github.com/hms/hms/internal/domain/billing"
	"github.com/hms/hms/internal/domain/patient"
	"github.com/hms/hms/internal/domain/records"
	"github.com/hms/hms/internal/domain/staff"
	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/internal/platform/db"
	"github.com/hms/hms/internal/platform/document"
	"github.com/hms/hms/internal/platform/middleware"
	"github.com/hms/hms/internal/platform/whatsapp"
)

// doctorDirectory exposes the doctor collection to the patient and billing
// packages without importing the staff package from either.
type doctorDirectory struct {
	repo staff.Repository
}

func (d doctorDirectory) FindDoctor(ctx context.Context, id uuid.UUID) (*staff.Credential, error) {
	return d.repo.FindByID(ctx, auth.RoleDoctor, id)
}

func (d doctorDirectory) ListDoctors(ctx context.Context) ([]*staff.Credential, error) {
	return d.repo.List(ctx, auth.RoleDoctor)
}

func (d doctorDirectory) CountDoctors(ctx context.Context) (int, error) {
	return d.repo.Count(ctx, auth.RoleDoctor)
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "hms-server",
		Short: "Hospital Management API Server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(adminCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HMS API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

// adminCmd seeds the first admin account. Later admins are created through
// the API by an existing admin.
func adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin accounts",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			if name == "" || email == "" || password == "" {
				return fmt.Errorf("--name, --email and --password are required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			repo := staff.NewPGRepository(pool)
			tokens := auth.NewTokens([]byte(cfg.JWTSecret), time.Duration(cfg.TokenTTLHrs)*time.Hour)
			svc := staff.NewService(repo, tokens, zerolog.Nop())

			cred, err := svc.Register(ctx, auth.RoleAdmin, staff.RegisterInput{
				Name:     name,
				Email:    email,
				Password: password,
			})
			if err != nil {
				return fmt.Errorf("create admin: %w", err)
			}

			fmt.Printf("Admin %s created with id %s\n", cred.Email, cred.ID)
			return nil
		},
	}
	createCmd.Flags().String("name", "", "Admin display name")
	createCmd.Flags().String("email", "", "Admin login email")
	createCmd.Flags().String("password", "", "Admin login password")
	cmd.AddCommand(createCmd)

	return cmd
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = logger.Level(zerolog.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	tokens := auth.NewTokens([]byte(cfg.JWTSecret), time.Duration(cfg.TokenTTLHrs)*time.Hour)

	staffRepo := staff.NewPGRepository(pool)
	patientRepo := patient.NewPGRepository(pool)
	reportRepo := records.NewPGReportRepository(pool)
	rxRepo := records.NewPGPrescriptionRepository(pool)
	scanRepo := records.NewPGScanReportRepository(pool)
	labRepo := records.NewPGLabReportRepository(pool)
	billRepo := billing.NewPGRepository(pool)

	resolver := auth.NewResolver(tokens, staff.Directories(staffRepo))
	authn := auth.Authenticate(resolver)

	doctors := doctorDirectory{repo: staffRepo}

	var sender billing.MediaSender
	if cfg.WhatsAppEnabled() {
		sender = whatsapp.NewClient(cfg.WhatsAppBaseURL, cfg.WhatsAppToken, cfg.WhatsAppPhoneID, logger)
	} else {
		logger.Warn().Msg("whatsapp credentials not configured; bill delivery disabled")
	}

	billingSvc := billing.NewService(billing.Deps{
		Repo:          billRepo,
		Patients:      patientRepo,
		Doctors:       doctors,
		Prescriptions: rxRepo,
		Reports:       reportRepo,
		Scans:         scanRepo,
		Renderer:      document.NewRenderer(document.A4()),
		Sender:        sender,
		RunTx: func(ctx context.Context, fn func(ctx context.Context) error) error {
			return db.WithTx(ctx, pool, fn)
		},
		PDFDir: cfg.PDFDir,
		Logger: logger,
	})

	staffSvc := staff.NewService(staffRepo, tokens, logger)
	patientSvc := patient.NewService(patientRepo, doctors, logger)
	recordsSvc := records.NewService(reportRepo, rxRepo, scanRepo, labRepo, billingSvc, logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Recovery(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))

	e.GET("/health", db.HealthHandler(pool))

	staff.NewHandler(staffSvc).RegisterRoutes(e, authn)
	patient.NewHandler(patientSvc).RegisterRoutes(e, authn)
	records.NewHandler(recordsSvc).RegisterRoutes(e, authn)
	billing.NewHandler(billingSvc).RegisterRoutes(e, authn)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
