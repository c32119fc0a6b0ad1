package database

import (
	"fmt"
	"log"
	"os"

	"github.com/J3ZZ3/empcare/internal/model"

	"github.com/go-gormigrate/gormigrate/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM and runs
// pending migrations.
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return db, nil
}

// Migrate applies schema migrations and first-run seeds.
func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "20260110_init_schema",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(
					&model.User{},
					&model.RefreshToken{},
					&model.Project{},
					&model.EmployeeType{},
					&model.Labourer{},
					&model.PayRate{},
					&model.WorkLogEntry{},
					&model.PaymentPeriod{},
					&model.PaymentPeriodEntry{},
					&model.CorrectionRequest{},
					&model.AuditLog{},
				)
			},
		},
		{
			ID: "20260115_seed_employee_types",
			Migrate: func(tx *gorm.DB) error {
				for _, name := range []string{"General Labourer", "Trencher", "Jointer"} {
					et := model.EmployeeType{Name: name, Active: true}
					if err := tx.Where("name = ?", name).FirstOrCreate(&et).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Where("name IN ?", []string{"General Labourer", "Trencher", "Jointer"}).
					Delete(&model.EmployeeType{}).Error
			},
		},
		{
			ID: "20260115_seed_admin_user",
			Migrate: func(tx *gorm.DB) error {
				email := os.Getenv("ADMIN_EMAIL")
				password := os.Getenv("ADMIN_PASSWORD")
				if email == "" || password == "" {
					log.Println("ADMIN_EMAIL / ADMIN_PASSWORD not set, skipping admin seed")
					return nil
				}

				var count int64
				if err := tx.Model(&model.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
					return err
				}
				if count > 0 {
					return nil
				}

				hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
				if err != nil {
					return err
				}
				return tx.Create(&model.User{
					FullName: "Administrator",
					Email:    email,
					Password: string(hashed),
					Role:     model.RoleSuperAdmin,
				}).Error
			},
		},
	})

	return m.Migrate()
}
