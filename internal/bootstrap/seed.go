package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/Lucas-Zerino/grows-gateway/internal/config"
	"github.com/Lucas-Zerino/grows-gateway/internal/domain/entity"
	"github.com/Lucas-Zerino/grows-gateway/internal/domain/event"
	"github.com/Lucas-Zerino/grows-gateway/internal/infra/persistence"
	"github.com/Lucas-Zerino/grows-gateway/internal/provider"
	"github.com/go-faker/faker/v4"
	"github.com/google/uuid"
)

// Seed populates demo companies with one instance per provider, for local
// development against a clean database.
func Seed(ctx context.Context, cfg config.Config, companies int) error {
	if companies <= 0 {
		companies = 3
	}

	db, err := persistence.New(ctx, persistence.Config{
		WriteDSN:        cfg.Database.WriteDSN,
		ReadDSN:         cfg.Database.ReadDSN,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	providers := []string{
		provider.NameWPPConnect,
		provider.NameWAHA,
		provider.NameMessenger,
		provider.NameInstagram,
	}

	for i := 0; i < companies; i++ {
		company := entity.Company{
			Name:      faker.Name(),
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		}
		if err := db.Write(ctx).Create(&company).Error; err != nil {
			return fmt.Errorf("seed company: %w", err)
		}

		for _, providerName := range providers {
			inst := entity.Instance{
				CompanyID:          company.ID,
				Provider:           providerName,
				ExternalInstanceID: fmt.Sprintf("session-%s", faker.Username()),
				Status:             event.StateDisconnected,
				Token:              uuid.NewString(),
				WebhookSecret:      uuid.NewString(),
				CreatedAt:          time.Now().UTC(),
				UpdatedAt:          time.Now().UTC(),
			}
			if providerName == provider.NameMessenger || providerName == provider.NameInstagram {
				inst.PlatformUserID = faker.UUIDDigit()
				inst.VerifyToken = uuid.NewString()
			}
			if err := db.Write(ctx).Create(&inst).Error; err != nil {
				return fmt.Errorf("seed instance: %w", err)
			}
		}
	}
	return nil
}
