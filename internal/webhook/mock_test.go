package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/Lucas-Zerino/grows-gateway/internal/domain/entity"
	"github.com/Lucas-Zerino/grows-gateway/internal/domain/event"
	"github.com/Lucas-Zerino/grows-gateway/internal/domain/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type fakeInstanceRepo struct {
	instances []entity.Instance
}

func (f *fakeInstanceRepo) GetByID(_ context.Context, id uuid.UUID) (entity.Instance, error) {
	for _, inst := range f.instances {
		if inst.ID == id {
			return inst, nil
		}
	}
	return entity.Instance{}, repository.ErrInstanceNotFound
}

func (f *fakeInstanceRepo) GetByToken(_ context.Context, token string) (entity.Instance, error) {
	for _, inst := range f.instances {
		if inst.Token == token {
			return inst, nil
		}
	}
	return entity.Instance{}, repository.ErrInstanceNotFound
}

func (f *fakeInstanceRepo) GetByExternalID(_ context.Context, provider, externalID string) (entity.Instance, error) {
	for _, inst := range f.instances {
		if inst.Provider == provider && inst.ExternalInstanceID == externalID {
			return inst, nil
		}
	}
	return entity.Instance{}, repository.ErrInstanceNotFound
}

func (f *fakeInstanceRepo) GetByPlatformUserID(_ context.Context, provider, platformUserID string) (entity.Instance, error) {
	for _, inst := range f.instances {
		if inst.Provider == provider && inst.PlatformUserID == platformUserID {
			return inst, nil
		}
	}
	return entity.Instance{}, repository.ErrInstanceNotFound
}

func (f *fakeInstanceRepo) ListAll(context.Context) ([]entity.Instance, error) {
	return f.instances, nil
}

func (f *fakeInstanceRepo) UpdateStatusIfChanged(_ context.Context, id uuid.UUID, state event.ConnectionState) (bool, error) {
	for i := range f.instances {
		if f.instances[i].ID == id {
			if f.instances[i].Status == state {
				return false, nil
			}
			f.instances[i].Status = state
			return true, nil
		}
	}
	return false, repository.ErrInstanceNotFound
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func newRequest(provider string, pathID uuid.UUID, body string) Request {
	return Request{
		Provider: provider,
		PathID:   pathID,
		Headers:  http.Header{},
		Body:     []byte(body),
	}
}
