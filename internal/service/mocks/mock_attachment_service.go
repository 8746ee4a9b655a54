package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"attachapi/internal/model"
	"attachapi/internal/repository"
	"attachapi/internal/service"
)

type MockAttachmentService struct {
	mock.Mock
}

func (m *MockAttachmentService) Upload(ctx context.Context, actor service.ActorContext, in service.UploadInput) (*model.Attachment, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Attachment), args.Error(1)
}

func (m *MockAttachmentService) Get(ctx context.Context, actor service.ActorContext, id string) (*model.Attachment, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Attachment), args.Error(1)
}

func (m *MockAttachmentService) Download(ctx context.Context, actor service.ActorContext, id string) (*model.Attachment, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Attachment), args.Error(1)
}

func (m *MockAttachmentService) Delete(ctx context.Context, actor service.ActorContext, id, otpCode string) error {
	args := m.Called(ctx, actor, id, otpCode)
	return args.Error(0)
}

func (m *MockAttachmentService) List(ctx context.Context, actor service.ActorContext, ownerID string, limit, offset int) (*service.AttachmentListResult, error) {
	args := m.Called(ctx, actor, ownerID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AttachmentListResult), args.Error(1)
}

func (m *MockAttachmentService) AuditLogs(ctx context.Context, actor service.ActorContext, f repository.AuditFilter, limit, offset int) (*service.AuditListResult, error) {
	args := m.Called(ctx, actor, f, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AuditListResult), args.Error(1)
}
