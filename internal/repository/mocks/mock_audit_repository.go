package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"attachapi/internal/model"
	"attachapi/internal/repository"
)

type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Insert(ctx context.Context, rec *model.AuditRecord) (*model.AuditRecord, error) {
	args := m.Called(ctx, rec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AuditRecord), args.Error(1)
}

func (m *MockAuditRepository) List(ctx context.Context, f repository.AuditFilter, pq repository.PageQuery) (*repository.PageResult[model.AuditRecord], error) {
	args := m.Called(ctx, f, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.AuditRecord]), args.Error(1)
}
